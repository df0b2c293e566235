package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
)

const userColumns = `id, user_uid, username, full_name, email, password, type`

func (r *repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	q, args, err := qb.Insert(usersTableName).
		Columns("user_uid", "username", "full_name", "email", "password", "type").
		Values(uuid.New(), user.Username, user.FullName, user.Email, user.Password, user.Type).
		Suffix("returning " + userColumns).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var created model.User
	if err := r.db.GetContext(ctx, &created, q, args...); err != nil {
		r.log.Error("CreateUser", zap.String("q", q), zap.String("username", user.Username))
		return model.User{}, classifyPgError(err)
	}
	return created, nil
}

func (r *repository) UpdateUser(ctx context.Context, userUid string, req model.UserUpdateRequest) (model.User, error) {
	update := qb.Update(usersTableName)
	if req.Username != "" {
		update = update.Set("username", req.Username)
	}
	if req.FullName != "" {
		update = update.Set("full_name", req.FullName)
	}
	if req.Email != "" {
		update = update.Set("email", req.Email)
	}
	if req.Password != "" {
		update = update.Set("password", req.Password)
	}
	if req.Type != "" {
		update = update.Set("type", req.Type)
	}

	q, args, err := update.
		Where(sq.Eq{"user_uid": userUid}).
		Suffix("returning " + userColumns).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, classifyPgError(err)
	}
	return user, nil
}

// DeleteUser refuses to remove a user who still has lendings, active or
// returned: lending rows are the audit trail of who borrowed what, so
// they must be deleted explicitly first.
func (r *repository) DeleteUser(ctx context.Context, userUid string) error {
	res, err := r.db.ExecContext(ctx, `
delete from users
where user_uid = $1
  and not exists (select 1 from lendings l where l.user_id = users.id)`, userUid)
	if err != nil {
		return classifyPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`select exists(select 1 from users where user_uid = $1)`, userUid).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errs.ErrNotFound
		}
		return errs.ErrUserHasLendings
	}
	return nil
}

func (r *repository) GetUser(ctx context.Context, userUid string) (model.User, error) {
	return r.getUserBy(ctx, sq.Eq{"user_uid": userUid})
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getUserBy(ctx, sq.Eq{"username": username})
}

func (r *repository) getUserBy(ctx context.Context, pred sq.Eq) (model.User, error) {
	q, args, err := qb.Select(splitColumns(userColumns)...).
		From(usersTableName).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) ListUsers(ctx context.Context, page, limit int) (model.ListUsers, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return model.ListUsers{}, err
	}

	q := qb.Select(splitColumns(userColumns)...).
		From(usersTableName).
		OrderBy("username")
	if page != 0 && limit != 0 {
		q = q.Limit(uint64(limit)).Offset(uint64((page - 1) * limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListUsers{}, err
	}

	users := make([]model.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return model.ListUsers{}, err
	}

	return model.ListUsers{
		Users:    users,
		Total:    total,
		Page:     page,
		LastPage: lastPage(total, limit),
	}, nil
}
