package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
)

const lendingColumns = `id, lending_uid, book_id, user_id, start_date, end_date, status`

// viewColumns aliases joined book and user fields for sqlx nested scanning.
var viewColumns = []string{
	"l.id", "l.lending_uid", "l.book_id", "l.user_id", "l.start_date", "l.end_date", "l.status",
	`b.book_uid as "book.book_uid"`, `b.title as "book.title"`, `b.author as "book.author"`,
	`b.editor as "book.editor"`, `b.isbn as "book.isbn"`, `b.available as "book.available"`,
	`u.user_uid as "user.user_uid"`, `u.username as "user.username"`,
	`u.full_name as "user.full_name"`, `u.email as "user.email"`, `u.type as "user.type"`,
}

// CreateLending inserts an active lending and flips the book to
// unavailable in one transaction. The book update is conditional, so two
// concurrent creates against the same book serialize on its row and the
// loser sees zero rows and gets a conflict.
func (r *repository) CreateLending(ctx context.Context, req model.CreateLendingRequest) (model.Lending, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Lending{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var bookID int64
	err = tx.QueryRowContext(ctx,
		`update books set available = false where book_uid = $1 and available = true returning id`,
		req.BookUid).Scan(&bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`select exists(select 1 from books where book_uid = $1)`, req.BookUid).Scan(&exists); err != nil {
				return model.Lending{}, err
			}
			if !exists {
				return model.Lending{}, errs.ErrNotFound
			}
			return model.Lending{}, errs.ErrBookUnavailable
		}
		return model.Lending{}, err
	}

	var lending model.Lending
	err = tx.GetContext(ctx, &lending, `
insert into lendings (lending_uid, book_id, user_id, start_date, end_date, status)
select $1, $2, u.id, $3, $4, 'active' from users u where u.user_uid = $5
returning `+lendingColumns,
		uuid.New(), bookID,
		req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly),
		req.UserUid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// user missing; rollback releases the book again
			return model.Lending{}, errs.ErrNotFound
		}
		return model.Lending{}, classifyPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Lending{}, err
	}
	return lending, nil
}

// ReturnLending transitions active->returned and releases the book. The
// status update is conditional: a second return of the same lending
// matches zero rows and is rejected as a conflict.
func (r *repository) ReturnLending(ctx context.Context, lendingUid string) (model.Lending, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Lending{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var lending model.Lending
	err = tx.GetContext(ctx, &lending, `
update lendings set status = 'returned'
where lending_uid = $1 and status = 'active'
returning `+lendingColumns, lendingUid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Lending{}, r.classifyMissedLending(ctx, lendingUid)
		}
		return model.Lending{}, err
	}

	res, err := tx.ExecContext(ctx,
		`update books set available = true where id = $1 and available = false`, lending.BookID)
	if err != nil {
		return model.Lending{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.log.Warn("returned lending for a book already marked available",
			zap.String("lending_uid", lendingUid), zap.Int64("book_id", lending.BookID))
	}

	if err := tx.Commit(); err != nil {
		return model.Lending{}, err
	}
	return lending, nil
}

func (r *repository) ExtendLending(ctx context.Context, lendingUid string, newEndDate model.Date) (model.Lending, error) {
	var lending model.Lending
	err := r.db.GetContext(ctx, &lending, `
update lendings set end_date = $2
where lending_uid = $1 and status = 'active'
returning `+lendingColumns, lendingUid, newEndDate.Format(time.DateOnly))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			missErr := r.classifyMissedLending(ctx, lendingUid)
			if errors.Is(missErr, errs.ErrAlreadyReturned) {
				missErr = errs.ErrNotActive
			}
			return model.Lending{}, missErr
		}
		return model.Lending{}, err
	}
	return lending, nil
}

// DeleteLending hard-deletes the record; when it was still active the
// book is released in the same transaction as the compensating write.
func (r *repository) DeleteLending(ctx context.Context, lendingUid string) (model.Lending, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Lending{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var lending model.Lending
	err = tx.GetContext(ctx, &lending,
		`delete from lendings where lending_uid = $1 returning `+lendingColumns, lendingUid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Lending{}, errs.ErrNotFound
		}
		return model.Lending{}, err
	}

	if lending.Status == model.StatusActive {
		if _, err := tx.ExecContext(ctx,
			`update books set available = true where id = $1 and available = false`, lending.BookID); err != nil {
			return model.Lending{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Lending{}, err
	}
	return lending, nil
}

// classifyMissedLending tells a missing lending apart from one that is
// no longer active after a conditional update matched nothing.
func (r *repository) classifyMissedLending(ctx context.Context, lendingUid string) error {
	var status model.Status
	err := r.db.QueryRowContext(ctx,
		`select status from lendings where lending_uid = $1`, lendingUid).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	return errs.ErrAlreadyReturned
}

func (r *repository) GetLending(ctx context.Context, lendingUid string) (model.LendingView, error) {
	query, args, err := qb.Select(viewColumns...).
		From(lendingsTableName + " l").
		Join(booksTableName + " b on b.id = l.book_id").
		Join(usersTableName + " u on u.id = l.user_id").
		Where(sq.Eq{"lending_uid": lendingUid}).
		ToSql()
	if err != nil {
		return model.LendingView{}, err
	}

	var view model.LendingView
	if err := r.db.GetContext(ctx, &view, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LendingView{}, errs.ErrNotFound
		}
		return model.LendingView{}, err
	}
	return view, nil
}

func (r *repository) ListLendings(ctx context.Context, filter model.LendingFilter) (model.ListLendings, error) {
	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"l.status": filter.Status})
	}
	if filter.UserUid != "" {
		where = append(where, sq.Eq{"u.user_uid": filter.UserUid})
	}

	countQuery, countArgs, err := qb.Select("count(*)").
		From(lendingsTableName + " l").
		Join(usersTableName + " u on u.id = l.user_id").
		Where(where).
		ToSql()
	if err != nil {
		return model.ListLendings{}, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return model.ListLendings{}, err
	}

	q := qb.Select(viewColumns...).
		From(lendingsTableName + " l").
		Join(booksTableName + " b on b.id = l.book_id").
		Join(usersTableName + " u on u.id = l.user_id").
		Where(where).
		OrderBy("l.start_date desc", "l.id desc")

	if filter.Page != 0 && filter.Limit != 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64((filter.Page - 1) * filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListLendings{}, err
	}
	r.log.Debug("ListLendings", zap.String("query", query), zap.Any("args", args))

	lendings := make([]model.LendingView, 0)
	if err := r.db.SelectContext(ctx, &lendings, query, args...); err != nil {
		return model.ListLendings{}, err
	}

	last := lastPage(total, filter.Limit)
	return model.ListLendings{
		Lendings: lendings,
		Total:    total,
		Page:     filter.Page,
		LastPage: last,
		HasNext:  filter.Page < last,
		HasPrev:  filter.Page > 1,
	}, nil
}

// SearchLendings matches the query against the joined book and user
// fields, case-insensitively.
func (r *repository) SearchLendings(ctx context.Context, query string) ([]model.LendingView, error) {
	pattern := "%" + query + "%"
	q, args, err := qb.Select(viewColumns...).
		From(lendingsTableName + " l").
		Join(booksTableName + " b on b.id = l.book_id").
		Join(usersTableName + " u on u.id = l.user_id").
		Where(sq.Or{
			sq.ILike{"b.title": pattern},
			sq.ILike{"b.author": pattern},
			sq.ILike{"u.full_name": pattern},
			sq.ILike{"u.username": pattern},
			sq.ILike{"u.email": pattern},
		}).
		OrderBy("l.start_date desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	lendings := make([]model.LendingView, 0)
	if err := r.db.SelectContext(ctx, &lendings, q, args...); err != nil {
		return nil, err
	}
	return lendings, nil
}

func (r *repository) CountLendings(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `select count(*) from lendings`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
