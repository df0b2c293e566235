package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
)

type Repository interface {
	CreateLending(ctx context.Context, req model.CreateLendingRequest) (model.Lending, error)
	ReturnLending(ctx context.Context, lendingUid string) (model.Lending, error)
	ExtendLending(ctx context.Context, lendingUid string, newEndDate model.Date) (model.Lending, error)
	DeleteLending(ctx context.Context, lendingUid string) (model.Lending, error)
	GetLending(ctx context.Context, lendingUid string) (model.LendingView, error)
	ListLendings(ctx context.Context, filter model.LendingFilter) (model.ListLendings, error)
	SearchLendings(ctx context.Context, query string) ([]model.LendingView, error)
	CountLendings(ctx context.Context) (int, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, bookUid string, req model.CreateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, bookUid string) error
	GetBook(ctx context.Context, bookUid string) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	CountBooks(ctx context.Context) (model.BookCount, error)

	CreateUser(ctx context.Context, user model.User) (model.User, error)
	UpdateUser(ctx context.Context, userUid string, req model.UserUpdateRequest) (model.User, error)
	DeleteUser(ctx context.Context, userUid string) error
	GetUser(ctx context.Context, userUid string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	ListUsers(ctx context.Context, page, limit int) (model.ListUsers, error)

	CreateAction(ctx context.Context, entry model.ActionLog) error
	ListActions(ctx context.Context) ([]model.ActionLog, error)
	CleanupActions(ctx context.Context) (int64, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName    = `books`
	usersTableName    = `users`
	lendingsTableName = `lendings`
	actionsTableName  = `actions`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// classifyPgError maps low-level constraint violations onto the error
// taxonomy the service layer speaks.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errs.ErrConflict
		case pgerrcode.ForeignKeyViolation:
			return errs.ErrNotFound
		}
	}
	return err
}

func splitColumns(columns string) []string {
	parts := strings.Split(columns, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func lastPage(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}
