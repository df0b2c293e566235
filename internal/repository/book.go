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

const bookColumns = `id, book_uid, title, author, editor, isbn, available`

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Insert(booksTableName).
		Columns("book_uid", "title", "author", "editor", "isbn").
		Values(uuid.New(), req.Title, req.Author, req.Editor, req.Isbn).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, classifyPgError(err)
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, bookUid string, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Update(booksTableName).
		Set("title", req.Title).
		Set("author", req.Author).
		Set("editor", req.Editor).
		Set("isbn", req.Isbn).
		Where(sq.Eq{"book_uid": bookUid}).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, classifyPgError(err)
	}
	return book, nil
}

// DeleteBook refuses to remove a book that still has an active lending,
// so the availability invariant cannot be orphaned by a delete. Returned
// lendings are history only and are purged with the book; without that
// the fk on lendings.book_id would block the delete.
func (r *repository) DeleteBook(ctx context.Context, bookUid string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
delete from lendings
where status = 'returned'
  and book_id = (select id from books where book_uid = $1)`, bookUid)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
delete from books
where book_uid = $1
  and not exists (select 1 from lendings l where l.book_id = books.id and l.status = 'active')`,
		bookUid)
	if err != nil {
		return classifyPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`select exists(select 1 from books where book_uid = $1)`, bookUid).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errs.ErrNotFound
		}
		return errs.ErrBookLent
	}
	return tx.Commit()
}

func (r *repository) GetBook(ctx context.Context, bookUid string) (model.Book, error) {
	q, args, err := qb.Select(splitColumns(bookColumns)...).
		From(booksTableName).
		Where(sq.Eq{"book_uid": bookUid}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	where := sq.And{}
	if filter.Availability != nil {
		where = append(where, sq.Eq{"available": *filter.Availability})
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
			sq.ILike{"isbn": pattern},
		})
	}

	countQuery, countArgs, err := qb.Select("count(*)").From(booksTableName).Where(where).ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return model.ListBooks{}, err
	}

	q := qb.Select(splitColumns(bookColumns)...).
		From(booksTableName).
		Where(where).
		OrderBy("title")
	if filter.Page != 0 && filter.Limit != 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64((filter.Page - 1) * filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Books:    books,
		Total:    total,
		Page:     filter.Page,
		LastPage: lastPage(total, filter.Limit),
	}, nil
}

func (r *repository) CountBooks(ctx context.Context) (model.BookCount, error) {
	var count model.BookCount
	err := r.db.GetContext(ctx, &count,
		`select count(*) as total, count(*) filter (where available) as available from books`)
	if err != nil {
		return model.BookCount{}, err
	}
	return count, nil
}
