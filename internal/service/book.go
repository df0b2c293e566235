package service

import (
	"context"
	"fmt"

	"github.com/bookhaven/lending-service/internal/model"
)

func (s *Service) CreateBook(ctx context.Context, author string, req model.CreateBookRequest) (model.Book, error) {
	book, err := s.repo.CreateBook(ctx, req)
	if err != nil {
		return model.Book{}, err
	}
	s.audit.Record(fmt.Sprintf("book %q (%s) added", book.Title, book.Isbn), author, model.ActionAdded)
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, author, bookUid string, req model.CreateBookRequest) (model.Book, error) {
	book, err := s.repo.UpdateBook(ctx, bookUid, req)
	if err != nil {
		return model.Book{}, err
	}
	s.audit.Record(fmt.Sprintf("book %q (%s) updated", book.Title, book.Isbn), author, model.ActionUpdated)
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, author, bookUid string) error {
	if err := s.repo.DeleteBook(ctx, bookUid); err != nil {
		return err
	}
	s.audit.Record(fmt.Sprintf("book %s removed", bookUid), author, model.ActionDeleted)
	return nil
}

func (s *Service) GetBook(ctx context.Context, bookUid string) (model.Book, error) {
	return s.repo.GetBook(ctx, bookUid)
}

func (s *Service) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, filter)
}

func (s *Service) CountBooks(ctx context.Context) (model.BookCount, error) {
	return s.repo.CountBooks(ctx)
}
