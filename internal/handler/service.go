package handler

import (
	"context"

	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/internal/service"
	"github.com/bookhaven/lending-service/pkg/auth"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	CreateLending(ctx context.Context, author string, req model.CreateLendingRequest) (model.Lending, error)
	ReturnLending(ctx context.Context, author, lendingUid string) (model.Lending, error)
	ExtendLending(ctx context.Context, author, lendingUid string, req model.ExtendLendingRequest) (model.Lending, error)
	DeleteLending(ctx context.Context, author, lendingUid string) error
	GetLending(ctx context.Context, lendingUid string) (model.LendingView, error)
	ListLendings(ctx context.Context, session auth.Session, filter model.LendingFilter) (model.ListLendings, error)
	UserLendings(ctx context.Context, userUid string) (model.ListLendings, error)
	SearchLendings(ctx context.Context, query string) ([]model.LendingView, error)
	CountLendings(ctx context.Context) (int, error)

	CreateBook(ctx context.Context, author string, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, author, bookUid string, req model.CreateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, author, bookUid string) error
	GetBook(ctx context.Context, bookUid string) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	CountBooks(ctx context.Context) (model.BookCount, error)

	CreateUser(ctx context.Context, author string, req model.UserCreateRequest) (model.User, error)
	Register(ctx context.Context, req model.UserCreateRequest) (model.User, error)
	UpdateUser(ctx context.Context, author, userUid string, req model.UserUpdateRequest) (model.User, error)
	DeleteUser(ctx context.Context, author, userUid string) error
	GetUser(ctx context.Context, userUid string) (model.User, error)
	ListUsers(ctx context.Context, page, limit int) (model.ListUsers, error)
	Authorize(ctx context.Context, req model.AuthRequest) (model.AuthResponse, error)

	ListActions(ctx context.Context) ([]model.ActionLog, error)
	CleanupActions(ctx context.Context) (int64, error)
}

var _ LibraryService = (*service.Service)(nil)
