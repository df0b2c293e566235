package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/internal/repository"
	"github.com/bookhaven/lending-service/pkg/auth"
	"github.com/bookhaven/lending-service/pkg/kafka"
)

// Service orchestrates the lending lifecycle: it is the only writer of
// the book availability flag and the emitter of audit entries.
type Service struct {
	log   *zap.Logger
	repo  repository.Repository
	audit Recorder
}

func NewService(repo repository.Repository, audit Recorder, log *zap.Logger) *Service {
	return &Service{
		log:   log,
		repo:  repo,
		audit: audit,
	}
}

func (s *Service) CreateLending(ctx context.Context, author string, req model.CreateLendingRequest) (model.Lending, error) {
	if err := validateDateRange(req.StartDate.Time, req.EndDate.Time); err != nil {
		return model.Lending{}, err
	}
	lending, err := s.repo.CreateLending(ctx, req)
	if err != nil {
		return model.Lending{}, err
	}
	s.audit.Record(
		fmt.Sprintf("lending %s created: book %s lent to user %s until %s",
			lending.LendingUid, req.BookUid, req.UserUid, lending.EndDate.Format(time.DateOnly)),
		author, model.ActionAdded)
	return lending, nil
}

func (s *Service) ReturnLending(ctx context.Context, author, lendingUid string) (model.Lending, error) {
	lending, err := s.repo.ReturnLending(ctx, lendingUid)
	if err != nil {
		return model.Lending{}, err
	}
	s.audit.Record(fmt.Sprintf("lending %s returned", lending.LendingUid), author, model.ActionRemoved)
	return lending, nil
}

func (s *Service) ExtendLending(ctx context.Context, author, lendingUid string, req model.ExtendLendingRequest) (model.Lending, error) {
	current, err := s.repo.GetLending(ctx, lendingUid)
	if err != nil {
		return model.Lending{}, err
	}
	if current.Status != model.StatusActive {
		return model.Lending{}, errs.ErrNotActive
	}
	if err := validateDateRange(current.StartDate, req.NewEndDate.Time); err != nil {
		return model.Lending{}, err
	}
	lending, err := s.repo.ExtendLending(ctx, lendingUid, req.NewEndDate)
	if err != nil {
		return model.Lending{}, err
	}
	s.audit.Record(
		fmt.Sprintf("lending %s extended until %s", lending.LendingUid, lending.EndDate.Format(time.DateOnly)),
		author, model.ActionUpdated)
	return lending, nil
}

func (s *Service) DeleteLending(ctx context.Context, author, lendingUid string) error {
	lending, err := s.repo.DeleteLending(ctx, lendingUid)
	if err != nil {
		return err
	}
	s.audit.Record(fmt.Sprintf("lending %s deleted", lending.LendingUid), author, model.ActionDeleted)
	return nil
}

func (s *Service) GetLending(ctx context.Context, lendingUid string) (model.LendingView, error) {
	return s.repo.GetLending(ctx, lendingUid)
}

// ListLendings scopes the listing to the caller: admins see everything,
// everyone else only their own records.
func (s *Service) ListLendings(ctx context.Context, session auth.Session, filter model.LendingFilter) (model.ListLendings, error) {
	if !session.IsAdmin() {
		filter.UserUid = session.UserUid
	}
	return s.repo.ListLendings(ctx, filter)
}

func (s *Service) UserLendings(ctx context.Context, userUid string) (model.ListLendings, error) {
	return s.repo.ListLendings(ctx, model.LendingFilter{UserUid: userUid})
}

func (s *Service) SearchLendings(ctx context.Context, query string) ([]model.LendingView, error) {
	return s.repo.SearchLendings(ctx, query)
}

func (s *Service) CountLendings(ctx context.Context) (int, error) {
	return s.repo.CountLendings(ctx)
}

// validateDateRange enforces the lending date contract: the end must be
// strictly after both the start and today.
func validateDateRange(start, end time.Time) error {
	if !end.After(start) {
		return errs.ErrBadDateRange
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !end.After(today) {
		return errs.ErrBadDateRange
	}
	return nil
}

// SaveAction persists one audit event; called from the Kafka consumer.
func (s *Service) SaveAction(ctx context.Context, event kafka.EventAudit) error {
	entry := model.ActionLog{
		Description: event.Description,
		Author:      event.Author,
		Action:      model.ActionKind(event.Action),
	}
	if !event.Date.IsZero() {
		date := event.Date
		entry.Date = &date
	}
	return s.repo.CreateAction(ctx, entry)
}

func (s *Service) ListActions(ctx context.Context) ([]model.ActionLog, error) {
	return s.repo.ListActions(ctx)
}

func (s *Service) CleanupActions(ctx context.Context) (int64, error) {
	return s.repo.CleanupActions(ctx)
}
