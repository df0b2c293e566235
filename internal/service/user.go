package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/pkg/auth"
)

const sessionTTL = 24 * time.Hour

func (s *Service) CreateUser(ctx context.Context, author string, req model.UserCreateRequest) (model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	userType := req.Type
	if userType == "" {
		userType = model.UserTypeStudent
	}
	user, err := s.repo.CreateUser(ctx, model.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashed),
		Type:     userType,
	})
	if err != nil {
		return model.User{}, err
	}
	s.audit.Record(fmt.Sprintf("user %s (%s) added", user.Username, user.Type), author, model.ActionAdded)
	return user, nil
}

// Register is self-registration: the account type is always student,
// whatever the request claims.
func (s *Service) Register(ctx context.Context, req model.UserCreateRequest) (model.User, error) {
	req.Type = model.UserTypeStudent
	return s.CreateUser(ctx, req.Username, req)
}

func (s *Service) UpdateUser(ctx context.Context, author, userUid string, req model.UserUpdateRequest) (model.User, error) {
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return model.User{}, err
		}
		req.Password = string(hashed)
	}
	user, err := s.repo.UpdateUser(ctx, userUid, req)
	if err != nil {
		return model.User{}, err
	}
	s.audit.Record(fmt.Sprintf("user %s updated", user.Username), author, model.ActionUpdated)
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, author, userUid string) error {
	if err := s.repo.DeleteUser(ctx, userUid); err != nil {
		return err
	}
	s.audit.Record(fmt.Sprintf("user %s removed", userUid), author, model.ActionDeleted)
	return nil
}

func (s *Service) GetUser(ctx context.Context, userUid string) (model.User, error) {
	return s.repo.GetUser(ctx, userUid)
}

func (s *Service) ListUsers(ctx context.Context, page, limit int) (model.ListUsers, error) {
	return s.repo.ListUsers(ctx, page, limit)
}

// Authorize checks credentials and issues a session token.
func (s *Service) Authorize(ctx context.Context, req model.AuthRequest) (model.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		// do not leak whether the username exists
		return model.AuthResponse{}, errs.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return model.AuthResponse{}, errs.ErrInvalidCredentials
	}

	token, _, err := auth.NewToken(user.UserUid, user.Username, user.Type, user.Email, sessionTTL)
	if err != nil {
		return model.AuthResponse{}, err
	}
	return model.AuthResponse{
		ExpiresIn:   int(sessionTTL.Seconds()),
		AccessToken: token,
	}, nil
}
