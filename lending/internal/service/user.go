package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/lending/internal/repository"
	"github.com/Astemirdum/library-lending/pkg/auth"
)

const tokenType = "bearer"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return model.User{}, errors.Wrap(err, "hash password")
	}
	return s.repo.CreateUser(ctx, model.User{
		Email:        normalizeEmail(req.Email),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	})
}

// Login answers unknown emails and wrong passwords with the same error.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			auth.BurnPassword(req.Password)
			return model.TokenResponse{}, errs.ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}
	if err = auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return model.TokenResponse{}, errs.ErrInvalidCredentials
	}
	if !user.IsActive {
		return model.TokenResponse{}, errs.ErrInactiveUser
	}
	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return model.TokenResponse{}, errors.Wrap(err, "issue token")
	}
	return model.TokenResponse{AccessToken: token, TokenType: tokenType}, nil
}

// Identify resolves a bearer token to the caller. Role and activity are read
// from the store, so a demotion applies to tokens issued before it.
func (s *Service) Identify(ctx context.Context, token string) (model.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return model.Principal{}, errs.ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return model.Principal{}, errs.ErrUnauthenticated
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return model.Principal{}, errs.ErrUnauthenticated
		}
		return model.Principal{}, err
	}
	if !user.IsActive {
		return model.Principal{}, errs.ErrInactiveUser
	}
	return model.Principal{UserID: user.ID, Role: user.Role, IsActive: user.IsActive}, nil
}

// EmailExists reports whether an account is registered under email.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrUserNotFound):
		return false, nil
	}
	return false, err
}

func (s *Service) GetUser(ctx context.Context, id int) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateUser refuses to demote or deactivate the last active admin.
func (s *Service) UpdateUser(ctx context.Context, userID int, req model.UpdateUserRequest) (model.User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return model.User{}, errs.ErrInvalidRole
	}
	mayDropAdmin := (req.Role != nil && *req.Role != model.RoleAdmin) || (req.IsActive != nil && !*req.IsActive)

	var user model.User
	err := s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		var admins []int
		if mayDropAdmin {
			// admin rows are locked before the target so concurrent
			// demotions queue up in id order
			var err error
			if admins, err = uow.LockActiveAdmins(ctx); err != nil {
				return err
			}
		}
		current, err := uow.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		next := current
		if req.FullName != nil {
			next.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Role != nil {
			next.Role = *req.Role
		}
		if req.IsActive != nil {
			next.IsActive = *req.IsActive
		}
		if current.IsActiveAdmin() && !next.IsActiveAdmin() && !otherAdminExists(admins, current.ID) {
			return errs.ErrLastAdmin
		}
		user, err = uow.UpdateUser(ctx, next)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, userID int) error {
	return s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		admins, err := uow.LockActiveAdmins(ctx)
		if err != nil {
			return err
		}
		current, err := uow.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if current.IsActiveAdmin() && !otherAdminExists(admins, current.ID) {
			return errs.ErrLastAdmin
		}
		return uow.DeleteUser(ctx, userID)
	})
}

func otherAdminExists(admins []int, userID int) bool {
	for _, id := range admins {
		if id != userID {
			return true
		}
	}
	return false
}

// EnsureAdmin creates or promotes the seed account when no active admin exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, fullName string) error {
	if email == "" || password == "" {
		return nil
	}
	return s.repo.Transact(ctx, func(uow repository.UnitOfWork) error {
		admins, err := uow.LockActiveAdmins(ctx)
		if err != nil || len(admins) > 0 {
			return err
		}
		existing, err := uow.GetUserByEmail(ctx, normalizeEmail(email))
		switch {
		case err == nil:
			existing.Role, existing.IsActive = model.RoleAdmin, true
			if _, err = uow.UpdateUser(ctx, existing); err != nil {
				return err
			}
			s.log.Info("admin promoted", zap.Int("user_id", existing.ID))
			return nil
		case !errors.Is(err, errs.ErrUserNotFound):
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return errors.Wrap(err, "hash password")
		}
		created, err := uow.CreateUser(ctx, model.User{
			Email:        normalizeEmail(email),
			FullName:     fullName,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		s.log.Info("admin created", zap.Int("user_id", created.ID))
		return nil
	})
}
