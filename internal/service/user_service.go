package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/repository"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

const (
	maxEmailLength = 255
	maxNameLength  = 100
)

// UserService manages chat participants and serves as the identity
// resolver for the message dispatch path.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// CreateUser validates and persists a new user.
func (s *UserService) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return nil, apperrors.NewValidationError("a user with this email already exists", map[string]any{"email": user.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// GetUserByID fetches a user.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Resolve implements the identity-resolver contract used by ChatService.
func (s *UserService) Resolve(ctx context.Context, userID string) (*domain.User, error) {
	return s.GetUserByID(ctx, userID)
}

// GetUserByEmail fetches a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser applies profile changes, keeping emails unique.
func (s *UserService) UpdateUser(ctx context.Context, id string, details *domain.User) (*domain.User, error) {
	existing, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if details.Email != existing.Email {
		if _, err := s.users.GetByEmail(ctx, details.Email); err == nil {
			return nil, apperrors.NewValidationError("a user with this email already exists", map[string]any{"email": details.Email})
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	existing.Email = details.Email
	existing.FirstName = details.FirstName
	existing.LastName = details.LastName
	if details.Role != "" {
		existing.Role = details.Role
	}
	if err := validateUser(existing); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, existing); err != nil {
		return nil, apperrors.MapError(err)
	}
	return existing, nil
}

// AssignAgentRole promotes a user to AGENT.
func (s *UserService) AssignAgentRole(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = domain.RoleAgent
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("agent role assigned", zap.String("user_id", user.ID))
	return user, nil
}

// ListUsers returns every user.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListAgents returns all users with the AGENT role.
func (s *UserService) ListAgents(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListClients returns all users with the CLIENT role.
func (s *UserService) ListClients(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListByRole(ctx, domain.RoleClient)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

func validateUser(user *domain.User) error {
	if user == nil {
		return apperrors.NewValidationError("user is required", nil)
	}
	email := strings.TrimSpace(user.Email)
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return apperrors.NewValidationError("a valid email is required", nil)
	}
	if utf8.RuneCountInString(email) > maxEmailLength {
		return apperrors.NewValidationError("email cannot exceed 255 characters", nil)
	}
	if strings.TrimSpace(user.FirstName) == "" || utf8.RuneCountInString(user.FirstName) > maxNameLength {
		return apperrors.NewValidationError("first name is required and cannot exceed 100 characters", nil)
	}
	if strings.TrimSpace(user.LastName) == "" || utf8.RuneCountInString(user.LastName) > maxNameLength {
		return apperrors.NewValidationError("last name is required and cannot exceed 100 characters", nil)
	}
	if user.Role != domain.RoleClient && user.Role != domain.RoleAgent {
		return apperrors.NewValidationError("role must be CLIENT or AGENT", nil)
	}
	return nil
}
