package auth

import (
	"context"
	"time"

	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/repository"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

// Fixed demo tokens for local development and demos. They map to the
// seeded demo accounts and bypass JWT validation entirely.
const (
	MockClientToken = "mock-client-token"
	MockAgentToken  = "mock-agent-token"

	DemoClientEmail = "client.demo@example.com"
	DemoAgentEmail  = "agent.demo@example.com"
)

// Session is the result of a login: the fixed demo token, a real JWT for
// clients that prefer one, and the resolved identity.
type Session struct {
	Token       string
	AccessToken string
	ExpiresAt   time.Time
	User        *domain.User
}

// Authenticator implements the mock login flow and token resolution.
type Authenticator struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthenticator constructs the authenticator.
func NewAuthenticator(tokens *TokenManager, users repository.UserRepository) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Login resolves a demo session for "client" or "agent".
func (a *Authenticator) Login(ctx context.Context, userType string) (*Session, error) {
	var demoToken, email string
	switch userType {
	case "client":
		demoToken, email = MockClientToken, DemoClientEmail
	case "agent":
		demoToken, email = MockAgentToken, DemoAgentEmail
	default:
		return nil, apperrors.NewValidationError("user type must be client or agent", map[string]any{"user_type": userType})
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewUnauthorized("demo account is not provisioned")
	}

	accessToken, expiresAt, err := a.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{
		Token:       demoToken,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// ResolveToken maps a bearer token to a user. Demo tokens are checked
// first, everything else is treated as a JWT.
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	switch token {
	case MockClientToken:
		return a.resolveByEmail(ctx, DemoClientEmail)
	case MockAgentToken:
		return a.resolveByEmail(ctx, DemoAgentEmail)
	}

	claims, err := a.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	user, err := a.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("user not found")
	}
	return user, nil
}

func (a *Authenticator) resolveByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewUnauthorized("demo account is not provisioned")
	}
	return user, nil
}
