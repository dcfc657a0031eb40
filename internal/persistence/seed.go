package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/repository"
)

// SeedDemoData provisions the demo accounts the mock login flow maps its
// fixed tokens to. Idempotent: existing accounts are left untouched.
func SeedDemoData(ctx context.Context, users repository.UserRepository, logger *zap.Logger) error {
	demo := []domain.User{
		{
			Email:     "client.demo@example.com",
			FirstName: "Dana",
			LastName:  "Client",
			Role:      domain.RoleClient,
		},
		{
			Email:     "agent.demo@example.com",
			FirstName: "Alex",
			LastName:  "Agent",
			Role:      domain.RoleAgent,
		},
	}

	for i := range demo {
		user := demo[i]
		if _, err := users.GetByEmail(ctx, user.Email); err == nil {
			continue
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err := users.Create(ctx, &user); err != nil {
			return err
		}
		logger.Info("demo user seeded",
			zap.String("email", user.Email),
			zap.String("role", string(user.Role)))
	}
	return nil
}
