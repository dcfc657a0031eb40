package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat/internal/api/dto"
	"github.com/spec-kit/support-chat/internal/auth"
	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/service"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

// AuthHandler serves the mock login flow and user directory endpoints.
type AuthHandler struct {
	authenticator *auth.Authenticator
	users         *service.UserService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authenticator *auth.Authenticator, users *service.UserService) *AuthHandler {
	return &AuthHandler{authenticator: authenticator, users: users}
}

// Login POST /api/mock/login/:userType.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	session, err := h.authenticator.Login(c.UserContext(), c.Params("userType"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:       session.Token,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
		UserID:      session.User.ID,
		Email:       session.User.Email,
		Role:        session.User.Role,
	}})
}

// ListUsers GET /api/mock/users.
func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	var (
		users []domain.User
		err   error
	)
	switch c.Query("role") {
	case "":
		users, err = h.users.ListUsers(c.UserContext())
	case string(domain.RoleAgent):
		users, err = h.users.ListAgents(c.UserContext())
	case string(domain.RoleClient):
		users, err = h.users.ListClients(c.UserContext())
	default:
		return apperrors.NewValidationError("role must be CLIENT or AGENT", nil)
	}
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateUser POST /api/mock/users.
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.CreateUser(c.UserContext(), &domain.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// GetUser GET /api/mock/users/:id.
func (h *AuthHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
