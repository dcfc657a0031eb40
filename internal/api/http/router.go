package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-chat/internal/api/http/handlers"
	"github.com/spec-kit/support-chat/internal/api/ws"
	"github.com/spec-kit/support-chat/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Gateway        *ws.Gateway
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	mock := app.Group("/api/mock")
	mock.Post("/login/:userType", cfg.Auth.Login)
	mock.Get("/users", cfg.Auth.ListUsers)
	mock.Post("/users", cfg.Auth.CreateUser)
	mock.Get("/users/:id", cfg.Auth.GetUser)

	chat := app.Group("/api/chat", cfg.AuthMiddleware.Handle)

	chat.Post("/tickets", cfg.Tickets.CreateTicket)
	chat.Get("/tickets", cfg.Tickets.ListTickets)
	// Static segments are registered before /tickets/:id.
	chat.Get("/tickets/active", cfg.Tickets.ListActiveTickets)
	chat.Get("/tickets/user/:userId", cfg.Tickets.ListTicketsByUser)
	chat.Get("/tickets/agent/:agent", cfg.Tickets.ListTicketsByAgent)
	chat.Get("/tickets/status/:status", cfg.Tickets.ListTicketsByStatus)
	chat.Get("/tickets/:id", cfg.Tickets.GetTicket)
	chat.Put("/tickets/:id", cfg.Tickets.UpdateTicket)
	chat.Post("/tickets/:id/assign", cfg.Tickets.AssignTicket)
	chat.Post("/tickets/:id/resolve", cfg.Tickets.ResolveTicket)
	chat.Post("/tickets/:id/close", cfg.Tickets.CloseTicket)
	chat.Post("/tickets/:id/reopen", cfg.Tickets.ReopenTicket)

	chat.Post("/messages", cfg.Messages.SendMessage)
	chat.Post("/messages/system", cfg.Messages.SendSystemMessage)
	chat.Get("/messages/ticket/:ticketId", cfg.Messages.GetHistory)
	chat.Get("/messages/sender/:senderId", cfg.Messages.ListBySender)
	chat.Get("/messages/:id", cfg.Messages.GetMessage)
	chat.Get("/tickets/:ticketId/messages/count", cfg.Messages.CountMessages)
	chat.Get("/tickets/:ticketId/messages/stats", cfg.Messages.GetStats)

	chat.Post("/tickets/:ticketId/typing", cfg.Messages.NotifyTyping)
	chat.Post("/tickets/:ticketId/join", cfg.Messages.NotifyJoined)
	chat.Post("/tickets/:ticketId/leave", cfg.Messages.NotifyLeft)

	app.Get("/ws", adaptor.HTTPHandlerFunc(cfg.Gateway.Handler()))
}
