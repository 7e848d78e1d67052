package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(c *fiber.Ctx) error
}

// HandlerTransport groups the admin API handlers for route wiring.
type HandlerTransport struct {
	GetStatsHandler        Handler
	GrantUnlimitedHandler  Handler
	RevokeUnlimitedHandler Handler
	AddCreditsHandler      Handler
	BanUserHandler         Handler
	UnbanUserHandler       Handler
	GetHistoryHandler      Handler
}
