package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/config"
	handlers "github.com/numgate/numgate/pkg/handlers/http"
)

type (
	AdminServerDI struct {
		Config           *config.Config
		Logger           *logrus.Logger
		HandlerTransport handlers.HandlerTransport
	}
	// AdminServer is the operational HTTP surface: health, metrics and the
	// same administrative operations the chat commands expose, for tooling.
	AdminServer struct {
		config           *config.Config
		logger           *logrus.Logger
		router           *fiber.App
		handlerTransport handlers.HandlerTransport
	}
)

func NewAdminServer(di AdminServerDI) *AdminServer {
	return &AdminServer{
		config: di.Config,
		logger: di.Logger,
		router: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		handlerTransport: di.HandlerTransport,
	}
}

func (s *AdminServer) Run() error {
	s.setupRoutes()
	addr := fmt.Sprintf(":%d", s.config.Server.AdminPort)
	s.logger.WithField("addr", addr).Info("starting admin server")
	return s.router.Listen(addr)
}

func (s *AdminServer) Shutdown() error {
	return s.router.Shutdown()
}

func (s *AdminServer) setupRoutes() {
	s.router.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	s.router.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.router.Group("/api/v1", s.requireAdminKey)
	{
		v1.Get("/stats", s.handlerTransport.GetStatsHandler.Handle)

		users := v1.Group("/users/:user_id")
		{
			users.Post("/grant", s.handlerTransport.GrantUnlimitedHandler.Handle)
			users.Delete("/grant", s.handlerTransport.RevokeUnlimitedHandler.Handle)
			users.Post("/credits", s.handlerTransport.AddCreditsHandler.Handle)
			users.Post("/ban", s.handlerTransport.BanUserHandler.Handle)
			users.Delete("/ban", s.handlerTransport.UnbanUserHandler.Handle)
			users.Get("/history", s.handlerTransport.GetHistoryHandler.Handle)
		}
	}
}

// requireAdminKey guards every administrative route with the static key from
// config. Requests without it are rejected before touching any state.
func (s *AdminServer) requireAdminKey(c *fiber.Ctx) error {
	if s.config.Server.AdminKey == "" || c.Get("X-Admin-Key") != s.config.Server.AdminKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	return c.Next()
}
