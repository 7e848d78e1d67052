package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/app/admin"
)

type getStatsHandler struct {
	logger  *logrus.Logger
	service *admin.Service
}

func NewGetStatsHandler(logger *logrus.Logger, service *admin.Service) Handler {
	return &getStatsHandler{logger: logger, service: service}
}

func (h *getStatsHandler) Handle(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to collect stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to collect stats"})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
