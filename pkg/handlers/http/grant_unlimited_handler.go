package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/app/admin"
)

type grantUnlimitedHandler struct {
	logger  *logrus.Logger
	service *admin.Service
}

type grantUnlimitedRequest struct {
	// Duration is a Go duration string, or "forever".
	Duration string `json:"duration"`
}

func NewGrantUnlimitedHandler(logger *logrus.Logger, service *admin.Service) Handler {
	return &grantUnlimitedHandler{logger: logger, service: service}
}

func (h *grantUnlimitedHandler) Handle(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	var req grantUnlimitedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var d time.Duration
	if req.Duration != "" && req.Duration != "forever" {
		d, err = time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid duration"})
		}
	}

	h.service.GrantUnlimited(userID, d)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "unlimited": true})
}
