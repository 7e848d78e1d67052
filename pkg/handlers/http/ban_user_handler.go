package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/app/admin"
)

type banUserHandler struct {
	logger  *logrus.Logger
	service *admin.Service
}

type banUserRequest struct {
	Reason string `json:"reason"`
}

func NewBanUserHandler(logger *logrus.Logger, service *admin.Service) Handler {
	return &banUserHandler{logger: logger, service: service}
}

func (h *banUserHandler) Handle(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	var req banUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	h.service.Ban(userID, req.Reason)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "banned": true})
}
