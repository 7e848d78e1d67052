package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/app/admin"
)

type unbanUserHandler struct {
	logger  *logrus.Logger
	service *admin.Service
}

func NewUnbanUserHandler(logger *logrus.Logger, service *admin.Service) Handler {
	return &unbanUserHandler{logger: logger, service: service}
}

func (h *unbanUserHandler) Handle(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	h.service.Unban(userID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "banned": false})
}
