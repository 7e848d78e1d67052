package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/app/admin"
)

type addCreditsHandler struct {
	logger  *logrus.Logger
	service *admin.Service
}

type addCreditsRequest struct {
	Amount int `json:"amount"`
}

func NewAddCreditsHandler(logger *logrus.Logger, service *admin.Service) Handler {
	return &addCreditsHandler{logger: logger, service: service}
}

func (h *addCreditsHandler) Handle(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	var req addCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}

	h.service.AddCredits(userID, req.Amount)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "added": req.Amount})
}
