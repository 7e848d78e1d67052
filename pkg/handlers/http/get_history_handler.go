package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/domain/history"
)

type getHistoryHandler struct {
	logger  *logrus.Logger
	history history.Repository
	limit   int
}

func NewGetHistoryHandler(logger *logrus.Logger, historyRepo history.Repository, limit int) Handler {
	return &getHistoryHandler{logger: logger, history: historyRepo, limit: limit}
}

func (h *getHistoryHandler) Handle(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	entries, err := h.history.Recent(c.Context(), userID, h.limit)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("failed to read history")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read history"})
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"number":     e.Number,
			"created_at": e.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "entries": out})
}
