package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"qserveu/services"
)

type OfficeHandler struct {
	queueService *services.QueueService
}

func NewOfficeHandler(queueService *services.QueueService) *OfficeHandler {
	return &OfficeHandler{queueService: queueService}
}

func (h *OfficeHandler) List(c echo.Context) error {
	offices, err := h.queueService.ListOffices(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"offices": offices})
}

func (h *OfficeHandler) Rating(c echo.Context) error {
	summary, err := h.queueService.OfficeRating(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
