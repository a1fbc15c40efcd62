package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"qserveu/config"
	"qserveu/internal/status"
	"qserveu/notify"
	"qserveu/services"
	"qserveu/utils"
)

type QueueHandler struct {
	queueService *services.QueueService
	pollers      *notify.Manager
	wifi         *utils.WifiDetector
	config       *config.Config
}

func NewQueueHandler(queueService *services.QueueService, pollers *notify.Manager, wifi *utils.WifiDetector, cfg *config.Config) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		pollers:      pollers,
		wifi:         wifi,
		config:       cfg,
	}
}

func (h *QueueHandler) RequestTicket(c echo.Context) error {
	var req struct {
		OfficeID string `json:"office_id"`
		Purpose  string `json:"purpose"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("Invalid request"))
	}
	if req.OfficeID == "" {
		return c.JSON(http.StatusBadRequest, errBody("office_id is required"))
	}

	ctx := c.Request().Context()

	// Admission gate: the visitor must be on the office network before a
	// ticket request is considered.
	if h.config.EnforceWifiGate {
		office, err := h.queueService.Office(ctx, req.OfficeID)
		if err != nil {
			return writeError(c, err)
		}
		if office.WifiSSID != "" {
			if st := h.wifi.Status(office.WifiSSID); !st.Connected {
				return writeError(c, status.ErrWrongNetwork)
			}
		}
	}

	ticket, err := h.queueService.RequestTicket(ctx, studentID(c), req.OfficeID, req.Purpose)
	if err != nil {
		return writeError(c, err)
	}

	// A fresh ticket means a session worth watching.
	h.pollers.Start(studentID(c))

	return c.JSON(http.StatusCreated, map[string]any{
		"message": "Queue requested",
		"ticket":  ticket,
	})
}

func (h *QueueHandler) CurrentTicket(c echo.Context) error {
	ticket, err := h.queueService.CurrentTicket(c.Request().Context(), studentID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ticket": ticket})
}

func (h *QueueHandler) CancelTicket(c echo.Context) error {
	ticketID := c.Param("id")
	if ticketID == "" {
		return c.JSON(http.StatusBadRequest, errBody("ticket id is required"))
	}

	if err := h.queueService.CancelTicket(c.Request().Context(), ticketID, studentID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Queue cancelled successfully"})
}
