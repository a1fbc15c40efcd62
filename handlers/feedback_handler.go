package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"qserveu/models"
	"qserveu/services"
)

type FeedbackHandler struct {
	queueService *services.QueueService
}

func NewFeedbackHandler(queueService *services.QueueService) *FeedbackHandler {
	return &FeedbackHandler{queueService: queueService}
}

// Pending returns the single completed-but-unrated ticket driving the rating
// prompt, or null when there is nothing to rate.
func (h *FeedbackHandler) Pending(c echo.Context) error {
	ticket, err := h.queueService.PendingFeedback(c.Request().Context(), studentID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ticket": ticket})
}

func (h *FeedbackHandler) Submit(c echo.Context) error {
	var req struct {
		OfficeID string `json:"office_id"`
		TicketID string `json:"ticket_id"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("Invalid request"))
	}
	if req.OfficeID == "" || req.TicketID == "" {
		return c.JSON(http.StatusBadRequest, errBody("office_id and ticket_id are required"))
	}
	// The service performs no range check; the rating is validated here.
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, errBody("rating must be between 1 and 5"))
	}

	feedback := &models.Feedback{
		OfficeID:  req.OfficeID,
		StudentID: studentID(c),
		TicketID:  req.TicketID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.queueService.SubmitFeedback(c.Request().Context(), feedback); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "Feedback submitted"})
}
