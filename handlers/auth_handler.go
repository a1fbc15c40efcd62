package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"qserveu/notify"
	"qserveu/services"
)

type AuthHandler struct {
	authService *services.AuthService
	pollers     *notify.Manager
}

func NewAuthHandler(authService *services.AuthService, pollers *notify.Manager) *AuthHandler {
	return &AuthHandler{authService: authService, pollers: pollers}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req services.RegisterInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("Invalid request"))
	}
	if req.StudentID == "" || req.FullName == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errBody("student_id, full_name, email and password are required"))
	}

	student, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"student": student,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("Invalid request"))
	}
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errBody("identifier and password are required"))
	}

	student, token, err := h.authService.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	// Resume watching in case the visitor logged back in mid-queue. The
	// notifier starts from a clean baseline, so a state change that happened
	// while logged out may alert once more.
	h.pollers.Start(student.ID)

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"student": student,
	})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req struct {
		FullName  string `json:"full_name"`
		YearLevel string `json:"year_level"`
		Password  string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("Invalid request"))
	}
	if req.FullName == "" {
		return c.JSON(http.StatusBadRequest, errBody("full_name is required"))
	}

	err := h.authService.UpdateProfile(c.Request().Context(), studentID(c), req.FullName, req.YearLevel, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Update successful"})
}
