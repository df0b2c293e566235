package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookhaven/lending-service/internal/model"
)

func (h *Handler) ListActions(c echo.Context) error {
	actions, err := h.svc.ListActions(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, actions)
}

func (h *Handler) CleanupActions(c echo.Context) error {
	deleted, err := h.svc.CleanupActions(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, model.CleanupResponse{
		Message:      fmt.Sprintf("%d orphaned audit entries removed", deleted),
		DeletedCount: deleted,
	})
}
