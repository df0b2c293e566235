package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bookhaven/lending-service/internal/model"
)

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	book, err := h.svc.CreateBook(c.Request().Context(), session.Username, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	book, err := h.svc.UpdateBook(c.Request().Context(), session.Username, id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteBook(c.Request().Context(), session.Username, id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "book removed"})
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	book, err := h.svc.GetBook(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// GetBooks lists books with optional availability, free-text and paging
// query parameters.
func (h *Handler) GetBooks(c echo.Context) error {
	var filter model.BookFilter
	if availabilityParam := c.QueryParam("availability"); availabilityParam != "" {
		availability, err := strconv.ParseBool(availabilityParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "availability is invalid")
		}
		filter.Availability = &availability
	}
	filter.Query = c.QueryParam("q")

	var err error
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if filter.Page, err = strconv.Atoi(pageParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "page is invalid")
		}
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if filter.Limit, err = strconv.Atoi(limitParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit is invalid")
		}
	}

	books, err := h.svc.ListBooks(c.Request().Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) CountBooks(c echo.Context) error {
	count, err := h.svc.CountBooks(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, count)
}
