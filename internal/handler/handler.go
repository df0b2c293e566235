package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/pkg/auth"
	md "github.com/bookhaven/lending-service/pkg/middleware"
	"github.com/bookhaven/lending-service/pkg/validate"
	_ "github.com/bookhaven/lending-service/swagger"
)

type Handler struct {
	svc LibraryService
	log *zap.Logger
}

func New(svc LibraryService, log *zap.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
		authRPS = 5
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	authApi := api.Group("/auth", md.NewRateLimiter(authRPS))
	authApi.POST("/register", h.Register)
	authApi.POST("/login", h.Login)

	authed := api.Group("", md.JwtAuthentication)
	authed.GET("/lending", h.ListLendings)
	authed.GET("/lending/my-history", h.MyHistory)
	authed.GET("/books", h.GetBooks)
	authed.GET("/books/:id", h.GetBook)
	authed.GET("/users/:id", h.GetUser, selfOrAdmin)
	authed.POST("/users/update/:id", h.UpdateUser, selfOrAdmin)

	admin := authed.Group("", md.AdminOnly)
	admin.POST("/lending/add", h.CreateLending)
	admin.POST("/lending/return/:id", h.ReturnLending)
	admin.POST("/lending/extend/:id", h.ExtendLending)
	admin.POST("/lending/delete/:id", h.DeleteLending)
	admin.GET("/lending/search", h.SearchLendings)
	admin.GET("/lending/count", h.CountLendings)
	admin.GET("/lending/user/:userId", h.UserLendings)
	admin.GET("/lending/one/:id", h.GetLending)
	admin.GET("/lending/:page/:limit", h.ListLendingsPage)

	admin.POST("/books/add", h.CreateBook)
	admin.POST("/books/update/:id", h.UpdateBook)
	admin.POST("/books/remove/:id", h.DeleteBook)
	admin.GET("/books/count", h.CountBooks)

	admin.POST("/users/add", h.CreateUser)
	admin.POST("/users/remove/:id", h.DeleteUser)
	admin.GET("/users", h.ListUsers)

	admin.GET("/actions", h.ListActions)
	admin.DELETE("/actions/cleanup", h.CleanupActions)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// selfOrAdmin lets a user through to their own record and admins through
// to any record.
func selfOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := auth.FromContext(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "no session")
		}
		if !session.IsAdmin() && session.UserUid != c.Param("id") {
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		}
		return next(c)
	}
}

// toHTTPError maps service errors onto the response status taxonomy.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrBookUnavailable),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrNotActive),
		errors.Is(err, errs.ErrBookLent),
		errors.Is(err, errs.ErrUserHasLendings),
		errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrBadDateRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func uidParam(c echo.Context, name string) (string, error) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func sessionFrom(c echo.Context) (auth.Session, error) {
	session, err := auth.FromContext(c.Request().Context())
	if err != nil {
		return auth.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return session, nil
}

func (h *Handler) CreateLending(c echo.Context) error {
	var req model.CreateLendingRequest
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

	lending, err := h.svc.CreateLending(c.Request().Context(), session.Username, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, lending)
}

func (h *Handler) ReturnLending(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	lending, err := h.svc.ReturnLending(c.Request().Context(), session.Username, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, lending)
}

func (h *Handler) ExtendLending(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	var req model.ExtendLendingRequest
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

	lending, err := h.svc.ExtendLending(c.Request().Context(), session.Username, id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, lending)
}

func (h *Handler) DeleteLending(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteLending(c.Request().Context(), session.Username, id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "lending deleted"})
}

func (h *Handler) GetLending(c echo.Context) error {
	id, err := uidParam(c, "id")
	if err != nil {
		return err
	}
	lending, err := h.svc.GetLending(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, lending)
}

// ListLendings serves the default listing: everything for admins, own
// history for everyone else.
func (h *Handler) ListLendings(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	filter := model.LendingFilter{}
	if session.IsAdmin() {
		filter.Page, filter.Limit = 1, 20
	}
	list, err := h.svc.ListLendings(c.Request().Context(), session, filter)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) MyHistory(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	list, err := h.svc.UserLendings(c.Request().Context(), session.UserUid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list.Lendings)
}

func (h *Handler) UserLendings(c echo.Context) error {
	userUid, err := uidParam(c, "userId")
	if err != nil {
		return err
	}
	list, err := h.svc.UserLendings(c.Request().Context(), userUid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list.Lendings)
}

func (h *Handler) ListLendingsPage(c echo.Context) error {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "page is invalid")
	}
	limit, err := strconv.Atoi(c.Param("limit"))
	if err != nil || limit < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit is invalid")
	}
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}

	filter := model.LendingFilter{
		Status: model.Status(c.QueryParam("status")),
		Page:   page,
		Limit:  limit,
	}
	list, err := h.svc.ListLendings(c.Request().Context(), session, filter)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) SearchLendings(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	lendings, err := h.svc.SearchLendings(c.Request().Context(), query)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, model.ListLendings{
		Lendings: lendings,
		Total:    len(lendings),
		Page:     1,
		LastPage: 1,
	})
}

func (h *Handler) CountLendings(c echo.Context) error {
	total, err := h.svc.CountLendings(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total})
}
