package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/handler"
	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/pkg/auth"
	"github.com/bookhaven/lending-service/pkg/validate"

	service_mocks "github.com/bookhaven/lending-service/internal/handler/mocks"
)

var adminSession = auth.Session{
	UserUid:  "83575e12-7ce0-48ee-9931-51919ff3c9ee",
	Username: "admin",
	Role:     auth.RoleAdmin,
}

// withSession injects the caller identity the way the auth middleware does.
func withSession(s auth.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(auth.SetAuthContext(req.Context(), s)))
			return next(c)
		}
	}
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	ts, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return model.Date{Time: ts}
}

func TestHandler_CreateLending(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, req model.CreateLendingRequest)

	okReq := model.CreateLendingRequest{
		BookUid:   "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
		UserUid:   "1f90c3c7-6c9b-4f52-8f67-1a65c12900d3",
		StartDate: mustDate(t, "2026-09-01"),
		EndDate:   mustDate(t, "2026-09-15"),
	}

	var tests = []struct {
		name         string
		body         string
		input        model.CreateLendingRequest
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.CreateLendingRequest) {
				r.EXPECT().
					CreateLending(gomock.Any(), adminSession.Username, req).
					Return(model.Lending{
						LendingUid: "9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111",
						StartDate:  req.StartDate.Time,
						EndDate:    req.EndDate.Time,
						Status:     model.StatusActive,
					}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"lendingUid":"9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111","startDate":"2026-09-01T00:00:00Z","endDate":"2026-09-15T00:00:00Z","status":"active"}`,
		},
		{
			name:  "err. book unavailable",
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.CreateLendingRequest) {
				r.EXPECT().
					CreateLending(gomock.Any(), adminSession.Username, req).
					Return(model.Lending{}, errs.ErrBookUnavailable)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"book is not available"}`,
		},
		{
			name:  "err. user not found",
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.CreateLendingRequest) {
				r.EXPECT().
					CreateLending(gomock.Any(), adminSession.Username, req).
					Return(model.Lending{}, errors.Wrap(errs.ErrNotFound, "user"))
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"user: not found"}`,
		},
		{
			name:  "err. end before start",
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.CreateLendingRequest) {
				r.EXPECT().
					CreateLending(gomock.Any(), adminSession.Username, req).
					Return(model.Lending{}, errs.ErrBadDateRange)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"end date must be after start date and in the future"}`,
		},
		{
			name:         "err. missing book uid",
			body:         `{"user":"1f90c3c7-6c9b-4f52-8f67-1a65c12900d3","startDate":"2026-09-01","endDate":"2026-09-15"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.CreateLendingRequest) {},
			expectedCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/lending/add", h.CreateLending, withSession(adminSession))

			body := tt.body
			if body == "" {
				raw, err := json.Marshal(tt.input)
				require.NoError(t, err)
				body = string(raw)
			}
			r := httptest.NewRequest(http.MethodPost, "/lending/add", bytes.NewBufferString(body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_ReturnLending(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, id string)

	const lendingUid = "9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111"

	var tests = []struct {
		name         string
		id           string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			id:   lendingUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					ReturnLending(gomock.Any(), adminSession.Username, id).
					Return(model.Lending{
						LendingUid: id,
						StartDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
						EndDate:    time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
						Status:     model.StatusReturned,
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"lendingUid":"9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111","startDate":"2026-09-01T00:00:00Z","endDate":"2026-09-15T00:00:00Z","status":"returned"}`,
		},
		{
			name: "err. already returned",
			id:   lendingUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					ReturnLending(gomock.Any(), adminSession.Username, id).
					Return(model.Lending{}, errs.ErrAlreadyReturned)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"lending is already returned"}`,
		},
		{
			name: "err. not found",
			id:   lendingUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					ReturnLending(gomock.Any(), adminSession.Username, id).
					Return(model.Lending{}, errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"not found"}`,
		},
		{
			name:         "err. invalid id",
			id:           "not-a-uuid",
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid id"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/lending/return/:id", h.ReturnLending, withSession(adminSession))

			r := httptest.NewRequest(http.MethodPost, "/lending/return/"+tt.id, http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.id)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ExtendLending(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, id string, req model.ExtendLendingRequest)

	const lendingUid = "9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111"
	okReq := model.ExtendLendingRequest{NewEndDate: mustDate(t, "2026-10-01")}

	var tests = []struct {
		name         string
		id           string
		input        model.ExtendLendingRequest
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:  "ok",
			id:    lendingUid,
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string, req model.ExtendLendingRequest) {
				r.EXPECT().
					ExtendLending(gomock.Any(), adminSession.Username, id, req).
					Return(model.Lending{
						LendingUid: id,
						StartDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
						EndDate:    req.NewEndDate.Time,
						Status:     model.StatusActive,
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"lendingUid":"9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111","startDate":"2026-09-01T00:00:00Z","endDate":"2026-10-01T00:00:00Z","status":"active"}`,
		},
		{
			name:  "err. not active",
			id:    lendingUid,
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string, req model.ExtendLendingRequest) {
				r.EXPECT().
					ExtendLending(gomock.Any(), adminSession.Username, id, req).
					Return(model.Lending{}, errs.ErrNotActive)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"lending is not active"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/lending/extend/:id", h.ExtendLending, withSession(adminSession))

			raw, err := json.Marshal(tt.input)
			require.NoError(t, err)
			r := httptest.NewRequest(http.MethodPost, "/lending/extend/"+tt.id, bytes.NewBuffer(raw))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.id, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_DeleteLending(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, id string)

	const lendingUid = "9d3f6c1a-9a38-4c2a-b8f8-0f37c1f3a111"

	var tests = []struct {
		name         string
		id           string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			id:   lendingUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					DeleteLending(gomock.Any(), adminSession.Username, id).
					Return(nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"message":"lending deleted"}`,
		},
		{
			name: "err. not found",
			id:   lendingUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					DeleteLending(gomock.Any(), adminSession.Username, id).
					Return(errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"not found"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/lending/delete/:id", h.DeleteLending, withSession(adminSession))

			r := httptest.NewRequest(http.MethodPost, "/lending/delete/"+tt.id, http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.id)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_SearchLendings(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, query string)

	var tests = []struct {
		name         string
		query        string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:  "ok",
			query: "tolkien",
			mockBehavior: func(r *service_mocks.MockLibraryService, query string) {
				r.EXPECT().
					SearchLendings(gomock.Any(), query).
					Return([]model.LendingView{}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"lendings":[],"total":0,"page":1,"lastPage":1,"hasNext":false,"hasPrev":false}`,
		},
		{
			name:         "err. q required",
			query:        "",
			mockBehavior: func(r *service_mocks.MockLibraryService, query string) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"q is required"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.GET("/lending/search", h.SearchLendings, withSession(adminSession))

			r := httptest.NewRequest(http.MethodGet, "/lending/search?q="+tt.query, http.NoBody)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.query)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, id string)

	const bookUid = "f7cdc58f-2caf-4b15-9727-f89dcc629b27"

	var tests = []struct {
		name         string
		id           string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			id:   bookUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					GetBook(gomock.Any(), id).
					Return(model.Book{
						BookUid:   id,
						Title:     "1984",
						Author:    "George Orwell",
						Editor:    "Companhia das Letras",
						Isbn:      "978-0451524935",
						Available: true,
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"bookUid":"f7cdc58f-2caf-4b15-9727-f89dcc629b27","title":"1984","author":"George Orwell","editor":"Companhia das Letras","isbn":"978-0451524935","available":true}`,
		},
		{
			name: "err. not found",
			id:   bookUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {
				r.EXPECT().
					GetBook(gomock.Any(), id).
					Return(model.Book{}, errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"not found"}`,
		},
		{
			name:         "err. invalid id",
			id:           "not-a-uuid",
			mockBehavior: func(r *service_mocks.MockLibraryService, id string) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid id"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.GET("/books/:id", h.GetBook, withSession(adminSession))

			r := httptest.NewRequest(http.MethodGet, "/books/"+tt.id, http.NoBody)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.id)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService, req model.AuthRequest)

	okReq := model.AuthRequest{Username: "admin", Password: "s3cret"}

	var tests = []struct {
		name         string
		input        model.AuthRequest
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:  "ok",
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.AuthRequest) {
				r.EXPECT().
					Authorize(gomock.Any(), req).
					Return(model.AuthResponse{ExpiresIn: 1790000000, AccessToken: "token"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"expiresIn":1790000000,"accessToken":"token"}`,
		},
		{
			name:  "err. invalid credentials",
			input: okReq,
			mockBehavior: func(r *service_mocks.MockLibraryService, req model.AuthRequest) {
				r.EXPECT().
					Authorize(gomock.Any(), req).
					Return(model.AuthResponse{}, errs.ErrInvalidCredentials)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"message":"invalid credentials"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/auth/login", h.Login)

			raw, err := json.Marshal(tt.input)
			require.NoError(t, err)
			r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(raw))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

// TestRouter_AuthGuards drives the full router to check the token and role
// middleware chain end to end.
func TestRouter_AuthGuards(t *testing.T) {
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLibraryService(c)
	h := handler.New(svc, zap.NewExample().Named("test"))
	e := h.NewRouter()

	adminToken, _, err := auth.NewToken(adminSession.UserUid, adminSession.Username, auth.RoleAdmin, "admin@biblioteca.local", time.Hour)
	require.NoError(t, err)
	studentToken, _, err := auth.NewToken("1f90c3c7-6c9b-4f52-8f67-1a65c12900d3", "aluno", auth.RoleStudent, "aluno@biblioteca.local", time.Hour)
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/lending", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("student on admin route", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/lending/count", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+studentToken)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin allowed", func(t *testing.T) {
		svc.EXPECT().CountLendings(gomock.Any()).Return(42, nil)
		r := httptest.NewRequest(http.MethodGet, "/api/v1/lending/count", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+adminToken)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"total":42}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("health", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/manage/health", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})
}
