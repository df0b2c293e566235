package validate_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/pkg/validate"
)

func TestCustomValidator(t *testing.T) {
	v := validate.NewCustomValidator()

	err := v.Validate(model.AuthRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	err = v.Validate(model.AuthRequest{Username: "admin"})
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	err = v.Validate(model.UserCreateRequest{
		Username: "aluno",
		FullName: "Aluno Teste",
		Email:    "not-an-email",
		Password: "s3cret",
	})
	require.Error(t, err)
}
