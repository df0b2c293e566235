package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookhaven/lending-service/internal/model"
)

func TestDate_JSON(t *testing.T) {
	var req model.CreateLendingRequest
	err := json.Unmarshal([]byte(`{"book":"b","user":"u","startDate":"2026-09-01","endDate":"2026-09-15"}`), &req)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), req.StartDate.Time)
	require.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), req.EndDate.Time)

	out, err := json.Marshal(req.StartDate)
	require.NoError(t, err)
	require.Equal(t, `"2026-09-01"`, string(out))
}

func TestDate_JSON_RFC3339Fallback(t *testing.T) {
	var d model.Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-09-01T10:30:00Z"`), &d))
	require.Equal(t, time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC), d.Time)
}

func TestDate_JSON_Invalid(t *testing.T) {
	var d model.Date
	require.Error(t, json.Unmarshal([]byte(`"01/09/2026"`), &d))
}
