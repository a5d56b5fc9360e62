package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	PeriodID int64  `json:"periodId" validate:"required,gt=0"`
	Scope    string `json:"scope" validate:"omitempty,oneof=affected all"`
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var s sample
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"periodId":1,"other":2}`))
	err := DecodeJSON(req, &s)
	require.ErrorIs(t, err, ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"periodId":5}`))
	require.NoError(t, DecodeJSON(req, &s))
	assert.Equal(t, int64(5), s.PeriodID)
}

func TestValidateListsFields(t *testing.T) {
	err := Validate(validator.New(), sample{Scope: "some"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "PeriodID: required")
	assert.Contains(t, err.Error(), "Scope: oneof=affected all")

	assert.NoError(t, Validate(validator.New(), sample{PeriodID: 1, Scope: "all"}))
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Status)
	}

	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: secret detail"))
	assert.NotContains(t, rec.Body.String(), "secret")
}
