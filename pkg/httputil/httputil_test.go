package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medflow/hospital-backend/pkg/errors"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_AppErrorUsesDetailField(t *testing.T) {
	rr := httptest.NewRecorder()
	httputil.Error(rr, errors.NotFound("Medicine"))

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Medicine not found", body["detail"])
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestError_UnknownErrorIsInternal(t *testing.T) {
	rr := httptest.NewRecorder()
	httputil.Error(rr, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"detail":"an unexpected error occurred"`)
}

type billingRequest struct {
	PatientName  string `json:"patient_name" validate:"required"`
	MedicineName string `json:"medicine_name" validate:"required"`
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"patient_name":"Asha","medicine_name":"Paracetamol"}`))
		var got billingRequest
		require.NoError(t, httputil.DecodeAndValidate(req, &got))
		assert.Equal(t, "Asha", got.PatientName)
	})

	t.Run("missing field reports json name", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"patient_name":"Asha"}`))
		var got billingRequest
		err := httputil.DecodeAndValidate(req, &got)

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "this field is required", appErr.Details["medicine_name"])
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"patient_name":"Asha","medicine_name":"X","qty":2}`))
		var got billingRequest
		err := httputil.DecodeAndValidate(req, &got)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
		var got billingRequest
		err := httputil.DecodeAndValidate(req, &got)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	var seen string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))
}

func TestRecoverer_ReturnsJSON500(t *testing.T) {
	h := httputil.Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"INTERNAL_ERROR"`)
}
