package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareWithStructuredError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/channels/lanparty-7/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorsTotal.Reset()

	handler := Middleware()(func(c echo.Context) error {
		return ConflictError("session already active").WithContext("channel_id", "lanparty-7")
	})

	err := handler(c)
	require.NoError(t, err) // Middleware handles the error, doesn't return it

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session already active", resp.Error)
	assert.Equal(t, TypeConflict, resp.Type)
	assert.Equal(t, "lanparty-7", resp.Context["channel_id"])

	assert.Equal(t, 1.0, getCounterValue(HTTPErrorsTotal.WithLabelValues("conflict")))
}

func TestMiddlewareWithStandardError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorsTotal.Reset()

	handler := Middleware()(func(c echo.Context) error {
		return fmt.Errorf("standard error")
	})

	err := handler(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, TypeInternal, resp.Type)
}

func TestMiddlewareWithNoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorsTotal.Reset()

	handler := Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, getCounterValue(HTTPErrorsTotal.WithLabelValues("internal")))
}

func TestMiddlewarePassesThroughEchoHTTPError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorsTotal.Reset()

	httpErr := echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	handler := Middleware()(func(c echo.Context) error {
		return httpErr
	})

	err := handler(c)
	assert.Equal(t, httpErr, err)
}

func TestMiddlewareAllErrorTypes(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantStatus int
		wantType   ErrorType
	}{
		{"validation", ValidationError("bad payload"), http.StatusBadRequest, TypeValidation},
		{"forbidden", ForbiddenError("not the creator"), http.StatusForbidden, TypeForbidden},
		{"not_found", NotFoundError("missing"), http.StatusNotFound, TypeNotFound},
		{"conflict", ConflictError("duplicate"), http.StatusConflict, TypeConflict},
		{"internal", InternalError("failed", fmt.Errorf("cause")), http.StatusInternalServerError, TypeInternal},
		{"external", ExternalError("relay failed", fmt.Errorf("timeout")), http.StatusBadGateway, TypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			HTTPErrorsTotal.Reset()

			handler := Middleware()(func(c echo.Context) error {
				return tt.err
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Type)
			assert.Equal(t, 1.0, getCounterValue(HTTPErrorsTotal.WithLabelValues(string(tt.wantType))))
		})
	}
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		httpErr  *echo.HTTPError
		wantType ErrorType
	}{
		{"bad_request", echo.NewHTTPError(http.StatusBadRequest, "bad request"), TypeValidation},
		{"forbidden", echo.NewHTTPError(http.StatusForbidden, "forbidden"), TypeForbidden},
		{"not_found", echo.NewHTTPError(http.StatusNotFound, "not found"), TypeNotFound},
		{"conflict", echo.NewHTTPError(http.StatusConflict, "conflict"), TypeConflict},
		{"bad_gateway", echo.NewHTTPError(http.StatusBadGateway, "bad gateway"), TypeExternal},
		{"service_unavailable", echo.NewHTTPError(http.StatusServiceUnavailable, "unavailable"), TypeExternal},
		{"internal", echo.NewHTTPError(http.StatusInternalServerError, "internal error"), TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapHTTPError(tt.httpErr)
			assert.Equal(t, tt.wantType, err.Type)
		})
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	httpErr := echo.NewHTTPError(http.StatusInternalServerError, "wrapped")
	httpErr.Internal = cause

	err := WrapHTTPError(httpErr)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	err := WrapHTTPError(echo.NewHTTPError(http.StatusBadRequest, 12345))

	assert.Equal(t, "internal server error", err.Message) // Fallback message
	assert.Equal(t, TypeValidation, err.Type)
}

// Helper function to get counter value from Prometheus metric
func getCounterValue(counter prometheus.Counter) float64 {
	ch := make(chan prometheus.Metric, 1)
	counter.Collect(ch)
	close(ch)

	metric := <-ch
	m := &dto.Metric{}
	_ = metric.Write(m)
	return m.GetCounter().GetValue()
}
