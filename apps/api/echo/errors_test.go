package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core"
	testutil "github.com/trezcool/surgepay/tests"
)

type loggedError struct {
	msg  string
	args []interface{}
}

// errorLogger records Error calls and discards the rest.
type errorLogger struct {
	mu     sync.Mutex
	errors []loggedError
}

func (l *errorLogger) Debug(string, ...interface{}) {}
func (l *errorLogger) Info(string, ...interface{})  {}
func (l *errorLogger) Warn(string, ...interface{})  {}
func (l *errorLogger) Fatal(string, ...interface{}) {}
func (l *errorLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, loggedError{msg: msg, args: args})
}

func TestAppHTTPErrorHandler(t *testing.T) {
	validate, translator := testutil.NewValidator()
	fieldErrs := validate.Struct(struct {
		Name string `json:"name" validate:"required"`
	}{})
	require.Error(t, fieldErrs)

	tests := []struct {
		name         string
		err          error
		debug        bool
		method       string
		wantCode     int
		wantBody     string
		wantLogged   bool
		wantShutdown bool
	}{
		{
			name:       "unexpected error",
			err:        errors.Wrap(errors.New("pq: password authentication failed"), "selecting user"),
			wantCode:   http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error"}`,
			wantLogged: true,
		},
		{
			name:       "unexpected error in debug mode",
			err:        errors.Wrap(errors.New("pq: password authentication failed"), "selecting user"),
			debug:      true,
			wantCode:   http.StatusInternalServerError,
			wantBody:   `{"error":"selecting user: pq: password authentication failed"}`,
			wantLogged: true,
		},
		{
			name:         "shutdown",
			err:          errors.Wrap(core.NewShutdownError("integrity issue"), "saving"),
			wantCode:     http.StatusInternalServerError,
			wantBody:     `{"error":"Internal Server Error"}`,
			wantLogged:   true,
			wantShutdown: true,
		},
		{
			name:     "missing jwt",
			err:      middleware.ErrJWTMissing,
			wantCode: http.StatusUnauthorized,
			wantBody: `{"error":"missing or malformed jwt"}`,
		},
		{
			name:     "wrapped http error",
			err:      &echo.HTTPError{Code: http.StatusUnauthorized, Message: "invalid or expired jwt", Internal: errHttpForbidden},
			wantCode: http.StatusForbidden,
			wantBody: `{"error":"permission denied"}`,
		},
		{
			name:     "validation error",
			err:      errors.Wrap(core.NewValidationError(errors.New("school setup has already been completed")), "onboarding"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"school setup has already been completed"}`,
		},
		{
			name: "validation error with fields",
			err: core.NewValidationError(errors.New("invalid"),
				core.FieldError{Field: "teachers", Error: "a@test.com: a user with this email already exists"}),
			wantCode: http.StatusBadRequest,
			wantBody: `{"teachers":"a@test.com: a user with this email already exists"}`,
		},
		{
			name:       "head request",
			err:        errors.New("boom"),
			method:     http.MethodHead,
			wantCode:   http.StatusInternalServerError,
			wantLogged: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger := &errorLogger{}
			shutdown := false
			handler := newAppHTTPErrorHandler(logger, translator, func() { shutdown = true })

			e := echo.New()
			e.Debug = tc.debug
			method := tc.method
			if method == "" {
				method = http.MethodGet
			}
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(method, "/v1/school", nil), rec)
			ctx.SetPath("/v1/school")

			handler(tc.err, ctx)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, rec.Body.String())
			} else {
				assert.Empty(t, rec.Body.String())
			}
			assert.Equal(t, tc.wantShutdown, shutdown)

			if !tc.wantLogged {
				assert.Empty(t, logger.errors)
				return
			}
			require.Len(t, logger.errors, 1)
			logged := logger.errors[0]
			assert.Equal(t, "Internal Server Error", logged.msg)
			require.NotEmpty(t, logged.args)
			assert.Equal(t, errors.Cause(tc.err), errors.Cause(logged.args[0].(error)), "the cause is kept in the logs")
			assert.Contains(t, logged.args, map[string]interface{}{"method": method, "route": "/v1/school"})
		})
	}

	t.Run("field errors are translated", func(t *testing.T) {
		handler := newAppHTTPErrorHandler(&errorLogger{}, translator, func() {})
		rec := httptest.NewRecorder()
		handler(errors.Wrap(fieldErrs, "validating"), echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		for field, msg := range body {
			assert.Contains(t, msg, "required", field)
		}
	})

	t.Run("committed response is left alone", func(t *testing.T) {
		logger := &errorLogger{}
		handler := newAppHTTPErrorHandler(logger, translator, func() {})
		rec := httptest.NewRecorder()
		ctx := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, ctx.String(http.StatusOK, "partial"))

		handler(errors.New("late failure"), ctx)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "partial", rec.Body.String())
		assert.Len(t, logger.errors, 1)
	})
}
