// Package server exposes the advice pipeline over HTTP.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

// Config is loaded with prefix SERVER.
type Config struct {
	Addr              string        `envconfig:"ADDR" default:":8080"`
	BasePath          string        `envconfig:"BASE_PATH" split_words:"true" default:"/v1"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" split_words:"true" default:"10s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"15s"`
}

const (
	CodeInvalidInput     = "invalid_input"
	CodeSchemaViolation  = "schema_violation"
	CodeUnavailable      = "unavailable"
	CodeRetriesExhausted = "retries_exhausted"
	CodeUnknown          = "unknown"
)

type apiErrorBody struct {
	Code    string         `json:"code" example:"unavailable"`
	Message string         `json:"message" example:"upstream model unavailable"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the {"error": {...}} envelope every failed call returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns the HTTP handler for pipeline.
func New(cfg Config, pipeline contractx.Pipeline) (http.Handler, error) {
	if pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}
	basePath := strings.TrimRight(strings.TrimSpace(cfg.BasePath), "/")
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, errorDetails(errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		// request validation failures are caller input problems
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		return newAPIError(status, "", msg, errorDetails(errs))
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(hlog.NewHandler(log.Logger))
	router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("http request")
	}))

	hcfg := huma.DefaultConfig("SoulSync Advice API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerChatAdvice(group, pipeline)
	registerWellness(group, pipeline)
	registerModeration(group, pipeline)
	registerJournal(group, pipeline)
	registerMoodCheckIn(group, pipeline)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return map[string]any{"errors": msgs}
}

// handleError maps a pipeline error onto the envelope. Failures carry the use
// case's fallback content so callers can degrade without a second request.
func handleError(uc contractx.UseCase, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	details := map[string]any{"retryable": false}
	if uc != "" {
		details["use_case"] = uc
	}
	if errors.Is(err, contractx.ErrValidation) {
		return newAPIError(http.StatusBadRequest, CodeInvalidInput, err.Error(), details)
	}

	f := contractx.AsFailure(err)
	status, code := http.StatusInternalServerError, CodeUnknown
	switch f.Kind {
	case contractx.KindSchemaViolation:
		status, code = http.StatusBadGateway, CodeSchemaViolation
	case contractx.KindUnavailable:
		status, code = http.StatusServiceUnavailable, CodeUnavailable
	case contractx.KindRetriesExhausted:
		status, code = http.StatusServiceUnavailable, CodeRetriesExhausted
	}

	details["retryable"] = status == http.StatusServiceUnavailable
	if f.Attempts > 0 {
		details["attempts"] = f.Attempts
	}
	if fb := Fallback(uc); fb != nil {
		details["fallback"] = fb
	}
	return newAPIError(status, code, f.Kind.Message(), details)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidInput
	case http.StatusBadGateway:
		return CodeSchemaViolation
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusInternalServerError:
		return CodeUnknown
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
