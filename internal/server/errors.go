package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	batchpkg "github.com/smallbiznis/royalty/internal/batch"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictCode(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	}

	switch calcerr.Classify(err) {
	case calcerr.ClassInput:
		field, code := calcFieldAndCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: field, Code: code, Message: validationErrorMessage(err)},
			},
		}
	case calcerr.ClassConfiguration:
		field, code := calcFieldAndCode(err)
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "configuration_error",
			Message: "contract configuration is invalid",
			Errors: []ValidationError{
				{Field: field, Code: code, Message: err.Error()},
			},
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: "invalid_request", Message: "invalid request"},
			},
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type and code the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := http.StatusText(status)
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if payload.Type == "conflict" {
		code = payload.Message
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, statementdomain.ErrStatementExists),
		errors.Is(err, statementdomain.ErrConcurrentCommit),
		errors.Is(err, contractdomain.ErrContractTerminated),
		errors.Is(err, contractdomain.ErrConcurrentUpdate),
		errors.Is(err, royaltydomain.ErrContractNotCalculable):
		return true
	default:
		return false
	}
}

func conflictCode(err error) string {
	for _, known := range []error{
		statementdomain.ErrStatementExists,
		statementdomain.ErrConcurrentCommit,
		contractdomain.ErrContractTerminated,
		contractdomain.ErrConcurrentUpdate,
		royaltydomain.ErrContractNotCalculable,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "conflict"
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, contractdomain.ErrNotFound),
		errors.Is(err, statementdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// calcFieldAndCode unwraps the engine's typed errors into the field they
// name and the sentinel code underneath.
func calcFieldAndCode(err error) (string, string) {
	var parseErr *calcerr.ParseError
	var validationErr *calcerr.ValidationError
	var configErr *calcerr.ConfigurationError
	switch {
	case errors.As(err, &configErr):
		return configErr.Field, rootCode(configErr.Err)
	case errors.As(err, &parseErr):
		return parseErr.Field, rootCode(parseErr.Err)
	case errors.As(err, &validationErr):
		return validationErr.Field, rootCode(validationErr.Err)
	default:
		return "", rootCode(err)
	}
}

func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func validationErrorMessage(err error) string {
	if errors.Is(err, batchpkg.ErrPeriodOpen) {
		return "the statement period has not closed yet"
	}
	var parseErr *calcerr.ParseError
	if errors.As(err, &parseErr) {
		return "malformed decimal"
	}
	return "invalid value"
}
