package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

type APIError struct {
	Message     string               `json:"message"`
	Code        string               `json:"code,omitempty"`
	Coordinates []domain.Coordinates `json:"coordinates,omitempty"`
	IDs         []string             `json:"ids,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondEngineError writes err with the status its engine code maps to and
// echoes the offending coordinates or ids.
func RespondEngineError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	env := ErrorEnvelope{Error: APIError{Message: "unknown error", Code: string(code)}}
	if err != nil {
		env.Error.Message = err.Error()
	}
	var e *domain.Error
	if errors.As(err, &e) {
		env.Error.Coordinates = e.Coordinates
		env.Error.IDs = e.IDs
	}
	if env.Error.Code == "" {
		env.Error.Code = string(domain.CodeInternal)
	}
	c.JSON(StatusFor(code), env)
}

// StatusFor maps an engine error code to an HTTP status.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAmbiguous, domain.CodeInvariantViolation, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
