package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
	"github.com/PiotrWarzachowski/social-uploader/internal/youtube"
	"github.com/PiotrWarzachowski/social-uploader/providers"
)

// ValidationError is a client mistake caught before any platform call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error to its HTTP status and machine-readable code. Order
// matters: sentinel causes are checked before the StageError that wraps them.
func classify(err error) (int, string) {
	var (
		validation *ValidationError
		stage      *youtube.StageError
		fiberErr   *fiber.Error
	)

	switch {
	case errors.As(err, &validation),
		errors.Is(err, filestore.ErrInvalidID),
		errors.Is(err, filestore.ErrUnsupportedType):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, filestore.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, youtube.ErrNotLoggedIn):
		return http.StatusUnauthorized, "NOT_LOGGED_IN"
	case errors.Is(err, providers.ErrLoginFailed):
		return http.StatusUnauthorized, "LOGIN_FAILED"
	case errors.Is(err, youtube.ErrSessionBusy):
		return http.StatusConflict, "SESSION_BUSY"
	case errors.Is(err, youtube.ErrChallengeRequired):
		return http.StatusConflict, "CHALLENGE_REQUIRED"
	case errors.Is(err, youtube.ErrUploadTimeout):
		return http.StatusGatewayTimeout, "UPLOAD_TIMEOUT"
	case errors.Is(err, providers.ErrVideoTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.As(err, &stage), errors.Is(err, providers.ErrReelUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status, code := classify(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}

	return c.Status(status).JSON(ErrorResponse{Error: code, Message: err.Error()})
}
