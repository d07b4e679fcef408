package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram/session"
	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
	"github.com/PiotrWarzachowski/social-uploader/internal/video"
)

const (
	IGWebBaseURL    = "https://www.instagram.com/"
	IGAPIBaseURL    = "https://i.instagram.com/api/v1/"
	IGUploadBaseURL = "https://i.instagram.com/"
	IGWebAppID      = "936619743392459"
	IGMobileAppID   = "1217981644879628"
)

// Endpoints are the three hosts the client talks to. Tests point all of
// them at one httptest server.
type Endpoints struct {
	Web    string
	API    string
	Upload string
}

var DefaultEndpoints = Endpoints{
	Web:    IGWebBaseURL,
	API:    IGAPIBaseURL,
	Upload: IGUploadBaseURL,
}

type Client struct {
	mu sync.RWMutex

	Username string
	Password string

	SessionID string
	Cookies   map[string]string
	LastLogin int64

	DeviceSettings *session.DeviceSettings
	UserAgent      string

	PhoneID         string
	UUID            string
	ClientSessionID string
	AndroidDeviceID string

	Mid        string
	IgWwwClaim string

	endpoints     Endpoints
	httpClient    *http.Client
	csrfToken     string
	logger        *slog.Logger
	configurePoll poll.Policy
	prepareClip   func(ctx context.Context, path string) (*video.Clip, error)
}

type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

type APIError struct {
	StatusCode int
	Message    string
	ErrorType  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Instagram API error: %s (code: %d, type: %s)", e.Message, e.StatusCode, e.ErrorType)
	}
	return fmt.Sprintf("Instagram API error: status code %d", e.StatusCode)
}

// Is matches sentinel errors by ErrorType, or by Message when the sentinel
// has no type.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.ErrorType != "" {
		return e.ErrorType == t.ErrorType
	}
	return t.Message != "" && e.Message == t.Message
}

var (
	ErrBadCredentials     = &APIError{Message: "Invalid username or password", ErrorType: "bad_password"}
	ErrTwoFactorRequired  = &APIError{Message: "Two factor authentication required", ErrorType: "two_factor_required"}
	ErrChallengeRequired  = &APIError{Message: "Challenge required", ErrorType: "challenge_required"}
	ErrCheckpointRequired = &APIError{Message: "Checkpoint required", ErrorType: "checkpoint_challenge_required"}
	ErrLoginRequired      = &APIError{Message: "Login required", ErrorType: "login_required"}
	ErrRateLimited        = &APIError{Message: "Rate limited, please wait", ErrorType: "rate_limit"}
	ErrNotLoggedIn        = &APIError{Message: "not logged in"}
)
