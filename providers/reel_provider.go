package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram/session"
	"github.com/PiotrWarzachowski/social-uploader/internal/storage"
)

const Platform = "instagram"

// DefaultMaxUploadBytes is the 4000 MB reel ceiling.
const DefaultMaxUploadBytes int64 = 4000 * 1024 * 1024

var (
	ErrReelUploadFailed = errors.New("instagram upload failed")
	ErrVideoTooLarge    = errors.New("video file too large")
	ErrLoginFailed      = errors.New("instagram login failed")
)

// Login error codes reported in LoginResult.Error.
const (
	LoginFailed        = "LOGIN_FAILED"
	TwoFactorRequired  = "TWO_FACTOR_REQUIRED"
	ChallengeRequired  = "CHALLENGE_REQUIRED"
	MissingCredentials = "MISSING_CREDENTIALS"
)

// ReelClient is the part of *instagram.Client the provider drives.
type ReelClient interface {
	Login(ctx context.Context, username, password, verificationCode string) (*instagram.LoginResult, error)
	UploadClip(ctx context.Context, videoPath, caption string, pr instagram.ProgressReporter) (*instagram.Media, error)
	CurrentUser(ctx context.Context) (*instagram.Account, error)
	ToSession() *session.Session
}

type SessionStore interface {
	SaveSession(stored *session.Session) error
	LoadSession() (*session.Session, error)
	HasSession() bool
	DeleteSession() error
}

// ClientFactory builds a client, restored from stored when it is non-nil.
type ClientFactory func(stored *session.Session) (ReelClient, error)

type Credentials struct {
	Username         string
	Password         string
	VerificationCode string
}

type LoginResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ReelResult struct {
	Success   bool   `json:"success"`
	Platform  string `json:"platform"`
	MediaID   string `json:"media_id,omitempty"`
	MediaCode string `json:"media_code,omitempty"`
	URL       string `json:"url,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Type      string `json:"type"`
	Warning   string `json:"warning,omitempty"`
	Message   string `json:"message,omitempty"`
}

type AccountInfo struct {
	Username string `json:"username"`
	UserID   string `json:"user_id,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

type ReelOption func(*ReelProvider)

func WithClassifier(c FailureClassifier) ReelOption {
	return func(p *ReelProvider) { p.classifier = c }
}

func WithMaxUploadBytes(n int64) ReelOption {
	return func(p *ReelProvider) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

func WithClientFactory(f ClientFactory) ReelOption {
	return func(p *ReelProvider) { p.newClient = f }
}

func WithProviderLogger(l *slog.Logger) ReelOption {
	return func(p *ReelProvider) { p.logger = l.With("component", "reel_provider") }
}

// ReelProvider publishes reels with a persisted Instagram session. The
// client is swapped on login and logout, so access goes through mu.
type ReelProvider struct {
	mu     sync.Mutex
	client ReelClient

	store      SessionStore
	newClient  ClientFactory
	creds      Credentials
	classifier FailureClassifier
	maxBytes   int64
	logger     *slog.Logger
}

// InstagramClientFactory builds real clients with opts applied.
func InstagramClientFactory(opts ...instagram.Option) ClientFactory {
	return func(stored *session.Session) (ReelClient, error) {
		if stored == nil {
			return instagram.NewClient(opts...), nil
		}
		return instagram.NewClientFromSession(stored, opts...)
	}
}

func NewReelProvider(store SessionStore, creds Credentials, opts ...ReelOption) (*ReelProvider, error) {
	p := &ReelProvider{
		store:      store,
		creds:      creds,
		newClient:  InstagramClientFactory(),
		classifier: NewSchemaMismatchClassifier(),
		maxBytes:   DefaultMaxUploadBytes,
		logger:     slog.Default().With("component", "reel_provider"),
	}
	for _, opt := range opts {
		opt(p)
	}

	stored, err := store.LoadSession()
	switch {
	case err == nil:
		p.logger.Info("loading existing Instagram session", "username", stored.Username)
	case errors.Is(err, storage.ErrNoSession):
		stored = nil
	default:
		p.logger.Warn("failed to load Instagram session", "error", err)
		stored = nil
	}

	client, err := p.newClient(stored)
	if err != nil {
		p.logger.Warn("failed to restore Instagram session", "error", err)
		if client, err = p.newClient(nil); err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
	}
	p.client = client

	return p, nil
}

func (p *ReelProvider) current() ReelClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Login uses the configured credentials.
func (p *ReelProvider) Login(ctx context.Context) *LoginResult {
	return p.LoginAs(ctx, p.creds)
}

// LoginAs logs in with a fresh client and persists its session on success.
func (p *ReelProvider) LoginAs(ctx context.Context, creds Credentials) *LoginResult {
	if creds.Username == "" || creds.Password == "" {
		return &LoginResult{
			Message: "Instagram username and password are not configured",
			Error:   MissingCredentials,
		}
	}

	p.logger.Info("logging in", "username", creds.Username)

	client, err := p.newClient(nil)
	if err != nil {
		return &LoginResult{Message: err.Error(), Username: creds.Username, Error: LoginFailed}
	}

	res, err := client.Login(ctx, creds.Username, creds.Password, creds.VerificationCode)
	if err != nil {
		code := LoginFailed
		switch {
		case errors.Is(err, instagram.ErrTwoFactorRequired) || (res != nil && res.TwoFactorRequired):
			code = TwoFactorRequired
		case errors.Is(err, instagram.ErrChallengeRequired) || errors.Is(err, instagram.ErrCheckpointRequired):
			code = ChallengeRequired
		}
		p.logger.Error("login failed", "username", creds.Username, "code", code, "error", err)
		return &LoginResult{Message: err.Error(), Username: creds.Username, Error: code}
	}
	if res == nil || !res.Success {
		return &LoginResult{Message: "login was not accepted", Username: creds.Username, Error: LoginFailed}
	}

	if err := p.store.SaveSession(client.ToSession()); err != nil {
		p.logger.Warn("failed to save session", "error", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	p.logger.Info("login successful", "username", creds.Username)

	return &LoginResult{Success: true, Message: "Logged in successfully", Username: creds.Username}
}

// CheckLoginStatus is true when a session is stored and Instagram still
// accepts it.
func (p *ReelProvider) CheckLoginStatus(ctx context.Context) bool {
	if !p.store.HasSession() {
		return false
	}
	if _, err := p.current().CurrentUser(ctx); err != nil {
		p.logger.Debug("stored session rejected", "error", err)
		return false
	}
	return true
}

// EnsureLoggedIn logs in with the configured credentials unless the stored
// session is still valid.
func (p *ReelProvider) EnsureLoggedIn(ctx context.Context) error {
	if p.CheckLoginStatus(ctx) {
		return nil
	}

	p.logger.Info("no valid session, logging in")

	res := p.Login(ctx)
	if !res.Success {
		return fmt.Errorf("%w: %s: %s", ErrLoginFailed, res.Error, res.Message)
	}
	return nil
}

// AccountInfo falls back to the configured username when the probe fails.
func (p *ReelProvider) AccountInfo(ctx context.Context) *AccountInfo {
	acct, err := p.current().CurrentUser(ctx)
	if err != nil {
		p.logger.Error("failed to get account info", "error", err)
		return &AccountInfo{Username: p.creds.Username}
	}

	return &AccountInfo{
		Username: acct.Username,
		UserID:   fmt.Sprintf("%d", acct.PK),
		FullName: acct.FullName,
	}
}

// Logout forgets the stored session and starts over with a blank client.
func (p *ReelProvider) Logout() error {
	if err := p.store.DeleteSession(); err != nil {
		return err
	}

	client, err := p.newClient(nil)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	p.logger.Info("logged out from Instagram")
	return nil
}

// UploadReel publishes videoPath as a reel. Failures the classifier accepts
// are returned as successes carrying a warning.
func (p *ReelProvider) UploadReel(ctx context.Context, videoPath, caption string, pr instagram.ProgressReporter) (*ReelResult, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: video file not found: %w", ErrReelUploadFailed, err)
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if info.Size() > p.maxBytes {
		return nil, fmt.Errorf("%w: %w: %.2fMB (max %.0fMB)", ErrReelUploadFailed, ErrVideoTooLarge, sizeMB, float64(p.maxBytes)/(1024*1024))
	}

	p.logger.Info("uploading Instagram reel", "video", info.Name(), "size_mb", fmt.Sprintf("%.2f", sizeMB), "caption", preview(caption, 50))

	media, err := p.current().UploadClip(ctx, videoPath, caption, pr)
	if err != nil {
		if warning, ok := p.classifier.Reclassify(err); ok {
			p.logger.Warn("upload error reclassified as success; check the profile to confirm", "error", err)
			return &ReelResult{
				Success:  true,
				Platform: Platform,
				Type:     "reel",
				Warning:  warning,
				Message:  "Upload likely successful (API validation error - check your profile)",
			}, nil
		}
		p.logger.Error("reel upload failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrReelUploadFailed, err)
	}

	code := media.Code
	if code == "" {
		code = media.ID
	}

	result := &ReelResult{
		Success:   true,
		Platform:  Platform,
		MediaID:   media.ID,
		MediaCode: code,
		URL:       "https://www.instagram.com/reel/" + code + "/",
		Caption:   caption,
		Type:      "reel",
	}

	p.logger.Info("reel uploaded", "media_id", result.MediaID, "url", result.URL)

	return result, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
