// Package youtube publishes videos through YouTube Studio in a real browser
// that reuses a persisted, already logged-in profile.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PiotrWarzachowski/social-uploader/internal/browser"
	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
)

type Options struct {
	Headless      bool
	StudioURL     string
	Email         string
	StatusProbe   time.Duration
	StatusSettle  time.Duration
	ChecksPoll    poll.Policy
	ChallengePoll poll.Policy
	LoginPoll     poll.Policy
}

// Driver owns one browser profile. Operations on it are mutually exclusive:
// a second caller gets ErrSessionBusy instead of queueing behind a browser
// that may hold the profile for minutes.
type Driver struct {
	profile  *browser.Profile
	launcher Launcher
	opts     Options
	logger   *slog.Logger

	mu   sync.Mutex
	busy atomic.Bool
}

func NewDriver(profile *browser.Profile, launcher Launcher, opts Options, logger *slog.Logger) *Driver {
	return &Driver{
		profile:  profile,
		launcher: launcher,
		opts:     opts,
		logger:   logger.With("component", "youtube"),
	}
}

func (d *Driver) Email() string { return d.opts.Email }

// Busy reports whether a browser operation is in flight.
func (d *Driver) Busy() bool { return d.busy.Load() }

func (d *Driver) acquire() (func(), error) {
	if !d.mu.TryLock() {
		return nil, ErrSessionBusy
	}
	d.busy.Store(true)
	return func() {
		d.busy.Store(false)
		d.mu.Unlock()
	}, nil
}

// SessionExists reports whether a browser has ever populated the profile.
func (d *Driver) SessionExists() bool {
	return d.profile.Exists()
}

// SetupInteractiveLogin opens a visible browser on Studio and waits for the
// operator to finish logging in. Running out of time is not an error; the
// profile simply keeps whatever state the operator reached. The returned URL
// is always the Studio dashboard.
func (d *Driver) SetupInteractiveLogin(ctx context.Context) (string, error) {
	release, err := d.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	tab, err := d.launcher.Launch(ctx, false)
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	defer tab.Close()

	if err := tab.Open(ctx); err != nil {
		d.logger.Warn("studio navigation did not settle", "error", err)
	}

	d.logger.Info("waiting for interactive login", "timeout", d.opts.LoginPoll.Timeout)

	current := d.opts.StudioURL
	err = poll.Until(ctx, d.opts.LoginPoll, func(ctx context.Context) (bool, error) {
		loc, err := tab.Location(ctx)
		if err != nil {
			return false, nil
		}
		current = loc
		return onStudio(loc, d.opts.StudioURL), nil
	})
	switch {
	case errors.Is(err, poll.ErrTimeout):
		d.logger.Warn("login not detected before timeout, keeping profile as is", "location", current)
	case err != nil:
		return "", err
	default:
		d.logger.Info("login detected", "location", current)
	}

	return d.opts.StudioURL, nil
}

// IsLoggedIn probes Studio headlessly. It never launches a browser when no
// profile exists, and reports any failure as not logged in.
func (d *Driver) IsLoggedIn(ctx context.Context) bool {
	if !d.SessionExists() {
		return false
	}

	release, err := d.acquire()
	if err != nil {
		d.logger.Info("status check skipped", "error", err)
		return false
	}
	defer release()

	if d.opts.StatusProbe > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.StatusProbe)
		defer cancel()
	}

	tab, err := d.launcher.Launch(ctx, true)
	if err != nil {
		d.logger.Error("status check failed to launch browser", "error", err)
		return false
	}
	defer tab.Close()

	if err := tab.Open(ctx); err != nil {
		d.logger.Error("status check navigation failed", "error", err)
		return false
	}

	if err := poll.Sleep(ctx, d.opts.StatusSettle); err != nil {
		return false
	}

	loc, err := tab.Location(ctx)
	if err != nil {
		d.logger.Error("status check could not read location", "error", err)
		return false
	}

	return !onGoogleAccounts(loc)
}

// UploadVideo runs the publish workflow. The browser is released on every
// path.
func (d *Driver) UploadVideo(ctx context.Context, v Video) (*UploadResult, error) {
	if _, err := os.Stat(v.Path); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}
	if v.ThumbnailPath != "" {
		if _, err := os.Stat(v.ThumbnailPath); err != nil {
			return nil, fmt.Errorf("thumbnail file: %w", err)
		}
	}
	if v.Privacy == "" {
		v.Privacy = PrivacyPrivate
	}
	if !d.SessionExists() {
		return nil, ErrNotLoggedIn
	}

	release, err := d.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	tab, err := d.launcher.Launch(ctx, d.opts.Headless)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer tab.Close()

	d.logger.Info("upload started", "title", v.Title, "privacy", v.Privacy)

	res, err := d.runStages(ctx, tab, v, d.uploadStages())
	if err != nil {
		d.screenshot(ctx, tab, "youtube_error_final.png")
		return nil, err
	}

	d.screenshot(ctx, tab, "youtube_final.png")
	d.logger.Info("upload finished", "title", v.Title, "url", deref(res.URL), "warnings", len(res.Warnings))
	return res, nil
}

// ClearSession wipes the profile. It is safe to call repeatedly.
func (d *Driver) ClearSession() error {
	release, err := d.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := d.profile.Clear(); err != nil {
		return err
	}
	d.logger.Info("browser session cleared", "profile", d.profile.Dir)
	return nil
}

func (d *Driver) screenshot(ctx context.Context, s Studio, name string) {
	if err := s.Screenshot(ctx, name); err != nil {
		d.logger.Debug("screenshot failed", "name", name, "error", err)
	}
}

func onStudio(loc, studioURL string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	want := "studio.youtube.com"
	if su, err := url.Parse(studioURL); err == nil && su.Hostname() != "" {
		want = su.Hostname()
	}
	return strings.EqualFold(u.Hostname(), want)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
