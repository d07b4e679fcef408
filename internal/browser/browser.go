// Package browser owns the lifecycle of a Chrome process bound to a
// persisted profile and exposes the handful of page actions the upload
// drivers need, each with its own bound.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ErrTimeout is returned when a single page action exceeds its bound.
var ErrTimeout = errors.New("browser: timed out")

type Options struct {
	Headless       bool
	SlowMo         time.Duration
	ExecPath       string
	UserAgent      string
	Locale         string
	Timezone       string
	AcceptLanguage string
	WindowWidth    int
	WindowHeight   int
}

// Locator addresses page nodes either by CSS selector or by XPath.
type Locator struct {
	Selector string
	XPath    bool
}

func CSS(selector string) Locator   { return Locator{Selector: selector} }
func XPath(selector string) Locator { return Locator{Selector: selector, XPath: true} }

func (l Locator) by() chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (l Locator) String() string { return l.Selector }

// Session is one running browser. It must be released exactly once.
type Session struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	slowMo      time.Duration
	logger      *slog.Logger
}

// Launch starts Chrome against the profile directory. The returned session
// lives until Release or until ctx is cancelled.
func Launch(ctx context.Context, profile *Profile, opts Options, logger *slog.Logger) (*Session, error) {
	if err := profile.ensure(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profile.Dir),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.DisableGPU,
		chromedp.Flag("disable-software-rasterizer", true),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	setup := []chromedp.Action{
		network.Enable(),
	}
	if opts.AcceptLanguage != "" {
		setup = append(setup, network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": opts.AcceptLanguage}))
	}
	if opts.Timezone != "" {
		setup = append(setup, emulation.SetTimezoneOverride(opts.Timezone))
	}
	if opts.Locale != "" {
		setup = append(setup, emulation.SetLocaleOverride().WithLocale(opts.Locale))
	}

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Debug("browser launched", "profile", profile.Dir, "headless", opts.Headless)

	return &Session{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		slowMo:      opts.SlowMo,
		logger:      logger,
	}, nil
}

// Release closes the browser so the profile is flushed to disk.
func (s *Session) Release() {
	if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("browser close failed", "error", err)
	}
	s.cancelTab()
	s.cancelAlloc()
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, what string, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, what, timeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Session) pause(ctx context.Context) {
	if s.slowMo <= 0 {
		return
	}
	t := time.NewTimer(s.slowMo)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	defer s.pause(ctx)
	return s.run(ctx, timeout, "navigate "+url, chromedp.Navigate(url))
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, 0, "location", chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitVisible waits for the node to be rendered and visible.
func (s *Session) WaitVisible(ctx context.Context, l Locator, timeout time.Duration) error {
	return s.run(ctx, timeout, "wait visible "+l.Selector, chromedp.WaitVisible(l.Selector, l.by()))
}

func (s *Session) Click(ctx context.Context, l Locator, timeout time.Duration) error {
	defer s.pause(ctx)
	return s.run(ctx, timeout, "click "+l.Selector, chromedp.Click(l.Selector, l.by(), chromedp.NodeVisible))
}

// Type replaces the content of an editable node, one rune at a time.
func (s *Session) Type(ctx context.Context, l Locator, text string, delay, timeout time.Duration) error {
	defer s.pause(ctx)

	if err := s.run(ctx, timeout, "focus "+l.Selector,
		chromedp.Click(l.Selector, l.by(), chromedp.NodeVisible),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Backspace),
	); err != nil {
		return err
	}

	for _, r := range text {
		if err := s.run(ctx, timeout, "type", chromedp.KeyEvent(string(r))); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}

// SetUploadFiles attaches local files to a file input. The input may be
// hidden; it only has to be attached.
func (s *Session) SetUploadFiles(ctx context.Context, l Locator, files []string, timeout time.Duration) error {
	defer s.pause(ctx)
	return s.run(ctx, timeout, "set files "+l.Selector, chromedp.SetUploadFiles(l.Selector, files, l.by(), chromedp.NodeReady))
}

// Exists reports whether at least one node currently matches, without waiting.
func (s *Session) Exists(ctx context.Context, l Locator, timeout time.Duration) (bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, timeout, "query "+l.Selector, chromedp.Nodes(l.Selector, &nodes, l.by(), chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// Attribute reads an attribute of the first matching node. ok is false when
// the attribute is absent.
func (s *Session) Attribute(ctx context.Context, l Locator, name string, timeout time.Duration) (value string, ok bool, err error) {
	err = s.run(ctx, timeout, "attribute "+name+" of "+l.Selector,
		chromedp.AttributeValue(l.Selector, name, &value, &ok, l.by()))
	return value, ok, err
}

func (s *Session) ScrollBy(ctx context.Context, dy int) error {
	return s.run(ctx, 5*time.Second, "scroll", chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil))
}

// Screenshot writes a full-page PNG to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, 15*time.Second, "screenshot", chromedp.FullScreenshot(&buf, 100)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
