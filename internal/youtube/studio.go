package youtube

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/PiotrWarzachowski/social-uploader/internal/browser"
)

// Studio is the page adapter for YouTube Studio. The upload workflow only
// talks to Studio; a UI change on YouTube's side is fixed behind it.
type Studio interface {
	Open(ctx context.Context) error
	Location(ctx context.Context) (string, error)

	ChallengePresent(ctx context.Context) (bool, error)
	// DismissChallenge clicks the interstitial's continue control. It
	// returns false when no such control exists.
	DismissChallenge(ctx context.Context) (bool, error)

	OpenUploadDialog(ctx context.Context) error
	AttachVideo(ctx context.Context, path string) error
	AwaitDetails(ctx context.Context) error
	FillTitle(ctx context.Context, title string) error
	FillDescription(ctx context.Context, description string) error
	AttachThumbnail(ctx context.Context, path string) error
	SetMadeForKids(ctx context.Context, forKids bool) error
	Next(ctx context.Context) error
	NextEnabled(ctx context.Context) (bool, error)
	SetVisibility(ctx context.Context, p Privacy) error
	Publish(ctx context.Context) error
	ShareURL(ctx context.Context) (string, error)

	Screenshot(ctx context.Context, name string) error
}

// Tab is a Studio backed by a live browser; Close releases the browser.
type Tab interface {
	Studio
	Close()
}

type Launcher interface {
	Launch(ctx context.Context, headless bool) (Tab, error)
}

// Timeouts bound each individual Studio interaction.
type Timeouts struct {
	Navigation   time.Duration
	UploadDialog time.Duration
	FileInput    time.Duration
	Processing   time.Duration
	Title        time.Duration
	Field        time.Duration
	Next         time.Duration
	Visibility   time.Duration
	Publish      time.Duration
	ShareURL     time.Duration
}

// ChromeLauncher opens Studio tabs in Chrome on the persisted profile.
type ChromeLauncher struct {
	Profile       *browser.Profile
	Options       browser.Options
	StudioURL     string
	Timeouts      Timeouts
	TypingDelay   time.Duration
	ScreenshotDir string
	Logger        *slog.Logger
}

func (l *ChromeLauncher) Launch(ctx context.Context, headless bool) (Tab, error) {
	opts := l.Options
	opts.Headless = headless

	sess, err := browser.Launch(ctx, l.Profile, opts, l.Logger)
	if err != nil {
		return nil, err
	}

	return &studioTab{
		sess:          sess,
		studioURL:     l.StudioURL,
		t:             l.Timeouts,
		typingDelay:   l.TypingDelay,
		screenshotDir: l.ScreenshotDir,
	}, nil
}

type studioTab struct {
	sess          *browser.Session
	studioURL     string
	t             Timeouts
	typingDelay   time.Duration
	screenshotDir string
}

const probeTimeout = 5 * time.Second

func (s *studioTab) Close() { s.sess.Release() }

func (s *studioTab) Open(ctx context.Context) error {
	return s.sess.Navigate(ctx, s.studioURL, s.t.Navigation)
}

func (s *studioTab) Location(ctx context.Context) (string, error) {
	return s.sess.Location(ctx)
}

func (s *studioTab) ChallengePresent(ctx context.Context) (bool, error) {
	return s.sess.Exists(ctx, challengeText, probeTimeout)
}

func (s *studioTab) DismissChallenge(ctx context.Context) (bool, error) {
	ok, err := s.sess.Exists(ctx, challengeDismiss, probeTimeout)
	if err != nil || !ok {
		return false, err
	}
	if err := s.sess.Click(ctx, challengeDismiss, probeTimeout); err != nil {
		return false, err
	}
	return true, nil
}

func (s *studioTab) OpenUploadDialog(ctx context.Context) error {
	return s.sess.Click(ctx, uploadIcon, s.t.UploadDialog)
}

func (s *studioTab) AttachVideo(ctx context.Context, path string) error {
	return s.sess.SetUploadFiles(ctx, videoFileInput, []string{path}, s.t.FileInput)
}

func (s *studioTab) AwaitDetails(ctx context.Context) error {
	return s.sess.WaitVisible(ctx, titleBox, s.t.Processing)
}

func (s *studioTab) FillTitle(ctx context.Context, title string) error {
	return s.sess.Type(ctx, titleBox, title, s.typingDelay, s.t.Title)
}

func (s *studioTab) FillDescription(ctx context.Context, description string) error {
	return s.sess.Type(ctx, descriptionBox, description, s.typingDelay, s.t.Field)
}

func (s *studioTab) AttachThumbnail(ctx context.Context, path string) error {
	return s.sess.SetUploadFiles(ctx, thumbnailInput, []string{path}, s.t.Field)
}

func (s *studioTab) SetMadeForKids(ctx context.Context, forKids bool) error {
	// The audience radios sit below the fold of the details page.
	if err := s.sess.ScrollBy(ctx, 400); err != nil {
		return err
	}
	radio := notMadeForKids
	if forKids {
		radio = madeForKids
	}
	return s.sess.Click(ctx, radio, s.t.Field)
}

func (s *studioTab) Next(ctx context.Context) error {
	return s.sess.Click(ctx, nextButton, s.t.Next)
}

func (s *studioTab) NextEnabled(ctx context.Context) (bool, error) {
	_, disabled, err := s.sess.Attribute(ctx, nextButton, "disabled", probeTimeout)
	if err != nil {
		return false, err
	}
	if disabled {
		return false, nil
	}
	aria, _, err := s.sess.Attribute(ctx, nextButton, "aria-disabled", probeTimeout)
	if err != nil {
		return false, err
	}
	return aria != "true", nil
}

func (s *studioTab) SetVisibility(ctx context.Context, p Privacy) error {
	return s.sess.Click(ctx, privacyRadio(p), s.t.Visibility)
}

func (s *studioTab) Publish(ctx context.Context) error {
	return s.sess.Click(ctx, doneButton, s.t.Publish)
}

func (s *studioTab) ShareURL(ctx context.Context) (string, error) {
	if err := s.sess.WaitVisible(ctx, shareURL, s.t.ShareURL); err != nil {
		return "", err
	}
	href, ok, err := s.sess.Attribute(ctx, shareURL, "href", probeTimeout)
	if err != nil {
		return "", err
	}
	if !ok || href == "" {
		return "", errors.New("share link has no href")
	}
	return href, nil
}

func (s *studioTab) Screenshot(ctx context.Context, name string) error {
	return s.sess.Screenshot(ctx, filepath.Join(s.screenshotDir, name))
}
