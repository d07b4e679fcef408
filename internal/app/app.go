// Package app wires configuration into the stores, drivers and providers
// shared by the HTTP server and the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/PiotrWarzachowski/social-uploader/internal/browser"
	"github.com/PiotrWarzachowski/social-uploader/internal/config"
	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
	"github.com/PiotrWarzachowski/social-uploader/internal/logging"
	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
	"github.com/PiotrWarzachowski/social-uploader/internal/storage"
	"github.com/PiotrWarzachowski/social-uploader/internal/youtube"
	"github.com/PiotrWarzachowski/social-uploader/providers"
)

type Env struct {
	Config *config.Config
	Logger *slog.Logger

	logFile io.Closer
}

// Load reads configuration, creates the working directories and installs
// the logger. debug forces debug level regardless of the configured one.
func Load(debug bool) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, logFile := logging.Setup(cfg.Logging, cfg.Debug)
	return &Env{Config: cfg, Logger: logger, logFile: logFile}, nil
}

func (e *Env) Close() error {
	if e.logFile == nil {
		return nil
	}
	return e.logFile.Close()
}

// OpenStore returns the upload store selected by storage.backend.
func (e *Env) OpenStore(ctx context.Context) (filestore.Store, error) {
	sc := e.Config.Storage

	switch sc.Backend {
	case "local":
		return filestore.NewLocalStore(e.Config.UploadDir)
	case "gcs":
		e.Logger.Info("using GCS upload store", "bucket", sc.GCSBucket, "prefix", sc.GCSPrefix)
		return filestore.NewGCSStore(ctx, sc.GCSBucket, sc.GCSPrefix, sc.CacheDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// YouTubeDriver drives Studio on the persisted Chrome profile.
func (e *Env) YouTubeDriver() (*youtube.Driver, error) {
	cfg := e.Config

	profile, err := browser.NewProfile(cfg.ProfileDir())
	if err != nil {
		return nil, err
	}

	yt := cfg.YouTube
	launcher := &youtube.ChromeLauncher{
		Profile: profile,
		Options: browser.Options{
			Headless:       cfg.Browser.Headless,
			SlowMo:         cfg.Browser.SlowMo,
			ExecPath:       cfg.Browser.ExecPath,
			UserAgent:      cfg.Browser.UserAgent,
			Locale:         cfg.Browser.Locale,
			Timezone:       cfg.Browser.Timezone,
			AcceptLanguage: cfg.Browser.AcceptLanguage,
			WindowWidth:    cfg.Browser.WindowWidth,
			WindowHeight:   cfg.Browser.WindowHeight,
		},
		StudioURL: yt.StudioURL,
		Timeouts: youtube.Timeouts{
			Navigation:   yt.Timeouts.Navigation,
			UploadDialog: yt.Timeouts.UploadDialog,
			FileInput:    yt.Timeouts.FileInput,
			Processing:   yt.Timeouts.Processing,
			Title:        yt.Timeouts.Title,
			Field:        yt.Timeouts.Field,
			Next:         yt.Timeouts.Next,
			Visibility:   yt.Timeouts.Visibility,
			Publish:      yt.Timeouts.Publish,
			ShareURL:     yt.Timeouts.ShareURL,
		},
		TypingDelay:   yt.TypingDelay,
		ScreenshotDir: yt.ScreenshotDir,
		Logger:        e.Logger,
	}

	return youtube.NewDriver(profile, launcher, youtube.Options{
		Headless:      cfg.Browser.Headless,
		StudioURL:     yt.StudioURL,
		Email:         cfg.YouTubeEmail,
		StatusProbe:   yt.Timeouts.StatusProbe,
		StatusSettle:  yt.Timeouts.StatusSettle,
		ChecksPoll:    yt.ChecksPoll,
		ChallengePoll: yt.ChallengePoll,
		LoginPoll:     yt.LoginPoll,
	}, e.Logger), nil
}

// SessionStorage is the encrypted Instagram session store.
func (e *Env) SessionStorage() (*storage.Storage, error) {
	return storage.NewSessionStorage(e.Config.InstagramSessionDir())
}

// ReelProvider restores the stored Instagram session, if any, and logs in
// lazily with the configured credentials.
func (e *Env) ReelProvider() (*providers.ReelProvider, error) {
	store, err := e.SessionStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session storage: %w", err)
	}

	ig := e.Config.Instagram
	factory := providers.InstagramClientFactory(
		instagram.WithLogger(e.Logger),
		instagram.WithConfigurePoll(ig.ConfigurePoll),
	)

	return providers.NewReelProvider(store, providers.Credentials{
		Username: e.Config.InstagramUsername,
		Password: e.Config.InstagramPassword,
	},
		providers.WithClientFactory(factory),
		providers.WithMaxUploadBytes(int64(ig.MaxUploadMB)*1024*1024),
		providers.WithProviderLogger(e.Logger),
	)
}
