// Package api exposes file storage, the YouTube driver and the Instagram
// reel provider over HTTP.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
	"github.com/PiotrWarzachowski/social-uploader/internal/youtube"
	"github.com/PiotrWarzachowski/social-uploader/providers"
)

const Version = "1.0.0"

// YouTubeService is implemented by *youtube.Driver.
type YouTubeService interface {
	SetupInteractiveLogin(ctx context.Context) (string, error)
	IsLoggedIn(ctx context.Context) bool
	SessionExists() bool
	Busy() bool
	Email() string
	UploadVideo(ctx context.Context, v youtube.Video) (*youtube.UploadResult, error)
	ClearSession() error
}

// InstagramService is implemented by *providers.ReelProvider.
type InstagramService interface {
	EnsureLoggedIn(ctx context.Context) error
	CheckLoginStatus(ctx context.Context) bool
	AccountInfo(ctx context.Context) *providers.AccountInfo
	UploadReel(ctx context.Context, videoPath, caption string, pr instagram.ProgressReporter) (*providers.ReelResult, error)
	Logout() error
}

type Options struct {
	BodyLimitMB int
	UploadDir   string
	SessionsDir string
}

type Server struct {
	app     *fiber.App
	opts    Options
	store   filestore.Store
	youtube YouTubeService
	reels   InstagramService
	logger  *slog.Logger
}

func New(opts Options, store filestore.Store, yt YouTubeService, ig InstagramService, logger *slog.Logger) *Server {
	s := &Server{
		opts:    opts,
		store:   store,
		youtube: yt,
		reels:   ig,
		logger:  logger.With("component", "api"),
	}

	bodyLimit := opts.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 4096
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "social-uploader",
		BodyLimit:             bodyLimit * 1024 * 1024,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
	}))
	s.app.Use(s.requestLogger)

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.handleRoot)
	s.app.Get("/health", s.handleHealth)

	s.app.Post("/upload", s.handleUpload)
	s.app.Get("/list", s.handleList)
	s.app.Delete("/file/:id", s.handleDeleteFile)

	s.app.Group("/youtube").
		Post("/setup-browser", s.handleYouTubeSetup).
		Get("/status", s.handleYouTubeStatus).
		Post("/upload", s.handleYouTubeUpload).
		Delete("/clear-session", s.handleYouTubeClear)

	s.app.Group("/instagram").
		Post("/upload-reel", s.handleReelUpload).
		Get("/status", s.handleInstagramStatus).
		Post("/logout", s.handleInstagramLogout)
}

// App is exposed for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("starting web server", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status, _ = classify(err)
	}

	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return err
}
