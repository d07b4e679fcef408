package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
)

const (
	defaultConfigPath     = "config.yaml"
	defaultUploadDir      = "social_media_uploads"
	defaultSessionsDir    = ".youtube_automation"
	defaultHost           = "0.0.0.0"
	defaultPort           = 8000
	defaultStorageBackend = "local"
	defaultGCSPrefix      = "uploads"
	defaultBodyLimitMB    = 4096
	defaultLogFile        = "social_uploader.log"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 50
	defaultLogMaxBackups  = 5
	defaultLogMaxAgeDays  = 28

	defaultSlowMo         = 100 * time.Millisecond
	defaultUserAgent      = "Mozilla/5.0 (X11; Linux aarch64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultLocale         = "en-US"
	defaultTimezone       = "America/New_York"
	defaultAcceptLanguage = "en-US,en;q=0.9"
	defaultWindowWidth    = 1280
	defaultWindowHeight   = 720

	defaultStudioURL   = "https://studio.youtube.com"
	defaultTypingDelay = 50 * time.Millisecond

	defaultInstagramMaxUploadMB = 4000
)

type Config struct {
	UploadDir   string `yaml:"upload_dir"`
	SessionsDir string `yaml:"sessions_dir"`
	Debug       bool   `yaml:"debug"`

	YouTubeEmail      string `yaml:"-"`
	InstagramUsername string `yaml:"-"`
	InstagramPassword string `yaml:"-"`

	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Browser   BrowserConfig   `yaml:"browser"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Instagram InstagramConfig `yaml:"instagram"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"` // "local" or "gcs"
	GCSBucket string `yaml:"gcs_bucket"`
	GCSPrefix string `yaml:"gcs_prefix"`
	CacheDir  string `yaml:"cache_dir"`
}

type LoggingConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	SlowMo         time.Duration `yaml:"slow_mo"`
	ExecPath       string        `yaml:"exec_path"`
	UserAgent      string        `yaml:"user_agent"`
	Locale         string        `yaml:"locale"`
	Timezone       string        `yaml:"timezone"`
	AcceptLanguage string        `yaml:"accept_language"`
	WindowWidth    int           `yaml:"window_width"`
	WindowHeight   int           `yaml:"window_height"`
}

type YouTubeConfig struct {
	StudioURL     string          `yaml:"studio_url"`
	ScreenshotDir string          `yaml:"screenshot_dir"`
	TypingDelay   time.Duration   `yaml:"typing_delay"`
	Timeouts      YouTubeTimeouts `yaml:"timeouts"`
	ChecksPoll    poll.Policy     `yaml:"checks_poll"`
	ChallengePoll poll.Policy     `yaml:"challenge_poll"`
	LoginPoll     poll.Policy     `yaml:"login_poll"`
}

// YouTubeTimeouts bounds each individual Studio interaction.
type YouTubeTimeouts struct {
	Navigation   time.Duration `yaml:"navigation"`
	StatusProbe  time.Duration `yaml:"status_probe"`
	StatusSettle time.Duration `yaml:"status_settle"`
	UploadDialog time.Duration `yaml:"upload_dialog"`
	FileInput    time.Duration `yaml:"file_input"`
	Processing   time.Duration `yaml:"processing"`
	Title        time.Duration `yaml:"title"`
	Field        time.Duration `yaml:"field"`
	Next         time.Duration `yaml:"next"`
	Visibility   time.Duration `yaml:"visibility"`
	Publish      time.Duration `yaml:"publish"`
	ShareURL     time.Duration `yaml:"share_url"`
}

type InstagramConfig struct {
	MaxUploadMB   int         `yaml:"max_upload_mb"`
	ConfigurePoll poll.Policy `yaml:"configure_poll"`
}

// Load reads .env, then config.yaml (or $CONFIG_PATH), then environment
// overrides, and finally fills every unset value with its default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		// Preset so an explicit zero from yaml or SLOW_MO turns slow-mo off.
		Browser: BrowserConfig{Headless: true, SlowMo: defaultSlowMo},
	}

	if err := loadYAMLConfig(cfg, getEnvOrDefault("CONFIG_PATH", defaultConfigPath)); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("No config file found, using defaults", "path", path)
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.UploadDir = getEnvOrDefault("UPLOAD_DIR", cfg.UploadDir)
	cfg.SessionsDir = getEnvOrDefault("SESSIONS_DIR", cfg.SessionsDir)
	cfg.YouTubeEmail = os.Getenv("YOUTUBE_EMAIL")
	cfg.InstagramUsername = os.Getenv("INSTAGRAM_USERNAME")
	cfg.InstagramPassword = os.Getenv("INSTAGRAM_PASSWORD")
	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	cfg.Storage.Backend = getEnvOrDefault("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.GCSBucket = getEnvOrDefault("GCS_BUCKET", cfg.Storage.GCSBucket)
	cfg.Logging.File = getEnvOrDefault("LOG_FILE", cfg.Logging.File)
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.YouTube.ScreenshotDir = getEnvOrDefault("SCREENSHOT_DIR", cfg.YouTube.ScreenshotDir)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid HEADLESS %q: %w", v, err)
		}
		cfg.Browser.Headless = headless
	}

	// SLOW_MO is milliseconds, as the browser drivers conventionally take it.
	if v := os.Getenv("SLOW_MO"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SLOW_MO %q: %w", v, err)
		}
		cfg.Browser.SlowMo = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	return nil
}

func applyDefaults(cfg *Config) error {
	if err := applyPathDefaults(cfg); err != nil {
		return err
	}
	applyServerDefaults(cfg)
	applyStorageDefaults(cfg)
	applyLoggingDefaults(cfg)
	applyBrowserDefaults(cfg)
	applyYouTubeDefaults(cfg)
	applyInstagramDefaults(cfg)
	return nil
}

func applyPathDefaults(cfg *Config) error {
	if cfg.UploadDir != "" && cfg.SessionsDir != "" {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(homeDir, defaultUploadDir)
	}
	if cfg.SessionsDir == "" {
		cfg.SessionsDir = filepath.Join(homeDir, defaultSessionsDir)
	}
	return nil
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = defaultBodyLimitMB
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaultStorageBackend
	}
	if cfg.Storage.GCSPrefix == "" {
		cfg.Storage.GCSPrefix = defaultGCSPrefix
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = filepath.Join(cfg.UploadDir, ".cache")
	}
}

func applyLoggingDefaults(cfg *Config) {
	if cfg.Logging.File == "" {
		cfg.Logging.File = defaultLogFile
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = defaultLogMaxBackups
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = defaultLogMaxAgeDays
	}
}

func applyBrowserDefaults(cfg *Config) {
	if cfg.Browser.UserAgent == "" {
		cfg.Browser.UserAgent = defaultUserAgent
	}
	if cfg.Browser.Locale == "" {
		cfg.Browser.Locale = defaultLocale
	}
	if cfg.Browser.Timezone == "" {
		cfg.Browser.Timezone = defaultTimezone
	}
	if cfg.Browser.AcceptLanguage == "" {
		cfg.Browser.AcceptLanguage = defaultAcceptLanguage
	}
	if cfg.Browser.WindowWidth == 0 {
		cfg.Browser.WindowWidth = defaultWindowWidth
	}
	if cfg.Browser.WindowHeight == 0 {
		cfg.Browser.WindowHeight = defaultWindowHeight
	}
}

func applyYouTubeDefaults(cfg *Config) {
	yt := &cfg.YouTube
	if yt.StudioURL == "" {
		yt.StudioURL = defaultStudioURL
	}
	if yt.ScreenshotDir == "" {
		yt.ScreenshotDir = os.TempDir()
	}
	if yt.TypingDelay == 0 {
		yt.TypingDelay = defaultTypingDelay
	}

	t := &yt.Timeouts
	setDefaultDuration(&t.Navigation, 60*time.Second)
	setDefaultDuration(&t.StatusProbe, 30*time.Second)
	setDefaultDuration(&t.StatusSettle, 2*time.Second)
	setDefaultDuration(&t.UploadDialog, 10*time.Second)
	setDefaultDuration(&t.FileInput, 10*time.Second)
	setDefaultDuration(&t.Processing, 5*time.Minute)
	setDefaultDuration(&t.Title, 10*time.Second)
	setDefaultDuration(&t.Field, 5*time.Second)
	setDefaultDuration(&t.Next, 10*time.Second)
	setDefaultDuration(&t.Visibility, 10*time.Second)
	setDefaultDuration(&t.Publish, 10*time.Second)
	setDefaultDuration(&t.ShareURL, 30*time.Second)

	yt.ChecksPoll = yt.ChecksPoll.WithDefaults(time.Second, 10*time.Minute)
	yt.ChallengePoll = yt.ChallengePoll.WithDefaults(time.Second, 5*time.Minute)
	yt.LoginPoll = yt.LoginPoll.WithDefaults(time.Second, 5*time.Minute)
}

func applyInstagramDefaults(cfg *Config) {
	if cfg.Instagram.MaxUploadMB == 0 {
		cfg.Instagram.MaxUploadMB = defaultInstagramMaxUploadMB
	}
	cfg.Instagram.ConfigurePoll = cfg.Instagram.ConfigurePoll.WithDefaults(15*time.Second, 10*time.Minute)
}

// EnsureDirectories creates the upload and session directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.UploadDir, c.SessionsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ProfileDir is the persisted browser profile for YouTube Studio.
func (c *Config) ProfileDir() string {
	return filepath.Join(c.SessionsDir, "chrome_profile")
}

// InstagramSessionDir holds the encrypted Instagram session and its key.
func (c *Config) InstagramSessionDir() string {
	return filepath.Join(c.SessionsDir, "instagram")
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaultDuration(d *time.Duration, def time.Duration) {
	if *d == 0 {
		*d = def
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
