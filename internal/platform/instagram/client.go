package instagram

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram/session"
	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
	"github.com/PiotrWarzachowski/social-uploader/internal/video"
)

type Option func(*Client)

func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l.With("component", "instagram") }
}

// WithConfigurePoll sets how long and how often clip configuration is
// retried while Instagram is still transcoding.
func WithConfigurePoll(p poll.Policy) Option {
	return func(c *Client) { c.configurePoll = p }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h.Jar == nil {
			h.Jar = c.httpClient.Jar
		}
		c.httpClient = h
	}
}

func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		DeviceSettings: defaultDeviceSettings(),
		Cookies:        make(map[string]string),
		endpoints:      DefaultEndpoints,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Minute,
		},
		logger:        slog.Default().With("component", "instagram"),
		configurePoll: poll.Policy{Interval: 15 * time.Second, Timeout: 10 * time.Minute},
		prepareClip:   video.PrepareClip,
	}

	c.initUUIDs()
	c.setUserAgent()

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) initUUIDs() {
	c.PhoneID = uuid.NewString()
	c.UUID = uuid.NewString()
	c.ClientSessionID = uuid.NewString()
	c.AndroidDeviceID = generateAndroidDeviceID()
}

func generateAndroidDeviceID() string {
	hash := sha256.Sum256([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	return "android-" + hex.EncodeToString(hash[:])[:16]
}

func (c *Client) setUserAgent() {
	ds := c.DeviceSettings
	c.UserAgent = fmt.Sprintf(
		"Instagram %s Android (%d/%s; %s; %s; %s; %s; %s; %s; en_US)",
		ds.AppVersion, ds.AndroidVersion, ds.AndroidRelease, ds.DPI,
		ds.Resolution, ds.Manufacturer, ds.Device, ds.Model, ds.CPU,
	)
}

func defaultDeviceSettings() *session.DeviceSettings {
	return &session.DeviceSettings{
		AppVersion:     "269.0.0.18.75",
		AndroidVersion: 26,
		AndroidRelease: "8.0.0",
		DPI:            "480dpi",
		Resolution:     "1080x1920",
		Manufacturer:   "OnePlus",
		Device:         "devitron",
		Model:          "6T Dev",
		CPU:            "qcom",
		VersionCode:    "314665256",
	}
}

// UserID is taken from the ds_user_id cookie; 0 means not logged in.
func (c *Client) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.Cookies["ds_user_id"]; ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func (c *Client) GetSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.SessionID != "" {
		return c.SessionID
	}
	return c.Cookies["sessionid"]
}

// CSRFToken returns the csrftoken cookie, generating a random token when
// Instagram has not issued one yet.
func (c *Client) CSRFToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.csrfToken != "" {
		return c.csrfToken
	}
	if token, ok := c.Cookies["csrftoken"]; ok {
		c.csrfToken = token
		return token
	}

	b := make([]byte, 32)
	_, _ = rand.Read(b)
	c.csrfToken = hex.EncodeToString(b)
	return c.csrfToken
}

func (c *Client) IsLoggedIn() bool {
	return c.UserID() != 0 && c.GetSessionID() != ""
}

// syncCookies copies cookies from the jar into c.Cookies after a response.
func (c *Client) syncCookies() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, base := range []string{c.endpoints.Web, c.endpoints.API} {
		u, err := url.Parse(base)
		if err != nil {
			continue
		}
		for _, cookie := range c.httpClient.Jar.Cookies(u) {
			c.Cookies[cookie.Name] = cookie.Value
			switch cookie.Name {
			case "sessionid":
				c.SessionID = cookie.Value
			case "csrftoken":
				c.csrfToken = cookie.Value
			case "mid":
				c.Mid = cookie.Value
			}
		}
	}
}

// restoreCookies loads c.Cookies back into the jar for every endpoint.
func (c *Client) restoreCookies() {
	c.mu.RLock()
	var cookies []*http.Cookie
	for name, value := range c.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.mu.RUnlock()

	for _, base := range []string{c.endpoints.Web, c.endpoints.API, c.endpoints.Upload} {
		if u, err := url.Parse(base); err == nil {
			c.httpClient.Jar.SetCookies(u, cookies)
		}
	}
}

// ToSession snapshots everything needed to resume without logging in again.
func (c *Client) ToSession() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cookies := make(map[string]string, len(c.Cookies))
	for k, v := range c.Cookies {
		cookies[k] = v
	}

	return &session.Session{
		Username:       c.Username,
		Cookies:        cookies,
		LastLogin:      c.LastLogin,
		DeviceSettings: c.DeviceSettings,
		Mid:            c.Mid,
		IgWwwClaim:     c.IgWwwClaim,
		UUIDs: map[string]string{
			"phone_id":          c.PhoneID,
			"uuid":              c.UUID,
			"client_session_id": c.ClientSessionID,
			"android_device_id": c.AndroidDeviceID,
		},
	}
}

func NewClientFromSession(stored *session.Session, opts ...Option) (*Client, error) {
	if stored == nil {
		return nil, ErrNotLoggedIn
	}

	c := NewClient(opts...)
	c.Username = stored.Username
	c.LastLogin = stored.LastLogin
	c.Mid = stored.Mid
	c.IgWwwClaim = stored.IgWwwClaim

	if v, ok := stored.UUIDs["phone_id"]; ok {
		c.PhoneID = v
	}
	if v, ok := stored.UUIDs["uuid"]; ok {
		c.UUID = v
	}
	if v, ok := stored.UUIDs["client_session_id"]; ok {
		c.ClientSessionID = v
	}
	if v, ok := stored.UUIDs["android_device_id"]; ok {
		c.AndroidDeviceID = v
	}

	if stored.DeviceSettings != nil {
		c.DeviceSettings = stored.DeviceSettings
		c.setUserAgent()
	}

	for k, v := range stored.Cookies {
		c.Cookies[k] = v
	}
	c.SessionID = c.Cookies["sessionid"]
	c.restoreCookies()

	return c, nil
}

func (c *Client) setWebHeaders(req *http.Request) {
	req.Header.Set("User-Agent", webUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("X-CSRFToken", c.CSRFToken())
	req.Header.Set("X-IG-App-ID", IGWebAppID)
	req.Header.Set("X-ASBD-ID", "198387")
	req.Header.Set("X-IG-WWW-Claim", c.wwwClaim())
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", "https://www.instagram.com")
	req.Header.Set("Referer", "https://www.instagram.com/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
}

func (c *Client) setUploadHeaders(req *http.Request) {
	c.setWebHeaders(req)
	req.Header.Set("X-Web-Device-Id", c.UUID)
	req.Header.Set("Referer", "https://www.instagram.com/reels/create/")
}

func (c *Client) setMobileHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-IG-App-ID", IGMobileAppID)
	req.Header.Set("X-IG-Capabilities", "3brTvw==")
	req.Header.Set("X-IG-Connection-Type", "WIFI")
	req.Header.Set("X-IG-Device-ID", c.UUID)
	req.Header.Set("X-IG-Android-ID", c.AndroidDeviceID)
	req.Header.Set("X-CSRFToken", c.CSRFToken())
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
}

func (c *Client) wwwClaim() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.IgWwwClaim == "" {
		return "0"
	}
	return c.IgWwwClaim
}

const webUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// send performs req, reads the whole body and mirrors any new cookies.
func (c *Client) send(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.syncCookies()
	c.logger.Debug("instagram response", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode, "bytes", len(body))

	return resp, body, nil
}

// apiError builds an *APIError from a failed response, falling back to the
// status code when the body is not JSON.
func apiError(statusCode int, body []byte) *APIError {
	var r APIResponse
	if err := json.Unmarshal(body, &r); err != nil || (r.Message == "" && r.ErrorType == "") {
		return &APIError{StatusCode: statusCode, Message: truncate(string(body), 200)}
	}
	return &APIError{StatusCode: statusCode, Message: r.Message, ErrorType: r.ErrorType}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
