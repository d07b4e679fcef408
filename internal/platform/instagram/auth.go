package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var sessionUserIDPattern = regexp.MustCompile(`^\d+`)

// Login performs a web login. When Instagram asks for a second factor and
// verificationCode is empty, the returned result carries the identifier and
// the error is ErrTwoFactorRequired.
func (c *Client) Login(ctx context.Context, username, password, verificationCode string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	c.mu.Lock()
	c.Username = username
	c.Password = password
	c.mu.Unlock()

	if c.IsLoggedIn() {
		return &LoginResult{Success: true, UserID: c.UserID(), Username: username}, nil
	}

	if err := c.fetchInitialCookies(ctx); err != nil {
		return nil, fmt.Errorf("failed to get initial cookies: %w", err)
	}

	result, err := c.webLogin(ctx, username, password)
	if err != nil {
		if result != nil && result.TwoFactorRequired && verificationCode != "" {
			return c.webTwoFactorLogin(ctx, username, verificationCode, result.TwoFactorInfo)
		}
		return result, err
	}

	return result, nil
}

func (c *Client) fetchInitialCookies(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Web+"accounts/login/", nil)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", webUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	if _, _, err := c.send(req); err != nil {
		return err
	}

	c.mu.RLock()
	token := c.Cookies["csrftoken"]
	c.mu.RUnlock()

	if token == "" {
		return errors.New("failed to get CSRF token")
	}

	c.logger.Debug("got csrf token", "prefix", truncate(token, 8))
	return nil
}

func (c *Client) webLogin(ctx context.Context, username, password string) (*LoginResult, error) {
	encPassword := fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password)

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", encPassword)
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Web+"accounts/login/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	c.setWebHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "https://www.instagram.com/accounts/login/")

	c.logger.Debug("login request", "username", username)

	resp, body, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	var loginResp WebLoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to parse login response (status %d): %w", resp.StatusCode, err)
	}

	if loginResp.TwoFactorRequired {
		info := loginResp.TwoFactorInfo
		return &LoginResult{TwoFactorRequired: true, TwoFactorInfo: &info}, ErrTwoFactorRequired
	}

	if loginResp.CheckpointURL != "" || loginResp.ErrorType == "checkpoint_required" {
		return &LoginResult{ChallengeRequired: true, ChallengeURL: loginResp.CheckpointURL}, ErrChallengeRequired
	}

	if loginResp.Authenticated {
		return c.completeLogin(username, loginResp.UserID), nil
	}

	msg := loginResp.Message
	if msg == "" {
		msg = ErrBadCredentials.Message
	}
	errType := loginResp.ErrorType
	if errType == "" && !loginResp.User {
		errType = ErrBadCredentials.ErrorType
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg, ErrorType: errType}
	return &LoginResult{Error: apiErr}, apiErr
}

func (c *Client) webTwoFactorLogin(ctx context.Context, username, verificationCode string, info *TwoFactorInfo) (*LoginResult, error) {
	identifier := ""
	if info != nil {
		identifier = info.TwoFactorIdentifier
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("verificationCode", verificationCode)
	form.Set("identifier", identifier)
	form.Set("queryParams", "{}")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Web+"accounts/login/ajax/two_factor/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	c.setWebHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "https://www.instagram.com/accounts/login/")

	resp, body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var loginResp WebLoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to parse 2FA response: %w", err)
	}

	if loginResp.Authenticated {
		return c.completeLogin(username, loginResp.UserID), nil
	}

	return nil, &APIError{StatusCode: resp.StatusCode, Message: loginResp.Message, ErrorType: loginResp.ErrorType}
}

func (c *Client) completeLogin(username, userID string) *LoginResult {
	c.mu.Lock()
	if userID != "" {
		c.Cookies["ds_user_id"] = userID
	}
	c.LastLogin = time.Now().Unix()
	c.mu.Unlock()

	c.restoreCookies()
	c.logger.Info("logged in", "username", username)
	return &LoginResult{Success: true, UserID: c.UserID(), Username: username}
}

// LoginBySessionID adopts an existing browser sessionid cookie. The user id
// is its numeric prefix.
func (c *Client) LoginBySessionID(sessionID string) (*LoginResult, error) {
	if len(sessionID) < 30 {
		return nil, errors.New("invalid session ID")
	}

	c.mu.Lock()
	c.Cookies["sessionid"] = sessionID
	c.SessionID = sessionID
	if match := sessionUserIDPattern.FindString(sessionID); match != "" {
		c.Cookies["ds_user_id"] = match
	}
	c.LastLogin = time.Now().Unix()
	c.mu.Unlock()

	c.restoreCookies()

	return &LoginResult{Success: true, UserID: c.UserID(), Username: c.Username}, nil
}

// CurrentUser fetches the logged-in account. It is the cheapest call that
// proves the session is still accepted.
func (c *Client) CurrentUser(ctx context.Context) (*Account, error) {
	if !c.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.API+"accounts/current_user/?edit=true", nil)
	if err != nil {
		return nil, err
	}
	c.setMobileHeaders(req)

	resp, body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := apiError(resp.StatusCode, body)
		if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && apiErr.ErrorType == "" {
			apiErr.ErrorType = ErrLoginRequired.ErrorType
		}
		return nil, apiErr
	}

	var out currentUserResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse current user: %w", err)
	}
	if out.Status != "ok" {
		return nil, apiError(resp.StatusCode, body)
	}

	return &out.User, nil
}

// Logout ends the web session and forgets all local auth state, even when
// the remote call fails.
func (c *Client) Logout(ctx context.Context) error {
	form := url.Values{}
	form.Set("one_tap_app_login", "true")

	var sendErr error
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Web+"accounts/logout/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		sendErr = err
	} else {
		c.setWebHeaders(req)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, _, sendErr = c.send(req)
	}

	jar, _ := cookiejar.New(nil)

	c.mu.Lock()
	c.Cookies = make(map[string]string)
	c.SessionID = ""
	c.LastLogin = 0
	c.csrfToken = ""
	c.IgWwwClaim = ""
	c.httpClient.Jar = jar
	c.mu.Unlock()

	return sendErr
}

func userIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
