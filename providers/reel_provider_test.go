package providers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiotrWarzachowski/social-uploader/internal/logging"
	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram/session"
	"github.com/PiotrWarzachowski/social-uploader/internal/storage"
)

type fakeReelClient struct {
	loginErr    error
	loginResult *instagram.LoginResult
	uploadErr   error
	media       *instagram.Media
	userErr     error

	loginCalls  int
	uploadCalls int
	userCalls   int
}

func (f *fakeReelClient) Login(_ context.Context, username, _, _ string) (*instagram.LoginResult, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return f.loginResult, f.loginErr
	}
	return &instagram.LoginResult{Success: true, UserID: 42, Username: username}, nil
}

func (f *fakeReelClient) UploadClip(_ context.Context, _, _ string, _ instagram.ProgressReporter) (*instagram.Media, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.media, nil
}

func (f *fakeReelClient) CurrentUser(context.Context) (*instagram.Account, error) {
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &instagram.Account{PK: 42, Username: "demo", FullName: "Demo User"}, nil
}

func (f *fakeReelClient) ToSession() *session.Session {
	return &session.Session{Username: "demo", Cookies: map[string]string{"sessionid": "s"}}
}

func newTestProvider(t *testing.T, client *fakeReelClient, opts ...ReelOption) (*ReelProvider, *storage.Storage) {
	t.Helper()

	store, err := storage.NewSessionStorage(t.TempDir())
	require.NoError(t, err)

	opts = append([]ReelOption{
		WithProviderLogger(logging.Discard()),
		WithClientFactory(func(*session.Session) (ReelClient, error) { return client, nil }),
	}, opts...)

	p, err := NewReelProvider(store, Credentials{Username: "demo", Password: "secret"}, opts...)
	require.NoError(t, err)
	return p, store
}

func writeVideo(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reel.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func TestSchemaMismatchClassifier(t *testing.T) {
	c := NewSchemaMismatchClassifier()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"json decode of clips metadata", errors.New("failed to decode configure response: json: cannot unmarshal object into Go struct field Media.media.clips_metadata.audio_type of type string"), true},
		{"validation error text", errors.New("1 validation error for Media"), true},
		{"network failure", errors.New("upload network error: connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, ok := c.Reclassify(tt.err)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.NotEmpty(t, warning)
			}
		})
	}
}

func TestUploadReel(t *testing.T) {
	video := writeVideo(t, 2048)

	t.Run("success", func(t *testing.T) {
		client := &fakeReelClient{media: &instagram.Media{ID: "3100_42", Code: "Cabc123"}}
		p, _ := newTestProvider(t, client)

		res, err := p.UploadReel(context.Background(), video, "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, &ReelResult{
			Success:   true,
			Platform:  "instagram",
			MediaID:   "3100_42",
			MediaCode: "Cabc123",
			URL:       "https://www.instagram.com/reel/Cabc123/",
			Caption:   "hello",
			Type:      "reel",
		}, res)
	})

	t.Run("code falls back to id", func(t *testing.T) {
		client := &fakeReelClient{media: &instagram.Media{ID: "3100_42"}}
		p, _ := newTestProvider(t, client)

		res, err := p.UploadReel(context.Background(), video, "", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://www.instagram.com/reel/3100_42/", res.URL)
	})

	t.Run("schema mismatch is reported as success with warning", func(t *testing.T) {
		client := &fakeReelClient{uploadErr: errors.New("failed to decode configure response: json: cannot unmarshal object into Go struct field Media.media.clips_metadata.audio_type of type string")}
		p, _ := newTestProvider(t, client)

		res, err := p.UploadReel(context.Background(), video, "hello", nil)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "instagram", res.Platform)
		assert.Equal(t, "reel", res.Type)
		assert.NotEmpty(t, res.Warning)
		assert.NotEmpty(t, res.Message)
		assert.Empty(t, res.URL)
	})

	t.Run("genuine failure", func(t *testing.T) {
		cause := errors.New("configure failed: feedback_required")
		client := &fakeReelClient{uploadErr: cause}
		p, _ := newTestProvider(t, client)

		_, err := p.UploadReel(context.Background(), video, "", nil)
		require.ErrorIs(t, err, ErrReelUploadFailed)
		require.ErrorIs(t, err, cause)
	})

	t.Run("custom classifier", func(t *testing.T) {
		client := &fakeReelClient{uploadErr: errors.New("1 validation error for Media")}
		p, _ := newTestProvider(t, client, WithClassifier(SchemaMismatchClassifier{}))

		_, err := p.UploadReel(context.Background(), video, "", nil)
		require.ErrorIs(t, err, ErrReelUploadFailed)
	})

	t.Run("missing file", func(t *testing.T) {
		client := &fakeReelClient{}
		p, _ := newTestProvider(t, client)

		_, err := p.UploadReel(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "", nil)
		require.ErrorIs(t, err, ErrReelUploadFailed)
		require.ErrorIs(t, err, fs.ErrNotExist)
		assert.Zero(t, client.uploadCalls)
	})

	t.Run("too large", func(t *testing.T) {
		client := &fakeReelClient{}
		p, _ := newTestProvider(t, client, WithMaxUploadBytes(1024))

		_, err := p.UploadReel(context.Background(), video, "", nil)
		require.ErrorIs(t, err, ErrVideoTooLarge)
		require.ErrorIs(t, err, ErrReelUploadFailed)
		assert.Zero(t, client.uploadCalls)
	})
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		loginErr error
		result   *instagram.LoginResult
		wantCode string
	}{
		{name: "success", creds: Credentials{Username: "demo", Password: "secret"}},
		{name: "missing credentials", creds: Credentials{Username: "demo"}, wantCode: MissingCredentials},
		{name: "bad password", creds: Credentials{Username: "demo", Password: "x"}, loginErr: instagram.ErrBadCredentials, wantCode: LoginFailed},
		{
			name:     "two factor",
			creds:    Credentials{Username: "demo", Password: "secret"},
			loginErr: instagram.ErrTwoFactorRequired,
			result:   &instagram.LoginResult{TwoFactorRequired: true},
			wantCode: TwoFactorRequired,
		},
		{name: "checkpoint", creds: Credentials{Username: "demo", Password: "secret"}, loginErr: instagram.ErrChallengeRequired, wantCode: ChallengeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeReelClient{loginErr: tt.loginErr, loginResult: tt.result}
			p, store := newTestProvider(t, client)

			res := p.LoginAs(context.Background(), tt.creds)
			assert.Equal(t, tt.wantCode, res.Error)
			assert.Equal(t, tt.wantCode == "", res.Success)
			assert.Equal(t, tt.wantCode == "", store.HasSession())
		})
	}
}

func TestCheckLoginStatus(t *testing.T) {
	t.Run("no stored session skips the probe", func(t *testing.T) {
		client := &fakeReelClient{}
		p, _ := newTestProvider(t, client)

		assert.False(t, p.CheckLoginStatus(context.Background()))
		assert.Zero(t, client.userCalls)
	})

	t.Run("stored and accepted", func(t *testing.T) {
		client := &fakeReelClient{}
		p, store := newTestProvider(t, client)
		require.NoError(t, store.SaveSession(client.ToSession()))

		assert.True(t, p.CheckLoginStatus(context.Background()))
	})

	t.Run("stored but rejected", func(t *testing.T) {
		client := &fakeReelClient{userErr: instagram.ErrLoginRequired}
		p, store := newTestProvider(t, client)
		require.NoError(t, store.SaveSession(client.ToSession()))

		assert.False(t, p.CheckLoginStatus(context.Background()))
	})
}

func TestEnsureLoggedIn(t *testing.T) {
	t.Run("logs in when no session", func(t *testing.T) {
		client := &fakeReelClient{}
		p, store := newTestProvider(t, client)

		require.NoError(t, p.EnsureLoggedIn(context.Background()))
		assert.Equal(t, 1, client.loginCalls)
		assert.True(t, store.HasSession())
	})

	t.Run("valid session skips login", func(t *testing.T) {
		client := &fakeReelClient{}
		p, store := newTestProvider(t, client)
		require.NoError(t, store.SaveSession(client.ToSession()))

		require.NoError(t, p.EnsureLoggedIn(context.Background()))
		assert.Zero(t, client.loginCalls)
	})

	t.Run("login failure", func(t *testing.T) {
		client := &fakeReelClient{loginErr: instagram.ErrBadCredentials}
		p, _ := newTestProvider(t, client)

		require.ErrorIs(t, p.EnsureLoggedIn(context.Background()), ErrLoginFailed)
	})
}

func TestAccountInfoAndLogout(t *testing.T) {
	client := &fakeReelClient{}
	p, store := newTestProvider(t, client)
	require.NoError(t, store.SaveSession(client.ToSession()))

	assert.Equal(t, &AccountInfo{Username: "demo", UserID: "42", FullName: "Demo User"}, p.AccountInfo(context.Background()))

	client.userErr = errors.New("boom")
	assert.Equal(t, &AccountInfo{Username: "demo"}, p.AccountInfo(context.Background()))

	require.NoError(t, p.Logout())
	assert.False(t, store.HasSession())
	require.NoError(t, p.Logout())
}
