package youtube

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiotrWarzachowski/social-uploader/internal/browser"
	"github.com/PiotrWarzachowski/social-uploader/internal/logging"
	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
)

func testOptions() Options {
	fast := poll.Policy{Interval: time.Millisecond, Timeout: 30 * time.Millisecond}
	return Options{
		Headless:      true,
		StudioURL:     "https://studio.youtube.com",
		ChecksPoll:    fast,
		ChallengePoll: fast,
		LoginPoll:     fast,
	}
}

type fixture struct {
	driver   *Driver
	tab      *fakeStudio
	launcher *fakeLauncher
	profile  *browser.Profile
	video    Video
}

func newFixture(t *testing.T, loggedIn bool) *fixture {
	t.Helper()
	dir := t.TempDir()

	profile, err := browser.NewProfile(filepath.Join(dir, "chrome_profile"))
	require.NoError(t, err)
	if loggedIn {
		require.NoError(t, os.MkdirAll(filepath.Join(profile.Dir, "Default"), 0700))
	}

	videoPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("mp4"), 0644))

	tab := newFakeStudio()
	launcher := &fakeLauncher{tab: tab}

	return &fixture{
		driver:   NewDriver(profile, launcher, testOptions(), logging.Discard()),
		tab:      tab,
		launcher: launcher,
		profile:  profile,
		video: Video{
			Path:        videoPath,
			Title:       "Demo",
			Description: "A demo upload",
			Privacy:     PrivacyUnlisted,
		},
	}
}

func TestUploadVideoSuccess(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.driver.UploadVideo(context.Background(), f.video)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "youtube", res.Platform)
	require.NotNil(t, res.VideoID)
	assert.Equal(t, "dQw4w9WgXcQ", *res.VideoID)
	require.NotNil(t, res.URL)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", *res.URL)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, 3, f.tab.count("Next"))
	assert.True(t, f.tab.called("Publish"))
	assert.False(t, f.tab.called("AttachThumbnail"), "no thumbnail given")
	assert.True(t, f.tab.closed)
	assert.Equal(t, []bool{true}, f.launcher.headless)
	assert.Contains(t, f.tab.screenshots, "youtube_final.png")
	assert.False(t, f.driver.Busy())
}

func TestUploadVideoShareURLFailureStillSucceeds(t *testing.T) {
	f := newFixture(t, true)
	f.tab.errs["ShareURL"] = browser.ErrTimeout

	res, err := f.driver.UploadVideo(context.Background(), f.video)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Nil(t, res.URL)
	assert.Nil(t, res.VideoID)
	assert.Equal(t, "Demo", res.Title)
	assert.Equal(t, PrivacyUnlisted, res.Privacy)
	assert.Equal(t, []string{StageShareURL}, res.Warnings)
	assert.Contains(t, f.tab.screenshots, "youtube_share-url_error.png")
}

func TestUploadVideoFatalStages(t *testing.T) {
	tests := []struct {
		name        string
		failing     string
		wantStage   string
		wantIs      error
		notReached  []string
		alsoFailing []string
	}{
		{
			name:       "attach video",
			failing:    "AttachVideo",
			wantStage:  StageAttachVideo,
			notReached: []string{"AwaitDetails", "FillTitle", "Publish"},
		},
		{
			name:       "processing never finishes",
			failing:    "AwaitDetails",
			wantStage:  StageAwaitProcessing,
			wantIs:     ErrUploadTimeout,
			notReached: []string{"FillTitle", "Next", "Publish"},
		},
		{
			name:       "upload dialog missing",
			failing:    "OpenUploadDialog",
			wantStage:  StageOpenUploadDialog,
			notReached: []string{"AttachVideo"},
		},
		{
			name:        "publish fails after best-effort failures",
			failing:     "Publish",
			wantStage:   StagePublish,
			alsoFailing: []string{"FillTitle", "FillDescription"},
			notReached:  []string{"ShareURL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.tab.errs[tt.failing] = errFake
			for _, name := range tt.alsoFailing {
				f.tab.errs[name] = errFake
			}

			res, err := f.driver.UploadVideo(context.Background(), f.video)
			require.Error(t, err)
			assert.Nil(t, res)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			assert.ErrorIs(t, err, errFake)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}

			for _, name := range tt.notReached {
				assert.False(t, f.tab.called(name), "%s must not run", name)
			}
			assert.True(t, f.tab.closed, "browser must be released")
			assert.Contains(t, f.tab.screenshots, "youtube_"+tt.wantStage+"_error.png")
			assert.False(t, f.driver.Busy())
		})
	}
}

func TestUploadVideoBestEffortFailuresAreWarnings(t *testing.T) {
	f := newFixture(t, true)
	f.tab.errs["FillTitle"] = errFake
	f.tab.errs["SetMadeForKids"] = errFake
	f.tab.errs["SetVisibility"] = errFake

	res, err := f.driver.UploadVideo(context.Background(), f.video)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{StageFillTitle, StageSetAudience, StageSetVisibility}, res.Warnings)
	assert.True(t, f.tab.called("Publish"))
}

func TestUploadVideoSkipsOptionalStages(t *testing.T) {
	f := newFixture(t, true)
	thumb := filepath.Join(filepath.Dir(f.video.Path), "thumb.png")
	require.NoError(t, os.WriteFile(thumb, []byte("png"), 0644))

	f.video.Description = ""
	f.video.ThumbnailPath = thumb

	_, err := f.driver.UploadVideo(context.Background(), f.video)
	require.NoError(t, err)

	assert.False(t, f.tab.called("FillDescription"))
	assert.True(t, f.tab.called("AttachThumbnail"))
}

func TestUploadVideoWaitsForChecks(t *testing.T) {
	f := newFixture(t, true)
	f.tab.nextEnabled = []bool{false, false, true}

	res, err := f.driver.UploadVideo(context.Background(), f.video)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 3, f.tab.count("NextEnabled"))
}

func TestUploadVideoChecksNeverFinish(t *testing.T) {
	f := newFixture(t, true)
	f.tab.nextEnabled = make([]bool, 1000)

	res, err := f.driver.UploadVideo(context.Background(), f.video)
	require.NoError(t, err)
	assert.Contains(t, res.Warnings, StageNextChecks)
	assert.Equal(t, 3, f.tab.count("Next"), "third Next is attempted after the checks wait gives up")
	assert.True(t, f.tab.called("Publish"))
}

func TestUploadVideoCancelledDuringProcessing(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.tab.onAwait = cancel

	_, err := f.driver.UploadVideo(ctx, f.video)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageAwaitProcessing, stageErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUploadTimeout)
	assert.False(t, f.tab.called("FillTitle"))
	assert.True(t, f.tab.closed)
}

func TestUploadVideoChallenge(t *testing.T) {
	tests := []struct {
		name        string
		challenges  []bool
		probeErr    error
		dismissable bool
		wantErr     error
	}{
		{
			name:       "challenge without dismiss control",
			challenges: []bool{true},
			wantErr:    ErrChallengeRequired,
		},
		{
			name:        "challenge dismissed and cleared",
			challenges:  []bool{true, true, false},
			dismissable: true,
		},
		{
			name:        "challenge dismissed but persists",
			challenges:  []bool{true},
			dismissable: true,
			wantErr:     ErrChallengeRequired,
		},
		{
			name:     "probe error counts as clear",
			probeErr: errors.New("target closed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.tab.challenges = tt.challenges
			f.tab.challengeEr = tt.probeErr
			f.tab.dismissable = tt.dismissable

			res, err := f.driver.UploadVideo(context.Background(), f.video)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, res.Success)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageOpenStudio, stageErr.Stage)
			assert.False(t, f.tab.called("OpenUploadDialog"))
			assert.Contains(t, f.tab.screenshots, "youtube_verify_dialog.png")
			assert.True(t, f.tab.closed)
		})
	}
}

func TestUploadVideoRedirectedToLogin(t *testing.T) {
	f := newFixture(t, true)
	f.tab.locations = []string{"https://accounts.google.com/ServiceLogin?continue=studio"}

	_, err := f.driver.UploadVideo(context.Background(), f.video)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestUploadVideoPreconditions(t *testing.T) {
	t.Run("missing video", func(t *testing.T) {
		f := newFixture(t, true)
		f.video.Path = filepath.Join(t.TempDir(), "gone.mp4")

		_, err := f.driver.UploadVideo(context.Background(), f.video)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Zero(t, f.launcher.launches)
	})

	t.Run("missing thumbnail", func(t *testing.T) {
		f := newFixture(t, true)
		f.video.ThumbnailPath = filepath.Join(t.TempDir(), "gone.png")

		_, err := f.driver.UploadVideo(context.Background(), f.video)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Zero(t, f.launcher.launches)
	})

	t.Run("no session", func(t *testing.T) {
		f := newFixture(t, false)

		_, err := f.driver.UploadVideo(context.Background(), f.video)
		assert.ErrorIs(t, err, ErrNotLoggedIn)
		assert.Zero(t, f.launcher.launches)
	})

	t.Run("busy", func(t *testing.T) {
		f := newFixture(t, true)
		release, err := f.driver.acquire()
		require.NoError(t, err)
		defer release()

		_, err = f.driver.UploadVideo(context.Background(), f.video)
		assert.ErrorIs(t, err, ErrSessionBusy)
		assert.True(t, f.driver.Busy())
	})
}

func TestIsLoggedIn(t *testing.T) {
	t.Run("no profile never launches", func(t *testing.T) {
		f := newFixture(t, false)
		assert.False(t, f.driver.IsLoggedIn(context.Background()))
		assert.Zero(t, f.launcher.launches)
	})

	t.Run("studio dashboard", func(t *testing.T) {
		f := newFixture(t, true)
		assert.True(t, f.driver.IsLoggedIn(context.Background()))
		assert.Equal(t, []bool{true}, f.launcher.headless)
		assert.True(t, f.tab.closed)
	})

	t.Run("redirected to google accounts", func(t *testing.T) {
		f := newFixture(t, true)
		f.tab.locations = []string{"https://accounts.google.com/v3/signin/identifier"}
		assert.False(t, f.driver.IsLoggedIn(context.Background()))
	})

	t.Run("navigation failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.tab.errs["Open"] = browser.ErrTimeout
		assert.False(t, f.driver.IsLoggedIn(context.Background()))
		assert.True(t, f.tab.closed)
	})

	t.Run("launch failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.launcher.err = errors.New("chrome not found")
		assert.False(t, f.driver.IsLoggedIn(context.Background()))
	})
}

func TestSetupInteractiveLogin(t *testing.T) {
	t.Run("login detected", func(t *testing.T) {
		f := newFixture(t, false)
		f.tab.locations = []string{
			"https://accounts.google.com/signin",
			"https://accounts.google.com/signin/challenge",
			"https://studio.youtube.com/channel/UC123",
		}

		loc, err := f.driver.SetupInteractiveLogin(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://studio.youtube.com", loc)
		assert.Equal(t, []bool{false}, f.launcher.headless, "login needs a visible browser")
		assert.True(t, f.tab.closed)
	})

	t.Run("timeout is not an error", func(t *testing.T) {
		f := newFixture(t, false)
		f.tab.locations = []string{"https://accounts.google.com/signin"}

		loc, err := f.driver.SetupInteractiveLogin(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://studio.youtube.com", loc, "dashboard url even when login was not seen")
		assert.True(t, f.tab.closed)
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newFixture(t, false)
		f.tab.locations = []string{"https://accounts.google.com/signin"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.driver.SetupInteractiveLogin(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClearSession(t *testing.T) {
	f := newFixture(t, true)
	require.True(t, f.driver.SessionExists())

	require.NoError(t, f.driver.ClearSession())
	assert.False(t, f.driver.SessionExists())

	require.NoError(t, f.driver.ClearSession())
	assert.False(t, f.driver.SessionExists())
	assert.DirExists(t, f.profile.Dir)
}
