package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
)

// FailurePolicy decides whether a failing stage aborts the upload.
type FailurePolicy int

const (
	// Fatal stages abort the upload with a *StageError.
	Fatal FailurePolicy = iota
	// BestEffort stages are logged, recorded as warnings and skipped.
	BestEffort
)

func (p FailurePolicy) String() string {
	if p == Fatal {
		return "fatal"
	}
	return "best-effort"
}

// Stage is one step of the publish workflow.
type Stage struct {
	Name   string
	Policy FailurePolicy
	// CheckChallenge runs the verification interstitial handler after a
	// successful Run.
	CheckChallenge bool
	Skip           func(v Video) bool
	Run            func(ctx context.Context, s Studio, v Video, res *UploadResult) error
}

const (
	StageOpenStudio       = "open-studio"
	StageOpenUploadDialog = "open-upload-dialog"
	StageAttachVideo      = "attach-video"
	StageAwaitProcessing  = "await-processing"
	StageFillTitle        = "fill-title"
	StageFillDescription  = "fill-description"
	StageAttachThumbnail  = "attach-thumbnail"
	StageSetAudience      = "set-audience"
	StageNextDetails      = "next-details"
	StageNextElements     = "next-elements"
	StageNextChecks       = "next-checks"
	StageSetVisibility    = "set-visibility"
	StagePublish          = "publish"
	StageShareURL         = "share-url"
)

func (d *Driver) uploadStages() []Stage {
	return []Stage{
		{
			Name:           StageOpenStudio,
			Policy:         Fatal,
			CheckChallenge: true,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				if err := s.Open(ctx); err != nil {
					return err
				}
				loc, err := s.Location(ctx)
				if err == nil && onGoogleAccounts(loc) {
					return ErrNotLoggedIn
				}
				return nil
			},
		},
		{
			Name:           StageOpenUploadDialog,
			Policy:         Fatal,
			CheckChallenge: true,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				return s.OpenUploadDialog(ctx)
			},
		},
		{
			Name:   StageAttachVideo,
			Policy: Fatal,
			Run: func(ctx context.Context, s Studio, v Video, _ *UploadResult) error {
				return s.AttachVideo(ctx, v.Path)
			},
		},
		{
			Name:           StageAwaitProcessing,
			Policy:         Fatal,
			CheckChallenge: true,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				if err := s.AwaitDetails(ctx); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return fmt.Errorf("%w: %w", ErrUploadTimeout, err)
				}
				return nil
			},
		},
		{
			Name:   StageFillTitle,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, v Video, _ *UploadResult) error {
				return s.FillTitle(ctx, v.Title)
			},
		},
		{
			Name:   StageFillDescription,
			Policy: BestEffort,
			Skip:   func(v Video) bool { return v.Description == "" },
			Run: func(ctx context.Context, s Studio, v Video, _ *UploadResult) error {
				return s.FillDescription(ctx, v.Description)
			},
		},
		{
			Name:   StageAttachThumbnail,
			Policy: BestEffort,
			Skip:   func(v Video) bool { return v.ThumbnailPath == "" },
			Run: func(ctx context.Context, s Studio, v Video, _ *UploadResult) error {
				return s.AttachThumbnail(ctx, v.ThumbnailPath)
			},
		},
		{
			Name:   StageSetAudience,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, v Video, _ *UploadResult) error {
				return s.SetMadeForKids(ctx, v.MadeForKids)
			},
		},
		{
			Name:   StageNextDetails,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				return s.Next(ctx)
			},
		},
		{
			Name:   StageNextElements,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				return s.Next(ctx)
			},
		},
		{
			Name:   StageNextChecks,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				// Copyright checks keep Next disabled until they finish.
				err := poll.Until(ctx, d.opts.ChecksPoll, func(ctx context.Context) (bool, error) {
					enabled, err := s.NextEnabled(ctx)
					if err != nil {
						d.logger.Debug("next button probe failed", "error", err)
						return false, nil
					}
					return enabled, nil
				})
				if errors.Is(err, poll.ErrTimeout) {
					// Still try the click; a disabled button fails on its own.
					return errors.Join(fmt.Errorf("waiting for checks: %w", err), s.Next(ctx))
				}
				if err != nil {
					return fmt.Errorf("waiting for checks: %w", err)
				}
				return s.Next(ctx)
			},
		},
		{
			Name:   StageSetVisibility,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, v Video, _ *UploadResult) error {
				return s.SetVisibility(ctx, v.Privacy)
			},
		},
		{
			Name:   StagePublish,
			Policy: Fatal,
			Run: func(ctx context.Context, s Studio, _ Video, _ *UploadResult) error {
				return s.Publish(ctx)
			},
		},
		{
			Name:   StageShareURL,
			Policy: BestEffort,
			Run: func(ctx context.Context, s Studio, _ Video, res *UploadResult) error {
				link, err := s.ShareURL(ctx)
				if err != nil {
					return err
				}
				res.URL = &link
				if id := ParseVideoID(link); id != "" {
					res.VideoID = &id
				}
				return nil
			},
		},
	}
}

// runStages drives the table in order. Fatal failures stop the run; a
// required challenge or a cancelled context stop it whatever the policy.
func (d *Driver) runStages(ctx context.Context, s Studio, v Video, stages []Stage) (*UploadResult, error) {
	res := &UploadResult{
		Platform: Platform,
		Title:    v.Title,
		Privacy:  v.Privacy,
	}

	for _, st := range stages {
		if st.Skip != nil && st.Skip(v) {
			d.logger.Debug("stage skipped", "stage", st.Name)
			continue
		}

		d.logger.Info("stage started", "stage", st.Name, "policy", st.Policy)

		err := st.Run(ctx, s, v, res)
		if err == nil && st.CheckChallenge {
			err = d.clearChallenge(ctx, s)
		}
		if err == nil {
			continue
		}

		d.screenshot(ctx, s, "youtube_"+st.Name+"_error.png")

		if st.Policy == Fatal || errors.Is(err, ErrChallengeRequired) || ctx.Err() != nil {
			d.logger.Error("stage failed", "stage", st.Name, "error", err)
			return res, &StageError{Stage: st.Name, Err: err}
		}

		d.logger.Warn("stage failed, continuing", "stage", st.Name, "error", err)
		res.Warnings = append(res.Warnings, st.Name)
	}

	res.Success = true
	return res, nil
}

func onGoogleAccounts(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return strings.Contains(loc, googleAccountsHost)
	}
	return strings.EqualFold(u.Hostname(), googleAccountsHost)
}
