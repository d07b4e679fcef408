package youtube

import (
	"context"
	"errors"
	"fmt"

	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
)

// clearChallenge deals with Google's "Verify it's you" interstitial. A
// failed probe counts as no challenge so a flaky check never blocks uploads.
func (d *Driver) clearChallenge(ctx context.Context, s Studio) error {
	present, err := s.ChallengePresent(ctx)
	if err != nil {
		d.logger.Warn("challenge probe failed, assuming none", "error", err)
		return nil
	}
	if !present {
		return nil
	}

	d.logger.Warn("verification challenge detected")
	d.screenshot(ctx, s, "youtube_verify_dialog.png")

	dismissed, err := s.DismissChallenge(ctx)
	if err != nil {
		return fmt.Errorf("%w: dismiss failed: %v", ErrChallengeRequired, err)
	}
	if !dismissed {
		return ErrChallengeRequired
	}

	d.logger.Info("challenge dismissed, waiting for it to clear")

	err = poll.Until(ctx, d.opts.ChallengePoll, func(ctx context.Context) (bool, error) {
		present, err := s.ChallengePresent(ctx)
		if err != nil {
			return false, nil
		}
		return !present, nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		return fmt.Errorf("%w: challenge still present after %s", ErrChallengeRequired, d.opts.ChallengePoll.Timeout)
	}
	return err
}
