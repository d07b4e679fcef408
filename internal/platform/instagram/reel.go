package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PiotrWarzachowski/social-uploader/internal/poll"
	"github.com/PiotrWarzachowski/social-uploader/internal/video"
)

const retryContext = `{"num_step_auto_retry":0,"num_reupload":0,"num_step_manual_retry":0}`

// UploadClip publishes a video as a reel: the video and its cover frame are
// uploaded through rupload, then configure_to_clips is retried until
// Instagram finishes transcoding.
func (c *Client) UploadClip(ctx context.Context, videoPath, caption string, pr ProgressReporter) (*Media, error) {
	if !c.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}

	report(pr, ProgressReport{Step: StepPrepare, Message: "Probing video and extracting cover"})

	clip, err := c.prepareClip(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare clip: %w", err)
	}
	defer clip.Cleanup()

	uploadID := strconv.FormatInt(time.Now().UnixMilli(), 10)

	if err := c.ruploadVideo(ctx, uploadID, clip, pr); err != nil {
		return nil, fmt.Errorf("video upload failed: %w", err)
	}

	report(pr, ProgressReport{Step: StepCover, Message: "Uploading cover frame"})

	if err := c.ruploadCover(ctx, uploadID, clip.Cover); err != nil {
		return nil, fmt.Errorf("cover upload failed: %w", err)
	}

	report(pr, ProgressReport{Step: StepConfigure, Message: "Configuring reel on Instagram"})

	media, err := c.configureClip(ctx, uploadID, clip, caption)
	if err != nil {
		return nil, err
	}

	report(pr, ProgressReport{Step: StepDone, Message: "Reel published"})
	c.logger.Info("reel published", "media_id", media.ID, "code", media.Code)

	return media, nil
}

func uploadName(uploadID string) string {
	return fmt.Sprintf("%s_0_%d", uploadID, rand.Int63n(9000000000)+1000000000)
}

func (c *Client) ruploadVideo(ctx context.Context, uploadID string, clip *video.Clip, pr ProgressReporter) error {
	name := uploadName(uploadID)
	waterfallID := uuid.NewString()

	params, _ := json.Marshal(map[string]string{
		"retry_context":            retryContext,
		"media_type":               "2",
		"xsharing_user_ids":        "[]",
		"upload_id":                uploadID,
		"upload_media_duration_ms": strconv.Itoa(int(clip.Duration * 1000)),
		"upload_media_width":       strconv.Itoa(clip.Width),
		"upload_media_height":      strconv.Itoa(clip.Height),
		"is_clips_video":           "1",
	})
	target := c.endpoints.Upload + "rupload_igvideo/" + name

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	c.setUploadHeaders(getReq)
	getReq.Header.Set("X-Instagram-Rupload-Params", string(params))
	getReq.Header.Set("X_FB_VIDEO_WATERFALL_ID", waterfallID)

	resp, body, err := c.send(getReq)
	if err != nil {
		return fmt.Errorf("handshake network error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("handshake failed: %w", apiError(resp.StatusCode, body))
	}

	file, err := os.Open(clip.Path)
	if err != nil {
		return fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	progressBody := &progressReader{
		reader: file,
		total:  size,
		onProg: func(read, total int64) {
			report(pr, ProgressReport{Step: StepUpload, BytesSent: read, TotalBytes: total})
		},
	}

	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, progressBody)
	if err != nil {
		return err
	}
	postReq.ContentLength = size
	c.setUploadHeaders(postReq)
	postReq.Header.Set("X-Instagram-Rupload-Params", string(params))
	postReq.Header.Set("X_FB_VIDEO_WATERFALL_ID", waterfallID)
	postReq.Header.Set("X-Entity-Name", name)
	postReq.Header.Set("X-Entity-Length", strconv.FormatInt(size, 10))
	postReq.Header.Set("X-Entity-Type", "video/mp4")
	postReq.Header.Set("Offset", "0")
	postReq.Header.Set("Content-Type", "application/octet-stream")

	resp, body, err = c.send(postReq)
	if err != nil {
		return fmt.Errorf("upload network error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, body)
	}

	return nil
}

func (c *Client) ruploadCover(ctx context.Context, uploadID, coverPath string) error {
	data, err := os.ReadFile(coverPath)
	if err != nil {
		return fmt.Errorf("failed to read cover: %w", err)
	}

	name := uploadName(uploadID)
	params, _ := json.Marshal(map[string]string{
		"retry_context":     retryContext,
		"media_type":        "2",
		"upload_id":         uploadID,
		"xsharing_user_ids": "[]",
		"image_compression": `{"lib_name":"moz","lib_version":"3.1.m","quality":"80"}`,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Upload+"rupload_igphoto/"+name, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setUploadHeaders(req)
	req.Header.Set("X-Instagram-Rupload-Params", string(params))
	req.Header.Set("X-Entity-Name", name)
	req.Header.Set("X-Entity-Length", strconv.Itoa(len(data)))
	req.Header.Set("X-Entity-Type", "image/jpeg")
	req.Header.Set("Offset", "0")
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, body, err := c.send(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, body)
	}
	return nil
}

func (c *Client) configureClip(ctx context.Context, uploadID string, clip *video.Clip, caption string) (*Media, error) {
	length := strconv.FormatFloat(clip.Duration, 'f', 3, 64)

	payload, _ := json.Marshal(map[string]any{
		"_uid":                        userIDString(c.UserID()),
		"_uuid":                       c.UUID,
		"device_id":                   c.AndroidDeviceID,
		"upload_id":                   uploadID,
		"caption":                     caption,
		"source_type":                 "4",
		"configure_mode":              "1",
		"clips_share_preview_to_feed": "1",
		"disable_comments":            "0",
		"length":                      length,
		"poster_frame_index":          "0",
		"audio_muted":                 false,
		"filter_type":                 "0",
		"video_result":                "",
		"timezone_offset":             "0",
		"client_timestamp":            strconv.FormatInt(time.Now().Unix(), 10),
		"clips":                       []map[string]string{{"length": length, "source_type": "4"}},
		"extra":                       map[string]int{"source_width": clip.Width, "source_height": clip.Height},
		"device": map[string]any{
			"manufacturer":    c.DeviceSettings.Manufacturer,
			"model":           c.DeviceSettings.Model,
			"android_version": c.DeviceSettings.AndroidVersion,
			"android_release": c.DeviceSettings.AndroidRelease,
		},
	})
	form := url.Values{"signed_body": {"SIGNATURE." + string(payload)}}.Encode()
	target := c.endpoints.API + "media/configure_to_clips/?video=1"

	var media *Media
	attempt := 0

	err := poll.Until(ctx, c.configurePoll, func(ctx context.Context) (bool, error) {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form))
		if err != nil {
			return false, err
		}
		c.setMobileHeaders(req)

		resp, body, err := c.send(req)
		if err != nil {
			return false, fmt.Errorf("network error during configure: %w", err)
		}

		if transcodePending(resp.StatusCode, body) {
			c.logger.Debug("reel still transcoding", "attempt", attempt)
			return false, nil
		}
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("configure failed: %w", apiError(resp.StatusCode, body))
		}

		var out configureClipResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return false, fmt.Errorf("failed to decode configure response: %w", err)
		}
		if out.Status != "ok" {
			return false, fmt.Errorf("configure failed: %w", apiError(resp.StatusCode, body))
		}

		media = &out.Media
		return true, nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		return nil, fmt.Errorf("configure gave up after %d attempts: transcode not finished: %w", attempt, err)
	}
	if err != nil {
		return nil, err
	}

	return media, nil
}

func transcodePending(status int, body []byte) bool {
	if status == http.StatusAccepted {
		return true
	}
	s := string(body)
	return strings.Contains(s, "transcode_not_finished") || strings.Contains(s, "Transcode not finished yet")
}
