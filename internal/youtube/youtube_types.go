package youtube

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const Platform = "youtube"

var (
	ErrNotLoggedIn       = errors.New("not logged in, run setup-browser first")
	ErrSessionBusy       = errors.New("browser session is busy with another operation")
	ErrChallengeRequired = errors.New("verification challenge requires manual intervention")
	ErrUploadTimeout     = errors.New("video processing did not finish in time")
)

// StageError reports which workflow stage aborted an upload.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("youtube upload failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Privacy string

const (
	PrivacyPrivate  Privacy = "private"
	PrivacyUnlisted Privacy = "unlisted"
	PrivacyPublic   Privacy = "public"
)

// ParsePrivacy accepts the three visibility names case-insensitively; the
// empty string means private.
func ParsePrivacy(s string) (Privacy, error) {
	switch p := Privacy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PrivacyPrivate, nil
	case PrivacyPrivate, PrivacyUnlisted, PrivacyPublic:
		return p, nil
	default:
		return "", fmt.Errorf("invalid privacy %q: must be private, unlisted or public", s)
	}
}

// Video is a fully resolved upload: every path points at a local file.
type Video struct {
	Path          string
	Title         string
	Description   string
	ThumbnailPath string
	Privacy       Privacy
	MadeForKids   bool
	Tags          []string
}

// UploadResult is returned once the publish click has gone through. VideoID
// and URL stay nil when the share link could not be read back.
type UploadResult struct {
	Success  bool     `json:"success"`
	Platform string   `json:"platform"`
	VideoID  *string  `json:"video_id"`
	URL      *string  `json:"url"`
	Title    string   `json:"title"`
	Privacy  Privacy  `json:"privacy"`
	Warnings []string `json:"warnings,omitempty"`
}

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 5000
)

// UploadRequest is the JSON body of an upload call. Files are referenced by
// store id and resolved to local paths before the driver sees them. FileID
// is accepted as an older name for VideoFileID.
type UploadRequest struct {
	VideoFileID     string   `json:"video_file_id"`
	FileID          string   `json:"file_id,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ThumbnailFileID string   `json:"thumbnail_file_id,omitempty"`
	Privacy         string   `json:"privacy"`
	MadeForKids     bool     `json:"made_for_kids"`
	Tags            []string `json:"tags,omitempty"`
}

// Normalize trims the request, folds FileID into VideoFileID and checks the
// field limits. It returns the parsed privacy.
func (r *UploadRequest) Normalize() (Privacy, error) {
	r.VideoFileID = strings.TrimSpace(r.VideoFileID)
	if r.VideoFileID == "" {
		r.VideoFileID = strings.TrimSpace(r.FileID)
	}
	r.Title = strings.TrimSpace(r.Title)
	r.ThumbnailFileID = strings.TrimSpace(r.ThumbnailFileID)

	switch {
	case r.VideoFileID == "":
		return "", errors.New("video_file_id is required")
	case r.Title == "":
		return "", errors.New("title is required")
	case utf8.RuneCountInString(r.Title) > MaxTitleLen:
		return "", fmt.Errorf("title must be at most %d characters", MaxTitleLen)
	case utf8.RuneCountInString(r.Description) > MaxDescriptionLen:
		return "", fmt.Errorf("description must be at most %d characters", MaxDescriptionLen)
	}

	return ParsePrivacy(r.Privacy)
}
