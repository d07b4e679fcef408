package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
	"github.com/PiotrWarzachowski/social-uploader/internal/youtube"
)

// YouTube thumbnails are narrower than the store's image set.
var thumbnailExtensions = []string{".jpg", ".jpeg", ".png"}

var setupInstructions = []string{
	"1. Login to your Google account",
	"2. Navigate to YouTube Studio",
	"3. Once logged in, close the browser",
	"4. Session will be saved automatically",
}

func (s *Server) handleYouTubeSetup(c *fiber.Ctx) error {
	url, err := s.youtube.SetupInteractiveLogin(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Browser opened. Please login manually.",
		"url":          url,
		"instructions": setupInstructions,
	})
}

// handleYouTubeStatus does not probe while an upload holds the browser; a
// busy driver reports whether a profile exists instead.
func (s *Server) handleYouTubeStatus(c *fiber.Ctx) error {
	exists := s.youtube.SessionExists()
	busy := s.youtube.Busy()

	loggedIn := exists
	if !busy {
		loggedIn = s.youtube.IsLoggedIn(c.UserContext())
	}

	var email *string
	if loggedIn && s.youtube.Email() != "" {
		e := s.youtube.Email()
		email = &e
	}

	return c.JSON(fiber.Map{
		"logged_in":      loggedIn,
		"session_exists": exists,
		"busy":           busy,
		"email":          email,
	})
}

func (s *Server) handleYouTubeUpload(c *fiber.Ctx) error {
	var req youtube.UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return validationf("invalid request body: %v", err)
	}

	privacy, err := req.Normalize()
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	videoPath, err := s.resolve(c, "video_file_id", req.VideoFileID, filestore.VideoExtensions)
	if err != nil {
		return err
	}

	var thumbPath string
	if req.ThumbnailFileID != "" {
		if thumbPath, err = s.resolve(c, "thumbnail_file_id", req.ThumbnailFileID, thumbnailExtensions); err != nil {
			return err
		}
	}

	s.logger.Info("starting YouTube upload", "title", req.Title, "privacy", privacy)

	res, err := s.youtube.UploadVideo(c.UserContext(), youtube.Video{
		Path:          videoPath,
		Title:         req.Title,
		Description:   req.Description,
		ThumbnailPath: thumbPath,
		Privacy:       privacy,
		MadeForKids:   req.MadeForKids,
		Tags:          req.Tags,
	})
	if err != nil {
		return err
	}

	return c.JSON(res)
}

func (s *Server) handleYouTubeClear(c *fiber.Ctx) error {
	if err := s.youtube.ClearSession(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Session cleared"})
}
