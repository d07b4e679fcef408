package api

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
)

const MaxCaptionLen = 2200

var reelExtensions = []string{".mp4", ".mov"}

type reelUploadRequest struct {
	VideoFileID string `json:"video_file_id"`
	Caption     string `json:"caption"`
}

// logProgress reports each upload step once.
type logProgress struct {
	logger *slog.Logger
	last   string
}

func (p *logProgress) Report(r instagram.ProgressReport) {
	if r.Step == p.last {
		return
	}
	p.last = r.Step
	p.logger.Info("reel upload progress", "step", r.Step, "message", r.Message)
}

func (s *Server) handleReelUpload(c *fiber.Ctx) error {
	var req reelUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return validationf("invalid request body: %v", err)
	}

	req.VideoFileID = strings.TrimSpace(req.VideoFileID)
	if n := utf8.RuneCountInString(req.Caption); n > MaxCaptionLen {
		return validationf("caption must be at most %d characters, got %d", MaxCaptionLen, n)
	}

	videoPath, err := s.resolve(c, "video_file_id", req.VideoFileID, reelExtensions)
	if err != nil {
		return err
	}

	if err := s.reels.EnsureLoggedIn(c.UserContext()); err != nil {
		return err
	}

	res, err := s.reels.UploadReel(c.UserContext(), videoPath, req.Caption, &logProgress{logger: s.logger})
	if err != nil {
		return err
	}

	return c.JSON(res)
}

func (s *Server) handleInstagramStatus(c *fiber.Ctx) error {
	loggedIn := s.reels.CheckLoginStatus(c.UserContext())

	resp := fiber.Map{"logged_in": loggedIn, "account": nil}
	if loggedIn {
		resp["account"] = s.reels.AccountInfo(c.UserContext())
	}

	return c.JSON(resp)
}

func (s *Server) handleInstagramLogout(c *fiber.Ctx) error {
	if err := s.reels.Logout(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logged out from Instagram"})
}
