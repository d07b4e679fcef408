package api

import (
	"fmt"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Social Uploader",
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":       "healthy",
		"sessions_dir": s.opts.SessionsDir,
		"timestamp":    time.Now().Format(time.RFC3339),
	}

	if free, err := diskFree(s.opts.UploadDir); err == nil {
		resp["disk_space_free"] = fmt.Sprintf("%.2f GB", float64(free)/(1<<30))
	} else {
		s.logger.Warn("statfs failed", "dir", s.opts.UploadDir, "error", err)
	}

	return c.JSON(resp)
}

func diskFree(dir string) (uint64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
