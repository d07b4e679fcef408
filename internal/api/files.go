package api

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
)

type fileEntry struct {
	FileID       string         `json:"file_id"`
	OriginalName string         `json:"original_name,omitempty"`
	SizeMB       float64        `json:"size_mb"`
	Created      time.Time      `json:"created"`
	Kind         filestore.Kind `json:"kind"`
}

// localDir is implemented by stores that keep files in one directory.
type localDir interface {
	Dir() string
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return validationf("multipart field %q is required", "file")
	}

	if filestore.KindOf(fh.Filename) == filestore.KindUnknown {
		allowed := append(append([]string{}, filestore.VideoExtensions...), filestore.ImageExtensions...)
		return validationf("unsupported file type %q; allowed: %s", filestore.Ext(fh.Filename), strings.Join(allowed, " "))
	}

	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	saved, err := s.store.Save(c.UserContext(), filepath.Base(fh.Filename), src)
	if err != nil {
		return err
	}

	s.logger.Info("file uploaded", "file_id", saved.ID, "size_mb", saved.SizeMB(), "kind", saved.Kind)

	resp := fiber.Map{
		"success":       true,
		"file_id":       saved.ID,
		"size_mb":       saved.SizeMB(),
		"original_name": fh.Filename,
		"kind":          saved.Kind,
	}
	if ld, ok := s.store.(localDir); ok {
		resp["file_path"] = filepath.Join(ld.Dir(), saved.ID)
	}

	return c.JSON(resp)
}

func (s *Server) handleList(c *fiber.Ctx) error {
	files, err := s.store.List(c.UserContext())
	if err != nil {
		return err
	}

	entries := make([]fileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileEntry{
			FileID:       f.ID,
			OriginalName: f.OriginalName,
			SizeMB:       f.SizeMB(),
			Created:      f.CreatedAt,
			Kind:         f.Kind,
		})
	}

	return c.JSON(fiber.Map{"files": entries, "count": len(entries)})
}

func (s *Server) handleDeleteFile(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.Delete(c.UserContext(), id); err != nil {
		return err
	}

	s.logger.Info("file deleted", "file_id", id)
	return c.JSON(fiber.Map{"success": true, "message": "File deleted"})
}

// resolve checks the extension first, so a wrong type is rejected without
// touching the store, then maps the id to a local path.
func (s *Server) resolve(c *fiber.Ctx, field, id string, allowed []string) (string, error) {
	if id == "" {
		return "", validationf("%s is required", field)
	}
	if !filestore.HasExtension(id, allowed) {
		return "", validationf("%s %q has unsupported extension; allowed: %s", field, id, strings.Join(allowed, " "))
	}
	return s.store.Path(c.UserContext(), id)
}
