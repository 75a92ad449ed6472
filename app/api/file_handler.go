package api

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type FileHandler struct {
	uploadDir string
	logger    *zap.Logger
}

func NewFileHandler(uploadDir string, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// HandleUpload saves a multipart file into the upload directory so it can be
// referenced by path in a later answer request.
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		return err
	}
	h.logger.Info("file uploaded", zap.String("path", path), zap.Int64("size", file.Size))

	return c.JSON(fiber.Map{
		"message":   "file uploaded successfully",
		"file_path": path,
		"filename":  file.Filename,
		"size":      strconv.FormatInt(file.Size, 10),
	})
}
