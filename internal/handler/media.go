package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pickeld/lucy/internal/errors"
	"github.com/pickeld/lucy/internal/richcontent"
)

// MediaHandler serves the inline images and generated .ics calendar
// files richcontent.Processor writes so the image/download URLs in a
// retrieval answer's rich content blocks resolve to something.
type MediaHandler struct {
	processor *richcontent.Processor
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(processor *richcontent.Processor) *MediaHandler {
	return &MediaHandler{processor: processor}
}

// safeJoin resolves name under root, rejecting any path that escapes
// it (e.g. "../../etc/passwd") before it ever reaches the filesystem.
func safeJoin(root, name string) (string, bool) {
	cleaned := filepath.Clean("/" + name)
	full := filepath.Join(root, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// Image godoc
// @Summary      Serve an inline media file
// @Tags         media
// @Produce      octet-stream
// @Param        name  path  string  true  "file name"
// @Success      200
// @Router       /media/images/{name} [get]
func (h *MediaHandler) Image(c *gin.Context) {
	name := c.Param("name")
	path, ok := safeJoin(h.processor.MediaRoot, name)
	if !ok {
		c.Error(errors.NewBadRequestError("invalid media path"))
		return
	}
	c.File(path)
}

// Event godoc
// @Summary      Serve a generated .ics calendar file
// @Tags         media
// @Produce      text/calendar
// @Param        name  path  string  true  "file name"
// @Success      200
// @Router       /media/events/{name} [get]
func (h *MediaHandler) Event(c *gin.Context) {
	name := c.Param("name")
	path, ok := safeJoin(h.processor.EventsDir, name)
	if !ok {
		c.Error(errors.NewBadRequestError("invalid media path"))
		return
	}
	c.Header("Content-Type", "text/calendar")
	c.File(path)
}
