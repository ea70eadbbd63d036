package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/infrastructure/logger"
	"multipost/usecase"
)

// multipartOverhead is allowed on top of the media size for the other fields.
const multipartOverhead = 1 << 20

type IPostHandler interface {
	Post(c *gin.Context)
	History(c *gin.Context)
}

type PostHandler struct {
	postUsecase usecase.IPostUsecase
	tmpDir      string
	maxBytes    int64
}

func NewPostHandler(postUsecase usecase.IPostUsecase, tmpDir string, maxSizeMB int64) IPostHandler {
	if maxSizeMB <= 0 {
		maxSizeMB = 512
	}
	return &PostHandler{postUsecase: postUsecase, tmpDir: tmpDir, maxBytes: maxSizeMB << 20}
}

// splitList accepts repeated fields and comma-separated values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.GetLogger().WithField("file", path).WithField("error", err).Warn("Failed to remove upload")
	}
}

func (h *PostHandler) Post(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	fh, err := c.FormFile("media")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "media file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "media file is required"})
		return
	}
	if fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "media file is too large"})
		return
	}

	if err := os.MkdirAll(h.tmpDir, 0o755); err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}
	dst := filepath.Join(h.tmpDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		removeUpload(dst)
		logger.GetLogger().WithField("error", err).Error("Cannot store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}
	defer removeUpload(dst)

	req := &model.PublishRequest{
		FilePath:  dst,
		MimeType:  fh.Header.Get("Content-Type"),
		Caption:   c.PostForm("caption"),
		Title:     c.PostForm("title"),
		Tags:      splitList(c.PostFormArray("tags")),
		Platforms: splitList(c.PostFormArray("platforms")),
	}
	if len(req.Platforms) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": model.ErrNoPlatforms.Error()})
		return
	}

	// Platforms keep running when the client goes away.
	entry, err := h.postUsecase.Post(context.WithoutCancel(c.Request.Context()), req)
	if err != nil {
		if errors.Is(err, model.ErrNoPlatforms) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.GetLogger().WithField("error", err).Error("Publish failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process post", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.PostResponse{OK: true, ID: entry.ID, Results: entry.Results})
}

func (h *PostHandler) History(c *gin.Context) {
	history, err := h.postUsecase.History(c.Request.Context())
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot read history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
		return
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{OK: true, History: history})
}
