package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rankboard/rankboard/pkg/logger"
)

// AssetStore is the binary object store behind the upload endpoint.
type AssetStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(ctx context.Context, key string) (string, error)
}

const maxUploadBytes = 10 << 20 // 10 MiB

// RegisterUploadRoutes registers the image upload endpoint. The endpoint
// accepts a multipart "image" part, optionally deletes a previously
// referenced object ("previous" form field) and returns the public URL of
// the stored object. This sits outside the realtime channel.
func RegisterUploadRoutes(r *gin.Engine, store AssetStore) {
	r.POST("/api/upload", func(c *gin.Context) {
		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing image"})
			return
		}
		if fh.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not an image"})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read upload"})
			return
		}
		defer f.Close()

		key := fmt.Sprintf("images/%s%s", uuid.NewString(), filepath.Ext(fh.Filename))
		ctx := c.Request.Context()
		if err := store.Upload(ctx, key, f, fh.Size, contentType); err != nil {
			logger.Errorf("upload %s: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		// best-effort cleanup of the object this upload replaces
		if prev := c.PostForm("previous"); prev != "" {
			if err := store.Delete(ctx, prev); err != nil {
				logger.Warnf("delete previous object %s: %v", prev, err)
			}
		}

		url, err := store.PublicURL(ctx, key)
		if err != nil {
			logger.Errorf("public url for %s: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "url issuance failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "url": url})
	})
}
