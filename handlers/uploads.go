package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/portfolio/portfolio/backend/go-services/internal/config"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	uploadField  = "images"
	uploadFolder = "projects/"
)

// ObjectStore is the slice of object storage the upload handler needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	RemoveFile(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// UploadedImage describes one stored image.
type UploadedImage struct {
	Src string `json:"src"`
	Key string `json:"key"`
	Alt string `json:"alt,omitempty"`
}

type UploadHandler struct {
	store    ObjectStore
	maxSize  int64
	maxFiles int
	log      *zap.Logger
}

func NewUploadHandler(store ObjectStore, limits config.UploadConfig, log *zap.Logger) *UploadHandler {
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = 5 << 20
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadHandler{store: store, maxSize: limits.MaxFileSize, maxFiles: limits.MaxFiles, log: log.Named("uploads")}
}

// Register mounts the upload routes; admin runs before each of them.
func (h *UploadHandler) Register(rg *gin.RouterGroup, admin ...gin.HandlerFunc) {
	u := rg.Group("/uploads", admin...)
	u.POST("/images", h.UploadImages)
	u.DELETE("/images", h.DeleteImages)
}

func (h *UploadHandler) tooLarge() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", h.maxSize>>20)
}

// UploadImages handles POST /uploads/images with multipart field "images".
func (h *UploadHandler) UploadImages(c *gin.Context) {
	// room for every file plus multipart framing
	limit := h.maxSize*int64(h.maxFiles) + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	form, err := c.MultipartForm()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			resource.Fail(c, http.StatusBadRequest, h.tooLarge())
			return
		}
		resource.Fail(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	for field := range form.File {
		if field != uploadField {
			resource.Fail(c, http.StatusBadRequest, "Unexpected field name for file upload.")
			return
		}
	}
	files := form.File[uploadField]
	switch {
	case len(files) == 0:
		resource.Fail(c, http.StatusBadRequest, "No images uploaded")
		return
	case len(files) > h.maxFiles:
		resource.Fail(c, http.StatusBadRequest, fmt.Sprintf("Too many files. Maximum is %d files.", h.maxFiles))
		return
	}
	for _, fh := range files {
		if fh.Size > h.maxSize {
			resource.Fail(c, http.StatusBadRequest, h.tooLarge())
			return
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			resource.Fail(c, http.StatusBadRequest, "Only image files are allowed!")
			return
		}
	}

	out, err := h.put(c.Request.Context(), files)
	if err != nil {
		h.log.Error("image upload failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, "Image upload failed")
		return
	}
	metrics.UploadedImages.Add(float64(len(out)))
	h.log.Info("images uploaded", zap.Int("count", len(out)))
	resource.Success(c, http.StatusCreated, "Images uploaded successfully", out)
}

// put uploads files concurrently. On failure every stored object is removed.
func (h *UploadHandler) put(ctx context.Context, files []*multipart.FileHeader) ([]UploadedImage, error) {
	out := make([]UploadedImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, fh := range files {
		key := uploadFolder + uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		out[i] = UploadedImage{Key: key, Alt: fh.Filename}
		g.Go(func() error {
			f, err := fh.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			return h.store.UploadFile(gctx, key, f, fh.Size, fh.Header.Get("Content-Type"))
		})
	}
	if err := g.Wait(); err != nil {
		for _, img := range out {
			if rmErr := h.store.RemoveFile(context.WithoutCancel(ctx), img.Key); rmErr != nil {
				h.log.Warn("cleanup after failed upload", zap.String("key", img.Key), zap.Error(rmErr))
			}
		}
		return nil, err
	}
	for i := range out {
		out[i].Src = h.store.ObjectURL(out[i].Key)
	}
	return out, nil
}

type deleteImagesRequest struct {
	Keys []string `json:"keys"`
}

// DeleteImages handles DELETE /uploads/images with {"keys": [...]}.
func (h *UploadHandler) DeleteImages(c *gin.Context) {
	var req deleteImagesRequest
	if !decodeBody(c, &req, false) {
		return
	}
	if len(req.Keys) == 0 {
		resource.Fail(c, http.StatusBadRequest, "No image keys provided")
		return
	}
	for _, k := range req.Keys {
		if !strings.HasPrefix(k, uploadFolder) || strings.Contains(k, "..") {
			resource.Fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid image key: %s", k))
			return
		}
	}
	g, ctx := errgroup.WithContext(c.Request.Context())
	for _, k := range req.Keys {
		g.Go(func() error { return h.store.RemoveFile(ctx, k) })
	}
	if err := g.Wait(); err != nil {
		h.log.Error("image delete failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, "Image delete failed")
		return
	}
	h.log.Info("images deleted", zap.Int("count", len(req.Keys)))
	resource.Success(c, http.StatusOK, "Images deleted successfully", gin.H{"deletedCount": len(req.Keys)})
}
