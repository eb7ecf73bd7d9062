package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/darekasanga/linerelay/internal/config"
	"github.com/darekasanga/linerelay/internal/imaging"
	"github.com/darekasanga/linerelay/internal/relay"
	"github.com/darekasanga/linerelay/internal/store"
)

const uploadMaxBodyBytes int64 = 32 * 1024 * 1024

type fileStore interface {
	Put(ctx context.Context, path string, content []byte, sha string) (store.StoredFile, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]store.StoredFile, error)
}

// ListResponse is the response for the upload-directory listing.
type ListResponse struct {
	Files []store.StoredFile `json:"files"`
}

// DeleteResponse reports which store paths a delete removed.
type DeleteResponse struct {
	Status  string   `json:"status"`
	Deleted []string `json:"deleted"`
}

// FileManagerHandler exposes the manual management surface over the store:
// direct upload, listing, and deletion of stem pairs.
type FileManagerHandler struct {
	logger    *slog.Logger
	store     fileStore
	uploadDir string
	imageOpts imaging.Options
}

func NewFileManagerHandler(log *slog.Logger, cfg config.Config, publisher *store.Publisher) *FileManagerHandler {
	return newFileManagerHandler(log, cfg, publisher)
}

func newFileManagerHandler(log *slog.Logger, cfg config.Config, fs fileStore) *FileManagerHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FileManagerHandler{
		logger:    log.With(slog.String("handler", "filemanager")),
		store:     fs,
		uploadDir: cfg.GitHub.UploadDir,
		imageOpts: imaging.Options{
			MaxBytes:     cfg.Image.MaxBytes,
			MaxWidth:     cfg.Image.MaxWidth,
			MaxHeight:    cfg.Image.MaxHeight,
			Quality:      cfg.Image.Quality,
			QualityFloor: cfg.Image.QualityFloor,
			QualityStep:  cfg.Image.QualityStep,
		},
	}
}

func (h *FileManagerHandler) Register(e *echo.Echo) {
	e.POST("/upload", h.Upload)
	e.GET("/list", h.List)
	e.DELETE("/delete/:name", h.Delete)
	e.POST("/delete/:name", h.Delete)
}

// Upload accepts a multipart file. Images go through the same normalize and
// downsize pair as relayed messages; anything else is committed as-is.
func (h *FileManagerHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("open upload: %v", err))
	}
	defer func() {
		_ = src.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(src, uploadMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
	}
	if int64(len(data)) > uploadMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("upload too large: max %d bytes", uploadMaxBodyBytes))
	}

	ctx := c.Request().Context()
	stem := relay.NewStem(time.Now())

	if !imaging.IsImage(data) {
		name := stem + rawUploadExtension(fileHeader.Filename)
		stored, err := h.store.Put(ctx, h.storePath(name), data, "")
		if err != nil {
			return h.storeError(err)
		}
		return c.JSON(http.StatusCreated, ListResponse{Files: []store.StoredFile{stored}})
	}

	normalized, err := imaging.Normalize(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("decode image: %v", err))
	}
	resized, err := imaging.Downsize(data, h.imageOpts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("downsize image: %v", err))
	}

	original, err := h.store.Put(ctx, h.storePath(relay.OriginalName(stem)), normalized, "")
	if err != nil {
		return h.storeError(err)
	}
	small, err := h.store.Put(ctx, h.storePath(relay.ResizedName(stem)), resized, "")
	if err != nil {
		return h.storeError(err)
	}

	h.logger.Info("manual upload",
		slog.String("stem", stem),
		slog.String("name", fileHeader.Filename))
	return c.JSON(http.StatusCreated, relay.UploadResult{Original: original, Resized: small})
}

// List returns the current contents of the upload directory.
func (h *FileManagerHandler) List(c echo.Context) error {
	files, err := h.store.List(c.Request().Context(), h.uploadDir)
	if err != nil {
		return h.storeError(err)
	}
	return c.JSON(http.StatusOK, ListResponse{Files: files})
}

// Delete removes both variants belonging to the named file's stem. Missing
// variants count as already deleted, so repeating a delete succeeds.
func (h *FileManagerHandler) Delete(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file name")
	}

	ctx := c.Request().Context()
	original, resized := relay.VariantNames(name)

	deleted := make([]string, 0, 2)
	for _, target := range []string{original, resized} {
		storePath := h.storePath(target)
		err := h.store.Delete(ctx, storePath)
		switch {
		case err == nil:
			deleted = append(deleted, storePath)
		case errors.Is(err, store.ErrNotFound):
			// Already gone.
		default:
			return h.storeError(err)
		}
	}

	h.logger.Info("deleted upload", slog.String("name", name), slog.Any("paths", deleted))
	return c.JSON(http.StatusOK, DeleteResponse{Status: "success", Deleted: deleted})
}

func (h *FileManagerHandler) storePath(name string) string {
	if h.uploadDir == "" {
		return name
	}
	return path.Join(h.uploadDir, name)
}

func (h *FileManagerHandler) storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}

func rawUploadExtension(fileName string) string {
	if ext := path.Ext(fileName); ext != "" {
		return ext
	}
	return ".bin"
}
