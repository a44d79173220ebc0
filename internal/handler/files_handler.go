package handler

import (
	"errors"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/pkg/storage"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type signedFileOpener interface {
	Open(token string) (*os.File, string, error)
}

// FilesHandler serves files kept on local disk behind signed links.
type FilesHandler struct {
	files signedFileOpener
}

// NewFilesHandler constructs FilesHandler.
func NewFilesHandler(files signedFileOpener) *FilesHandler {
	return &FilesHandler{files: files}
}

// Download godoc
// @Summary Download an uploaded file
// @Tags Files
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FilesHandler) Download(c *gin.Context) {
	file, key, err := h.files.Open(c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidToken), errors.Is(err, storage.ErrExpiredToken), errors.Is(err, storage.ErrInvalidKey):
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "link is invalid or expired"))
		case errors.Is(err, os.ErrNotExist):
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		default:
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		}
		return
	}
	defer file.Close() //nolint:errcheck

	modTime := time.Time{}
	if info, err := file.Stat(); err == nil {
		modTime = info.ModTime()
	}
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, path.Base(key), modTime, file)
}
