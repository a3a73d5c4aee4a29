package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/storage"
)

// attachmentField is the multipart field carrying uploaded files.
const attachmentField = "attachments"

// BlobStore persists uploaded files.
type BlobStore interface {
	Save(ctx context.Context, name, mimeType string, r io.Reader) (model.Attachment, error)
	DeleteAll(ctx context.Context, atts []model.Attachment) error
}

// saveUploads stores every file of the attachments field.  Requests that
// are not multipart carry no files.  On failure the files already stored
// are removed again.
func saveUploads(ctx context.Context, c echo.Context, store BlobStore, max int) ([]model.Attachment, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperror.NewBadRequest("invalid multipart form")
	}
	files := form.File[attachmentField]
	if len(files) > max {
		return nil, apperror.NewValidation("too many attachments", fmt.Sprintf("at most %d files are allowed", max))
	}

	saved := make([]model.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			discardUploads(ctx, store, saved)
			return nil, apperror.NewBadRequest("could not read upload " + fh.Filename)
		}
		att, err := store.Save(ctx, fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
		f.Close()
		if err != nil {
			discardUploads(ctx, store, saved)
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, apperror.NewValidation("attachment too large", fh.Filename)
			}
			return nil, apperror.NewInternal("Failed to store attachment").WithCause(err)
		}
		saved = append(saved, att)
	}
	return saved, nil
}

// discardUploads removes blobs whose owning record was never written.
func discardUploads(ctx context.Context, store BlobStore, atts []model.Attachment) {
	if len(atts) == 0 {
		return
	}
	if err := store.DeleteAll(context.WithoutCancel(ctx), atts); err != nil {
		logger.WithComponent("uploads").Warn("orphaned attachments", "count", len(atts), "err", err)
	}
}

// AttachmentOpener reads stored blobs back.
type AttachmentOpener interface {
	Open(key string) (*os.File, error)
}

// AttachmentHandler streams stored attachments.
type AttachmentHandler struct {
	Store AttachmentOpener
}

// Serve answers GET /api/attachments/* with the blob under that key.
func (h *AttachmentHandler) Serve(c echo.Context) error {
	key := strings.TrimPrefix(c.Param("*"), "/")
	f, err := h.Store.Open(key)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
		return apperror.NewNotFound("Attachment not found")
	case err != nil:
		return apperror.NewInternal("Failed to read attachment").WithCause(err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return apperror.NewInternal("Failed to read attachment").WithCause(err)
	}
	http.ServeContent(c.Response(), c.Request(), st.Name(), st.ModTime(), f)
	return nil
}
