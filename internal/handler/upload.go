package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/dukerupert/convocation/internal/storage"
)

const (
	maxUploadBytes = 10 << 20
	imageField     = "image"
)

var (
	errNotImage = errors.New("image must be a PNG, JPEG, GIF or WebP file")
	errTooLarge = errors.New("image exceeds 10 MiB")
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ObjectStore is the binary storage used for record images.
type ObjectStore interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader, size int64, contentType string) (storage.Object, error)
	Delete(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, key string) (string, error)
}

// media stores and removes the images attached to records.
type media struct {
	objects ObjectStore
	logger  *slog.Logger
}

// saveImage uploads the request's image part to folder. It returns nil when
// the request carried no image. readFields must have parsed the form first.
func (m media) saveImage(r *http.Request, folder string) (*storage.Object, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[imageField]) == 0 {
		return nil, nil
	}
	fh := r.MultipartForm.File[imageField][0]
	if fh.Size > maxUploadBytes {
		return nil, errTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType, body, err := sniffImage(f)
	if err != nil {
		return nil, err
	}

	obj, err := m.objects.Upload(r.Context(), folder, fh.Filename, body, fh.Size, contentType)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// discard deletes key in the background of a failed or superseded write.
// Failures leave an orphaned object and are only logged.
func (m media) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := m.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		m.logger.Warn("delete stored object", "key", key, "error", err)
	}
}

// writeUploadError maps an upload failure to a response.
func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
	case errors.Is(err, errNotImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		writeError(w, http.StatusBadGateway, "failed to store image")
	}
}

func sniffImage(f multipart.File) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	ct := http.DetectContentType(head)
	if !allowedImageTypes[ct] {
		return "", nil, errNotImage
	}
	return ct, io.MultiReader(bytes.NewReader(head), f), nil
}
