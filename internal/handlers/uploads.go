package handlers

import (
	"errors"
	"mime"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/BayRex1/bayrex-apk/internal/blob"
)

type UploadHandler struct {
	blobs blob.BlobStore
}

func NewUploadHandler(blobs blob.BlobStore) *UploadHandler {
	return &UploadHandler{blobs: blobs}
}

// Serve streams a stored blob. Mounted as /uploads/apks/:name and
// /uploads/icons/:name.
func (h *UploadHandler) Serve(kind blob.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		r, err := h.blobs.Open(c.UserContext(), kind, name)
		if errors.Is(err, blob.ErrInvalidName) {
			return blob.ErrNotFound
		}
		if err != nil {
			return err
		}

		ct := mime.TypeByExtension(filepath.Ext(name))
		if kind == blob.KindAPK {
			ct = "application/vnd.android.package-archive"
			c.Attachment(name)
		}
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		return c.SendStream(r)
	}
}
