package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/storage"
)

// UploadHandler accepts image uploads for avatars, galleries and posts.
type UploadHandler struct {
	Store *storage.Store
	Log   *zap.Logger
}

// Upload stores the multipart "file" field and returns its public URL and,
// for decodable images, a thumbnail URL.
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil || fh == nil {
		return jsonErr(c, http.StatusBadRequest, "No file provided")
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	switch err := storage.Validate(contentType, fh.Size); {
	case errors.Is(err, storage.ErrInvalidType):
		return jsonErr(c, http.StatusBadRequest, "Invalid file type. Only images are allowed.")
	case errors.Is(err, storage.ErrTooLarge):
		return jsonErr(c, http.StatusBadRequest, storage.TooLargeMessage)
	}

	src, err := fh.Open()
	if err != nil {
		h.Log.Error("open upload", zap.Error(err))
		return jsonErr(c, http.StatusBadGateway, "Failed to upload file")
	}
	defer src.Close()

	saved, err := h.Store.Save(src, fh.Filename, contentType)
	if err != nil {
		h.Log.Error("save upload", zap.String("filename", fh.Filename), zap.Error(err))
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return jsonErr(c, http.StatusBadRequest, storage.TooLargeMessage)
		case errors.Is(err, storage.ErrCreateDir):
			return jsonErr(c, http.StatusInternalServerError, "Failed to create upload directory")
		case errors.Is(err, storage.ErrWriteFile):
			return jsonErr(c, http.StatusNotImplemented, "Failed to save file")
		}
		return jsonErr(c, http.StatusBadGateway, "Failed to upload file")
	}
	return c.JSON(http.StatusOK, saved)
}
