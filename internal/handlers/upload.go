package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NunoTeixeiraMota/image-refac/internal/formats"
	"github.com/NunoTeixeiraMota/image-refac/store"
	"github.com/NunoTeixeiraMota/image-refac/types"
)

type uploadedFile struct {
	Name   string  `json:"name"`
	SizeKB float64 `json:"size_kb"`
}

type uploadResponse struct {
	SessionID string         `json:"session_id"`
	Files     []uploadedFile `json:"files"`
}

// Upload accepts multipart files under the "files" field, opens a fresh
// session and stores every file carrying a supported image extension.
// Unsupported files are skipped, not rejected; a request yielding nothing
// usable fails as a whole.
func (h *Handlers) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorJSON(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return
		}
		errorJSON(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		errorJSON(c, http.StatusBadRequest, "no files in request")
		return
	}

	sessionID := store.NewSessionID()
	saved := make([]uploadedFile, 0, len(files))
	skipped := 0
	for _, fh := range files {
		if !formats.IsSupportedInput(fh.Filename) {
			h.logger.Debug("upload skipped", "session", sessionID, "file", fh.Filename)
			skipped++
			continue
		}
		src, err := fh.Open()
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "read upload: "+err.Error())
			return
		}
		name, size, err := h.store.SaveUpload(sessionID, fh.Filename, src)
		src.Close()
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "store upload: "+err.Error())
			return
		}
		saved = append(saved, uploadedFile{Name: name, SizeKB: types.KB(size)})
	}

	if len(saved) == 0 {
		errorJSON(c, http.StatusBadRequest, "no supported image files in request")
		return
	}

	h.metrics.AddUploads(len(saved))
	h.logger.Info("upload accepted", "session", sessionID, "files", len(saved), "skipped", skipped)
	c.JSON(http.StatusOK, uploadResponse{SessionID: sessionID, Files: saved})
}
