package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/NunoTeixeiraMota/image-refac/store"
)

// Preview serves an uploaded original inline, falling back to the converted
// copy when the original is gone.
func (h *Handlers) Preview(c *gin.Context) {
	id := c.Param("session")
	name := c.Param("filename")

	path, err := h.store.ResolveUpload(id, name)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(path); err == nil {
		c.File(path)
		return
	}

	path, err = h.store.ResolveConversion(id, name)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(path); err == nil {
		c.File(path)
		return
	}
	errorJSON(c, http.StatusNotFound, "file not found")
}

// Download serves one converted file as an attachment.
func (h *Handlers) Download(c *gin.Context) {
	id := c.Param("session")
	name := c.Param("filename")

	path, err := h.store.ResolveConversion(id, name)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(path); err != nil {
		errorJSON(c, http.StatusNotFound, "file not found")
		return
	}
	c.FileAttachment(path, name)
}

// DownloadZip bundles every converted file of the session into one archive.
// The archive is assembled in memory so a failure can still produce a clean
// error status.
func (h *Handlers) DownloadZip(c *gin.Context) {
	id := c.Param("session")

	var buf bytes.Buffer
	err := h.store.ZipConversions(id, &buf)
	switch {
	case errors.Is(err, store.ErrInvalidSessionID):
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrNoFiles):
		errorJSON(c, http.StatusNotFound, "no converted files for session")
		return
	case err != nil:
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="converted_`+shortID(id)+`.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
