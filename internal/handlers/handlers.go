package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/NunoTeixeiraMota/image-refac/internal/config"
	"github.com/NunoTeixeiraMota/image-refac/internal/converter"
	"github.com/NunoTeixeiraMota/image-refac/internal/formats"
	"github.com/NunoTeixeiraMota/image-refac/internal/metrics"
	"github.com/NunoTeixeiraMota/image-refac/store"
)

// Handlers owns the HTTP surface of the service.
type Handlers struct {
	store     *store.Store
	converter *converter.Converter
	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// busy guards every session against overlapping convert requests
	busy *xsync.Map[string, time.Time]
}

func New(st *store.Store, conv *converter.Converter, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     st,
		converter: conv,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		busy:      xsync.NewMap[string, time.Time](),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/formats", h.Formats)
	api.POST("/upload", h.Upload)
	api.POST("/convert", h.Convert)
	api.GET("/preview/:session/:filename", h.Preview)
	api.GET("/download/:session/:filename", h.Download)
	api.GET("/download-zip/:session", h.DownloadZip)
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Formats lists the accepted input extensions and output formats.
func (h *Handlers) Formats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"input":  formats.InputExtensions(),
		"output": formats.OutputFormats(),
	})
}

func errorJSON(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}
