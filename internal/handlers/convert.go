package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NunoTeixeiraMota/image-refac/internal/converter"
	"github.com/NunoTeixeiraMota/image-refac/internal/formats"
	"github.com/NunoTeixeiraMota/image-refac/store"
	"github.com/NunoTeixeiraMota/image-refac/types"
)

type convertRequest struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Method    string `json:"method"`
	Quality   *int   `json:"quality"`
	Resize    bool   `json:"resize"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Threads   int    `json:"threads"`
}

type convertResult struct {
	Name            string           `json:"name"`
	OutputName      string           `json:"output_name,omitempty"`
	Success         bool             `json:"success"`
	Error           string           `json:"error,omitempty"`
	OriginalSizeKB  float64          `json:"original_size_kb"`
	ConvertedSizeKB float64          `json:"converted_size_kb"`
	ReductionPct    float64          `json:"reduction_pct"`
	OriginalDims    types.Dimensions `json:"original_dimensions"`
	FinalDims       types.Dimensions `json:"final_dimensions"`
	MethodUsed      string           `json:"method_used,omitempty"`
}

type convertResponse struct {
	SessionID         string          `json:"session_id"`
	Results           []convertResult `json:"results"`
	TotalOriginalKB   float64         `json:"total_original_kb"`
	TotalConvertedKB  float64         `json:"total_converted_kb"`
	TotalReductionPct float64         `json:"total_reduction_pct"`
}

// Convert runs one batch over every uploaded file of the session. Missing
// request fields fall back to webp output, auto strategy, quality 90 and a
// 512x512 resize box; only one conversion may run per session at a time.
func (h *Handlers) Convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		errorJSON(c, http.StatusBadRequest, "session_id is required")
		return
	}

	requested := req.Format
	if requested == "" {
		requested = "webp"
	}
	format, ok := formats.NormalizeOutput(requested)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "unsupported output format: "+requested)
		return
	}

	policy, err := types.ParsePolicy(req.Method)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	quality := converter.DefaultQuality
	if req.Quality != nil {
		quality = *req.Quality
	}
	if quality < 1 || quality > 100 {
		errorJSON(c, http.StatusBadRequest, "quality must be between 1 and 100")
		return
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = 512
	}
	if height == 0 {
		height = 512
	}
	if req.Resize && (width < 1 || height < 1) {
		errorJSON(c, http.StatusBadRequest, "width and height must be positive")
		return
	}

	threads := req.Threads
	if threads < 0 {
		errorJSON(c, http.StatusBadRequest, "threads must not be negative")
		return
	}
	if threads == 0 {
		threads = h.cfg.Workers
	}

	uploads, err := h.store.ListUploads(req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidSessionID) {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	if len(uploads) == 0 {
		errorJSON(c, http.StatusNotFound, "no uploaded files for session")
		return
	}

	if _, running := h.busy.LoadOrStore(req.SessionID, time.Now()); running {
		errorJSON(c, http.StatusConflict, "conversion already running for this session")
		return
	}
	defer h.busy.Delete(req.SessionID)

	sess, err := h.store.DirsFor(req.SessionID)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	// output names keep the caller's format spelling, e.g. jpg stays .jpg
	ext := formats.Normalize(requested)
	tasks := make([]types.Task, 0, len(uploads))
	for _, name := range uploads {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		tasks = append(tasks, types.Task{
			InputPath:  filepath.Join(sess.UploadDir, name),
			OutputPath: filepath.Join(sess.ConversionDir, stem+"."+ext),
			Format:     format,
			Policy:     policy,
			Quality:    quality,
			Resize:     req.Resize,
			TargetBox:  types.Dimensions{Width: width, Height: height},
		})
	}

	result, err := h.converter.RunBatch(tasks, threads)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, buildConvertResponse(req.SessionID, result))
}

func buildConvertResponse(sessionID string, result types.BatchResult) convertResponse {
	resp := convertResponse{
		SessionID:         sessionID,
		Results:           make([]convertResult, 0, len(result.Outcomes)),
		TotalOriginalKB:   types.KB(result.TotalOriginalBytes),
		TotalConvertedKB:  types.KB(result.TotalConvertedBytes),
		TotalReductionPct: result.TotalReductionPct,
	}
	for _, out := range result.Outcomes {
		res := convertResult{
			Name:           filepath.Base(out.InputPath),
			Success:        out.Success,
			Error:          out.Error,
			OriginalSizeKB: types.KB(out.OriginalBytes),
			OriginalDims:   out.OriginalDims,
			FinalDims:      out.FinalDims,
		}
		if out.Success {
			res.OutputName = filepath.Base(out.OutputPath)
			res.ConvertedSizeKB = types.KB(out.ConvertedBytes)
			res.ReductionPct = out.ReductionPct()
			res.MethodUsed = out.Strategy
		}
		resp.Results = append(resp.Results, res)
	}
	return resp
}
