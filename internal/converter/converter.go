package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/NunoTeixeiraMota/image-refac/internal/formats"
	"github.com/NunoTeixeiraMota/image-refac/internal/metrics"
	"github.com/NunoTeixeiraMota/image-refac/types"
)

// Converter turns source images into encoded outputs. It holds no per-task
// state and is safe for concurrent use.
type Converter struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a Converter. A nil logger falls back to slog.Default and a nil
// metrics handle disables instrumentation.
func New(logger *slog.Logger, m *metrics.Metrics) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{logger: logger, metrics: m}
}

// ConvertFile executes one task. Problems never escape as Go errors; they
// are reported inside the outcome so a batch keeps running.
func (c *Converter) ConvertFile(task types.Task) types.Outcome {
	started := time.Now()
	out := types.Outcome{InputPath: task.InputPath, OutputPath: task.OutputPath}

	format, ok := formats.NormalizeOutput(task.Format)
	if !ok {
		return c.fail(out, started, "invalid", fmt.Sprintf("unsupported output format %q", task.Format))
	}

	info, err := os.Stat(task.InputPath)
	if err != nil {
		return c.fail(out, started, format, fmt.Sprintf("stat input: %v", err))
	}
	out.OriginalBytes = info.Size()

	img, err := decodeImage(task.InputPath)
	if err != nil {
		return c.fail(out, started, format, fmt.Sprintf("decode: %v", err))
	}
	bounds := img.Bounds()
	out.OriginalDims = types.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}
	out.FinalDims = out.OriginalDims

	img = normalizeColorModel(img, format)

	if task.Resize {
		fitted := Fit(out.OriginalDims, task.TargetBox)
		if fitted.Width < 1 || fitted.Height < 1 {
			return c.fail(out, started, format,
				fmt.Sprintf("resize to %s collapses %s to zero pixels", task.TargetBox, out.OriginalDims))
		}
		if fitted != out.OriginalDims {
			img = imaging.Resize(img, fitted.Width, fitted.Height, imaging.Lanczos)
		}
		out.FinalDims = fitted
	}

	// the ICO container cannot address a side above 256
	if format == "ico" && (out.FinalDims.Width > maxIcoSide || out.FinalDims.Height > maxIcoSide) {
		shrunk := Fit(out.FinalDims, types.Dimensions{Width: maxIcoSide, Height: maxIcoSide})
		img = imaging.Resize(img, shrunk.Width, shrunk.Height, imaging.Lanczos)
		out.FinalDims = shrunk
	}

	if err := os.MkdirAll(filepath.Dir(task.OutputPath), 0o755); err != nil {
		return c.fail(out, started, format, fmt.Sprintf("create output dir: %v", err))
	}

	quality := task.Quality
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	var candidates []encodeCandidate
	if format == "webp" {
		candidates = webpCandidates(task.Policy, quality)
	} else {
		cand, err := fixedCandidate(format, task.Policy, quality)
		if err != nil {
			return c.fail(out, started, format, err.Error())
		}
		candidates = []encodeCandidate{cand}
	}

	strategy, err := c.encodeBest(img, task.OutputPath, candidates)
	if err != nil {
		return c.fail(out, started, format, err.Error())
	}
	out.Strategy = strategy

	conv, err := os.Stat(task.OutputPath)
	if err != nil {
		return c.fail(out, started, format, fmt.Sprintf("stat output: %v", err))
	}
	out.ConvertedBytes = conv.Size()
	out.Success = true

	c.metrics.ObserveConversion(format, strategy, "ok", time.Since(started))
	c.metrics.AddConversionBytes(out.OriginalBytes, out.ConvertedBytes)
	c.logger.Debug("converted",
		"input", task.InputPath,
		"output", task.OutputPath,
		"strategy", strategy,
		"dims", out.FinalDims.String(),
		"bytes_in", out.OriginalBytes,
		"bytes_out", out.ConvertedBytes)
	return out
}

func (c *Converter) fail(out types.Outcome, started time.Time, format, msg string) types.Outcome {
	out.Error = msg
	c.metrics.ObserveConversion(format, "", "error", time.Since(started))
	c.logger.Warn("conversion failed", "input", out.InputPath, "error", msg)
	return out
}
