package types

import (
	"fmt"
	"math"
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Task describes one input/output file pair. Tasks are immutable once built
// and owned by the worker that executes them.
type Task struct {
	InputPath  string       `json:"input_path"`
	OutputPath string       `json:"output_path"`
	Format     string       `json:"format"`
	Policy     EncodePolicy `json:"policy"`
	Quality    int          `json:"quality"`
	Resize     bool         `json:"resize"`
	TargetBox  Dimensions   `json:"target_box"`
}

// Outcome is the per-file result of one conversion attempt.
type Outcome struct {
	InputPath      string     `json:"input_path"`
	OutputPath     string     `json:"output_path"`
	OriginalBytes  int64      `json:"original_bytes"`
	ConvertedBytes int64      `json:"converted_bytes"`
	OriginalDims   Dimensions `json:"original_dimensions"`
	FinalDims      Dimensions `json:"final_dimensions"`
	Strategy       string     `json:"strategy,omitempty"`
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
}

// ReductionPct reports how much smaller the converted file is, in percent
// rounded to two decimals. Zero when the original size is unknown.
func (o Outcome) ReductionPct() float64 {
	if o.OriginalBytes <= 0 {
		return 0
	}
	return Round2(float64(o.OriginalBytes-o.ConvertedBytes) / float64(o.OriginalBytes) * 100)
}

// BatchResult aggregates the outcomes of one batch run.
type BatchResult struct {
	Outcomes            []Outcome `json:"outcomes"`
	TotalOriginalBytes  int64     `json:"total_original_bytes"`
	TotalConvertedBytes int64     `json:"total_converted_bytes"`
	TotalReductionPct   float64   `json:"total_reduction_pct"`
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// KB converts a byte count to kilobytes rounded to two decimals, the unit
// the API and CLI report sizes in.
func KB(bytes int64) float64 {
	return Round2(float64(bytes) / 1024)
}
