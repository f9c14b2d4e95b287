package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/NunoTeixeiraMota/image-refac/internal/converter"
	"github.com/NunoTeixeiraMota/image-refac/internal/formats"
	"github.com/NunoTeixeiraMota/image-refac/types"
)

type options struct {
	input   string
	outDir  string
	format  string
	policy  types.EncodePolicy
	quality int
	threads int
	resize  bool
	box     types.Dimensions
	verbose bool
}

func main() {
	var (
		format  = flag.String("format", "webp", "output format: webp, png, jpg, jpeg, bmp, tif, tiff, gif or ico")
		method  = flag.String("method", "auto", "encode strategy: auto, lossless or lossy")
		quality = flag.Int("quality", converter.DefaultQuality, "lossy quality, 1-100")
		threads = flag.Int("threads", 0, "worker count, 0 means one per CPU")
		resize  = flag.Bool("resize", false, "scale images to fit the target box, preserving aspect ratio")
		width   = flag.Int("width", 512, "target box width for -resize")
		height  = flag.Int("height", 512, "target box height for -resize")
		out     = flag.String("out", "", "output directory (default: next to the input)")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: imgconv [flags] <file-or-directory>")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	opts := options{
		input:   flag.Arg(0),
		outDir:  *out,
		format:  *format,
		quality: *quality,
		threads: *threads,
		resize:  *resize,
		box:     types.Dimensions{Width: *width, Height: *height},
		verbose: *verbose,
	}

	if _, ok := formats.NormalizeOutput(opts.format); !ok {
		fmt.Fprintf(os.Stderr, "imgconv: unsupported output format %q\n", opts.format)
		os.Exit(2)
	}
	policy, err := types.ParsePolicy(*method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgconv: %v\n", err)
		os.Exit(2)
	}
	opts.policy = policy
	if opts.quality < 1 || opts.quality > 100 {
		fmt.Fprintln(os.Stderr, "imgconv: quality must be between 1 and 100")
		os.Exit(2)
	}
	if opts.threads < 0 {
		fmt.Fprintln(os.Stderr, "imgconv: threads must not be negative")
		os.Exit(2)
	}
	if opts.resize && (opts.box.Width < 1 || opts.box.Height < 1) {
		fmt.Fprintln(os.Stderr, "imgconv: width and height must be positive")
		os.Exit(2)
	}

	os.Exit(run(opts))
}

func run(opts options) int {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	input, err := filepath.Abs(opts.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgconv: %v\n", err)
		return 1
	}
	files, isDir, err := collectInputs(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgconv: %v\n", err)
		return 1
	}

	outDir := opts.outDir
	if outDir == "" {
		if isDir {
			outDir = filepath.Join(filepath.Dir(input), "converted", filepath.Base(input))
		} else {
			outDir = filepath.Dir(input)
		}
	}

	tasks := buildTasks(files, input, isDir, outDir, opts)
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "imgconv: no convertible image files found")
		return 1
	}

	conv := converter.New(logger, nil)
	result, err := conv.RunBatch(tasks, opts.threads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgconv: %v\n", err)
		return 1
	}

	failed := 0
	for _, out := range result.Outcomes {
		printOutcome(out, input, isDir)
		if !out.Success {
			failed++
		}
	}

	fmt.Printf("\nProcessed %d file(s), %d converted, %d failed.\n",
		len(result.Outcomes), len(result.Outcomes)-failed, failed)
	if result.TotalOriginalBytes > 0 {
		fmt.Printf("Total size: %.2f KB -> %.2f KB (%.2f%% reduction)\n",
			types.KB(result.TotalOriginalBytes), types.KB(result.TotalConvertedBytes), result.TotalReductionPct)
	}
	fmt.Printf("Output saved in: %s\n", outDir)

	if failed > 0 {
		return 1
	}
	return 0
}

// collectInputs returns the regular files under root, or root itself when
// it is a file.
func collectInputs(root string) ([]string, bool, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return []string{root}, false, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, true, err
}

// buildTasks pairs every supported input with its output path. Directory
// inputs keep their relative structure below outDir; a single file becomes
// one task. Outputs never overwrite their own input.
func buildTasks(files []string, input string, isDir bool, outDir string, opts options) []types.Task {
	ext := formats.Normalize(opts.format)
	tasks := make([]types.Task, 0, len(files))
	for _, file := range files {
		if !formats.IsSupportedInput(file) {
			fmt.Printf("Skipped unsupported file: %s\n", displayPath(file, input, isDir))
			continue
		}
		rel := filepath.Base(file)
		if isDir {
			if r, err := filepath.Rel(input, file); err == nil {
				rel = r
			}
		}
		stem := strings.TrimSuffix(rel, filepath.Ext(rel))
		outPath := filepath.Join(outDir, stem+"."+ext)
		if outPath == file {
			outPath = filepath.Join(outDir, stem+"_converted."+ext)
		}
		tasks = append(tasks, types.Task{
			InputPath:  file,
			OutputPath: outPath,
			Format:     opts.format,
			Policy:     opts.policy,
			Quality:    opts.quality,
			Resize:     opts.resize,
			TargetBox:  opts.box,
		})
	}
	return tasks
}

func printOutcome(out types.Outcome, input string, isDir bool) {
	rel := displayPath(out.InputPath, input, isDir)
	if !out.Success {
		fmt.Printf("Error processing %s: %s\n", rel, out.Error)
		return
	}
	fmt.Printf("Converted: %s\n"+
		"Dimensions: %s\n"+
		"Method used: %s\n"+
		"Original size: %.2f KB\n"+
		"Converted size: %.2f KB\n"+
		"Size reduction: %.2f%%\n\n",
		rel, out.FinalDims, out.Strategy,
		types.KB(out.OriginalBytes), types.KB(out.ConvertedBytes), out.ReductionPct())
}

func displayPath(path, input string, isDir bool) string {
	if isDir {
		if rel, err := filepath.Rel(input, path); err == nil {
			return rel
		}
	}
	return filepath.Base(path)
}
