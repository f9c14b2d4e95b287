package converter

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	ico "github.com/sergeymakinen/go-ico"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/NunoTeixeiraMota/image-refac/types"
)

// DefaultQuality is used when a task carries a quality outside 1..100.
const DefaultQuality = 90

// maxIcoSide is the largest dimension the ICO container can address.
const maxIcoSide = 256

// encodeCandidate is one parameter set the selector may try for an output.
type encodeCandidate struct {
	strategy string
	write    func(io.Writer, image.Image) error
}

// webpCandidates returns the strategies to try for a WebP output. Auto
// tries lossless before lossy so that lossless wins a size tie.
func webpCandidates(policy types.EncodePolicy, quality int) []encodeCandidate {
	lossless := encodeCandidate{
		strategy: string(types.PolicyLossless),
		write: func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Lossless: true, Quality: 100, Method: 6})
		},
	}
	lossy := encodeCandidate{
		strategy: string(types.PolicyLossy),
		write: func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Quality: quality, Method: 6})
		},
	}
	switch policy {
	case types.PolicyLossless:
		return []encodeCandidate{lossless}
	case types.PolicyLossy:
		return []encodeCandidate{lossy}
	default:
		return []encodeCandidate{lossless, lossy}
	}
}

// fixedCandidate builds the single parameter set used for formats without
// competing strategies. The reported strategy echoes the requested policy.
func fixedCandidate(format string, policy types.EncodePolicy, quality int) (encodeCandidate, error) {
	c := encodeCandidate{strategy: string(policy)}
	switch format {
	case "png":
		enc := &png.Encoder{CompressionLevel: png.BestCompression}
		c.write = func(w io.Writer, img image.Image) error {
			return enc.Encode(w, img)
		}
	case "jpeg":
		c.write = func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		}
	case "gif":
		c.write = func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, &gif.Options{NumColors: 256})
		}
	case "bmp":
		c.write = func(w io.Writer, img image.Image) error {
			return bmp.Encode(w, toEncodable(img))
		}
	case "tiff":
		c.write = func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}
	case "ico":
		c.write = func(w io.Writer, img image.Image) error {
			return ico.Encode(w, toEncodable(img))
		}
	default:
		return encodeCandidate{}, fmt.Errorf("no encoder for format %q", format)
	}
	return c, nil
}

// encodeBest runs every candidate and atomically installs the smallest
// result at dest via rename, so dest only ever holds a complete encode.
// Candidates that fail are logged and skipped; a tie keeps the earlier
// candidate. When every candidate fails, dest is left untouched.
func (c *Converter) encodeBest(img image.Image, dest string, candidates []encodeCandidate) (string, error) {
	bestStrategy := ""
	bestSize := int64(-1)
	for _, cand := range candidates {
		tmp, size, err := encodeToTemp(dest, "."+cand.strategy+".tmp", img, cand.write)
		if err != nil {
			c.logger.Warn("encode candidate failed",
				"strategy", cand.strategy, "output", dest, "error", err)
			continue
		}
		if bestSize >= 0 && size >= bestSize {
			os.Remove(tmp)
			continue
		}
		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
			c.logger.Warn("encode candidate failed",
				"strategy", cand.strategy, "output", dest, "error", err)
			continue
		}
		bestStrategy = cand.strategy
		bestSize = size
	}
	if bestSize < 0 {
		return "", fmt.Errorf("all encode candidates failed for %s", filepath.Base(dest))
	}
	return bestStrategy, nil
}

// encodeToTemp writes one candidate next to dest and reports its path and
// byte size. The temp file is removed on any failure.
func encodeToTemp(dest, suffix string, img image.Image, write func(io.Writer, image.Image) error) (string, int64, error) {
	tmp := dest + suffix
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, err
	}
	if err := write(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", 0, err
	}
	info, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return "", 0, err
	}
	return tmp, info.Size(), nil
}

// normalizeColorModel reshapes decoded pixels for encoders that cannot
// express them. JPEG has no alpha channel, so transparent or paletted
// sources flatten to opaque full color; paletted sources expand before
// WebP encoding.
func normalizeColorModel(img image.Image, format string) image.Image {
	switch format {
	case "jpeg":
		if needsFlatten(img) {
			return flatten(img)
		}
	case "webp":
		if _, ok := img.(*image.Paletted); ok {
			return imaging.Clone(img)
		}
	}
	return img
}

func needsFlatten(img image.Image) bool {
	switch m := img.(type) {
	case *image.Paletted:
		return true
	case interface{ Opaque() bool }:
		return !m.Opaque()
	}
	return false
}

// flatten forces every pixel opaque, keeping the color channels as they
// are rather than compositing against a background.
func flatten(img image.Image) *image.NRGBA {
	flat := imaging.Clone(img)
	for i := 3; i < len(flat.Pix); i += 4 {
		flat.Pix[i] = 0xFF
	}
	return flat
}

// toEncodable hands writers that only understand a fixed set of in-memory
// layouts an NRGBA clone when the source is anything more exotic.
func toEncodable(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.Gray, *image.Paletted:
		return img
	default:
		return imaging.Clone(img)
	}
}
