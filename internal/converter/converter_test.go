package converter

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NunoTeixeiraMota/image-refac/types"
)

func testConverter() *Converter {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// writeTestPNG writes a gradient image so lossy and lossless encodes differ.
func writeTestPNG(t *testing.T, path string, w, h int, alpha uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7),
				G: uint8(y * 5),
				B: uint8(x + y),
				A: alpha,
			})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	img, err := decodeImage(path)
	require.NoError(t, err, "decode %s", path)
	return img
}

func TestConvertFileToWebPAuto(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.png")
	out := filepath.Join(dir, "out", "src.webp")
	writeTestPNG(t, in, 100, 80, 0xFF)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "webp",
		Policy:     types.PolicyAuto,
		Quality:    90,
	})

	require.True(t, outcome.Success, "error: %s", outcome.Error)
	assert.Contains(t, []string{"lossless", "lossy"}, outcome.Strategy)
	assert.Equal(t, dims(100, 80), outcome.OriginalDims)
	assert.Equal(t, dims(100, 80), outcome.FinalDims)
	assert.Positive(t, outcome.OriginalBytes)
	assert.Positive(t, outcome.ConvertedBytes)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), outcome.ConvertedBytes)
	assert.Equal(t, dims(100, 80), boundsOf(decodeFile(t, out)))

	// the selector must clean up every temp file
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(out), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestConvertFileAutoPicksSmallest(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.png")
	writeTestPNG(t, in, 120, 90, 0xFF)

	conv := testConverter()
	bySize := map[types.EncodePolicy]int64{}
	for _, policy := range []types.EncodePolicy{types.PolicyAuto, types.PolicyLossless, types.PolicyLossy} {
		out := filepath.Join(dir, string(policy)+".webp")
		outcome := conv.ConvertFile(types.Task{
			InputPath:  in,
			OutputPath: out,
			Format:     "webp",
			Policy:     policy,
			Quality:    90,
		})
		require.True(t, outcome.Success, "policy %s: %s", policy, outcome.Error)
		bySize[policy] = outcome.ConvertedBytes
	}

	smallest := bySize[types.PolicyLossless]
	if bySize[types.PolicyLossy] < smallest {
		smallest = bySize[types.PolicyLossy]
	}
	assert.Equal(t, smallest, bySize[types.PolicyAuto])
}

func TestConvertFileForcedPolicies(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.png")
	writeTestPNG(t, in, 60, 40, 0xFF)

	conv := testConverter()
	for _, policy := range []types.EncodePolicy{types.PolicyLossless, types.PolicyLossy} {
		outcome := conv.ConvertFile(types.Task{
			InputPath:  in,
			OutputPath: filepath.Join(dir, "forced_"+string(policy)+".webp"),
			Format:     "webp",
			Policy:     policy,
			Quality:    80,
		})
		require.True(t, outcome.Success, "policy %s: %s", policy, outcome.Error)
		assert.Equal(t, string(policy), outcome.Strategy)
	}
}

func TestConvertFileResizeFitsBox(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "big.png")
	out := filepath.Join(dir, "big.webp")
	writeTestPNG(t, in, 800, 600, 0xFF)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "webp",
		Policy:     types.PolicyLossy,
		Quality:    90,
		Resize:     true,
		TargetBox:  dims(512, 512),
	})

	require.True(t, outcome.Success, "error: %s", outcome.Error)
	assert.Equal(t, dims(800, 600), outcome.OriginalDims)
	assert.Equal(t, dims(512, 384), outcome.FinalDims)
	assert.Equal(t, dims(512, 384), boundsOf(decodeFile(t, out)))
}

func TestConvertFileResizeCollapsingToZeroFails(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "strip.png")
	out := filepath.Join(dir, "strip.webp")
	writeTestPNG(t, in, 1000, 1, 0xFF)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "webp",
		Policy:     types.PolicyAuto,
		Resize:     true,
		TargetBox:  dims(10, 10),
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "zero pixels")
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no output must be written")
}

func TestConvertFileAlphaToJPEG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "alpha.png")
	out := filepath.Join(dir, "alpha.jpeg")
	writeTestPNG(t, in, 64, 64, 0x80)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "jpeg",
		Policy:     types.PolicyAuto,
		Quality:    90,
	})

	require.True(t, outcome.Success, "error: %s", outcome.Error)
	assert.Equal(t, string(types.PolicyAuto), outcome.Strategy)
	assert.Equal(t, dims(64, 64), boundsOf(decodeFile(t, out)))
}

func TestConvertFileOtherEncoders(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.png")
	writeTestPNG(t, in, 48, 32, 0xFF)
	conv := testConverter()

	for _, format := range []string{"png", "bmp", "tiff", "gif"} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(dir, "out."+format)
			outcome := conv.ConvertFile(types.Task{
				InputPath:  in,
				OutputPath: out,
				Format:     format,
				Policy:     types.PolicyAuto,
			})
			require.True(t, outcome.Success, "error: %s", outcome.Error)
			assert.Equal(t, dims(48, 32), boundsOf(decodeFile(t, out)))
		})
	}
}

func TestConvertFileICOShrinksLargeSource(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "large.png")
	out := filepath.Join(dir, "large.ico")
	writeTestPNG(t, in, 1024, 512, 0xFF)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "ico",
		Policy:     types.PolicyAuto,
	})

	require.True(t, outcome.Success, "error: %s", outcome.Error)
	assert.Equal(t, dims(1024, 512), outcome.OriginalDims)
	assert.Equal(t, dims(256, 128), outcome.FinalDims)
	assert.Equal(t, dims(256, 128), boundsOf(decodeFile(t, out)))
}

func TestConvertFileJPGAliasResolves(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.png")
	out := filepath.Join(dir, "src.jpg")
	writeTestPNG(t, in, 32, 32, 0xFF)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "jpg",
		Policy:     types.PolicyAuto,
		Quality:    85,
	})
	require.True(t, outcome.Success, "error: %s", outcome.Error)
	assert.Equal(t, dims(32, 32), boundsOf(decodeFile(t, out)))
}

func TestConvertFileCorruptInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.png")
	out := filepath.Join(dir, "broken.webp")
	require.NoError(t, os.WriteFile(in, []byte("this is not an image"), 0o644))

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: out,
		Format:     "webp",
		Policy:     types.PolicyAuto,
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "decode")
	assert.Positive(t, outcome.OriginalBytes)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestConvertFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  filepath.Join(dir, "nope.png"),
		OutputPath: filepath.Join(dir, "nope.webp"),
		Format:     "webp",
		Policy:     types.PolicyAuto,
	})
	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "stat input")
}

func TestConvertFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.png")
	writeTestPNG(t, in, 8, 8, 0xFF)

	outcome := testConverter().ConvertFile(types.Task{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "src.pdf"),
		Format:     "pdf",
		Policy:     types.PolicyAuto,
	})
	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "unsupported output format")
}

func boundsOf(img image.Image) types.Dimensions {
	b := img.Bounds()
	return types.Dimensions{Width: b.Dx(), Height: b.Dy()}
}
