package formats

import (
	"path/filepath"
	"sort"
	"strings"
)

// outputAliases maps every accepted output spelling to its canonical
// encoder name. jpg and tif are spellings of jpeg and tiff.
var outputAliases = map[string]string{
	"png":  "png",
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"webp": "webp",
	"bmp":  "bmp",
	"tif":  "tiff",
	"tiff": "tiff",
	"gif":  "gif",
	"ico":  "ico",
}

// inputExts holds the decodable extensions without the leading dot.
// tga and ppm are decode-only and never appear in outputAliases.
var inputExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"bmp":  true,
	"tif":  true,
	"tiff": true,
	"gif":  true,
	"webp": true,
	"ico":  true,
	"tga":  true,
	"ppm":  true,
}

// Normalize lowercases a format name or extension and strips a leading dot.
func Normalize(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
}

// IsSupportedInput reports whether the file name (or bare extension) carries
// an extension the decoder accepts.
func IsSupportedInput(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = name
	}
	return inputExts[Normalize(ext)]
}

// NormalizeOutput resolves a requested output format to its canonical
// encoder name. The second return is false for formats that cannot be
// encoded, including the decode-only inputs tga and ppm.
func NormalizeOutput(format string) (string, bool) {
	canonical, ok := outputAliases[Normalize(format)]
	return canonical, ok
}

// InputExtensions lists the accepted input extensions, dotted and sorted.
func InputExtensions() []string {
	exts := make([]string, 0, len(inputExts))
	for ext := range inputExts {
		exts = append(exts, "."+ext)
	}
	sort.Strings(exts)
	return exts
}

// OutputFormats lists every accepted output spelling, aliases included,
// sorted.
func OutputFormats() []string {
	names := make([]string, 0, len(outputAliases))
	for name := range outputAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
