package converter

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/lmittmann/ppm"
	ico "github.com/sergeymakinen/go-ico"
)

// decodeImage opens and decodes path via the registered magic-number
// sniffers, then retries by extension for containers image.Decode cannot
// identify. TGA in particular carries no magic number at all.
func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err == nil {
		return img, nil
	}

	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tga":
		if img, terr := tga.Decode(f); terr == nil {
			return img, nil
		}
	case ".ico":
		if img, ierr := ico.Decode(f); ierr == nil {
			return img, nil
		}
	case ".ppm":
		if img, perr := ppm.Decode(f); perr == nil {
			return img, nil
		}
	}
	return nil, err
}
