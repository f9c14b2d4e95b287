package store

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ZipConversions writes every converted file of the session into w as a
// flat deflate archive. ErrNoFiles is returned when the session has no
// converted output.
func (s *Store) ZipConversions(id string, w io.Writer) error {
	sess, err := s.sessionPaths(id)
	if err != nil {
		return err
	}
	names, err := listDir(sess.ConversionDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return ErrNoFiles
	}

	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := addZipEntry(zw, sess.ConversionDir, name); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, dir, name string) error {
	src, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	// zip.Writer.Create compresses with deflate
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	return nil
}
