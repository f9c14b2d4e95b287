package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	uploadsDirName     = "uploads"
	conversionsDirName = "conversions"
)

var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrInvalidFilename  = errors.New("invalid file name")
	ErrNoFiles          = errors.New("no files in session")
)

// sessionIDPattern admits the ids NewSessionID mints plus anything equally
// safe to join into a path.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Session points at the two directories backing one client session.
type Session struct {
	ID            string
	UploadDir     string
	ConversionDir string
}

// Store manages per-session upload and conversion directories under one
// root. The filesystem is the only state, so all methods are safe for
// concurrent use.
type Store struct {
	root   string
	logger *slog.Logger
}

// New resolves root to an absolute path and creates the uploads and
// conversions parents under it.
func New(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	for _, dir := range []string{filepath.Join(abs, uploadsDirName), filepath.Join(abs, conversionsDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store root: %w", err)
		}
	}
	return &Store{root: abs, logger: logger}, nil
}

// Root returns the absolute data directory.
func (s *Store) Root() string {
	return s.root
}

// NewSessionID mints a fresh filesystem-safe session id.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DirsFor validates id and returns the session directories, creating them
// when absent. Calling it again for the same id is a no-op.
func (s *Store) DirsFor(id string) (Session, error) {
	sess, err := s.sessionPaths(id)
	if err != nil {
		return Session{}, err
	}
	if err := os.MkdirAll(sess.UploadDir, 0o755); err != nil {
		return Session{}, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.MkdirAll(sess.ConversionDir, 0o755); err != nil {
		return Session{}, fmt.Errorf("create conversion dir: %w", err)
	}
	return sess, nil
}

// SaveUpload streams r into the session upload directory under the base
// name of filename. Directory components in filename are discarded, never
// honored.
func (s *Store) SaveUpload(id, filename string, r io.Reader) (string, int64, error) {
	sess, err := s.DirsFor(id)
	if err != nil {
		return "", 0, err
	}
	name, err := sanitizeName(filename)
	if err != nil {
		return "", 0, err
	}
	dst := filepath.Join(sess.UploadDir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	s.logger.Debug("upload stored", "session", id, "file", name, "bytes", n)
	return name, n, nil
}

// ResolveUpload returns the absolute path a named upload would live at.
// The file itself may not exist.
func (s *Store) ResolveUpload(id, filename string) (string, error) {
	return s.resolve(id, filename, uploadsDirName)
}

// ResolveConversion returns the absolute path a named converted file would
// live at.
func (s *Store) ResolveConversion(id, filename string) (string, error) {
	return s.resolve(id, filename, conversionsDirName)
}

func (s *Store) resolve(id, filename, parent string) (string, error) {
	if !sessionIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	name, err := sanitizeName(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, parent, id, name), nil
}

// ListUploads names the regular files in the session upload directory,
// sorted. A missing directory lists as empty.
func (s *Store) ListUploads(id string) ([]string, error) {
	sess, err := s.sessionPaths(id)
	if err != nil {
		return nil, err
	}
	return listDir(sess.UploadDir)
}

// ListConversions names the converted files of the session, sorted.
func (s *Store) ListConversions(id string) ([]string, error) {
	sess, err := s.sessionPaths(id)
	if err != nil {
		return nil, err
	}
	return listDir(sess.ConversionDir)
}

// RemoveSession deletes both session directories.
func (s *Store) RemoveSession(id string) error {
	sess, err := s.sessionPaths(id)
	if err != nil {
		return err
	}
	uerr := os.RemoveAll(sess.UploadDir)
	cerr := os.RemoveAll(sess.ConversionDir)
	if uerr != nil {
		return fmt.Errorf("remove upload dir: %w", uerr)
	}
	if cerr != nil {
		return fmt.Errorf("remove conversion dir: %w", cerr)
	}
	return nil
}

func (s *Store) sessionPaths(id string) (Session, error) {
	if !sessionIDPattern.MatchString(id) {
		return Session{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return Session{
		ID:            id,
		UploadDir:     filepath.Join(s.root, uploadsDirName, id),
		ConversionDir: filepath.Join(s.root, conversionsDirName, id),
	}, nil
}

func sanitizeName(filename string) (string, error) {
	// browsers on windows may send full paths with backslashes
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	// os.ReadDir already sorts by name
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
