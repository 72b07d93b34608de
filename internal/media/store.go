package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-ranking-service/internal/domain"
)

// DefaultDir is the default media directory, also used as the public URL
// prefix.
const DefaultDir = "dynamic_images"

// Kinds of generated media.
const (
	KindScreenshot   = "screenshot"
	KindIllustration = "illustration"
)

// ErrInvalidName is returned for file names that could escape the store.
var ErrInvalidName = errors.New("media: invalid file name")

// Store keeps generated images in a flat directory.
type Store struct {
	dir    string
	prefix string
	now    func() time.Time
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create store dir: %w", err)
	}
	return &Store{dir: dir, prefix: DefaultDir, now: time.Now}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Key derives the file key for a paper: the PMID from its PubMed URL, a URL
// digest for other URLs, or "paper_{id}_{unix}" when there is no URL.
func (s *Store) Key(paperID, paperURL string) string {
	if pmid, ok := domain.PMIDFromURL(paperURL); ok {
		return pmid
	}
	if u := strings.TrimSpace(paperURL); u != "" {
		sum := sha256.Sum256([]byte(u))
		return "url_" + hex.EncodeToString(sum[:6])
	}
	return "paper_" + sanitize(paperID) + "_" + strconv.FormatInt(s.now().Unix(), 10)
}

// FileName returns the file name for a kind and key.
func FileName(kind, key string) string {
	if kind == KindIllustration {
		return "Ai_" + key + ".jpg"
	}
	return "screenshot_" + key + ".jpg"
}

// PublicPath returns the URL path clients use to fetch name.
func (s *Store) PublicPath(name string) string {
	return s.prefix + "/" + name
}

// Exists reports whether name is present and non-empty.
func (s *Store) Exists(name string) bool {
	path, err := s.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Write stores data under name atomically.
func (s *Store) Write(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("media: refusing to write empty file %s", name)
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("media: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("media: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("media: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("media: rename %s: %w", name, err)
	}
	return nil
}

// Open resolves name to a file path inside the store. Names containing
// path separators or "..", and hidden files, are rejected with
// ErrInvalidName; missing files return a domain.NotFoundError.
func (s *Store) Open(name string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", domain.NewNotFoundError("image", name)
	}
	return path, nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "x"
	}
	return b.String()
}
