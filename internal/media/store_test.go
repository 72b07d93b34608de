package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-ranking-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)
	return s
}

func TestStore_Key(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	assert.Equal(t, "32594390", s.Key("3", "https://pubmed.ncbi.nlm.nih.gov/32594390/"))
	assert.Equal(t, "32594390", s.Key("3", "HTTPS://PUBMED.NCBI.NLM.NIH.GOV/32594390"))

	other := s.Key("3", "https://example.org/paper")
	assert.Regexp(t, `^url_[0-9a-f]{12}$`, other)
	assert.Equal(t, other, s.Key("4", "https://example.org/paper"))

	assert.Equal(t, "paper_3_1700000000", s.Key("3", ""))
	assert.Equal(t, "paper_x_1700000000", s.Key("../..", " "))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "screenshot_123.jpg", FileName(KindScreenshot, "123"))
	assert.Equal(t, "Ai_123.jpg", FileName(KindIllustration, "123"))
}

func TestStore_WriteExistsOpen(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.Exists("Ai_1.jpg"))
	require.NoError(t, s.Write("Ai_1.jpg", []byte("jpeg")))
	assert.True(t, s.Exists("Ai_1.jpg"))

	path, err := s.Open("Ai_1.jpg")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "dynamic_images/Ai_1.jpg", s.PublicPath("Ai_1.jpg"))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_EmptyFileIsNotReused(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "screenshot_9.jpg"), nil, 0o644))

	assert.False(t, s.Exists("screenshot_9.jpg"))
	assert.Error(t, s.Write("screenshot_9.jpg", nil))
}

func TestStore_OpenRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "../secret", "..", "a/b.jpg", `a\b.jpg`, "/etc/passwd", ".hidden", "x..jpg"} {
		_, err := s.Open(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err := s.Open("missing.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// FuzzStoreOpen checks that no name accepted by the store resolves outside
// its directory.
func FuzzStoreOpen(f *testing.F) {
	for _, seed := range []string{
		"screenshot_abc.png",
		"../secret",
		"..\\..\\windows\\system32",
		"/etc/passwd",
		".hidden",
		"a/b.png",
		"%2e%2e%2fpasswd",
		"name\x00.png",
		"",
	} {
		f.Add(seed)
	}

	dir := f.TempDir()
	s, err := NewStore(dir)
	require.NoError(f, err)

	f.Fuzz(func(t *testing.T, name string) {
		path, err := s.path(name)
		if err != nil {
			return
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == "." {
			t.Fatalf("name %q escapes the store: %q", name, path)
		}
	})
}
