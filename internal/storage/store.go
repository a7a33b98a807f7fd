package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store stages uploaded files in a temp directory and promotes them
// into per-organization upload directories once the database row exists.
type Store struct {
	tempDir   string
	uploadDir string
	chunkSize int
}

type Config struct {
	TempDir   string
	UploadDir string
	ChunkSize int
}

const defaultChunkSize = 1024 * 1024

func NewStore(cfg Config) (*Store, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	for _, dir := range []string{cfg.TempDir, cfg.UploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}
	return &Store{
		tempDir:   cfg.TempDir,
		uploadDir: cfg.UploadDir,
		chunkSize: cfg.ChunkSize,
	}, nil
}

// SaveTemp streams an upload into the temp directory under a collision-free
// name and returns the temp path. The original filename survives only as
// its extension.
func (s *Store) SaveTemp(src io.Reader, filename string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	name := fmt.Sprintf("%s_%s", strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
	tmpPath := filepath.Join(s.tempDir, name)

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, s.chunkSize)
	if _, err := io.CopyBuffer(f, src, buf); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return tmpPath, nil
}

// Promote moves a staged file into the organization's upload directory.
// The destination name is prefixed with the current unix timestamp so
// repeated uploads of the same title never clash.
func (s *Store) Promote(tmpPath string, orgID int64, filename string) (string, error) {
	orgDir := filepath.Join(s.uploadDir, fmt.Sprintf("%d", orgID))
	if err := os.MkdirAll(orgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create org dir: %w", err)
	}
	dest := filepath.Join(orgDir, fmt.Sprintf("%d_%s", time.Now().Unix(), sanitize(filename)))
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return dest, nil
}

// Discard removes a staged temp file. Missing files are not an error;
// the goal is just that nothing lingers after an aborted upload.
func (s *Store) Discard(tmpPath string) {
	if tmpPath == "" {
		return
	}
	_ = os.Remove(tmpPath)
}

// Open returns a reader over a promoted file along with its size.
func (s *Store) Open(path string) (io.ReadSeekCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open video file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat video file: %w", err)
	}
	return f, info.Size(), nil
}

// ChunkSize is the buffer size used when streaming file contents.
func (s *Store) ChunkSize() int {
	return s.chunkSize
}

func sanitize(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
