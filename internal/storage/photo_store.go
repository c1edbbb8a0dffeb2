package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/bistiadi/portfolio/pkg/errors"
)

var _ PhotoStore = (*FilesystemPhotoStore)(nil)

// ErrUnsupportedPhotoType indicates the uploaded file is not an accepted image format.
var ErrUnsupportedPhotoType = apperrors.New("UNSUPPORTED_PHOTO_TYPE",
	"Photo must be a JPEG, PNG, GIF or WebP image", http.StatusBadRequest)

// allowedPhotoExtensions maps accepted upload extensions to the canonical form
// used in stored paths.
var allowedPhotoExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".webp": ".webp",
}

// PhotoStore abstracts storage for profile photos. Each user owns at most one
// photo, stored under a directory derived from their username.
type PhotoStore interface {
	// Save stores the photo for the named user, replacing any previous one,
	// and returns the stored path relative to the upload root.
	Save(ctx context.Context, username, filename string, content io.Reader) (string, error)
	// Open returns a readable stream for the stored photo at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Stat returns metadata for the stored photo at path.
	Stat(ctx context.Context, path string) (PhotoFileInfo, error)
	// Delete removes the stored photo and its user directory.
	Delete(ctx context.Context, path string) error
	// Sweep removes user directories not present in the keep set and returns
	// how many were deleted.
	Sweep(ctx context.Context, keep map[string]struct{}) (int, error)
}

// PhotoFileInfo captures size and timestamp metadata for stored photos.
type PhotoFileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FilesystemPhotoStore persists profile photos on the local filesystem.
type FilesystemPhotoStore struct {
	root string
}

// NewFilesystemPhotoStore initialises a filesystem-backed photo store rooted at dir.
func NewFilesystemPhotoStore(dir string) (*FilesystemPhotoStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("photo store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("photo store: ensure root directory: %w", err)
	}
	return &FilesystemPhotoStore{root: dir}, nil
}

// Save writes the photo under "<username>/photo<ext>". Any previously stored
// photo with a different extension is removed first so each user keeps a
// single photo file.
func (s *FilesystemPhotoStore) Save(_ context.Context, username, filename string, content io.Reader) (string, error) {
	if s == nil {
		return "", errors.New("photo store: store not initialised")
	}
	owner := sanitizePathFragment(username)
	if owner == "" {
		return "", errors.New("photo store: username is required")
	}

	ext, ok := allowedPhotoExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupportedPhotoType
	}

	dir := filepath.Join(s.root, owner)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("photo store: mkdir %s: %w", dir, err)
	}

	for _, canonical := range allowedPhotoExtensions {
		if canonical == ext {
			continue
		}
		_ = os.Remove(filepath.Join(dir, "photo"+canonical))
	}

	fullPath := filepath.Join(dir, "photo"+ext)
	fh, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("photo store: create file: %w", err)
	}
	defer fh.Close()

	if _, err := io.Copy(fh, content); err != nil {
		return "", fmt.Errorf("photo store: write file: %w", err)
	}

	return s.relative(fullPath), nil
}

// Open returns a reader for the stored photo.
func (s *FilesystemPhotoStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if s == nil {
		return nil, errors.New("photo store: store not initialised")
	}
	fh, err := os.Open(s.absolute(path))
	if err != nil {
		return nil, fmt.Errorf("photo store: open file: %w", err)
	}
	return fh, nil
}

// Stat returns file metadata for the stored photo.
func (s *FilesystemPhotoStore) Stat(_ context.Context, path string) (PhotoFileInfo, error) {
	if s == nil {
		return PhotoFileInfo{}, errors.New("photo store: store not initialised")
	}
	fullPath := s.absolute(path)
	info, err := os.Stat(fullPath)
	if err != nil {
		return PhotoFileInfo{}, fmt.Errorf("photo store: stat file: %w", err)
	}
	return PhotoFileInfo{
		Path:    s.relative(fullPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Delete removes the stored photo along with its now-empty user directory.
func (s *FilesystemPhotoStore) Delete(_ context.Context, path string) error {
	if s == nil {
		return errors.New("photo store: store not initialised")
	}
	fullPath := s.absolute(path)
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("photo store: delete file: %w", err)
	}
	dir := filepath.Dir(fullPath)
	if dir != s.root {
		// Best effort; fails harmlessly when other files remain.
		_ = os.Remove(dir)
	}
	return nil
}

// Sweep deletes user directories whose sanitized name is absent from keep.
// It is run by the maintenance job to reclaim space after account removal.
func (s *FilesystemPhotoStore) Sweep(_ context.Context, keep map[string]struct{}) (int, error) {
	if s == nil {
		return 0, errors.New("photo store: store not initialised")
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("photo store: read root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := keep[entry.Name()]; ok {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("photo store: remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (s *FilesystemPhotoStore) absolute(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *FilesystemPhotoStore) relative(fullPath string) string {
	rel, err := filepath.Rel(s.root, fullPath)
	if err != nil {
		return fullPath
	}
	return filepath.ToSlash(rel)
}

// SanitizeUsername exposes the directory naming rule used for stored photos.
func SanitizeUsername(username string) string {
	return sanitizePathFragment(username)
}

func sanitizePathFragment(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	fragment = strings.ToLower(fragment)
	fragment = strings.ReplaceAll(fragment, "..", "")
	fragment = strings.ReplaceAll(fragment, "/", "-")
	fragment = strings.ReplaceAll(fragment, "\\", "-")
	fragment = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, fragment)
	fragment = strings.Trim(fragment, "-.")
	return fragment
}
