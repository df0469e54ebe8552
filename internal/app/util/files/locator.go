package files

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "video-conversion/internal/app/errors"
)

// Locator finds uploaded files in a content-addressed directory laid out as
// {root}/{h[0:2]}/{h[2:4]}/{h}. Each imported storage path also gets an entry under
// {root}/paths/{p[0:2]}/{p}, p being the path digest, linked to the content file.
type Locator struct {
	root string
}

const pathsDir = "paths"

func NewLocator(root string) *Locator {
	return &Locator{root: root}
}

// Path returns where the file with the given content hash lives.
func (l *Locator) Path(contentHash string) (string, error) {
	if err := validHash("content_hash", contentHash); err != nil {
		return "", err
	}
	return filepath.Join(l.root, contentHash[0:2], contentHash[2:4], contentHash), nil
}

// PathEntry returns where the entry for a storage path digest lives.
func (l *Locator) PathEntry(pathHash string) (string, error) {
	if err := validHash("path_hash", pathHash); err != nil {
		return "", err
	}
	return filepath.Join(l.root, pathsDir, pathHash[0:2], pathHash), nil
}

// Open opens the file for a content hash. A missing file yields ErrFileNotFound.
func (l *Locator) Open(contentHash string) (*os.File, int64, error) {
	path, err := l.Path(contentHash)
	if err != nil {
		return nil, 0, err
	}
	return openSized(path, contentHash)
}

// OpenPath opens the file recorded for a storage path digest. A missing entry yields
// ErrFileNotFound even when the same content is stored under another path.
func (l *Locator) OpenPath(pathHash string) (*os.File, int64, error) {
	path, err := l.PathEntry(pathHash)
	if err != nil {
		return nil, 0, err
	}
	return openSized(path, pathHash)
}

func openSized(path, key string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, apperrors.Wrap(apperrors.ErrFileNotFound, key)
		}
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return f, info.Size(), nil
}

// Exists reports whether a file is stored for the hash.
func (l *Locator) Exists(contentHash string) bool {
	path, err := l.Path(contentHash)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Import copies src into the store, records the entry for its path digest and returns
// its content hash.
func (l *Locator) Import(src string) (string, error) {
	hash, err := CalculateFileHash(src)
	if err != nil {
		return "", err
	}
	dst, _ := l.Path(hash)
	if !l.Exists(hash) {
		if err := copyInto(src, dst); err != nil {
			return "", err
		}
	}
	if err := l.linkPath(dst, PathHash(src)); err != nil {
		return "", err
	}
	return hash, nil
}

func copyInto(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".import-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// linkPath points the path digest entry at dst, replacing an older entry. Hard links
// are used where the filesystem allows them, symlinks otherwise.
func (l *Locator) linkPath(dst, pathHash string) error {
	entry, err := l.PathEntry(pathHash)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(entry), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Remove(entry); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace path entry: %w", err)
	}
	if err := os.Link(dst, entry); err == nil {
		return nil
	}
	if err := os.Symlink(dst, entry); err != nil {
		return fmt.Errorf("failed to record path entry: %w", err)
	}
	return nil
}

// CalculateFileHash calculates SHA256 hash of a file
func CalculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// PathHash is the digest of a file's storage path, kept alongside the content hash.
func PathHash(path string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(path)))
	return hex.EncodeToString(sum[:])
}

func validHash(field, h string) error {
	if len(h) < 4 || strings.ContainsAny(h, `/\.`) {
		return apperrors.InvalidField(field, fmt.Sprintf("%q", h))
	}
	if _, err := hex.DecodeString(h); err != nil {
		return apperrors.InvalidField(field, "not hexadecimal")
	}
	return nil
}
