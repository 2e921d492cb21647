package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdfrag/internal/domain"
)

// ResetDir removes dir and everything under it, then recreates it empty.
func ResetDir(dir string) error {
	clean := filepath.Clean(dir)
	if clean == "." || clean == string(filepath.Separator) || clean == "" {
		return fmt.Errorf("%w: refusing to reset %q", domain.ErrInvalidInput, dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("remove %s: %w", clean, err)
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return fmt.Errorf("create %s: %w", clean, err)
	}
	return nil
}

// SaveUpload writes r to dir under the base name of name. An existing file
// with that name is left untouched and ErrAlreadyExists is returned.
func SaveUpload(dir, name string, r io.Reader) (domain.Upload, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.HasPrefix(base, ".") {
		return domain.Upload{}, fmt.Errorf("%w: invalid upload name %q", domain.ErrInvalidInput, name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.Upload{}, fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, base)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return domain.Upload{Name: base, Path: path}, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, base)
		}
		return domain.Upload{}, fmt.Errorf("create %s: %w", path, err)
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return domain.Upload{}, fmt.Errorf("write %s: %w", path, err)
	}

	return domain.Upload{
		Name:       base,
		Path:       path,
		Size:       size,
		SHA256:     hex.EncodeToString(h.Sum(nil)),
		UploadedAt: time.Now().UTC(),
	}, nil
}
