package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/invoiceagent/internal/domain"
)

// FileRepository implements usecase.FileRepository on the local filesystem.
type FileRepository struct {
	policy  domain.CollisionPolicy
	retrier *Retrier
	logger  zerolog.Logger
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(policy domain.CollisionPolicy, logger zerolog.Logger) *FileRepository {
	if policy == "" {
		policy = domain.CollisionSuffix
	}

	return &FileRepository{
		policy:  policy,
		retrier: NewRetrier(logger),
		logger:  logger,
	}
}

// List returns the supported images directly inside dir. os.ReadDir sorts
// entries by name, which gives a stable order within a run.
func (r *FileRepository) List(ctx context.Context, dir string) ([]domain.PendingFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.PendingFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !domain.IsSupportedImage(name) {
			continue
		}
		files = append(files, domain.PendingFile{
			Name: name,
			Path: filepath.Join(dir, name),
			Ext:  strings.ToLower(filepath.Ext(name)),
		})
	}

	return files, nil
}

// Read returns the content of the file at path.
func (r *FileRepository) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Archive moves srcPath to outputDir/name, resolving collisions with the
// configured policy.
func (r *FileRepository) Archive(ctx context.Context, srcPath, outputDir, name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid destination name %q", domain.ErrArchive, name)
	}

	finalName, err := r.resolve(outputDir, name)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(outputDir, finalName)
	err = r.retrier.Retry(ctx, func() error {
		return move(srcPath, dst)
	})
	if err != nil {
		return "", fmt.Errorf("%w: move %s to %s: %w", domain.ErrArchive, srcPath, dst, err)
	}

	return finalName, nil
}

// resolve applies the collision policy to name inside dir.
func (r *FileRepository) resolve(dir, name string) (string, error) {
	exists, err := fileExists(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrArchive, err)
	}
	if !exists {
		return name, nil
	}

	switch r.policy {
	case domain.CollisionOverwrite:
		r.logger.Warn().Str("destination", name).Msg("overwriting archived file with the same name")
		return name, nil
	case domain.CollisionReject:
		return "", fmt.Errorf("%w: %w: %s", domain.ErrArchive, domain.ErrDestinationExists, name)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_dup%d%s", stem, counter, ext)
		exists, err := fileExists(filepath.Join(dir, candidate))
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrArchive, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

func fileExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// move renames src to dst, copying across filesystems when rename cannot.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
