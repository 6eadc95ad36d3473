package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/invoiceagent/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFileRepository_List(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.jpg", "c.JpEg", "d.webp", "notes.txt", "scan.pdf", "image.gif"} {
		writeFile(t, dir, name, "x")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))
	writeFile(t, filepath.Join(dir, "nested.png"), "inner.png", "x")

	repo := NewFileRepository(domain.CollisionSuffix, zerolog.Nop())
	files, err := repo.List(context.Background(), dir)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.jpg", "b.PNG", "c.JpEg", "d.webp"}, names)
	assert.Equal(t, ".png", files[1].Ext)
	assert.Equal(t, filepath.Join(dir, "a.jpg"), files[0].Path)
}

func TestFileRepository_ListNoImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.md", "x")
	writeFile(t, dir, "data.csv", "x")

	repo := NewFileRepository(domain.CollisionSuffix, zerolog.Nop())

	files, err := repo.List(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	empty, err := repo.List(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileRepository_ListMissingDir(t *testing.T) {
	repo := NewFileRepository(domain.CollisionSuffix, zerolog.Nop())

	_, err := repo.List(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFileRepository_Archive(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := writeFile(t, in, "scan.png", "invoice")
	writeFile(t, in, "other.png", "untouched")
	writeFile(t, out, "existing.jpg", "old")

	repo := NewFileRepository(domain.CollisionSuffix, zerolog.Nop())
	name, err := repo.Archive(context.Background(), src, out, "2024-03-01_Acme_42.5.jpg")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01_Acme_42.5.jpg", name)

	assert.NoFileExists(t, src)
	assert.Equal(t, []string{"other.png"}, listNames(t, in))
	assert.ElementsMatch(t, []string{"existing.jpg", "2024-03-01_Acme_42.5.jpg"}, listNames(t, out))

	data, err := os.ReadFile(filepath.Join(out, name))
	require.NoError(t, err)
	assert.Equal(t, "invoice", string(data))
}

func TestFileRepository_ArchiveCollisionPolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    domain.CollisionPolicy
		wantName  string
		wantErr   error
		wantFiles []string
		wantOld   string
	}{
		{
			name:      "suffix",
			policy:    domain.CollisionSuffix,
			wantName:  "same_dup2.jpg",
			wantFiles: []string{"same.jpg", "same_dup1.jpg", "same_dup2.jpg"},
			wantOld:   "old",
		},
		{
			name:      "overwrite",
			policy:    domain.CollisionOverwrite,
			wantName:  "same.jpg",
			wantFiles: []string{"same.jpg", "same_dup1.jpg"},
			wantOld:   "new",
		},
		{
			name:      "reject",
			policy:    domain.CollisionReject,
			wantErr:   domain.ErrDestinationExists,
			wantFiles: []string{"same.jpg", "same_dup1.jpg"},
			wantOld:   "old",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := t.TempDir(), t.TempDir()
			src := writeFile(t, in, "scan.png", "new")
			writeFile(t, out, "same.jpg", "old")
			writeFile(t, out, "same_dup1.jpg", "older")

			repo := NewFileRepository(tt.policy, zerolog.Nop())
			name, err := repo.Archive(context.Background(), src, out, "same.jpg")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, errors.Is(err, domain.ErrArchive))
				assert.FileExists(t, src)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, name)
				assert.NoFileExists(t, src)
			}

			assert.ElementsMatch(t, tt.wantFiles, listNames(t, out))

			data, err := os.ReadFile(filepath.Join(out, "same.jpg"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOld, string(data))
		})
	}
}

func TestFileRepository_ArchiveMissingSource(t *testing.T) {
	repo := NewFileRepository(domain.CollisionSuffix, zerolog.Nop())

	_, err := repo.Archive(context.Background(), filepath.Join(t.TempDir(), "gone.png"), t.TempDir(), "x.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrArchive))
}

func TestFileRepository_ArchiveRejectsPathInName(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := writeFile(t, in, "scan.png", "x")

	repo := NewFileRepository(domain.CollisionSuffix, zerolog.Nop())
	_, err := repo.Archive(context.Background(), src, out, "../escape.jpg")
	require.Error(t, err)
	assert.FileExists(t, src)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.png", "payload")
	dst := filepath.Join(dir, "b.png")

	require.NoError(t, copyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
