package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"image-manager/internal/event"
	"image-manager/internal/storage"
)

var fixedNow = time.Date(2024, time.May, 1, 9, 30, 0, 0, time.Local)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (g *fakeGenerator) Render(_ context.Context, sourcePath string, destPath string) error {
	g.mu.Lock()
	g.calls = append(g.calls, sourcePath)
	g.mu.Unlock()

	if g.err != nil {
		return g.err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("thumb"), 0o644)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeBackup struct {
	mu        sync.Mutex
	scheduled []string
}

func (b *fakeBackup) Schedule(_ string, relPath string, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduled = append(b.scheduled, relPath)
}

type fixture struct {
	store      *storage.Storage
	files      *FileService
	dirs       *DirectoryService
	thumbnails *fakeGenerator
	bus        *event.InMemoryBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	bus := event.NewBus()
	thumbnails := &fakeGenerator{}
	files := NewFileService(store, thumbnails, []string{"image/*"}, "/images", bus)
	files.now = func() time.Time { return fixedNow }

	return &fixture{
		store:      store,
		files:      files,
		dirs:       NewDirectoryService(store, "/images", bus),
		thumbnails: thumbnails,
		bus:        bus,
	}
}

func (f *fixture) save(t *testing.T, filename string, folder string) string {
	t.Helper()
	stored, err := f.files.SaveFile(context.Background(), bytes.NewReader(pngBytes(t)), filename, "image/png", folder)
	require.NoError(t, err)
	return stored.Path
}

func (f *fixture) exists(rel string) bool {
	_, err := f.store.Stat(rel)
	return err == nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func entryNames(t *testing.T, f *fixture, folder string) []string {
	t.Helper()
	entries, err := f.dirs.List(context.Background(), folder)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names
}
