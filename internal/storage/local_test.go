package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "nested", "trims")

		storage, err := NewLocalStorage(tempDir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if storage.TempDir() != tempDir {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), tempDir)
		}

		info, err := os.Stat(tempDir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "video-trimmer")
		if storage.TempDir() != expected {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), expected)
		}
	})
}

func TestLocalStorage_Resolve(t *testing.T) {
	storage := setupTestStorage(t)

	t.Run("joins relative names under the temp dir", func(t *testing.T) {
		path, err := storage.Resolve(context.Background(), "clips/out.mp4")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if want := filepath.Join(storage.TempDir(), "clips", "out.mp4"); path != want {
			t.Errorf("Resolve() = %s, want %s", path, want)
		}
		if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
			t.Errorf("parent directory not created: %v", err)
		}
	})

	for _, name := range []string{"", "/etc/passwd", "../out.mp4", "clips/../../out.mp4"} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := storage.Resolve(context.Background(), name)
			if !errors.Is(err, ErrOutsideTempDir) {
				t.Errorf("Resolve(%q) error = %v, want ErrOutsideTempDir", name, err)
			}
		})
	}

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := storage.Resolve(ctx, "out.mp4"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestLocalStorage_TempPath(t *testing.T) {
	storage := setupTestStorage(t)

	t.Run("reserves an empty file with the extension", func(t *testing.T) {
		path, err := storage.TempPath(context.Background(), "trim", ".mp4")
		if err != nil {
			t.Fatalf("TempPath() error = %v", err)
		}

		base := filepath.Base(path)
		if !strings.HasPrefix(base, "trim_") || !strings.HasSuffix(base, ".mp4") {
			t.Errorf("unexpected file name %q", base)
		}
		if filepath.Dir(path) != storage.TempDir() {
			t.Errorf("file created outside temp dir: %s", path)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("file not created: %v", err)
		}
		if info.Size() != 0 {
			t.Errorf("expected empty file, got %d bytes", info.Size())
		}
	})

	t.Run("paths are unique", func(t *testing.T) {
		a, _ := storage.TempPath(context.Background(), "trim", ".mp4")
		b, _ := storage.TempPath(context.Background(), "trim", ".mp4")
		if a == b {
			t.Errorf("expected distinct paths, got %s twice", a)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.TempPath(ctx, "trim", ".mp4")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Open(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("reads file contents", func(t *testing.T) {
		path := writeTestFile(t, storage, "load data")

		reader, err := storage.Open(ctx, path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = reader.Close() }()

		content, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		if string(content) != "load data" {
			t.Errorf("got %q, want %q", string(content), "load data")
		}
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		_, err := storage.Open(ctx, "/non/existent/file")
		if err == nil {
			t.Error("expected error for non-existent file")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Open(ctx, "/some/path")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Cleanup(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		var paths []string
		for i := 0; i < 3; i++ {
			paths = append(paths, writeTestFile(t, storage, "data"))
		}

		if err := storage.Cleanup(ctx, paths); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}

		for _, p := range paths {
			if _, err := os.Stat(p); !os.IsNotExist(err) {
				t.Errorf("file %s still exists", p)
			}
		}
	})

	t.Run("ignores non-existent files", func(t *testing.T) {
		if err := storage.Cleanup(ctx, []string{"/non/existent/file"}); err != nil {
			t.Errorf("Cleanup() should ignore non-existent files, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.Cleanup(ctx, []string{"/some/path"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Publish(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Publish(context.Background(), "trims/key.mp4", "/some/path")
	if !errors.Is(err, ErrS3NotConfigured) {
		t.Errorf("expected ErrS3NotConfigured, got %v", err)
	}
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()

	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}

// writeTestFile reserves a temp path and fills it with content.
func writeTestFile(t *testing.T, storage *LocalStorage, content string) string {
	t.Helper()

	path, err := storage.TempPath(context.Background(), "test", ".bin")
	if err != nil {
		t.Fatalf("TempPath() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}
