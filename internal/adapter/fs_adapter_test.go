package adapter

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	m "github.com/mouse-blink/goevolve/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}

	return false
}

func TestLocalFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "maze.yaml"), "name: maze\n")

		nestedDir := filepath.Join(root, "nested")
		writeTestFile(t, filepath.Join(nestedDir, "child.yaml"), "name: child\n")

		var visited []string
		err := adapter.Walk(m.Path(root), false, func(path string, _ os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		require.NoError(t, err)

		assert.False(t, containsPath(visited, filepath.Join(nestedDir, "child.yaml")))
		assert.True(t, containsPath(visited, filepath.Join(root, "maze.yaml")))
	})

	t.Run("recursive visits nested files", func(t *testing.T) {
		adapter := NewLocalFSAdapter()

		root := t.TempDir()
		child := filepath.Join(root, "nested", "child.yaml")
		writeTestFile(t, child, "name: child\n")

		var visited []string
		err := adapter.Walk(m.Path(root), true, func(path string, _ os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		require.NoError(t, err)

		assert.True(t, containsPath(visited, child))
	})
}

func TestLocalFSAdapter_Get(t *testing.T) {
	adapter := NewLocalFSAdapter()

	root := t.TempDir()
	top := filepath.Join(root, "maze.yaml")
	nested := filepath.Join(root, "more", "ant.yml")
	writeTestFile(t, top, "name: maze\n")
	writeTestFile(t, nested, "name: ant\n")
	writeTestFile(t, filepath.Join(root, "notes.txt"), "ignored\n")

	t.Run("directory without recursion", func(t *testing.T) {
		docs, err := adapter.Get([]m.Path{m.Path(root)})
		require.NoError(t, err)
		assert.Equal(t, []m.Path{m.Path(top)}, docs)
	})

	t.Run("recursive pattern", func(t *testing.T) {
		docs, err := adapter.Get([]m.Path{m.Path(root + "/...")})
		require.NoError(t, err)
		assert.ElementsMatch(t, []m.Path{m.Path(top), m.Path(nested)}, docs)
	})

	t.Run("file roots are deduplicated", func(t *testing.T) {
		docs, err := adapter.Get([]m.Path{m.Path(top), m.Path(root)})
		require.NoError(t, err)
		assert.Equal(t, []m.Path{m.Path(top)}, docs)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := adapter.Get([]m.Path{m.Path(filepath.Join(root, "absent"))})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("no roots", func(t *testing.T) {
		docs, err := adapter.Get(nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestLocalFSAdapter_FileRoundTrip(t *testing.T) {
	adapter := NewLocalFSAdapter()

	dir := adapter.JoinPath(t.TempDir(), "reports", "maze")
	require.NoError(t, adapter.MkdirAll(dir))

	path := adapter.JoinPath(string(dir), "report.yaml")
	content := []byte("target: maze.move\n")
	require.NoError(t, adapter.WriteFile(path, content, 0o600))

	got, err := adapter.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	hash, err := adapter.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(content)), hash)

	info, err := adapter.FileInfo(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
