package conversation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probeops/leakprobe/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFiles(t *testing.T) {
	t.Run("loads files in the given order", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.txt", "first transcript\n")
		b := writeFile(t, dir, "b.txt", "second transcript")

		files, err := LoadFiles([]string{b, a})
		require.NoError(t, err)
		require.Len(t, files, 2)
		require.Equal(t, "second transcript", files[0].Content)
		require.Equal(t, "first transcript", files[1].Content)
	})

	t.Run("missing path fails the whole load and names the path", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.txt", "readable")
		missing := filepath.Join(dir, "missing.txt")

		_, err := LoadFiles([]string{a, missing})
		require.Error(t, err)

		var pe *types.ProbeError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, types.ErrorTypeFileAccess, pe.Type)
		require.Equal(t, missing, pe.FilePath)
	})

	t.Run("empty path list loads nothing", func(t *testing.T) {
		files, err := LoadFiles(nil)
		require.NoError(t, err)
		require.Empty(t, files)
	})
}

func TestBuildRequestText(t *testing.T) {
	t.Run("no files yields the prompt alone", func(t *testing.T) {
		require.Equal(t, "Summarize.", BuildRequestText("Summarize.", nil))
	})

	t.Run("single file wraps content in context block", func(t *testing.T) {
		got := BuildRequestText("Summarize.", []File{
			{Path: "a.txt", Content: "Patient reports fatigue."},
		})
		require.Equal(t, "Context:\n=== FILE CONTENT ===\nPatient reports fatigue.\n\nQuestion: Summarize.", got)
	})

	t.Run("each file appears exactly once in input order", func(t *testing.T) {
		files := []File{
			{Path: "1.txt", Content: "alpha conversation"},
			{Path: "2.txt", Content: "beta conversation"},
			{Path: "3.txt", Content: "gamma conversation"},
		}
		got := BuildRequestText("Who said what?", files)

		for _, f := range files {
			require.Equal(t, 1, strings.Count(got, f.Content))
		}
		require.Less(t, strings.Index(got, "alpha conversation"), strings.Index(got, "beta conversation"))
		require.Less(t, strings.Index(got, "beta conversation"), strings.Index(got, "gamma conversation"))
		require.True(t, strings.HasSuffix(got, "Question: Who said what?"), "prompt is appended after context")
	})

	t.Run("empty transcripts are skipped", func(t *testing.T) {
		got := BuildRequestText("Summarize.", []File{
			{Path: "empty.txt", Content: ""},
		})
		require.Equal(t, "Summarize.", got)
	})
}
