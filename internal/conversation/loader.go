// Package conversation loads conversation transcripts and assembles the
// request text sent to a model.
package conversation

import (
	"fmt"
	"os"
	"strings"

	"github.com/probeops/leakprobe/internal/types"
)

// FileContentHeader introduces each transcript block in the request text
const FileContentHeader = "=== FILE CONTENT ==="

// File holds a loaded conversation transcript
type File struct {
	Path    string
	Content string
}

// LoadFiles reads every path in the given order. The policy is all-or-nothing:
// an unreadable path aborts the whole load with an error naming it, so a probe
// never silently runs against partial context.
func LoadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &types.ProbeError{
				Type:     types.ErrorTypeFileAccess,
				Message:  fmt.Sprintf("could not read conversation file: %v", err),
				FilePath: path,
				Cause:    err,
			}
		}
		files = append(files, File{
			Path:    path,
			Content: strings.TrimSpace(string(data)),
		})
	}
	return files, nil
}

// BuildRequestText combines loaded transcripts with the prompt into a single
// request text. Transcripts appear first, in load order, each introduced by
// the file content header; the prompt is appended after the context. With no
// usable context the request text is the prompt alone. Empty transcripts are
// skipped since they add nothing for the model to draw on.
func BuildRequestText(prompt string, files []File) string {
	blocks := make([]string, 0, len(files))
	for _, f := range files {
		if f.Content == "" {
			continue
		}
		blocks = append(blocks, FileContentHeader+"\n"+f.Content)
	}

	if len(blocks) == 0 {
		return prompt
	}

	context := strings.Join(blocks, "\n\n")
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", context, prompt)
}
