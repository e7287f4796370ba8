package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// DefaultMaxFileBytes is the largest file read_file will read.
const DefaultMaxFileBytes = 1 << 20

// textExtensions is the allowlist of file types read_file treats as
// plain text.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true,
	".csv": true, ".tsv": true, ".json": true, ".jsonl": true,
	".xml": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true, ".log": true,
	".html": true, ".css": true, ".js": true, ".ts": true,
	".py": true, ".go": true, ".rs": true, ".java": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true,
	".cs": true, ".rb": true, ".php": true, ".sh": true,
	".sql": true,
}

// ReadFile reads local plain-text files. Binary formats are rejected by
// extension and oversized files by a byte limit.
type ReadFile struct {
	maxBytes int64
}

// NewReadFile creates the read_file tool.
func NewReadFile() *ReadFile {
	return &ReadFile{maxBytes: DefaultMaxFileBytes}
}

// Name implements tool.Tool.
func (r *ReadFile) Name() string {
	return "read_file"
}

// Description implements tool.Tool.
func (r *ReadFile) Description() string {
	return "Read the content of a plain text file such as .txt, .md, .csv, .json, or source code."
}

// Schema implements tool.Tool.
func (r *ReadFile) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path of the text file to read",
			},
		},
		"required": []string{"path"},
	}
}

// Run implements tool.Tool.
func (r *ReadFile) Run(ctx context.Context, input map[string]any) (string, error) {
	path, ok := tool.StringArg(input, "path")
	if !ok {
		return "", fmt.Errorf("path parameter required")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !textExtensions[ext] {
		return "", fmt.Errorf("unsupported file extension %q: only plain text files can be read", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if info.Size() > r.maxBytes {
		return "", fmt.Errorf("file %s too large: %d bytes (limit %d)", path, info.Size(), r.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
