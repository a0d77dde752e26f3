package source

import (
	"os"
	"path/filepath"
	"strings"
)

// Type distinguishes how a source file is parsed.
type Type int

const (
	TypeScript Type = iota // Classic script: sloppy by default, vars are global
	TypeModule             // Module: always strict (reserved; modules are not interpreted yet)
)

// SourceFile represents a source file with its content and metadata.
type SourceFile struct {
	Name      string // Display name (e.g., "main.js", "<stdin>", "<eval>")
	Path      string // Full file path (empty for eval/stdin input)
	Content   string // The source code content
	StartLine int    // 1-based line the content begins at in the original file
	Type      Type   // script or module
	lines     []string
}

// NewSourceFile creates a new source file starting at line 1.
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:      name,
		Path:      path,
		Content:   content,
		StartLine: 1,
		Type:      TypeScript,
	}
}

// NewEvalSource creates a source file for eval-style input.
func NewEvalSource(content string) *SourceFile {
	return &SourceFile{
		Name:      "<eval>",
		Content:   content,
		StartLine: 1,
		Type:      TypeScript,
	}
}

// FromFile reads a source file from disk.
func FromFile(path string) (*SourceFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sf := NewSourceFile(filepath.Base(path), path, string(content))
	return sf, nil
}

// Lines returns the source split into lines (cached).
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// Line returns the 1-based line, or "" when out of range.
func (sf *SourceFile) Line(n int) string {
	lines := sf.Lines()
	idx := n - 1
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	return lines[idx]
}

// DisplayPath returns the best path for display (prefers Path, falls back to Name).
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}
