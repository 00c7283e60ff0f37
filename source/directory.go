package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// DirectorySource streams text files from a directory in lexical order.
// Files are read lazily, one per Next call.
type DirectorySource struct {
	path       string
	context    string
	extensions map[string]bool
	files      []string
	position   int
	connected  bool
}

// NewDirectorySource creates a source over all .txt and .md files in path.
// All items carry the given extraction context.
func NewDirectorySource(path string, context string) *DirectorySource {
	return &DirectorySource{
		path:       path,
		context:    context,
		extensions: map[string]bool{".txt": true, ".md": true},
	}
}

func (s *DirectorySource) ID() string {
	return s.path
}

func (s *DirectorySource) Type() string {
	return "directory"
}

// Connect lists the directory and fixes the file order for this run
func (s *DirectorySource) Connect(ctx context.Context) error {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return helper.NewError("read source directory", err)
	}

	s.files = s.files[:0]
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if s.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			s.files = append(s.files, entry.Name())
		}
	}
	sort.Strings(s.files)

	s.position = 0
	s.connected = true
	return nil
}

func (s *DirectorySource) Next(ctx context.Context) (*Item, error) {
	if !s.connected {
		return nil, helper.NewError("next item", fmt.Errorf("source is not connected"))
	}
	if s.position >= len(s.files) {
		return nil, io.EOF
	}

	name := s.files[s.position]
	s.position++

	content, err := os.ReadFile(filepath.Join(s.path, name))
	if err != nil {
		return nil, helper.NewError("read source file", err)
	}

	metadata := model.NewProperties()
	metadata.Set("filename", model.String(name))

	return &Item{
		ID:       name,
		Content:  string(content),
		Context:  s.context,
		Metadata: metadata,
	}, nil
}

func (s *DirectorySource) Disconnect(ctx context.Context) error {
	s.connected = false
	s.files = nil
	return nil
}

// Health reports healthy when the directory is readable, degraded when it
// holds no matching files
func (s *DirectorySource) Health(ctx context.Context) Health {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return Health{Status: StatusUnhealthy, Message: err.Error()}
	}

	for _, entry := range entries {
		if !entry.IsDir() && s.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			return Health{Status: StatusHealthy}
		}
	}
	return Health{Status: StatusDegraded, Message: "directory contains no readable items"}
}
