package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// MaxTableSize caps how much of a rule table document is read.
const MaxTableSize = 1 << 20

// TableSource yields the raw bytes of an external rule table.
type TableSource interface {
	Load(ctx context.Context) ([]byte, error)
	Describe() string
}

// FileTableSource reads a rule table from the local filesystem.
type FileTableSource struct {
	path string
}

func NewFileTableSource(path string) *FileTableSource {
	return &FileTableSource{path: path}
}

func (s *FileTableSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule table: %w", err)
	}
	defer f.Close()
	return readTable(f)
}

func (s *FileTableSource) Describe() string {
	return "file:" + s.path
}

func readTable(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxTableSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table: %w", err)
	}
	if len(data) > MaxTableSize {
		return nil, fmt.Errorf("rule table exceeds %d bytes", MaxTableSize)
	}
	return data, nil
}
