package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Archive keeps the raw uploaded file of each ingested document.
type Archive interface {
	Put(ctx context.Context, docId string, filename string, data []byte) (string, error)
}

// LocalArchive writes uploads to <root>/<docId>/<filename>.
type LocalArchive struct {
	root string
}

func NewLocalArchive(root string) (*LocalArchive, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload folder: %w", err)
	}
	return &LocalArchive{root: root}, nil
}

func (a *LocalArchive) Put(ctx context.Context, docId string, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(a.root, docId)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive folder: %w", err)
	}
	path := filepath.Join(dir, safeName(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to archive upload: %w", err)
	}
	return path, nil
}

// safeName drops any directory part a client put in the upload name.
func safeName(filename string) string {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		return "upload"
	}
	return name
}
