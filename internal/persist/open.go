package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open returns the persister for a storage URL:
//
//	memory:                      in-memory, lost on exit
//	sqlite://path                SQLite database file
//	postgres://... postgresql:// PostgreSQL
//	file:path or a bare path     JSON file (a leading ~ is expanded)
func Open(ctx context.Context, url string) (Persister, error) {
	url = strings.TrimSpace(url)

	switch {
	case url == "":
		return nil, fmt.Errorf("storage location is empty")
	case url == "memory:" || url == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(url, "sqlite://"):
		path, err := expandHome(strings.TrimPrefix(url, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path)
	case strings.HasPrefix(url, "sqlite:"):
		path, err := expandHome(strings.TrimPrefix(url, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, DefaultSnapshotName)
	default:
		path, err := expandHome(strings.TrimPrefix(url, "file:"))
		if err != nil {
			return nil, err
		}
		return NewFileStore(path), nil
	}
}

func expandHome(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("storage path is empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
