// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/smacross/internal/core"
)

// Storage is where exported run artifacts end up
type Storage interface {
	// Write stores data at the given slash-separated key
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves data from the given key
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under the prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Backend string   `mapstructure:"backend" validate:"oneof=localfs s3"`
	Path    string   `mapstructure:"path"`
	S3      S3Config `mapstructure:"s3"`
}

// New creates the configured backend.
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive backend: %s", cfg.Backend))
	}
}

// cleanKey normalizes a key and rejects ones escaping the archive root.
func cleanKey(key string) (string, error) {
	raw := strings.ReplaceAll(key, "\\", "/")
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("key %q escapes archive root", key))
		}
	}
	k := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if k == "" {
		return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("invalid key %q", key))
	}
	return k, nil
}

// contentType guesses the MIME type from the key extension.
func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
