package cacheplugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goforj/cacheplugin/cachecore"
)

var ErrUnsupportedNamespace = errors.New("cacheplugin: unsupported location namespace")

// dirResolver places "user" locations below the home directory and "system"
// locations below the system cache root, creating the directory on demand.
type dirResolver struct {
	homeDir   string
	systemDir string
	relPath   string
}

func newDirResolver(homeDir, systemDir, relPath string) *dirResolver {
	return &dirResolver{homeDir: homeDir, systemDir: systemDir, relPath: relPath}
}

func (r *dirResolver) Resolve(ctx context.Context, loc *cachecore.Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if loc == nil {
		return errors.New("resolve: nil location")
	}
	root, err := r.root(NewKey(loc.Name, "").Namespace())
	if err != nil {
		return fmt.Errorf("resolve %q: %w", loc.Name, err)
	}
	dir := filepath.Join(root, filepath.FromSlash(r.relPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("resolve %q: create %s: %w", loc.Name, dir, err)
	}
	loc.Path = dir
	return nil
}

func (r *dirResolver) root(namespace string) (string, error) {
	switch namespace {
	case "user":
		if r.homeDir == "" {
			return "", errors.New("home directory unknown")
		}
		return r.homeDir, nil
	case "system":
		if r.systemDir == "" {
			return "", errors.New("system directory unknown")
		}
		return r.systemDir, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNamespace, namespace)
	}
}

func (r *dirResolver) Close() error { return nil }
