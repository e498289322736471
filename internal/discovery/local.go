package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"marketpulse/internal/ingest"
)

// LocalSource walks a data directory on disk.
type LocalSource struct {
	Root string
}

var _ Source = (*LocalSource)(nil)

func NewLocalSource(root string) *LocalSource {
	return &LocalSource{Root: root}
}

func (s *LocalSource) Discover(ctx context.Context) (ingest.FileSet, error) {
	root := strings.TrimSpace(s.Root)
	if root == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	out := ingest.FileSet{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		family, ok := familyFor(d.Name())
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			// Unreadable files are left out; the pipeline treats an
			// empty set, not a bad file, as fatal.
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			rel = d.Name()
		}
		out[family] = append(out[family], ingest.File{
			Name:     d.Name(),
			Path:     p,
			ModTime:  info.ModTime(),
			Platform: platformForDir(topDir(rel)),
			Data:     data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	for family := range out {
		sort.Slice(out[family], func(i, j int) bool { return out[family][i].Path < out[family][j].Path })
	}
	return out, nil
}

func topDir(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}
