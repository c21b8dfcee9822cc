package fetcher

import (
	"fmt"
	"path"
	"strings"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

// target is the planned destination of one reference
type target struct {
	path string
	err  error
}

// planTargets assigns every reference a destination path before any download starts.
// Names that collide inside a directory get a numeric suffix in submission order,
// so the layout does not depend on completion order.
func planTargets(refs []domain.AssetReference, layout *domain.MirrorLayout) []target {
	targets := make([]target, len(refs))
	used := make(map[string]bool, len(refs))

	for i, ref := range refs {
		name := domain.CleanFilename(ref.URL)
		if name == "" {
			name = "index" + ref.Category.DefaultExtension()
		}

		dest, err := layout.Path(ref.Category, name)
		if err != nil {
			targets[i] = target{err: err}
			continue
		}

		if used[dest] {
			ext := path.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := 1; ; n++ {
				dest, _ = layout.Path(ref.Category, fmt.Sprintf("%s-%d%s", stem, n, ext))
				if !used[dest] {
					break
				}
			}
		}

		used[dest] = true
		targets[i] = target{path: dest}
	}

	return targets
}
