package domain

import (
	"fmt"
	"path/filepath"
)

// RootDocumentName is the file the fetched page itself is saved as
const RootDocumentName = "index.html"

// categoryDirs maps asset categories to their directory under the output root
var categoryDirs = map[Category]string{
	CategoryCSS:   "css",
	CategoryJS:    "js",
	CategoryImage: "images",
	CategoryFont:  "fonts",
	CategoryVideo: "videos",
	CategoryAudio: "audio",
	CategoryHTML:  "",
}

// MirrorLayout maps each category to its destination directory for one run
type MirrorLayout struct {
	root string
	dirs map[Category]string
}

// NewMirrorLayout creates the standard layout rooted at root
func NewMirrorLayout(root string) (*MirrorLayout, error) {
	if root == "" {
		return nil, fmt.Errorf("output root: %w", ErrInvalidInput)
	}
	dirs := make(map[Category]string, len(categoryDirs))
	for c, sub := range categoryDirs {
		dirs[c] = filepath.Join(root, sub)
	}
	return &MirrorLayout{root: root, dirs: dirs}, nil
}

// Root returns the output root
func (l *MirrorLayout) Root() string {
	return l.root
}

// Dir returns the destination directory for c
func (l *MirrorLayout) Dir(c Category) (string, error) {
	dir, ok := l.dirs[c]
	if !ok {
		return "", fmt.Errorf("category %q: %w", c, ErrUnknownCategory)
	}
	return dir, nil
}

// Path returns the destination file path for filename in category c
func (l *MirrorLayout) Path(c Category, filename string) (string, error) {
	dir, err := l.Dir(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// RootDocumentPath returns where the fetched page is saved
func (l *MirrorLayout) RootDocumentPath() string {
	return filepath.Join(l.root, RootDocumentName)
}

// Dirs returns every directory of the layout, root first
func (l *MirrorLayout) Dirs() []string {
	out := []string{l.root}
	for _, c := range AssetCategories {
		out = append(out, l.dirs[c])
	}
	return out
}
