package navigation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk navigation seed, e.g.
//
//	sidebar_collapsed: false
//	items:
//	  - id: kanban
//	    label: Kanban Board
//	  - id: reports
//	    label: Reports
//	    href: /reports
type File struct {
	SidebarCollapsed bool   `yaml:"sidebar_collapsed"`
	Items            []Item `yaml:"items"`
}

// LoadFile reads a navigation seed. A missing file yields an empty File.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read navigation file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse navigation file %s: %w", path, err)
	}
	for i, it := range f.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("navigation file %s: item %d has no id", path, i)
		}
	}
	return &f, nil
}

// Options turns the file into store options.
func (f *File) Options() []Option {
	opts := []Option{WithItems(f.Items)}
	if f.SidebarCollapsed {
		opts = append(opts, WithSidebarCollapsed(true))
	}
	return opts
}
