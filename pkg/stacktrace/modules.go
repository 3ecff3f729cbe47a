package stacktrace

import (
	"runtime/debug"
	"sort"
	"strings"
)

// moduleIndex maps package import paths to the module that owns them. It is
// the "source" label of a frame: the owning component's display name.
type moduleIndex struct {
	paths []string // longest first so the most specific module wins
}

func loadModuleIndex() *moduleIndex {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return &moduleIndex{}
	}
	return newModuleIndex(info)
}

func newModuleIndex(info *debug.BuildInfo) *moduleIndex {
	idx := &moduleIndex{}
	if info == nil {
		return idx
	}
	if info.Main.Path != "" {
		idx.paths = append(idx.paths, info.Main.Path)
	}
	for _, dep := range info.Deps {
		if dep == nil {
			continue
		}
		idx.paths = append(idx.paths, dep.Path)
	}
	sort.SliceStable(idx.paths, func(i, j int) bool {
		return len(idx.paths[i]) > len(idx.paths[j])
	})
	return idx
}

// source returns the module owning pkg, falling back to pkg itself.
func (m *moduleIndex) source(pkg string) *string {
	if pkg == "" {
		return nil
	}
	if m != nil {
		for _, path := range m.paths {
			if pkg == path || strings.HasPrefix(pkg, path+"/") {
				return stringPtr(path)
			}
		}
	}
	return stringPtr(pkg)
}
