package explorer

import (
	"strings"
)

// RootLabel is the label of the first breadcrumb.
const RootLabel = "Root"

const separator = "/"

// Breadcrumb is one step of the trail from the mount root to the location.
type Breadcrumb struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Normalize returns the canonical absolute form of p under root. Relative
// paths are taken relative to root and an empty path means root. Repeated
// separators and "." segments are dropped, ".." is rejected outright.
func Normalize(root, p string) (string, error) {
	cleanRoot, err := normalizeRoot(root)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(p) == "" {
		return cleanRoot, nil
	}
	if !strings.HasPrefix(p, separator) {
		p = cleanRoot + separator + p
	}

	segments, err := splitSegments(p)
	if err != nil {
		return "", invalidPath(cleanRoot, p, err.Error())
	}
	result := joinSegments(segments)

	if !IsWithin(cleanRoot, result) {
		return "", invalidPath(cleanRoot, p, "outside of mount root")
	}
	return result, nil
}

// Parent returns the directory containing p, or root when p is the root or
// does not lie under it.
func Parent(root, p string) string {
	cleanRoot, err := normalizeRoot(root)
	if err != nil {
		return root
	}
	cleaned, err := Normalize(cleanRoot, p)
	if err != nil || cleaned == cleanRoot {
		return cleanRoot
	}

	idx := strings.LastIndex(cleaned, separator)
	parent := cleaned[:idx]
	if parent == "" {
		parent = separator
	}
	if !IsWithin(cleanRoot, parent) {
		return cleanRoot
	}
	return parent
}

// Breadcrumbs derives the trail from root to p. The first crumb is always the
// root, the last one is always Normalize(root, p). A path that does not
// normalize yields the root crumb alone.
func Breadcrumbs(root, p string) []Breadcrumb {
	cleanRoot, err := normalizeRoot(root)
	if err != nil {
		return []Breadcrumb{{Label: RootLabel, Path: root}}
	}

	crumbs := []Breadcrumb{{Label: RootLabel, Path: cleanRoot}}

	cleaned, err := Normalize(cleanRoot, p)
	if err != nil || cleaned == cleanRoot {
		return crumbs
	}

	rest := strings.TrimPrefix(cleaned, cleanRoot)
	current := cleanRoot
	for _, segment := range strings.Split(strings.Trim(rest, separator), separator) {
		if current == separator {
			current += segment
		} else {
			current += separator + segment
		}
		crumbs = append(crumbs, Breadcrumb{Label: segment, Path: current})
	}
	return crumbs
}

// IsWithin reports whether the normalized path p equals root or is one of its
// descendants. Both arguments are expected to be normalized already.
func IsWithin(root, p string) bool {
	if p == root {
		return true
	}
	if root == separator {
		return strings.HasPrefix(p, separator)
	}
	return strings.HasPrefix(p, root+separator)
}

// Join appends a single name to a normalized directory path.
func Join(dir, name string) string {
	if dir == separator {
		return separator + name
	}
	return dir + separator + name
}

// BaseName returns the last segment of a local or remote path, accepting
// either separator style.
func BaseName(p string) string {
	p = strings.TrimRight(p, `/\`)
	if idx := strings.LastIndexAny(p, `/\`); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

func normalizeRoot(root string) (string, error) {
	if !strings.HasPrefix(root, separator) {
		return "", invalidPath(root, root, "mount root must be absolute")
	}
	segments, err := splitSegments(root)
	if err != nil {
		return "", invalidPath(root, root, err.Error())
	}
	return joinSegments(segments), nil
}

type segmentError string

func (e segmentError) Error() string { return string(e) }

func splitSegments(p string) ([]string, error) {
	parts := strings.Split(p, separator)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return nil, segmentError("parent references are not allowed")
		}
		segments = append(segments, part)
	}
	return segments, nil
}

func joinSegments(segments []string) string {
	return separator + strings.Join(segments, separator)
}
