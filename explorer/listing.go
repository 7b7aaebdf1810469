package explorer

import (
	"cmp"
	"slices"
	"strings"
)

type SortKey string

const (
	SortByName     SortKey = "name"
	SortBySize     SortKey = "size"
	SortByModified SortKey = "modified"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Query holds everything the projection depends on besides the raw entries.
type Query struct {
	Search    string    `json:"search"`
	SortKey   SortKey   `json:"sortBy"`
	Direction Direction `json:"direction"`
}

// DefaultQuery sorts by name, ascending, with no filter.
func DefaultQuery() Query {
	return Query{SortKey: SortByName, Direction: Ascending}
}

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortByName, SortBySize, SortByModified:
		return SortKey(s), nil
	case "":
		return SortByName, nil
	}
	return "", invalidInput("unknown sort key %q", s)
}

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Ascending, Descending:
		return Direction(s), nil
	case "":
		return Ascending, nil
	}
	return "", invalidInput("unknown sort direction %q", s)
}

// Project filters entries by a case-insensitive substring of their name and
// sorts the result. Directories always come before files; within each group
// the sort key and direction apply, and ties fall back to name then path,
// both ascending. The input slice is left untouched.
func Project(entries []Entry, q Query) []Entry {
	needle := strings.ToLower(q.Search)

	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if needle != "" && !strings.Contains(strings.ToLower(e.Name), needle) {
			continue
		}
		result = append(result, e)
	}

	slices.SortStableFunc(result, func(a, b Entry) int {
		if a.IsDirectory != b.IsDirectory {
			if a.IsDirectory {
				return -1
			}
			return 1
		}

		var c int
		switch q.SortKey {
		case SortBySize:
			c = cmp.Compare(a.SizeBytes, b.SizeBytes)
		case SortByModified:
			c = cmp.Compare(a.ModifiedAt, b.ModifiedAt)
		default:
			c = strings.Compare(a.Name, b.Name)
		}
		if q.Direction == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}

		if c = strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})

	return result
}

func paths(entries []Entry) []string {
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.Path
	}
	return result
}
