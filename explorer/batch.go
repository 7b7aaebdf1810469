package explorer

import (
	"encoding/json"
	"slices"

	"github.com/pkg/errors"
)

// BatchOp names the operation a BatchReport belongs to.
type BatchOp string

const (
	OpDelete   BatchOp = "delete"
	OpUpload   BatchOp = "upload"
	OpDownload BatchOp = "download"
)

// Failure is one item of a batch that did not go through.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{f.Path, f.Err.Error()})
}

// BatchReport is the aggregate outcome of a batch. Items are listed in the
// order they were attempted.
type BatchReport struct {
	Op        BatchOp   `json:"op"`
	Succeeded []string  `json:"succeeded"`
	Skipped   []string  `json:"skipped"`
	Failures  []Failure `json:"failures"`
}

func newBatchReport(op BatchOp) *BatchReport {
	return &BatchReport{
		Op:        op,
		Succeeded: []string{},
		Skipped:   []string{},
		Failures:  []Failure{},
	}
}

func (r *BatchReport) succeed(path string) { r.Succeeded = append(r.Succeeded, path) }

func (r *BatchReport) skip(path string) { r.Skipped = append(r.Skipped, path) }

func (r *BatchReport) fail(path string, err error) {
	r.Failures = append(r.Failures, Failure{Path: path, Err: err})
}

// Err summarizes the failures, or returns nil when there were none.
func (r *BatchReport) Err() error {
	switch len(r.Failures) {
	case 0:
		return nil
	case 1:
		return errors.Wrapf(r.Failures[0].Err, "%s %s", r.Op, r.Failures[0].Path)
	}
	return errors.Errorf("%s: %d of %d items failed", r.Op, len(r.Failures),
		len(r.Failures)+len(r.Succeeded)+len(r.Skipped))
}

func sortByIndex(entries []Entry, index map[string]int) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return index[a.Path] - index[b.Path]
	})
}
