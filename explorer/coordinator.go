package explorer

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Phase is the coarse state of a Coordinator.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseIdle    Phase = "idle"
	PhaseError   Phase = "error"
)

// State is an immutable snapshot of the coordinator.
//
// Location is always the last location that listed successfully (or the
// mount root before the first listing). While loading, and after a failed
// listing, Target holds the path that was requested so it can be retried.
type State struct {
	ConnectionID string       `json:"connectionId"`
	MountRoot    string       `json:"mountRoot"`
	Phase        Phase        `json:"phase"`
	Location     string       `json:"location"`
	Target       string       `json:"target,omitempty"`
	Message      string       `json:"message,omitempty"`
	Busy         bool         `json:"busy"`
	Breadcrumbs  []Breadcrumb `json:"breadcrumbs"`
	Listing      []Entry      `json:"listing"`
	Selection    []string     `json:"selection"`
	Query        Query        `json:"query"`
	Quota        Quota        `json:"quota"`
	UsedPercent  float64      `json:"usedPercent"`
}

// Config wires a Coordinator to one connection and mount root.
type Config struct {
	ConnectionID string
	MountRoot    string
	Gateway      Gateway
	Destinations DestinationSupplier
	Quota        Quota
	Logger       zerolog.Logger
}

// Coordinator owns the navigation state of one mounted device: the current
// location, the projected listing and the selection. Operations that reach
// the gateway are serialized; a second one issued while the first is still
// running fails with ErrBusy.
type Coordinator struct {
	connectionID string
	root         string
	gateway      Gateway
	destinations DestinationSupplier
	log          zerolog.Logger

	mu        sync.Mutex
	busy      bool
	phase     Phase
	location  string
	target    string
	message   string
	raw       []Entry
	query     Query
	listing   []Entry
	selection *SelectionSet
	quota     Quota

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSub     int

	// notifyMu orders deliveries: snapshots reach subscribers in the order
	// they were taken.
	notifyMu sync.Mutex
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if strings.TrimSpace(cfg.ConnectionID) == "" {
		return nil, errors.New("connection id is required")
	}
	root, err := normalizeRoot(cfg.MountRoot)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		connectionID: cfg.ConnectionID,
		root:         root,
		gateway:      cfg.Gateway,
		destinations: cfg.Destinations,
		log:          cfg.Logger.With().Str("connection", cfg.ConnectionID).Str("root", root).Logger(),
		phase:        PhaseLoading,
		location:     root,
		target:       root,
		query:        DefaultQuery(),
		selection:    NewSelectionSet(),
		quota:        cfg.Quota,
		subscribers:  make(map[int]func(State)),
	}, nil
}

func (c *Coordinator) ConnectionID() string { return c.connectionID }

func (c *Coordinator) MountRoot() string { return c.root }

// Subscribe registers fn to be called with a fresh snapshot after every state
// change. Callbacks run on the goroutine that caused the change, one
// delivery at a time. They must not block for long and must not change the
// coordinator. The returned function removes the subscription.
func (c *Coordinator) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	listing := make([]Entry, len(c.listing))
	copy(listing, c.listing)

	return State{
		ConnectionID: c.connectionID,
		MountRoot:    c.root,
		Phase:        c.phase,
		Location:     c.location,
		Target:       c.target,
		Message:      c.message,
		Busy:         c.busy,
		Breadcrumbs:  Breadcrumbs(c.root, c.location),
		Listing:      listing,
		Selection:    c.selection.Paths(),
		Query:        c.query,
		Quota:        c.quota,
		UsedPercent:  c.quota.UsedPercent(),
	}
}

func (c *Coordinator) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	state := c.State()

	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
	c.notify()
}

// load lists p and commits it as the new location on success. On failure the
// location stays where it was and the coordinator enters the error phase.
// The caller must hold the busy flag.
func (c *Coordinator) load(ctx context.Context, p string) error {
	c.mu.Lock()
	c.phase = PhaseLoading
	c.target = p
	c.message = ""
	c.mu.Unlock()
	c.notify()

	entries, err := c.gateway.List(ctx, c.connectionID, p)

	c.mu.Lock()
	if err != nil {
		rerr := asRemoteIOError("list", p, err)
		c.phase = PhaseError
		c.message = rerr.Detail
		c.mu.Unlock()

		c.log.Warn().Str("path", p).Str("detail", rerr.Detail).Msg("listing failed")
		c.notify()
		return rerr
	}

	c.location = p
	c.target = ""
	c.phase = PhaseIdle
	c.raw = entries
	c.listing = Project(entries, c.query)
	c.selection.Clear()
	count := len(c.listing)
	c.mu.Unlock()

	c.log.Debug().Str("path", p).Int("entries", count).Msg("listing loaded")
	c.notify()
	return nil
}

// Navigate lists target and makes it the current location.
func (c *Coordinator) Navigate(ctx context.Context, target string) error {
	p, err := Normalize(c.root, target)
	if err != nil {
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	return c.load(ctx, p)
}

// Refresh lists the current location again. The selection is always reset.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	return c.load(ctx, c.currentLocation())
}

// Up navigates to the parent of the current location, staying at the mount
// root when already there.
func (c *Coordinator) Up(ctx context.Context) error {
	return c.Navigate(ctx, Parent(c.root, c.currentLocation()))
}

// Home navigates to the mount root.
func (c *Coordinator) Home(ctx context.Context) error {
	return c.Navigate(ctx, c.root)
}

// Activate opens a directory of the current listing or toggles the selection
// of a file.
func (c *Coordinator) Activate(ctx context.Context, path string) error {
	entry, ok := c.lookup(path)
	if !ok {
		return notListed(path)
	}
	if entry.IsDirectory {
		return c.Navigate(ctx, entry.Path)
	}
	return c.Toggle(entry.Path)
}

// SetQuery re-projects the last fetched entries with a new filter or sort
// order. No remote call is made.
func (c *Coordinator) SetQuery(q Query) error {
	key, err := ParseSortKey(string(q.SortKey))
	if err != nil {
		return err
	}
	dir, err := ParseDirection(string(q.Direction))
	if err != nil {
		return err
	}
	q.SortKey, q.Direction = key, dir

	c.mu.Lock()
	c.query = q
	c.listing = Project(c.raw, q)
	c.selection.Reconcile(paths(c.listing))
	c.mu.Unlock()

	c.notify()
	return nil
}

// Toggle flips the selection of a path in the current listing.
func (c *Coordinator) Toggle(path string) error {
	c.mu.Lock()
	if !c.listedLocked(path) {
		c.mu.Unlock()
		return notListed(path)
	}
	c.selection.Toggle(path)
	c.mu.Unlock()

	c.notify()
	return nil
}

// SelectAll selects every entry of the current listing.
func (c *Coordinator) SelectAll() {
	c.mu.Lock()
	c.selection.SelectAll(paths(c.listing))
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	c.selection.Clear()
	c.mu.Unlock()
	c.notify()
}

// Selected returns the selected entries in listing order.
func (c *Coordinator) Selected() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []Entry
	for _, e := range c.listing {
		if c.selection.Contains(e.Path) {
			result = append(result, e)
		}
	}
	return result
}

// Lookup resolves paths against the current listing, keeping the order of
// paths and dropping the ones that are not listed.
func (c *Coordinator) Lookup(paths []string) []Entry {
	result := make([]Entry, 0, len(paths))
	for _, p := range paths {
		if e, ok := c.lookup(p); ok {
			result = append(result, e)
		}
	}
	return result
}

func (c *Coordinator) Quota() Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota
}

// SetQuota replaces the display-only quota, e.g. after the registry probed
// the device again.
func (c *Coordinator) SetQuota(q Quota) {
	c.mu.Lock()
	c.quota = q
	c.mu.Unlock()
	c.notify()
}

// CreateDirectory creates name in the current location and refreshes.
func (c *Coordinator) CreateDirectory(ctx context.Context, name string) error {
	name, err := c.validateName(name)
	if err != nil {
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	location := c.currentLocation()
	if err := c.gateway.CreateDirectory(ctx, c.connectionID, location, name); err != nil {
		rerr := asRemoteIOError("create", Join(location, name), err)
		c.log.Warn().Str("path", rerr.Path).Str("detail", rerr.Detail).Msg("create directory failed")
		return rerr
	}

	c.log.Info().Str("path", Join(location, name)).Msg("directory created")
	c.refreshAfter(ctx, location)
	return nil
}

// Rename gives entry a new name within its parent and refreshes. Nothing is
// changed locally when the gateway refuses, e.g. on a name collision.
func (c *Coordinator) Rename(ctx context.Context, entry Entry, newName string) error {
	newName, err := c.validateName(newName)
	if err != nil {
		return err
	}
	if _, err := Normalize(c.root, entry.Path); err != nil {
		return err
	}
	if entry.Path == c.root {
		return invalidPath(c.root, entry.Path, "the mount root cannot be renamed")
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.gateway.Rename(ctx, c.connectionID, entry.Path, newName); err != nil {
		rerr := asRemoteIOError("rename", entry.Path, err)
		c.log.Warn().Str("path", entry.Path).Str("newName", newName).Str("detail", rerr.Detail).Msg("rename failed")
		return rerr
	}

	c.log.Info().Str("path", entry.Path).Str("newName", newName).Msg("renamed")
	c.refreshAfter(ctx, c.currentLocation())
	return nil
}

// DeleteMany deletes entries one at a time in listing order, keeps going past
// failures and refreshes once at the end. Nothing is rolled back.
func (c *Coordinator) DeleteMany(ctx context.Context, entries []Entry) (*BatchReport, error) {
	for _, e := range entries {
		if _, err := Normalize(c.root, e.Path); err != nil {
			return nil, err
		}
		if e.Path == c.root {
			return nil, invalidPath(c.root, e.Path, "the mount root cannot be deleted")
		}
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	report := newBatchReport(OpDelete)
	for _, e := range c.inListingOrder(entries) {
		if err := c.gateway.Delete(ctx, c.connectionID, e.Path, e.IsDirectory); err != nil {
			report.fail(e.Path, asRemoteIOError("delete", e.Path, err))
			continue
		}
		report.succeed(e.Path)
	}

	c.logReport(report)
	c.refreshAfter(ctx, c.currentLocation())
	c.clearSelection()
	return report, nil
}

// DeleteSelection deletes the selected entries.
func (c *Coordinator) DeleteSelection(ctx context.Context) (*BatchReport, error) {
	return c.DeleteMany(ctx, c.Selected())
}

// UploadMany copies local files into the current location, each under its
// base name, one at a time. The location is refreshed once at the end.
func (c *Coordinator) UploadMany(ctx context.Context, sources []string) (*BatchReport, error) {
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			return nil, invalidInput("empty upload source")
		}
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	location := c.currentLocation()
	report := newBatchReport(OpUpload)
	for _, src := range sources {
		name := BaseName(src)
		if !validName(name) {
			report.fail(src, invalidInput("cannot derive a file name from %q", src))
			continue
		}
		remote := Join(location, name)
		if err := c.gateway.Upload(ctx, c.connectionID, src, remote); err != nil {
			report.fail(src, asRemoteIOError("upload", remote, err))
			continue
		}
		report.succeed(src)
	}

	c.logReport(report)
	c.refreshAfter(ctx, location)
	return report, nil
}

// UploadFromPicker asks picker for the files to upload. A cancelled picker
// yields an empty report.
func (c *Coordinator) UploadFromPicker(ctx context.Context, picker SourceSupplier) (*BatchReport, error) {
	sources, err := picker.Sources(ctx)
	if errors.Is(err, ErrUserCancelled) {
		return newBatchReport(OpUpload), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "pick upload sources")
	}
	return c.UploadMany(ctx, sources)
}

// DownloadMany fetches the listed files among paths to locally resolved
// destinations, one at a time. Directories are skipped without notice. The
// selection is cleared afterwards whatever the outcome.
func (c *Coordinator) DownloadMany(ctx context.Context, paths []string) (*BatchReport, error) {
	if c.destinations == nil {
		return nil, errors.New("no download destination configured")
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	report := newBatchReport(OpDownload)
	for _, p := range paths {
		entry, ok := c.lookup(p)
		if !ok {
			report.fail(p, notListed(p))
			continue
		}
		if entry.IsDirectory {
			continue
		}

		dest, err := c.destinations.Destination(ctx, entry)
		if errors.Is(err, ErrUserCancelled) {
			report.skip(p)
			continue
		}
		if err != nil {
			report.fail(p, err)
			continue
		}

		if err := c.gateway.Download(ctx, c.connectionID, entry.Path, dest); err != nil {
			report.fail(p, asRemoteIOError("download", entry.Path, err))
			continue
		}
		report.succeed(p)
	}

	c.logReport(report)
	c.clearSelection()
	return report, nil
}

// DownloadSelection downloads the selected entries.
func (c *Coordinator) DownloadSelection(ctx context.Context) (*BatchReport, error) {
	return c.DownloadMany(ctx, paths(c.Selected()))
}

// refreshAfter reloads location after a mutation. A failed refresh is
// reflected in the state and does not turn the mutation into a failure.
func (c *Coordinator) refreshAfter(ctx context.Context, location string) {
	_ = c.load(ctx, location)
}

func (c *Coordinator) clearSelection() {
	c.mu.Lock()
	c.selection.Clear()
	c.mu.Unlock()
}

func (c *Coordinator) currentLocation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

func (c *Coordinator) lookup(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.listing {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

func (c *Coordinator) listedLocked(path string) bool {
	for _, e := range c.listing {
		if e.Path == path {
			return true
		}
	}
	return false
}

// inListingOrder sorts entries by their position in the current listing.
// Entries that are not listed keep their relative order after the listed ones.
func (c *Coordinator) inListingOrder(entries []Entry) []Entry {
	c.mu.Lock()
	index := make(map[string]int, len(c.listing))
	for i, e := range c.listing {
		index[e.Path] = i
	}
	c.mu.Unlock()

	listed := make([]Entry, 0, len(entries))
	var rest []Entry
	for _, e := range entries {
		if _, ok := index[e.Path]; ok {
			listed = append(listed, e)
		} else {
			rest = append(rest, e)
		}
	}
	sortByIndex(listed, index)
	return append(listed, rest...)
}

func (c *Coordinator) validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidInput("name must not be empty")
	}
	if !validName(name) {
		return "", invalidPath(c.root, name, "name must be a single path segment")
	}
	return name, nil
}

func (c *Coordinator) logReport(r *BatchReport) {
	ev := c.log.Info()
	if len(r.Failures) > 0 {
		ev = c.log.Warn()
	}
	ev.Str("op", string(r.Op)).
		Int("succeeded", len(r.Succeeded)).
		Int("skipped", len(r.Skipped)).
		Int("failed", len(r.Failures)).
		Msg("batch finished")
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, separator)
}

func notListed(path string) error {
	return errors.Wrapf(ErrInvalidPath, "%q is not in the current listing", path)
}
