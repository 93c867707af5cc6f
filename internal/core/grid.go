package core

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
)

// DefaultViewCacheTTL is how long a computed view stays memoized.
var DefaultViewCacheTTL = 5 * time.Minute

// GridOptions configures a new grid.
type GridOptions struct {
	PageSize     int
	GroupByCode  bool
	Alphabetical bool
	CacheTTL     time.Duration
}

// GridView is one rendered page of a grid.
type GridView struct {
	Section      Section
	Columns      []ColumnSpec
	Rows         []ViewRow
	Page         int
	PageSize     int
	TotalPages   int
	TotalRows    int
	GrandTotals  Totals
	Filter       string
	GroupByCode  bool
	Alphabetical bool
	Records      int // Loaded records
	Filtered     int // Records matching the filter
	Revision     uint64

	// Selected is applied per request and never cached.
	Selected SelectionSet
}

// Grid is one table session: the record array plus view state.
//
// The record array is copy-on-write. Every change stores a new slice, so
// readers holding a snapshot never see a partial update.
type Grid struct {
	ID string

	records   atomic.Pointer[[]ElementRecord]
	selection *SelectionController
	metrics   MetricsRecorder

	mu           sync.Mutex
	revision     uint64
	filter       string
	groupByCode  bool
	alphabetical bool
	collapsed    CollapseState
	removed      SelectionSet // Removed since the last load or push
	page         int
	pageSize     int
	views        *cache.Cache
	lastUsed     time.Time
}

// NewGrid creates an empty grid. viewer may be nil.
func NewGrid(id string, opts GridOptions, viewer ViewerPort, metrics MetricsRecorder) *Grid {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultViewCacheTTL
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	g := &Grid{
		ID:           id,
		metrics:      metrics,
		groupByCode:  opts.GroupByCode,
		alphabetical: opts.Alphabetical,
		collapsed:    make(CollapseState),
		removed:      NewSelectionSet(),
		page:         1,
		pageSize:     opts.PageSize,
		views:        cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		lastUsed:     time.Now(),
	}
	empty := []ElementRecord{}
	g.records.Store(&empty)
	g.selection = NewSelectionController(viewer, g.Records)
	return g
}

// Records returns the current record snapshot. Callers must not modify it.
func (g *Grid) Records() []ElementRecord {
	return *g.records.Load()
}

// Selection returns the grid's selection controller.
func (g *Grid) Selection() *SelectionController {
	return g.selection
}

// Close releases the viewer subscription.
func (g *Grid) Close() {
	g.selection.Close()
	g.views.Flush()
}

// Revision returns the dataset revision, bumped on every record change.
func (g *Grid) Revision() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.revision
}

// GroupByCode reports whether code grouping is active.
func (g *Grid) GroupByCode() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.groupByCode
}

// LastUsed returns when the grid was last accessed.
func (g *Grid) LastUsed() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastUsed
}

// commitLocked stores a new record array and invalidates memoized views.
func (g *Grid) commitLocked(records []ElementRecord) {
	g.records.Store(&records)
	g.revision++
	g.views.Flush()
	g.lastUsed = time.Now()
}

// Load replaces the whole dataset, renumbers it and returns to the first page.
func (g *Grid) Load(records []ElementRecord) {
	g.mu.Lock()
	g.commitLocked(Reorder(records, g.groupByCode))
	g.removed = NewSelectionSet()
	g.page = 1
	g.mu.Unlock()

	g.selection.Prune()
}

// Insert adds a record. A dbId that is already loaded is rejected and the
// existing row kept.
func (g *Grid) Insert(rec ElementRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.Records()
	for _, r := range current {
		if r.DbID == rec.DbID {
			return &DuplicateError{DbID: rec.DbID}
		}
	}

	next := make([]ElementRecord, len(current), len(current)+1)
	copy(next, current)
	next = append(next, rec)
	g.commitLocked(Reorder(next, g.groupByCode))
	delete(g.removed, rec.DbID)
	return nil
}

// Remove deletes records by dbId and returns how many were removed.
func (g *Grid) Remove(ids ...int64) int {
	drop := NewSelectionSet(ids...)

	g.mu.Lock()
	current := g.Records()
	next := make([]ElementRecord, 0, len(current))
	for _, r := range current {
		if drop.Contains(r.DbID) {
			g.removed[r.DbID] = struct{}{}
			continue
		}
		next = append(next, r)
	}
	removed := len(current) - len(next)
	if removed > 0 {
		g.commitLocked(Reorder(next, g.groupByCode))
	}
	g.mu.Unlock()

	if removed > 0 {
		g.selection.Prune()
	}
	return removed
}

// PendingRemovals returns the dbIds removed since the last load or push.
func (g *Grid) PendingRemovals() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedIDs(g.removed)
}

// ClearRemovals forgets removals once the backend has deleted them.
func (g *Grid) ClearRemovals(ids []int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		delete(g.removed, id)
	}
}

// Edit applies a cell edit, broadcasting to the selection when the edited
// row is selected.
func (g *Grid) Edit(change FieldChange) (EditResult, error) {
	sel := g.selection.Selection()

	g.mu.Lock()
	defer g.mu.Unlock()

	result, err := ApplyFieldChange(g.Records(), sel, change, g.groupByCode)
	if err != nil {
		return EditResult{}, err
	}
	g.commitLocked(result.Records)
	g.metrics.ObserveEdit(change.Field, result.Updated)

	slog.Debug("grid edit applied",
		"grid", g.ID,
		"field", change.Field,
		"updated", result.Updated,
		"reordered", result.Reordered,
	)
	return result, nil
}

// SetFilter sets the free-text filter and returns to the first page.
func (g *Grid) SetFilter(q string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter = q
	g.page = 1
	g.lastUsed = time.Now()
}

// SetGroupByCode switches grouping mode and renumbers rows for it.
func (g *Grid) SetGroupByCode(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.groupByCode == on {
		return
	}
	g.groupByCode = on
	g.commitLocked(Reorder(g.Records(), on))
	g.page = 1
}

// SetAlphabetical toggles alphabetical group ordering.
func (g *Grid) SetAlphabetical(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.alphabetical = on
	g.lastUsed = time.Now()
}

// ToggleCollapse flips a group's collapsed flag and returns the new state.
func (g *Grid) ToggleCollapse(key GroupKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastUsed = time.Now()
	return g.collapsed.Toggle(key)
}

// SetPage selects a page. Out-of-range values are clamped when rendering.
func (g *Grid) SetPage(page int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.page = page
	g.lastUsed = time.Now()
}

// Navigate applies a pagination action and returns the resulting page.
func (g *Grid) Navigate(action PageAction) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := g.viewLocked(SectionGeneral)
	g.page = Navigate(v.Page, v.TotalPages, action)
	g.lastUsed = time.Now()
	return g.page
}

// View renders the current page for section.
func (g *Grid) View(section Section) GridView {
	g.mu.Lock()
	v := g.viewLocked(section)
	g.lastUsed = time.Now()
	g.mu.Unlock()

	v.Selected = g.selection.Selection()
	return v
}

func (g *Grid) viewKeyLocked(section Section) string {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.FormatUint(g.revision, 10))
	_, _ = h.WriteString("\x00" + g.filter)
	_, _ = h.WriteString("\x00" + strconv.FormatBool(g.groupByCode))
	_, _ = h.WriteString("\x00" + strconv.FormatBool(g.alphabetical))
	_, _ = h.WriteString("\x00" + g.collapsed.Snapshot())
	_, _ = h.WriteString("\x00" + strconv.Itoa(g.page))
	_, _ = h.WriteString("\x00" + strconv.Itoa(g.pageSize))
	_, _ = h.WriteString("\x00" + string(section))
	return strconv.FormatUint(h.Sum64(), 16)
}

// viewLocked returns the memoized view for the current state, computing it
// on a miss. The clamped page is written back.
func (g *Grid) viewLocked(section Section) GridView {
	start := time.Now()
	key := g.viewKeyLocked(section)

	if cached, ok := g.views.Get(key); ok {
		v := cached.(GridView)
		g.page = v.Page
		g.metrics.ObserveView(string(section), len(v.Rows), true, time.Since(start))
		return v
	}

	records := g.Records()
	filtered := FilterRecords(records, g.filter)
	idx := BuildGroups(filtered, GroupOptions{ByCode: g.groupByCode, Alphabetical: g.alphabetical})
	rows := Flatten(idx, g.collapsed, NumericFields)
	page := Paginate(rows, g.page, g.pageSize)

	v := GridView{
		Section:      section,
		Columns:      SectionColumns(section),
		Rows:         page.Rows,
		Page:         page.Page,
		PageSize:     page.PageSize,
		TotalPages:   page.TotalPages,
		TotalRows:    page.TotalRows,
		GrandTotals:  GrandTotals(filtered, NumericFields),
		Filter:       g.filter,
		GroupByCode:  g.groupByCode,
		Alphabetical: g.alphabetical,
		Records:      len(records),
		Filtered:     len(filtered),
		Revision:     g.revision,
	}
	g.views.SetDefault(key, v)
	g.page = v.Page

	g.metrics.ObserveView(string(section), len(v.Rows), false, time.Since(start))
	return v
}
