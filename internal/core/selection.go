package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ViewerID is an object id as reported by the viewer. Viewers are inconsistent
// about sending ids as numbers or strings, so both decode; matching against
// local dbIds is by numeric equality.
type ViewerID float64

// UnmarshalJSON accepts a JSON number or a string holding a number.
// Non-numeric strings decode to NaN, which never matches a dbId.
func (v *ViewerID) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = ViewerID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("viewer id must be a number or string: %s", string(data))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*v = ViewerID(math.NaN())
		return nil
	}
	*v = ViewerID(f)
	return nil
}

// Matches reports whether the viewer id refers to dbID.
func (v ViewerID) Matches(dbID int64) bool {
	return float64(v) == float64(dbID)
}

// ViewerIDs converts dbIds to viewer ids.
func ViewerIDs(ids []int64) []ViewerID {
	out := make([]ViewerID, len(ids))
	for i, id := range ids {
		out[i] = ViewerID(id)
	}
	return out
}

// ViewerPort is the 3D viewer as seen by the engine. Implementations must not
// report pushes made through Isolate, Hide or FitToView as selection changes.
type ViewerPort interface {
	Isolate(ctx context.Context, ids []int64) error
	Hide(ctx context.Context, ids []int64) error
	Select(ctx context.Context, ids []int64) error
	ClearSelection(ctx context.Context) error
	FitToView(ctx context.Context, ids []int64) error
	GetSelection(ctx context.Context) ([]ViewerID, error)
	ApplyColorByDiscipline(ctx context.Context, ids []int64, colorHex string) error

	// SubscribeSelection registers fn for selection-changed events and
	// returns a function that removes the subscription.
	SubscribeSelection(fn func([]ViewerID)) (cancel func())
}

// RecordSource returns the full loaded dataset.
type RecordSource func() []ElementRecord

// SearchResult is the outcome of a dbId search.
type SearchResult string

const (
	SearchFound    SearchResult = "found"
	SearchNotFound SearchResult = "not_found"
)

// DisciplinePalette is the colour cycle used by ColorByDiscipline.
var DisciplinePalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// SelectionController keeps local row selection and the viewer selection in step.
//
// The sync flag is a latest-value cell: viewer callbacks read it when they
// run, so a toggle takes effect for the next event.
type SelectionController struct {
	viewer  ViewerPort
	records RecordSource

	syncEnabled atomic.Bool
	echoes      atomic.Uint64

	mu        sync.Mutex
	selection SelectionSet
	anchor    int    // rowNumber of the last plain click, 0 when unset
	echo      string // key of the id set last pushed with Select
	hasEcho   bool
	cancel    func()
}

// NewSelectionController creates a controller reading records from source.
// viewer may be nil when no viewer is attached; push operations then return ErrNoViewer.
func NewSelectionController(viewer ViewerPort, source RecordSource) *SelectionController {
	c := &SelectionController{
		viewer:    viewer,
		records:   source,
		selection: NewSelectionSet(),
	}
	if viewer != nil {
		c.cancel = viewer.SubscribeSelection(func(ids []ViewerID) {
			c.HandleViewerSelection(ids)
		})
	}
	return c
}

// Close removes the viewer subscription.
func (c *SelectionController) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Selection returns a copy of the current selection.
func (c *SelectionController) Selection() SelectionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionCopyLocked()
}

// SelectedIDs returns the selected dbIds in ascending order.
func (c *SelectionController) SelectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedIDs(c.selection)
}

// Anchor returns the range anchor rowNumber, or 0 when unset.
func (c *SelectionController) Anchor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor
}

// SyncEnabled reports whether viewer events update the selection.
func (c *SelectionController) SyncEnabled() bool {
	return c.syncEnabled.Load()
}

// SuppressedEchoes returns how many viewer events were swallowed as echoes of our own pushes.
func (c *SelectionController) SuppressedEchoes() uint64 {
	return c.echoes.Load()
}

// Click applies a local row click. With rangeMod and an anchor set, the
// selection becomes every record whose rowNumber lies between the anchor and
// the clicked row, over the full dataset. Otherwise the clicked row alone is
// selected and becomes the anchor.
func (c *SelectionController) Click(rec ElementRecord, rangeMod bool) SelectionSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rangeMod && c.anchor > 0 {
		lo, hi := c.anchor, rec.RowNumber
		if lo > hi {
			lo, hi = hi, lo
		}
		sel := NewSelectionSet()
		for _, r := range c.records() {
			if r.RowNumber >= lo && r.RowNumber <= hi {
				sel[r.DbID] = struct{}{}
			}
		}
		c.selection = sel
		return c.selectionCopyLocked()
	}

	c.selection = NewSelectionSet(rec.DbID)
	c.anchor = rec.RowNumber
	return c.selectionCopyLocked()
}

// HandleViewerSelection applies a selection-changed event from the viewer.
// It reports whether the local selection was replaced. Events are ignored
// while sync is disabled, and the first event matching our last Select push
// is swallowed.
func (c *SelectionController) HandleViewerSelection(ids []ViewerID) bool {
	if !c.syncEnabled.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasEcho {
		echo := c.echo
		c.hasEcho = false
		c.echo = ""
		if echo == viewerKey(ids) {
			c.echoes.Add(1)
			slog.Debug("viewer selection echo suppressed", "count", len(ids))
			return false
		}
	}

	c.applyViewerLocked(ids)
	return true
}

// SetSyncEnabled toggles viewer-to-table sync. Turning sync on immediately
// pulls the viewer's current selection; if that pull fails the previous
// setting is restored.
func (c *SelectionController) SetSyncEnabled(ctx context.Context, on bool) error {
	prev := c.syncEnabled.Swap(on)
	if !on || c.viewer == nil {
		return nil
	}

	ids, err := c.viewer.GetSelection(ctx)
	if err != nil {
		c.syncEnabled.Store(prev)
		return fmt.Errorf("get viewer selection: %w", err)
	}

	c.mu.Lock()
	c.hasEcho = false
	c.echo = ""
	c.applyViewerLocked(ids)
	c.mu.Unlock()
	return nil
}

// applyViewerLocked replaces the selection with the loaded records matching ids.
// No match yields an empty selection.
func (c *SelectionController) applyViewerLocked(ids []ViewerID) {
	sel := NewSelectionSet()
	if len(ids) > 0 {
		for _, r := range c.records() {
			for _, id := range ids {
				if id.Matches(r.DbID) {
					sel[r.DbID] = struct{}{}
					break
				}
			}
		}
	}
	c.selection = sel
}

// Isolate shows only the selected elements in the viewer.
func (c *SelectionController) Isolate(ctx context.Context) error {
	if c.viewer == nil {
		return ErrNoViewer
	}
	return c.viewer.Isolate(ctx, c.SelectedIDs())
}

// Hide hides the selected elements in the viewer.
func (c *SelectionController) Hide(ctx context.Context) error {
	if c.viewer == nil {
		return ErrNoViewer
	}
	return c.viewer.Hide(ctx, c.SelectedIDs())
}

// FitToView frames the selected elements in the viewer.
func (c *SelectionController) FitToView(ctx context.Context) error {
	if c.viewer == nil {
		return ErrNoViewer
	}
	return c.viewer.FitToView(ctx, c.SelectedIDs())
}

// Highlight selects the current selection in the viewer. The resulting
// viewer event is recognised as an echo and not applied back.
func (c *SelectionController) Highlight(ctx context.Context) error {
	if c.viewer == nil {
		return ErrNoViewer
	}

	c.mu.Lock()
	ids := sortedIDs(c.selection)
	c.echo = idsKey(ids)
	c.hasEcho = true
	c.mu.Unlock()

	if len(ids) == 0 {
		return c.viewer.ClearSelection(ctx)
	}
	return c.viewer.Select(ctx, ids)
}

// Clear empties the local selection and the viewer selection.
func (c *SelectionController) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.selection = NewSelectionSet()
	c.anchor = 0
	if c.viewer != nil {
		c.echo = idsKey(nil)
		c.hasEcho = true
	}
	c.mu.Unlock()

	if c.viewer == nil {
		return nil
	}
	return c.viewer.ClearSelection(ctx)
}

// SearchByDbID selects the record with the given dbId and frames it in the
// viewer. A miss clears the selection.
func (c *SelectionController) SearchByDbID(ctx context.Context, dbID int64) (SearchResult, error) {
	var found *ElementRecord
	for _, r := range c.records() {
		if r.DbID == dbID {
			r := r
			found = &r
			break
		}
	}

	c.mu.Lock()
	if found == nil {
		c.selection = NewSelectionSet()
		c.anchor = 0
		c.mu.Unlock()
		return SearchNotFound, nil
	}
	c.selection = NewSelectionSet(dbID)
	c.anchor = found.RowNumber
	c.mu.Unlock()

	if c.viewer == nil {
		return SearchFound, nil
	}
	if err := c.Highlight(ctx); err != nil {
		return SearchFound, err
	}
	if err := c.viewer.FitToView(ctx, []int64{dbID}); err != nil {
		return SearchFound, err
	}
	return SearchFound, nil
}

// Prune drops selected ids that are no longer loaded and resets an anchor
// that points past the end of the dataset.
func (c *SelectionController) Prune() {
	records := c.records()
	loaded := make(map[int64]struct{}, len(records))
	for _, r := range records {
		loaded[r.DbID] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.selection {
		if _, ok := loaded[id]; !ok {
			delete(c.selection, id)
		}
	}
	if c.anchor > len(records) {
		c.anchor = 0
	}
}

// ColorByDiscipline colours every loaded element by its discipline and returns
// the colour assigned to each discipline. Disciplines are coloured in locale
// order so assignments are stable across loads.
func (c *SelectionController) ColorByDiscipline(ctx context.Context) (map[string]string, error) {
	if c.viewer == nil {
		return nil, ErrNoViewer
	}

	byDiscipline := make(map[string][]int64)
	for _, r := range c.records() {
		label := r.DisciplineLabel()
		byDiscipline[label] = append(byDiscipline[label], r.DbID)
	}

	labels := make([]string, 0, len(byDiscipline))
	for label := range byDiscipline {
		labels = append(labels, label)
	}
	sortLabels(labels)

	colors := make(map[string]string, len(labels))
	for i, label := range labels {
		color := DisciplinePalette[i%len(DisciplinePalette)]
		if err := c.viewer.ApplyColorByDiscipline(ctx, byDiscipline[label], color); err != nil {
			return colors, fmt.Errorf("color %s: %w", label, err)
		}
		colors[label] = color
	}
	return colors, nil
}

func (c *SelectionController) selectionCopyLocked() SelectionSet {
	out := make(SelectionSet, len(c.selection))
	for id := range c.selection {
		out[id] = struct{}{}
	}
	return out
}

func sortedIDs(s SelectionSet) []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// idsKey and viewerKey produce the same canonical key for the same id set.
func idsKey(ids []int64) string {
	return viewerKey(ViewerIDs(ids))
}

func viewerKey(ids []ViewerID) string {
	vals := make([]float64, len(ids))
	for i, id := range ids {
		vals[i] = float64(id)
	}
	sort.Float64s(vals)

	parts := make([]string, 0, len(vals))
	for i, v := range vals {
		if i > 0 && v == vals[i-1] {
			continue
		}
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}
