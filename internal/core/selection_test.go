package core

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
)

// fakeViewer records pushes and lets tests emit selection events.
type fakeViewer struct {
	mu        sync.Mutex
	calls     []string
	lastIDs   []int64
	selection []ViewerID
	colors    map[string][]int64
	getErr    error
	subs      map[int]func([]ViewerID)
	nextSub   int
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{colors: make(map[string][]int64), subs: make(map[int]func([]ViewerID))}
}

func (f *fakeViewer) record(call string, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.lastIDs = ids
	return nil
}

func (f *fakeViewer) Isolate(_ context.Context, ids []int64) error   { return f.record("isolate", ids) }
func (f *fakeViewer) Hide(_ context.Context, ids []int64) error      { return f.record("hide", ids) }
func (f *fakeViewer) Select(_ context.Context, ids []int64) error    { return f.record("select", ids) }
func (f *fakeViewer) FitToView(_ context.Context, ids []int64) error { return f.record("fit", ids) }
func (f *fakeViewer) ClearSelection(_ context.Context) error         { return f.record("clear", nil) }

func (f *fakeViewer) GetSelection(context.Context) ([]ViewerID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selection, f.getErr
}

func (f *fakeViewer) ApplyColorByDiscipline(_ context.Context, ids []int64, color string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.colors[color] = ids
	return nil
}

func (f *fakeViewer) SubscribeSelection(fn func([]ViewerID)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// emit delivers a selection event to all subscribers.
func (f *fakeViewer) emit(ids ...ViewerID) {
	f.mu.Lock()
	subs := make([]func([]ViewerID), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ids)
	}
}

func (f *fakeViewer) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func orderedRecords() []ElementRecord {
	return Reorder([]ElementRecord{
		rec(101, "A", ""), rec(102, "A", ""), rec(103, "A", ""),
		rec(104, "B", ""), rec(105, "B", ""), rec(106, "C", ""),
	}, false)
}

func newTestController(records []ElementRecord) (*SelectionController, *fakeViewer) {
	v := newFakeViewer()
	c := NewSelectionController(v, func() []ElementRecord { return records })
	return c, v
}

func TestSelection_Click(t *testing.T) {
	records := orderedRecords()
	c, _ := newTestController(records)

	sel := c.Click(records[2], false)
	if len(sel) != 1 || !sel.Contains(103) {
		t.Errorf("Click() selection = %v, want {103}", sel)
	}
	if c.Anchor() != 3 {
		t.Errorf("Anchor() = %d, want 3", c.Anchor())
	}

	sel = c.Click(records[0], false)
	if len(sel) != 1 || !sel.Contains(101) {
		t.Errorf("second Click() selection = %v, want {101}", sel)
	}
}

func TestSelection_RangeClick(t *testing.T) {
	records := orderedRecords()

	tests := []struct {
		name    string
		anchor  int // index into records, -1 for none
		clicked int
		want    []int64
	}{
		{name: "forward range", anchor: 1, clicked: 4, want: []int64{102, 103, 104, 105}},
		{name: "backward range", anchor: 4, clicked: 1, want: []int64{102, 103, 104, 105}},
		{name: "same row", anchor: 2, clicked: 2, want: []int64{103}},
		{name: "no anchor behaves like a plain click", anchor: -1, clicked: 3, want: []int64{104}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(records)
			if tt.anchor >= 0 {
				c.Click(records[tt.anchor], false)
			}
			c.Click(records[tt.clicked], true)

			if got := c.SelectedIDs(); !equalIDs(got, tt.want) {
				t.Errorf("selection = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelection_RangeClickSpansFullDataset(t *testing.T) {
	records := make([]ElementRecord, 600)
	for i := range records {
		records[i] = rec(int64(i+1), "A", "")
	}
	records = Reorder(records, false)
	c, _ := newTestController(records)

	// Rows 10 and 590 are on different pages of 250.
	c.Click(records[9], false)
	sel := c.Click(records[589], true)

	if len(sel) != 581 {
		t.Errorf("range selection size = %d, want 581", len(sel))
	}
	if !sel.Contains(300) {
		t.Error("range selection missing a row from an unrendered page")
	}
}

func TestSelection_ViewerEvents(t *testing.T) {
	records := orderedRecords()

	t.Run("ignored while sync disabled", func(t *testing.T) {
		c, v := newTestController(records)
		c.Click(records[0], false)

		v.emit(104, 105)
		if got := c.SelectedIDs(); !equalIDs(got, []int64{101}) {
			t.Errorf("selection = %v, want unchanged [101]", got)
		}
	})

	t.Run("replaces selection when enabled", func(t *testing.T) {
		c, v := newTestController(records)
		if err := c.SetSyncEnabled(context.Background(), true); err != nil {
			t.Fatalf("SetSyncEnabled() error = %v", err)
		}
		c.Click(records[0], false)

		v.emit(104, 105, 999)
		if got := c.SelectedIDs(); !equalIDs(got, []int64{104, 105}) {
			t.Errorf("selection = %v, want [104 105]", got)
		}
	})

	t.Run("no match empties selection", func(t *testing.T) {
		c, v := newTestController(records)
		_ = c.SetSyncEnabled(context.Background(), true)
		c.Click(records[0], false)

		v.emit(999)
		if got := c.SelectedIDs(); len(got) != 0 {
			t.Errorf("selection = %v, want empty", got)
		}
	})

	t.Run("toggle off mid-stream applies to next event", func(t *testing.T) {
		c, v := newTestController(records)
		_ = c.SetSyncEnabled(context.Background(), true)
		v.emit(102)
		_ = c.SetSyncEnabled(context.Background(), false)
		v.emit(103)

		if got := c.SelectedIDs(); !equalIDs(got, []int64{102}) {
			t.Errorf("selection = %v, want [102]", got)
		}
	})
}

func TestSelection_EnableSyncPullsViewerSelection(t *testing.T) {
	records := orderedRecords()
	c, v := newTestController(records)
	v.selection = []ViewerID{103, 106}

	if err := c.SetSyncEnabled(context.Background(), true); err != nil {
		t.Fatalf("SetSyncEnabled() error = %v", err)
	}
	if got := c.SelectedIDs(); !equalIDs(got, []int64{103, 106}) {
		t.Errorf("selection = %v, want [103 106]", got)
	}

	v.getErr = errors.New("viewer gone")
	if err := c.SetSyncEnabled(context.Background(), true); err == nil {
		t.Error("SetSyncEnabled() expected error from viewer")
	}
	if !c.SyncEnabled() {
		t.Error("failed re-enable turned sync off")
	}
}

func TestSelection_EnableSyncFailureRestoresFlag(t *testing.T) {
	c, v := newTestController(orderedRecords())
	v.getErr = errors.New("viewer gone")

	if err := c.SetSyncEnabled(context.Background(), true); err == nil {
		t.Fatal("SetSyncEnabled() expected error from viewer")
	}
	if c.SyncEnabled() {
		t.Error("sync left on after the viewer selection could not be read")
	}
	if c.HandleViewerSelection([]ViewerID{101}) {
		t.Error("viewer event applied while sync is off")
	}
}

func TestSelection_EchoSuppression(t *testing.T) {
	records := orderedRecords()
	c, v := newTestController(records)
	_ = c.SetSyncEnabled(context.Background(), true)

	c.Click(records[0], false)
	c.Click(records[2], true) // 101..103

	if err := c.Highlight(context.Background()); err != nil {
		t.Fatalf("Highlight() error = %v", err)
	}
	if v.lastCall() != "select" {
		t.Errorf("viewer call = %q, want select", v.lastCall())
	}

	// The viewer reports our own push back, in another order and as strings.
	var echoed []ViewerID
	if err := json.Unmarshal([]byte(`["103", 101, "102"]`), &echoed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.HandleViewerSelection(echoed) {
		t.Error("echo was applied as a viewer selection")
	}
	if c.SuppressedEchoes() != 1 {
		t.Errorf("SuppressedEchoes() = %d, want 1", c.SuppressedEchoes())
	}

	// Suppression is one-shot; a real user selection afterwards applies.
	if !c.HandleViewerSelection(echoed) {
		t.Error("second identical event should be applied")
	}
	if got := c.SelectedIDs(); !equalIDs(got, []int64{101, 102, 103}) {
		t.Errorf("selection = %v, want [101 102 103]", got)
	}
}

func TestSelection_PushesDoNotChangeSelection(t *testing.T) {
	records := orderedRecords()
	c, v := newTestController(records)
	ctx := context.Background()
	c.Click(records[1], false)

	for name, push := range map[string]func(context.Context) error{
		"isolate": c.Isolate,
		"hide":    c.Hide,
		"fit":     c.FitToView,
	} {
		if err := push(ctx); err != nil {
			t.Fatalf("%s error = %v", name, err)
		}
		if v.lastCall() != name {
			t.Errorf("viewer call = %q, want %q", v.lastCall(), name)
		}
		if !equalIDs(v.lastIDs, []int64{102}) {
			t.Errorf("%s ids = %v, want [102]", name, v.lastIDs)
		}
		if got := c.SelectedIDs(); !equalIDs(got, []int64{102}) {
			t.Errorf("after %s selection = %v, want [102]", name, got)
		}
	}
}

func TestSelection_NoViewer(t *testing.T) {
	c := NewSelectionController(nil, orderedRecords)
	if err := c.Isolate(context.Background()); !errors.Is(err, ErrNoViewer) {
		t.Errorf("Isolate() error = %v, want ErrNoViewer", err)
	}
	if err := c.SetSyncEnabled(context.Background(), true); err != nil {
		t.Errorf("SetSyncEnabled() error = %v, want nil", err)
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Errorf("Clear() error = %v, want nil", err)
	}
}

func TestSelection_SearchByDbID(t *testing.T) {
	records := orderedRecords()
	c, v := newTestController(records)
	ctx := context.Background()

	got, err := c.SearchByDbID(ctx, 105)
	if err != nil {
		t.Fatalf("SearchByDbID() error = %v", err)
	}
	if got != SearchFound {
		t.Errorf("SearchByDbID(105) = %s, want %s", got, SearchFound)
	}
	if ids := c.SelectedIDs(); !equalIDs(ids, []int64{105}) {
		t.Errorf("selection = %v, want [105]", ids)
	}
	if v.lastCall() != "fit" {
		t.Errorf("viewer call = %q, want fit", v.lastCall())
	}

	got, _ = c.SearchByDbID(ctx, 4242)
	if got != SearchNotFound {
		t.Errorf("SearchByDbID(4242) = %s, want %s", got, SearchNotFound)
	}
	if ids := c.SelectedIDs(); len(ids) != 0 {
		t.Errorf("selection after miss = %v, want empty", ids)
	}
}

func TestSelection_Prune(t *testing.T) {
	records := orderedRecords()
	current := records
	v := newFakeViewer()
	c := NewSelectionController(v, func() []ElementRecord { return current })

	c.Click(records[0], false)
	c.Click(records[5], true)

	current = Reorder(records[:3], false)
	c.Prune()

	if got := c.SelectedIDs(); !equalIDs(got, []int64{101, 102, 103}) {
		t.Errorf("selection = %v, want [101 102 103]", got)
	}
}

func TestSelection_ColorByDiscipline(t *testing.T) {
	records := Reorder([]ElementRecord{
		rec(1, "Structural", ""), rec(2, "Architectural", ""), rec(3, "", ""), rec(4, "Structural", ""),
	}, false)
	c, v := newTestController(records)

	colors, err := c.ColorByDiscipline(context.Background())
	if err != nil {
		t.Fatalf("ColorByDiscipline() error = %v", err)
	}
	if colors["Architectural"] != DisciplinePalette[0] {
		t.Errorf("Architectural color = %s, want %s", colors["Architectural"], DisciplinePalette[0])
	}
	if colors["Structural"] != DisciplinePalette[2] {
		t.Errorf("Structural color = %s, want %s", colors["Structural"], DisciplinePalette[2])
	}
	if ids := v.colors[DisciplinePalette[2]]; !equalIDs(ids, []int64{1, 4}) {
		t.Errorf("Structural ids = %v, want [1 4]", ids)
	}
}

func TestViewerID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantNaN bool
		wantErr bool
	}{
		{input: `42`, want: 42},
		{input: `"42"`, want: 42},
		{input: `" 7 "`, want: 7},
		{input: `42.0`, want: 42},
		{input: `"abc"`, wantNaN: true},
		{input: `true`, wantErr: true},
	}
	for _, tt := range tests {
		var got ViewerID
		err := json.Unmarshal([]byte(tt.input), &got)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if tt.wantNaN {
			if !math.IsNaN(float64(got)) {
				t.Errorf("Unmarshal(%s) = %v, want NaN", tt.input, got)
			}
			continue
		}
		if float64(got) != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if !ViewerID(42).Matches(42) || ViewerID(42.5).Matches(42) {
		t.Error("Matches() numeric equality broken")
	}
}
