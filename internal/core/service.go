package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PullTimeout bounds one pull from the backend.
var PullTimeout = 2 * time.Minute

// PushTimeout bounds one push to the backend.
var PushTimeout = 2 * time.Minute

// MaxConcurrentPulls limits parallel per-discipline pulls.
var MaxConcurrentPulls = 4

// ChangeKind names a dataset change.
type ChangeKind string

const (
	ChangePull   ChangeKind = "pull"
	ChangePush   ChangeKind = "push"
	ChangeEdit   ChangeKind = "edit"
	ChangeInsert ChangeKind = "insert"
	ChangeRemove ChangeKind = "remove"
)

// ChangeEvent describes a committed dataset change.
type ChangeEvent struct {
	Kind        ChangeKind `json:"kind"`
	GridID      string     `json:"gridId"`
	Disciplines []string   `json:"disciplines,omitempty"`
	Field       string     `json:"field,omitempty"`
	Records     int        `json:"records"`
	Revision    uint64     `json:"revision"`
	At          time.Time  `json:"at"`
}

// ChangeNotifier is told about committed dataset changes.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, ev ChangeEvent) error
}

// MetricsRecorder receives engine measurements.
type MetricsRecorder interface {
	ObserveView(section string, rows int, cached bool, d time.Duration)
	ObservePull(records int, err error, d time.Duration)
	ObservePush(records int, err error, d time.Duration)
	ObserveEdit(field string, updated int)
	SetSessions(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveView(string, int, bool, time.Duration) {}
func (nopMetrics) ObservePull(int, error, time.Duration)        {}
func (nopMetrics) ObservePush(int, error, time.Duration)        {}
func (nopMetrics) ObserveEdit(string, int)                      {}
func (nopMetrics) SetSessions(int)                              {}

// ViewerFactory returns the viewer port for a new grid session.
type ViewerFactory func(gridID string) ViewerPort

// ServiceConfig wires the service's collaborators. Only Backend is required
// for pull and push; everything else is optional.
type ServiceConfig struct {
	Backend    Backend
	Viewers    ViewerFactory
	Notifier   ChangeNotifier
	Metrics    MetricsRecorder
	Grid       GridOptions
	SessionTTL time.Duration

	// Limiter bounds concurrent pulls and pushes across sessions. Nil means unbounded.
	Limiter *SyncLimiter

	// OnClose runs after a session is closed or expired.
	OnClose func(gridID string)
}

// Service owns the grid sessions and the backend data port.
type Service struct {
	backend    Backend
	viewers    ViewerFactory
	notifier   ChangeNotifier
	metrics    MetricsRecorder
	gridOpts   GridOptions
	sessionTTL time.Duration
	limiter    *SyncLimiter
	onClose    func(gridID string)

	mu    sync.RWMutex
	grids map[string]*Grid
}

// NewService creates a new Service instance.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &Service{
		backend:    cfg.Backend,
		viewers:    cfg.Viewers,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		gridOpts:   cfg.Grid,
		sessionTTL: cfg.SessionTTL,
		limiter:    cfg.Limiter,
		onClose:    cfg.OnClose,
		grids:      make(map[string]*Grid),
	}
}

// Limiter returns the transfer limiter, or nil when transfers are unbounded.
func (s *Service) Limiter() *SyncLimiter {
	return s.limiter
}

// acquire takes a transfer slot. The returned release is always safe to call.
func (s *Service) acquire(ctx context.Context) (release func(), err error) {
	if s.limiter == nil {
		return func() {}, nil
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return func() {}, err
	}
	return s.limiter.Release, nil
}

// GridOptions returns the defaults applied to new grids.
func (s *Service) GridOptions() GridOptions {
	return s.gridOpts
}

// CreateGrid opens a new empty grid session.
func (s *Service) CreateGrid() *Grid {
	id := uuid.New().String()

	var viewer ViewerPort
	if s.viewers != nil {
		viewer = s.viewers(id)
	}
	g := NewGrid(id, s.gridOpts, viewer, s.metrics)

	s.mu.Lock()
	s.grids[id] = g
	n := len(s.grids)
	s.mu.Unlock()

	s.metrics.SetSessions(n)
	slog.Info("grid session created", "grid", id)
	return g
}

// Grid returns a session by id.
func (s *Service) Grid(id string) (*Grid, error) {
	s.mu.RLock()
	g, ok := s.grids[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return g, nil
}

// CloseGrid ends a session.
func (s *Service) CloseGrid(id string) error {
	s.mu.Lock()
	g, ok := s.grids[id]
	delete(s.grids, id)
	n := len(s.grids)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.closeGrid(g)
	s.metrics.SetSessions(n)
	return nil
}

func (s *Service) closeGrid(g *Grid) {
	g.Close()
	if s.onClose != nil {
		s.onClose(g.ID)
	}
}

// Sessions returns the number of open sessions.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grids)
}

// ExpireIdle closes sessions not used since before now minus the session TTL.
func (s *Service) ExpireIdle(now time.Time) int {
	cutoff := now.Add(-s.sessionTTL)

	s.mu.Lock()
	var expired []*Grid
	for id, g := range s.grids {
		if g.LastUsed().Before(cutoff) {
			expired = append(expired, g)
			delete(s.grids, id)
		}
	}
	n := len(s.grids)
	s.mu.Unlock()

	for _, g := range expired {
		s.closeGrid(g)
		slog.Info("grid session expired", "grid", g.ID)
	}
	if len(expired) > 0 {
		s.metrics.SetSessions(n)
	}
	return len(expired)
}

// FetchRecords pulls records from the backend. With no disciplines the whole
// dataset is pulled; otherwise each discipline is pulled concurrently and the
// results are concatenated in the order given. Records already seen under an
// earlier discipline are skipped so dbIds stay unique.
func (s *Service) FetchRecords(ctx context.Context, disciplines []string) ([]ElementRecord, error) {
	if s.backend == nil {
		return nil, ErrNoBackend
	}
	if len(disciplines) == 0 {
		disciplines = []string{""}
	}

	results := make([][]ElementRecord, len(disciplines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentPulls)
	for i, d := range disciplines {
		g.Go(func() error {
			recs, err := s.backend.Pull(gctx, d)
			if err != nil {
				if d == "" {
					return fmt.Errorf("pull: %w", err)
				}
				return fmt.Errorf("pull %s: %w", d, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var out []ElementRecord
	for _, recs := range results {
		for _, r := range recs {
			if _, dup := seen[r.DbID]; dup {
				continue
			}
			seen[r.DbID] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}

// Pull replaces a grid's dataset with records from the backend. On failure
// the grid is left unchanged.
func (s *Service) Pull(ctx context.Context, gridID string, disciplines []string) (int, error) {
	g, err := s.Grid(gridID)
	if err != nil {
		return 0, err
	}

	if s.backend == nil {
		return 0, ErrNoBackend
	}

	ctx, cancel := context.WithTimeout(ctx, PullTimeout)
	defer cancel()

	release, err := s.acquire(ctx)
	defer release()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	records, err := s.FetchRecords(ctx, disciplines)
	s.metrics.ObservePull(len(records), err, time.Since(start))
	if err != nil {
		return 0, err
	}

	g.Load(records)
	slog.Info("grid pulled",
		"grid", gridID,
		"disciplines", disciplines,
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.notify(ctx, ChangeEvent{
		Kind:        ChangePull,
		GridID:      gridID,
		Disciplines: disciplines,
		Records:     len(records),
		Revision:    g.Revision(),
	})
	return len(records), nil
}

// Push sends a grid's dataset to the backend. Rows removed since the last
// load are deleted first when the backend supports it.
func (s *Service) Push(ctx context.Context, gridID string) (int, error) {
	g, err := s.Grid(gridID)
	if err != nil {
		return 0, err
	}
	if s.backend == nil {
		return 0, ErrNoBackend
	}

	ctx, cancel := context.WithTimeout(ctx, PushTimeout)
	defer cancel()

	release, err := s.acquire(ctx)
	defer release()
	if err != nil {
		return 0, err
	}

	records := g.Records()
	start := time.Now()

	var deleted int64
	removed := g.PendingRemovals()
	if d, ok := s.backend.(Deleter); ok && len(removed) > 0 {
		deleted, err = d.Delete(ctx, removed)
		if err != nil {
			s.metrics.ObservePush(len(records), err, time.Since(start))
			return 0, fmt.Errorf("delete removed: %w", err)
		}
		g.ClearRemovals(removed)
	}

	err = s.backend.Push(ctx, records)
	s.metrics.ObservePush(len(records), err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("push: %w", err)
	}

	slog.Info("grid pushed",
		"grid", gridID,
		"records", len(records),
		"deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.notify(ctx, ChangeEvent{
		Kind:     ChangePush,
		GridID:   gridID,
		Records:  len(records),
		Revision: g.Revision(),
	})
	return len(records), nil
}

// Edit applies a cell edit to a grid.
func (s *Service) Edit(ctx context.Context, gridID string, change FieldChange) (EditResult, error) {
	g, err := s.Grid(gridID)
	if err != nil {
		return EditResult{}, err
	}
	result, err := g.Edit(change)
	if err != nil {
		return EditResult{}, err
	}
	s.notify(ctx, ChangeEvent{
		Kind:     ChangeEdit,
		GridID:   gridID,
		Field:    change.Field,
		Records:  result.Updated,
		Revision: g.Revision(),
	})
	return result, nil
}

// Insert adds a record to a grid.
func (s *Service) Insert(ctx context.Context, gridID string, rec ElementRecord) error {
	g, err := s.Grid(gridID)
	if err != nil {
		return err
	}
	if err := g.Insert(rec); err != nil {
		return err
	}
	s.notify(ctx, ChangeEvent{Kind: ChangeInsert, GridID: gridID, Records: 1, Revision: g.Revision()})
	return nil
}

// Remove deletes records from a grid.
func (s *Service) Remove(ctx context.Context, gridID string, ids []int64) (int, error) {
	g, err := s.Grid(gridID)
	if err != nil {
		return 0, err
	}
	n := g.Remove(ids...)
	if n > 0 {
		s.notify(ctx, ChangeEvent{Kind: ChangeRemove, GridID: gridID, Records: n, Revision: g.Revision()})
	}
	return n, nil
}

// notify publishes a change. Failures are logged, never returned: the change
// is already committed.
func (s *Service) notify(ctx context.Context, ev ChangeEvent) {
	if s.notifier == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := s.notifier.NotifyChange(ctx, ev); err != nil {
		slog.Warn("change notification failed",
			"kind", ev.Kind,
			"grid", ev.GridID,
			"error", err,
		)
	}
}
