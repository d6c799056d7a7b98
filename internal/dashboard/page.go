package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/good-yellow-bee/pricedesk/internal/metrics"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/normalize"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

var (
	// ErrLoadInProgress is returned when Load is called while a load of the
	// same generation is running. The call is dropped, not queued.
	ErrLoadInProgress = errors.New("load already in progress")
	// ErrStaleLoad is returned by a load whose result was discarded because
	// Invalidate ran while it was in flight.
	ErrStaleLoad = errors.New("load superseded")
	// ErrReadOnly is returned for mutations on a dashboard without them.
	ErrReadOnly = errors.New("dashboard is read-only")
	// ErrInvalidStatus is returned for a status the dashboard does not allow.
	ErrInvalidStatus = errors.New("invalid status")
)

// Fetcher retrieves the raw objects of a collection.
type Fetcher interface {
	FetchCollection(ctx context.Context, domain, path, key string) ([]map[string]any, error)
}

// Mutator sends record mutations upstream. Fetchers that also implement
// Mutator enable status updates and deletes.
type Mutator interface {
	Mutate(ctx context.Context, domain, method, path string, body any) (*upstream.MutationResult, error)
}

// State is a copy of a page's loaded state.
type State struct {
	Records    []models.Record
	LoadedAt   time.Time
	Err        error
	Generation uint64
}

// Loaded reports whether a load has completed successfully.
func (s State) Loaded() bool {
	return !s.LoadedAt.IsZero() && s.Err == nil
}

// Page owns the loaded collection of one dashboard.
type Page struct {
	def        *Definition
	fetcher    Fetcher
	normalizer *normalize.Normalizer
	log        logrus.FieldLogger
	now        func() time.Time

	mu       sync.RWMutex
	records  []models.Record
	loadedAt time.Time
	lastErr  error

	generation atomic.Uint64
	// inflight holds generation+1 of the running load, 0 when idle.
	inflight atomic.Uint64
}

// NewPage creates an empty page for def.
func NewPage(def *Definition, fetcher Fetcher, log logrus.FieldLogger) *Page {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Page{
		def:        def,
		fetcher:    fetcher,
		normalizer: NewNormalizer(def),
		log:        log.WithField("dashboard", def.Name),
		now:        time.Now,
	}
}

// Definition returns the page's dashboard definition.
func (p *Page) Definition() *Definition {
	return p.def
}

// Load fetches and normalizes the collection, replacing the current one.
// On failure the collection is reset to empty and the error kept for
// Snapshot and View.
func (p *Page) Load(ctx context.Context) error {
	gen := p.generation.Load()
	for {
		cur := p.inflight.Load()
		if cur == gen+1 {
			metrics.PageLoadsTotal.WithLabelValues(p.def.Name, "dropped").Inc()
			return ErrLoadInProgress
		}
		if p.inflight.CompareAndSwap(cur, gen+1) {
			break
		}
	}
	defer p.inflight.CompareAndSwap(gen+1, 0)

	start := time.Now()
	raws, err := p.fetcher.FetchCollection(ctx, p.def.Name, p.def.Endpoint, p.def.CollectionKey)
	var records []models.Record
	if err == nil {
		records = p.normalizer.NormalizeAll(raws)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.generation.Load() != gen {
		metrics.PageLoadsTotal.WithLabelValues(p.def.Name, "stale").Inc()
		p.log.WithField("generation", gen).Debug("discarding superseded load")
		return ErrStaleLoad
	}

	if err != nil {
		p.records = nil
		p.loadedAt = time.Time{}
		p.lastErr = err
		metrics.PageLoadsTotal.WithLabelValues(p.def.Name, "error").Inc()
		metrics.PageRecords.WithLabelValues(p.def.Name).Set(0)
		metrics.PageUndatedRecords.WithLabelValues(p.def.Name).Set(0)
		p.log.WithError(err).Warn("load failed")
		return fmt.Errorf("load %s: %w", p.def.Name, err)
	}

	undated := 0
	for i := range records {
		if !records[i].HasTime() {
			undated++
		}
	}

	p.records = records
	p.loadedAt = p.now()
	p.lastErr = nil
	metrics.PageLoadsTotal.WithLabelValues(p.def.Name, "ok").Inc()
	metrics.PageRecords.WithLabelValues(p.def.Name).Set(float64(len(records)))
	metrics.PageUndatedRecords.WithLabelValues(p.def.Name).Set(float64(undated))
	p.log.WithFields(logrus.Fields{
		"records":  len(records),
		"undated":  undated,
		"duration": time.Since(start),
	}).Info("collection loaded")
	return nil
}

// Invalidate discards the loaded collection. A load in flight when
// Invalidate runs will not store its result.
func (p *Page) Invalidate() {
	p.generation.Add(1)
	p.mu.Lock()
	p.records = nil
	p.loadedAt = time.Time{}
	p.lastErr = nil
	p.mu.Unlock()
}

// Loading reports whether a load is running.
func (p *Page) Loading() bool {
	return p.inflight.Load() != 0
}

// Snapshot returns a copy of the current state.
func (p *Page) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records := make([]models.Record, len(p.records))
	for i := range p.records {
		records[i] = p.records[i].Clone()
	}
	return State{
		Records:    records,
		LoadedAt:   p.loadedAt,
		Err:        p.lastErr,
		Generation: p.generation.Load(),
	}
}

// View filters the loaded collection. Stats always cover the full
// collection.
func (p *Page) View(criteria models.FilterCriteria) (*View, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v, err := BuildView(p.def, p.records, criteria, p.now())
	if err != nil {
		return nil, err
	}
	v.LoadedAt = p.loadedAt
	if p.lastErr != nil {
		v.Error = upstream.UserMessage(p.lastErr, p.def.What)
	}
	return v, nil
}

// Chart computes one chart of the loaded collection.
func (p *Page) Chart(name string, criteria models.FilterCriteria) (models.AggregateResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return BuildChart(p.def, name, p.records, criteria, p.now())
}

// Status returns when the collection was loaded and the last load error.
// Both are zero before the first load.
func (p *Page) Status() (time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadedAt, p.lastErr
}

// LastError returns the error of the most recent load, if it failed.
func (p *Page) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// SetStatus changes a record's status upstream and reloads the page.
func (p *Page) SetStatus(ctx context.Context, id, status string) (string, error) {
	act := p.def.UpdateStatus
	if p.def.Manage == "" || act == nil {
		return "", ErrReadOnly
	}
	if !act.Allows(status) {
		return "", fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}
	method := act.Method
	if method == "" {
		method = http.MethodPut
	}
	return p.mutate(ctx, method, fmt.Sprintf(act.Path, id), map[string]string{"status": status})
}

// Delete removes a record upstream and reloads the page.
func (p *Page) Delete(ctx context.Context, id string) (string, error) {
	if p.def.Manage == "" || p.def.DeletePath == "" {
		return "", ErrReadOnly
	}
	return p.mutate(ctx, http.MethodDelete, fmt.Sprintf(p.def.DeletePath, id), nil)
}

func (p *Page) mutate(ctx context.Context, method, path string, body any) (string, error) {
	m, ok := p.fetcher.(Mutator)
	if !ok {
		return "", ErrReadOnly
	}
	res, err := m.Mutate(ctx, p.def.Name, method, path, body)
	if err != nil {
		return "", err
	}

	p.Invalidate()
	if err := p.Load(ctx); err != nil {
		p.log.WithError(err).Warn("reload after mutation failed")
	}
	return res.Message, nil
}
