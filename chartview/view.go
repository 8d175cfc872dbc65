package chartview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/icodeforyou/doctypes-dashboard/doctypes"
	"github.com/icodeforyou/doctypes-dashboard/types/maybe"
	"github.com/icodeforyou/doctypes-dashboard/www/chartjs"
)

const (
	Title           = "Document Types Distribution"
	ContainerWidth  = 400
	ContainerHeight = 400
)

type Fetcher interface {
	GetDocTypes(ctx context.Context) ([]doctypes.Record, error)
}

// Display is what the view shows right now, either the loading placeholder
// or a pie chart.
type Display struct {
	Loading bool
	Chart   chartjs.Chart
	Width   int
	Height  int
}

var registerOnce sync.Once

func registerComponents() {
	registerOnce.Do(func() {
		chartjs.Register(chartjs.PieController, chartjs.ArcElement, chartjs.Tooltip, chartjs.Legend, chartjs.Title)
	})
}

// View fetches the document type distribution once when mounted and keeps
// the result as its display state. The state goes from loading to loaded at
// most once and never back. A failed fetch leaves it loading.
type View struct {
	fetcher   Fetcher
	logger    *slog.Logger
	onLoaded  func(Series)
	mountOnce sync.Once
	done      chan struct{}

	// notifyMu serialises onLoaded with Unmount. Always taken before mu.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	state     maybe.Maybe[Series]
	unmounted bool
}

type Option func(*View)

// WithOnLoaded sets a callback that runs once, after the state became loaded.
func WithOnLoaded(fn func(Series)) Option {
	return func(v *View) { v.onLoaded = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *View) { v.logger = logger }
}

func New(fetcher Fetcher, opts ...Option) *View {
	registerComponents()

	v := &View{
		fetcher: fetcher,
		logger:  slog.Default().With("module", "chartview"),
		done:    make(chan struct{}),
		state:   maybe.None[Series](),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount starts the fetch. Only the first call has any effect.
func (v *View) Mount(ctx context.Context) {
	v.mountOnce.Do(func() {
		go v.load(ctx)
	})
}

func (v *View) load(ctx context.Context) {
	defer close(v.done)
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("error fetching document types", slog.Any("error", fmt.Errorf("panic: %v", r)))
		}
	}()

	records, err := v.fetcher.GetDocTypes(ctx)
	if err != nil {
		v.logger.Error("error fetching document types", slog.Any("error", err))
		return
	}

	series := NewSeries(records)

	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		v.logger.Debug("view unmounted before fetch completed, dropping result")
		return
	}
	v.state = maybe.Some(series)
	v.mu.Unlock()

	v.logger.Info("document types loaded", slog.Int("categories", series.Len()), slog.Int("documents", series.Total()))

	v.notifyLoaded(series)
}

func (v *View) notifyLoaded(series Series) {
	if v.onLoaded == nil {
		return
	}

	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.RLock()
	unmounted := v.unmounted
	v.mu.RUnlock()
	if unmounted {
		v.logger.Debug("view unmounted before onLoaded, skipping it")
		return
	}
	v.onLoaded(series)
}

// Wait blocks until the fetch has completed, successfully or not.
func (v *View) Wait(ctx context.Context) error {
	select {
	case <-v.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount discards the display state. A fetch still in flight will not
// write its result, and a running onLoaded is waited for.
func (v *View) Unmount() {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.unmounted = true
	v.state = maybe.None[Series]()
}

func (v *View) State() maybe.Maybe[Series] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *View) Loaded() bool {
	return v.State().IsValid()
}

func (v *View) Render() Display {
	if s := v.State(); s.IsValid() {
		return LoadedDisplay(s.Value())
	}
	return Display{Loading: true, Width: ContainerWidth, Height: ContainerHeight}
}

func LoadedDisplay(s Series) Display {
	return Display{Chart: s.Chart(Title), Width: ContainerWidth, Height: ContainerHeight}
}
