package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/features"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/telemetry"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Renderer turns features and label candidates into tile layers.
type Renderer interface {
	RenderShapes(ctx context.Context, tile, data maptile.Tile, fc *geojson.FeatureCollection) (image.Image, []cache.LabelCandidate, error)
	RenderLabels(ctx context.Context, sets []cache.CandidateSet) (image.Image, error)
}

type WorkerConfig struct {
	DataMaxZoom  int
	Workers      int
	IdleInterval time.Duration
	BusyInterval time.Duration
}

// stageError records which step of a task failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

const (
	stageFetch  = "fetch"
	stageRender = "render"
)

// RenderWorker drains the planner in the background. Each goroutine of the
// pool loops: claim a task, execute it with the store unlocked, record the
// result, then wait for a wake-up or the poll interval.
type RenderWorker struct {
	store    *cache.Store
	source   features.Source
	renderer Renderer
	notifier *Notifier
	logger   logger.Logger
	cfg      WorkerConfig

	wake chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewRenderWorker(store *cache.Store, source features.Source, renderer Renderer, notifier *Notifier, cfg WorkerConfig, l logger.Logger) *RenderWorker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = time.Second
	}
	if cfg.BusyInterval <= 0 {
		cfg.BusyInterval = 10 * time.Millisecond
	}
	return &RenderWorker{
		store:    store,
		source:   source,
		renderer: renderer,
		notifier: notifier,
		logger:   l,
		cfg:      cfg,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the pool. Calling Start on a running worker does nothing.
func (w *RenderWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	for id := range w.cfg.Workers {
		g.Go(func() error {
			w.run(ctx, id)
			return nil
		})
	}
	w.cancel = cancel
	w.group = g

	w.logger.Info("render worker started", "workers", w.cfg.Workers)
}

// Stop cancels the pool and waits for every goroutine to return. No store
// mutation happens after Stop returns.
func (w *RenderWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return
	}
	w.cancel()
	_ = w.group.Wait()
	w.cancel = nil
	w.group = nil

	w.logger.Info("render worker stopped")
}

// Wake signals that new work may exist. It never blocks.
func (w *RenderWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *RenderWorker) run(ctx context.Context, id int) {
	timer := time.NewTimer(w.cfg.IdleInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		wait := w.cfg.IdleInterval
		if w.RunOnce(ctx) {
			wait = w.cfg.BusyInterval
			// let another idle goroutine look for work as well
			if w.cfg.Workers > 1 {
				w.Wake()
			}
		} else {
			metrics.PlannerIdlePolls.Inc()
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			w.logger.Debug("render goroutine exiting", "worker", id)
			return
		case <-w.wake:
		case <-timer.C:
		}
	}
}

// RunOnce claims and executes the next task, reporting whether there was one.
func (w *RenderWorker) RunOnce(ctx context.Context) bool {
	task, ok := w.store.FindNextTask()
	if !ok {
		return false
	}
	w.execute(ctx, task)
	return true
}

func (w *RenderWorker) execute(ctx context.Context, task cache.Task) {
	kind := task.Kind.String()
	ctx, span := telemetry.Tracer().Start(ctx, "render."+kind,
		trace.WithAttributes(
			attribute.String("tile.key", task.Key.String()),
			attribute.Int("tile.zoom", task.Key.Z),
		),
	)
	defer span.End()

	w.logger.Debug("executing render task", "kind", kind, "tile", task.Key.String())

	start := time.Now()
	var err error
	switch task.Kind {
	case cache.TaskShapes:
		err = w.executeShapes(ctx, task.Key)
	case cache.TaskLabels:
		err = w.executeLabels(ctx, task.Key)
	default:
		err = fmt.Errorf("unknown task kind %d", task.Kind)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.fail(task, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	metrics.RenderTasks.WithLabelValues(kind).Inc()
	metrics.RenderTaskDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	w.notifier.Notify(Event{Key: task.Key, Kind: task.Kind})
}

func (w *RenderWorker) executeShapes(ctx context.Context, k cache.Key) error {
	tile := maptile.New(uint32(k.X), uint32(k.Y), maptile.Zoom(k.Z))
	data := features.DataTile(tile, maptile.Zoom(w.cfg.DataMaxZoom))

	fc, err := w.source.Fetch(ctx, data)
	if err != nil {
		return &stageError{stage: stageFetch, err: err}
	}

	shape, candidates, err := w.renderer.RenderShapes(ctx, tile, data, fc)
	if err != nil {
		return &stageError{stage: stageRender, err: err}
	}

	rough, err := w.renderer.RenderLabels(ctx, []cache.CandidateSet{{Candidates: candidates}})
	if err != nil {
		return &stageError{stage: stageRender, err: err}
	}

	w.store.CompleteShape(k, shape, rough, candidates)
	return nil
}

func (w *RenderWorker) executeLabels(ctx context.Context, k cache.Key) error {
	labels, err := w.renderer.RenderLabels(ctx, w.store.Neighborhood(k))
	if err != nil {
		return &stageError{stage: stageRender, err: err}
	}

	w.store.CompleteLabel(k, labels)
	return nil
}

// fail settles a task that did not complete. Cancellation leaves the tile
// eligible; anything else abandons it for good.
func (w *RenderWorker) fail(task cache.Task, err error) {
	tile := task.Key.String()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		w.store.ClearPending(task.Key, task.Kind)
		w.logger.Debug("render task cancelled", "kind", task.Kind.String(), "tile", tile)
		return
	}

	w.store.MarkInputError(task.Key)

	var se *stageError
	stage := stageRender
	if errors.As(err, &se) {
		stage = se.stage
	}

	switch {
	case errors.Is(err, features.ErrDataUnavailable):
		metrics.RenderFailures.WithLabelValues("data_unavailable").Inc()
		w.logger.Warn("no feature data for tile", "tile", tile)
	case stage == stageFetch:
		metrics.RenderFailures.WithLabelValues("source").Inc()
		w.logger.Warn("failed to fetch features", "tile", tile, "error", err)
	default:
		metrics.RenderFailures.WithLabelValues("render").Inc()
		w.logger.Error("failed to render tile", "kind", task.Kind.String(), "tile", tile, "error", err)
	}
}
