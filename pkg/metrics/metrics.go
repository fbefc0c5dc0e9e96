package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RenderTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_tasks_total",
		Help: "Total number of completed render tasks",
	}, []string{"kind"})

	RenderTaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "render_task_duration_seconds",
		Help:    "Duration of render tasks in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"kind"})

	RenderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_failures_total",
		Help: "Total number of tiles abandoned after a render failure",
	}, []string{"reason"})

	PlannerIdlePolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_idle_polls_total",
		Help: "Total number of planner polls that found no work",
	})

	RepaintNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repaint_notifications_total",
		Help: "Total number of repaint notifications emitted",
	})

	FrameRenders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frame_renders_total",
		Help: "Total number of composited viewport frames",
	})

	// Feature source metrics
	SourceOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feature_source_operation_duration_seconds",
		Help:    "Duration of feature source operations in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"backend", "operation"})

	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feature_source_errors_total",
		Help: "Total number of feature source errors",
	}, []string{"backend", "operation"})
)
