package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quiz_results"

// Recorder holds the service collectors. A nil *Recorder records nothing.
type Recorder struct {
	accepted       prometheus.Counter
	rejected       *prometheus.CounterVec
	enqueueErrors  prometheus.Counter
	processed      *prometheus.CounterVec
	pipeline       prometheus.Histogram
	degenerate     prometheus.Counter
	notifyFailures prometheus.Counter
	swept          prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_accepted_total",
			Help:      "Submissions persisted as RECEIVED.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Submissions refused before acceptance.",
		}, []string{"reason"}),
		enqueueErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enqueue_errors_total",
			Help:      "Accepted submissions that could not be pushed onto the queue.",
		}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_processed_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		pipeline: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time from claim to final status.",
			Buckets:   prometheus.DefBuckets,
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_questions_total",
			Help:      "Questions scored as zero because no answer is marked correct.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Result notifications that failed to deliver.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_reenqueued_total",
			Help:      "Stale submissions pushed back onto the queue by the sweeper.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			r.accepted,
			r.rejected,
			r.enqueueErrors,
			r.processed,
			r.pipeline,
			r.degenerate,
			r.notifyFailures,
			r.swept,
		)
	}
	return r
}

func (r *Recorder) SubmissionAccepted() {
	if r == nil {
		return
	}
	r.accepted.Inc()
}

func (r *Recorder) SubmissionRejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) EnqueueFailed() {
	if r == nil {
		return
	}
	r.enqueueErrors.Inc()
}

// PipelineFinished records one pipeline run ending in status.
func (r *Recorder) PipelineFinished(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.processed.WithLabelValues(status).Inc()
	r.pipeline.Observe(elapsed.Seconds())
}

func (r *Recorder) DegenerateQuestions(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.degenerate.Add(float64(n))
}

func (r *Recorder) NotificationFailed() {
	if r == nil {
		return
	}
	r.notifyFailures.Inc()
}

func (r *Recorder) Reenqueued(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.swept.Add(float64(n))
}
