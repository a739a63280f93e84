package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				key += "{" + l.GetName() + "=" + l.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.SubmissionAccepted()
	r.SubmissionAccepted()
	r.SubmissionRejected("validation")
	r.PipelineFinished("NOTIFIED", 20*time.Millisecond)
	r.DegenerateQuestions(2)
	r.DegenerateQuestions(0)
	r.Reenqueued(3)

	got := gathered(t, reg)
	assert.Equal(t, float64(2), got["quiz_results_submissions_accepted_total"])
	assert.Equal(t, float64(1), got["quiz_results_submissions_rejected_total{reason=validation}"])
	assert.Equal(t, float64(1), got["quiz_results_submissions_processed_total{status=NOTIFIED}"])
	assert.Equal(t, float64(1), got["quiz_results_pipeline_duration_seconds"])
	assert.Equal(t, float64(2), got["quiz_results_degenerate_questions_total"])
	assert.Equal(t, float64(3), got["quiz_results_submissions_reenqueued_total"])
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.SubmissionAccepted()
		r.SubmissionRejected("x")
		r.EnqueueFailed()
		r.PipelineFinished("FAILED", time.Second)
		r.DegenerateQuestions(1)
		r.NotificationFailed()
		r.Reenqueued(1)
	})
}
