package camunda

import (
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = process not found", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.err)))
		})
	}
}

func TestBackoff_CappedExponential(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoff(rc, 0))
	assert.Equal(t, 2*time.Second, backoff(rc, 1))
	assert.Equal(t, 4*time.Second, backoff(rc, 2))
	assert.Equal(t, 5*time.Second, backoff(rc, 3))
}

type recordingHandler struct {
	jobs []int64
}

func (r *recordingHandler) Handle(_ worker.JobClient, job entities.Job) {
	r.jobs = append(r.jobs, job.Key)
}

func TestInstrument_DelegatesToHandler(t *testing.T) {
	h := &recordingHandler{}
	wrapped := instrument("classify-intent", h)

	wrapped(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "classify-intent"}})
	assert.Equal(t, []int64{42}, h.jobs)
}
