package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

func metricsJob(competitionID int) *models.Job {
	return &models.Job{
		ID:            "job",
		CompetitionID: competitionID,
		Status:        models.JobStatusProcessing,
		Attempt:       1,
	}
}

func TestInFlightGaugeFollowsStartsAndFinishes(t *testing.T) {
	m := NewMetrics()

	first := metricsJob(1)
	second := metricsJob(2)

	// Both workers report the same stale in-flight count; the gauge must
	// still reflect two running jobs.
	m.JobStarted(first, 3, 1)
	m.JobStarted(second, 2, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queueDepth))

	m.JobSucceeded(first, 10*time.Millisecond, nil, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.JobFailed(second, 10*time.Millisecond, errors.New("storage hiccup"), true)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestInFlightGaugeBalancesUnderConcurrency(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := metricsJob(i + 1)
			m.JobStarted(job, 0, 1)
			if i%2 == 0 {
				m.JobSucceeded(job, time.Millisecond, nil, 0)
			} else {
				m.JobFailed(job, time.Millisecond, errors.New("storage hiccup"), false)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}
