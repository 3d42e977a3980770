package frames

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/metrics"
	"github.com/star/framerot/internal/rotation"
)

// ErrInvalidSeries is returned for an empty or malformed epoch grid.
var ErrInvalidSeries = errors.New("invalid series request")

// SeriesRequest describes rotations on an evenly spaced epoch grid.
type SeriesRequest struct {
	From, To       Frame
	Start          float64 // JD UTC of the first point
	Step           float64 // days between points
	Count          int
	Representation rotation.Representation
	Data           eop.Data
	Options        []Option
}

// SeriesPoint is one rotation of a series. Err is set when that epoch could
// not be resolved, for example past the end of EOP coverage.
type SeriesPoint struct {
	JD    float64
	Value rotation.Value
	Err   error
}

type seriesJob struct {
	index int
	jd    float64
}

// SeriesRunner computes rotation series with a fixed number of goroutines.
type SeriesRunner struct {
	workers int
	logger  *slog.Logger
}

// NewSeriesRunner creates a runner with the given number of workers.
func NewSeriesRunner(workers int, logger *slog.Logger) *SeriesRunner {
	if workers < 1 {
		workers = 1
	}
	return &SeriesRunner{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (sr *SeriesRunner) Workers() int { return sr.workers }

// Run evaluates every point of req. Points are returned in epoch order.
// Errors that affect the whole series, such as a model mismatch, are
// returned before any work starts. Cancelling ctx stops the workers and
// returns ctx.Err().
func (sr *SeriesRunner) Run(ctx context.Context, req SeriesRequest) ([]SeriesPoint, error) {
	if req.Count < 1 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidSeries, req.Count)
	}
	if req.Count > 1 && req.Step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidSeries, req.Step)
	}
	if _, err := Plan(req.From, req.To, req.Data); err != nil {
		return nil, err
	}
	if req.Representation != rotation.Matrix && req.Representation != rotation.Quaternion {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepresentation, req.Representation)
	}

	start := time.Now()
	points := make([]SeriesPoint, req.Count)
	jobs := make(chan seriesJob, sr.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < sr.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				v, err := Rotate(req.Representation, req.From, req.To, job.jd, req.Data, req.Options...)
				// Each index is written by exactly one worker.
				points[job.index] = SeriesPoint{JD: job.jd, Value: v, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < req.Count; i++ {
			select {
			case jobs <- seriesJob{index: i, jd: req.Start + float64(i)*req.Step}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failed int
	for _, p := range points {
		if p.Err != nil {
			failed++
		}
	}
	duration := time.Since(start)
	metrics.RecordSeries(req.From.String(), req.To.String(), duration, req.Count-failed, failed)

	sr.logger.Debug("rotation series complete",
		"from", req.From.String(),
		"to", req.To.String(),
		"points", req.Count,
		"failed", failed,
		"workers", sr.workers,
		"duration_ms", duration.Milliseconds(),
	)

	return points, nil
}
