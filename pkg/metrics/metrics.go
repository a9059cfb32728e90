// Package metrics keeps operational gauges and counters in an embedded
// time-series store under the workdir.
package metrics

import (
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

var (
	mu      sync.Mutex
	storage tstorage.Storage
)

// InitMetrics opens the time-series partition under workdir/data/metrics.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

// SetGauge records one sample of a named metric at the current time.
func SetGauge(name string, value int64) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return
	}
	err := s.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
		},
	})
	if err != nil {
		zap.S().Warnf("metrics insert %s failed: %s", name, err)
	}
}

// Counter increments a metric by one; stored as individual samples so the
// query side can sum over a window.
func Counter(name string) {
	SetGauge(name, 1)
}

// Point is a flattened datapoint returned to the dashboard.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Select returns samples of a metric between start and end (unix seconds).
func Select(name string, start, end int64) []Point {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return nil
	}
	points, err := s.Select(name, nil, start, end)
	if err != nil {
		return nil
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	return out
}
