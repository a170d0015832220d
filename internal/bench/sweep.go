package bench

import (
	"context"
	"sort"

	seg "github.com/lorenzo1285/go-seg"
)

// SweepResult holds metrics for one confidence floor value.
type SweepResult struct {
	MinConfidence float32
	Metrics       Metrics
}

// SweepFloors generates confidence floor values from min to max with the
// given step.
func SweepFloors(min, max, step float32) []float32 {
	var floors []float32
	for f := min; f < max; f += step {
		floors = append(floors, f)
	}
	return floors
}

// Sweep evaluates multiple confidence floors and returns results sorted by
// mean IoU, best first.
func Sweep(ctx context.Context, samples []*Sample, modelPath, classesPath string, cfg Config, floors []float32) ([]SweepResult, error) {
	var results []SweepResult

	for _, floor := range floors {
		sg, err := seg.New(modelPath, classesPath,
			seg.WithInputSize(cfg.InputSize),
			seg.WithMinConfidence(floor),
		)
		if err != nil {
			return nil, err
		}

		// Aggregate counters across all samples
		agg := NewMetrics(cfg.NumClasses)
		for _, sample := range samples {
			m, err := EvaluateSample(ctx, sg, sample, cfg)
			if err != nil {
				_ = sg.Close()
				return nil, err
			}
			agg.Add(m)
		}

		_ = sg.Close()

		results = append(results, SweepResult{
			MinConfidence: floor,
			Metrics:       agg,
		})
	}

	// Sort by mean IoU descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Metrics.MeanIoU() > results[j].Metrics.MeanIoU()
	})

	return results, nil
}
