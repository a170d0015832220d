package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	seg "github.com/lorenzo1285/go-seg"
	"github.com/lorenzo1285/go-seg/classes"
	"github.com/lorenzo1285/go-seg/internal/bench"
)

func main() {
	var (
		modelPath   = flag.String("model", "", "Path to ONNX model file (required)")
		classesPath = flag.String("classes", "", "Path to class metadata JSON (default: Pascal VOC)")
		corpusDir   = flag.String("corpus", "testdata/voc", "Directory containing image/label pairs")
		minConf     = flag.Float64("min-confidence", 0, "Confidence floor")
		inputSize   = flag.Int("input-size", 520, "Model input size in pixels")
		sweep       = flag.Bool("sweep", false, "Run confidence floor sweep")
		sweepMin    = flag.Float64("sweep-min", 0.0, "Sweep minimum floor")
		sweepMax    = flag.Float64("sweep-max", 0.9, "Sweep maximum floor")
		sweepStep   = flag.Float64("sweep-step", 0.1, "Sweep step size")
		models      = flag.String("models", "", "Comma-separated model paths for comparison")
	)
	flag.Parse()

	if *modelPath == "" && *models == "" {
		fmt.Fprintln(os.Stderr, "error: -model or -models required")
		flag.Usage()
		os.Exit(1)
	}

	cm, err := loadClasses(*classesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading classes: %v\n", err)
		os.Exit(1)
	}

	samples, err := bench.LoadCorpus(*corpusDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading corpus: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d samples from %s\n\n", len(samples), *corpusDir)

	cfg := bench.Config{
		MinConfidence: float32(*minConf),
		InputSize:     *inputSize,
		NumClasses:    cm.Len(),
	}

	ctx := context.Background()

	if *models != "" {
		modelPaths := strings.Split(*models, ",")
		runModelComparison(ctx, modelPaths, *classesPath, samples, cfg, *sweep, float32(*sweepMin), float32(*sweepMax), float32(*sweepStep))
	} else if *sweep {
		runSweep(ctx, *modelPath, *classesPath, samples, cfg, float32(*sweepMin), float32(*sweepMax), float32(*sweepStep))
	} else {
		runSingle(ctx, *modelPath, *classesPath, samples, cfg, cm)
	}
}

func loadClasses(path string) (*classes.Map, error) {
	if path == "" {
		return classes.VOC(), nil
	}
	return classes.Load(path)
}

func runSingle(ctx context.Context, modelPath, classesPath string, samples []*bench.Sample, cfg bench.Config, cm *classes.Map) {
	sg, err := seg.New(modelPath, classesPath,
		seg.WithInputSize(cfg.InputSize),
		seg.WithMinConfidence(cfg.MinConfidence))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating segmenter: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = sg.Close() }()

	total := bench.NewMetrics(cfg.NumClasses)
	for _, sample := range samples {
		m, err := bench.EvaluateSample(ctx, sg, sample, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error evaluating %s: %v\n", sample.ID, err)
			os.Exit(1)
		}
		total.Add(m)
	}

	fmt.Printf("Pixel accuracy: %.4f  Mean IoU: %.4f\n\n", total.PixelAccuracy(), total.MeanIoU())
	fmt.Printf("%-16s %-8s\n", "Class", "IoU")
	fmt.Println(strings.Repeat("-", 25))
	for c := 0; c < cfg.NumClasses; c++ {
		iou, ok := total.IoU(c)
		if !ok {
			continue
		}
		name, err := cm.Name(c)
		if err != nil {
			name = fmt.Sprintf("class %d", c)
		}
		fmt.Printf("%-16s %-8.4f\n", name, iou)
	}
}

func runSweep(ctx context.Context, modelPath, classesPath string, samples []*bench.Sample, cfg bench.Config, min, max, step float32) {
	floors := bench.SweepFloors(min, max, step)

	fmt.Println("Confidence Floor Sweep Results")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("%-8s %-10s %-10s\n", "Floor", "PixAcc", "MeanIoU")

	results, err := bench.Sweep(ctx, samples, modelPath, classesPath, cfg, floors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during sweep: %v\n", err)
		os.Exit(1)
	}

	// Print sorted by floor for readability
	for _, f := range floors {
		for _, r := range results {
			if r.MinConfidence == f {
				fmt.Printf("%-8.2f %-10.4f %-10.4f\n",
					r.MinConfidence, r.Metrics.PixelAccuracy(), r.Metrics.MeanIoU())
				break
			}
		}
	}

	fmt.Println(strings.Repeat("-", 40))
	if len(results) > 0 {
		best := results[0]
		fmt.Printf("Optimal: %.2f (Mean IoU: %.4f)\n", best.MinConfidence, best.Metrics.MeanIoU())
	}
}

func runModelComparison(ctx context.Context, modelPaths []string, classesPath string, samples []*bench.Sample, cfg bench.Config, sweep bool, min, max, step float32) {
	fmt.Println("Model Comparison")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("%-30s %-8s %-10s %-10s\n", "Model", "Floor", "PixAcc", "MeanIoU")

	for _, modelPath := range modelPaths {
		var bestFloor float32
		var bestMetrics bench.Metrics

		if sweep {
			floors := bench.SweepFloors(min, max, step)
			results, err := bench.Sweep(ctx, samples, modelPath, classesPath, cfg, floors)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error with %s: %v\n", modelPath, err)
				continue
			}
			if len(results) > 0 {
				bestFloor = results[0].MinConfidence
				bestMetrics = results[0].Metrics
			}
		} else {
			sg, err := seg.New(modelPath, classesPath,
				seg.WithInputSize(cfg.InputSize),
				seg.WithMinConfidence(cfg.MinConfidence))
			if err != nil {
				fmt.Fprintf(os.Stderr, "error with %s: %v\n", modelPath, err)
				continue
			}
			total := bench.NewMetrics(cfg.NumClasses)
			for _, sample := range samples {
				m, err := bench.EvaluateSample(ctx, sg, sample, cfg)
				if err != nil {
					continue
				}
				total.Add(m)
			}
			_ = sg.Close()

			bestFloor = cfg.MinConfidence
			bestMetrics = total
		}

		fmt.Printf("%-30s %-8.2f %-10.4f %-10.4f\n",
			modelPath, bestFloor, bestMetrics.PixelAccuracy(), bestMetrics.MeanIoU())
	}
}
