package seg

import (
	"log/slog"
	"runtime"
)

// Option configures a Segmenter.
type Option func(*config)

type config struct {
	poolSize      int
	inputSize     int
	minConfidence float32
	alpha         float64
	logger        *slog.Logger
}

func defaultConfig() config {
	return config{
		poolSize:      runtime.NumCPU(),
		inputSize:     520,
		minConfidence: 0,
		alpha:         0.6,
		logger:        slog.Default(),
	}
}

// WithPoolSize sets the ONNX session pool size (default: runtime.NumCPU()).
func WithPoolSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithInputSize sets the square input resolution images are resized to
// before inference (default: 520, the torchvision segmentation eval size).
func WithInputSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.inputSize = n
		}
	}
}

// WithMinConfidence sets a confidence floor: pixels whose top-class
// probability is below it are reassigned to background (default: 0, off).
func WithMinConfidence(f float32) Option {
	return func(c *config) {
		if f >= 0 && f <= 1 {
			c.minConfidence = f
		}
	}
}

// WithAlpha sets the overlay blend opacity in [0,1] (default: 0.6).
func WithAlpha(a float64) Option {
	return func(c *config) {
		if a >= 0 && a <= 1 {
			c.alpha = a
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
