package seg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/lorenzo1285/go-seg/classes"
	"github.com/lorenzo1285/go-seg/inference"
	"github.com/lorenzo1285/go-seg/mask"
	"github.com/lorenzo1285/go-seg/overlay"
	"github.com/lorenzo1285/go-seg/preprocess"
)

// Segmenter runs semantic segmentation with a pre-trained ONNX model and
// extracts per-class masks from its output. It is safe for concurrent use.
type Segmenter struct {
	classes       *classes.Map
	pool          *inference.Pool
	inputSize     int
	minConfidence float32
	alpha         float64
	logger        *slog.Logger
}

// New creates a Segmenter from an ONNX model file and a class metadata
// file. An empty classesPath selects the 21-class PASCAL VOC map.
func New(modelPath, classesPath string, opts ...Option) (*Segmenter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Check model file exists
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	// Load class metadata
	var cm *classes.Map
	if classesPath == "" {
		cm = classes.VOC()
	} else {
		var err error
		cm, err = classes.Load(classesPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrClassesFailed, err)
		}
	}

	// Create session pool
	pool, err := inference.NewPool(modelPath, cfg.poolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	return &Segmenter{
		classes:       cm,
		pool:          pool,
		inputSize:     cfg.inputSize,
		minConfidence: cfg.minConfidence,
		alpha:         cfg.alpha,
		logger:        cfg.logger,
	}, nil
}

// Result holds the segmentation of one image batch: per-pixel class
// probabilities, the top-class index map, and the class map used.
type Result struct {
	Probs *mask.Probs
	Index *mask.Index

	classes *classes.Map
}

// Classes returns the class map the result was produced with.
func (r *Result) Classes() *classes.Map { return r.classes }

// Mask returns the boolean mask for a named class on the first image.
func (r *Result) Mask(name string) (mask.Mask, error) {
	return r.MaskAt(0, name)
}

// MaskAt returns the boolean mask for a named class on batch element b.
func (r *Result) MaskAt(b int, name string) (mask.Mask, error) {
	c, err := r.classes.Index(name)
	if err != nil {
		return mask.Mask{}, err
	}
	return r.Index.Mask(b, c)
}

// Stacks returns one per-class mask stack per image for the named classes,
// in input image order.
func (r *Result) Stacks(names ...string) ([]mask.Stack, error) {
	cs := make([]int, 0, len(names))
	for _, name := range names {
		c, err := r.classes.Index(name)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return r.Probs.BatchStacks(cs)
}

// Found returns the names of the classes present in batch element b,
// in class index order, skipping background.
func (r *Result) Found(b int) ([]string, error) {
	if b < 0 || b >= r.Index.Batch() {
		return nil, fmt.Errorf("batch index %d out of range [0,%d)", b, r.Index.Batch())
	}

	present := make([]bool, r.classes.Len())
	for y := 0; y < r.Index.Height(); y++ {
		for x := 0; x < r.Index.Width(); x++ {
			present[r.Index.At(b, y, x)] = true
		}
	}

	var names []string
	for c := 1; c < len(present); c++ {
		if !present[c] {
			continue
		}
		name, err := r.classes.Name(c)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Segment runs segmentation on a single image.
func (s *Segmenter) Segment(ctx context.Context, img image.Image) (*Result, error) {
	return s.SegmentBatch(ctx, []image.Image{img})
}

// SegmentBatch runs segmentation on a batch of images, preserving input
// order in the result's batch axis.
func (s *Segmenter) SegmentBatch(ctx context.Context, imgs []image.Image) (*Result, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("empty image batch")
	}

	data, err := preprocess.BatchTensor(imgs, s.inputSize)
	if err != nil {
		return nil, fmt.Errorf("preprocessing batch: %w", err)
	}
	dims := [4]int64{int64(len(imgs)), 3, int64(s.inputSize), int64(s.inputSize)}

	scores, err := s.infer(ctx, data, dims)
	if err != nil {
		return nil, err
	}

	probs, err := scores.Softmax()
	if err != nil {
		return nil, fmt.Errorf("normalizing scores: %w", err)
	}

	idx, err := probs.ArgmaxFloor(s.minConfidence, 0)
	if err != nil {
		return nil, fmt.Errorf("extracting class index: %w", err)
	}

	return &Result{Probs: probs, Index: idx, classes: s.classes}, nil
}

// SegmentFile decodes an image from disk and segments it.
func (s *Segmenter) SegmentFile(ctx context.Context, path string) (*Result, error) {
	img, err := preprocess.Decode(path)
	if err != nil {
		return nil, err
	}
	return s.Segment(ctx, img)
}

// Overlay segments the image and blends the masks of the named classes into
// a copy of it at the configured opacity, colored with the class palette.
// With no names, every non-background class found in the image is drawn.
func (s *Segmenter) Overlay(ctx context.Context, img image.Image, names ...string) (image.Image, error) {
	res, err := s.Segment(ctx, img)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		names, err = res.Found(0)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			s.logger.Debug("no classes found in image")
		}
	}

	stacks, err := res.Stacks(names...)
	if err != nil {
		return nil, err
	}

	// Masks live at the model's output resolution; blend onto the resized
	// input so they align.
	base, err := preprocess.Resized(img, res.Index.Width(), res.Index.Height())
	if err != nil {
		return nil, err
	}

	palette := overlay.Palette(s.classes.Len())
	return overlay.BlendStack(base, stacks[0], palette, s.alpha)
}

// infer runs the model via the session pool and validates output shape
// against the class map.
func (s *Segmenter) infer(ctx context.Context, data []float32, dims [4]int64) (*mask.Scores, error) {
	session, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(session)

	raw, outDims, err := session.Infer(ctx, data, dims)
	if err != nil {
		return nil, err
	}

	if outDims[1] != int64(s.classes.Len()) {
		return nil, fmt.Errorf("%w: model produces %d classes, class map has %d",
			ErrInvalidModel, outDims[1], s.classes.Len())
	}

	shape := mask.Shape{
		Batch:   int(outDims[0]),
		Classes: int(outDims[1]),
		Height:  int(outDims[2]),
		Width:   int(outDims[3]),
	}
	s.logger.Debug("inference complete",
		"batch", shape.Batch, "classes", shape.Classes,
		"height", shape.Height, "width", shape.Width)

	return mask.NewScores(raw, shape)
}

// Close releases all resources.
func (s *Segmenter) Close() error {
	if s.pool != nil {
		return s.pool.Close()
	}
	return nil
}
