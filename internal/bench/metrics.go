package bench

import (
	"context"
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/stat"

	seg "github.com/lorenzo1285/go-seg"
	"github.com/lorenzo1285/go-seg/mask"
)

// Config holds evaluation parameters.
type Config struct {
	MinConfidence float32
	InputSize     int
	NumClasses    int
}

// DefaultConfig returns default evaluation configuration for VOC models.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0,
		InputSize:     520,
		NumClasses:    21,
	}
}

// Metrics holds per-sample or aggregate evaluation results.
type Metrics struct {
	// Intersection and Union are per-class pixel counts across everything
	// evaluated so far; Correct and Total drive pixel accuracy.
	Intersection []int64
	Union        []int64
	Correct      int64
	Total        int64
}

// NewMetrics returns zeroed counters for numClasses classes.
func NewMetrics(numClasses int) Metrics {
	return Metrics{
		Intersection: make([]int64, numClasses),
		Union:        make([]int64, numClasses),
	}
}

// Add merges another set of counters into m.
func (m *Metrics) Add(other Metrics) {
	for c := range m.Intersection {
		m.Intersection[c] += other.Intersection[c]
		m.Union[c] += other.Union[c]
	}
	m.Correct += other.Correct
	m.Total += other.Total
}

// PixelAccuracy returns the fraction of correctly classified pixels.
func (m Metrics) PixelAccuracy() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Total)
}

// IoU returns intersection-over-union for one class, and whether the class
// occurred at all (empty union means IoU is undefined).
func (m Metrics) IoU(class int) (float64, bool) {
	if m.Union[class] == 0 {
		return 0, false
	}
	return float64(m.Intersection[class]) / float64(m.Union[class]), true
}

// MeanIoU returns IoU averaged over the classes that occur in the
// prediction or the ground truth.
func (m Metrics) MeanIoU() float64 {
	var ious []float64
	for c := range m.Union {
		if iou, ok := m.IoU(c); ok {
			ious = append(ious, iou)
		}
	}
	if len(ious) == 0 {
		return 0
	}
	return stat.Mean(ious, nil)
}

// Evaluate compares one batch element of a predicted index map against
// row-major ground-truth class indices of the same resolution.
func Evaluate(pred *mask.Index, b int, truth []int, numClasses int) (Metrics, error) {
	h, w := pred.Height(), pred.Width()
	if len(truth) != h*w {
		return Metrics{}, fmt.Errorf("truth has %d pixels, prediction %d", len(truth), h*w)
	}

	m := NewMetrics(numClasses)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := pred.At(b, y, x)
			t := truth[y*w+x]
			if t < 0 || t >= numClasses {
				return Metrics{}, fmt.Errorf("truth class %d out of range [0,%d)", t, numClasses)
			}

			m.Total++
			if p == t {
				m.Correct++
				m.Intersection[p]++
				m.Union[p]++
			} else {
				m.Union[p]++
				m.Union[t]++
			}
		}
	}
	return m, nil
}

// EvaluateSample segments a sample and scores the prediction against its
// label map. The label map is resampled to the model's output resolution
// with nearest neighbor, which preserves class indices.
func EvaluateSample(ctx context.Context, sg *seg.Segmenter, sample *Sample, cfg Config) (Metrics, error) {
	res, err := sg.Segment(ctx, sample.Image)
	if err != nil {
		return Metrics{}, fmt.Errorf("segmenting %s: %w", sample.ID, err)
	}

	truth := sample.Truth
	if sample.H != res.Index.Height() || sample.W != res.Index.Width() {
		truth = resampleTruth(sample, res.Index.Width(), res.Index.Height())
	}

	return Evaluate(res.Index, 0, truth, cfg.NumClasses)
}

// resampleTruth rescales a sample's label indices via a nearest-neighbor
// image resize.
func resampleTruth(sample *Sample, w, h int) []int {
	gray := image.NewGray(image.Rect(0, 0, sample.W, sample.H))
	for i, c := range sample.Truth {
		gray.Pix[i] = uint8(c)
	}
	resized := resize.Resize(uint(w), uint(h), gray, resize.NearestNeighbor)

	out := make([]int, w*h)
	bounds := resized.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g, _, _, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[y*w+x] = int(g >> 8)
		}
	}
	return out
}
