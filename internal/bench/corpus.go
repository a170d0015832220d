// Package bench provides evaluation utilities for semantic segmentation:
// corpus loading, accuracy/IoU metrics, and confidence-floor sweeps.
package bench

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorenzo1285/go-seg/preprocess"
)

// labelSuffix marks a ground-truth label map companion of an image.
// Label maps are grayscale PNGs whose pixel value is the class index.
const labelSuffix = "_label.png"

// Sample pairs an input image with its ground-truth label map.
type Sample struct {
	ID    string // filename without extension
	Image image.Image
	Truth []int // row-major class indices
	H, W  int
}

// LoadSample loads an image and its companion label map.
func LoadSample(imagePath, labelPath string) (*Sample, error) {
	img, err := preprocess.Decode(imagePath)
	if err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}

	labelImg, err := preprocess.Decode(labelPath)
	if err != nil {
		return nil, fmt.Errorf("loading label map: %w", err)
	}

	truth, h, w := labelIndices(labelImg)

	base := filepath.Base(imagePath)
	id := strings.TrimSuffix(base, filepath.Ext(base))

	return &Sample{ID: id, Image: img, Truth: truth, H: h, W: w}, nil
}

// labelIndices converts a grayscale label map into row-major class indices.
func labelIndices(img image.Image) ([]int, int, int) {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	out := make([]int, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Gray16 value; label maps store class index in the low byte.
			g, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[y*w+x] = int(g >> 8)
		}
	}
	return out, h, w
}

// LoadCorpus loads all image/label pairs from a directory. Every .png or
// .jpg that is not itself a label map must have a companion
// "<name>_label.png".
func LoadCorpus(dir string) ([]*Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var samples []*Sample
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, labelSuffix) {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}

		stem := strings.TrimSuffix(name, ext)
		imagePath := filepath.Join(dir, name)
		labelPath := filepath.Join(dir, stem+labelSuffix)
		if _, err := os.Stat(labelPath); err != nil {
			return nil, fmt.Errorf("sample %s has no label map %s: %w", name, labelPath, err)
		}

		sample, err := LoadSample(imagePath, labelPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		samples = append(samples, sample)
	}

	return samples, nil
}
