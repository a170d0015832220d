// Package preprocess decodes images and converts them into the NCHW float32
// tensors segmentation models expect.
package preprocess

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"

	"github.com/nfnt/resize"
)

// ImageNet channel statistics used by the common pre-trained segmentation
// models (FCN, DeepLab).
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Decode reads and decodes a JPEG or PNG image from disk.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, nil
}

// ToTensor resizes an image to size x size and converts it to a CHW float32
// slice, normalized with the ImageNet channel mean and standard deviation.
// The returned slice has length 3*size*size.
func ToTensor(img image.Image, size int) ([]float32, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	plane := width * height
	out := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			// RGBA returns 16-bit channels.
			p := y*width + x
			out[p] = (float32(r)/65535.0 - imagenetMean[0]) / imagenetStd[0]
			out[plane+p] = (float32(g)/65535.0 - imagenetMean[1]) / imagenetStd[1]
			out[2*plane+p] = (float32(b)/65535.0 - imagenetMean[2]) / imagenetStd[2]
		}
	}

	return out, nil
}

// Resized returns the image resized to width x height with the same
// Lanczos3 filter used for model input, so masks computed at the model's
// output resolution align with the returned pixels.
func Resized(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3), nil
}

// BatchTensor stacks multiple images into a single flat NCHW tensor of
// shape (len(imgs), 3, size, size).
func BatchTensor(imgs []image.Image, size int) ([]float32, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("empty image batch")
	}

	per := 3 * size * size
	out := make([]float32, 0, per*len(imgs))
	for i, img := range imgs {
		data, err := ToTensor(img, size)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, data...)
	}
	return out, nil
}
