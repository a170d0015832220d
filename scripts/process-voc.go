//go:build ignore

// Process Pascal VOC SegmentationClass annotations into corpus format.
// Converts the color-coded annotation PNGs into grayscale index label
// maps named <id>_label.png, next to copies of the JPEG images, in the
// layout the benchmark corpus loader expects.
//
// Usage: go run ./scripts/process-voc.go VOCdevkit/VOC2012 testdata/voc
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"

	"github.com/lorenzo1285/go-seg/overlay"
)

const numClasses = 21

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: go run ./scripts/process-voc.go VOC_ROOT OUT_DIR")
		os.Exit(1)
	}
	vocRoot, outDir := os.Args[1], os.Args[2]

	annDir := filepath.Join(vocRoot, "SegmentationClass")
	imgDir := filepath.Join(vocRoot, "JPEGImages")

	anns, err := filepath.Glob(filepath.Join(annDir, "*.png"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding annotations: %v\n", err)
		os.Exit(1)
	}
	if len(anns) == 0 {
		fmt.Printf("No annotations found in %s\n", annDir)
		os.Exit(1)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", outDir, err)
		os.Exit(1)
	}

	lookup := colorLookup()

	processed := 0
	for _, ann := range anns {
		id := strings.TrimSuffix(filepath.Base(ann), ".png")
		jpg := filepath.Join(imgDir, id+".jpg")
		if _, err := os.Stat(jpg); err != nil {
			fmt.Printf("Skipping %s: no image\n", id)
			continue
		}

		if err := convertLabel(ann, filepath.Join(outDir, id+"_label.png"), lookup); err != nil {
			fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", id, err)
			os.Exit(1)
		}
		if err := copyFile(jpg, filepath.Join(outDir, id+".jpg")); err != nil {
			fmt.Fprintf(os.Stderr, "Error copying %s: %v\n", id, err)
			os.Exit(1)
		}
		processed++
	}

	fmt.Printf("Processed %d samples into %s\n", processed, outDir)
}

// colorLookup maps packed palette RGB values back to class indices.
func colorLookup() map[uint32]int {
	lookup := make(map[uint32]int, numClasses)
	for i, c := range overlay.Palette(numClasses) {
		lookup[pack(c.R, c.G, c.B)] = i
	}
	return lookup
}

func pack(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func convertLabel(annPath, outPath string, lookup map[uint32]int) error {
	f, err := os.Open(annPath)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return err
	}

	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			// Unknown colors, like the void boundary, map to background.
			idx := lookup[pack(c.R, c.G, c.B)]
			out.Pix[(y-bounds.Min.Y)*out.Stride+(x-bounds.Min.X)] = uint8(idx)
		}
	}

	w, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer w.Close()
	return png.Encode(w, out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
