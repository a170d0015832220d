package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	seg "github.com/lorenzo1285/go-seg"
	"github.com/lorenzo1285/go-seg/mask"
	"github.com/lorenzo1285/go-seg/overlay"
	"github.com/lorenzo1285/go-seg/preprocess"
)

func main() {
	modelPath := flag.String("model", "", "Path to ONNX model file")
	classesPath := flag.String("classes", "", "Path to class metadata JSON (default: Pascal VOC)")
	outPath := flag.String("out", "out.png", "Path to write the output PNG")
	mode := flag.String("mode", "overlay", "Mode: overlay, mask, index, grid, or found")
	class := flag.String("class", "", "Class name for mask mode, or comma-separated classes for overlay")
	alpha := flag.Float64("alpha", 0.6, "Overlay opacity")
	size := flag.Int("size", 520, "Model input size in pixels")
	minConf := flag.Float64("min-confidence", 0, "Confidence floor below which pixels fall back to background")

	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: seg-cli -model MODEL [OPTIONS] IMAGE")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one image path required")
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	sg, err := seg.New(*modelPath, *classesPath,
		seg.WithInputSize(*size),
		seg.WithAlpha(*alpha),
		seg.WithMinConfidence(float32(*minConf)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating segmenter: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = sg.Close() }() // Cleanup error ignored in CLI

	ctx := context.Background()

	img, err := preprocess.Decode(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading image: %v\n", err)
		os.Exit(1)
	}

	switch *mode {
	case "overlay":
		var names []string
		if *class != "" {
			names = strings.Split(*class, ",")
		}
		out, err := sg.Overlay(ctx, img, names...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		writePNG(*outPath, out)

	case "mask":
		if *class == "" {
			fmt.Fprintln(os.Stderr, "Error: -class required in mask mode")
			os.Exit(1)
		}
		res, err := sg.Segment(ctx, img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		m, err := res.Mask(*class)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		writePNG(*outPath, maskImage(m))
		fmt.Printf("Class: %s\n", *class)
		fmt.Printf("Pixels: %d of %d\n", m.Count(), m.Width()*m.Height())

	case "index":
		res, err := sg.Segment(ctx, img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		out, err := overlay.IndexImage(res.Index, 0, overlay.Palette(res.Classes().Len()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		writePNG(*outPath, out)

	case "grid":
		res, err := sg.Segment(ctx, img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		palette := overlay.Palette(res.Classes().Len())
		idxImg, err := overlay.IndexImage(res.Index, 0, palette)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		base, err := preprocess.Resized(img, res.Index.Width(), res.Index.Height())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		blended, err := sg.Overlay(ctx, img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		out, err := overlay.Grid([]image.Image{base, idxImg, blended}, 3)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		writePNG(*outPath, out)

	case "found":
		res, err := sg.Segment(ctx, img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		names, err := res.Found(0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Image: %s\n", imagePath)
		fmt.Printf("Classes (%d):\n", len(names))
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", *outPath)
}

func maskImage(m mask.Mask) image.Image {
	out := image.NewGray(image.Rect(0, 0, m.Width(), m.Height()))
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if m.At(y, x) {
				out.Pix[y*out.Stride+x] = 0xff
			}
		}
	}
	return out
}

func writePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding PNG: %v\n", err)
		os.Exit(1)
	}
}
