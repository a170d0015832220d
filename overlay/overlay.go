// Package overlay renders boolean class masks on top of images: alpha
// blending of mask regions, per-class color palettes, captions, and
// side-by-side grids for inspection.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lorenzo1285/go-seg/mask"
)

// Palette returns n colors using the PASCAL VOC color map generation
// scheme, so class 0 (background) is black, class 4 (boat) is the familiar
// teal, class 12 (dog) the familiar dark magenta, and so on. The mapping is
// deterministic for any class count.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		var r, g, b uint8
		c := i
		for j := 0; j < 8; j++ {
			r |= uint8(c&1) << (7 - j)
			g |= uint8(c>>1&1) << (7 - j)
			b |= uint8(c>>2&1) << (7 - j)
			c >>= 3
		}
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// Blend returns a copy of img with the mask region blended in at the given
// opacity. alpha is clamped to [0,1]; 0 leaves the image untouched and 1
// paints the mask color opaquely.
func Blend(img image.Image, m mask.Mask, c color.Color, alpha float64) (*image.RGBA, error) {
	bounds := img.Bounds()
	if m.Width() != bounds.Dx() || m.Height() != bounds.Dy() {
		return nil, fmt.Errorf("mask %dx%d does not match image %dx%d",
			m.Width(), m.Height(), bounds.Dx(), bounds.Dy())
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	cr, cg, cb, _ := c.RGBA()
	mr, mg, mb := float64(cr>>8), float64(cg>>8), float64(cb>>8)

	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if !m.At(y, x) {
				continue
			}
			px := out.RGBAAt(x, y)
			px.R = uint8(float64(px.R)*(1-alpha) + mr*alpha)
			px.G = uint8(float64(px.G)*(1-alpha) + mg*alpha)
			px.B = uint8(float64(px.B)*(1-alpha) + mb*alpha)
			out.SetRGBA(x, y, px)
		}
	}
	return out, nil
}

// BlendStack blends every layer of a class stack into the image, coloring
// each layer by its class index in the palette. Layers are mutually
// exclusive per pixel, so blend order does not matter.
func BlendStack(img image.Image, st mask.Stack, palette []color.RGBA, alpha float64) (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)

	layers := st.Layers()
	for i, class := range st.Classes() {
		if class < 0 || class >= len(palette) {
			return nil, fmt.Errorf("class %d outside palette of %d colors", class, len(palette))
		}
		blended, err := Blend(out, layers[i], palette[class], alpha)
		if err != nil {
			return nil, err
		}
		out = blended
	}
	return out, nil
}

// IndexImage renders a class index map as a paletted color image, one
// palette color per class. Useful for saving the raw segmentation result.
func IndexImage(idx *mask.Index, b int, palette []color.RGBA) (*image.RGBA, error) {
	if b < 0 || b >= idx.Batch() {
		return nil, fmt.Errorf("batch index %d out of range [0,%d)", b, idx.Batch())
	}
	if idx.Classes() > len(palette) {
		return nil, fmt.Errorf("%d classes but palette has %d colors", idx.Classes(), len(palette))
	}

	out := image.NewRGBA(image.Rect(0, 0, idx.Width(), idx.Height()))
	for y := 0; y < idx.Height(); y++ {
		for x := 0; x < idx.Width(); x++ {
			out.SetRGBA(x, y, palette[idx.At(b, y, x)])
		}
	}
	return out, nil
}
