package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Label draws a caption in the top-left corner of the image and returns the
// result. Used to tag overlays with the class name they show.
func Label(img image.Image, text string, c color.Color, size float64) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringAnchored(text, 4, 4, 0, 1)
	return dc.Image()
}

// Grid lays out images side by side, cols per row, on a white canvas. All
// images must share the same dimensions. This is the inspection helper for
// comparing an input with its masks and overlays.
func Grid(imgs []image.Image, cols int) (image.Image, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("empty image list")
	}
	if cols <= 0 {
		cols = len(imgs)
	}

	w := imgs[0].Bounds().Dx()
	h := imgs[0].Bounds().Dy()
	for i, img := range imgs {
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			return nil, fmt.Errorf("image %d is %dx%d, want %dx%d",
				i, img.Bounds().Dx(), img.Bounds().Dy(), w, h)
		}
	}

	rows := (len(imgs) + cols - 1) / cols
	const pad = 2

	dc := gg.NewContext(cols*w+(cols+1)*pad, rows*h+(rows+1)*pad)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, img := range imgs {
		col := i % cols
		row := i / cols
		x := pad + col*(w+pad)
		y := pad + row*(h+pad)
		dc.DrawImage(img, x, y)
	}
	return dc.Image(), nil
}
