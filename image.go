package xcf

import (
	"image"
	"image/color"
	"image/draw"
)

// RGBA converts the layer's pixel data to a standard library image.
// Layers without an alpha channel decode with alpha 255, so the result
// is always fully populated.
func (l *Layer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(l.Width), int(l.Height)))
	for y := uint32(0); y < l.Height; y++ {
		for x := uint32(0); x < l.Width; x++ {
			px := l.Pixels.Pix[y*l.Width+x]
			img.SetRGBA(int(x), int(y), color.RGBA{R: px.R, G: px.G, B: px.B, A: px.A})
		}
	}
	return img
}

// LayerFromImage builds an RGBA layer from any standard library image.
func LayerFromImage(src image.Image, name string) Layer {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	pix := make([]RGBA, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := rgba.RGBAAt(x, y)
			pix[y*w+x] = RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
		}
	}
	return Layer{
		Width:  uint32(w),
		Height: uint32(h),
		Kind:   LayerKind{Base: RGB, Alpha: true},
		Name:   name,
		Pixels: PixelData{Width: uint32(w), Height: uint32(h), Pix: pix},
	}
}
