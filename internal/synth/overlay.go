package synth

import (
	"image"

	"github.com/suyashkumar/dicom/pkg/frame"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawLabel burns text into the centre of a 16-bit frame at value ink. The
// glyphs are rendered with the 7x13 bitmap font and scaled up to roughly half
// the image width.
func drawLabel(f *frame.NativeFrame[uint16], width, height int, text string, ink uint16) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	if textWidth == 0 || width <= 0 || height <= 0 {
		return
	}

	glyphs := image.NewAlpha(image.Rect(0, 0, textWidth, face.Height))
	drawer := &font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	drawer.DrawString(text)

	scale := min(width/2/textWidth, height/face.Height)
	if scale < 1 {
		scale = 1
	}
	scaled := image.NewAlpha(image.Rect(0, 0, textWidth*scale, face.Height*scale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), glyphs, glyphs.Bounds(), xdraw.Src, nil)

	x0 := (width - scaled.Bounds().Dx()) / 2
	y0 := (height - scaled.Bounds().Dy()) / 2
	for y := 0; y < scaled.Bounds().Dy(); y++ {
		py := y0 + y
		if py < 0 || py >= height {
			continue
		}
		for x := 0; x < scaled.Bounds().Dx(); x++ {
			px := x0 + x
			if px < 0 || px >= width {
				continue
			}
			if scaled.AlphaAt(x, y).A > 0 {
				f.RawData[py*width+px] = ink
			}
		}
	}
}
