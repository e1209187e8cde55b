package processor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

const (
	captionFontRatio = 0.12 // main font size relative to image height
	captionTopRatio  = 0.05
	captionLineRatio = 1.4
	dateFontRatio    = 0.5 // date font size relative to the main font
	outlineWidth     = 2.0
	minFontSize      = 8.0
)

var (
	backingColor = color.NRGBA{A: 153} // rgba(0, 0, 0, 0.6)
	captionStops = []color.Color{
		color.RGBA{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF}, // gold
		color.RGBA{R: 0xFF, G: 0xA5, B: 0x00, A: 0xFF}, // orange
		color.RGBA{R: 0xFF, G: 0x63, B: 0x47, A: 0xFF}, // tomato
	}
)

// Stamper burns the birthday caption into an image. Video models do not
// render requested text reliably, so the visible caption comes from here.
type Stamper struct {
	boldFontPath    string
	regularFontPath string
}

// NewStamper creates a Stamper. Empty font paths select the embedded Go fonts.
func NewStamper(boldFontPath, regularFontPath string) *Stamper {
	return &Stamper{boldFontPath: boldFontPath, regularFontPath: regularFontPath}
}

// box is a drawn caption region in image coordinates.
type box struct {
	Text       string
	X, Y, W, H float64
	FontSize   float64
}

// Stamp draws "Happy Birthday {childName}!" near the top of the image and,
// when dateCaption is not empty, a smaller second line below it.
// The output has the input's dimensions; PNG input stays PNG.
func (s *Stamper) Stamp(data []byte, childName, dateCaption string) ([]byte, error) {
	img, format, err := decode(data)
	if err != nil {
		return nil, err
	}

	out, _, err := s.stamp(img, childName, dateCaption)
	if err != nil {
		return nil, err
	}

	return encode(out, format)
}

func (s *Stamper) stamp(img image.Image, childName, dateCaption string) (image.Image, []box, error) {
	dc := gg.NewContextForImage(img)
	w, h := float64(dc.Width()), float64(dc.Height())

	fontSize := math.Max(math.Floor(h*captionFontRatio), minFontSize)
	bold, err := loadFace(s.boldFontPath, true, fontSize)
	if err != nil {
		return nil, nil, err
	}

	text := fmt.Sprintf("Happy Birthday %s!", strings.TrimSpace(childName))

	dc.SetFontFace(bold)
	tw, _ := dc.MeasureString(text)
	textHeight := fontSize * captionLineRatio

	cx := w / 2
	y := h * captionTopRatio

	main := box{Text: text, X: cx - tw/2 - 20, Y: y - 10, W: tw + 40, H: textHeight + 20, FontSize: fontSize}
	fillRect(dc, main, backingColor)
	drawGradientText(dc, bold, text, cx, y, tw, textHeight)

	boxes := []box{main}

	if caption := strings.TrimSpace(dateCaption); caption != "" {
		dateSize := math.Max(math.Floor(fontSize*dateFontRatio), minFontSize)
		regular, err := loadFace(s.regularFontPath, false, dateSize)
		if err != nil {
			return nil, nil, err
		}

		dateY := y + textHeight + 10

		dc.SetFontFace(regular)
		dw, _ := dc.MeasureString(caption)

		date := box{Text: caption, X: cx - dw/2 - 15, Y: dateY - 5, W: dw + 30, H: dateSize + 10, FontSize: dateSize}
		fillRect(dc, date, backingColor)

		dc.SetColor(color.White)
		drawTopCentered(dc, regular, caption, cx, dateY)

		boxes = append(boxes, date)
	}

	return dc.Image(), boxes, nil
}

func fillRect(dc *gg.Context, b box, c color.Color) {
	dc.SetColor(c)
	dc.DrawRectangle(b.X, b.Y, b.W, b.H)
	dc.Fill()
}

// drawTopCentered draws text horizontally centered on cx with its ascent line at top.
func drawTopCentered(dc *gg.Context, face font.Face, text string, cx, top float64) {
	ascent := float64(face.Metrics().Ascent.Ceil())
	tw, _ := dc.MeasureString(text)
	dc.DrawString(text, cx-tw/2, top+ascent)
}

// drawGradientText outlines text in white and fills the glyphs with the
// gold-orange-tomato gradient. gg draws text with a solid color, so the
// glyphs are rendered into a mask first and the gradient is painted through it.
func drawGradientText(dc *gg.Context, face font.Face, text string, cx, top, tw, th float64) {
	dc.SetColor(color.White)
	for _, d := range [][2]float64{
		{-outlineWidth, 0}, {outlineWidth, 0}, {0, -outlineWidth}, {0, outlineWidth},
		{-outlineWidth, -outlineWidth}, {outlineWidth, outlineWidth},
		{-outlineWidth, outlineWidth}, {outlineWidth, -outlineWidth},
	} {
		drawTopCentered(dc, face, text, cx+d[0], top+d[1])
	}

	mc := gg.NewContext(dc.Width(), dc.Height())
	mc.SetFontFace(face)
	mc.SetColor(color.White)
	drawTopCentered(mc, face, text, cx, top)

	grad := gg.NewLinearGradient(cx-tw/2, top, cx+tw/2, top)
	for i, stop := range captionStops {
		grad.AddColorStop(float64(i)/float64(len(captionStops)-1), stop)
	}

	_ = dc.SetMask(mc.AsMask()) // same size as dc, cannot fail
	dc.SetFillStyle(grad)
	dc.DrawRectangle(cx-tw/2-outlineWidth, top-outlineWidth, tw+2*outlineWidth, th+2*outlineWidth)
	dc.Fill()
	dc.ResetClip()
}
