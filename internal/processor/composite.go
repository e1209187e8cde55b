package processor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/wb-go/wbf/zlog"
)

// Canvas size of every composite.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

const (
	panelHeightRatio = 0.8
	panelSpacing     = 100
	panelRadius      = 20
	shadowOffset     = 10
	shadowSigma      = 10.0
	shadowOpacity    = 0.5
)

// backgroundStops is the gradient drawn when the background asset is unavailable.
var backgroundStops = []color.Color{
	color.RGBA{R: 0xFF, G: 0x6B, B: 0x9D, A: 0xFF}, // pink
	color.RGBA{R: 0xC4, G: 0x45, B: 0x69, A: 0xFF}, // deep pink
	color.RGBA{R: 0xFF, G: 0xA0, B: 0x7A, A: 0xFF}, // light coral
	color.RGBA{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF}, // gold
	color.RGBA{R: 0xFF, G: 0x14, B: 0x93, A: 0xFF}, // deep pink
}

// Compositor places a cartoon reference and a person photo side by side
// on a decorated 16:9 canvas.
type Compositor struct {
	backgroundPath string

	bgOnce sync.Once
	bg     image.Image
}

// NewCompositor creates a Compositor. backgroundPath may be empty, in which
// case the gradient background is always used.
func NewCompositor(backgroundPath string) *Compositor {
	return &Compositor{backgroundPath: backgroundPath}
}

// Composite renders the composite image. Without a cartoon image the person
// image is returned unchanged and the provider draws the character from the
// prompt alone. Decode failures wrap ErrImageDecode.
func (c *Compositor) Composite(cartoon, person []byte) ([]byte, error) {
	if len(cartoon) == 0 {
		return person, nil
	}

	cartoonImg, _, err := decode(cartoon)
	if err != nil {
		return nil, fmt.Errorf("cartoon: %w", err)
	}

	personImg, _, err := decode(person)
	if err != nil {
		return nil, fmt.Errorf("person: %w", err)
	}

	out := c.render(cartoonImg, personImg)

	return encode(out, "jpeg")
}

// render draws both panels on the canvas and returns it.
func (c *Compositor) render(cartoon, person image.Image) image.Image {
	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	c.drawBackground(dc)

	panelH := float64(CanvasHeight) * panelHeightRatio
	cartoonW := scaledWidth(cartoon, panelH)
	personW := scaledWidth(person, panelH)

	// Very wide sources would push the pair off the canvas; shrink both evenly.
	if total := cartoonW + personW + panelSpacing; total > CanvasWidth {
		f := (CanvasWidth - panelSpacing) / (cartoonW + personW)
		cartoonW *= f
		personW *= f
		panelH *= f
	}

	startX := (CanvasWidth - (cartoonW + personW + panelSpacing)) / 2
	y := (CanvasHeight - panelH) / 2

	drawPanel(dc, cartoon, startX, y, cartoonW, panelH)
	drawPanel(dc, person, startX+cartoonW+panelSpacing, y, personW, panelH)

	return dc.Image()
}

func (c *Compositor) drawBackground(dc *gg.Context) {
	if bg := c.background(); bg != nil {
		dc.DrawImage(bg, 0, 0)
		return
	}

	grad := gg.NewLinearGradient(0, 0, CanvasWidth, CanvasHeight)
	for i, stop := range backgroundStops {
		grad.AddColorStop(float64(i)/float64(len(backgroundStops)-1), stop)
	}

	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, CanvasWidth, CanvasHeight)
	dc.Fill()
}

// background loads and scales the background asset once.
// It returns nil when the asset is not configured or fails to load.
func (c *Compositor) background() image.Image {
	c.bgOnce.Do(func() {
		if c.backgroundPath == "" {
			return
		}

		img, err := imaging.Open(c.backgroundPath)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("path", c.backgroundPath).Msg("failed to load background, using gradient fallback")
			return
		}

		c.bg = imaging.Fill(img, CanvasWidth, CanvasHeight, imaging.Center, imaging.Lanczos)
	})

	return c.bg
}

func scaledWidth(img image.Image, height float64) float64 {
	b := img.Bounds()
	return float64(b.Dx()) * height / float64(b.Dy())
}

// drawPanel draws img scaled to w×h at (x, y) with rounded corners and a
// drop shadow. Transparent source pixels stay transparent.
func drawPanel(dc *gg.Context, img image.Image, x, y, w, h float64) {
	pw, ph := int(math.Round(w)), int(math.Round(h))
	if pw < 1 || ph < 1 {
		return
	}

	panel := roundedPanel(img, pw, ph)
	shadow, pad := shadowOf(panel)

	ix, iy := int(math.Round(x)), int(math.Round(y))
	dc.DrawImage(shadow, ix+shadowOffset-pad, iy+shadowOffset-pad)
	dc.DrawImage(panel, ix, iy)
}

func roundedPanel(img image.Image, w, h int) *image.NRGBA {
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	pc := gg.NewContext(w, h)
	pc.DrawRoundedRectangle(0, 0, float64(w), float64(h), panelRadius)
	pc.Clip()
	pc.DrawImage(resized, 0, 0)

	return imaging.Clone(pc.Image())
}

// shadowOf builds a blurred, semi-transparent black silhouette of the panel's
// alpha channel. pad is the margin added around the panel for the blur.
func shadowOf(panel *image.NRGBA) (*image.NRGBA, int) {
	pad := int(shadowSigma * 3)
	b := panel.Bounds()

	sh := image.NewNRGBA(image.Rect(0, 0, b.Dx()+2*pad, b.Dy()+2*pad))
	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			a := panel.Pix[py*panel.Stride+px*4+3]
			if a == 0 {
				continue
			}
			sh.SetNRGBA(px+pad, py+pad, color.NRGBA{A: uint8(float64(a) * shadowOpacity)})
		}
	}

	return imaging.Blur(sh, shadowSigma), pad
}
