// Package processor renders the images submitted to the video provider:
// the cartoon/person composite and the burned-in birthday caption.
package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrImageDecode is returned when a source image cannot be decoded.
var ErrImageDecode = errors.New("failed to decode image")

var (
	embeddedOnce    sync.Once
	embeddedBold    *truetype.Font
	embeddedRegular *truetype.Font
	embeddedErr     error
)

// decode decodes an image and reports its format name ("png", "jpeg", ...).
// EXIF orientation is applied so phone photos are upright.
func decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrImageDecode)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	return img, format, nil
}

// encode writes img as PNG when format is "png" and as JPEG otherwise.
func encode(img image.Image, format string) ([]byte, error) {
	buf := new(bytes.Buffer)

	var err error
	if format == "png" {
		err = imaging.Encode(buf, img, imaging.PNG)
	} else {
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(95))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// loadFace returns a font face of the given pixel size. When path is empty
// the embedded Go fonts are used.
func loadFace(path string, bold bool, size float64) (font.Face, error) {
	if path != "" {
		face, err := gg.LoadFontFace(path, size)
		if err != nil {
			return nil, fmt.Errorf("failed to load font %s: %w", path, err)
		}
		return face, nil
	}

	embeddedOnce.Do(func() {
		embeddedBold, embeddedErr = truetype.Parse(gobold.TTF)
		if embeddedErr != nil {
			return
		}
		embeddedRegular, embeddedErr = truetype.Parse(goregular.TTF)
	})
	if embeddedErr != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", embeddedErr)
	}

	f := embeddedRegular
	if bold {
		f = embeddedBold
	}

	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull}), nil
}
