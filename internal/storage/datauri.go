package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecodeFailed is returned when a payload cannot be turned into an image.
var ErrDecodeFailed = errors.New("image decode failed")

// ImageDecoder turns data URIs into images.
type ImageDecoder interface {
	DecodeDataURI(ctx context.Context, dataURI string) (image.Image, string, error)
}

type dataURIDecoder struct {
	maxPixels int64
}

// NewDataURIDecoder creates a decoder that refuses images with more than
// maxPixels pixels before allocating them. A non-positive limit disables the check.
func NewDataURIDecoder(maxPixels int64) ImageDecoder {
	return &dataURIDecoder{maxPixels: maxPixels}
}

// DecodeDataURI decodes "data:image/<fmt>;base64,<payload>". Everything up to
// the first comma is ignored, so a bare base64 payload works as well. The
// returned string is the detected format name.
func (d *dataURIDecoder) DecodeDataURI(ctx context.Context, dataURI string) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := decodePayload(dataURI)
	if err != nil {
		return nil, "", err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if d.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds the %d pixel limit",
			ErrDecodeFailed, cfg.Width, cfg.Height, d.maxPixels)
	}

	if err := ctx.Err(); err != nil {
		return nil, format, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return img, format, nil
}

func decodePayload(dataURI string) ([]byte, error) {
	payload := dataURI
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecodeFailed)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}

	// Some clients wrap lines or drop padding.
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	data, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(compact, "="))
	if rawErr != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecodeFailed, err)
	}
	return data, nil
}
