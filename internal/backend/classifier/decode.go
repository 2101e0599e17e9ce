package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImagePixels caps width*height of an upload before its pixels are allocated.
const MaxImagePixels = 89478485

var (
	ErrEmptyImage    = errors.New("image data is empty")
	ErrImageTooLarge = errors.New("image dimensions exceed limit")
)

// DecodeImage decodes raster formats (PNG, JPEG, GIF, BMP, TIFF, WebP, AVIF) and
// rasterises SVG at ImageSize x ImageSize. It returns the image and the detected
// format name. Raster images larger than MaxImagePixels are rejected before decoding.
func DecodeImage(data []byte) (image.Image, string, error) {
	return decodeImage(data, MaxImagePixels)
}

func decodeImage(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	if isSVGData(data) {
		img, err := rasterizeSVG(data, ImageSize)
		if err != nil {
			return nil, "", err
		}
		return img, "svg", nil
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		pixels := int64(cfg.Width) * int64(cfg.Height)
		if cfg.Width <= 0 || cfg.Height <= 0 || pixels > maxPixels {
			slog.Warn("classifier: rejected oversized image",
				"format", format, "width", cfg.Width, "height", cfg.Height)
			return nil, "", fmt.Errorf("%w: %dx%d %s", ErrImageTooLarge, cfg.Width, cfg.Height, format)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		kind, _ := filetype.Match(data)
		if kind != filetype.Unknown && !filetype.IsImage(data) {
			slog.Warn("classifier: upload is not an image", "mime", kind.MIME.Value)
			return nil, "", fmt.Errorf("failed to decode image: unsupported content type %s", kind.MIME.Value)
		}
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
