// Package imaging normalizes inbound pictures into web-friendly JPEGs and
// produces a size-bounded downsized variant.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the formats the chat platform delivers.
	_ "image/gif"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

// ErrDecode indicates the payload is not a decodable image.
var ErrDecode = errors.New("image decode failed")

// normalizeQuality is the fixed encoding quality for the original variant.
const normalizeQuality = 90

// Options bounds the output of Downsize.
type Options struct {
	// MaxBytes is a best-effort target for the encoded size. When the
	// quality floor is reached without meeting it, the smallest achieved
	// encoding is returned instead of an error.
	MaxBytes     int64
	MaxWidth     int
	MaxHeight    int
	Quality      int
	QualityFloor int
	QualityStep  int
}

func (o Options) normalized() Options {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 80
	}
	if o.QualityFloor <= 0 {
		o.QualityFloor = 30
	}
	if o.QualityStep <= 0 {
		o.QualityStep = 10
	}
	if o.Quality < o.QualityFloor {
		o.Quality = o.QualityFloor
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = 1200
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = 1200
	}
	return o
}

// Normalize re-encodes an image as a baseline JPEG at a fixed high quality:
// embedded orientation is applied, alpha is flattened against white. The
// pixel dimensions are preserved, so applying Normalize twice is a no-op in
// dimensions (byte-identical output is not guaranteed).
func Normalize(data []byte) ([]byte, error) {
	img, err := decodeOriented(data)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(flatten(img), normalizeQuality)
}

// Downsize constrains an image to the configured dimensions (aspect ratio
// preserved, never upscaled) and walks the JPEG quality down in fixed steps
// until the encoded size fits opts.MaxBytes or the floor is reached.
func Downsize(data []byte, opts Options) ([]byte, error) {
	opts = opts.normalized()

	img, err := decodeOriented(data)
	if err != nil {
		return nil, err
	}
	flat := scaleToFit(flatten(img), opts.MaxWidth, opts.MaxHeight)

	var smallest []byte
	for q := opts.Quality; q >= opts.QualityFloor; q -= opts.QualityStep {
		encoded, err := encodeJPEG(flat, q)
		if err != nil {
			return nil, err
		}
		if smallest == nil || len(encoded) < len(smallest) {
			smallest = encoded
		}
		if opts.MaxBytes > 0 && int64(len(encoded)) <= opts.MaxBytes {
			return encoded, nil
		}
	}
	return smallest, nil
}

// Dimensions reports the oriented pixel size of an encoded image.
func Dimensions(data []byte) (width, height int, err error) {
	img, err := decodeOriented(data)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// IsImage reports whether the payload decodes as a supported image format.
func IsImage(data []byte) bool {
	_, _, err := image.Decode(bytes.NewReader(data))
	return err == nil
}

func decodeOriented(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return applyOrientation(img, orientationOf(data)), nil
}

// orientationOf reads the EXIF orientation tag, defaulting to 1 (upright)
// when the metadata is absent or unreadable.
func orientationOf(data []byte) int {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	value, err := tag.Int(0)
	if err != nil || value < 1 || value > 8 {
		return 1
	}
	return value
}

// applyOrientation maps pixels according to the EXIF orientation value 1-8.
func applyOrientation(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// Orientations 5-8 swap the axes.
	var dst *image.NRGBA
	if orientation >= 5 {
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2: // mirrored horizontally
				dx, dy = w-1-x, y
			case 3: // rotated 180
				dx, dy = w-1-x, h-1-y
			case 4: // mirrored vertically
				dx, dy = x, h-1-y
			case 5: // transposed
				dx, dy = y, x
			case 6: // rotated 90 CW
				dx, dy = h-1-y, x
			case 7: // transversed
				dx, dy = h-1-y, w-1-x
			case 8: // rotated 90 CCW
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// flatten composites the image over a white background, stripping alpha so
// the result is encodable as a 3-channel JPEG.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// scaleToFit shrinks src to fit within maxW x maxH, preserving aspect ratio.
// Images already within bounds are returned unchanged.
func scaleToFit(src *image.RGBA, maxW, maxH int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return src
	}

	ratioW := float64(maxW) / float64(w)
	ratioH := float64(maxH) / float64(h)
	ratio := ratioW
	if ratioH < ratio {
		ratio = ratioH
	}

	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
