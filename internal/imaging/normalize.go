// Package imaging normalizes uploaded menu images into a transport-safe payload.
// The provider has a practical payload ceiling; every accepted image is decoded,
// orientation-corrected, flattened, downscaled, and re-encoded until it fits.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // register PNG decoding

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	xdraw "golang.org/x/image/draw"
)

// Pipeline limits. MaxUploadBytes bounds the raw upload; TargetBytes bounds the
// re-encoded JPEG that actually travels to the provider.
const (
	MaxUploadBytes = 8 * 1024 * 1024
	MaxDimension   = 1600
	TargetBytes    = 3_500_000
)

// qualityLadder is tried in order; encoding stops at the first result that
// fits within TargetBytes.
var qualityLadder = []int{90, 85, 78, 72, 65, 58, 50}

// Meta describes the normalized payload.
type Meta struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Bytes   int `json:"bytes"`
	Quality int `json:"quality"`
}

// Options override the default pipeline limits.
type Options struct {
	MaxUploadBytes int64
	MaxDimension   int
	TargetBytes    int
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		MaxUploadBytes: MaxUploadBytes,
		MaxDimension:   MaxDimension,
		TargetBytes:    TargetBytes,
	}
}

// Normalize runs the default pipeline over raw upload bytes and returns a
// base64 data URI plus metadata.
func Normalize(data []byte) (string, *Meta, error) {
	return DefaultOptions().Normalize(data)
}

// Normalize decodes, orientation-corrects, flattens onto white, downscales so
// neither dimension exceeds MaxDimension, and re-encodes at decreasing JPEG
// quality until the result fits TargetBytes. Returns a ValidationError when
// the upload is absent, oversized, undecodable, or cannot be compressed under
// the target even at the lowest quality.
func (o Options) Normalize(data []byte) (string, *Meta, error) {
	if len(data) == 0 {
		log.Warn("image normalization attempted without an upload")
		return "", nil, &ValidationError{Message: "no image uploaded"}
	}
	if int64(len(data)) > o.MaxUploadBytes {
		sizeMB := float64(len(data)) / (1024 * 1024)
		log.WithFields(log.Fields{"bytes": len(data), "limit": o.MaxUploadBytes}).
			Warn("rejected oversized image upload")
		return "", nil, &ValidationError{Message: fmt.Sprintf(
			"image is too large (%.1f MB); please upload an image under %d MB",
			sizeMB, o.MaxUploadBytes/(1024*1024))}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, &ValidationError{Message: "could not decode image", Cause: err}
	}
	log.WithFields(log.Fields{"format": format, "bytes": len(data)}).
		Info("preprocessing image upload")

	if orientation := exifOrientation(data); orientation > 1 {
		img = correctOrientation(img, orientation)
		log.WithField("orientation", orientation).Info("applied orientation correction")
	}

	img = flattenToRGB(img)
	img = downscale(img, o.MaxDimension)

	var buf bytes.Buffer
	usedQuality := qualityLadder[0]
	for _, quality := range qualityLadder {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", nil, &ValidationError{Message: "could not encode image", Cause: err}
		}
		usedQuality = quality
		if buf.Len() <= o.TargetBytes {
			break
		}
	}

	if buf.Len() > o.TargetBytes {
		log.WithFields(log.Fields{"bytes": buf.Len(), "target": o.TargetBytes}).
			Warn("image remained too large after compression")
		return "", nil, &ValidationError{Message: "image is still too large after " +
			"resize/compression; try a smaller or cropped image, or paste menu text instead"}
	}

	bounds := img.Bounds()
	meta := &Meta{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Bytes:   buf.Len(),
		Quality: usedQuality,
	}
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	log.WithFields(log.Fields{
		"width": meta.Width, "height": meta.Height,
		"bytes": meta.Bytes, "quality": meta.Quality,
	}).Info("image preprocessing complete")
	return dataURI, meta, nil
}

// exifOrientation reads the EXIF orientation tag, defaulting to 1 when the
// data carries no usable EXIF block.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	val, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return val
}

// correctOrientation rewrites the pixels according to the EXIF orientation.
// Orientations 5-8 swap width and height.
func correctOrientation(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch orientation {
			case 2:
				dst.Set(w-1-x, y, c)
			case 3:
				dst.Set(w-1-x, h-1-y, c)
			case 4:
				dst.Set(x, h-1-y, c)
			case 5:
				dst.Set(y, x, c)
			case 6:
				dst.Set(h-1-y, x, c)
			case 7:
				dst.Set(h-1-y, w-1-x, c)
			case 8:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// flattenToRGB composites the image over an opaque white background so that
// transparent regions read as paper rather than black after JPEG encoding.
// Palette images expand as a side effect of drawing into RGBA.
func flattenToRGB(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}

// downscale shrinks the image, preserving aspect ratio, so neither dimension
// exceeds maxDim. Images already within bounds pass through untouched.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if s := float64(maxDim) / float64(h); s < scale {
		scale = s
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw > maxDim {
		nw = maxDim
	}
	if nh > maxDim {
		nh = maxDim
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
