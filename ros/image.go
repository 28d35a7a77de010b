package ros

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Pixel encodings understood by the repeater.
const (
	EncodingBGR8  = "bgr8"
	EncodingRGB8  = "rgb8"
	EncodingBGRA8 = "bgra8"
	EncodingRGBA8 = "rgba8"
	EncodingMono8 = "mono8"
)

// channel offsets of blue, green and red, and pixel size, for each 8 bit encoding.
var layouts = map[string]struct{ b, g, r, size int }{
	EncodingBGR8:  {0, 1, 2, 3},
	EncodingRGB8:  {2, 1, 0, 3},
	EncodingBGRA8: {0, 1, 2, 4},
	EncodingRGBA8: {2, 1, 0, 4},
	EncodingMono8: {0, 0, 0, 1},
}

// Validate checks that the buffer is large enough for the declared geometry.
func (img *Image) Validate() error {
	if img == nil {
		return errors.New("image is nil")
	}
	layout, ok := layouts[img.Encoding]
	if !ok {
		return errors.Errorf("unsupported image encoding %q", img.Encoding)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return errors.Errorf("invalid image size (%d, %d)", img.Width, img.Height)
	}
	if img.Step < img.Width*layout.size {
		return errors.Errorf("image step %d too small for width %d in %s", img.Step, img.Width, img.Encoding)
	}
	if len(img.Data) < img.Step*img.Height {
		return errors.Errorf("image data has %d bytes, expected %d", len(img.Data), img.Step*img.Height)
	}
	return nil
}

// ToBGR8 returns the image converted to bgr8 with a tightly packed buffer. A bgr8 input is
// returned as a copy so the caller always owns the result.
func (img *Image) ToBGR8() (*Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	layout := layouts[img.Encoding]
	out := &Image{
		Header:   img.Header,
		Height:   img.Height,
		Width:    img.Width,
		Encoding: EncodingBGR8,
		Step:     img.Width * 3,
		Data:     make([]byte, img.Width*img.Height*3),
	}
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Step:]
		dst := out.Data[y*out.Step:]
		for x := 0; x < img.Width; x++ {
			px := row[x*layout.size:]
			dst[x*3] = px[layout.b]
			dst[x*3+1] = px[layout.g]
			dst[x*3+2] = px[layout.r]
		}
	}
	return out, nil
}

// FromGoImage copies any image.Image into a bgr8 message.
func FromGoImage(src image.Image) *Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := &Image{
		Height:   height,
		Width:    width,
		Encoding: EncodingBGR8,
		Step:     width * 3,
		Data:     make([]byte, width*height*3),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := y*out.Step + x*3
			out.Data[i] = c.B
			out.Data[i+1] = c.G
			out.Data[i+2] = c.R
		}
	}
	return out
}

// ToGoImage converts the message to an *image.NRGBA.
func (img *Image) ToGoImage() (*image.NRGBA, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	layout := layouts[img.Encoding]
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Step:]
		for x := 0; x < img.Width; x++ {
			px := row[x*layout.size:]
			out.SetNRGBA(x, y, color.NRGBA{R: px[layout.r], G: px[layout.g], B: px[layout.b], A: 255})
		}
	}
	return out, nil
}
