package sni

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// maxIconSize is the largest edge of an exported pixmap. Larger icons are
// scaled down, keeping the aspect ratio.
const maxIconSize = 64

// Pixmap is an icon in the StatusNotifierItem wire format, (iiay). Bytes
// holds ARGB32 pixels in network byte order, row by row.
type Pixmap struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// NewPixmap converts img to a [Pixmap].
func NewPixmap(img image.Image) Pixmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxIconSize || h > maxIconSize {
		if w >= h {
			w, h = maxIconSize, max(1, h*maxIconSize/w)
		} else {
			w, h = max(1, w*maxIconSize/h), maxIconSize
		}
	}

	// NRGBA keeps straight alpha, which is what ARGB32 pixmaps carry.
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Copy(dst, image.Point{}, img, bounds, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	}

	data := make([]byte, 0, w*h*4)
	for i := 0; i < len(dst.Pix); i += 4 {
		r, g, b, a := dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3]
		data = append(data, a, r, g, b)
	}

	return Pixmap{
		Width:  int32(w),
		Height: int32(h),
		Bytes:  data,
	}
}

// pixmaps returns the IconPixmap property value for img. A nil image gives
// an empty list.
func pixmaps(img image.Image) []Pixmap {
	if img == nil {
		return []Pixmap{}
	}
	return []Pixmap{NewPixmap(img)}
}

// NewPixmapFromDBus decodes a pixmap read from a remote item.
//
// Format of pixmap is as follows
//
//	[<width>, <height>, <bytes>]
func NewPixmapFromDBus(pixmap any) (Pixmap, error) {
	data, ok := pixmap.([]any)
	if !ok || len(data) != 3 {
		return Pixmap{}, fmt.Errorf("invalid pixmap format: expected a slice of 3 elements")
	}

	width, ok := data[0].(int32)
	if !ok {
		return Pixmap{}, fmt.Errorf("invalid width type: expected int32")
	}

	height, ok := data[1].(int32)
	if !ok {
		return Pixmap{}, fmt.Errorf("invalid height type: expected int32")
	}

	bytes, ok := data[2].([]byte)
	if !ok {
		return Pixmap{}, fmt.Errorf("invalid bytes format: expected []byte")
	}

	if int(width)*int(height)*4 != len(bytes) {
		return Pixmap{}, fmt.Errorf("invalid pixmap size: %dx%d with %d bytes", width, height, len(bytes))
	}

	return Pixmap{Width: width, Height: height, Bytes: bytes}, nil
}
