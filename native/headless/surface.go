package headless

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"

	"github.com/shelepuginivan/nativetray/native"
)

// ErrUnsupportedImage is returned by [DecodeImage] for files that are not
// PNG, JPEG, GIF or BMP images.
var ErrUnsupportedImage = errors.New(errUnsupportedSurface)

// surfaceFormats lists the image types DecodeImage accepts.
var surfaceFormats = map[string]bool{
	"png": true,
	"jpg": true,
	"gif": true,
	"bmp": true,
}

// DecodeImage decodes the image file at path. The format is sniffed from the
// file content, not from its extension.
func DecodeImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Couldn't open %s: %w", path, err)
	}

	kind, err := filetype.Match(data)
	if err != nil || !surfaceFormats[kind.Extension] {
		return nil, ErrUnsupportedImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("Couldn't decode %s: %w", path, err)
	}

	return img, nil
}

// LoadSurface decodes the image file at path into a surface.
func (l *Library) LoadSurface(path string) native.Handle {
	img, err := DecodeImage(path)

	l.lock()
	defer l.unlock()

	if err != nil {
		l.setError("%s", err)
		return 0
	}

	h := l.allocHandle()
	l.surfaces[h] = img

	return h
}

func (l *Library) DestroySurface(h native.Handle) {
	l.lock()
	defer l.unlock()

	if _, ok := l.surfaces[h]; !ok {
		l.setError(errInvalidParam, "surface")
		return
	}

	delete(l.surfaces, h)
}
