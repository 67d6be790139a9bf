//go:build darwin || linux || freebsd

package sdl

import (
	"encoding/binary"
	"unsafe"
)

// SDL_PIXELFORMAT_RGBA32 is ABGR8888 on little-endian hosts and RGBA8888 on
// big-endian ones: bytes R, G, B, A in memory, which is the layout of
// image.NRGBA.
var pixelFormatRGBA32 uint32 = 0x16762004

func init() {
	if binary.NativeEndian.Uint16([]byte{0, 1}) == 1 {
		pixelFormatRGBA32 = 0x16462004
	}
}

// cString returns a NUL-terminated copy of *s for a const char* argument.
// purego keeps the buffer alive for the duration of the call. A nil s is the
// null pointer.
func cString(s *string) *byte {
	if s == nil {
		return nil
	}
	b := append([]byte(*s), 0)
	return &b[0]
}

// goString copies a NUL-terminated C string.
func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}

	var n int
	for *(*byte)(unsafe.Add(unsafe.Pointer(ptr), n)) != 0 {
		n++
		if n > 1<<20 {
			break
		}
	}

	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}
