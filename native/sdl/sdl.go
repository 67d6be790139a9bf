//go:build darwin || linux || freebsd

// Package sdl binds the tray API of libSDL3 with purego, without cgo.
//
// All calls must be made on the main thread, which is locked with
// runtime.LockOSThread before the library is opened.
package sdl

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

const initVideo uint32 = 0x00000020

// Library is a [native.Library] backed by libSDL3.
type Library struct {
	handle uintptr
	log    *slog.Logger

	// pixels pins the Go memory behind each surface until it is destroyed.
	mu     sync.Mutex
	pixels map[native.Handle]*runtime.Pinner

	// decodeErr is an image error SDL never saw. The next Error call
	// reports and clears it.
	decodeErr string

	fnInit                   func(flags uint32) bool
	fnQuit                   func()
	fnGetError               func() uintptr
	fnCreateSurfaceFrom      func(w, h int32, format uint32, pixels uintptr, pitch int32) uintptr
	fnDestroySurface         func(surface uintptr)
	fnCreateTray             func(icon uintptr, tooltip *byte) uintptr
	fnDestroyTray            func(tray uintptr)
	fnSetTrayIcon            func(tray, icon uintptr)
	fnSetTrayTooltip         func(tray uintptr, tooltip *byte)
	fnCreateTrayMenu         func(tray uintptr) uintptr
	fnGetTrayMenu            func(tray uintptr) uintptr
	fnCreateTraySubmenu      func(entry uintptr) uintptr
	fnGetTraySubmenu         func(entry uintptr) uintptr
	fnGetTrayEntries         func(menu uintptr, count *int32) uintptr
	fnInsertTrayEntryAt      func(menu uintptr, pos int32, label *byte, flags uint32) uintptr
	fnRemoveTrayEntry        func(entry uintptr)
	fnSetTrayEntryLabel      func(entry uintptr, label *byte)
	fnGetTrayEntryLabel      func(entry uintptr) uintptr
	fnSetTrayEntryChecked    func(entry uintptr, checked bool)
	fnGetTrayEntryChecked    func(entry uintptr) bool
	fnSetTrayEntryEnabled    func(entry uintptr, enabled bool)
	fnGetTrayEntryEnabled    func(entry uintptr) bool
	fnSetTrayEntryCallback   func(entry, callback, userdata uintptr)
	fnClickTrayEntry         func(entry uintptr)
	fnGetTrayEntryParent     func(entry uintptr) uintptr
	fnGetTrayMenuParentEntry func(menu uintptr) uintptr
	fnGetTrayMenuParentTray  func(menu uintptr) uintptr
	fnUpdateTrays            func()
}

// Option configures a [Library].
type Option func(*Library)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.log = logger
	}
}

// Open loads libSDL3 from path and initialises its video subsystem. An empty
// path selects the platform's default library name.
func Open(path string, opts ...Option) (*Library, error) {
	if path == "" {
		path = defaultPath()
	}

	l := &Library{
		log:    slog.New(slog.DiscardHandler),
		pixels: make(map[native.Handle]*runtime.Pinner),
	}
	for _, opt := range opts {
		opt(l)
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load SDL from %s: %w", path, err)
	}
	l.handle = handle

	if err := l.bindAll(); err != nil {
		purego.Dlclose(handle)
		return nil, err
	}

	if !l.fnInit(initVideo) {
		msg := l.Error()
		purego.Dlclose(handle)
		return nil, fmt.Errorf("SDL_Init: %s", msg)
	}

	l.log.Debug("SDL loaded", "path", path)

	return l, nil
}

func defaultPath() string {
	if runtime.GOOS == "darwin" {
		return "libSDL3.dylib"
	}
	return "libSDL3.so.0"
}

// bind registers one entry point. RegisterLibFunc panics on a missing
// symbol, which is turned into an error.
func bind[T any](handle uintptr, fn *T, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to bind %s: %v", name, r)
		}
	}()

	purego.RegisterLibFunc(fn, handle, name)
	return nil
}

func (l *Library) bindAll() error {
	h := l.handle

	return errors.Join(
		bind(h, &l.fnInit, "SDL_Init"),
		bind(h, &l.fnQuit, "SDL_Quit"),
		bind(h, &l.fnGetError, "SDL_GetError"),
		bind(h, &l.fnCreateSurfaceFrom, "SDL_CreateSurfaceFrom"),
		bind(h, &l.fnDestroySurface, "SDL_DestroySurface"),
		bind(h, &l.fnCreateTray, "SDL_CreateTray"),
		bind(h, &l.fnDestroyTray, "SDL_DestroyTray"),
		bind(h, &l.fnSetTrayIcon, "SDL_SetTrayIcon"),
		bind(h, &l.fnSetTrayTooltip, "SDL_SetTrayTooltip"),
		bind(h, &l.fnCreateTrayMenu, "SDL_CreateTrayMenu"),
		bind(h, &l.fnGetTrayMenu, "SDL_GetTrayMenu"),
		bind(h, &l.fnCreateTraySubmenu, "SDL_CreateTraySubmenu"),
		bind(h, &l.fnGetTraySubmenu, "SDL_GetTraySubmenu"),
		bind(h, &l.fnGetTrayEntries, "SDL_GetTrayEntries"),
		bind(h, &l.fnInsertTrayEntryAt, "SDL_InsertTrayEntryAt"),
		bind(h, &l.fnRemoveTrayEntry, "SDL_RemoveTrayEntry"),
		bind(h, &l.fnSetTrayEntryLabel, "SDL_SetTrayEntryLabel"),
		bind(h, &l.fnGetTrayEntryLabel, "SDL_GetTrayEntryLabel"),
		bind(h, &l.fnSetTrayEntryChecked, "SDL_SetTrayEntryChecked"),
		bind(h, &l.fnGetTrayEntryChecked, "SDL_GetTrayEntryChecked"),
		bind(h, &l.fnSetTrayEntryEnabled, "SDL_SetTrayEntryEnabled"),
		bind(h, &l.fnGetTrayEntryEnabled, "SDL_GetTrayEntryEnabled"),
		bind(h, &l.fnSetTrayEntryCallback, "SDL_SetTrayEntryCallback"),
		bind(h, &l.fnClickTrayEntry, "SDL_ClickTrayEntry"),
		bind(h, &l.fnGetTrayEntryParent, "SDL_GetTrayEntryParent"),
		bind(h, &l.fnGetTrayMenuParentEntry, "SDL_GetTrayMenuParentEntry"),
		bind(h, &l.fnGetTrayMenuParentTray, "SDL_GetTrayMenuParentTray"),
		bind(h, &l.fnUpdateTrays, "SDL_UpdateTrays"),
	)
}

// Close shuts SDL down and unloads the library.
func (l *Library) Close() error {
	l.fnQuit()

	l.mu.Lock()
	for h, p := range l.pixels {
		p.Unpin()
		delete(l.pixels, h)
	}
	l.mu.Unlock()

	return purego.Dlclose(l.handle)
}

// Pump processes pending tray events. Entry callbacks run inside Pump.
func (l *Library) Pump() {
	l.fnUpdateTrays()
}

func (l *Library) Error() string {
	if msg := l.decodeErr; msg != "" {
		l.decodeErr = ""
		return msg
	}
	return goString(l.fnGetError())
}

// LoadSurface decodes the image at path and wraps its pixels in an SDL
// surface.
func (l *Library) LoadSurface(path string) native.Handle {
	img, err := headless.DecodeImage(path)
	if err != nil {
		l.decodeErr = err.Error()
		return 0
	}
	l.decodeErr = ""

	bounds := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	if len(rgba.Pix) == 0 {
		l.decodeErr = "Empty image " + path
		return 0
	}

	pinner := new(runtime.Pinner)
	pinner.Pin(&rgba.Pix[0])

	surface := native.Handle(l.fnCreateSurfaceFrom(
		int32(rgba.Rect.Dx()),
		int32(rgba.Rect.Dy()),
		pixelFormatRGBA32,
		uintptr(unsafe.Pointer(&rgba.Pix[0])),
		int32(rgba.Stride),
	))
	if surface.Null() {
		pinner.Unpin()
		return 0
	}

	l.mu.Lock()
	l.pixels[surface] = pinner
	l.mu.Unlock()

	return surface
}

func (l *Library) DestroySurface(surface native.Handle) {
	l.fnDestroySurface(uintptr(surface))

	l.mu.Lock()
	if p, ok := l.pixels[surface]; ok {
		p.Unpin()
		delete(l.pixels, surface)
	}
	l.mu.Unlock()
}

func (l *Library) CreateTray(icon native.Handle, tooltip *string) native.Handle {
	return native.Handle(l.fnCreateTray(uintptr(icon), cString(tooltip)))
}

func (l *Library) DestroyTray(tray native.Handle) {
	l.fnDestroyTray(uintptr(tray))
}

func (l *Library) SetTrayIcon(tray, icon native.Handle) {
	l.fnSetTrayIcon(uintptr(tray), uintptr(icon))
}

func (l *Library) SetTrayTooltip(tray native.Handle, tooltip *string) {
	l.fnSetTrayTooltip(uintptr(tray), cString(tooltip))
}

func (l *Library) CreateTrayMenu(tray native.Handle) native.Handle {
	return native.Handle(l.fnCreateTrayMenu(uintptr(tray)))
}

func (l *Library) GetTrayMenu(tray native.Handle) native.Handle {
	return native.Handle(l.fnGetTrayMenu(uintptr(tray)))
}

func (l *Library) CreateTraySubmenu(entry native.Handle) native.Handle {
	return native.Handle(l.fnCreateTraySubmenu(uintptr(entry)))
}

func (l *Library) GetTraySubmenu(entry native.Handle) native.Handle {
	return native.Handle(l.fnGetTraySubmenu(uintptr(entry)))
}

// GetTrayEntries copies the menu's entry array. The native array is only
// valid until the menu changes.
func (l *Library) GetTrayEntries(menu native.Handle) []native.Handle {
	var count int32
	arr := l.fnGetTrayEntries(uintptr(menu), &count)
	if arr == 0 || count <= 0 {
		return nil
	}

	ptrs := unsafe.Slice((*uintptr)(unsafe.Pointer(arr)), count)

	entries := make([]native.Handle, count)
	for i, p := range ptrs {
		entries[i] = native.Handle(p)
	}

	return entries
}

func (l *Library) InsertTrayEntryAt(menu native.Handle, pos int, label *string, flags native.EntryFlags) native.Handle {
	return native.Handle(l.fnInsertTrayEntryAt(uintptr(menu), int32(pos), cString(label), uint32(flags)))
}

func (l *Library) RemoveTrayEntry(entry native.Handle) {
	l.fnRemoveTrayEntry(uintptr(entry))
}

func (l *Library) SetTrayEntryLabel(entry native.Handle, label *string) {
	l.fnSetTrayEntryLabel(uintptr(entry), cString(label))
}

func (l *Library) GetTrayEntryLabel(entry native.Handle) *string {
	ptr := l.fnGetTrayEntryLabel(uintptr(entry))
	if ptr == 0 {
		return nil
	}

	label := goString(ptr)
	return &label
}

func (l *Library) SetTrayEntryChecked(entry native.Handle, checked bool) {
	l.fnSetTrayEntryChecked(uintptr(entry), checked)
}

func (l *Library) GetTrayEntryChecked(entry native.Handle) bool {
	return l.fnGetTrayEntryChecked(uintptr(entry))
}

func (l *Library) SetTrayEntryEnabled(entry native.Handle, enabled bool) {
	l.fnSetTrayEntryEnabled(uintptr(entry), enabled)
}

func (l *Library) GetTrayEntryEnabled(entry native.Handle) bool {
	return l.fnGetTrayEntryEnabled(uintptr(entry))
}

func (l *Library) NewTrampoline(fn func(entry native.Handle)) native.Trampoline {
	return slots.alloc(fn, l.log)
}

func (l *Library) FreeTrampoline(t native.Trampoline) {
	slots.free(t)
}

func (l *Library) SetTrayEntryCallback(entry native.Handle, t native.Trampoline) {
	if t == 0 {
		l.fnSetTrayEntryCallback(uintptr(entry), 0, 0)
		return
	}

	l.fnSetTrayEntryCallback(uintptr(entry), dispatcher(), uintptr(t))
}

func (l *Library) ClickTrayEntry(entry native.Handle) {
	l.fnClickTrayEntry(uintptr(entry))
}

func (l *Library) GetTrayEntryParent(entry native.Handle) native.Handle {
	return native.Handle(l.fnGetTrayEntryParent(uintptr(entry)))
}

func (l *Library) GetTrayMenuParentEntry(menu native.Handle) native.Handle {
	return native.Handle(l.fnGetTrayMenuParentEntry(uintptr(menu)))
}

func (l *Library) GetTrayMenuParentTray(menu native.Handle) native.Handle {
	return native.Handle(l.fnGetTrayMenuParentTray(uintptr(menu)))
}
