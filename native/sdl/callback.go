//go:build darwin || linux || freebsd

package sdl

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/shelepuginivan/nativetray/native"
)

// purego callbacks are never released and their number is limited, so every
// entry shares one dispatcher. The trampoline is a slot id passed to SDL as
// userdata.
var (
	dispatchOnce sync.Once
	dispatchPtr  uintptr
)

func dispatcher() uintptr {
	dispatchOnce.Do(func() {
		dispatchPtr = purego.NewCallback(dispatch)
	})
	return dispatchPtr
}

// dispatch is the SDL_TrayCallback installed on every entry.
func dispatch(userdata, entry uintptr) {
	s, ok := slots.get(native.Trampoline(userdata))
	if !ok {
		slog.Error("sdl: call through freed trampoline", "slot", userdata)
		return
	}

	s.log.Debug("tray entry clicked", "entry", entry, "slot", userdata)
	s.fn(native.Handle(entry))
}

type slot struct {
	fn  func(native.Handle)
	log *slog.Logger
}

type slotTable struct {
	mu    sync.Mutex
	next  native.Trampoline
	slots map[native.Trampoline]slot
}

var slots = &slotTable{slots: make(map[native.Trampoline]slot)}

func (t *slotTable) alloc(fn func(native.Handle), log *slog.Logger) native.Trampoline {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.slots[t.next] = slot{fn: fn, log: log}

	return t.next
}

func (t *slotTable) free(id native.Trampoline) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.slots[id]; !ok {
		panic(fmt.Sprintf("sdl: free of unknown trampoline %d", id))
	}

	delete(t.slots, id)
}

func (t *slotTable) get(id native.Trampoline) (slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[id]
	return s, ok
}

func (t *slotTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.slots)
}
