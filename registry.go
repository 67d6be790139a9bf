package nativetray

import (
	"github.com/shelepuginivan/nativetray/native"
)

// Callback is called when an entry is clicked. userdata is the value given
// when the callback was registered.
//
// Callbacks run on the goroutine that owns the tray, nested inside the call
// that delivered the click ([Entry.Click] or the backend event pump).
type Callback func(entry *Entry, userdata any)

// registration binds an entry to its trampoline.
type registration struct {
	trampoline native.Trampoline
	callback   Callback
	userdata   any
}

// registry holds the trampolines of one tray, at most one per entry.
type registry struct {
	lib     native.Library
	records map[native.Handle]*registration
}

func newRegistry(lib native.Library) *registry {
	return &registry{
		lib:     lib,
		records: make(map[native.Handle]*registration),
	}
}

// register installs cb for entry. A trampoline already registered for entry
// is retired before the new one is allocated. invoke is called by the
// trampoline with the record it belongs to.
func (r *registry) register(entry native.Handle, cb Callback, userdata any, invoke func(native.Handle, *registration)) {
	r.retire(entry, true)

	rec := &registration{
		callback: cb,
		userdata: userdata,
	}
	rec.trampoline = r.lib.NewTrampoline(func(h native.Handle) {
		invoke(h, rec)
	})

	r.lib.SetTrayEntryCallback(entry, rec.trampoline)
	r.records[entry] = rec
}

// retire frees the trampoline of entry, if any. When detach is set the
// native callback is cleared first; it must be false once the entry has been
// freed natively.
func (r *registry) retire(entry native.Handle, detach bool) bool {
	rec, ok := r.records[entry]
	if !ok {
		return false
	}

	if detach {
		r.lib.SetTrayEntryCallback(entry, 0)
	}

	r.lib.FreeTrampoline(rec.trampoline)
	delete(r.records, entry)

	return true
}

// retireAll frees every trampoline. The entries are assumed to be freed
// already.
func (r *registry) retireAll() int {
	n := len(r.records)

	for entry := range r.records {
		r.retire(entry, false)
	}

	return n
}

func (r *registry) len() int {
	return len(r.records)
}
