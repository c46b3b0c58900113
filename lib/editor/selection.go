package editor

import (
	"github.com/ether/etherdoc/lib/anchor"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
)

// SetSelection moves the selection and gives the session focus.
func (e *Editor) SetSelection(r doc.Range) error {
	return e.run(func() error {
		if !r.Valid() {
			return exception.NewInvalidRangeError("range %s is reversed", r)
		}
		if _, err := e.document.AnchorRangeOf(r, doc.StickLeft, doc.StickRight); err != nil {
			return err
		}
		e.focused = true
		e.setSelection(r)
		return nil
	})
}

// Blur drops focus. Progress of the empty-item exit is forgotten.
func (e *Editor) Blur() {
	_ = e.run(func() error {
		e.focused = false
		e.machine.Reset()
		e.emitSelection(e.selection())
		return nil
	})
}

func (e *Editor) Selection() doc.Range {
	var r doc.Range
	e.read(func() { r = e.selection() })
	return r
}

func (e *Editor) Focused() bool {
	var ok bool
	e.read(func() { ok = e.focused })
	return ok
}

// setSelection tracks r and notifies the machine, history and host. A range
// that no longer resolves falls back to the document start.
func (e *Editor) setSelection(r doc.Range) {
	if !e.trackSelection(r) {
		r = doc.Cursor(e.documentStart())
		e.trackSelection(r)
	}
	e.machine.Observe(e.document.Root(), r)
	e.history.ObserveSelection(r)
	e.emitSelection(r)
}

func (e *Editor) trackSelection(r doc.Range) bool {
	policy := anchor.SelectionPolicy
	if r.IsEmpty() {
		// A cursor follows text typed at it.
		policy = anchor.Policy{From: doc.StickRight, To: doc.StickRight}
	}
	ar, err := e.document.AnchorRangeOf(r, policy.From, policy.To)
	if err != nil {
		return false
	}
	e.resolver.Track(selectionKey, ar)
	return true
}

func (e *Editor) emitSelection(r doc.Range) {
	e.bus.ExecuteSelectionChangedHooks(&events.SelectionChanged{
		DocumentID: e.document.ID(),
		Selection:  r,
		Focused:    e.focused,
	})
}

func (e *Editor) currentSelection() (doc.Range, bool) {
	t, ok := e.resolver.Get(selectionKey)
	if !ok {
		return doc.Range{}, false
	}
	return e.document.RangeOf(t.Range)
}

func (e *Editor) selection() doc.Range {
	if r, ok := e.currentSelection(); ok {
		return r
	}
	return doc.Cursor(e.documentStart())
}

// collapse turns the selection into a cursor at its end.
func (e *Editor) collapse() {
	r := e.selection()
	e.setSelection(doc.Cursor(r.To))
}

func (e *Editor) documentStart() doc.Position {
	blocks := e.document.Root().Textblocks()
	if len(blocks) == 0 {
		return doc.Position{}
	}
	return doc.Position{Path: doc.ClonePath(blocks[0].Path)}
}
