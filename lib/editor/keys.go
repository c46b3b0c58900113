package editor

import (
	"strings"

	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/lists"
	"github.com/ether/etherdoc/lib/models/doc"
)

const (
	KeyTab       = "Tab"
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
)

type KeyEvent struct {
	Key   string `json:"key" validate:"required"`
	Shift bool   `json:"shift"`
}

// KeyResult tells the host whether the key was consumed. PreventDefault is
// set for every intercepted key, including the ones that changed nothing.
type KeyResult struct {
	Handled        bool   `json:"handled"`
	PreventDefault bool   `json:"preventDefault"`
	Label          string `json:"label,omitempty"`
}

// HandleKey runs Tab, Shift+Tab, Enter and Backspace through the list
// machine. Other keys are left to the host.
func (e *Editor) HandleKey(ev KeyEvent) (KeyResult, error) {
	var res KeyResult
	err := e.run(func() error {
		root := e.document.Root()
		sel := e.selection()

		var t lists.Transition
		switch ev.Key {
		case KeyTab:
			if ev.Shift {
				t = e.machine.ShiftTab(root, sel)
			} else {
				t = e.machine.Tab(root, sel)
			}
		case KeyEnter:
			t = e.machine.Enter(root, sel)
		case KeyBackspace:
			t = e.machine.Backspace(root, sel)
		default:
			return nil
		}
		if !t.Handled {
			return nil
		}
		res = KeyResult{Handled: true, PreventDefault: true, Label: t.Kind}
		if t.Op == nil {
			return nil
		}

		opts := []document.EditOption{document.WithLabel(t.Kind)}
		if t.Kind != lists.KindDeleteBackward && t.Kind != lists.KindDeleteSelection {
			opts = append(opts, document.Structural(true))
		}
		if _, err := e.document.ApplyEdit(t.Op, opts...); err != nil {
			e.logger.Debugw("key transition rejected", "document", e.document.ID(), "key", ev.Key, "kind", t.Kind, "error", err)
			return err
		}
		if ev.Key != KeyTab {
			e.collapse()
		}
		return nil
	})
	return res, err
}

// InsertText types text at the selection, replacing selected content. Line
// breaks split the current block the way Enter does.
func (e *Editor) InsertText(text string) error {
	if text == "" {
		return nil
	}
	return e.run(func() error {
		sel := e.selection()
		marks, err := e.document.MarksAt(sel.From)
		if err != nil {
			return err
		}
		var ops []document.Operation
		if !sel.IsEmpty() {
			ops = append(ops, document.DeleteRange{Range: sel})
		}
		at := doc.Position{Path: doc.ClonePath(sel.From.Path), Offset: sel.From.Offset}
		inItem := listItemPath(e.document.Root(), at.Path) != nil
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				ops = append(ops, splitAt(at, inItem)...)
				at = doc.Position{Path: nextBlock(at.Path, inItem)}
			}
			if line != "" {
				ops = append(ops, document.InsertText{At: at, Text: line, Marks: marks})
				at.Offset += len([]rune(line))
			}
		}
		e.machine.Reset()

		var op document.Operation
		if len(ops) == 1 {
			op = ops[0]
		} else {
			op = document.Sequence{Ops: ops}
		}
		if _, err := e.document.ApplyEdit(op, document.WithLabel(document.KindInsertText)); err != nil {
			return err
		}
		e.setSelection(doc.Cursor(e.selection().To))
		return nil
	})
}

// splitAt breaks the block at p, and its list item when inItem is set.
func splitAt(p doc.Position, inItem bool) []document.Operation {
	ops := []document.Operation{document.SplitNode{Path: doc.ClonePath(p.Path), Offset: p.Offset}}
	if inItem {
		item := doc.ClonePath(p.Path[:len(p.Path)-1])
		ops = append(ops, document.SplitNode{Path: item, Offset: p.Path[len(p.Path)-1] + 1})
	}
	return ops
}

// nextBlock is the path of the block created by splitAt.
func nextBlock(path []int, inItem bool) []int {
	if inItem {
		next := doc.ClonePath(path[:len(path)-1])
		next[len(next)-1]++
		return append(next, 0)
	}
	next := doc.ClonePath(path)
	next[len(next)-1]++
	return next
}

func listItemPath(root *doc.Node, path []int) []int {
	if len(path) < 2 {
		return nil
	}
	parent := doc.ClonePath(path[:len(path)-1])
	if n := root.NodeAt(parent); n != nil && n.Type == doc.TypeListItem {
		return parent
	}
	return nil
}
