package lists

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/models/doc"
	"go.uber.org/zap"
)

// Transition kinds. Each one is recorded as its own history step.
const (
	KindListSink        = "listSink"
	KindListLift        = "listLift"
	KindListExit        = "listExit"
	KindIndent          = "indent"
	KindOutdent         = "outdent"
	KindSplitBlock      = "splitBlock"
	KindJoinBlocks      = "joinBlocks"
	KindDeleteSelection = "deleteSelection"
	KindDeleteBackward  = "deleteBackward"
)

const (
	DefaultIndentStep = 40
	DefaultIndentUnit = "px"
)

// Transition is the answer of the machine to one key. Handled means the key
// must not reach the host; Op is nil when nothing has to change.
type Transition struct {
	Kind    string
	Op      document.Operation
	Handled bool
}

type Options struct {
	IndentStep int
	IndentUnit string
}

// Machine turns Tab, Shift-Tab, Enter and Backspace into edits. The only
// state it keeps is the progress of the empty-item exit on the item the
// cursor is in.
type Machine struct {
	step   int
	unit   string
	logger *zap.SugaredLogger

	stageItem string
	stage     int
}

func NewMachine(opts Options, logger *zap.SugaredLogger) *Machine {
	if opts.IndentStep <= 0 {
		opts.IndentStep = DefaultIndentStep
	}
	if opts.IndentUnit == "" {
		opts.IndentUnit = DefaultIndentUnit
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Machine{step: opts.IndentStep, unit: opts.IndentUnit, logger: logger}
}

// Reset forgets the exit progress, e.g. when the editor loses focus.
func (m *Machine) Reset() {
	m.stageItem = ""
	m.stage = 0
}

// Observe resets the exit progress when the selection is no longer in the
// item it was recorded for.
func (m *Machine) Observe(root *doc.Node, sel doc.Range) {
	if m.stageItem == "" {
		return
	}
	c, ok := locate(root, sel.From)
	if !ok || c.item == nil || c.item.ID != m.stageItem || !sel.IsEmpty() {
		m.Reset()
	}
}

func (m *Machine) Tab(root *doc.Node, sel doc.Range) Transition {
	c, ok := locate(root, sel.From)
	if !ok {
		return Transition{}
	}
	m.Reset()
	if c.item != nil {
		// An empty item has nothing to nest yet; Enter or Backspace move it.
		if c.block.IsEmptyTextblock() {
			return Transition{Kind: KindListSink, Handled: true}
		}
		return Transition{Kind: KindListSink, Op: sink(c), Handled: true}
	}
	return Transition{Kind: KindIndent, Op: m.indent(root, sel, m.step), Handled: true}
}

func (m *Machine) ShiftTab(root *doc.Node, sel doc.Range) Transition {
	c, ok := locate(root, sel.From)
	if !ok {
		return Transition{}
	}
	m.Reset()
	if c.item != nil {
		if !c.outdentable {
			return Transition{Kind: KindListLift, Handled: true}
		}
		return Transition{Kind: KindListLift, Op: outdent(root, c), Handled: true}
	}
	return Transition{Kind: KindOutdent, Op: m.indent(root, sel, -m.step), Handled: true}
}

func (m *Machine) Enter(root *doc.Node, sel doc.Range) Transition {
	c, ok := locate(root, sel.From)
	if !ok {
		return Transition{}
	}
	if sel.IsEmpty() && c.emptyItem() {
		return m.progress(root, c)
	}
	m.Reset()

	var ops []document.Operation
	if !sel.IsEmpty() {
		ops = append(ops, document.DeleteRange{Range: sel})
	}
	ops = append(ops, document.SplitNode{Path: doc.ClonePath(c.blockPath), Offset: c.offset})
	if c.item != nil {
		ops = append(ops, document.SplitNode{Path: doc.ClonePath(c.itemPath), Offset: c.blockIndex() + 1})
	}
	return Transition{Kind: KindSplitBlock, Op: sequence(ops), Handled: true}
}

func (m *Machine) Backspace(root *doc.Node, sel doc.Range) Transition {
	c, ok := locate(root, sel.From)
	if !ok {
		return Transition{}
	}
	if !sel.IsEmpty() {
		m.Reset()
		return Transition{Kind: KindDeleteSelection, Op: document.DeleteRange{Range: sel}, Handled: true}
	}
	if c.offset > 0 {
		m.Reset()
		r := doc.Range{From: doc.Position{Path: doc.ClonePath(c.blockPath), Offset: c.offset - 1}, To: sel.From}
		return Transition{Kind: KindDeleteBackward, Op: document.DeleteRange{Range: r}, Handled: true}
	}
	if c.emptyItem() {
		return m.progress(root, c)
	}
	m.Reset()
	if c.item != nil && c.blockIndex() == 0 {
		if c.outdentable {
			return Transition{Kind: KindListLift, Op: outdent(root, c), Handled: true}
		}
		return Transition{Kind: KindListExit, Op: exit(c), Handled: true}
	}
	if c.item == nil && m.margin(c.block) > 0 {
		return Transition{Kind: KindOutdent, Op: m.indent(root, sel, -m.step), Handled: true}
	}
	return Transition{Kind: KindJoinBlocks, Op: joinBackward(root, c), Handled: true}
}

// progress runs the empty-item exit: the first press outdents a nested item,
// the next one on the same item leaves the list.
func (m *Machine) progress(root *doc.Node, c *cursor) Transition {
	if m.stageItem != c.item.ID {
		m.stageItem = c.item.ID
		m.stage = 0
	}
	m.stage++
	if m.stage == 1 && c.outdentable {
		m.logger.Debugw("empty list item outdented", "item", c.item.ID, "level", c.level)
		return Transition{Kind: KindListLift, Op: outdent(root, c), Handled: true}
	}
	m.Reset()
	return Transition{Kind: KindListExit, Op: exit(c), Handled: true}
}

func (m *Machine) margin(n *doc.Node) int {
	v := strings.TrimSpace(strings.TrimSuffix(n.Attr(doc.AttrMarginLeft), m.unit))
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0
	}
	return i
}

// indent shifts the margin of every plain textblock in sel by delta. A
// margin that reaches zero is removed.
func (m *Machine) indent(root *doc.Node, sel doc.Range, delta int) document.Operation {
	var ops []document.Operation
	for _, b := range root.Textblocks() {
		pos := doc.Position{Path: b.Path}
		if !sel.From.SameBlock(pos) && (pos.Compare(sel.From) < 0 || pos.Compare(sel.To) > 0) {
			continue
		}
		if inListItem(root, b.Path) {
			continue
		}
		current := m.margin(b.Node)
		next := max(current+delta, 0)
		if next == current {
			continue
		}
		value := ""
		if next > 0 {
			value = fmt.Sprintf("%d%s", next, m.unit)
		}
		ops = append(ops, document.SetNodeAttrs{
			Path:  doc.ClonePath(b.Path),
			Attrs: map[string]string{doc.AttrMarginLeft: value},
		})
	}
	return sequence(ops)
}

func sequence(ops []document.Operation) document.Operation {
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	}
	return document.Sequence{Ops: ops}
}
