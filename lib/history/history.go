package history

import (
	"time"

	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultCoalesceWindow = 100 * time.Millisecond
	DefaultMaxSteps       = 200
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateUndoing   State = "undoing"
	StateRedoing   State = "redoing"
)

// Step is one undoable unit. Forward and Inverse are the operations that
// move the document between the Before and After snapshots.
type Step struct {
	ID         string
	Label      string
	Kind       string
	Structural bool
	Edits      int
	Timestamp  time.Time
	Before     SnapshotRef
	After      SnapshotRef
	Forward    document.Operation
	Inverse    document.Operation
}

// StepInfo is the read-only view of a step handed to callers.
type StepInfo struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Kind      string    `json:"kind"`
	Edits     int       `json:"edits"`
	Timestamp time.Time `json:"timestamp"`
	Undone    bool      `json:"undone"`
}

type Options struct {
	CoalesceWindow time.Duration
	MaxSteps       int
}

// Manager records one step per committed edit by subscribing to the
// document. Nothing else needs to remember to record history.
type Manager struct {
	document *document.Document
	hooks    *hooks.Hook
	logger   *zap.SugaredLogger
	store    *SnapshotStore

	undo  []*Step
	redo  []*Step
	state State

	window   time.Duration
	maxSteps int

	head      SnapshotRef
	selection doc.Range
	hasSel    bool
	selSource func() (doc.Range, bool)

	sealed      bool
	pending     bool
	pendingBase SnapshotRef

	now         func() time.Time
	unsubscribe func()
}

func NewManager(d *document.Document, hook *hooks.Hook, logger *zap.SugaredLogger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.CoalesceWindow < 0 {
		opts.CoalesceWindow = 0
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	m := &Manager{
		document: d,
		hooks:    hook,
		logger:   logger,
		store:    NewSnapshotStore(),
		state:    StateIdle,
		window:   opts.CoalesceWindow,
		maxSteps: opts.MaxSteps,
		now:      time.Now,
	}
	m.head = m.store.Put(Snapshot{Doc: d.Root()})
	m.unsubscribe = d.Subscribe(m.onChange)
	return m
}

// Close stops listening to the document.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetSelectionSource installs the function used to capture the selection
// after an edit.
func (m *Manager) SetSelectionSource(fn func() (doc.Range, bool)) {
	m.selSource = fn
}

// ObserveSelection records the selection the next step starts from.
func (m *Manager) ObserveSelection(r doc.Range) {
	m.selection = r
	m.hasSel = true
}

func (m *Manager) State() State {
	return m.state
}

func (m *Manager) CanUndo() bool {
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	return len(m.redo) > 0
}

// Steps lists the undo stack oldest first followed by the redo stack.
func (m *Manager) Steps() []StepInfo {
	out := make([]StepInfo, 0, len(m.undo)+len(m.redo))
	for _, s := range m.undo {
		out = append(out, s.info(false))
	}
	for i := len(m.redo) - 1; i >= 0; i-- {
		out = append(out, m.redo[i].info(true))
	}
	return out
}

func (m *Manager) Snapshot(ref SnapshotRef) (Snapshot, bool) {
	return m.store.Get(ref)
}

func (s *Step) info(undone bool) StepInfo {
	return StepInfo{
		ID:        s.ID,
		Label:     s.Label,
		Kind:      s.Kind,
		Edits:     s.Edits,
		Timestamp: s.Timestamp,
		Undone:    undone,
	}
}

func (m *Manager) onChange(result *document.EditResult) {
	switch result.Origin {
	case document.OriginHistory:
		return
	case document.OriginSystem:
		if !m.pending {
			m.pending = true
			m.pendingBase = m.head
			m.store.Retain(m.head)
		}
		m.moveHead(m.store.Put(Snapshot{Doc: result.Doc}))
		return
	}
	if m.pending {
		m.flushPending(document.KindRestore)
	}
	m.state = StateRecording
	defer func() { m.state = StateIdle }()

	before := m.beforeRef()
	after := m.store.Put(m.afterSnapshot(result))

	if top := m.coalesceTarget(result); top != nil {
		m.store.Release(before)
		m.store.Release(top.After)
		top.After = after
		top.Forward = concat(top.Forward, result.Forward)
		top.Inverse = concat(result.Inverse, top.Inverse)
		top.Timestamp = result.Timestamp
		top.Edits++
		m.store.Retain(after)
		m.moveHead(after)
		m.clearRedo()
		m.emit(top, events.HistoryCoalesced)
		return
	}

	step := &Step{
		ID:         uuid.NewString(),
		Label:      result.Label,
		Kind:       result.Kind,
		Structural: result.Structural,
		Edits:      1,
		Timestamp:  result.Timestamp,
		Before:     before,
		After:      after,
		Forward:    result.Forward,
		Inverse:    result.Inverse,
	}
	m.store.Retain(after)
	m.moveHead(after)
	m.push(step)
	m.logger.Debugw("history step recorded", "document", m.document.ID(), "label", step.Label)
	m.emit(step, events.HistoryRecorded)
}

// Record closes the current step: edits issued after it never coalesce into
// earlier ones. Unrecorded system edits become one step under label, which
// is returned; otherwise Record returns nil.
func (m *Manager) Record(label string) *Step {
	m.sealed = true
	if !m.pending {
		return nil
	}
	return m.flushPending(label)
}

func (m *Manager) flushPending(label string) *Step {
	base, _ := m.store.Get(m.pendingBase)
	head, _ := m.store.Get(m.head)
	step := &Step{
		ID:         uuid.NewString(),
		Label:      label,
		Kind:       document.KindRestore,
		Structural: true,
		Edits:      1,
		Timestamp:  m.now(),
		Before:     m.pendingBase,
		After:      m.head,
		Forward:    document.Restore{Doc: head.Doc},
		Inverse:    document.Restore{Doc: base.Doc},
	}
	m.store.Retain(m.head)
	m.pending = false
	m.pendingBase = ""
	m.push(step)
	m.emit(step, events.HistoryRecorded)
	return step
}

func (m *Manager) beforeRef() SnapshotRef {
	head, _ := m.store.Get(m.head)
	if m.hasSel && (!head.HasSelection || !head.Selection.From.Equal(m.selection.From) || !head.Selection.To.Equal(m.selection.To)) {
		return m.store.Put(Snapshot{Doc: head.Doc, Selection: m.selection, HasSelection: true})
	}
	m.store.Retain(m.head)
	return m.head
}

func (m *Manager) afterSnapshot(result *document.EditResult) Snapshot {
	s := Snapshot{Doc: result.Doc}
	if m.selSource != nil {
		s.Selection, s.HasSelection = m.selSource()
	}
	if !s.HasSelection {
		s.Selection = doc.Cursor(result.After.To)
		s.HasSelection = true
	}
	m.selection, m.hasSel = s.Selection, true
	return s
}

func (m *Manager) coalesceTarget(result *document.EditResult) *Step {
	if m.sealed {
		m.sealed = false
		return nil
	}
	if len(m.undo) == 0 || len(m.redo) > 0 || m.window == 0 {
		return nil
	}
	top := m.undo[len(m.undo)-1]
	if top.Structural || result.Structural || top.Kind != result.Kind || top.Label != result.Label {
		return nil
	}
	if result.Timestamp.Sub(top.Timestamp) > m.window {
		return nil
	}
	return top
}

func (m *Manager) push(step *Step) {
	m.clearRedo()
	m.sealed = false
	m.undo = append(m.undo, step)
	for len(m.undo) > m.maxSteps {
		m.release(m.undo[0])
		m.undo = m.undo[1:]
	}
}

func (m *Manager) clearRedo() {
	for _, s := range m.redo {
		m.release(s)
	}
	m.redo = nil
}

func (m *Manager) release(s *Step) {
	m.store.Release(s.Before)
	m.store.Release(s.After)
}

func (m *Manager) moveHead(ref SnapshotRef) {
	m.store.Release(m.head)
	m.head = ref
}

// Undo reverts the latest step and returns it. The returned step's Before
// snapshot holds the selection to restore.
func (m *Manager) Undo() (*Step, error) {
	if m.state != StateIdle {
		return nil, exception.NewHistoryBusyError(string(m.state))
	}
	if len(m.undo) == 0 {
		return nil, exception.NewInvalidOperationError("nothing to undo")
	}
	if m.pending {
		m.flushPending(document.KindRestore)
	}
	step := m.undo[len(m.undo)-1]
	m.state = StateUndoing
	defer func() { m.state = StateIdle }()

	if err := m.travel(step.Inverse, step.Before, "undo"); err != nil {
		return nil, err
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, step)
	m.sealed = true
	m.emit(step, events.HistoryUndone)
	return step, nil
}

func (m *Manager) Redo() (*Step, error) {
	if m.state != StateIdle {
		return nil, exception.NewHistoryBusyError(string(m.state))
	}
	if len(m.redo) == 0 {
		return nil, exception.NewInvalidOperationError("nothing to redo")
	}
	step := m.redo[len(m.redo)-1]
	m.state = StateRedoing
	defer func() { m.state = StateIdle }()

	if err := m.travel(step.Forward, step.After, "redo"); err != nil {
		return nil, err
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, step)
	m.sealed = true
	m.emit(step, events.HistoryRedone)
	return step, nil
}

// travel applies op and checks the result against the target snapshot. When
// the operations no longer reproduce it exactly, the snapshot is restored.
func (m *Manager) travel(op document.Operation, target SnapshotRef, label string) error {
	snapshot, ok := m.store.Get(target)
	if !ok {
		return exception.NewInvalidOperationError("history snapshot %s is gone", target)
	}
	_, err := m.document.ApplyEdit(op, document.WithOrigin(document.OriginHistory), document.WithLabel(label))
	if err != nil || !m.document.Root().Equal(snapshot.Doc) {
		m.logger.Infow("history replay diverged, restoring snapshot", "document", m.document.ID(), "label", label, "error", err)
		if _, err := m.document.ApplyEdit(document.Restore{Doc: snapshot.Doc}, document.WithOrigin(document.OriginHistory), document.WithLabel(label)); err != nil {
			return err
		}
	}
	m.store.Retain(target)
	m.moveHead(target)
	if snapshot.HasSelection {
		m.selection, m.hasSel = snapshot.Selection, true
	}
	return nil
}

func (m *Manager) emit(step *Step, action string) {
	if m.hooks == nil {
		return
	}
	m.hooks.ExecuteHistoryChangedHooks(&events.HistoryChanged{
		DocumentID: m.document.ID(),
		StepID:     step.ID,
		Label:      step.Label,
		Action:     action,
		CanUndo:    m.CanUndo(),
		CanRedo:    m.CanRedo(),
	})
}

func concat(a, b document.Operation) document.Operation {
	var ops []document.Operation
	for _, op := range []document.Operation{a, b} {
		if seq, ok := op.(document.Sequence); ok {
			ops = append(ops, seq.Ops...)
			continue
		}
		ops = append(ops, op)
	}
	return document.Sequence{Ops: ops}
}
