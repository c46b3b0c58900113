package editor

import (
	"sync"

	"github.com/ether/etherdoc/lib/anchor"
	"github.com/ether/etherdoc/lib/comments"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/history"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/lists"
	"github.com/ether/etherdoc/lib/models/doc"
	"go.uber.org/zap"
)

const selectionKey = "selection"

// Labels of the edits issued for host requests.
const (
	LabelInsertImage    = "insertImage"
	LabelResizeImage    = "resizeImage"
	LabelCellAlignment  = "setCellAlignment"
	LabelCellBackground = "setCellBackground"
	LabelCreateTable    = "createTable"
	LabelToggleList     = "toggleList"
	LabelToggleMark     = "toggleMark"
	LabelSetLink        = "setLink"
	LabelSetContent     = "setContent"
	LabelApplyOperation = "applyOperation"
)

// ImageMeasurer reports the rendered size of an image source.
type ImageMeasurer interface {
	Measure(src string) (width, height int, err error)
}

type Options struct {
	Lists    lists.Options
	History  history.Options
	Measurer ImageMeasurer
}

// Editor is one editing session on a document. Every entry point holds the
// session lock; events are delivered to the host after it is released, and
// deferred tasks run after that.
type Editor struct {
	mu sync.Mutex

	document   *document.Document
	resolver   *anchor.Resolver
	comments   *comments.Manager
	history    *history.Manager
	machine    *lists.Machine
	highlights *anchor.Highlights
	measurer   ImageMeasurer

	bus    *hooks.Hook
	hooks  *hooks.Hook
	logger *zap.SugaredLogger

	focused  bool
	outbox   []func()
	deferred []func()
	detach   []func()
}

// New wires the subsystems of one session around d. Events are published
// on hook, which may be nil.
func New(d *document.Document, hook *hooks.Hook, logger *zap.SugaredLogger, opts Options) *Editor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	e := &Editor{
		document: d,
		bus:      hooks.NewHook(),
		hooks:    hook,
		logger:   logger,
		measurer: opts.Measurer,
	}
	for _, key := range []string{
		hooks.DocumentChangedHook,
		hooks.SelectionChangedHook,
		hooks.CommentChangedHook,
		hooks.HistoryChangedHook,
		hooks.AnchorDegradedHook,
	} {
		key := key
		e.bus.EnqueueHook(key, func(ctx any) {
			if e.hooks == nil {
				return
			}
			e.outbox = append(e.outbox, func() { e.hooks.ExecuteHooks(key, ctx) })
		})
	}

	e.resolver = anchor.NewResolver(d.ID(), e.bus, logger)
	e.detach = append(e.detach, e.resolver.Attach(d))
	e.history = history.NewManager(d, e.bus, logger, opts.History)
	e.history.SetSelectionSource(e.currentSelection)
	e.comments = comments.NewManager(d, e.resolver, e.bus, logger)
	e.machine = lists.NewMachine(opts.Lists, logger)
	e.highlights = anchor.NewHighlights(e.resolver)
	e.detach = append(e.detach, d.Subscribe(e.onChange))

	e.trackSelection(doc.Cursor(e.documentStart()))
	e.history.ObserveSelection(doc.Cursor(e.documentStart()))
	return e
}

// Close detaches the session from its document.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comments.Close()
	e.history.Close()
	for _, fn := range e.detach {
		fn()
	}
	e.detach = nil
}

func (e *Editor) Document() *document.Document {
	return e.document
}

func (e *Editor) Comments() *comments.Manager {
	return e.comments
}

func (e *Editor) History() *history.Manager {
	return e.history
}

// Defer queues fn to run once the current entry point has released the
// session. fn must re-validate whatever it acts on.
func (e *Editor) Defer(fn func()) {
	e.deferred = append(e.deferred, fn)
}

// run executes fn under the session lock and then flushes events and
// deferred tasks.
func (e *Editor) run(fn func() error) error {
	e.mu.Lock()
	var err error
	if state := e.history.State(); state != history.StateIdle {
		err = exception.NewHistoryBusyError(string(state))
	} else {
		err = fn()
	}
	outbox := e.outbox
	deferred := e.deferred
	e.outbox = nil
	e.deferred = nil
	e.mu.Unlock()

	for _, send := range outbox {
		send()
	}
	for _, task := range deferred {
		task()
	}
	return err
}

func (e *Editor) read(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

func (e *Editor) onChange(result *document.EditResult) {
	e.machine.Observe(result.Doc, e.selection())
	e.bus.ExecuteDocumentChangedHooks(&events.DocumentChanged{
		DocumentID: result.DocumentID,
		Version:    result.Version,
		Label:      result.Label,
		Kind:       result.Kind,
		Origin:     string(result.Origin),
		Structural: result.Structural,
		Before:     result.Before,
		After:      result.After,
		Diff:       result.Diff,
		Timestamp:  result.Timestamp,
	})
}

// apply commits a user edit and logs rejections.
func (e *Editor) apply(op document.Operation, label string, structural bool) (*document.EditResult, error) {
	result, err := e.document.ApplyEdit(op, document.WithLabel(label), document.Structural(structural))
	if err != nil {
		e.logger.Debugw("editor request rejected", "document", e.document.ID(), "label", label, "error", err)
		return nil, err
	}
	return result, nil
}

// ApplyOperation commits a raw operation on behalf of the host.
func (e *Editor) ApplyOperation(op document.Operation, label string) (*document.EditResult, error) {
	if label == "" {
		label = LabelApplyOperation
	}
	var result *document.EditResult
	err := e.run(func() error {
		var err error
		result, err = e.document.ApplyEdit(op, document.WithLabel(label))
		return err
	})
	return result, err
}

// SetContent replaces the whole document, e.g. after an import. The
// replacement is one undoable step.
func (e *Editor) SetContent(root *doc.Node, label string) error {
	if label == "" {
		label = LabelSetContent
	}
	return e.run(func() error {
		if _, err := e.document.ApplyEdit(document.Restore{Doc: root}, document.WithOrigin(document.OriginSystem), document.WithLabel(label)); err != nil {
			return err
		}
		e.history.Record(label)
		e.machine.Reset()
		e.setSelection(doc.Cursor(e.documentStart()))
		return nil
	})
}

func (e *Editor) Undo() error {
	return e.run(func() error {
		step, err := e.history.Undo()
		if err != nil {
			return err
		}
		e.restoreSelection(step.Before)
		return nil
	})
}

func (e *Editor) Redo() error {
	return e.run(func() error {
		step, err := e.history.Redo()
		if err != nil {
			return err
		}
		e.restoreSelection(step.After)
		return nil
	})
}

func (e *Editor) restoreSelection(ref history.SnapshotRef) {
	e.machine.Reset()
	if snapshot, ok := e.history.Snapshot(ref); ok && snapshot.HasSelection {
		e.setSelection(snapshot.Selection)
		return
	}
	e.setSelection(e.selection())
}

func (e *Editor) CanUndo() bool {
	var ok bool
	e.read(func() { ok = e.history.CanUndo() })
	return ok
}

func (e *Editor) CanRedo() bool {
	var ok bool
	e.read(func() { ok = e.history.CanRedo() })
	return ok
}

func (e *Editor) Steps() []history.StepInfo {
	var steps []history.StepInfo
	e.read(func() { steps = e.history.Steps() })
	return steps
}

// Snapshot returns a copy of the current tree.
func (e *Editor) Snapshot() *doc.Node {
	var root *doc.Node
	e.read(func() { root = e.document.Snapshot() })
	return root
}

func (e *Editor) Version() int {
	var v int
	e.read(func() { v = e.document.Version() })
	return v
}
