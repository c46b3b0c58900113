package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Listener receives exactly one call per successful ApplyEdit.
type Listener func(result *EditResult)

type listenerEntry struct {
	id int
	fn Listener
}

// Document owns the tree. ApplyEdit is the only way to mutate it; every
// other component reads through the accessors or the EditResult it is
// handed.
type Document struct {
	id        string
	root      *doc.Node
	version   int
	listeners []listenerEntry
	nextID    int
	notifying bool
	logger    *zap.SugaredLogger
	now       func() time.Time
}

type transaction struct {
	root      *doc.Node
	diff      doc.Diff
	before    doc.Range
	after     doc.Range
	hasBefore bool
	hasAfter  bool
	issued    map[string]struct{}
}

// newID derives a node ID from seed that is unused in the transaction tree.
// IDs depend only on the seed and the tree, so replaying an operation on the
// same tree recreates the same nodes.
func (tx *transaction) newID(seed string) string {
	if tx.issued == nil {
		tx.issued = make(map[string]struct{})
	}
	for i := 0; ; i++ {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", seed, i))).String()
		if _, taken := tx.issued[id]; taken {
			continue
		}
		if n, _ := tx.root.FindByID(id); n != nil {
			continue
		}
		tx.issued[id] = struct{}{}
		return id
	}
}

func (tx *transaction) ensureIDs(nodes []*doc.Node, seed string) {
	for _, n := range nodes {
		n.Walk(func(node *doc.Node, _ []int) bool {
			if node.Type != doc.TypeTextRun && node.ID == "" {
				node.ID = tx.newID(seed)
			}
			return true
		})
	}
}

func (tx *transaction) touchBefore(r doc.Range, ok bool) {
	if ok && !tx.hasBefore {
		tx.before, tx.hasBefore = r, true
	}
}

func (tx *transaction) touchAfter(r doc.Range, ok bool) {
	if ok {
		tx.after, tx.hasAfter = r, true
	}
}

// New creates a document around root. A nil root yields an empty document.
// The tree is copied, normalized and given IDs where missing.
func New(id string, root *doc.Node, logger *zap.SugaredLogger) (*Document, error) {
	if root == nil {
		root = doc.NewDocument()
	}
	root = root.Clone()
	ensureIDs([]*doc.Node{root})
	doc.Normalize(root)
	if err := doc.Check(root); err != nil {
		return nil, exception.NewInvalidOperationError("invalid document: %v", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Document{
		id:     id,
		root:   root,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (d *Document) ID() string {
	return d.id
}

func (d *Document) Version() int {
	return d.version
}

// Root exposes the committed tree. Callers must not mutate it.
func (d *Document) Root() *doc.Node {
	return d.root
}

// Snapshot returns a deep copy of the committed tree.
func (d *Document) Snapshot() *doc.Node {
	return d.root.Clone()
}

func (d *Document) SetClock(now func() time.Time) {
	d.now = now
}

// Subscribe registers a listener and returns a function removing it.
// Listeners run in registration order.
func (d *Document) Subscribe(fn Listener) func() {
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		for i, l := range d.listeners {
			if l.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

// ApplyEdit applies op atomically. On error the tree is untouched and no
// notification is sent.
func (d *Document) ApplyEdit(op Operation, opts ...EditOption) (*EditResult, error) {
	if op == nil {
		return nil, exception.NewInvalidOperationError("no operation given")
	}
	if d.notifying {
		return nil, exception.NewInvalidOperationError("edit issued while a change notification is in flight")
	}
	options := editOptions{origin: OriginUser}
	for _, o := range opts {
		o(&options)
	}

	tx := &transaction{root: d.root.Clone()}
	inverse, err := op.apply(tx)
	if err != nil {
		d.logger.Debugw("edit rejected", "document", d.id, "kind", op.Kind(), "error", err)
		return nil, err
	}
	doc.Normalize(tx.root)
	if err := doc.Check(tx.root); err != nil {
		d.logger.Debugw("edit produced invalid tree", "document", d.id, "kind", op.Kind(), "error", err)
		appErr := exception.NewInvalidOperationError("%s would break document structure", op.Kind())
		appErr.Cause = err
		return nil, appErr
	}

	d.root = tx.root
	d.version++

	structural := IsStructural(op)
	if options.structural != nil {
		structural = *options.structural
	}
	label := options.label
	if label == "" {
		label = op.Kind()
	}
	result := &EditResult{
		DocumentID: d.id,
		Version:    d.version,
		Label:      label,
		Kind:       op.Kind(),
		Structural: structural,
		Origin:     options.origin,
		Timestamp:  d.now(),
		Before:     tx.before,
		After:      tx.after,
		Diff:       tx.diff,
		Forward:    op,
		Inverse:    inverse,
		Doc:        d.root,
	}
	d.notify(result)
	return result, nil
}

func (d *Document) notify(result *EditResult) {
	d.notifying = true
	defer func() { d.notifying = false }()
	listeners := make([]listenerEntry, len(d.listeners))
	copy(listeners, d.listeners)
	for _, l := range listeners {
		l.fn(result)
	}
}

// AnchorOf converts a position into an identity based anchor.
func (d *Document) AnchorOf(p doc.Position, bias doc.Bias) (doc.Anchor, error) {
	block, err := textblockAt(d.root, p)
	if err != nil {
		return doc.Anchor{}, err
	}
	return doc.Anchor{BlockID: block.ID, Offset: p.Offset, Bias: bias}, nil
}

// AnchorRangeOf anchors both ends of r with the given biases.
func (d *Document) AnchorRangeOf(r doc.Range, fromBias, toBias doc.Bias) (doc.AnchorRange, error) {
	if !r.Valid() {
		return doc.AnchorRange{}, exception.NewInvalidRangeError("range %s is reversed", r)
	}
	from, err := d.AnchorOf(r.From, fromBias)
	if err != nil {
		return doc.AnchorRange{}, err
	}
	to, err := d.AnchorOf(r.To, toBias)
	if err != nil {
		return doc.AnchorRange{}, err
	}
	return doc.AnchorRange{From: from, To: to}, nil
}

// PositionOf resolves an anchor in the current tree. The offset is clamped
// to the block size. ok is false when the block no longer exists.
func (d *Document) PositionOf(a doc.Anchor) (doc.Position, bool) {
	block, path := d.root.FindByID(a.BlockID)
	if block == nil || !block.Type.IsTextblock() {
		return doc.Position{}, false
	}
	offset := min(max(a.Offset, 0), block.ContentSize())
	return doc.Position{Path: path, Offset: offset}, true
}

// RangeOf resolves an anchored range; ok is false if either end is gone or
// the ends resolve out of order.
func (d *Document) RangeOf(r doc.AnchorRange) (doc.Range, bool) {
	from, ok := d.PositionOf(r.From)
	if !ok {
		return doc.Range{}, false
	}
	to, ok := d.PositionOf(r.To)
	if !ok {
		return doc.Range{}, false
	}
	if from.Compare(to) > 0 {
		return doc.Range{}, false
	}
	return doc.Range{From: from, To: to}, true
}

// TextBetween returns the text in r, textblocks separated by newlines.
func (d *Document) TextBetween(r doc.Range) (string, error) {
	if !r.Valid() {
		return "", exception.NewInvalidRangeError("range %s is reversed", r)
	}
	if _, err := textblockAt(d.root, r.From); err != nil {
		return "", err
	}
	if _, err := textblockAt(d.root, r.To); err != nil {
		return "", err
	}
	var parts []string
	for _, b := range d.root.Textblocks() {
		pos := doc.Position{Path: b.Path}
		if pos.Compare(doc.Position{Path: r.From.Path}) < 0 || pos.Compare(doc.Position{Path: r.To.Path}) > 0 {
			continue
		}
		runes := []rune(b.Node.TextContent())
		lo, hi := 0, len(runes)
		if r.From.SameBlock(pos) {
			lo = r.From.Offset
		}
		if r.To.SameBlock(pos) {
			hi = r.To.Offset
		}
		parts = append(parts, string(runes[lo:hi]))
	}
	return strings.Join(parts, "\n"), nil
}

// FindText returns every occurrence of query inside single textblocks.
func (d *Document) FindText(query string) []doc.Range {
	if query == "" {
		return nil
	}
	needle := []rune(query)
	var out []doc.Range
	for _, b := range d.root.Textblocks() {
		hay := []rune(b.Node.TextContent())
		for i := 0; i+len(needle) <= len(hay); i++ {
			if string(hay[i:i+len(needle)]) == query {
				out = append(out, doc.Range{
					From: doc.Position{Path: b.Path, Offset: i},
					To:   doc.Position{Path: b.Path, Offset: i + len(needle)},
				})
			}
		}
	}
	return out
}

// MarkSpan returns the range covered by the given mark, from the first to
// the last unit carrying it.
func (d *Document) MarkSpan(m doc.Mark) (doc.Range, bool) {
	var r doc.Range
	found := false
	for _, b := range d.root.Textblocks() {
		pos := 0
		for _, c := range b.Node.Content {
			size := c.InlineSize()
			if c.Type == doc.TypeTextRun && markMatches(c.Marks, m) {
				start := doc.Position{Path: b.Path, Offset: pos}
				end := doc.Position{Path: b.Path, Offset: pos + size}
				if !found {
					r.From = start
					found = true
				}
				r.To = end
			}
			pos += size
		}
	}
	return r, found
}

func markMatches(set []doc.Mark, m doc.Mark) bool {
	for _, existing := range set {
		if existing.Equal(m) {
			return true
		}
	}
	return false
}

// MarksAt returns the marks typed text at p inherits: inclusive marks of the
// unit before p, plus anchor marks present on both sides of p.
func (d *Document) MarksAt(p doc.Position) ([]doc.Mark, error) {
	block, err := textblockAt(d.root, p)
	if err != nil {
		return nil, err
	}
	var before, after []doc.Mark
	pos := 0
	for _, c := range block.Content {
		size := c.InlineSize()
		if c.Type == doc.TypeTextRun {
			if pos < p.Offset && p.Offset <= pos+size {
				before = c.Marks
			}
			if pos <= p.Offset && p.Offset < pos+size {
				after = c.Marks
			}
		}
		pos += size
	}
	if p.Offset == 0 {
		before = after
		after = nil
	}
	out := doc.InclusiveMarks(before)
	for _, m := range before {
		if !m.Type.Inclusive() && markMatches(after, m) {
			out = append(out, m.Clone())
		}
	}
	return doc.SortMarks(out), nil
}

// RangeHasMark reports whether every text unit in r carries m. Images are
// ignored; a range without text reports false.
func (d *Document) RangeHasMark(r doc.Range, m doc.Mark) bool {
	if !r.Valid() || r.IsEmpty() {
		return false
	}
	seen := false
	for _, b := range d.root.Textblocks() {
		pos := doc.Position{Path: b.Path}
		if pos.Compare(doc.Position{Path: r.From.Path}) < 0 || pos.Compare(doc.Position{Path: r.To.Path}) > 0 {
			continue
		}
		lo, hi := 0, b.Node.ContentSize()
		if r.From.SameBlock(pos) {
			lo = r.From.Offset
		}
		if r.To.SameBlock(pos) {
			hi = r.To.Offset
		}
		for _, c := range sliceInline(b.Node, lo, hi) {
			if c.Type != doc.TypeTextRun {
				continue
			}
			if !doc.HasMark(c.Marks, m) {
				return false
			}
			seen = true
		}
	}
	return seen
}
