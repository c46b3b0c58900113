package comments

import (
	"errors"
	"strings"
	"time"

	"github.com/ether/etherdoc/lib/anchor"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	KeyPrefix = "comment:"

	LabelAddComment    = "addComment"
	LabelDeleteComment = "deleteComment"
)

// Manager owns the comments of one document. A comment exists in the tree
// as a comment mark; the manager keeps the metadata and an anchored range
// per comment and re-validates both after every change.
type Manager struct {
	document *document.Document
	resolver *anchor.Resolver
	hooks    *hooks.Hook
	logger   *zap.SugaredLogger
	now      func() time.Time

	comments map[string]*Comment
	order    []string

	unsubscribe func()
}

// NewManager subscribes to d. The resolver must already be attached to d so
// tracked ranges are current when comments are re-validated.
func NewManager(d *document.Document, resolver *anchor.Resolver, hook *hooks.Hook, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &Manager{
		document: d,
		resolver: resolver,
		hooks:    hook,
		logger:   logger,
		now:      time.Now,
		comments: make(map[string]*Comment),
	}
	m.unsubscribe = d.Subscribe(m.onChange)
	return m
}

func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func key(id string) string {
	return KeyPrefix + id
}

// AddComment marks r as commented and returns the new comment's ID.
func (m *Manager) AddComment(r doc.Range, author, content string) (string, error) {
	if r.IsEmpty() {
		return "", exception.NewEmptyRangeError("select text to add a comment")
	}
	if strings.TrimSpace(content) == "" {
		return "", exception.NewInvalidOperationError("comment content is empty")
	}
	text, err := m.document.TextBetween(r)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	mark := doc.CommentMark(id)
	_, err = m.document.ApplyEdit(
		document.WrapRange{Range: r, Mark: &mark},
		document.WithLabel(LabelAddComment),
		document.Structural(true),
	)
	if err != nil {
		return "", err
	}
	c := &Comment{
		ID:        id,
		Author:    author,
		Content:   content,
		Timestamp: m.now(),
		Text:      text,
	}
	m.comments[id] = c
	m.order = append(m.order, id)
	m.track(c, r)
	m.logger.Debugw("comment added", "document", m.document.ID(), "comment", id)
	m.emit(c, events.CommentAdded)
	return id, nil
}

// DeleteComment removes the comment mark. Undoing the deletion brings the
// comment back.
func (m *Manager) DeleteComment(id string) error {
	c, ok := m.comments[id]
	if !ok || c.Deleted {
		return exception.NewUnknownCommentError(id)
	}
	mark := doc.CommentMark(id)
	if span, ok := m.document.MarkSpan(mark); ok {
		c.Deleted = true
		_, err := m.document.ApplyEdit(
			document.UnwrapRange{Range: span, Mark: &mark},
			document.WithLabel(LabelDeleteComment),
			document.Structural(true),
		)
		if err != nil {
			c.Deleted = false
			return err
		}
	}
	c.Deleted = true
	m.resolver.Untrack(key(id))
	m.emit(c, events.CommentDeleted)
	return nil
}

func (m *Manager) Resolve(id string) error {
	return m.setResolved(id, true)
}

func (m *Manager) Unresolve(id string) error {
	return m.setResolved(id, false)
}

func (m *Manager) setResolved(id string, resolved bool) error {
	c, ok := m.comments[id]
	if !ok || c.Deleted {
		return exception.NewUnknownCommentError(id)
	}
	if c.Resolved == resolved {
		return nil
	}
	c.Resolved = resolved
	action := events.CommentResolved
	if !resolved {
		action = events.CommentUnresolved
	}
	m.emit(c, action)
	return nil
}

func (m *Manager) AddReply(id, author, content string) (string, error) {
	c, ok := m.comments[id]
	if !ok || c.Deleted {
		return "", exception.NewUnknownCommentError(id)
	}
	if strings.TrimSpace(content) == "" {
		return "", exception.NewInvalidOperationError("reply content is empty")
	}
	reply := Reply{ID: uuid.NewString(), Author: author, Content: content, Timestamp: m.now()}
	c.Replies = append(c.Replies, reply)
	m.emit(c, events.CommentReplied)
	return reply.ID, nil
}

func (m *Manager) Get(id string) (Comment, bool) {
	c, ok := m.comments[id]
	if !ok || c.Deleted {
		return Comment{}, false
	}
	return c.clone(), true
}

// Active lists attached, unresolved comments in creation order.
func (m *Manager) Active() []Comment {
	return m.list(func(c *Comment) bool { return c.attached() && !c.Resolved })
}

// Resolved lists attached, resolved comments in creation order.
func (m *Manager) Resolved() []Comment {
	return m.list(func(c *Comment) bool { return c.attached() && c.Resolved })
}

// Orphaned lists comments whose text is currently gone.
func (m *Manager) Orphaned() []Comment {
	return m.list(func(c *Comment) bool { return c.Detached && !c.Deleted })
}

func (m *Manager) list(keep func(*Comment) bool) []Comment {
	out := make([]Comment, 0)
	for _, id := range m.order {
		if c := m.comments[id]; keep(c) {
			out = append(out, c.clone())
		}
	}
	return out
}

// Locate finds the current range of a comment: through its anchor first,
// then through its mark, and finally by searching for the captured text.
func (m *Manager) Locate(id string) (doc.Range, error) {
	c, ok := m.comments[id]
	if !ok || c.Deleted {
		return doc.Range{}, exception.NewUnknownCommentError(id)
	}
	r, fromMark, err := m.resolve(c)
	if err != nil {
		m.logger.Infow("comment text not found", "document", m.document.ID(), "comment", id)
		return doc.Range{}, err
	}
	if fromMark {
		m.track(c, r)
	}
	return r, nil
}

// resolve looks the range of c up without touching the resolver. fromMark
// reports that the anchor was stale and the mark span was used instead.
func (m *Manager) resolve(c *Comment) (r doc.Range, fromMark bool, err error) {
	if t, ok := m.resolver.Get(key(c.ID)); ok && !t.Degraded {
		if r, ok := m.document.RangeOf(t.Range); ok && !r.IsEmpty() {
			return r, false, nil
		}
	}
	if span, ok := m.document.MarkSpan(doc.CommentMark(c.ID)); ok {
		return span, true, nil
	}
	if c.Text != "" {
		if found := m.document.FindText(c.Text); len(found) > 0 {
			return found[0], false, nil
		}
	}
	return doc.Range{}, false, exception.NewTextNotFoundError(c.Text)
}

func (m *Manager) track(c *Comment, r doc.Range) {
	ar, err := m.document.AnchorRangeOf(r, anchor.CommentPolicy.From, anchor.CommentPolicy.To)
	if err != nil {
		m.logger.Debugw("comment range cannot be anchored", "comment", c.ID, "error", err)
		return
	}
	m.resolver.Track(key(c.ID), ar)
}

func (m *Manager) onChange(result *document.EditResult) {
	for _, id := range m.order {
		c := m.comments[id]
		span, hasMark := m.document.MarkSpan(doc.CommentMark(id))
		if c.attached() {
			t, tracked := m.resolver.Get(key(id))
			if hasMark && tracked && !t.Degraded {
				continue
			}
			if hasMark {
				// Part of the text survived, e.g. a delete took the block
				// holding one end. Re-anchor on what is left.
				m.track(c, span)
				continue
			}
			c.Detached = true
			m.resolver.Untrack(key(id))
			m.logger.Infow("comment orphaned", "document", m.document.ID(), "comment", id, "label", result.Label)
			m.emit(c, events.CommentOrphaned)
			continue
		}
		if !hasMark {
			continue
		}
		// The mark came back, e.g. after undo.
		wasDeleted := c.Deleted
		c.Detached = false
		c.Deleted = false
		m.track(c, span)
		m.logger.Debugw("comment reattached", "document", m.document.ID(), "comment", id, "undeleted", wasDeleted)
		m.emit(c, events.CommentReattached)
	}
}

// Records exports every live comment for persistence.
func (m *Manager) Records() []Record {
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		c := m.comments[id]
		if !c.attached() {
			continue
		}
		r, _, err := m.resolve(c)
		if err != nil {
			r = doc.Range{}
		}
		out = append(out, c.toRecord(r))
	}
	return out
}

// Load replaces the comments with persisted records. Comments whose mark is
// missing from the document start out orphaned.
func (m *Manager) Load(records []Record) error {
	for _, id := range m.order {
		m.resolver.Untrack(key(id))
	}
	m.comments = make(map[string]*Comment)
	m.order = nil

	var errs []error
	for _, rec := range records {
		c, err := fromRecord(rec)
		if err != nil {
			errs = append(errs, exception.NewInvalidOperationError("comment %s: %v", rec.ID, err))
			continue
		}
		if _, dup := m.comments[c.ID]; dup {
			continue
		}
		m.comments[c.ID] = c
		m.order = append(m.order, c.ID)
		if span, ok := m.document.MarkSpan(doc.CommentMark(c.ID)); ok {
			m.track(c, span)
		} else {
			c.Detached = true
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) emit(c *Comment, action string) {
	if m.hooks == nil {
		return
	}
	m.hooks.ExecuteCommentChangedHooks(&events.CommentChanged{
		DocumentID: m.document.ID(),
		CommentID:  c.ID,
		Action:     action,
		Text:       c.Text,
		Resolved:   c.Resolved,
	})
}
