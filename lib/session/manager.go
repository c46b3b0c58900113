package session

import (
	"encoding/json"
	"errors"
	"regexp"
	"sync"

	"github.com/ether/etherdoc/lib/comments"
	"github.com/ether/etherdoc/lib/db"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/editor"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/io"
	modeldb "github.com/ether/etherdoc/lib/models/db"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/ether/etherdoc/lib/settings"
	"go.uber.org/zap"
)

const LabelImport = "import"

var documentIDRegex = regexp.MustCompile(`^[^ \t\r\n\f\v$/\\?#]{1,50}$`)

// Session is a loaded document with its editor. Version counts every edit
// the document has seen, across restarts.
type Session struct {
	ID          string
	Editor      *editor.Editor
	baseVersion int
}

func (s *Session) Version() int {
	return s.baseVersion + s.Editor.Version()
}

type sessionCache struct {
	sessions map[string]*Session
}

func (c *sessionCache) get(id string) *Session {
	return c.sessions[id]
}

func (c *sessionCache) set(id string, s *Session) {
	c.sessions[id] = s
}

func (c *sessionCache) delete(id string) {
	delete(c.sessions, id)
}

// Manager loads documents from the store into editor sessions and writes
// every change back. Events of all sessions go through one hook.
type Manager struct {
	mu       sync.Mutex
	store    db.DataStore
	hook     *hooks.Hook
	settings *settings.Settings
	logger   *zap.SugaredLogger
	measurer editor.ImageMeasurer

	importer *io.Importer
	html     *io.ExportHtml
	markdown *io.ExportMarkdown
	pdf      *io.ExportPDF

	cache   *sessionCache
	hookIDs map[string]string
}

func NewManager(store db.DataStore, hook *hooks.Hook, retrievedSettings *settings.Settings, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &Manager{
		store:    store,
		hook:     hook,
		settings: retrievedSettings,
		logger:   logger,
		measurer: NewImageMeasurer(nil),
		importer: io.NewImporter(retrievedSettings.Import.SanitizeHtml, logger),
		html:     io.NewExportHtml(hook),
		markdown: io.NewExportMarkdown(hook),
		pdf:      io.NewExportPDF(hook),
		cache:    &sessionCache{sessions: make(map[string]*Session)},
		hookIDs:  make(map[string]string),
	}
	m.hookIDs[hooks.DocumentChangedHook] = hook.EnqueueDocumentChangedHook(m.onDocumentChanged)
	m.hookIDs[hooks.CommentChangedHook] = hook.EnqueueCommentChangedHook(m.onCommentChanged)
	return m
}

// SetImageMeasurer replaces the measurer handed to sessions opened later.
func (m *Manager) SetImageMeasurer(measurer editor.ImageMeasurer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.measurer = measurer
}

func (m *Manager) IsValidDocumentID(id string) bool {
	return documentIDRegex.MatchString(id)
}

func (m *Manager) DoesDocumentExist(id string) (bool, error) {
	exists, err := m.store.DoesDocumentExist(id)
	if err != nil {
		return false, exception.NewDatabaseError("could not check document", err)
	}
	return *exists, nil
}

func (m *Manager) GetDocumentIds() ([]string, error) {
	ids, err := m.store.GetDocumentIds()
	if err != nil {
		return nil, exception.NewDatabaseError("could not list documents", err)
	}
	return *ids, nil
}

// GetSession returns the session of an existing document, loading it from
// the store if needed.
func (m *Manager) GetSession(id string) (*Session, error) {
	if !m.IsValidDocumentID(id) {
		return nil, exception.NewInvalidOperationError("invalid document id %q", id)
	}
	m.mu.Lock()
	s := m.cache.get(id)
	m.mu.Unlock()
	if s != nil {
		return s, nil
	}

	stored, err := m.store.GetDocument(id)
	if err != nil {
		if err.Error() == db.DocumentDoesNotExistError {
			return nil, exception.NewDocumentNotFoundError(id)
		}
		return nil, exception.NewDatabaseError("could not load document", err)
	}
	var root doc.Node
	if err := json.Unmarshal([]byte(stored.Content), &root); err != nil {
		return nil, exception.NewDatabaseError("stored document is corrupt", err)
	}

	s, err = m.open(id, &root, stored.Version)
	if err != nil {
		return nil, err
	}

	storedComments, err := m.store.GetComments(id)
	if err != nil {
		return nil, exception.NewDatabaseError("could not load comments", err)
	}
	records := make([]comments.Record, 0, len(*storedComments))
	for _, c := range *storedComments {
		record, err := commentDBToRecord(c)
		if err != nil {
			m.logger.Warnw("skipping corrupt comment", "document", id, "comment", c.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	if err := s.Editor.LoadComments(records); err != nil {
		m.logger.Warnw("some comments could not be loaded", "document", id, "error", err)
	}
	return s, nil
}

// CreateDocument stores a new document. A nil root creates an empty one.
func (m *Manager) CreateDocument(id string, root *doc.Node) (*Session, error) {
	if !m.IsValidDocumentID(id) {
		return nil, exception.NewInvalidOperationError("invalid document id %q", id)
	}
	exists, err := m.DoesDocumentExist(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, exception.NewInvalidOperationError("document %q already exists", id)
	}

	s, err := m.open(id, root, 0)
	if err != nil {
		return nil, err
	}
	if err := m.persistDocument(s); err != nil {
		m.UnloadSession(id)
		return nil, err
	}
	return s, nil
}

// OpenSession returns the session of id, creating an empty document when
// there is none.
func (m *Manager) OpenSession(id string) (*Session, error) {
	s, err := m.GetSession(id)
	if exception.IsDocumentNotFound(err) {
		return m.CreateDocument(id, nil)
	}
	return s, err
}

func (m *Manager) open(id string, root *doc.Node, version int) (*Session, error) {
	d, err := document.New(id, root, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.cache.get(id); existing != nil {
		return existing, nil
	}
	s := &Session{
		ID: id,
		Editor: editor.New(d, m.hook, m.logger, editor.Options{
			Lists:    m.settings.ListOptions(),
			History:  m.settings.HistoryOptions(),
			Measurer: m.measurer,
		}),
		baseVersion: version,
	}
	m.cache.set(id, s)
	return s, nil
}

// UnloadSession drops the in-memory session. The stored document is kept.
func (m *Manager) UnloadSession(id string) {
	m.mu.Lock()
	s := m.cache.get(id)
	m.cache.delete(id)
	m.mu.Unlock()
	if s != nil {
		s.Editor.Close()
	}
}

func (m *Manager) RemoveDocument(id string) error {
	m.UnloadSession(id)
	if err := m.store.RemoveDocument(id); err != nil {
		if err.Error() == db.DocumentDoesNotExistError {
			return exception.NewDocumentNotFoundError(id)
		}
		return exception.NewDatabaseError("could not remove document", err)
	}
	return nil
}

// ActiveSessions counts the documents currently loaded.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache.sessions)
}

// Close unloads every session and stops listening for changes.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.cache.sessions))
	for id := range m.cache.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.UnloadSession(id)
	}
	for key, id := range m.hookIDs {
		m.hook.DequeueHook(key, id)
	}
}

func (m *Manager) loaded(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.get(id)
}

func (m *Manager) onDocumentChanged(ctx *events.DocumentChanged) {
	s := m.loaded(ctx.DocumentID)
	if s == nil {
		return
	}
	if err := m.persistDocument(s); err != nil {
		m.logger.Errorw("could not persist document", "document", s.ID, "error", err)
	}
}

func (m *Manager) onCommentChanged(ctx *events.CommentChanged) {
	s := m.loaded(ctx.DocumentID)
	if s == nil {
		return
	}
	if ctx.Action == events.CommentDeleted {
		if err := m.store.RemoveComment(s.ID, ctx.CommentID); err != nil && err.Error() != db.CommentNotFoundError {
			m.logger.Errorw("could not remove comment", "document", s.ID, "comment", ctx.CommentID, "error", err)
		}
		return
	}
	if err := m.persistComments(s); err != nil {
		m.logger.Errorw("could not persist comments", "document", s.ID, "error", err)
	}
}

func (m *Manager) persistDocument(s *Session) error {
	content, err := json.Marshal(s.Editor.Snapshot())
	if err != nil {
		return exception.NewDatabaseError("could not encode document", err)
	}
	if err := m.store.SaveDocument(s.ID, modeldb.DocumentDB{
		ID:      s.ID,
		Version: s.Version(),
		Content: string(content),
	}); err != nil {
		return exception.NewDatabaseError("could not save document", err)
	}
	return nil
}

// persistComments writes every attached comment. Anchors move with edits,
// so all of them are rewritten.
func (m *Manager) persistComments(s *Session) error {
	var errs []error
	for _, record := range s.Editor.CommentRecords() {
		comment, err := recordToCommentDB(s.ID, record)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.store.SaveComment(s.ID, comment); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return exception.NewDatabaseError("could not save comments", errors.Join(errs...))
	}
	return nil
}
