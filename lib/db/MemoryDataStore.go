package db

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ether/etherdoc/lib/models/db"
)

type MemoryDataStore struct {
	mu            sync.RWMutex
	documentStore map[string]db.DocumentDB
	commentStore  map[string]map[string]db.CommentDB
	serverVersion *string
}

func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{
		documentStore: make(map[string]db.DocumentDB),
		commentStore:  make(map[string]map[string]db.CommentDB),
	}
}

func (m *MemoryDataStore) SaveDocument(documentID string, document db.DocumentDB) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	document.ID = documentID
	if existing, ok := m.documentStore[documentID]; ok {
		document.CreatedAt = existing.CreatedAt
	} else if document.CreatedAt.IsZero() {
		document.CreatedAt = now
	}
	document.UpdatedAt = &now
	m.documentStore[documentID] = document
	return nil
}

func (m *MemoryDataStore) GetDocument(documentID string) (*db.DocumentDB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	document, ok := m.documentStore[documentID]
	if !ok {
		return nil, errors.New(DocumentDoesNotExistError)
	}
	return &document, nil
}

func (m *MemoryDataStore) DoesDocumentExist(documentID string) (*bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.documentStore[documentID]
	return &ok, nil
}

// RemoveDocument removes the document together with its comments.
func (m *MemoryDataStore) RemoveDocument(documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documentStore[documentID]; !ok {
		return errors.New(DocumentDoesNotExistError)
	}
	delete(m.documentStore, documentID)
	delete(m.commentStore, documentID)
	return nil
}

func (m *MemoryDataStore) GetDocumentIds() (*[]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	documentIds := make([]string, 0, len(m.documentStore))
	for k := range m.documentStore {
		documentIds = append(documentIds, k)
	}
	sort.Strings(documentIds)
	return &documentIds, nil
}

func (m *MemoryDataStore) SaveComment(documentID string, comment db.CommentDB) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documentStore[documentID]; !ok {
		return errors.New(DocumentDoesNotExistError)
	}
	documentComments, ok := m.commentStore[documentID]
	if !ok {
		documentComments = make(map[string]db.CommentDB)
		m.commentStore[documentID] = documentComments
	}
	comment.DocumentID = documentID
	documentComments[comment.ID] = comment
	return nil
}

func (m *MemoryDataStore) GetComments(documentID string) (*[]db.CommentDB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comments := make([]db.CommentDB, 0, len(m.commentStore[documentID]))
	for _, c := range m.commentStore[documentID] {
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].Timestamp != comments[j].Timestamp {
			return comments[i].Timestamp < comments[j].Timestamp
		}
		return comments[i].ID < comments[j].ID
	})
	return &comments, nil
}

func (m *MemoryDataStore) RemoveComment(documentID string, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	documentComments, ok := m.commentStore[documentID]
	if !ok {
		return errors.New(CommentNotFoundError)
	}
	if _, ok := documentComments[commentID]; !ok {
		return errors.New(CommentNotFoundError)
	}
	delete(documentComments, commentID)
	return nil
}

func (m *MemoryDataStore) SaveServerVersion(version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverVersion = &version
	return nil
}

func (m *MemoryDataStore) GetServerVersion() (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.serverVersion, nil
}

func (m *MemoryDataStore) Close() error {
	return nil
}

var _ DataStore = (*MemoryDataStore)(nil)
