package db

import (
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataStores(t *testing.T) map[string]DataStore {
	t.Helper()
	sqliteDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "etherdoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })

	return map[string]DataStore{
		"memory": NewMemoryDataStore(),
		"sqlite": sqliteDB,
	}
}

func TestSaveGetRemoveDocumentAndIds(t *testing.T) {
	for name, store := range dataStores(t) {
		t.Run(name, func(t *testing.T) {
			document := CreateRandomDocument()
			require.NoError(t, store.SaveDocument("docA", document))

			exists, err := store.DoesDocumentExist("docA")
			require.NoError(t, err)
			assert.True(t, *exists)

			got, err := store.GetDocument("docA")
			require.NoError(t, err)
			assert.Equal(t, "docA", got.ID)
			assert.Equal(t, document.Version, got.Version)
			assert.Equal(t, document.Content, got.Content)
			assert.False(t, got.CreatedAt.IsZero())

			require.NoError(t, store.SaveDocument("docB", document))
			ids, err := store.GetDocumentIds()
			require.NoError(t, err)
			assert.Equal(t, []string{"docA", "docB"}, *ids)

			require.NoError(t, store.RemoveDocument("docA"))
			exists, err = store.DoesDocumentExist("docA")
			require.NoError(t, err)
			assert.False(t, *exists)
		})
	}
}

func TestSaveDocumentOverwrites(t *testing.T) {
	for name, store := range dataStores(t) {
		t.Run(name, func(t *testing.T) {
			document := CreateRandomDocument()
			require.NoError(t, store.SaveDocument("doc", document))

			document.Version++
			document.Content = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x"}]}]}`
			require.NoError(t, store.SaveDocument("doc", document))

			got, err := store.GetDocument("doc")
			require.NoError(t, err)
			assert.Equal(t, document.Version, got.Version)
			assert.Equal(t, document.Content, got.Content)

			ids, err := store.GetDocumentIds()
			require.NoError(t, err)
			assert.Len(t, *ids, 1)
		})
	}
}

func TestGetMissingDocument(t *testing.T) {
	for name, store := range dataStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetDocument("missing")
			require.Error(t, err)
			assert.Equal(t, DocumentDoesNotExistError, err.Error())

			err = store.RemoveDocument("missing")
			require.Error(t, err)
		})
	}
}

func TestSaveAndRemoveComments(t *testing.T) {
	for name, store := range dataStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveDocument("doc", CreateRandomDocument()))

			first := CreateRandomComment()
			first.Timestamp = "2024-01-01T10:00:00.000Z"
			second := CreateRandomComment()
			second.Timestamp = "2024-01-02T10:00:00.000Z"
			require.NoError(t, store.SaveComment("doc", second))
			require.NoError(t, store.SaveComment("doc", first))

			comments, err := store.GetComments("doc")
			require.NoError(t, err)
			require.Len(t, *comments, 2)
			assert.Equal(t, first.ID, (*comments)[0].ID)
			assert.Equal(t, "doc", (*comments)[0].DocumentID)
			assert.Equal(t, first.Author, (*comments)[0].Author)
			assert.Equal(t, first.Resolved, (*comments)[0].Resolved)
			assert.Equal(t, first.Anchor, (*comments)[0].Anchor)

			first.Resolved = !first.Resolved
			first.Replies = `[{"id":"r1","author":"x","content":"y","timestamp":"2024-01-03T10:00:00.000Z"}]`
			require.NoError(t, store.SaveComment("doc", first))
			comments, err = store.GetComments("doc")
			require.NoError(t, err)
			require.Len(t, *comments, 2)
			assert.Equal(t, first.Resolved, (*comments)[0].Resolved)
			assert.Equal(t, first.Replies, (*comments)[0].Replies)

			require.NoError(t, store.RemoveComment("doc", second.ID))
			assert.Error(t, store.RemoveComment("doc", second.ID))
			comments, err = store.GetComments("doc")
			require.NoError(t, err)
			assert.Len(t, *comments, 1)
		})
	}
}

func TestRemoveDocumentRemovesComments(t *testing.T) {
	for name, store := range dataStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveDocument("doc", CreateRandomDocument()))
			for i := 0; i < gofakeit.Number(1, 5); i++ {
				require.NoError(t, store.SaveComment("doc", CreateRandomComment()))
			}

			require.NoError(t, store.RemoveDocument("doc"))
			require.NoError(t, store.SaveDocument("doc", CreateRandomDocument()))

			comments, err := store.GetComments("doc")
			require.NoError(t, err)
			assert.Empty(t, *comments)
		})
	}
}

func TestMemorySaveCommentOnMissingDocument(t *testing.T) {
	m := NewMemoryDataStore()
	err := m.SaveComment("missing", CreateRandomComment())
	require.Error(t, err)
	assert.Equal(t, DocumentDoesNotExistError, err.Error())
}

func TestServerVersion(t *testing.T) {
	for name, store := range dataStores(t) {
		t.Run(name, func(t *testing.T) {
			version, err := store.GetServerVersion()
			require.NoError(t, err)
			assert.Nil(t, version)

			require.NoError(t, store.SaveServerVersion("v1.0.0"))
			require.NoError(t, store.SaveServerVersion("v1.0.0"))

			version, err = store.GetServerVersion()
			require.NoError(t, err)
			require.NotNil(t, version)
			assert.Equal(t, "v1.0.0", *version)
		})
	}
}
