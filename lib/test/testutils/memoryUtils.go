package testutils

import (
	db2 "github.com/ether/etherdoc/lib/db"
	hooks2 "github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/session"
	"go.uber.org/zap"
)

func InitMemoryUtils() (*db2.MemoryDataStore, *hooks2.Hook, *session.Manager) {
	db := db2.NewMemoryDataStore()
	hooks := hooks2.NewHook()
	manager := session.NewManager(db, hooks, TestSettings(), zap.NewNop().Sugar())

	return db, hooks, manager
}
