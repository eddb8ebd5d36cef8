package storage

import (
	"fmt"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/interfaces"
)

// New builds the event repository for the configured backend.
func New(backend, sqlitePath string) (interfaces.EventRepository, error) {
	switch backend {
	case constants.StorageBackendSQLite:
		return NewSQLiteStorage(sqlitePath)
	case constants.StorageBackendFirestore:
		return NewFirestoreStorage()
	case constants.StorageBackendMemory:
		return NewInMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
