package cmd

import (
	"github.com/agentrangers/ranger/pkg/persistence"
	"github.com/agentrangers/ranger/pkg/persistence/file"
)

// NewPersistence creates the storage backend for a database URL. Only the
// file backend exists today; the URL scheme keeps room for others.
func NewPersistence(databaseURL string) persistence.Persistence {
	return file.NewPersistence(databaseURL)
}
