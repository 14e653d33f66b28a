package inmemdb

import (
	"sync"
	"time"

	"github.com/PWRApex/english-prep-companion/core/remote"
)

var nowFunc = time.Now // mockable

type (
	// DB is a process-local database: one RWMutex guarded map per table.
	DB struct {
		tables   map[string]*table
		accounts *accountTable
	}

	table struct {
		sync.RWMutex
		rows  map[string]remote.Row
		order []string // ids by insertion
	}
)

func Open() (*DB, error) {
	db := &DB{
		tables:   make(map[string]*table),
		accounts: &accountTable{table: make(map[string]*accountRow)},
	}
	for _, name := range []string{
		remote.TableProfiles,
		remote.TableExams,
		remote.TableAssignments,
		remote.TableAttendance,
		remote.TableTracks,
	} {
		db.tables[name] = &table{rows: make(map[string]remote.Row)}
	}
	return db, nil
}

func (db *DB) table(name string) (*table, bool) {
	t, ok := db.tables[name]
	return t, ok
}

// Reset empties every table.
func (db *DB) Reset() {
	for _, t := range db.tables {
		t.Lock()
		t.rows = make(map[string]remote.Row)
		t.order = nil
		t.Unlock()
	}
	db.accounts.Lock()
	db.accounts.table = make(map[string]*accountRow)
	db.accounts.Unlock()
}
