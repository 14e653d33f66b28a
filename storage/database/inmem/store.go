package inmemdb

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

// Store operations, as counted by Calls.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// fixed width, so timestamps sort as text
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	// column defaults applied on insert
	defaults = map[string]remote.Row{
		remote.TableProfiles:    {"english_level": "A1", "name": nil, "profile_photo_url": nil},
		remote.TableExams:       {"grade": nil, "notes": nil},
		remote.TableAssignments: {"status": "pending", "description": nil},
		remote.TableAttendance:  {"hours": 1, "status": "present"},
		remote.TableTracks:      {"vocabulary": "[]", "grammar_topics": "[]", "completion_percentage": 0},
	}
	// tables carrying an updated_at column
	updatedAtTables = map[string]bool{remote.TableProfiles: true, remote.TableTracks: true}
)

// Store implements remote.Store on top of DB. It records the calls it receives so tests can
// assert on the remote traffic, and can be told to fail the next call of an operation.
type Store struct {
	db       *DB
	verifier remote.TokenVerifier

	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	lastTS   time.Time
}

var _ remote.Store = (*Store)(nil) // interface compliance check

// NewStore creates a store over `db`. With a verifier, every operation is scoped to the token owner.
func NewStore(db *DB, verifier remote.TokenVerifier) *Store {
	return &Store{
		db:       db,
		verifier: verifier,
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// Calls returns how many times `op` was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of operations invoked.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailNext makes the next `op` call return `err`.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// scope restricts `q` to the rows of the token owner.
func (s *Store) scope(token string, q remote.Query) (remote.Query, string, error) {
	if s.verifier == nil {
		return q, "", nil
	}
	usr, err := s.verifier.VerifyToken(token)
	if err != nil {
		return q, "", core.NewRemoteError("verifying token", http.StatusUnauthorized, "Invalid JWT", err)
	}
	return q.Eq(remote.OwnerColumn(q.Table), usr.ID), usr.ID, nil
}

func (s *Store) lookup(name string) (*table, error) {
	t, ok := s.db.table(name)
	if !ok {
		return nil, core.NewRemoteError("lookup", http.StatusNotFound, fmt.Sprintf("relation %q does not exist", name), nil)
	}
	return t, nil
}

func (s *Store) Select(_ context.Context, token string, q remote.Query) ([]remote.Row, error) {
	if err := s.record(OpSelect); err != nil {
		return nil, err
	}
	q, _, err := s.scope(token, q)
	if err != nil {
		return nil, err
	}
	t, err := s.lookup(q.Table)
	if err != nil {
		return nil, err
	}

	t.RLock()
	rows := make([]remote.Row, 0, len(t.rows))
	for _, id := range t.order {
		if row := t.rows[id]; q.Match(row) {
			rows = append(rows, copyRow(row))
		}
	}
	t.RUnlock()

	sortRows(rows, q.Order)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *Store) Insert(_ context.Context, token, tableName string, row remote.Row) (remote.Row, error) {
	if err := s.record(OpInsert); err != nil {
		return nil, err
	}
	_, owner, err := s.scope(token, remote.From(tableName))
	if err != nil {
		return nil, err
	}
	t, err := s.lookup(tableName)
	if err != nil {
		return nil, err
	}

	newRow := copyRow(defaults[tableName])
	for k, v := range row {
		newRow[k] = v
	}
	if owner != "" {
		if col := remote.OwnerColumn(tableName); newRow[col] != owner {
			return nil, core.NewRemoteError("insert", http.StatusForbidden,
				fmt.Sprintf("new row violates row-level security policy for table %q", tableName), nil)
		}
	}
	id, _ := newRow["id"].(string)
	if id == "" {
		id = uuid.New().String()
		newRow["id"] = id
	}
	t.Lock()
	defer t.Unlock()

	now := s.timestamp()
	newRow["created_at"] = now
	if updatedAtTables[tableName] {
		newRow["updated_at"] = now
	}
	if _, exists := t.rows[id]; exists {
		return nil, core.NewRemoteError("insert", http.StatusConflict,
			fmt.Sprintf("duplicate key value violates unique constraint \"%s_pkey\"", tableName), nil)
	}
	t.rows[id] = newRow
	t.order = append(t.order, id)
	return copyRow(newRow), nil
}

func (s *Store) Update(_ context.Context, token string, q remote.Query, patch remote.Row) (remote.Row, error) {
	if err := s.record(OpUpdate); err != nil {
		return nil, err
	}
	q, _, err := s.scope(token, q)
	if err != nil {
		return nil, err
	}
	t, err := s.lookup(q.Table)
	if err != nil {
		return nil, err
	}

	t.Lock()
	defer t.Unlock()
	var updated remote.Row
	for _, id := range t.order {
		row := t.rows[id]
		if !q.Match(row) {
			continue
		}
		for k, v := range patch {
			if k == "id" || k == "created_at" {
				continue
			}
			row[k] = v
		}
		if updatedAtTables[q.Table] {
			row["updated_at"] = s.timestamp()
		}
		if updated == nil {
			updated = copyRow(row)
		}
	}
	if updated == nil {
		return nil, core.NewRemoteError("update", http.StatusNotAcceptable,
			"JSON object requested, multiple (or no) rows returned", core.ErrRecordNotFound)
	}
	return updated, nil
}

func (s *Store) Delete(_ context.Context, token string, q remote.Query) error {
	if err := s.record(OpDelete); err != nil {
		return err
	}
	q, _, err := s.scope(token, q)
	if err != nil {
		return err
	}
	t, err := s.lookup(q.Table)
	if err != nil {
		return err
	}

	t.Lock()
	defer t.Unlock()
	kept := t.order[:0]
	for _, id := range t.order {
		if q.Match(t.rows[id]) {
			delete(t.rows, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return nil
}

// timestamp returns the current time, strictly after every timestamp handed out before.
func (s *Store) timestamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowFunc().UTC().Truncate(time.Microsecond)
	if !now.After(s.lastTS) {
		now = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = now
	return now.Format(timestampLayout)
}

func copyRow(row remote.Row) remote.Row {
	cp := make(remote.Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}

func sortRows(rows []remote.Row, ords []core.DBOrdering) {
	if len(ords) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ords {
			c := compare(rows[i][ord.Field], rows[j][ord.Field])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

// compare orders numbers numerically and everything else by its text, nulls last.
func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
