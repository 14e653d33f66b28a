// Package remote defines the row-based boundary with the hosted store.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
)

// Tables
const (
	TableProfiles    = "profiles"
	TableExams       = "exams"
	TableAssignments = "assignments"
	TableAttendance  = "attendance"
	TableTracks      = "tracks"
)

// Row is a table row as exchanged with the store, keyed by column name.
type Row map[string]interface{}

// Filter is an equality filter on one column.
type Filter struct {
	Column string
	Value  interface{}
}

type Query struct {
	Table   string
	Filters []Filter
	Order   []core.DBOrdering
	Limit   int
}

func From(table string) Query { return Query{Table: table} }

func (q Query) Eq(column string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

func (q Query) OrderBy(ords ...core.DBOrdering) Query {
	q.Order = append(append([]core.DBOrdering(nil), q.Order...), ords...)
	return q
}

func (q Query) Single() Query {
	q.Limit = 1
	return q
}

// Match reports whether `row` satisfies every filter of the query.
func (q Query) Match(row Row) bool {
	for _, f := range q.Filters {
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// Store issues authenticated table operations. `token` is the access token of the current session.
// Update and Delete affect the rows matched by the query filters; Update returns the single updated row
// and fails with a not-found *core.RemoteError when nothing matched.
type Store interface {
	Select(ctx context.Context, token string, q Query) ([]Row, error)
	Insert(ctx context.Context, token, table string, row Row) (Row, error)
	Update(ctx context.Context, token string, q Query, patch Row) (Row, error)
	Delete(ctx context.Context, token string, q Query) error
}

// Encode converts a tagged struct into a Row through its JSON representation.
func Encode(v interface{}) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	return row, nil
}

// Decode converts a Row into the tagged struct pointed to by `out`.
func Decode(row Row, out interface{}) error {
	data, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "decoding row")
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding row")
}

// TokenVerifier resolves an access token to its user. Local stores use it to scope every
// operation to the token owner, the way row-level security does on the hosted store.
type TokenVerifier interface {
	VerifyToken(token string) (core.User, error)
}

// OwnerColumn returns the column holding the owner id of `table`.
func OwnerColumn(table string) string {
	if table == TableProfiles {
		return "id"
	}
	return "user_id"
}
