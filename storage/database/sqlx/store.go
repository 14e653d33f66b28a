package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	nowFunc = time.Now // mockable

	// known columns per table; anything else is rejected before reaching SQL
	columns = map[string][]string{
		remote.TableProfiles:    {"id", "email", "name", "english_level", "profile_photo_url", "created_at", "updated_at"},
		remote.TableExams:       {"id", "user_id", "exam_title", "exam_type", "exam_date", "grade", "notes", "created_at"},
		remote.TableAssignments: {"id", "user_id", "title", "description", "due_date", "status", "created_at"},
		remote.TableAttendance:  {"id", "user_id", "date", "hours", "status", "created_at"},
		remote.TableTracks: {"id", "user_id", "unit_name", "vocabulary", "grammar_topics", "completion_percentage",
			"created_at", "updated_at"},
	}
	updatedAtTables = map[string]bool{remote.TableProfiles: true, remote.TableTracks: true}
)

// Store implements remote.Store on a SQL database. Every operation is scoped to the owner of the token.
type Store struct {
	db       *sqlx.DB
	verifier remote.TokenVerifier
	logger   core.Logger
}

var _ remote.Store = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB, verifier remote.TokenVerifier, logger core.Logger) *Store {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Store{db: db, verifier: verifier, logger: logger}
}

func (s *Store) scope(token string, q remote.Query) (remote.Query, string, error) {
	if _, ok := columns[q.Table]; !ok {
		return q, "", core.NewRemoteError("lookup", http.StatusNotFound, fmt.Sprintf("relation %q does not exist", q.Table), nil)
	}
	usr, err := s.verifier.VerifyToken(token)
	if err != nil {
		return q, "", core.NewRemoteError("verifying token", http.StatusUnauthorized, "Invalid JWT", err)
	}
	return q.Eq(remote.OwnerColumn(q.Table), usr.ID), usr.ID, nil
}

func checkColumn(table, col string) error {
	for _, c := range columns[table] {
		if c == col {
			return nil
		}
	}
	return core.NewRemoteError("query "+table, http.StatusBadRequest,
		fmt.Sprintf("column %s.%s does not exist", table, col), nil)
}

func where(q remote.Query) (string, []interface{}, error) {
	if len(q.Filters) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(q.Filters))
	args := make([]interface{}, 0, len(q.Filters))
	for _, f := range q.Filters {
		if err := checkColumn(q.Table, f.Column); err != nil {
			return "", nil, err
		}
		conds = append(conds, f.Column+" = ?")
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func orderBy(q remote.Query) (string, error) {
	if len(q.Order) == 0 {
		return "", nil
	}
	ords := make([]string, 0, len(q.Order))
	for _, ord := range q.Order {
		if err := checkColumn(q.Table, ord.Field); err != nil {
			return "", err
		}
		ords = append(ords, ord.String())
	}
	return " ORDER BY " + strings.Join(ords, ", "), nil
}

func (s *Store) Select(ctx context.Context, token string, q remote.Query) ([]remote.Row, error) {
	q, _, err := s.scope(token, q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, s.db, q)
}

func (s *Store) query(ctx context.Context, db sqlx.QueryerContext, q remote.Query) ([]remote.Row, error) {
	cond, args, err := where(q)
	if err != nil {
		return nil, err
	}
	ord, err := orderBy(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + q.Table + cond + ord
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, s.fail("select "+q.Table, err)
	}
	defer func() { _ = rows.Close() }()

	res := make([]remote.Row, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, s.fail("select "+q.Table, err)
		}
		res = append(res, normalize(row))
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("select "+q.Table, err)
	}
	return res, nil
}

func (s *Store) Insert(ctx context.Context, token, table string, row remote.Row) (remote.Row, error) {
	_, owner, err := s.scope(token, remote.From(table))
	if err != nil {
		return nil, err
	}
	values := make(remote.Row, len(row)+3)
	for k, v := range row {
		values[k] = v
	}
	if col := remote.OwnerColumn(table); values[col] != owner {
		return nil, core.NewRemoteError("insert", http.StatusForbidden,
			fmt.Sprintf("new row violates row-level security policy for table %q", table), nil)
	}
	if id, _ := values["id"].(string); id == "" {
		values["id"] = uuid.New().String()
	}
	now := timestamp()
	values["created_at"] = now
	if updatedAtTables[table] {
		values["updated_at"] = now
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if err := checkColumn(table, col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		args = append(args, values[col])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return nil, s.fail("insert "+table, err)
	}

	rows, err := s.query(ctx, s.db, remote.From(table).Eq("id", values["id"]))
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, core.NewRemoteError("insert "+table, http.StatusInternalServerError, "inserted row not found", nil)
	}
	return rows[0], nil
}

// Update applies `patch` to the matched rows and returns the first one.
func (s *Store) Update(ctx context.Context, token string, q remote.Query, patch remote.Row) (remote.Row, error) {
	q, _, err := s.scope(token, q)
	if err != nil {
		return nil, err
	}
	cond, condArgs, err := where(q)
	if err != nil {
		return nil, err
	}

	values := make(remote.Row, len(patch)+1)
	for k, v := range patch {
		if k == "id" || k == "created_at" {
			continue
		}
		values[k] = v
	}
	if updatedAtTables[q.Table] {
		values["updated_at"] = timestamp()
	}
	if len(values) == 0 {
		return nil, core.NewRemoteError("update "+q.Table, http.StatusBadRequest, "nothing to update", nil)
	}
	cols := make([]string, 0, len(values))
	for col := range values {
		if err := checkColumn(q.Table, col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+len(condArgs))
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, values[col])
	}
	args = append(args, condArgs...)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.fail("update "+q.Table, err)
	}
	defer func() { _ = tx.Rollback() }()

	matched, err := s.query(ctx, tx, q.Single())
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, core.NewRemoteError("update "+q.Table, http.StatusNotAcceptable,
			"JSON object requested, multiple (or no) rows returned", core.ErrRecordNotFound)
	}
	query := "UPDATE " + q.Table + " SET " + strings.Join(sets, ", ") + cond
	if _, err := tx.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return nil, s.fail("update "+q.Table, err)
	}
	updated, err := s.query(ctx, tx, remote.From(q.Table).Eq("id", matched[0]["id"]))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, s.fail("update "+q.Table, err)
	}
	return updated[0], nil
}

func (s *Store) Delete(ctx context.Context, token string, q remote.Query) error {
	q, _, err := s.scope(token, q)
	if err != nil {
		return err
	}
	cond, args, err := where(q)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM "+q.Table+cond), args...); err != nil {
		return s.fail("delete "+q.Table, err)
	}
	return nil
}

func (s *Store) fail(op string, err error) error {
	s.logger.Error(op, err)
	status := http.StatusInternalServerError
	if errors.Is(err, sql.ErrNoRows) {
		status = http.StatusNotFound
	}
	return core.NewRemoteError(op, status, err.Error(), err)
}

func timestamp() string {
	return nowFunc().UTC().Format(timestampLayout)
}

// normalize converts driver values to the JSON-like values the hosted store returns.
func normalize(row map[string]interface{}) remote.Row {
	out := make(remote.Row, len(row))
	for k, v := range row {
		switch val := v.(type) {
		case []byte:
			out[k] = string(val)
		case time.Time:
			out[k] = val.UTC().Format(timestampLayout)
		default:
			out[k] = val
		}
	}
	return out
}
