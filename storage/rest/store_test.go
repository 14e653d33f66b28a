package reststore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "anon-key", srv.Client(), nil)
}

func TestStore_Select(t *testing.T) {
	var got *http.Request
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, `[{"id":"a1","title":"Essay","user_id":"u1"},{"id":"a2","title":"Reading","user_id":"u1"}]`)
	})

	q := remote.From(remote.TableAssignments).Eq("user_id", "u1").OrderBy(core.Asc("due_date"), core.Desc("created_at"))
	rows, err := store.Select(context.Background(), "user-token", q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Essay", rows[0]["title"])

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/rest/v1/assignments", got.URL.Path)
	assert.Equal(t, "eq.u1", got.URL.Query().Get("user_id"))
	assert.Equal(t, "due_date.asc,created_at.desc", got.URL.Query().Get("order"))
	assert.Equal(t, "*", got.URL.Query().Get("select"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer user-token", got.Header.Get("Authorization"))
}

func TestStore_Select_anonymousToken(t *testing.T) {
	var auth string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	})
	rows, err := store.Select(context.Background(), "", remote.From(remote.TableExams).Single())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "Bearer anon-key", auth)
}

func TestStore_Insert(t *testing.T) {
	var (
		body   map[string]interface{}
		prefer string
	)
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		prefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"e1","exam_title":"Quiz","grade":null}]`)
	})

	row, err := store.Insert(context.Background(), "tok", remote.TableExams, remote.Row{"exam_title": "Quiz", "grade": nil})
	require.NoError(t, err)
	assert.Equal(t, "e1", row["id"])
	assert.Equal(t, "Quiz", body["exam_title"])
	assert.Equal(t, "return=representation", prefer)
}

func TestStore_errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		run        func(s *Store) error
		wantStatus int
		wantMsg    string
		notFound   bool
	}{
		{
			name:   "postgrest error",
			status: http.StatusUnauthorized,
			body:   `{"code":"PGRST301","message":"JWT expired","details":null,"hint":null}`,
			run: func(s *Store) error {
				_, err := s.Select(context.Background(), "tok", remote.From(remote.TableTracks))
				return err
			},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "JWT expired",
		},
		{
			name:   "no json body",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			run: func(s *Store) error {
				return s.Delete(context.Background(), "tok", remote.From(remote.TableTracks).Eq("id", "t1"))
			},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Bad Gateway",
		},
		{
			name:   "update matched nothing",
			status: http.StatusOK,
			body:   `[]`,
			run: func(s *Store) error {
				_, err := s.Update(context.Background(), "tok", remote.From(remote.TableExams).Eq("id", "nope"), remote.Row{"grade": 90})
				return err
			},
			wantStatus: http.StatusNotAcceptable,
			wantMsg:    notFoundMsg,
			notFound:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			err := tt.run(store)
			rErr, ok := err.(*core.RemoteError)
			if !ok {
				t.Fatalf("error = %v, want a *core.RemoteError", err)
			}
			assert.Equal(t, tt.wantStatus, rErr.Status)
			assert.Equal(t, tt.wantMsg, rErr.Message)
			assert.Equal(t, tt.notFound, rErr.NotFound())
		})
	}
}

func TestStore_transportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	store := New(srv.URL, "anon-key", nil, nil)

	_, err := store.Select(context.Background(), "tok", remote.From(remote.TableExams))
	require.Error(t, err)
	assert.True(t, core.IsRemoteError(err))
}
