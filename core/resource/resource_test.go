package resource_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
	inmemdb "github.com/PWRApex/english-prep-companion/storage/database/inmem"
	testutil "github.com/PWRApex/english-prep-companion/tests"
)

type assignment struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

type newAssignment struct {
	Title string `json:"title" validate:"notblank"`
}

func (na *newAssignment) Validate(v *core.Validator) error { return v.Struct(na) }
func (na *newAssignment) Row() (remote.Row, error)         { return remote.Encode(na) }

var messages = resource.Messages{
	Invalid:      "Please fill required fields",
	Created:      "Created!",
	Updated:      "Updated!",
	Deleted:      "Deleted!",
	CreateFailed: "Error creating",
	UpdateFailed: "Error updating",
	DeleteFailed: "Error deleting",
}

func newResource(env *testutil.Env) *resource.Resource[assignment] {
	return resource.New(resource.Options[assignment]{
		Deps:     env.Deps,
		Tag:      "assignments",
		Table:    remote.TableAssignments,
		Order:    []core.DBOrdering{core.Asc("title")},
		Messages: messages,
		Decode: func(row remote.Row) (assignment, error) {
			var a assignment
			err := remote.Decode(row, &a)
			return a, err
		},
	})
}

func titles(items []assignment) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestResource_List_cached(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	res := newResource(env)
	env.Insert(t, remote.TableAssignments, testutil.Joe, remote.Row{"title": "b"})
	env.Insert(t, remote.TableAssignments, testutil.Joe, remote.Row{"title": "a"})
	env.Insert(t, remote.TableAssignments, testutil.Jane, remote.Row{"title": "c"})

	for i := 0; i < 3; i++ {
		items, err := res.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, titles(items))
	}
	assert.Equal(t, 1, env.Store.Calls(inmemdb.OpSelect))

	// another user has its own entry
	env.Identity.SignIn(testutil.Jane, testutil.JaneToken)
	items, err := res.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, titles(items))
	assert.Equal(t, 2, env.Store.Calls(inmemdb.OpSelect))
}

func TestResource_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	res := newResource(env)

	_, err := res.List(ctx) // warm the cache
	require.NoError(t, err)

	created, err := res.Create(ctx, &newAssignment{Title: "essay"})
	require.NoError(t, err)
	items, err := res.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"essay"}, titles(items), "create is reflected exactly once")

	updated, err := res.Update(ctx, created.ID, &newAssignment{Title: "long essay"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	items, err = res.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"long essay"}, titles(items), "update leaves no stale entry")

	require.NoError(t, res.Delete(ctx, created.ID))
	items, err = res.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	var got []string
	for _, n := range env.Notifications.All() {
		got = append(got, n.Title)
	}
	assert.Equal(t, []string{"Created!", "Updated!", "Deleted!"}, got)
}

func TestResource_anonymous(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	res := newResource(env)
	env.Identity.SignOut()

	items, err := res.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = res.Create(ctx, &newAssignment{Title: "essay"})
	assert.Equal(t, core.ErrNotAuthenticated, err)
	assert.True(t, core.IsAuthError(err))
	_, err = res.Update(ctx, "some-id", &newAssignment{Title: "essay"})
	assert.Equal(t, core.ErrNotAuthenticated, err)
	assert.Equal(t, core.ErrNotAuthenticated, res.Delete(ctx, "some-id"))

	assert.Equal(t, 0, env.Store.TotalCalls())
}

func TestResource_failures(t *testing.T) {
	ctx := context.Background()
	remoteErr := core.NewRemoteError("insert", 500, "database is on fire", nil)

	tests := []struct {
		name      string
		op        string
		run       func(res *resource.Resource[assignment], id string) error
		wantTitle string
	}{
		{
			name: "create", op: inmemdb.OpInsert, wantTitle: "Error creating",
			run: func(res *resource.Resource[assignment], _ string) error {
				_, err := res.Create(ctx, &newAssignment{Title: "new"})
				return err
			},
		},
		{
			name: "update", op: inmemdb.OpUpdate, wantTitle: "Error updating",
			run: func(res *resource.Resource[assignment], id string) error {
				_, err := res.Update(ctx, id, &newAssignment{Title: "renamed"})
				return err
			},
		},
		{
			name: "delete", op: inmemdb.OpDelete, wantTitle: "Error deleting",
			run: func(res *resource.Resource[assignment], id string) error {
				return res.Delete(ctx, id)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			res := newResource(env)
			row := env.Insert(t, remote.TableAssignments, testutil.Joe, remote.Row{"title": "existing"})
			items, err := res.List(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			before := env.Store.Calls(tt.op)

			env.Store.FailNext(tt.op, remoteErr)
			if err := tt.run(res, row["id"].(string)); err != remoteErr {
				t.Errorf("%s error = %v, wantErr %v", tt.name, err, remoteErr)
			}
			last := env.Notifications.Last()
			assert.Equal(t, tt.wantTitle, last.Title)
			assert.Equal(t, "database is on fire", last.Description)
			assert.True(t, last.Destructive())

			// the cached list is untouched and still served
			items, err = res.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"existing"}, titles(items))
			assert.Equal(t, 1, env.Store.Calls(inmemdb.OpSelect))
			assert.Equal(t, before+1, env.Store.Calls(tt.op), "failed writes are not retried")
		})
	}
}

func TestResource_validation(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	res := newResource(env)

	_, err := res.Create(ctx, &newAssignment{Title: "   "})
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "title", vErr.Fields[0].Field)
	assert.Equal(t, 0, env.Store.TotalCalls())

	last := env.Notifications.Last()
	assert.Equal(t, "Please fill required fields", last.Title)
	assert.Equal(t, "this field is required", last.Description)
}

func TestResource_readError(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	res := newResource(env)

	env.Store.FailNext(inmemdb.OpSelect, core.NewRemoteError("select", 503, "unavailable", nil))
	_, err := res.List(ctx)
	require.Error(t, err)
	assert.True(t, core.IsRemoteError(err))
	assert.Empty(t, env.Notifications.All(), "read errors are left to the caller")

	// errors are not cached
	items, err := res.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, env.Store.Calls(inmemdb.OpSelect))
}

type blockingStore struct {
	remote.Store
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Insert(ctx context.Context, token, table string, row remote.Row) (remote.Row, error) {
	close(s.entered)
	<-s.release
	return s.Store.Insert(ctx, token, table, row)
}

func TestResource_Pending(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	store := &blockingStore{Store: env.Store, entered: make(chan struct{}), release: make(chan struct{})}
	env.Deps.Store = store
	res := newResource(env)

	assert.False(t, res.Pending(resource.OpCreate))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := res.Create(ctx, &newAssignment{Title: "x"})
		assert.NoError(t, err)
	}()

	<-store.entered
	assert.True(t, res.Pending(resource.OpCreate))
	assert.False(t, res.Pending(resource.OpDelete))
	close(store.release)
	wg.Wait()
	assert.False(t, res.Pending(resource.OpCreate))
}

func TestResource_decodeFailureInvalidates(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	var failDecode bool
	res := resource.New(resource.Options[assignment]{
		Deps:     env.Deps,
		Tag:      "assignments",
		Table:    remote.TableAssignments,
		Order:    []core.DBOrdering{core.Asc("title")},
		Messages: messages,
		Decode: func(row remote.Row) (assignment, error) {
			if failDecode {
				return assignment{}, errors.New("bad row")
			}
			var a assignment
			err := remote.Decode(row, &a)
			return a, err
		},
	})

	_, err := res.List(ctx) // warm the cache
	require.NoError(t, err)

	failDecode = true
	_, err = res.Create(ctx, &newAssignment{Title: "essay"})
	require.Error(t, err)
	assert.Equal(t, "Error creating", env.Notifications.Last().Title)
	failDecode = false

	items, err := res.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"essay"}, titles(items), "the stored row is read back")
	assert.Equal(t, 2, env.Store.Calls(inmemdb.OpSelect))
}
