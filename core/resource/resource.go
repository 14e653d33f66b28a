// Package resource binds one entity type to the remote store: a cached list read scoped to the
// signed-in user, and create/update/delete mutations that invalidate the cache and notify the user.
package resource

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/cache"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

// Operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	ColumnID     = "id"
	ColumnUserID = "user_id"
)

var errEmptyPatch = errors.New("nothing to update")

type (
	// Identity gives access to the current session.
	Identity interface {
		User() (core.User, bool)
		AccessToken() string
	}

	// Input is a form submission: it cleans and validates itself, then encodes to a row.
	Input interface {
		Validate(v *core.Validator) error
		Row() (remote.Row, error)
	}

	// Messages are the notification texts of one resource.
	Messages struct {
		Invalid string // title shown when local validation fails

		Created      string
		Updated      string
		Deleted      string
		CreateFailed string
		UpdateFailed string
		DeleteFailed string
	}

	// Deps are shared by every resource of the process.
	Deps struct {
		Store     remote.Store
		Cache     *cache.Cache
		Identity  Identity
		Notifier  core.Notifier
		Validator *core.Validator
		Logger    core.Logger
	}

	Options[T any] struct {
		Deps

		Tag   string // cache tag
		Table string
		// OwnerColumn scopes every query to the current user; "id" for profiles.
		OwnerColumn string
		Order       []core.DBOrdering
		Messages    Messages
		Decode      func(remote.Row) (T, error)
		// Clone deep copies an item handed out from the cache. Items without
		// reference fields can leave it nil.
		Clone func(T) T
	}

	Resource[T any] struct {
		opts Options[T]

		mu      sync.Mutex
		pending map[string]int
	}
)

func New[T any](opts Options[T]) *Resource[T] {
	if opts.OwnerColumn == "" {
		opts.OwnerColumn = ColumnUserID
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	return &Resource[T]{opts: opts, pending: make(map[string]int)}
}

func (r *Resource[T]) Tag() string { return r.opts.Tag }

// Pending reports whether a mutation of kind `op` is in flight.
func (r *Resource[T]) Pending(op string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[op] > 0
}

func (r *Resource[T]) begin(op string) func() {
	r.mu.Lock()
	r.pending[op]++
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.pending[op]--
		r.mu.Unlock()
	}
}

// List returns the rows owned by the current user in the resource order.
// Without a session it returns an empty list and issues no request.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	usr, ok := r.opts.Identity.User()
	if !ok {
		return []T{}, nil
	}
	key := cache.Key{Tag: r.opts.Tag, Owner: usr.ID}
	items, err := cache.Fetch(ctx, r.opts.Cache, key, func(ctx context.Context) ([]T, error) {
		return r.fetch(ctx, usr)
	})
	if err != nil {
		return nil, err
	}
	out := make([]T, len(items))
	copy(out, items)
	if r.opts.Clone != nil {
		for i := range out {
			out[i] = r.opts.Clone(out[i])
		}
	}
	return out, nil
}

func (r *Resource[T]) fetch(ctx context.Context, usr core.User) ([]T, error) {
	q := remote.From(r.opts.Table).Eq(r.opts.OwnerColumn, usr.ID).OrderBy(r.opts.Order...)
	rows, err := r.opts.Store.Select(ctx, r.opts.Identity.AccessToken(), q)
	if err != nil {
		r.opts.Logger.Error("listing "+r.opts.Table, err, usr)
		return nil, errors.Wrapf(err, "listing %s", r.opts.Table)
	}
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		item, err := r.opts.Decode(row)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", r.opts.Table)
		}
		items = append(items, item)
	}
	return items, nil
}

// Create validates and inserts `in` for the current user.
func (r *Resource[T]) Create(ctx context.Context, in Input) (T, error) {
	var zero T
	defer r.begin(OpCreate)()

	usr, ok := r.opts.Identity.User()
	if !ok {
		return zero, core.ErrNotAuthenticated
	}
	row, err := r.validate(in)
	if err != nil {
		return zero, err
	}
	row[r.opts.OwnerColumn] = usr.ID

	created, err := r.opts.Store.Insert(ctx, r.opts.Identity.AccessToken(), r.opts.Table, row)
	if err != nil {
		return zero, r.fail(r.opts.Messages.CreateFailed, err, usr)
	}
	r.opts.Cache.Invalidate(r.opts.Tag)
	item, err := r.opts.Decode(created)
	if err != nil {
		return zero, r.fail(r.opts.Messages.CreateFailed, err, usr)
	}
	r.succeed(r.opts.Messages.Created)
	return item, nil
}

// Update validates `patch` and applies it to the row `id` of the current user.
func (r *Resource[T]) Update(ctx context.Context, id string, patch Input) (T, error) {
	var zero T
	defer r.begin(OpUpdate)()

	usr, ok := r.opts.Identity.User()
	if !ok {
		return zero, core.ErrNotAuthenticated
	}
	row, err := r.validate(patch)
	if err != nil {
		return zero, err
	}
	if len(row) == 0 {
		err = core.NewValidationError(errEmptyPatch)
		r.notify(core.Failure(r.opts.Messages.Invalid, errEmptyPatch.Error()))
		return zero, err
	}

	updated, err := r.opts.Store.Update(ctx, r.opts.Identity.AccessToken(), r.scope(id, usr), row)
	if err != nil {
		return zero, r.fail(r.opts.Messages.UpdateFailed, err, usr)
	}
	r.opts.Cache.Invalidate(r.opts.Tag)
	item, err := r.opts.Decode(updated)
	if err != nil {
		return zero, r.fail(r.opts.Messages.UpdateFailed, err, usr)
	}
	r.succeed(r.opts.Messages.Updated)
	return item, nil
}

// Delete removes the row `id` of the current user.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	defer r.begin(OpDelete)()

	usr, ok := r.opts.Identity.User()
	if !ok {
		return core.ErrNotAuthenticated
	}
	if err := r.opts.Store.Delete(ctx, r.opts.Identity.AccessToken(), r.scope(id, usr)); err != nil {
		return r.fail(r.opts.Messages.DeleteFailed, err, usr)
	}
	r.opts.Cache.Invalidate(r.opts.Tag)
	r.succeed(r.opts.Messages.Deleted)
	return nil
}

func (r *Resource[T]) scope(id string, usr core.User) remote.Query {
	q := remote.From(r.opts.Table).Eq(ColumnID, id)
	if r.opts.OwnerColumn != ColumnID {
		q = q.Eq(r.opts.OwnerColumn, usr.ID)
	}
	return q
}

func (r *Resource[T]) validate(in Input) (remote.Row, error) {
	if err := in.Validate(r.opts.Validator); err != nil {
		r.notify(core.Failure(r.opts.Messages.Invalid, core.Message(err)))
		return nil, err
	}
	row, err := in.Row()
	if err != nil {
		return nil, errors.Wrap(err, "encoding input")
	}
	return row, nil
}

// fail notifies the failure, the operation is not retried.
func (r *Resource[T]) fail(title string, err error, usr core.User) error {
	r.opts.Logger.Warn(title, err, usr)
	r.notify(core.Failure(title, core.Message(err)))
	return err
}

func (r *Resource[T]) succeed(title string) {
	r.notify(core.Success(title))
}

func (r *Resource[T]) notify(n core.Notification) {
	if r.opts.Notifier != nil && n.Title != "" {
		r.opts.Notifier.Notify(n)
	}
}
