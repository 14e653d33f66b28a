package track

import (
	"context"

	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
)

const Tag = "tracks"

var (
	ErrNoSuchItem = errors.New("no such vocabulary item")

	messages = resource.Messages{
		Invalid:      "Please enter a unit name",
		Created:      "Track added successfully!",
		Updated:      "Track updated!",
		Deleted:      "Track deleted!",
		CreateFailed: "Error adding track",
		UpdateFailed: "Error updating track",
		DeleteFailed: "Error deleting track",
	}
)

type Service struct {
	res *resource.Resource[Track]
}

func NewService(deps resource.Deps) *Service {
	return &Service{
		res: resource.New(resource.Options[Track]{
			Deps:     deps,
			Tag:      Tag,
			Table:    remote.TableTracks,
			Order:    []core.DBOrdering{core.Desc("created_at")},
			Messages: messages,
			Decode:   decode,
			Clone:    Track.Clone,
		}),
	}
}

// List returns the tracks of the current user, newest first.
func (svc *Service) List(ctx context.Context) ([]Track, error) {
	return svc.res.List(ctx)
}

// Get returns the track `id` of the current user from the list.
func (svc *Service) Get(ctx context.Context, id string) (Track, error) {
	tracks, err := svc.List(ctx)
	if err != nil {
		return Track{}, err
	}
	for _, t := range tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return Track{}, core.ErrRecordNotFound
}

func (svc *Service) Create(ctx context.Context, nt NewTrack) (Track, error) {
	return svc.res.Create(ctx, &nt)
}

// CreateFromDraft submits `d` and resets it once the track is created.
func (svc *Service) CreateFromDraft(ctx context.Context, d *Draft) (Track, error) {
	t, err := svc.Create(ctx, d.Submit())
	if err != nil {
		return Track{}, err
	}
	d.Reset()
	return t, nil
}

func (svc *Service) Update(ctx context.Context, id string, ut UpdateTrack) (Track, error) {
	return svc.res.Update(ctx, id, &ut)
}

// ToggleLearned flips the learned flag of vocabulary item `index` of `t` and saves the track
// with its recomputed completion.
func (svc *Service) ToggleLearned(ctx context.Context, t Track, index int) (Track, error) {
	if index < 0 || index >= len(t.Vocabulary) {
		return Track{}, ErrNoSuchItem
	}
	vocab := append([]VocabularyItem{}, t.Vocabulary...)
	vocab[index].Learned = !vocab[index].Learned
	topics := append([]string{}, t.GrammarTopics...)
	return svc.Update(ctx, t.ID, UpdateTrack{Vocabulary: &vocab, GrammarTopics: &topics})
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.res.Delete(ctx, id)
}

func (svc *Service) Pending(op string) bool { return svc.res.Pending(op) }
