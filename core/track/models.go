// Package track manages learning units: a vocabulary list and grammar topics with a completion percentage.
package track

import (
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

const (
	columnVocabulary    = "vocabulary"
	columnGrammarTopics = "grammar_topics"
	columnCompletion    = "completion_percentage"
)

type VocabularyItem struct {
	Word    string `json:"word" validate:"notblank"`
	Meaning string `json:"meaning" validate:"notblank"`
	Learned bool   `json:"learned"`
}

type Track struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"user_id"`
	UnitName             string           `json:"unit_name"`
	Vocabulary           []VocabularyItem `json:"vocabulary"`
	GrammarTopics        []string         `json:"grammar_topics"`
	CompletionPercentage int              `json:"completion_percentage"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Clone returns a copy of `t` that shares no list with it.
func (t Track) Clone() Track {
	t.Vocabulary = append([]VocabularyItem{}, t.Vocabulary...)
	t.GrammarTopics = append([]string{}, t.GrammarTopics...)
	return t
}

// Completed reports a track whose every item was learned.
func (t Track) Completed() bool { return t.CompletionPercentage == 100 }

// LearnedCount returns the number of learned vocabulary items.
func (t Track) LearnedCount() int {
	var n int
	for _, item := range t.Vocabulary {
		if item.Learned {
			n++
		}
	}
	return n
}

// Completion is the share of learned vocabulary over every item of the unit (vocabulary and
// grammar topics), as a rounded percentage. A unit without items is 0% complete.
func Completion(vocabulary []VocabularyItem, grammarTopics []string) int {
	total := len(vocabulary) + len(grammarTopics)
	if total == 0 {
		return 0
	}
	var learned int
	for _, item := range vocabulary {
		if item.Learned {
			learned++
		}
	}
	return int(math.Round(100 * float64(learned) / float64(total)))
}

// NewTrack contains information needed to create a track.
type NewTrack struct {
	UnitName      string           `json:"unit_name" validate:"notblank"`
	Vocabulary    []VocabularyItem `json:"vocabulary" validate:"dive"`
	GrammarTopics []string         `json:"grammar_topics" validate:"dive,notblank"`
}

func (nt *NewTrack) Validate(v *core.Validator) error {
	nt.UnitName = core.CleanString(nt.UnitName)
	return v.Struct(nt)
}

// Row encodes the lists as JSON text, the way the tracks table stores them.
func (nt *NewTrack) Row() (remote.Row, error) {
	row := remote.Row{"unit_name": nt.UnitName}
	if err := encodeContent(row, nt.Vocabulary, nt.GrammarTopics); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateTrack defines what may be modified on a track. Both lists are replaced together so the
// completion percentage can be recomputed.
type UpdateTrack struct {
	UnitName      *string           `json:"unit_name,omitempty" validate:"omitempty,notblank"`
	Vocabulary    *[]VocabularyItem `json:"vocabulary,omitempty" validate:"omitempty,dive"`
	GrammarTopics *[]string         `json:"grammar_topics,omitempty" validate:"omitempty,dive,notblank"`
}

func (ut *UpdateTrack) Validate(v *core.Validator) error {
	if ut.UnitName != nil {
		name := core.CleanString(*ut.UnitName)
		ut.UnitName = &name
	}
	switch {
	case ut.Vocabulary != nil && ut.GrammarTopics == nil:
		return core.RequiredFieldError(columnGrammarTopics)
	case ut.Vocabulary == nil && ut.GrammarTopics != nil:
		return core.RequiredFieldError(columnVocabulary)
	}
	return v.Struct(ut)
}

func (ut *UpdateTrack) Row() (remote.Row, error) {
	row := make(remote.Row)
	if ut.UnitName != nil {
		row["unit_name"] = *ut.UnitName
	}
	if ut.Vocabulary != nil && ut.GrammarTopics != nil {
		if err := encodeContent(row, *ut.Vocabulary, *ut.GrammarTopics); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func encodeContent(row remote.Row, vocabulary []VocabularyItem, grammarTopics []string) error {
	if vocabulary == nil {
		vocabulary = []VocabularyItem{}
	}
	if grammarTopics == nil {
		grammarTopics = []string{}
	}
	vocab, err := json.Marshal(vocabulary)
	if err != nil {
		return errors.Wrap(err, "encoding vocabulary")
	}
	topics, err := json.Marshal(grammarTopics)
	if err != nil {
		return errors.Wrap(err, "encoding grammar topics")
	}
	row[columnVocabulary] = string(vocab)
	row[columnGrammarTopics] = string(topics)
	row[columnCompletion] = Completion(vocabulary, grammarTopics)
	return nil
}

// decode reads a tracks row. The lists are stored as JSON text but may also come back as native
// arrays; absent or malformed lists read as empty ones.
func decode(row remote.Row) (Track, error) {
	rest := make(remote.Row, len(row))
	for k, v := range row {
		if k != columnVocabulary && k != columnGrammarTopics {
			rest[k] = v
		}
	}
	var t Track
	if err := remote.Decode(rest, &t); err != nil {
		return Track{}, err
	}
	t.Vocabulary = []VocabularyItem{}
	t.GrammarTopics = []string{}
	decodeList(row[columnVocabulary], &t.Vocabulary)
	decodeList(row[columnGrammarTopics], &t.GrammarTopics)
	return t, nil
}

// decodeList leaves `out` untouched unless `v` holds a well formed list.
func decodeList[T any](v interface{}, out *[]T) {
	var data []byte
	switch val := v.(type) {
	case nil:
		return
	case string:
		data = []byte(val)
	case []byte:
		data = val
	default:
		var err error
		if data, err = json.Marshal(val); err != nil {
			return
		}
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil || list == nil {
		return
	}
	*out = list
}
