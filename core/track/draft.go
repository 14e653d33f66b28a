package track

import (
	"strings"
	"sync"
)

// Draft is the local state of the track form: items are added one at a time and the whole
// draft is submitted once.
type Draft struct {
	mu            sync.Mutex
	unitName      string
	vocabulary    []VocabularyItem
	grammarTopics []string
}

func (d *Draft) SetUnitName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unitName = name
}

// AddVocabulary appends a word and its meaning. Blank words or meanings are ignored.
func (d *Draft) AddVocabulary(word, meaning string) bool {
	word, meaning = strings.TrimSpace(word), strings.TrimSpace(meaning)
	if word == "" || meaning == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vocabulary = append(d.vocabulary, VocabularyItem{Word: word, Meaning: meaning})
	return true
}

func (d *Draft) RemoveVocabulary(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.vocabulary) {
		return false
	}
	d.vocabulary = append(d.vocabulary[:i:i], d.vocabulary[i+1:]...)
	return true
}

// AddGrammarTopic appends a topic. Blank topics are ignored.
func (d *Draft) AddGrammarTopic(topic string) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grammarTopics = append(d.grammarTopics, topic)
	return true
}

func (d *Draft) RemoveGrammarTopic(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.grammarTopics) {
		return false
	}
	d.grammarTopics = append(d.grammarTopics[:i:i], d.grammarTopics[i+1:]...)
	return true
}

func (d *Draft) Vocabulary() []VocabularyItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]VocabularyItem{}, d.vocabulary...)
}

func (d *Draft) GrammarTopics() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.grammarTopics...)
}

// Submit returns the track to create. No item is learned yet.
func (d *Draft) Submit() NewTrack {
	d.mu.Lock()
	defer d.mu.Unlock()
	vocab := make([]VocabularyItem, len(d.vocabulary))
	for i, item := range d.vocabulary {
		item.Learned = false
		vocab[i] = item
	}
	return NewTrack{
		UnitName:      d.unitName,
		Vocabulary:    vocab,
		GrammarTopics: append([]string{}, d.grammarTopics...),
	}
}

// Reset empties the draft.
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unitName = ""
	d.vocabulary = nil
	d.grammarTopics = nil
}
