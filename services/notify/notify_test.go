package notifysvc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PWRApex/english-prep-companion/core"
)

func TestQueue(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	q := NewQueue(5 * time.Second)
	q.Notify(core.Success("Exam added successfully!"))
	now = now.Add(3 * time.Second)
	q.Notify(core.Failure("Error deleting exam", "network down"))
	assert.Equal(t, 2, q.Len())

	now = now.Add(3 * time.Second) // the first one expired
	got := q.Drain()
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Error deleting exam", got[0].Title)
		assert.True(t, got[0].Destructive())
	}
	assert.Empty(t, q.Drain())
	assert.NotNil(t, q.Drain())
}

func TestQueue_noTTL(t *testing.T) {
	q := NewQueue(0)
	q.Notify(core.Success("a"))
	q.Notify(core.Success("b"))
	got := q.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
}

func TestWriterAndMulti(t *testing.T) {
	var out bytes.Buffer
	q := NewQueue(time.Minute)
	m := Multi{NewWriter(&out), q, nil}

	m.Notify(core.Success("Welcome!", "Account created successfully!"))
	m.Notify(core.Failure("Sign in failed", "Wrong email or password. Please try again."))

	assert.Equal(t, "✓ Welcome!: Account created successfully!\n✗ Sign in failed: Wrong email or password. Please try again.\n", out.String())
	assert.Equal(t, 2, q.Len())
}
