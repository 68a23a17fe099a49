package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atas-platform/atas/domain"
)

func details() Details {
	start := time.Date(2026, 11, 3, 19, 0, 0, 0, time.UTC)
	return Details{
		Title:       "Go evening",
		Description: "Talks on concurrency",
		Format:      FormatHybrid,
		Location:    "Berlin",
		StartsAt:    start,
		EndsAt:      start.Add(2 * time.Hour),
		Capacity:    30,
	}
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent(1, details())
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, e.Status())
	assert.Equal(t, "Go evening | Talks on concurrency | hybrid | Berlin", EmbeddingText(e))
}

func TestNewEvent_Validation(t *testing.T) {
	d := details()
	d.Title = " "
	_, err := NewEvent(1, d)
	assert.ErrorIs(t, err, domain.ErrValidation)

	d = details()
	d.EndsAt = d.StartsAt.Add(-time.Hour)
	_, err = NewEvent(1, d)
	assert.ErrorIs(t, err, domain.ErrValidation)

	d = details()
	d.Capacity = -1
	_, err = NewEvent(1, d)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEvent_Update(t *testing.T) {
	e, err := NewEvent(1, details())
	require.NoError(t, err)

	d := details()
	d.Capacity = 50
	next, changed, err := e.Update(d)
	require.NoError(t, err)
	assert.False(t, changed, "capacity is not embedded")
	assert.Equal(t, 50, next.Capacity())

	d.Description = "Talks on generics"
	_, changed, err = next.Update(d)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestEvent_Lifecycle(t *testing.T) {
	e, err := NewEvent(1, details())
	require.NoError(t, err)

	published, err := e.Publish()
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status())

	_, err = published.Cancel().Publish()
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("IN_PERSON")
	require.NoError(t, err)
	assert.Equal(t, FormatInPerson, f)

	_, err = ParseFormat("telepathy")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
