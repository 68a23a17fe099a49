package jsonapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/community"
	"github.com/atas-platform/atas/domain/event"
)

func TestSerializer_UserHidesPasswordHash(t *testing.T) {
	created := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	u := account.RestoreUser(3, "ada@example.com", "$2a$secret", "Ada", account.RoleExpert, created)

	r := NewSerializer().UserResource(u)
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "$2a$secret")
	want := &Resource{
		Type: TypeUser,
		ID:   "3",
		Attributes: UserAttributes{
			Email:     "ada@example.com",
			FullName:  "Ada",
			Role:      "expert",
			CreatedAt: NewDateTime(created),
		},
	}
	if diff := cmp.Diff(want, r, cmp.Comparer(func(a, b DateTime) bool { return a.Time().Equal(b.Time()) })); diff != "" {
		t.Errorf("user resource mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializer_EventOrganizerRelationship(t *testing.T) {
	starts := time.Date(2030, 1, 1, 18, 0, 0, 0, time.UTC)
	e, err := event.NewEvent(9, event.Details{Title: "Go Night", StartsAt: starts})
	require.NoError(t, err)

	r := NewSerializer().EventResource(e)
	attrs, ok := r.Attributes.(EventAttributes)
	require.True(t, ok)
	assert.Nil(t, attrs.EndsAt, "open-ended events omit ends_at")
	assert.Equal(t, "online", attrs.Format)

	rel := r.Relationships["organizer"]
	require.NotNil(t, rel)
	assert.Equal(t, ResourceIdentifier{Type: TypeUser, ID: "9"}, rel.Data)

	raw, err := json.Marshal(NewSingleResponse(r))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"starts_at":"2030-01-01T18:00:00Z"`)
	assert.NotContains(t, string(raw), "ends_at")
}

func TestSerializer_ListsAreNeverNull(t *testing.T) {
	s := NewSerializer()

	raw, err := json.Marshal(NewListResponse(s.PostResources(nil)))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":[]`)

	p, err := community.NewPost(4, "hello")
	require.NoError(t, err)
	r := s.PostResource(p)
	assert.Equal(t, ResourceIdentifier{Type: TypeUser, ID: "4"}, r.Relationships["author"].Data)

	view := account.ExpertView{
		User:    account.RestoreUser(4, "b@example.com", "", "Bo", account.RoleExpert, time.Now()),
		Profile: account.NewProfile(4),
	}
	raw, err = json.Marshal(s.ProfileResource(view))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"skills":[]`)
	assert.Contains(t, string(raw), `"tags":[]`)
}
