package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	q := Build(
		WithUserID(7),
		WithIDIn([]int64{1, 2}),
		WithContains("go", "title", "bio"),
		WithContains(""),
		WithOrderDesc("created_at"),
	)
	q = Build(append([]Option{func(Query) Query { return q }}, WithPagination(10, 20)...)...)

	conds := q.Conditions()
	assert.Len(t, conds, 2)
	assert.Equal(t, "user_id = 7", conds[0].String())
	assert.True(t, conds[1].In())

	matches := q.Matches()
	assert.Len(t, matches, 1)
	assert.Equal(t, []string{"title", "bio"}, matches[0].Fields())

	assert.False(t, q.Orders()[0].Ascending())
	assert.Equal(t, 10, q.LimitValue())
	assert.Equal(t, 20, q.OffsetValue())
}
