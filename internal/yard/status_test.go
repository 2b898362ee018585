package yard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to PublicationState
		want     bool
	}{
		{Draft, Published, true},
		{Draft, Archived, true},
		{Published, Draft, true},
		{Published, Archived, true},
		{Archived, Draft, true},
		{Archived, Published, false},
		{Published, Published, true},
		{"bogus", Draft, false},
		{Draft, "bogus", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestParsePublicationState(t *testing.T) {
	p, ok := ParsePublicationState("archived")
	assert.True(t, ok)
	assert.Equal(t, Archived, p)

	_, ok = ParsePublicationState("sold")
	assert.False(t, ok)
}
