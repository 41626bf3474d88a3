package ranking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		size    int
		want    ScoreMap
		dropped int
	}{
		{
			name: "plain object",
			raw:  `{"matches":[{"ordinal":2,"matchScore":80,"reason":"partial"}]}`,
			size: 2,
			want: ScoreMap{2: {Score: 80, Reason: "partial"}},
		},
		{
			name: "surrounding prose and fences",
			raw:  "Sure! Here is the ranking:\n```json\n{\"matches\": [{\"ordinal\": 1, \"matchScore\": 90, \"reason\": \"great {fit}\"}]}\n```\nGood luck.",
			size: 1,
			want: ScoreMap{1: {Score: 90, Reason: "great {fit}"}},
		},
		{
			name: "invalid braces before payload",
			raw:  `note {not json} then {"matches":[{"ordinal":1,"matchScore":10,"reason":"r"}]}`,
			size: 1,
			want: ScoreMap{1: {Score: 10, Reason: "r"}},
		},
		{
			name: "empty matches",
			raw:  `{"matches": []}`,
			size: 3,
			want: ScoreMap{},
		},
		{
			name:    "out of range ordinals dropped",
			raw:     `{"matches":[{"ordinal":0,"matchScore":1},{"ordinal":4,"matchScore":2},{"ordinal":3,"matchScore":3,"reason":"ok"}]}`,
			size:    3,
			want:    ScoreMap{3: {Score: 3, Reason: "ok"}},
			dropped: 2,
		},
		{
			name:    "malformed entries dropped",
			raw:     `{"matches":[7,{"ordinal":"x","matchScore":5},{"ordinal":1.5,"matchScore":5},{"ordinal":1},{"ordinal":2,"matchScore":"high"},{"ordinal":1,"matchScore":55}]}`,
			size:    2,
			want:    ScoreMap{},
			dropped: 6,
		},
		{
			name:    "malformed first occurrence still claims the ordinal",
			raw:     `{"matches":[{"ordinal":1,"matchScore":"high"},{"ordinal":1,"matchScore":99,"reason":"second"},{"ordinal":2,"matchScore":40}]}`,
			size:    2,
			want:    ScoreMap{2: {Score: 40}},
			dropped: 2,
		},
		{
			name: "object without matches before payload",
			raw:  `Use the format {"ordinal": 1} for each item. {"matches":[{"ordinal":1,"matchScore":77,"reason":"fit"}]}`,
			size: 1,
			want: ScoreMap{1: {Score: 77, Reason: "fit"}},
		},
		{
			name: "lenient numbers",
			raw:  `{"matches":[{"ordinal":"1","matchScore":"70"},{"ordinal":2.0,"matchScore":64.6,"reason":"  spaced  "}]}`,
			size: 2,
			want: ScoreMap{1: {Score: 70}, 2: {Score: 65, Reason: "spaced"}},
		},
		{
			name:    "first duplicate wins",
			raw:     `{"matches":[{"ordinal":1,"matchScore":20,"reason":"first"},{"ordinal":1,"matchScore":99,"reason":"second"}]}`,
			size:    1,
			want:    ScoreMap{1: {Score: 20, Reason: "first"}},
			dropped: 1,
		},
		{
			name: "out of range scores kept for clamping",
			raw:  `{"matches":[{"ordinal":1,"matchScore":140},{"ordinal":2,"matchScore":-3}]}`,
			size: 2,
			want: ScoreMap{1: {Score: 140}, 2: {Score: -3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseResponse(tt.raw, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Scores)
			assert.Equal(t, tt.dropped, got.Dropped)
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "no object", raw: "I cannot help with that."},
		{name: "unbalanced", raw: `{"matches": [{"ordinal": 1}`},
		{name: "missing matches", raw: `{"results": []}`},
		{name: "matches not a list", raw: `{"matches": {"ordinal": 1}}`},
		{name: "matches null", raw: `{"matches": null}`},
		{name: "top level array", raw: `[{"ordinal": 1, "matchScore": 3}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseResponse(tt.raw, 3)
			require.Error(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %T", err)
		})
	}
}

func TestExtractObject(t *testing.T) {
	t.Parallel()

	object, ok := extractObject(`prefix {"a": "}\"{", "b": {"c": 1}} suffix {"d": 2}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}\"{", "b": {"c": 1}}`, object)

	object, ok = extractObject(`{"ordinal": 1} then {"matches": []}`)
	require.True(t, ok)
	assert.Equal(t, `{"matches": []}`, object)

	_, ok = extractObject("no braces here")
	assert.False(t, ok)
}
