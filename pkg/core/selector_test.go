package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	doc := Mapping{"_id": String("pages/home"), "_type": String("page")}

	tests := []struct {
		query string
		match bool
	}{
		{"", true},
		{"*", true},
		{"type:page", true},
		{"type:faq", false},
		{"pages/*", true},
		{"posts/**", false},
		{"**/home", true},
	}
	for _, tt := range tests {
		s, err := ParseSelector(tt.query)
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.match, s.Match(doc), tt.query)
	}

	_, err := ParseSelector("type:")
	assert.Error(t, err)
	_, err = ParseSelector("pages/[")
	assert.Error(t, err)
}
