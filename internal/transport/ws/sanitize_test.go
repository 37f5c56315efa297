package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "Alice", "Alice"},
		{"simple tag", "<b>Alice</b>", "Alice"},
		{"script tag", "<script>alert(1)</script>Bob", "alert(1)Bob"},
		{"unterminated tag", "Alice<script", "Alice"},
		{"nested tags", "<<b>>Alice", "Alice"},
		{"stray closer is dropped", "Alice> Cooper", "Alice Cooper"},
		{"surrounding whitespace", "  Alice  ", "Alice"},
		{"emoji survive", "🎨 Artist", "🎨 Artist"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripTags(tt.input))
		})
	}
}

func TestAsTimeLimit(t *testing.T) {
	v, ok := asTimeLimit(float64(30))
	assert.True(t, ok)
	assert.Equal(t, 30, v)

	v, ok = asTimeLimit(nil)
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	// false means the client never picked a limit.
	_, ok = asTimeLimit(false)
	assert.False(t, ok)

	_, ok = asTimeLimit("30")
	assert.False(t, ok)
}

func TestAsWordPack(t *testing.T) {
	pack, wordFirst := asWordPack("Animals")
	assert.Equal(t, "Animals", pack)
	assert.False(t, wordFirst)

	pack, wordFirst = asWordPack(false)
	assert.Equal(t, "", pack)
	assert.True(t, wordFirst)

	pack, wordFirst = asWordPack(nil)
	assert.Equal(t, "", pack)
	assert.True(t, wordFirst)
}
