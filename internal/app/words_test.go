package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWordPack(t *testing.T) {
	assert.True(t, IsWordPack("Simple words"))
	assert.True(t, IsWordPack("Animals"))
	assert.False(t, IsWordPack("No Such Pack"))
	assert.False(t, IsWordPack(""))
}

func TestWordPackNames(t *testing.T) {
	names := WordPackNames()
	assert.Len(t, names, len(WordPacks))
	assert.Contains(t, names, DefaultWordPack)
}

func TestRandomWord(t *testing.T) {
	word := RandomWord("Animals")
	assert.Contains(t, WordPacks["Animals"], word)

	// Unknown packs fall back to the default pack.
	fallback := RandomWord("No Such Pack")
	assert.Contains(t, WordPacks[DefaultWordPack], fallback)
}

func TestRandomWordExcluding(t *testing.T) {
	pack := WordPacks["Animals"]
	excluded := pack[:len(pack)-1]

	for i := 0; i < 20; i++ {
		word := RandomWordExcluding("Animals", excluded)
		require.Equal(t, pack[len(pack)-1], word)
	}
}
