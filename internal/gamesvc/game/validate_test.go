package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a cat", NormalizeText("  A Cat  "))
	assert.Equal(t, "привет", NormalizeText("ПРИВЕТ"))

	long := strings.Repeat("я", MaxVariantLen+20)
	assert.Len(t, []rune(NormalizeText(long)), MaxVariantLen)
}

func TestValidAlphabet(t *testing.T) {
	assert.True(t, validAlphabet("a red cat"))
	assert.True(t, validAlphabet("привет мир"))
	assert.True(t, validAlphabet("cat 42, дом 7"), "words of different scripts may coexist")
	assert.True(t, validAlphabet("r2d2"))

	assert.False(t, validAlphabet("кoшка"), "latin o inside a cyrillic word")
	assert.False(t, validAlphabet("catя"))
}
