package id

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_Format(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	for i := 0; i < 50; i++ {
		s := Session()
		assert.Regexp(t, re, s)
		assert.True(t, IsSession(s))
	}
}

func TestSession_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		s := Session()
		assert.False(t, seen[s], "duplicate session id %s", s)
		seen[s] = true
	}
}

func TestShort(t *testing.T) {
	t.Parallel()

	s := Short()
	assert.Len(t, s, 12)
	assert.Regexp(t, `^[0-9a-f]{12}$`, s)
}

func TestIsSession_Rejects(t *testing.T) {
	t.Parallel()

	assert.False(t, IsSession(""))
	assert.False(t, IsSession("not-a-session"))
	assert.False(t, IsSession("0123456789abcdef0123456789abcdef"))
}
