package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserHomeFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	assert.Equal(t, dir, UserHome())
}
