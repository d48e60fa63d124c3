package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	t.Setenv("MOVI_TEST_KEY", "from-os")
	Env = map[string]string{"MOVI_TEST_KEY": "from-file"}
	defer func() { Env = nil }()

	assert.Equal(t, "from-file", GetEnv("MOVI_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("MOVI_TEST_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"INT_OK":       "42",
		"INT_BAD":      "forty",
		"BOOL_OK":      "true",
		"DURATION_OK":  "1500ms",
		"DURATION_NEG": "-5s",
	}
	defer func() { Env = nil }()

	assert.Equal(t, 42, GetInt("INT_OK", 1))
	assert.Equal(t, 1, GetInt("INT_BAD", 1))
	assert.True(t, GetBool("BOOL_OK", false))
	assert.True(t, GetBool("BOOL_MISSING", true))
	assert.Equal(t, 1500*time.Millisecond, GetDuration("DURATION_OK", time.Second))
	assert.Equal(t, time.Second, GetDuration("DURATION_NEG", time.Second))
}
