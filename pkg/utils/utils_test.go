package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LX_STR", "value")
	t.Setenv("LX_INT", "42")
	t.Setenv("LX_BAD_INT", "-3")
	t.Setenv("LX_BOOL", "true")
	t.Setenv("LX_DUR", "3s")
	t.Setenv("LX_LIST", " redis, ,clickhouse ,")

	assert.Equal(t, "value", Env("LX_STR", "def"))
	assert.Equal(t, "def", Env("LX_MISSING", "def"))
	assert.Equal(t, 42, EnvInt("LX_INT", 1))
	assert.Equal(t, 1, EnvInt("LX_BAD_INT", 1))
	assert.Equal(t, int64(42), EnvInt64("LX_INT", 7))
	assert.Equal(t, uint64(42), EnvUint64("LX_INT", 7))
	assert.True(t, EnvBool("LX_BOOL", false))
	assert.Equal(t, 3*time.Second, EnvDuration("LX_DUR", time.Second))
	assert.Equal(t, []string{"redis", "clickhouse"}, EnvList("LX_LIST", nil))
	assert.Equal(t, []string{"x"}, EnvList("LX_MISSING", []string{"x"}))
}

func TestDedupAndChunk(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, Dedup([]string{"http://a/", "http://b", "http://a"}))

	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{5}, chunks[2])
	assert.Nil(t, Chunk([]int{}, 2))
}

func TestBlake2b256Hex(t *testing.T) {
	// blake2b-256 of the empty string
	assert.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", Blake2b256Hex(nil))
}
