package port

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// occupy binds a loopback port chosen by the OS and returns it.
func occupy(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

func TestIsAvailable(t *testing.T) {
	s := NewScanner("127.0.0.1")

	used := occupy(t)
	assert.False(t, s.IsAvailable(used), "port %d is bound by the test", used)

	free, err := s.FindAvailable(50000, 50100)
	require.NoError(t, err)
	assert.True(t, s.IsAvailable(free))
}

func TestIsAvailable_OutOfRange(t *testing.T) {
	s := NewScanner("127.0.0.1")
	for _, p := range []int{-1, 0, 65536} {
		t.Run(strconv.Itoa(p), func(t *testing.T) {
			assert.False(t, s.IsAvailable(p))
		})
	}
}

func TestResolve(t *testing.T) {
	s := NewScanner("127.0.0.1")

	t.Run("preferred port is taken", func(t *testing.T) {
		used := occupy(t)
		got, err := s.Resolve(used, 10)
		require.NoError(t, err)
		assert.NotEqual(t, used, got)
		assert.Greater(t, got, used)
		assert.LessOrEqual(t, got, used+10)
	})

	t.Run("no span leaves no fallback", func(t *testing.T) {
		used := occupy(t)
		_, err := s.Resolve(used, 0)
		assert.Error(t, err)
	})

	t.Run("invalid preferred port", func(t *testing.T) {
		_, err := s.Resolve(0, DefaultSpan)
		assert.EqualError(t, err, "invalid port 0 (must be 1-65535)")
	})
}

func TestUsedPorts(t *testing.T) {
	s := NewScanner("127.0.0.1")

	t.Run("bound port is listed", func(t *testing.T) {
		used := occupy(t)
		assert.Equal(t, []int{used}, s.UsedPorts(used, used))
	})

	t.Run("skipped ports before a fallback", func(t *testing.T) {
		used := occupy(t)
		got, err := s.Resolve(used, 10)
		require.NoError(t, err)
		assert.Contains(t, s.UsedPorts(used, got-1), used)
		assert.NotContains(t, s.UsedPorts(used, got-1), got)
	})

	t.Run("free range", func(t *testing.T) {
		free, err := s.FindAvailable(50000, 50100)
		require.NoError(t, err)
		assert.Empty(t, s.UsedPorts(free, free))
	})

	t.Run("empty range", func(t *testing.T) {
		assert.Nil(t, s.UsedPorts(10, 9))
	})
}
