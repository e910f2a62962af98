package session

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lotscan", "session.yaml")
	store := NewStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotSignedIn)

	signedIn := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	want := &Session{
		Token:      "tok-123",
		Username:   "operator1",
		UserID:     "CRN-77",
		Server:     "https://api.example.test",
		Verified:   true,
		MACAddress: "00:1a:2b:3c:4d:5e",
		IPAddress:  "192.168.1.20",
		SignedInAt: signedIn,
	}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "session holds a token and must be private")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.UserID, got.UserID)
	assert.True(t, got.Verified)
	assert.True(t, signedIn.Equal(got.SignedInAt))

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestStore_Load_Errors(t *testing.T) {
	t.Run("file without token", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte("username: someone\n"), 0600))

		_, err := NewStore(path).Load()
		assert.ErrorIs(t, err, ErrNotSignedIn)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte("token: [unclosed\n"), 0600))

		_, err := NewStore(path).Load()
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotSignedIn))
		assert.Contains(t, err.Error(), "failed to parse session file")
	})
}

func TestPickNetwork(t *testing.T) {
	mac := func(s string) net.HardwareAddr {
		hw, err := net.ParseMAC(s)
		require.NoError(t, err)
		return hw
	}
	ipnet := func(s string) *net.IPNet {
		return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
	}

	ifaces := []net.Interface{
		{Index: 1, Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Index: 2, Name: "eth0", Flags: 0, HardwareAddr: mac("00:00:00:00:00:01")},
		{Index: 3, Name: "wlan0", Flags: net.FlagUp, HardwareAddr: mac("00:1a:2b:3c:4d:5e")},
	}
	addrs := map[string][]net.Addr{
		"lo":    {ipnet("127.0.0.1")},
		"eth0":  {ipnet("10.0.0.5")},
		"wlan0": {&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}, ipnet("192.168.1.20")},
	}

	got := pickNetwork(ifaces, func(iface net.Interface) ([]net.Addr, error) {
		return addrs[iface.Name], nil
	})
	assert.Equal(t, Network{MACAddress: "00:1a:2b:3c:4d:5e", IPAddress: "192.168.1.20"}, got)

	none := pickNetwork(ifaces[:2], func(iface net.Interface) ([]net.Addr, error) {
		return addrs[iface.Name], nil
	})
	assert.Equal(t, Network{}, none)
}
