// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withResolvConf(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	prev := resolvConfPath
	resolvConfPath = path
	t.Cleanup(func() { resolvConfPath = prev })
}

func TestNameServersParsesResolvConf(t *testing.T) {
	withResolvConf(t, "domain example.com\nnameserver 127.0.0.1\nnameserver ::1\n")

	servers, err := NameServers()
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "127.0.0.1", servers[0].Address().String())
	assert.Equal(t, "::1", servers[1].Address().String())
	assert.Equal(t, uint16(0), servers[0].Port())
}

func TestNameServersSkipsMalformedLines(t *testing.T) {
	withResolvConf(t, "nameserver not-an-address\nnameserver 8.8.8.8\nnameserver\n")

	servers, err := NameServers()
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "8.8.8.8", servers[0].Address().String())
}

func TestNameServersMissingFile(t *testing.T) {
	prev := resolvConfPath
	resolvConfPath = filepath.Join(t.TempDir(), "does-not-exist")
	t.Cleanup(func() { resolvConfPath = prev })

	_, err := NameServers()
	assert.Error(t, err)
}
