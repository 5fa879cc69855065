// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withServicesFile(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	prev := servicesPath
	servicesPath = path
	t.Cleanup(func() { servicesPath = prev })
}

func TestResolveServiceFromFile(t *testing.T) {
	withServicesFile(t, "# comment\ndomain\t53/udp\nssh\t22/tcp  # remote shell\n")

	port, ok := ResolveService("ssh")
	require.True(t, ok)
	assert.Equal(t, uint16(22), port)
}

func TestResolveServiceFallsBackWhenFileMissing(t *testing.T) {
	prev := servicesPath
	servicesPath = filepath.Join(t.TempDir(), "does-not-exist")
	t.Cleanup(func() { servicesPath = prev })

	port, ok := ResolveService("domain")
	require.True(t, ok)
	assert.Equal(t, PortDNS, port)
}

func TestResolveServiceUnknown(t *testing.T) {
	withServicesFile(t, "domain\t53/udp\n")

	_, ok := ResolveService("not-a-real-service")
	assert.False(t, ok)
}
