// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"bufio"
	"os"
	"strings"

	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
)

// resolvConfPath is the platform resolver configuration file; overridable
// in tests.
var resolvConfPath = "/etc/resolv.conf"

// NameServers reads the OS resolver configuration ("nameserver" lines in
// /etc/resolv.conf, or the platform equivalent) and returns the
// configured server list as IP endpoints (port 0; callers supply the
// transport's default port). Lines that fail to parse are skipped rather
// than aborting the whole read, since a malformed secondary line should
// not hide otherwise-usable servers.
func NameServers() ([]endpoint.Endpoint, error) {
	f, err := os.Open(resolvConfPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var servers []endpoint.Endpoint
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "nameserver") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		addr, err := ipaddr.Parse(fields[1])
		if err != nil {
			continue
		}
		ep, err := endpoint.NewIP(addr, 0)
		if err != nil {
			continue
		}
		servers = append(servers, ep)
	}
	return servers, scanner.Err()
}
