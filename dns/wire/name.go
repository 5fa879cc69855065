// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"strings"

	"github.com/bassosimone/netcore/errclass"
)

// maxPointerHops bounds compression-pointer following against malicious
// or malformed packets that would otherwise loop forever.
const maxPointerHops = 32

// maxLabelLen and maxNameLen are the standard DNS wire limits.
const (
	maxLabelLen = 63
	maxNameLen  = 255
)

// EncodeName appends name's wire representation (length-prefixed labels
// terminated by a zero byte) to buf. Per §6, compression is never emitted
// on encode -- only recognized on decode.
func EncodeName(buf []byte, name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return append(buf, 0), nil
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 || len(label) > maxLabelLen {
			return nil, errclass.New(errclass.InvalidParam, "wire: invalid label length")
		}
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	return append(buf, 0), nil
}

// DecodeName decodes a name starting at offset within packet, following
// compression pointers (the top two bits of a length byte set to 11) as
// needed. It returns the decoded name and the offset immediately after the
// local encoding -- a pointer always terminates the local name, so bytes
// consumed by a followed pointer's target do not count toward that offset.
func DecodeName(packet []byte, offset int) (string, int, error) {
	var labels []string
	pos := offset
	endPos := -1 // offset immediately after the local encoding, set once
	hops := 0

	for {
		if pos < 0 || pos >= len(packet) {
			return "", 0, errclass.New(errclass.InvalidParam, "wire: name decode out of bounds")
		}
		length := packet[pos]

		if length&0xc0 == 0xc0 {
			if pos+1 >= len(packet) {
				return "", 0, errclass.New(errclass.InvalidParam, "wire: truncated pointer")
			}
			if endPos == -1 {
				endPos = pos + 2
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, errclass.New(errclass.InvalidParam, "wire: compression pointer loop")
			}
			target := int(length&0x3f)<<8 | int(packet[pos+1])
			pos = target
			continue
		}

		if length&0xc0 != 0 {
			return "", 0, errclass.New(errclass.InvalidParam, "wire: reserved label length bits")
		}

		if length == 0 {
			pos++
			break
		}

		start := pos + 1
		end := start + int(length)
		if end > len(packet) {
			return "", 0, errclass.New(errclass.InvalidParam, "wire: truncated label")
		}
		labels = append(labels, string(packet[start:end]))
		pos = end
	}

	if endPos == -1 {
		endPos = pos
	}

	name := strings.Join(labels, ".")
	if len(name) > maxNameLen {
		return "", 0, errclass.New(errclass.InvalidParam, "wire: name too long")
	}
	return name, endPos, nil
}
