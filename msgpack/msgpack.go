// SPDX-License-Identifier: GPL-3.0-or-later

// Package msgpack implements a MessagePack parser and writer over the
// netcore/sax event contract. The tag-byte table follows the MessagePack
// specification: fixint/fixmap/fixarray/fixstr ranges, nil/false/true,
// bin8-32, float32/64, uint8-64, int8-64, str8-32, array16/32, map16/32,
// all multi-byte headers big-endian. A top-level value must be an array
// or a map; a bare top-level scalar is rejected with
// [github.com/bassosimone/netcore/errclass.InvalidDocument].
package msgpack

// Tag bytes, named per the MessagePack specification.
const (
	tagPositiveFixintMax = 0x7f
	tagFixmapMin         = 0x80
	tagFixmapMax         = 0x8f
	tagFixarrayMin       = 0x90
	tagFixarrayMax       = 0x9f
	tagFixstrMin         = 0xa0
	tagFixstrMax         = 0xbf
	tagNil               = 0xc0
	tagFalse             = 0xc2
	tagTrue              = 0xc3
	tagBin8              = 0xc4
	tagBin16             = 0xc5
	tagBin32             = 0xc6
	tagFloat32           = 0xca
	tagFloat64           = 0xcb
	tagUint8             = 0xcc
	tagUint16            = 0xcd
	tagUint32            = 0xce
	tagUint64            = 0xcf
	tagInt8              = 0xd0
	tagInt16             = 0xd1
	tagInt32             = 0xd2
	tagInt64             = 0xd3
	tagStr8              = 0xd9
	tagStr16             = 0xda
	tagStr32             = 0xdb
	tagArray16           = 0xdc
	tagArray32           = 0xdd
	tagMap16             = 0xde
	tagMap32             = 0xdf
	tagNegativeFixintMin = 0xe0
)
