// Binary encoding for stored keyword lists.
//
// Keyword sets are stored as a compact length-prefixed list rather than JSON:
// no quoting or escaping of the CJK-heavy keyword text, and decoding is a
// single pass with no reflection.
//
// Format (little-endian):
//
//	version:  uint8 (encodingVersion)
//	count:    uint32
//	per keyword:
//	  len:    uint16
//	  bytes:  [len]byte
package bbolt

import (
	"encoding/binary"
	"fmt"
)

const encodingVersion = 1

// encodeKeywords encodes a keyword list in order. A single buffer is
// pre-allocated to avoid repeated growth.
func encodeKeywords(keywords []string) ([]byte, error) {
	size := 1 + 4
	for _, kw := range keywords {
		if len(kw) > 65535 {
			return nil, fmt.Errorf("keyword too long: %d bytes", len(kw))
		}
		size += 2 + len(kw)
	}

	buf := make([]byte, size)
	buf[0] = encodingVersion
	offset := 1

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(keywords)))
	offset += 4

	for _, kw := range keywords {
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(kw)))
		offset += 2
		offset += copy(buf[offset:], kw)
	}
	return buf, nil
}

// decodeKeywords decodes a keyword list. Every read is bounds-checked to
// avoid panics on corrupt data.
func decodeKeywords(data []byte) ([]string, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("keyword list too short: %d bytes", len(data))
	}
	if data[0] != encodingVersion {
		return nil, fmt.Errorf("unsupported keyword encoding version %d", data[0])
	}
	offset := 1

	count := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	// Each entry needs at least its length prefix.
	if uint64(count)*2 > uint64(len(data)-offset) {
		return nil, fmt.Errorf("keyword count %d exceeds data size", count)
	}

	keywords := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("truncated at keyword %d length (offset %d)", i, offset)
		}
		n := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		if offset+n > len(data) {
			return nil, fmt.Errorf("truncated at keyword %d (offset %d, need %d)", i, offset, n)
		}
		keywords = append(keywords, string(data[offset:offset+n]))
		offset += n
	}

	if offset != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after %d keywords", len(data)-offset, count)
	}
	return keywords, nil
}
