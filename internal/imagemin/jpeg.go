package imagemin

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var errNotJPEG = errors.New("not a jpeg stream")

// stripJPEG drops metadata segments (APP1-APP13, APP15 and comments) before
// the scan data. APP0 (JFIF) and APP14 (Adobe colour transform) are kept
// because decoders depend on them. Entropy-coded data is copied untouched.
func stripJPEG(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errNotJPEG
	}
	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:2])

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, errNotJPEG
		}
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, errNotJPEG
		}
		marker := data[i]
		i++

		switch {
		case marker == 0xD9: // EOI
			out.Write([]byte{0xFF, marker})
			return out.Bytes(), nil
		case marker >= 0xD0 && marker <= 0xD7, marker == 0x01:
			out.Write([]byte{0xFF, marker})
			continue
		}

		if i+2 > len(data) {
			return nil, errNotJPEG
		}
		length := int(binary.BigEndian.Uint16(data[i : i+2]))
		if length < 2 || i+length > len(data) {
			return nil, errNotJPEG
		}
		segment := data[i : i+length]
		i += length

		if marker == 0xDA { // SOS: the rest is scan data
			out.Write([]byte{0xFF, marker})
			out.Write(segment)
			out.Write(data[i:])
			return out.Bytes(), nil
		}
		if isMetadata(marker) {
			continue
		}
		out.Write([]byte{0xFF, marker})
		out.Write(segment)
	}
	return out.Bytes(), nil
}

func isMetadata(marker byte) bool {
	return marker == 0xFE || (marker >= 0xE1 && marker <= 0xED) || marker == 0xEF
}
