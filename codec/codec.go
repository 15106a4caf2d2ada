// Package codec encodes invitation messages and session records on the
// protobuf wire format. Field numbers are stable: never reuse a number.
package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type fieldReader func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// readFields walks every field of b. Unknown fields are skipped so that
// records written by newer versions still decode.
func readFields(b []byte, read fieldReader) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := read(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}

func wireTypeError(want, got protowire.Type) error {
	return fmt.Errorf("wire type %d, want %d", got, want)
}

func readBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = append([]byte(nil), v...)
	}
	return n, nil
}

func readString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n, nil
}

func readVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, wireTypeError(protowire.VarintType, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n, nil
}

func readID(typ protowire.Type, b []byte, dst *[16]byte) (int, error) {
	var raw []byte
	n, err := readBytes(typ, b, &raw)
	if err != nil || n < 0 {
		return n, err
	}
	if len(raw) != len(dst) {
		return 0, fmt.Errorf("id length %d, want %d", len(raw), len(dst))
	}
	copy(dst[:], raw)
	return n, nil
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendID omits zero ids, which stand for "absent".
func appendID(b []byte, num protowire.Number, id [16]byte) []byte {
	if id == ([16]byte{}) {
		return b
	}
	return appendBytes(b, num, id[:])
}
