package ble

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// UUID is a Bluetooth UUID, stored in the byte order it appears on the
// ATT wire: little-endian, 2, 4, or 16 bytes long.
type UUID []byte

// UUID16 constructs a UUID from a 16-bit Bluetooth SIG-assigned number.
func UUID16(i uint16) UUID {
	return UUID([]byte{uint8(i), uint8(i >> 8)})
}

// UUID32 constructs a UUID from a 32-bit Bluetooth SIG-assigned number.
// 32-bit UUIDs never appear in Find Information, Find By Type Value, or
// Read By Type requests on the wire; callers that need one there must
// expand it to 128 bits first.
func UUID32(i uint32) UUID {
	return UUID([]byte{
		uint8(i), uint8(i >> 8), uint8(i >> 16), uint8(i >> 24),
	})
}

// UUID128 wraps a 16-byte slice as a 128-bit UUID. It panics if b is not
// exactly 16 bytes, since a malformed 128-bit UUID is a programmer error,
// not a runtime condition.
func UUID128(b []byte) UUID {
	if len(b) != 16 {
		panic(fmt.Sprintf("ble: UUID128 requires 16 bytes, got %d", len(b)))
	}
	u := make(UUID, 16)
	copy(u, b)
	return u
}

// Parse parses the canonical, dashed, big-endian textual form of a UUID
// ("0000180d-0000-1000-8000-00805f9b34fb", or a bare 4-hex-digit short
// form like "180d") and returns it in ATT wire (little-endian) order.
func Parse(s string) (UUID, error) {
	s = strings.ReplaceAll(s, "-", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("ble: invalid UUID %q: %w", s, err)
	}
	switch len(b) {
	case 2, 4, 16:
	default:
		return nil, fmt.Errorf("ble: invalid UUID length %q: %d bytes", s, len(b))
	}
	return reverse(b), nil
}

// MustParse is like Parse but panics on error. Intended for package-level
// UUID literals and tests, where the input is a compile-time constant.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func reverse(b []byte) UUID {
	u := make(UUID, len(b))
	for i, c := range b {
		u[len(b)-1-i] = c
	}
	return u
}

// Len returns the width of the UUID in bytes: 2, 4, or 16.
func (u UUID) Len() int { return len(u) }

// Equal reports whether u and v represent the same UUID.
func (u UUID) Equal(v UUID) bool { return bytes.Equal(u, v) }

// String renders the canonical big-endian textual form.
func (u UUID) String() string {
	b := reverse(u)
	x := hex.EncodeToString(b)
	if len(b) != 16 {
		return x
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", x[0:8], x[8:12], x[12:16], x[16:20], x[20:32])
}

// MarshalJSON renders the UUID the same canonical textual form String
// does, rather than the base64 a bare []byte would otherwise produce.
func (u UUID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON parses the canonical textual form produced by MarshalJSON.
func (u *UUID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Contains reports whether uuid appears in uuids.
func Contains(uuids []UUID, uuid UUID) bool {
	for _, u := range uuids {
		if u.Equal(uuid) {
			return true
		}
	}
	return false
}
