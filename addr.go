package ble

import "fmt"

// Addr identifies a remote peer on the transport. Resolving it to a real
// link-layer address is HCI's job; here it is an opaque, comparable
// identity carried by Conn.RemoteAddr.
type Addr interface {
	String() string
	Equal(Addr) bool
}

// BDAddr is a 6-byte device address, the common case for an Addr
// implementation over a real L2CAP transport.
type BDAddr [6]byte

// NewBDAddr constructs a BDAddr from 6 bytes, in the order the transport
// hands them over (big-endian, most significant byte first).
func NewBDAddr(b [6]byte) BDAddr { return BDAddr(b) }

func (a BDAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Equal reports whether other is a BDAddr with the same bytes.
func (a BDAddr) Equal(other Addr) bool {
	b, ok := other.(BDAddr)
	return ok && a == b
}
