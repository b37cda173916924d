package ble

import (
	"context"
	"io"
)

// Conn is the transport this module is built against: a message-oriented,
// framed byte channel standing in for an L2CAP connection-oriented
// channel [Vol 3, Part A]. Each Read/Write carries exactly one ATT PDU;
// message boundaries are the transport's responsibility, never
// reassembled here. The real L2CAP socket lives outside this module;
// this package defines the interface plus a loopback implementation for
// tests, not a real L2CAP socket.
type Conn interface {
	io.ReadWriteCloser

	// Context returns the context associated with this Conn.
	Context() context.Context

	// SetContext replaces the context associated with this Conn.
	SetContext(ctx context.Context)

	// LocalAddr returns the local device's address.
	LocalAddr() Addr

	// RemoteAddr returns the remote device's address.
	RemoteAddr() Addr

	// ReadRSSI returns the remote device's RSSI, if the transport can
	// report one.
	ReadRSSI() (int8, error)

	// RxMTU returns the ATT_MTU the local device is willing to accept.
	RxMTU() int

	// SetRxMTU sets the ATT_MTU the local device is willing to accept.
	SetRxMTU(mtu int)

	// TxMTU returns the ATT_MTU the remote device has agreed to accept.
	TxMTU() int

	// SetTxMTU records the ATT_MTU the remote device has agreed to
	// accept, once MTU exchange completes.
	SetTxMTU(mtu int)

	// Disconnected returns a channel that is closed when the connection
	// is torn down, by either side or by a transport error.
	Disconnected() <-chan struct{}
}
