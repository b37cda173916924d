// Package loopback provides an in-process ble.Conn pair with no real
// transport underneath it, for exercising the att/gatt engines in tests
// and in the attgatt-probe demo without a Bluetooth controller.
package loopback

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/leso-kn/attgatt"
)

type pipe struct {
	aToB   chan []byte
	bToA   chan []byte
	closed chan struct{}
	once   sync.Once
}

func (p *pipe) close() {
	p.once.Do(func() { close(p.closed) })
}

// Conn is one end of a loopback pipe.
type Conn struct {
	p          *pipe
	send, recv chan []byte
	local      ble.Addr
	remote     ble.Addr

	rxMTU, txMTU int32

	ctxMu sync.Mutex
	ctx   context.Context
}

var _ ble.Conn = (*Conn)(nil)

// NewPair returns two connected Conns: writes on one arrive as reads on
// the other, framed one ATT PDU per Write/Read pair.
func NewPair(localAddr, remoteAddr ble.Addr) (client, server *Conn) {
	p := &pipe{
		aToB:   make(chan []byte, 16),
		bToA:   make(chan []byte, 16),
		closed: make(chan struct{}),
	}
	client = &Conn{
		p: p, send: p.aToB, recv: p.bToA,
		local: localAddr, remote: remoteAddr,
		rxMTU: ble.DefaultMTU, txMTU: ble.DefaultMTU,
		ctx: context.Background(),
	}
	server = &Conn{
		p: p, send: p.bToA, recv: p.aToB,
		local: remoteAddr, remote: localAddr,
		rxMTU: ble.DefaultMTU, txMTU: ble.DefaultMTU,
		ctx: context.Background(),
	}
	return client, server
}

func (c *Conn) Read(buf []byte) (int, error) {
	select {
	case frame, ok := <-c.recv:
		if !ok {
			return 0, io.EOF
		}
		if len(frame) > len(buf) {
			return 0, io.ErrShortBuffer
		}
		return copy(buf, frame), nil
	case <-c.p.closed:
		return 0, io.EOF
	}
}

func (c *Conn) Write(b []byte) (int, error) {
	frame := append([]byte(nil), b...)
	select {
	case c.send <- frame:
		return len(b), nil
	case <-c.p.closed:
		return 0, io.ErrClosedPipe
	}
}

func (c *Conn) Close() error {
	c.p.close()
	return nil
}

func (c *Conn) Context() context.Context {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	return c.ctx
}

func (c *Conn) SetContext(ctx context.Context) {
	c.ctxMu.Lock()
	c.ctx = ctx
	c.ctxMu.Unlock()
}

func (c *Conn) LocalAddr() ble.Addr  { return c.local }
func (c *Conn) RemoteAddr() ble.Addr { return c.remote }

func (c *Conn) ReadRSSI() (int8, error) { return 0, nil }

func (c *Conn) RxMTU() int        { return int(atomic.LoadInt32(&c.rxMTU)) }
func (c *Conn) SetRxMTU(mtu int)  { atomic.StoreInt32(&c.rxMTU, int32(mtu)) }
func (c *Conn) TxMTU() int        { return int(atomic.LoadInt32(&c.txMTU)) }
func (c *Conn) SetTxMTU(mtu int)  { atomic.StoreInt32(&c.txMTU, int32(mtu)) }

func (c *Conn) Disconnected() <-chan struct{} { return c.p.closed }
