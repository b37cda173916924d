package att

import (
	"fmt"
	"sync/atomic"

	"github.com/leso-kn/attgatt"
)

// NotificationFunc is invoked with the raw value of a Handle Value
// Notification delivered on handle.
type NotificationFunc func(handle uint16, value []byte)

// IndicationFunc is invoked with the raw value of a Handle Value
// Indication delivered on handle, before the confirmation is written.
type IndicationFunc func(handle uint16, value []byte)

// completion is invoked exactly once for every request handed to
// SendRequest: with the raw response frame on success, or with a non-nil
// err (a ble.ATTError, or an error wrapping ble.ErrTransportClosed)
// otherwise. Malformed inbound frames are dropped by the dispatcher and
// never complete a request.
type completion func(frame []byte, err error)

type pendingTx struct {
	pdu        []byte
	reqOpcode  Opcode
	expectedOp Opcode
	done       completion
}

// Connection is the ATT connection engine: it owns the transport,
// negotiates MTU, serializes outbound PDUs behind the one-pending-request
// gate, and dispatches inbound notifications, indications, and confirmed
// responses [Vol 3, Part F, 3.3].
//
// Internally it is a single goroutine ("the loop", started by RunWrite)
// that owns the pending-transaction slot and the FIFO send queue; every
// other goroutine — including the reader goroutine started by RunRead —
// only ever reaches those over channels. The notification and indication
// handlers are held in atomic values and may be replaced from any
// goroutine.
// This gives the required single-outstanding-transaction semantics a
// concrete, race-free shape without a mutex shared between the read and
// write paths.
type Connection struct {
	conn   ble.Conn
	logger ble.Logger

	mtu int32 // atomic; effective ATT_MTU, ble.MinMTU until negotiated

	reqCh   chan *pendingTx
	cmdCh   chan []byte
	inCh    chan []byte
	inErrCh chan error
	closeCh chan struct{}
	closed  chan struct{}

	notify   atomic.Value // NotificationFunc
	indicate atomic.Value // IndicationFunc
}

// NewConnection returns a Connection ready to run. Call RunRead and
// RunWrite, each in its own goroutine, before issuing any request.
func NewConnection(conn ble.Conn, logger ble.Logger) *Connection {
	if logger == nil {
		logger = ble.NewLogger("att")
	}
	c := &Connection{
		conn:    conn,
		logger:  logger.ChildLogger(map[string]interface{}{"remote": conn.RemoteAddr().String()}),
		mtu:     ble.MinMTU,
		reqCh:   make(chan *pendingTx, 16),
		cmdCh:   make(chan []byte, 16),
		inCh:    make(chan []byte, 16),
		inErrCh: make(chan error, 1),
		closeCh: make(chan struct{}),
		closed:  make(chan struct{}),
	}
	return c
}

// MTU returns the current effective ATT_MTU.
func (c *Connection) MTU() int { return int(atomic.LoadInt32(&c.mtu)) }

// SetMTU forces the effective ATT_MTU, clamped to [ble.MinMTU, ble.MaxMTU].
// ExchangeMTU calls this once negotiation completes; tests may call it
// directly to exercise chunking without a real exchange.
func (c *Connection) SetMTU(mtu uint16) {
	m := int32(mtu)
	if m < ble.MinMTU {
		m = ble.MinMTU
	}
	if m > ble.MaxMTU {
		m = ble.MaxMTU
	}
	atomic.StoreInt32(&c.mtu, m)
}

// SetNotificationHandler installs the callback invoked for every inbound
// Handle Value Notification. Passing nil disables delivery (the frame is
// simply dropped, logged at Warn).
func (c *Connection) SetNotificationHandler(h NotificationFunc) { c.notify.Store(h) }

// SetIndicationHandler installs the callback invoked for every inbound
// Handle Value Indication, before its confirmation is written.
func (c *Connection) SetIndicationHandler(h IndicationFunc) { c.indicate.Store(h) }

// SendRequest enqueues pdu (whose opcode must be a request opcode, e.g.
// ReadRequestCode) for transmission. If no request is currently pending
// on this bearer, it is written immediately; otherwise it waits in FIFO
// order. done is invoked exactly once, from the loop goroutine, with the
// raw response frame or an error. Returns ble.ErrTransportClosed
// immediately if the connection has already closed.
func (c *Connection) SendRequest(pdu []byte, done completion) error {
	reqOp := Opcode(pdu[0])
	expectedOp, ok := ResponseFor(reqOp)
	if !ok {
		return fmt.Errorf("att: %w: opcode %s is not a request", ble.ErrInvalidArgument, reqOp)
	}
	tx := &pendingTx{pdu: pdu, reqOpcode: reqOp, expectedOp: expectedOp, done: done}
	select {
	case <-c.closed:
		return ble.ErrTransportClosed
	default:
	}
	select {
	case c.reqCh <- tx:
		return nil
	case <-c.closed:
		return ble.ErrTransportClosed
	}
}

// Do is a blocking convenience over SendRequest for callers (GATT
// procedures) that don't need async completion: it enqueues pdu and
// blocks until the matching response, an error response, or a
// disconnection completes it.
func (c *Connection) Do(pdu []byte) ([]byte, error) {
	type result struct {
		frame []byte
		err   error
	}
	resCh := make(chan result, 1)
	if err := c.SendRequest(pdu, func(frame []byte, err error) {
		resCh <- result{frame, err}
	}); err != nil {
		return nil, err
	}
	r := <-resCh
	return r.frame, r.err
}

// SendCommand transmits pdu immediately, bypassing the pending-request
// gate: commands, notifications, indications, and confirmations are not
// subject to the one-outstanding-request rule [Vol 3, Part F, 3.3.3].
func (c *Connection) SendCommand(pdu []byte) error {
	select {
	case c.cmdCh <- pdu:
		return nil
	case <-c.closed:
		return ble.ErrTransportClosed
	}
}

// RunRead pumps inbound frames off the transport until it closes or
// errors, then signals RunWrite's loop to fail every pending and queued
// request. It returns when the transport is exhausted.
func (c *Connection) RunRead() error {
	buf := make([]byte, ble.MaxMTU)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.inErrCh <- err
			return err
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		c.logger.Debugf("rx: %x", frame)
		select {
		case c.inCh <- frame:
		case <-c.closed:
			return nil
		}
	}
}

// RunWrite runs the connection's single coordinating loop: it is the only
// goroutine that ever writes to the transport, and the only one that
// mutates the pending-transaction slot and the send queue. It returns once the connection has been closed and every
// pending/queued request has been failed.
func (c *Connection) RunWrite() error {
	var pending *pendingTx
	var queue []*pendingTx

	transmitNext := func() {
		if pending != nil || len(queue) == 0 {
			return
		}
		next := queue[0]
		queue = queue[1:]
		c.logger.Debugf("tx req: %x", next.pdu)
		if _, err := c.conn.Write(next.pdu); err != nil {
			next.done(nil, fmt.Errorf("att: %w: write failed: %v", ble.ErrTransportClosed, err))
			return
		}
		pending = next
	}

	failAll := func(err error) {
		if pending != nil {
			p := pending
			pending = nil
			p.done(nil, err)
		}
		for _, q := range queue {
			q.done(nil, err)
		}
		queue = nil
		for {
			select {
			case tx := <-c.reqCh:
				tx.done(nil, err)
			default:
				return
			}
		}
	}

	defer close(c.closed)

	for {
		select {
		case tx := <-c.reqCh:
			queue = append(queue, tx)
			transmitNext()

		case pdu := <-c.cmdCh:
			c.logger.Debugf("tx cmd: %x", pdu)
			if _, err := c.conn.Write(pdu); err != nil {
				c.logger.Errorf("att: command write failed: %v", err)
			}

		case frame := <-c.inCh:
			c.dispatch(frame, &pending, &queue)
			transmitNext()

		case err := <-c.inErrCh:
			failAll(fmt.Errorf("att: %w: %v", ble.ErrTransportClosed, err))
			return err

		case <-c.closeCh:
			failAll(ble.ErrTransportClosed)
			return nil
		}
	}
}

// Close tears down the connection, failing every pending and queued
// request with ble.ErrTransportClosed exactly once, in FIFO order.
func (c *Connection) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closeCh)
	}
	return c.conn.Close()
}

// Closed returns a channel closed once RunWrite's loop has exited.
func (c *Connection) Closed() <-chan struct{} { return c.closed }

func (c *Connection) dispatch(frame []byte, pending **pendingTx, queue *[]*pendingTx) {
	op, err := Validate(frame)
	if err != nil {
		c.logger.Warnf("att: dropping malformed frame: %v", err)
		return
	}

	if attErr, isErr := DecodeErrorIfAny(frame); isErr {
		p := *pending
		if p != nil && uint8(p.reqOpcode) == attErr.RequestOpcode {
			*pending = nil
			p.done(nil, *attErr)
			return
		}
		c.logger.Warnf("att: error response for opcode 0x%02x doesn't match pending request", attErr.RequestOpcode)
		return
	}

	p := *pending
	if p != nil && op == p.expectedOp {
		*pending = nil
		p.done(frame, nil)
		return
	}

	switch op {
	case HandleValueNotificationCode:
		n, _ := DecodeHandleValueNotification(frame)
		if h, _ := c.notify.Load().(NotificationFunc); h != nil {
			h(n.AttributeHandle(), n.AttributeValue())
		} else {
			c.logger.Warnf("att: no notification handler installed, dropping handle 0x%04x", n.AttributeHandle())
		}
		return

	case HandleValueIndicationCode:
		ind, _ := DecodeHandleValueIndication(frame)
		if h, _ := c.indicate.Load().(IndicationFunc); h != nil {
			h(ind.AttributeHandle(), ind.AttributeValue())
		} else {
			c.logger.Warnf("att: no indication handler installed, dropping handle 0x%04x", ind.AttributeHandle())
		}
		// The confirmation must be sent before any further request
		// response matching, i.e. before transmitNext() runs for the
		// next queued request — so it is written here, synchronously,
		// rather than routed back through SendCommand.
		conf := NewHandleValueConfirmation()
		c.logger.Debugf("tx cnf: %x", []byte(conf))
		if _, err := c.conn.Write(conf); err != nil {
			c.logger.Errorf("att: confirmation write failed: %v", err)
		}
		return

	default:
		if _, isReq := ResponseFor(op); isReq {
			// An unsolicited request on a client-only bearer (this module
			// implements no GATT server): refuse it rather than silently
			// drop it, the way a misbehaving peer's async request is
			// handled across the whole lineage.
			refusal := NewErrorResponse(op, 0x0000, ble.ErrCodeRequestNotSupported)
			c.logger.Debugf("tx err (unsupported request): %x", []byte(refusal))
			if _, err := c.conn.Write(refusal); err != nil {
				c.logger.Errorf("att: refusal write failed: %v", err)
			}
			return
		}
		c.logger.Warnf("att: unexpected PDU %s with no pending request", op)
	}
}
