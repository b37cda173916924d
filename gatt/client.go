// Package gatt implements the Generic Attribute Profile client on top of
// the att package's connection engine: service/characteristic/descriptor
// discovery, attribute read/write procedures, and notification/indication
// subscription [Vol 3, Part G].
package gatt

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leso-kn/attgatt"
	"github.com/leso-kn/attgatt/att"
)

// maxDiscoveryRounds bounds any single paginated discovery procedure. A
// well-behaved server always terminates on Attribute Not Found long
// before this; it exists only so a server that echoes a non-advancing
// handle range can't wedge the client in an infinite request loop.
const maxDiscoveryRounds = 4096

type subscription struct {
	cccd     uint16 // handle of the CCCD written to enable delivery
	indicate bool
	handler  ble.NotificationHandler
	seq      uint
}

// Client is the concrete ble.Client: one GATT client bound to one
// att.Connection.
type Client struct {
	conn   ble.Conn
	engine *att.Connection
	logger ble.Logger
	cache  *cache

	subsMu sync.Mutex
	subs   map[uint16]*subscription // keyed by characteristic value handle

	// longWrite is 1 while a Prepare Write / Execute Write sequence is in
	// flight on this bearer. The server has a single queue of prepared
	// writes per bearer, so a second concurrent long write would
	// interleave its chunks into that same queue and corrupt it.
	longWrite int32
}

var _ ble.Client = (*Client)(nil)

// NewClient builds a Client over conn and starts its connection engine's
// read and write pumps. The caller must not use conn directly afterward.
func NewClient(conn ble.Conn, logger ble.Logger) *Client {
	if logger == nil {
		logger = ble.NewLogger("gatt")
	}
	c := &Client{
		conn:   conn,
		engine: att.NewConnection(conn, logger),
		logger: logger,
		cache:  newCache(),
		subs:   make(map[uint16]*subscription),
	}
	c.engine.SetNotificationHandler(func(handle uint16, value []byte) { c.deliver(handle, value, false) })
	c.engine.SetIndicationHandler(func(handle uint16, value []byte) { c.deliver(handle, value, true) })
	go c.engine.RunRead()
	go c.engine.RunWrite()
	return c
}

func (c *Client) Addr() ble.Addr { return c.conn.RemoteAddr() }
func (c *Client) Conn() ble.Conn { return c.conn }

func (c *Client) Disconnected() <-chan struct{} { return c.conn.Disconnected() }

func (c *Client) CancelConnection() error { return c.engine.Close() }

// ExchangeMTU performs the Exchange MTU procedure [Vol 3, Part G, 4.3.1]
// and clamps the effective ATT_MTU to min(clientRxMTU, serverRxMTU), never
// below ble.MinMTU.
func (c *Client) ExchangeMTU(clientRxMTU int) (int, error) {
	if clientRxMTU < ble.MinMTU {
		clientRxMTU = ble.MinMTU
	}
	frame, err := c.engine.Do(att.NewExchangeMTURequest(uint16(clientRxMTU)))
	if err != nil {
		return 0, err
	}
	rsp, err := att.DecodeExchangeMTUResponse(frame)
	if err != nil {
		return 0, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	serverRxMTU := int(rsp.ServerRxMTU())
	effective := clientRxMTU
	if serverRxMTU < effective {
		effective = serverRxMTU
	}
	c.engine.SetMTU(uint16(effective))
	c.conn.SetRxMTU(clientRxMTU)
	c.conn.SetTxMTU(serverRxMTU)
	return serverRxMTU, nil
}

func isAttrNotFound(err error) bool {
	var ae ble.ATTError
	return errors.As(err, &ae) && ae.Code == ble.ErrCodeAttributeNotFound
}

// ---------------------------------------------------------------------
// Discovery.

// DiscoverProfile discovers the whole server hierarchy: every service,
// its characteristics, and their descriptors.
func (c *Client) DiscoverProfile(force bool) (*ble.Profile, error) {
	if !force {
		if p := c.cache.Profile(); len(p.Services) > 0 {
			return p, nil
		}
	}
	services, err := c.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}
	for _, s := range services {
		chars, err := c.DiscoverCharacteristics(nil, s)
		if err != nil {
			return nil, err
		}
		for _, ch := range chars {
			if _, err := c.DiscoverDescriptors(nil, ch); err != nil {
				return nil, err
			}
		}
	}
	return c.cache.Profile(), nil
}

// DiscoverServices runs Discover All Primary Services, or (if filter is
// non-nil) Discover Primary Service by Service UUID once per entry in
// filter [Vol 3, Part G, 4.4.1 / 4.4.2].
func (c *Client) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	if len(filter) == 0 {
		services, err := c.discoverAllServices()
		if err != nil {
			return nil, err
		}
		c.cache.InsertServices(services, true)
		return services, nil
	}
	var all []*ble.Service
	for _, u := range filter {
		found, err := c.discoverServicesByUUID(u)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	c.cache.InsertServices(all, false)
	return all, nil
}

func (c *Client) discoverAllServices() ([]*ble.Service, error) {
	var services []*ble.Service
	start := uint16(0x0001)
	for round := 0; round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewReadByGroupTypeRequest(start, 0xFFFF, ble.PrimaryServiceUUID))
		if err != nil {
			if isAttrNotFound(err) {
				return services, nil
			}
			return nil, err
		}
		rsp, err := att.DecodeReadByGroupTypeResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		stride := int(rsp.Length())
		data := rsp.AttributeDataList()
		var last uint16
		for off := 0; off < len(data); off += stride {
			entry := data[off : off+stride]
			handle := le16(entry[0:2])
			endHandle := le16(entry[2:4])
			services = append(services, &ble.Service{
				UUID:      ble.UUID(entry[4:stride]),
				Handle:    handle,
				EndHandle: endHandle,
			})
			last = endHandle
		}
		if last < start {
			return nil, fmt.Errorf("gatt: %w: service discovery cycle", ble.ErrInvalidResponse)
		}
		if last == 0xFFFF {
			return services, nil
		}
		start = last + 1
	}
	return nil, fmt.Errorf("gatt: %w: service discovery did not terminate", ble.ErrInvalidResponse)
}

func (c *Client) discoverServicesByUUID(u ble.UUID) ([]*ble.Service, error) {
	var services []*ble.Service
	start := uint16(0x0001)
	for round := 0; round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewFindByTypeValueRequest(start, 0xFFFF, ble.PrimaryServiceUUID, u))
		if err != nil {
			if isAttrNotFound(err) {
				return services, nil
			}
			return nil, err
		}
		rsp, err := att.DecodeFindByTypeValueResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		list := rsp.HandlesInformationList()
		var last uint16
		for off := 0; off < len(list); off += 4 {
			handle := le16(list[off : off+2])
			endHandle := le16(list[off+2 : off+4])
			services = append(services, &ble.Service{UUID: u, Handle: handle, EndHandle: endHandle})
			last = endHandle
		}
		if last < start {
			return nil, fmt.Errorf("gatt: %w: service discovery cycle", ble.ErrInvalidResponse)
		}
		if last == 0xFFFF {
			return services, nil
		}
		start = last + 1
	}
	return nil, fmt.Errorf("gatt: %w: service discovery did not terminate", ble.ErrInvalidResponse)
}

// DiscoverIncludedServices runs Find Included Services [Vol 3, Part G,
// 4.5.1]. It rounds out the core discovery hierarchy alongside
// DiscoverServices/DiscoverCharacteristics/DiscoverDescriptors.
func (c *Client) DiscoverIncludedServices(filter []ble.UUID, s *ble.Service) ([]*ble.Service, error) {
	var included []*ble.Service
	start := s.Handle + 1
	for round := 0; start <= s.EndHandle && round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewReadByTypeRequest(start, s.EndHandle, ble.IncludeUUID))
		if err != nil {
			if isAttrNotFound(err) {
				break
			}
			return nil, err
		}
		rsp, err := att.DecodeReadByTypeResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		stride := int(rsp.Length())
		data := rsp.AttributeDataList()
		var last uint16
		for off := 0; off < len(data); off += stride {
			entry := data[off : off+stride]
			declHandle := le16(entry[0:2])
			inclHandle := le16(entry[2:4])
			endHandle := le16(entry[4:6])
			svc := &ble.Service{Handle: inclHandle, EndHandle: endHandle}
			if stride == 8 {
				svc.UUID = ble.UUID(entry[6:8])
			} else {
				valFrame, err := c.engine.Do(att.NewReadRequest(inclHandle))
				if err != nil {
					return nil, err
				}
				valRsp, err := att.DecodeReadResponse(valFrame)
				if err != nil {
					return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
				}
				svc.UUID = ble.UUID(valRsp.AttributeValue())
			}
			included = append(included, svc)
			last = declHandle
		}
		if last < start {
			break
		}
		start = last + 1
	}
	if len(filter) == 0 {
		return included, nil
	}
	var filtered []*ble.Service
	for _, svc := range included {
		if ble.Contains(filter, svc.UUID) {
			filtered = append(filtered, svc)
		}
	}
	return filtered, nil
}

// DiscoverCharacteristics runs Discover All Characteristics of a Service
// [Vol 3, Part G, 4.6.1] when filter is empty. When filter is non-nil it
// instead discovers by UUID: there is no wire procedure that restricts
// the declarations returned to specific characteristic UUIDs, but the
// client still terminates as soon as it has decoded one matching
// declaration rather than paging through the whole service first.
func (c *Client) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	if len(filter) > 0 {
		return c.discoverCharacteristicsByUUID(filter, s)
	}
	var chars []*ble.Characteristic
	start := s.Handle + 1
	for round := 0; start <= s.EndHandle && round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewReadByTypeRequest(start, s.EndHandle, ble.CharacteristicUUID))
		if err != nil {
			if isAttrNotFound(err) {
				break
			}
			return nil, err
		}
		rsp, err := att.DecodeReadByTypeResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		stride := int(rsp.Length())
		data := rsp.AttributeDataList()
		var last uint16
		for off := 0; off < len(data); off += stride {
			entry := data[off : off+stride]
			declHandle := le16(entry[0:2])
			chars = append(chars, &ble.Characteristic{
				Handle:      declHandle,
				ServiceUUID: s.UUID,
				Property:    ble.Property(entry[2]),
				ValueHandle: le16(entry[3:5]),
				UUID:        ble.UUID(entry[5:stride]),
			})
			last = declHandle
		}
		if last < start {
			return nil, fmt.Errorf("gatt: %w: characteristic discovery cycle", ble.ErrInvalidResponse)
		}
		start = last + 1
	}
	for i, ch := range chars {
		if i+1 < len(chars) {
			ch.EndHandle = chars[i+1].Handle - 1
		} else {
			ch.EndHandle = s.EndHandle
		}
	}
	c.cache.InsertCharacteristics(s.UUID, chars, true)
	return chars, nil
}

// discoverCharacteristicsByUUID pages Read By Type over the service's
// range but returns as soon as a decoded declaration's UUID is in
// filter, without requesting any further pages. A match on the first
// page completes the whole procedure in one request round trip.
func (c *Client) discoverCharacteristicsByUUID(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	start := s.Handle + 1
	for round := 0; start <= s.EndHandle && round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewReadByTypeRequest(start, s.EndHandle, ble.CharacteristicUUID))
		if err != nil {
			if isAttrNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		rsp, err := att.DecodeReadByTypeResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		stride := int(rsp.Length())
		data := rsp.AttributeDataList()
		var last uint16
		for off := 0; off < len(data); off += stride {
			entry := data[off : off+stride]
			declHandle := le16(entry[0:2])
			u := ble.UUID(entry[5:stride])
			if ble.Contains(filter, u) {
				ch := &ble.Characteristic{
					Handle:      declHandle,
					ServiceUUID: s.UUID,
					Property:    ble.Property(entry[2]),
					ValueHandle: le16(entry[3:5]),
					UUID:        u,
				}
				if next := off + stride; next < len(data) {
					ch.EndHandle = le16(data[next:next+2]) - 1
				} else {
					ch.EndHandle = s.EndHandle
				}
				found := []*ble.Characteristic{ch}
				c.cache.InsertCharacteristics(s.UUID, found, false)
				return found, nil
			}
			last = declHandle
		}
		if last < start {
			return nil, fmt.Errorf("gatt: %w: characteristic discovery cycle", ble.ErrInvalidResponse)
		}
		start = last + 1
	}
	return nil, nil
}

// DiscoverDescriptors runs Discover All Characteristic Descriptors
// [Vol 3, Part G, 4.7.1]. Descriptor discovery is always a complete-range
// procedure, so the cache always records the full set even when filter
// narrows what's returned.
func (c *Client) DiscoverDescriptors(filter []ble.UUID, ch *ble.Characteristic) ([]*ble.Descriptor, error) {
	var descs []*ble.Descriptor
	start := ch.ValueHandle + 1
	for round := 0; start <= ch.EndHandle && round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewFindInformationRequest(start, ch.EndHandle))
		if err != nil {
			if isAttrNotFound(err) {
				break
			}
			return nil, err
		}
		rsp, err := att.DecodeFindInformationResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		width := rsp.PairWidth()
		data := rsp.InformationData()
		var last uint16
		for off := 0; off < len(data); off += width {
			pair := data[off : off+width]
			handle := le16(pair[0:2])
			descs = append(descs, &ble.Descriptor{Handle: handle, UUID: ble.UUID(pair[2:width])})
			last = handle
		}
		if last < start {
			break
		}
		start = last + 1
	}
	ch.Descriptors = descs
	for _, d := range descs {
		if d.UUID.Equal(ble.ClientCharacteristicConfigUUID) {
			ch.CCCD = d
		}
	}
	c.cache.InsertDescriptors(ch.ServiceUUID, ch.UUID, descs)
	if len(filter) == 0 {
		return descs, nil
	}
	var filtered []*ble.Descriptor
	for _, d := range descs {
		if ble.Contains(filter, d.UUID) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

// ---------------------------------------------------------------------
// Read.

// ReadCharacteristic reads c's value with a single Read Request,
// continuing with Read Blob Requests from the end of that first part if
// the response is exactly MTU-1 bytes, the signature of a value truncated
// at the current MTU [Vol 3, Part G, 4.8.1].
func (c *Client) ReadCharacteristic(ch *ble.Characteristic) ([]byte, error) {
	frame, err := c.engine.Do(att.NewReadRequest(ch.ValueHandle))
	if err != nil {
		return nil, err
	}
	rsp, err := att.DecodeReadResponse(frame)
	if err != nil {
		return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	value := append([]byte(nil), rsp.AttributeValue()...)
	if len(value) == c.engine.MTU()-1 {
		rest, err := c.readBlobFrom(ch.ValueHandle, uint16(len(value)))
		if err != nil {
			return nil, err
		}
		value = append(value, rest...)
	}
	ch.Value = value
	return value, nil
}

// ReadLongCharacteristic reads c's value with Read Request followed by
// as many Read Blob Request round trips as needed [Vol 3, Part G, 4.8.3].
func (c *Client) ReadLongCharacteristic(ch *ble.Characteristic) ([]byte, error) {
	frame, err := c.engine.Do(att.NewReadRequest(ch.ValueHandle))
	if err != nil {
		return nil, err
	}
	rsp, err := att.DecodeReadResponse(frame)
	if err != nil {
		return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	value := append([]byte(nil), rsp.AttributeValue()...)
	rest, err := c.readBlobFrom(ch.ValueHandle, uint16(len(value)))
	if err != nil {
		return nil, err
	}
	value = append(value, rest...)
	ch.Value = value
	return value, nil
}

// readBlobFrom issues Read Blob Requests starting at offset until the
// server returns a part shorter than MTU-1 (end of attribute) or an
// Invalid Offset error (the attribute's length is an exact multiple of
// MTU-1, so the last full-size blob was the last one).
func (c *Client) readBlobFrom(handle, offset uint16) ([]byte, error) {
	var value []byte
	for {
		frame, err := c.engine.Do(att.NewReadBlobRequest(handle, offset))
		if err != nil {
			var ae ble.ATTError
			if errors.As(err, &ae) && ae.Code == ble.ErrCodeInvalidOffset {
				return value, nil
			}
			return nil, err
		}
		rsp, err := att.DecodeReadBlobResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		part := rsp.PartAttributeValue()
		value = append(value, part...)
		offset += uint16(len(part))
		if len(part) < c.engine.MTU()-1 {
			return value, nil
		}
	}
}

// ReadCharacteristicsByUUID runs Read Characteristics by UUID
// [Vol 3, Part G, 4.8.2], paginating over [start, end] until the server
// reports Attribute Not Found.
func (c *Client) ReadCharacteristicsByUUID(start, end uint16, u ble.UUID) (map[uint16][]byte, error) {
	values := make(map[uint16][]byte)
	for round := 0; start <= end && round < maxDiscoveryRounds; round++ {
		frame, err := c.engine.Do(att.NewReadByTypeRequest(start, end, u))
		if err != nil {
			if isAttrNotFound(err) {
				return values, nil
			}
			return nil, err
		}
		rsp, err := att.DecodeReadByTypeResponse(frame)
		if err != nil {
			return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		stride := int(rsp.Length())
		data := rsp.AttributeDataList()
		var last uint16
		for off := 0; off < len(data); off += stride {
			entry := data[off : off+stride]
			handle := le16(entry[0:2])
			values[handle] = append([]byte(nil), entry[2:stride]...)
			last = handle
		}
		if last < start {
			return values, nil
		}
		start = last + 1
	}
	return values, nil
}

// ReadMultipleCharacteristics runs Read Multiple Request
// [Vol 3, Part G, 4.8.4]. Per spec it must not be used when any
// requested value could legitimately be MTU-1 bytes long, since the
// response concatenates values with no per-value length prefix.
func (c *Client) ReadMultipleCharacteristics(handles []uint16) ([]byte, error) {
	if len(handles) < 2 {
		return nil, fmt.Errorf("gatt: %w: read multiple requires at least 2 handles", ble.ErrInvalidArgument)
	}
	frame, err := c.engine.Do(att.NewReadMultipleRequest(handles))
	if err != nil {
		return nil, err
	}
	rsp, err := att.DecodeReadMultipleResponse(frame)
	if err != nil {
		return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	return append([]byte(nil), rsp.SetOfValues()...), nil
}

// ReadDescriptor reads d's value with a single Read Request
// [Vol 3, Part G, 4.12.1].
func (c *Client) ReadDescriptor(d *ble.Descriptor) ([]byte, error) {
	frame, err := c.engine.Do(att.NewReadRequest(d.Handle))
	if err != nil {
		return nil, err
	}
	rsp, err := att.DecodeReadResponse(frame)
	if err != nil {
		return nil, fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	d.Value = append([]byte(nil), rsp.AttributeValue()...)
	return d.Value, nil
}

// ---------------------------------------------------------------------
// Write.

// WriteCharacteristic writes v to c's value handle. Write Command values
// are silently truncated to MTU-3 bytes, matching how the server itself
// would truncate an over-long command [Vol 3, Part G, 4.9.1]; a Write
// Request whose value would not fit in one PDU is rejected, since the
// caller must use WriteLongCharacteristic instead.
func (c *Client) WriteCharacteristic(ch *ble.Characteristic, v []byte, noRsp bool) error {
	maxValue := c.engine.MTU() - 3
	if noRsp {
		if len(v) > maxValue {
			v = v[:maxValue]
		}
		return c.engine.SendCommand(att.NewWriteCommand(ch.ValueHandle, v))
	}
	if len(v) > maxValue {
		return fmt.Errorf("gatt: %w: value too long for Write Request at current MTU, use WriteLongCharacteristic", ble.ErrInvalidArgument)
	}
	frame, err := c.engine.Do(att.NewWriteRequest(ch.ValueHandle, v))
	if err != nil {
		return err
	}
	if _, err := att.DecodeWriteResponse(frame); err != nil {
		return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	return nil
}

// WriteLongCharacteristic writes a value of any length via Prepare
// Write / Execute Write [Vol 3, Part G, 4.9.4 / 4.9.5]. When reliable is
// true, each Prepare Write Response is checked to echo back the exact
// (offset, value) sent, per the Reliable Writes procedure; a mismatch
// aborts the queue with Execute Write (Cancel) rather than committing a
// corrupted value.
func (c *Client) WriteLongCharacteristic(ch *ble.Characteristic, v []byte, reliable bool) error {
	return c.prepareAndExecute(ch.ValueHandle, v, reliable)
}

// WriteDescriptor writes v to d via Write Request [Vol 3, Part G, 4.12.3],
// or via Prepare Write / Execute Write when v does not fit in one Write
// Request at the current MTU.
func (c *Client) WriteDescriptor(d *ble.Descriptor, v []byte) error {
	maxValue := c.engine.MTU() - 3
	if len(v) > maxValue {
		return c.prepareAndExecute(d.Handle, v, false)
	}
	frame, err := c.engine.Do(att.NewWriteRequest(d.Handle, v))
	if err != nil {
		return err
	}
	if _, err := att.DecodeWriteResponse(frame); err != nil {
		return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	return nil
}

// prepareAndExecute runs the Prepare Write / Execute Write sequence for
// one long write. Only one may be in flight on a bearer at a time, since
// the server holds a single prepare queue per bearer; a second caller
// while one is already running fails immediately with ErrInLongWrite
// rather than interleaving its chunks into that queue.
func (c *Client) prepareAndExecute(handle uint16, v []byte, reliable bool) error {
	if !atomic.CompareAndSwapInt32(&c.longWrite, 0, 1) {
		return ble.ErrInLongWrite
	}
	defer atomic.StoreInt32(&c.longWrite, 0)

	chunk := c.engine.MTU() - 5
	if chunk < 1 {
		chunk = 1
	}
	for offset := 0; offset < len(v) || (offset == 0 && len(v) == 0); offset += chunk {
		end := offset + chunk
		if end > len(v) {
			end = len(v)
		}
		part := v[offset:end]
		frame, err := c.engine.Do(att.NewPrepareWriteRequest(handle, uint16(offset), part))
		if err != nil {
			return err
		}
		if reliable {
			rsp, err := att.DecodePrepareWriteResponse(frame)
			if err != nil {
				c.engine.Do(att.NewExecuteWriteRequest(att.ExecuteWriteCancel))
				return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
			}
			if rsp.AttributeHandle() != handle || rsp.ValueOffset() != uint16(offset) || string(rsp.PartAttributeValue()) != string(part) {
				c.engine.Do(att.NewExecuteWriteRequest(att.ExecuteWriteCancel))
				return fmt.Errorf("gatt: %w: prepare write response did not echo request", ble.ErrInvalidResponse)
			}
		} else if _, err := att.DecodePrepareWriteResponse(frame); err != nil {
			c.engine.Do(att.NewExecuteWriteRequest(att.ExecuteWriteCancel))
			return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
		if len(v) == 0 {
			break
		}
	}
	frame, err := c.engine.Do(att.NewExecuteWriteRequest(att.ExecuteWriteWrite))
	if err != nil {
		return err
	}
	if _, err := att.DecodeExecuteWriteResponse(frame); err != nil {
		return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	return nil
}

// ---------------------------------------------------------------------
// Subscriptions.

// Subscribe writes the Client Characteristic Configuration Descriptor to
// enable notification or indication delivery, then routes incoming
// values for ch to h [Vol 3, Part G, 4.10 / 4.11].
func (c *Client) Subscribe(ch *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	if ch.CCCD == nil {
		return ble.ErrClientConfigurationMissing
	}
	bits := ble.GattNotifyFlag
	if ind {
		bits = ble.GattIndicateFlag
	}
	if err := c.writeClientConfig(ch, bits); err != nil {
		return err
	}
	c.subsMu.Lock()
	c.subs[ch.ValueHandle] = &subscription{cccd: ch.CCCD.Handle, indicate: ind, handler: h}
	c.subsMu.Unlock()
	return nil
}

// Unsubscribe disables notification or indication delivery for ch.
func (c *Client) Unsubscribe(ch *ble.Characteristic, ind bool) error {
	if ch.CCCD == nil {
		return ble.ErrClientConfigurationMissing
	}
	if err := c.writeClientConfig(ch, 0); err != nil {
		return err
	}
	c.subsMu.Lock()
	delete(c.subs, ch.ValueHandle)
	c.subsMu.Unlock()
	return nil
}

// ClearSubscriptions disables every subscription this client has active.
func (c *Client) ClearSubscriptions() error {
	c.subsMu.Lock()
	handles := make([]uint16, 0, len(c.subs))
	for _, sub := range c.subs {
		handles = append(handles, sub.cccd)
	}
	c.subsMu.Unlock()
	for _, handle := range handles {
		frame, err := c.engine.Do(att.NewWriteRequest(handle, []byte{0x00, 0x00}))
		if err != nil {
			return err
		}
		if _, err := att.DecodeWriteResponse(frame); err != nil {
			return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
		}
	}
	c.subsMu.Lock()
	c.subs = make(map[uint16]*subscription)
	c.subsMu.Unlock()
	return nil
}

func (c *Client) writeClientConfig(ch *ble.Characteristic, bits uint16) error {
	value := []byte{byte(bits), byte(bits >> 8)}
	frame, err := c.engine.Do(att.NewWriteRequest(ch.CCCD.Handle, value))
	if err != nil {
		return err
	}
	if _, err := att.DecodeWriteResponse(frame); err != nil {
		return fmt.Errorf("gatt: %w", ble.ErrInvalidResponse)
	}
	c.cache.UpdateClientConfig(ch.ServiceUUID, ch.UUID, bits)
	return nil
}

func (c *Client) deliver(handle uint16, value []byte, indication bool) {
	c.subsMu.Lock()
	sub, ok := c.subs[handle]
	c.subsMu.Unlock()
	if !ok || sub.handler == nil {
		c.logger.Warnf("gatt: value delivered for handle 0x%04x with no active subscription", handle)
		return
	}
	c.subsMu.Lock()
	sub.seq++
	id := sub.seq
	c.subsMu.Unlock()
	sub.handler(id, value)
}
