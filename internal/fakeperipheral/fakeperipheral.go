// Package fakeperipheral is a minimal, hardcoded ATT server used only to
// give the att/gatt client engines a peer to talk to in tests and in the
// attgatt-probe demo. It is not a GATT server implementation: it serves
// one fixed attribute table and nothing else.
package fakeperipheral

import (
	"encoding/binary"

	"github.com/leso-kn/attgatt"
	"github.com/leso-kn/attgatt/att"
)

type attribute struct {
	handle   uint16
	typ      ble.UUID
	value    []byte
	groupEnd uint16 // non-zero for a service declaration's group end handle
}

// preparedWrite is one queued Prepare Write Request, held until an
// Execute Write Request commits or discards the whole queue.
type preparedWrite struct {
	handle uint16
	offset uint16
	value  []byte
}

func le16(b []byte) uint16       { return binary.LittleEndian.Uint16(b) }
func putLe16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

func charDecl(props ble.Property, valueHandle uint16, u ble.UUID) []byte {
	b := make([]byte, 3+len(u))
	b[0] = byte(props)
	putLe16(b[1:3], valueHandle)
	copy(b[3:], u)
	return b
}

// batteryLevelUUID (0x2A19) isn't in the well-known UUID set the root
// package exports, since no procedure needs it as a constant — only this
// fixture does.
var batteryLevelUUID = ble.UUID16(0x2A19)

func table() []*attribute {
	return []*attribute{
		{handle: 0x0001, typ: ble.PrimaryServiceUUID, value: ble.DeviceInfoUUID, groupEnd: 0x0005},
		{handle: 0x0002, typ: ble.CharacteristicUUID, value: charDecl(ble.CharRead, 0x0003, ble.ManufacturerNameUUID)},
		{handle: 0x0003, typ: ble.ManufacturerNameUUID, value: []byte("Acme Corp")},
		{handle: 0x0004, typ: ble.CharacteristicUUID, value: charDecl(ble.CharRead, 0x0005, ble.ModelNumberUUID)},
		{handle: 0x0005, typ: ble.ModelNumberUUID, value: []byte("Model-1")},

		{handle: 0x0006, typ: ble.PrimaryServiceUUID, value: ble.BatteryUUID, groupEnd: 0x0009},
		{handle: 0x0007, typ: ble.CharacteristicUUID, value: charDecl(ble.CharRead|ble.CharNotify, 0x0008, batteryLevelUUID)},
		{handle: 0x0008, typ: batteryLevelUUID, value: []byte{87}},
		{handle: 0x0009, typ: ble.ClientCharacteristicConfigUUID, value: []byte{0x00, 0x00}},
	}
}

// Peripheral serves the fixed attribute table over one ble.Conn.
type Peripheral struct {
	conn    ble.Conn
	attrs   []*attribute
	prepare []preparedWrite

	confirmed chan struct{} // receives a value when a confirmation arrives; dropped while one is unread
}

// New returns a Peripheral bound to conn. Call Serve to run it.
func New(conn ble.Conn) *Peripheral {
	return &Peripheral{conn: conn, attrs: table(), confirmed: make(chan struct{}, 1)}
}

// NotifyBatteryLevel sends a Handle Value Notification for the battery
// level characteristic if its CCCD has notifications enabled.
func (p *Peripheral) NotifyBatteryLevel(level byte) error {
	cccd := p.find(0x0009)
	if cccd == nil || len(cccd.value) < 2 || le16(cccd.value) != 0x0001 {
		return nil
	}
	batt := p.find(0x0008)
	batt.value = []byte{level}
	_, err := p.conn.Write(att.NewHandleValueNotification(0x0008, batt.value))
	return err
}

// IndicateBatteryLevel sends a Handle Value Indication for the battery
// level characteristic if its CCCD has indications enabled.
func (p *Peripheral) IndicateBatteryLevel(level byte) error {
	cccd := p.find(0x0009)
	if cccd == nil || len(cccd.value) < 2 || le16(cccd.value) != 0x0002 {
		return nil
	}
	batt := p.find(0x0008)
	batt.value = []byte{level}
	_, err := p.conn.Write(att.NewHandleValueIndication(0x0008, batt.value))
	return err
}

// Confirmed reports when a Handle Value Confirmation has arrived for a
// prior indication, for tests that need to assert the peer followed up
// correctly.
func (p *Peripheral) Confirmed() <-chan struct{} { return p.confirmed }

// Serve reads and answers requests until conn is closed.
func (p *Peripheral) Serve() error {
	buf := make([]byte, ble.MaxMTU)
	for {
		n, err := p.conn.Read(buf)
		if err != nil {
			return err
		}
		p.handle(append([]byte(nil), buf[:n]...))
	}
}

func (p *Peripheral) find(handle uint16) *attribute {
	for _, a := range p.attrs {
		if a.handle == handle {
			return a
		}
	}
	return nil
}

func (p *Peripheral) reply(b []byte) { p.conn.Write(b) }

func (p *Peripheral) errorResponse(op att.Opcode, handle uint16, code ble.ErrorCode) {
	p.reply(att.NewErrorResponse(op, handle, code))
}

func (p *Peripheral) handle(frame []byte) {
	op, err := att.Validate(frame)
	if err != nil {
		return
	}
	switch op {
	case att.ExchangeMTURequestCode:
		p.reply(att.NewExchangeMTUResponse(ble.MaxMTU))

	case att.ReadByGroupTypeRequestCode:
		p.handleReadByGroupType(frame)

	case att.ReadByTypeRequestCode:
		p.handleReadByType(frame)

	case att.FindInformationRequestCode:
		p.handleFindInformation(frame)

	case att.FindByTypeValueRequestCode:
		p.handleFindByTypeValue(frame)

	case att.ReadRequestCode:
		r, _ := att.DecodeReadRequest(frame)
		a := p.find(r.AttributeHandle())
		if a == nil {
			p.errorResponse(op, r.AttributeHandle(), ble.ErrCodeInvalidHandle)
			return
		}
		rsp := make(att.ReadResponse, 1+len(a.value))
		rsp[0] = byte(att.ReadResponseCode)
		copy(rsp[1:], a.value)
		p.reply(rsp)

	case att.ReadBlobRequestCode:
		p.handleReadBlob(frame)

	case att.WriteRequestCode:
		r, _ := att.DecodeWriteRequest(frame)
		a := p.find(r.AttributeHandle())
		if a == nil {
			p.errorResponse(op, r.AttributeHandle(), ble.ErrCodeInvalidHandle)
			return
		}
		a.value = append([]byte(nil), r.AttributeValue()...)
		p.reply(att.NewWriteResponse())

	case att.PrepareWriteRequestCode:
		p.handlePrepareWrite(frame)

	case att.ExecuteWriteRequestCode:
		p.handleExecuteWrite(frame)

	case att.HandleValueConfirmationCode:
		select {
		case p.confirmed <- struct{}{}:
		default:
		}

	default:
		p.errorResponse(op, 0, ble.ErrCodeRequestNotSupported)
	}
}

func (p *Peripheral) handleReadBlob(frame []byte) {
	req, err := att.DecodeReadBlobRequest(frame)
	if err != nil {
		return
	}
	a := p.find(req.AttributeHandle())
	if a == nil {
		p.errorResponse(att.ReadBlobRequestCode, req.AttributeHandle(), ble.ErrCodeInvalidHandle)
		return
	}
	offset := req.ValueOffset()
	if int(offset) > len(a.value) {
		p.errorResponse(att.ReadBlobRequestCode, req.AttributeHandle(), ble.ErrCodeInvalidOffset)
		return
	}
	part := a.value[offset:]
	rsp := make(att.ReadBlobResponse, 1+len(part))
	rsp[0] = byte(att.ReadBlobResponseCode)
	copy(rsp[1:], part)
	p.reply(rsp)
}

func (p *Peripheral) handlePrepareWrite(frame []byte) {
	req, err := att.DecodePrepareWriteRequest(frame)
	if err != nil {
		return
	}
	a := p.find(req.AttributeHandle())
	if a == nil {
		p.errorResponse(att.PrepareWriteRequestCode, req.AttributeHandle(), ble.ErrCodeInvalidHandle)
		return
	}
	value := append([]byte(nil), req.PartAttributeValue()...)
	p.prepare = append(p.prepare, preparedWrite{handle: req.AttributeHandle(), offset: req.ValueOffset(), value: value})

	rsp := make(att.PrepareWriteResponse, 5+len(value))
	rsp[0] = byte(att.PrepareWriteResponseCode)
	putLe16(rsp[1:3], req.AttributeHandle())
	putLe16(rsp[3:5], req.ValueOffset())
	copy(rsp[5:], value)
	p.reply(rsp)
}

func (p *Peripheral) handleExecuteWrite(frame []byte) {
	req, err := att.DecodeExecuteWriteRequest(frame)
	if err != nil {
		return
	}
	if req.Flags() == att.ExecuteWriteWrite {
		assembled := map[uint16][]byte{}
		for _, pw := range p.prepare {
			assembled[pw.handle] = append(assembled[pw.handle], pw.value...)
		}
		for handle, value := range assembled {
			if a := p.find(handle); a != nil {
				a.value = value
			}
		}
	}
	p.prepare = nil
	p.reply(att.NewExecuteWriteResponse())
}

func (p *Peripheral) handleFindByTypeValue(frame []byte) {
	req, err := att.DecodeFindByTypeValueRequest(frame)
	if err != nil {
		return
	}
	var match []*attribute
	for _, a := range p.attrs {
		if a.groupEnd == 0 || !a.typ.Equal(req.AttributeType()) {
			continue
		}
		if a.handle < req.StartingHandle() || a.handle > req.EndingHandle() {
			continue
		}
		if string(a.value) != string(req.AttributeValue()) {
			continue
		}
		match = append(match, a)
	}
	if len(match) == 0 {
		p.errorResponse(att.FindByTypeValueRequestCode, req.StartingHandle(), ble.ErrCodeAttributeNotFound)
		return
	}
	rsp := make(att.FindByTypeValueResponse, 1, 1+4*len(match))
	rsp[0] = byte(att.FindByTypeValueResponseCode)
	for _, a := range match {
		entry := make([]byte, 4)
		putLe16(entry[0:2], a.handle)
		putLe16(entry[2:4], a.groupEnd)
		rsp = append(rsp, entry...)
	}
	p.reply(rsp)
}

func (p *Peripheral) handleReadByGroupType(frame []byte) {
	req, err := att.DecodeReadByGroupTypeRequest(frame)
	if err != nil {
		return
	}
	var match []*attribute
	for _, a := range p.attrs {
		if a.groupEnd == 0 || !a.typ.Equal(req.AttributeGroupType()) {
			continue
		}
		if a.handle < req.StartingHandle() || a.handle > req.EndingHandle() {
			continue
		}
		match = append(match, a)
	}
	if len(match) == 0 {
		p.errorResponse(att.ReadByGroupTypeRequestCode, req.StartingHandle(), ble.ErrCodeAttributeNotFound)
		return
	}
	stride := 4 + len(match[0].value)
	rsp := make(att.ReadByGroupTypeResponse, 2, 2+stride*len(match))
	rsp[0] = byte(att.ReadByGroupTypeResponseCode)
	rsp[1] = byte(stride)
	for _, a := range match {
		if 4+len(a.value) != stride {
			break
		}
		entry := make([]byte, stride)
		putLe16(entry[0:2], a.handle)
		putLe16(entry[2:4], a.groupEnd)
		copy(entry[4:], a.value)
		rsp = append(rsp, entry...)
	}
	p.reply(rsp)
}

func (p *Peripheral) handleReadByType(frame []byte) {
	req, err := att.DecodeReadByTypeRequest(frame)
	if err != nil {
		return
	}
	var match []*attribute
	for _, a := range p.attrs {
		if !a.typ.Equal(req.AttributeType()) {
			continue
		}
		if a.handle < req.StartingHandle() || a.handle > req.EndingHandle() {
			continue
		}
		match = append(match, a)
	}
	if len(match) == 0 {
		p.errorResponse(att.ReadByTypeRequestCode, req.StartingHandle(), ble.ErrCodeAttributeNotFound)
		return
	}
	stride := 2 + len(match[0].value)
	rsp := make(att.ReadByTypeResponse, 2, 2+stride*len(match))
	rsp[0] = byte(att.ReadByTypeResponseCode)
	rsp[1] = byte(stride)
	for _, a := range match {
		if 2+len(a.value) != stride {
			break
		}
		entry := make([]byte, stride)
		putLe16(entry[0:2], a.handle)
		copy(entry[2:], a.value)
		rsp = append(rsp, entry...)
	}
	p.reply(rsp)
}

func (p *Peripheral) handleFindInformation(frame []byte) {
	req, err := att.DecodeFindInformationRequest(frame)
	if err != nil {
		return
	}
	var match []*attribute
	for _, a := range p.attrs {
		if a.handle < req.StartingHandle() || a.handle > req.EndingHandle() {
			continue
		}
		if a.typ.Len() != 2 {
			continue
		}
		match = append(match, a)
	}
	if len(match) == 0 {
		p.errorResponse(att.FindInformationRequestCode, req.StartingHandle(), ble.ErrCodeAttributeNotFound)
		return
	}
	rsp := make(att.FindInformationResponse, 2, 2+4*len(match))
	rsp[0] = byte(att.FindInformationResponseCode)
	rsp[1] = att.FindInfoFormat16
	for _, a := range match {
		entry := make([]byte, 4)
		putLe16(entry[0:2], a.handle)
		copy(entry[2:4], a.typ)
		rsp = append(rsp, entry...)
	}
	p.reply(rsp)
}
