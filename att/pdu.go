package att

import (
	"encoding/binary"
	"fmt"

	"github.com/leso-kn/attgatt"
)

// Every PDU is represented as a byte-slice "view" over its own backing
// array: Set/Get methods index directly into it rather than allocating an
// intermediate struct. This mirrors the lineage's own
// ExchangeMTURequest(buf[:3]) / req.SetClientRxMTU(...) convention, which
// keeps the codec allocation-free on the hot path.
//
// All multi-byte integers are little-endian on the wire [Vol 3, Part F].

func le16(b []byte) uint16             { return binary.LittleEndian.Uint16(b) }
func putLe16(b []byte, v uint16)       { binary.LittleEndian.PutUint16(b, v) }

// ---------------------------------------------------------------------
// Error Response — fixed, 5 bytes.

type ErrorResponse []byte

func NewErrorResponse(reqOpcode Opcode, handle uint16, code ble.ErrorCode) ErrorResponse {
	r := make(ErrorResponse, 5)
	r[0] = byte(ErrorResponseCode)
	r.SetRequestOpcode(reqOpcode)
	r.SetAttributeHandle(handle)
	r.SetErrorCode(code)
	return r
}

func (r ErrorResponse) AttributeOpcode() Opcode         { return Opcode(r[0]) }
func (r ErrorResponse) RequestOpcode() Opcode           { return Opcode(r[1]) }
func (r ErrorResponse) SetRequestOpcode(o Opcode)        { r[1] = byte(o) }
func (r ErrorResponse) AttributeHandle() uint16          { return le16(r[2:4]) }
func (r ErrorResponse) SetAttributeHandle(h uint16)      { putLe16(r[2:4], h) }
func (r ErrorResponse) ErrorCode() ble.ErrorCode         { return ble.ErrorCode(r[4]) }
func (r ErrorResponse) SetErrorCode(c ble.ErrorCode)     { r[4] = byte(c) }

func DecodeErrorResponse(b []byte) (ErrorResponse, error) {
	if len(b) != 5 || Opcode(b[0]) != ErrorResponseCode {
		return nil, ble.ErrMalformed
	}
	return ErrorResponse(b), nil
}

// ---------------------------------------------------------------------
// Exchange MTU — fixed, 3 bytes each way.

type ExchangeMTURequest []byte

func NewExchangeMTURequest(clientRxMTU uint16) ExchangeMTURequest {
	r := make(ExchangeMTURequest, 3)
	r[0] = byte(ExchangeMTURequestCode)
	r.SetClientRxMTU(clientRxMTU)
	return r
}

func (r ExchangeMTURequest) ClientRxMTU() uint16        { return le16(r[1:3]) }
func (r ExchangeMTURequest) SetClientRxMTU(mtu uint16)  { putLe16(r[1:3], mtu) }

func DecodeExchangeMTURequest(b []byte) (ExchangeMTURequest, error) {
	if len(b) != 3 || Opcode(b[0]) != ExchangeMTURequestCode {
		return nil, ble.ErrMalformed
	}
	return ExchangeMTURequest(b), nil
}

type ExchangeMTUResponse []byte

func NewExchangeMTUResponse(serverRxMTU uint16) ExchangeMTUResponse {
	r := make(ExchangeMTUResponse, 3)
	r[0] = byte(ExchangeMTUResponseCode)
	r.SetServerRxMTU(serverRxMTU)
	return r
}

func (r ExchangeMTUResponse) ServerRxMTU() uint16       { return le16(r[1:3]) }
func (r ExchangeMTUResponse) SetServerRxMTU(mtu uint16) { putLe16(r[1:3], mtu) }

func DecodeExchangeMTUResponse(b []byte) (ExchangeMTUResponse, error) {
	if len(b) != 3 || Opcode(b[0]) != ExchangeMTUResponseCode {
		return nil, ble.ErrMalformed
	}
	return ExchangeMTUResponse(b), nil
}

// ---------------------------------------------------------------------
// Find Information — request fixed 5 bytes; response variable, pairs of
// (handle, uuid) with width 4 (16-bit UUID) or 18 (128-bit UUID).

type FindInformationRequest []byte

func NewFindInformationRequest(start, end uint16) FindInformationRequest {
	r := make(FindInformationRequest, 5)
	r[0] = byte(FindInformationRequestCode)
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	return r
}

func (r FindInformationRequest) StartingHandle() uint16     { return le16(r[1:3]) }
func (r FindInformationRequest) SetStartingHandle(h uint16)  { putLe16(r[1:3], h) }
func (r FindInformationRequest) EndingHandle() uint16        { return le16(r[3:5]) }
func (r FindInformationRequest) SetEndingHandle(h uint16)    { putLe16(r[3:5], h) }

func DecodeFindInformationRequest(b []byte) (FindInformationRequest, error) {
	if len(b) != 5 || Opcode(b[0]) != FindInformationRequestCode {
		return nil, ble.ErrMalformed
	}
	return FindInformationRequest(b), nil
}

// UUID format bytes for Find Information Response.
const (
	FindInfoFormat16  = 0x01
	FindInfoFormat128 = 0x02
)

type FindInformationResponse []byte

func (r FindInformationResponse) Format() uint8        { return r[1] }
func (r FindInformationResponse) InformationData() []byte { return r[2:] }

// PairWidth returns the byte width of each (handle, uuid) pair for this
// response's format, or 0 if the format byte is unrecognized.
func (r FindInformationResponse) PairWidth() int {
	switch r.Format() {
	case FindInfoFormat16:
		return 4
	case FindInfoFormat128:
		return 18
	default:
		return 0
	}
}

func DecodeFindInformationResponse(b []byte) (FindInformationResponse, error) {
	if len(b) < 2 || Opcode(b[0]) != FindInformationResponseCode {
		return nil, ble.ErrMalformed
	}
	r := FindInformationResponse(b)
	width := r.PairWidth()
	if width == 0 {
		return nil, ble.ErrMalformed
	}
	if (len(b)-2)%width != 0 || len(b) < 2+width {
		return nil, ble.ErrMalformed
	}
	return r, nil
}

// ---------------------------------------------------------------------
// Find By Type Value.

type FindByTypeValueRequest []byte

func NewFindByTypeValueRequest(start, end uint16, attrType ble.UUID, attrValue []byte) FindByTypeValueRequest {
	r := make(FindByTypeValueRequest, 7+len(attrValue))
	r[0] = byte(FindByTypeValueRequestCode)
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	r.SetAttributeType(attrType)
	copy(r[7:], attrValue)
	return r
}

func (r FindByTypeValueRequest) StartingHandle() uint16    { return le16(r[1:3]) }
func (r FindByTypeValueRequest) SetStartingHandle(h uint16) { putLe16(r[1:3], h) }
func (r FindByTypeValueRequest) EndingHandle() uint16       { return le16(r[3:5]) }
func (r FindByTypeValueRequest) SetEndingHandle(h uint16)   { putLe16(r[3:5], h) }
func (r FindByTypeValueRequest) AttributeType() ble.UUID    { return ble.UUID(r[5:7]) }
func (r FindByTypeValueRequest) SetAttributeType(u ble.UUID) { copy(r[5:7], u) }
func (r FindByTypeValueRequest) AttributeValue() []byte     { return r[7:] }

func DecodeFindByTypeValueRequest(b []byte) (FindByTypeValueRequest, error) {
	if len(b) < 7 || Opcode(b[0]) != FindByTypeValueRequestCode {
		return nil, ble.ErrMalformed
	}
	return FindByTypeValueRequest(b), nil
}

type FindByTypeValueResponse []byte

func (r FindByTypeValueResponse) HandlesInformationList() []byte { return r[1:] }

func DecodeFindByTypeValueResponse(b []byte) (FindByTypeValueResponse, error) {
	if len(b) < 5 || Opcode(b[0]) != FindByTypeValueResponseCode || (len(b)-1)%4 != 0 {
		return nil, ble.ErrMalformed
	}
	return FindByTypeValueResponse(b), nil
}

// ---------------------------------------------------------------------
// Read By Type.

type ReadByTypeRequest []byte

func NewReadByTypeRequest(start, end uint16, attrType ble.UUID) ReadByTypeRequest {
	r := make(ReadByTypeRequest, 5+len(attrType))
	r[0] = byte(ReadByTypeRequestCode)
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	r.SetAttributeType(attrType)
	return r
}

func (r ReadByTypeRequest) StartingHandle() uint16     { return le16(r[1:3]) }
func (r ReadByTypeRequest) SetStartingHandle(h uint16)  { putLe16(r[1:3], h) }
func (r ReadByTypeRequest) EndingHandle() uint16        { return le16(r[3:5]) }
func (r ReadByTypeRequest) SetEndingHandle(h uint16)    { putLe16(r[3:5], h) }
func (r ReadByTypeRequest) AttributeType() ble.UUID     { return ble.UUID(r[5:]) }
func (r ReadByTypeRequest) SetAttributeType(u ble.UUID) { copy(r[5:], u) }

func DecodeReadByTypeRequest(b []byte) (ReadByTypeRequest, error) {
	if (len(b) != 7 && len(b) != 21) || Opcode(b[0]) != ReadByTypeRequestCode {
		return nil, ble.ErrMalformed
	}
	return ReadByTypeRequest(b), nil
}

type ReadByTypeResponse []byte

func (r ReadByTypeResponse) Length() uint8            { return r[1] }
func (r ReadByTypeResponse) AttributeDataList() []byte { return r[2:] }

func DecodeReadByTypeResponse(b []byte) (ReadByTypeResponse, error) {
	if len(b) < 2 || Opcode(b[0]) != ReadByTypeResponseCode {
		return nil, ble.ErrMalformed
	}
	r := ReadByTypeResponse(b)
	n := int(r.Length())
	if n < 2 || len(b) < 2+n || (len(b)-2)%n != 0 {
		return nil, ble.ErrMalformed
	}
	return r, nil
}

// ---------------------------------------------------------------------
// Read By Group Type.

type ReadByGroupTypeRequest []byte

func NewReadByGroupTypeRequest(start, end uint16, groupType ble.UUID) ReadByGroupTypeRequest {
	r := make(ReadByGroupTypeRequest, 5+len(groupType))
	r[0] = byte(ReadByGroupTypeRequestCode)
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	r.SetAttributeGroupType(groupType)
	return r
}

func (r ReadByGroupTypeRequest) StartingHandle() uint16         { return le16(r[1:3]) }
func (r ReadByGroupTypeRequest) SetStartingHandle(h uint16)      { putLe16(r[1:3], h) }
func (r ReadByGroupTypeRequest) EndingHandle() uint16            { return le16(r[3:5]) }
func (r ReadByGroupTypeRequest) SetEndingHandle(h uint16)        { putLe16(r[3:5], h) }
func (r ReadByGroupTypeRequest) AttributeGroupType() ble.UUID    { return ble.UUID(r[5:]) }
func (r ReadByGroupTypeRequest) SetAttributeGroupType(u ble.UUID) { copy(r[5:], u) }

func DecodeReadByGroupTypeRequest(b []byte) (ReadByGroupTypeRequest, error) {
	if (len(b) != 7 && len(b) != 21) || Opcode(b[0]) != ReadByGroupTypeRequestCode {
		return nil, ble.ErrMalformed
	}
	return ReadByGroupTypeRequest(b), nil
}

type ReadByGroupTypeResponse []byte

func (r ReadByGroupTypeResponse) Length() uint8             { return r[1] }
func (r ReadByGroupTypeResponse) AttributeDataList() []byte { return r[2:] }

func DecodeReadByGroupTypeResponse(b []byte) (ReadByGroupTypeResponse, error) {
	if len(b) < 2 || Opcode(b[0]) != ReadByGroupTypeResponseCode {
		return nil, ble.ErrMalformed
	}
	r := ReadByGroupTypeResponse(b)
	n := int(r.Length())
	if n < 4 || len(b) < 2+n || (len(b)-2)%n != 0 {
		return nil, ble.ErrMalformed
	}
	return r, nil
}

// ---------------------------------------------------------------------
// Read / Read Blob.

type ReadRequest []byte

func NewReadRequest(handle uint16) ReadRequest {
	r := make(ReadRequest, 3)
	r[0] = byte(ReadRequestCode)
	r.SetAttributeHandle(handle)
	return r
}

func (r ReadRequest) AttributeHandle() uint16    { return le16(r[1:3]) }
func (r ReadRequest) SetAttributeHandle(h uint16) { putLe16(r[1:3], h) }

func DecodeReadRequest(b []byte) (ReadRequest, error) {
	if len(b) != 3 || Opcode(b[0]) != ReadRequestCode {
		return nil, ble.ErrMalformed
	}
	return ReadRequest(b), nil
}

type ReadResponse []byte

func (r ReadResponse) AttributeValue() []byte { return r[1:] }

func DecodeReadResponse(b []byte) (ReadResponse, error) {
	if len(b) < 1 || Opcode(b[0]) != ReadResponseCode {
		return nil, ble.ErrMalformed
	}
	return ReadResponse(b), nil
}

type ReadBlobRequest []byte

func NewReadBlobRequest(handle, offset uint16) ReadBlobRequest {
	r := make(ReadBlobRequest, 5)
	r[0] = byte(ReadBlobRequestCode)
	r.SetAttributeHandle(handle)
	r.SetValueOffset(offset)
	return r
}

func (r ReadBlobRequest) AttributeHandle() uint16    { return le16(r[1:3]) }
func (r ReadBlobRequest) SetAttributeHandle(h uint16) { putLe16(r[1:3], h) }
func (r ReadBlobRequest) ValueOffset() uint16         { return le16(r[3:5]) }
func (r ReadBlobRequest) SetValueOffset(o uint16)     { putLe16(r[3:5], o) }

func DecodeReadBlobRequest(b []byte) (ReadBlobRequest, error) {
	if len(b) != 5 || Opcode(b[0]) != ReadBlobRequestCode {
		return nil, ble.ErrMalformed
	}
	return ReadBlobRequest(b), nil
}

type ReadBlobResponse []byte

func (r ReadBlobResponse) PartAttributeValue() []byte { return r[1:] }

func DecodeReadBlobResponse(b []byte) (ReadBlobResponse, error) {
	if len(b) < 1 || Opcode(b[0]) != ReadBlobResponseCode {
		return nil, ble.ErrMalformed
	}
	return ReadBlobResponse(b), nil
}

// ---------------------------------------------------------------------
// Read Multiple.

type ReadMultipleRequest []byte

// NewReadMultipleRequest lays handles out at offsets 1+2*i..1+2*i+1,
// sequentially, per Vol 3, Part F, 3.4.4.7 — not all packed at the same
// offset.
func NewReadMultipleRequest(handles []uint16) ReadMultipleRequest {
	r := make(ReadMultipleRequest, 1+2*len(handles))
	r[0] = byte(ReadMultipleRequestCode)
	for i, h := range handles {
		putLe16(r[1+2*i:], h)
	}
	return r
}

func (r ReadMultipleRequest) SetOfHandles() []byte { return r[1:] }

func DecodeReadMultipleRequest(b []byte) (ReadMultipleRequest, error) {
	if len(b) < 5 || Opcode(b[0]) != ReadMultipleRequestCode || (len(b)-1)%2 != 0 {
		return nil, ble.ErrMalformed
	}
	return ReadMultipleRequest(b), nil
}

type ReadMultipleResponse []byte

func (r ReadMultipleResponse) SetOfValues() []byte { return r[1:] }

func DecodeReadMultipleResponse(b []byte) (ReadMultipleResponse, error) {
	if len(b) < 1 || Opcode(b[0]) != ReadMultipleResponseCode {
		return nil, ble.ErrMalformed
	}
	return ReadMultipleResponse(b), nil
}

// ---------------------------------------------------------------------
// Write.

type WriteRequest []byte

func NewWriteRequest(handle uint16, value []byte) WriteRequest {
	r := make(WriteRequest, 3+len(value))
	r[0] = byte(WriteRequestCode)
	r.SetAttributeHandle(handle)
	r.SetAttributeValue(value)
	return r
}

func (r WriteRequest) AttributeHandle() uint16       { return le16(r[1:3]) }
func (r WriteRequest) SetAttributeHandle(h uint16)    { putLe16(r[1:3], h) }
func (r WriteRequest) AttributeValue() []byte         { return r[3:] }
func (r WriteRequest) SetAttributeValue(v []byte)     { copy(r[3:], v) }

func DecodeWriteRequest(b []byte) (WriteRequest, error) {
	if len(b) < 3 || Opcode(b[0]) != WriteRequestCode {
		return nil, ble.ErrMalformed
	}
	return WriteRequest(b), nil
}

type WriteResponse []byte

func NewWriteResponse() WriteResponse {
	return WriteResponse{byte(WriteResponseCode)}
}

func DecodeWriteResponse(b []byte) (WriteResponse, error) {
	if len(b) != 1 || Opcode(b[0]) != WriteResponseCode {
		return nil, ble.ErrMalformed
	}
	return WriteResponse(b), nil
}

type WriteCommand []byte

func NewWriteCommand(handle uint16, value []byte) WriteCommand {
	r := make(WriteCommand, 3+len(value))
	r[0] = byte(WriteCommandCode)
	r.SetAttributeHandle(handle)
	r.SetAttributeValue(value)
	return r
}

func (r WriteCommand) AttributeHandle() uint16    { return le16(r[1:3]) }
func (r WriteCommand) SetAttributeHandle(h uint16) { putLe16(r[1:3], h) }
func (r WriteCommand) AttributeValue() []byte      { return r[3:] }
func (r WriteCommand) SetAttributeValue(v []byte)  { copy(r[3:], v) }

func DecodeWriteCommand(b []byte) (WriteCommand, error) {
	if len(b) < 3 || Opcode(b[0]) != WriteCommandCode {
		return nil, ble.ErrMalformed
	}
	return WriteCommand(b), nil
}

// SignedWriteCommand carries a 12-byte authentication signature as its
// last 12 bytes; the value is everything between the handle and it. ATT
// security (signing) is out of scope for this module's procedures, but
// the PDU shape is still decodable since an unexpected signed command
// from a peer must not be treated as malformed.
type SignedWriteCommand []byte

func (r SignedWriteCommand) AttributeHandle() uint16 { return le16(r[1:3]) }
func (r SignedWriteCommand) AttributeValue() []byte  { return r[3 : len(r)-12] }
func (r SignedWriteCommand) AuthenticationSignature() [12]byte {
	var sig [12]byte
	copy(sig[:], r[len(r)-12:])
	return sig
}

func DecodeSignedWriteCommand(b []byte) (SignedWriteCommand, error) {
	if len(b) < 15 || Opcode(b[0]) != SignedWriteCommandCode {
		return nil, ble.ErrMalformed
	}
	return SignedWriteCommand(b), nil
}

// ---------------------------------------------------------------------
// Prepare Write / Execute Write.

type PrepareWriteRequest []byte

func NewPrepareWriteRequest(handle, offset uint16, value []byte) PrepareWriteRequest {
	r := make(PrepareWriteRequest, 5+len(value))
	r[0] = byte(PrepareWriteRequestCode)
	r.SetAttributeHandle(handle)
	r.SetValueOffset(offset)
	r.SetPartAttributeValue(value)
	return r
}

func (r PrepareWriteRequest) AttributeHandle() uint16      { return le16(r[1:3]) }
func (r PrepareWriteRequest) SetAttributeHandle(h uint16)   { putLe16(r[1:3], h) }
func (r PrepareWriteRequest) ValueOffset() uint16           { return le16(r[3:5]) }
func (r PrepareWriteRequest) SetValueOffset(o uint16)       { putLe16(r[3:5], o) }
func (r PrepareWriteRequest) PartAttributeValue() []byte    { return r[5:] }
func (r PrepareWriteRequest) SetPartAttributeValue(v []byte) { copy(r[5:], v) }

func DecodePrepareWriteRequest(b []byte) (PrepareWriteRequest, error) {
	if len(b) < 5 || Opcode(b[0]) != PrepareWriteRequestCode {
		return nil, ble.ErrMalformed
	}
	return PrepareWriteRequest(b), nil
}

type PrepareWriteResponse []byte

func (r PrepareWriteResponse) AttributeHandle() uint16   { return le16(r[1:3]) }
func (r PrepareWriteResponse) ValueOffset() uint16       { return le16(r[3:5]) }
func (r PrepareWriteResponse) PartAttributeValue() []byte { return r[5:] }

func DecodePrepareWriteResponse(b []byte) (PrepareWriteResponse, error) {
	if len(b) < 5 || Opcode(b[0]) != PrepareWriteResponseCode {
		return nil, ble.ErrMalformed
	}
	return PrepareWriteResponse(b), nil
}

// Execute Write flags [Vol 3, Part F, 3.4.6.3].
const (
	ExecuteWriteCancel = 0x00
	ExecuteWriteWrite  = 0x01
)

type ExecuteWriteRequest []byte

func NewExecuteWriteRequest(flags uint8) ExecuteWriteRequest {
	r := make(ExecuteWriteRequest, 2)
	r[0] = byte(ExecuteWriteRequestCode)
	r.SetFlags(flags)
	return r
}

func (r ExecuteWriteRequest) Flags() uint8      { return r[1] }
func (r ExecuteWriteRequest) SetFlags(f uint8)  { r[1] = f }

func DecodeExecuteWriteRequest(b []byte) (ExecuteWriteRequest, error) {
	if len(b) != 2 || Opcode(b[0]) != ExecuteWriteRequestCode {
		return nil, ble.ErrMalformed
	}
	return ExecuteWriteRequest(b), nil
}

type ExecuteWriteResponse []byte

func NewExecuteWriteResponse() ExecuteWriteResponse {
	return ExecuteWriteResponse{byte(ExecuteWriteResponseCode)}
}

func DecodeExecuteWriteResponse(b []byte) (ExecuteWriteResponse, error) {
	if len(b) != 1 || Opcode(b[0]) != ExecuteWriteResponseCode {
		return nil, ble.ErrMalformed
	}
	return ExecuteWriteResponse(b), nil
}

// ---------------------------------------------------------------------
// Notifications / Indications / Confirmation.

type HandleValueNotification []byte

func NewHandleValueNotification(handle uint16, value []byte) HandleValueNotification {
	r := make(HandleValueNotification, 3+len(value))
	r[0] = byte(HandleValueNotificationCode)
	r.SetAttributeHandle(handle)
	r.SetAttributeValue(value)
	return r
}

func (r HandleValueNotification) AttributeHandle() uint16   { return le16(r[1:3]) }
func (r HandleValueNotification) SetAttributeHandle(h uint16) { putLe16(r[1:3], h) }
func (r HandleValueNotification) AttributeValue() []byte    { return r[3:] }
func (r HandleValueNotification) SetAttributeValue(v []byte) { copy(r[3:], v) }

func DecodeHandleValueNotification(b []byte) (HandleValueNotification, error) {
	if len(b) < 3 || Opcode(b[0]) != HandleValueNotificationCode {
		return nil, ble.ErrMalformed
	}
	return HandleValueNotification(b), nil
}

type HandleValueIndication []byte

func NewHandleValueIndication(handle uint16, value []byte) HandleValueIndication {
	r := make(HandleValueIndication, 3+len(value))
	r[0] = byte(HandleValueIndicationCode)
	r.SetAttributeHandle(handle)
	r.SetAttributeValue(value)
	return r
}

func (r HandleValueIndication) AttributeHandle() uint16   { return le16(r[1:3]) }
func (r HandleValueIndication) SetAttributeHandle(h uint16) { putLe16(r[1:3], h) }
func (r HandleValueIndication) AttributeValue() []byte    { return r[3:] }
func (r HandleValueIndication) SetAttributeValue(v []byte) { copy(r[3:], v) }

func DecodeHandleValueIndication(b []byte) (HandleValueIndication, error) {
	if len(b) < 3 || Opcode(b[0]) != HandleValueIndicationCode {
		return nil, ble.ErrMalformed
	}
	return HandleValueIndication(b), nil
}

type HandleValueConfirmation []byte

func NewHandleValueConfirmation() HandleValueConfirmation {
	return HandleValueConfirmation{byte(HandleValueConfirmationCode)}
}

func DecodeHandleValueConfirmation(b []byte) (HandleValueConfirmation, error) {
	if len(b) != 1 || Opcode(b[0]) != HandleValueConfirmationCode {
		return nil, ble.ErrMalformed
	}
	return HandleValueConfirmation(b), nil
}

// ---------------------------------------------------------------------
// Generic dispatch.

// DecodeErrorIfAny returns the ATTError carried by b if b is an Error
// Response, or (nil, false) otherwise. It never returns a decode error:
// a 5-byte frame whose opcode happens to be ErrorResponseCode but whose
// shape is otherwise fine always decodes.
func DecodeErrorIfAny(b []byte) (*ble.ATTError, bool) {
	if len(b) == 0 || Opcode(b[0]) != ErrorResponseCode {
		return nil, false
	}
	r, err := DecodeErrorResponse(b)
	if err != nil {
		return nil, false
	}
	return &ble.ATTError{
		RequestOpcode: uint8(r.RequestOpcode()),
		Handle:        r.AttributeHandle(),
		Code:          r.ErrorCode(),
	}, true
}

// Validate checks that b's declared opcode has a recognized, correctly
// shaped PDU, without interpreting its fields. It is used by the
// connection engine's inbound dispatcher, which must never panic on a
// misbehaving peer's bytes.
func Validate(b []byte) (Opcode, error) {
	if len(b) == 0 {
		return 0, ble.ErrMalformed
	}
	op := Opcode(b[0])
	var err error
	switch op {
	case ErrorResponseCode:
		_, err = DecodeErrorResponse(b)
	case ExchangeMTURequestCode:
		_, err = DecodeExchangeMTURequest(b)
	case ExchangeMTUResponseCode:
		_, err = DecodeExchangeMTUResponse(b)
	case FindInformationRequestCode:
		_, err = DecodeFindInformationRequest(b)
	case FindInformationResponseCode:
		_, err = DecodeFindInformationResponse(b)
	case FindByTypeValueRequestCode:
		_, err = DecodeFindByTypeValueRequest(b)
	case FindByTypeValueResponseCode:
		_, err = DecodeFindByTypeValueResponse(b)
	case ReadByTypeRequestCode:
		_, err = DecodeReadByTypeRequest(b)
	case ReadByTypeResponseCode:
		_, err = DecodeReadByTypeResponse(b)
	case ReadRequestCode:
		_, err = DecodeReadRequest(b)
	case ReadResponseCode:
		_, err = DecodeReadResponse(b)
	case ReadBlobRequestCode:
		_, err = DecodeReadBlobRequest(b)
	case ReadBlobResponseCode:
		_, err = DecodeReadBlobResponse(b)
	case ReadMultipleRequestCode:
		_, err = DecodeReadMultipleRequest(b)
	case ReadMultipleResponseCode:
		_, err = DecodeReadMultipleResponse(b)
	case ReadByGroupTypeRequestCode:
		_, err = DecodeReadByGroupTypeRequest(b)
	case ReadByGroupTypeResponseCode:
		_, err = DecodeReadByGroupTypeResponse(b)
	case WriteRequestCode:
		_, err = DecodeWriteRequest(b)
	case WriteResponseCode:
		_, err = DecodeWriteResponse(b)
	case WriteCommandCode:
		_, err = DecodeWriteCommand(b)
	case SignedWriteCommandCode:
		_, err = DecodeSignedWriteCommand(b)
	case PrepareWriteRequestCode:
		_, err = DecodePrepareWriteRequest(b)
	case PrepareWriteResponseCode:
		_, err = DecodePrepareWriteResponse(b)
	case ExecuteWriteRequestCode:
		_, err = DecodeExecuteWriteRequest(b)
	case ExecuteWriteResponseCode:
		_, err = DecodeExecuteWriteResponse(b)
	case HandleValueNotificationCode:
		_, err = DecodeHandleValueNotification(b)
	case HandleValueIndicationCode:
		_, err = DecodeHandleValueIndication(b)
	case HandleValueConfirmationCode:
		_, err = DecodeHandleValueConfirmation(b)
	default:
		return op, fmt.Errorf("att: %w: unsupported opcode 0x%02x", ble.ErrMalformed, b[0])
	}
	if err != nil {
		return op, fmt.Errorf("att: %w: opcode %s", err, op)
	}
	return op, nil
}
