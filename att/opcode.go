// Package att implements the Attribute Protocol connection engine: PDU
// encoding/decoding, MTU negotiation, request/response pairing, and
// notification/indication dispatch [Vol 3, Part F].
package att

// Opcode is the one-byte ATT PDU header. Bits 0-5 are the method, bit 6
// is the command flag (no response expected), bit 7 is the
// authentication-signature-present flag [Vol 3, Part F, 3.3.1].
type Opcode uint8

const (
	opCommandFlag = 0x40
	opSignedFlag  = 0x80
	opMethodMask  = 0x3F
)

// Method returns the low six bits identifying the operation, with the
// command/signed flags masked off.
func (o Opcode) Method() Opcode { return o & opMethodMask }

// IsCommand reports whether bit 6 (no response expected) is set.
func (o Opcode) IsCommand() bool { return o&opCommandFlag != 0 }

// IsSigned reports whether bit 7 (authentication signature present) is set.
func (o Opcode) IsSigned() bool { return o&opSignedFlag != 0 }

// Opcodes defined by the Attribute Protocol [Vol 3, Part F, 3.4].
const (
	ErrorResponseCode Opcode = 0x01

	ExchangeMTURequestCode  Opcode = 0x02
	ExchangeMTUResponseCode Opcode = 0x03

	FindInformationRequestCode  Opcode = 0x04
	FindInformationResponseCode Opcode = 0x05

	FindByTypeValueRequestCode  Opcode = 0x06
	FindByTypeValueResponseCode Opcode = 0x07

	ReadByTypeRequestCode  Opcode = 0x08
	ReadByTypeResponseCode Opcode = 0x09

	ReadRequestCode  Opcode = 0x0A
	ReadResponseCode Opcode = 0x0B

	ReadBlobRequestCode  Opcode = 0x0C
	ReadBlobResponseCode Opcode = 0x0D

	ReadMultipleRequestCode  Opcode = 0x0E
	ReadMultipleResponseCode Opcode = 0x0F

	ReadByGroupTypeRequestCode  Opcode = 0x10
	ReadByGroupTypeResponseCode Opcode = 0x11

	WriteRequestCode  Opcode = 0x12
	WriteResponseCode Opcode = 0x13

	WriteCommandCode Opcode = 0x52 // WriteRequestCode | opCommandFlag

	PrepareWriteRequestCode  Opcode = 0x16
	PrepareWriteResponseCode Opcode = 0x17

	ExecuteWriteRequestCode  Opcode = 0x18
	ExecuteWriteResponseCode Opcode = 0x19

	HandleValueNotificationCode  Opcode = 0x1B
	HandleValueIndicationCode    Opcode = 0x1D
	HandleValueConfirmationCode  Opcode = 0x1E

	SignedWriteCommandCode Opcode = 0xD2 // WriteRequestCode | opCommandFlag | opSignedFlag
)

var opcodeNames = map[Opcode]string{
	ErrorResponseCode:            "ErrorResponse",
	ExchangeMTURequestCode:       "ExchangeMTURequest",
	ExchangeMTUResponseCode:      "ExchangeMTUResponse",
	FindInformationRequestCode:   "FindInformationRequest",
	FindInformationResponseCode:  "FindInformationResponse",
	FindByTypeValueRequestCode:   "FindByTypeValueRequest",
	FindByTypeValueResponseCode:  "FindByTypeValueResponse",
	ReadByTypeRequestCode:        "ReadByTypeRequest",
	ReadByTypeResponseCode:       "ReadByTypeResponse",
	ReadRequestCode:              "ReadRequest",
	ReadResponseCode:             "ReadResponse",
	ReadBlobRequestCode:          "ReadBlobRequest",
	ReadBlobResponseCode:         "ReadBlobResponse",
	ReadMultipleRequestCode:      "ReadMultipleRequest",
	ReadMultipleResponseCode:     "ReadMultipleResponse",
	ReadByGroupTypeRequestCode:   "ReadByGroupTypeRequest",
	ReadByGroupTypeResponseCode:  "ReadByGroupTypeResponse",
	WriteRequestCode:             "WriteRequest",
	WriteResponseCode:            "WriteResponse",
	WriteCommandCode:             "WriteCommand",
	PrepareWriteRequestCode:      "PrepareWriteRequest",
	PrepareWriteResponseCode:     "PrepareWriteResponse",
	ExecuteWriteRequestCode:      "ExecuteWriteRequest",
	ExecuteWriteResponseCode:     "ExecuteWriteResponse",
	HandleValueNotificationCode:  "HandleValueNotification",
	HandleValueIndicationCode:    "HandleValueIndication",
	HandleValueConfirmationCode:  "HandleValueConfirmation",
	SignedWriteCommandCode:       "SignedWriteCommand",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "Unsupported"
}

// responseFor maps each request opcode to the response opcode the
// pending-transaction gate expects.
var responseFor = map[Opcode]Opcode{
	ExchangeMTURequestCode:      ExchangeMTUResponseCode,
	FindInformationRequestCode:  FindInformationResponseCode,
	FindByTypeValueRequestCode:  FindByTypeValueResponseCode,
	ReadByTypeRequestCode:       ReadByTypeResponseCode,
	ReadRequestCode:             ReadResponseCode,
	ReadBlobRequestCode:         ReadBlobResponseCode,
	ReadMultipleRequestCode:     ReadMultipleResponseCode,
	ReadByGroupTypeRequestCode:  ReadByGroupTypeResponseCode,
	WriteRequestCode:            WriteResponseCode,
	PrepareWriteRequestCode:     PrepareWriteResponseCode,
	ExecuteWriteRequestCode:     ExecuteWriteResponseCode,
}

// ResponseFor returns the response opcode expected for a request opcode,
// and whether req is in fact a request (as opposed to a command,
// response, notification, indication, or confirmation).
func ResponseFor(req Opcode) (Opcode, bool) {
	rsp, ok := responseFor[req]
	return rsp, ok
}

// IsServerInitiated reports whether op is a notification or indication —
// a PDU the server sends unprompted, never paired with a pending request.
func IsServerInitiated(op Opcode) bool {
	return op == HandleValueNotificationCode || op == HandleValueIndicationCode
}
