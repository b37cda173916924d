package ble

import "fmt"

// Sentinel errors returned by the ATT/GATT layers. Callers compare with
// errors.Is; transport and decode failures are wrapped around these with
// fmt.Errorf("...: %w", ...) so the chain survives.
var (
	// ErrInvalidArgument is returned when a caller passes something the
	// procedure can't send: a non-request opcode to SendRequest, fewer than
	// two handles to Read Multiple, or a value too long for one Write
	// Request.
	ErrInvalidArgument = fmt.Errorf("ble: invalid argument")

	// ErrInvalidResponse is returned when a peer's response is the right
	// opcode but semantically wrong: a pagination cycle or a reliable-write
	// echo mismatch. A grouping whose tail isn't a multiple of its stride
	// fails decoding with ErrMalformed instead.
	ErrInvalidResponse = fmt.Errorf("ble: invalid response")

	// ErrMalformed is returned when inbound bytes don't decode to any
	// known PDU shape.
	ErrMalformed = fmt.Errorf("ble: malformed PDU")

	// ErrAttrNotFound mirrors the wire Attribute Not Found error code so
	// callers that only care about that one outcome can use errors.Is
	// without unwrapping an ATTError.
	ErrAttrNotFound = fmt.Errorf("ble: attribute not found")

	// ErrInLongWrite is returned when a reliable or non-reliable long
	// write is attempted while one is already in progress on the bearer.
	ErrInLongWrite = fmt.Errorf("ble: long write already in progress")

	// ErrClientConfigurationMissing is returned by Subscribe/Unsubscribe
	// when the characteristic has no Client Characteristic Configuration
	// descriptor.
	ErrClientConfigurationMissing = fmt.Errorf("ble: client characteristic configuration descriptor not found")

	// ErrTransportClosed is returned by every pending and queued request
	// once the underlying transport has been closed or failed.
	ErrTransportClosed = fmt.Errorf("ble: transport closed")

	// ErrReqNotSupp names the outcome of a server-role request on a bearer
	// that has no server (this module implements no GATT server). The
	// connection engine answers such a request on the wire with
	// ErrCodeRequestNotSupported; no procedure returns this value.
	ErrReqNotSupp = fmt.Errorf("ble: request not supported")
)

// ErrorCode is a wire-level ATT error code carried in an Error Response
// [Vol 3, Part F, 3.4.1.1].
type ErrorCode uint8

// Error codes defined by the Attribute Protocol.
const (
	ErrCodeInvalidHandle           ErrorCode = 0x01
	ErrCodeReadNotPermitted        ErrorCode = 0x02
	ErrCodeWriteNotPermitted       ErrorCode = 0x03
	ErrCodeInvalidPDU              ErrorCode = 0x04
	ErrCodeInsufficientAuthn       ErrorCode = 0x05
	ErrCodeRequestNotSupported     ErrorCode = 0x06
	ErrCodeInvalidOffset           ErrorCode = 0x07
	ErrCodeInsufficientAuthz       ErrorCode = 0x08
	ErrCodePrepareQueueFull        ErrorCode = 0x09
	ErrCodeAttributeNotFound       ErrorCode = 0x0A
	ErrCodeAttributeNotLong        ErrorCode = 0x0B
	ErrCodeInsufficientEncKeySize  ErrorCode = 0x0C
	ErrCodeInvalidAttributeLen     ErrorCode = 0x0D
	ErrCodeUnlikelyError           ErrorCode = 0x0E
	ErrCodeInsufficientEncryption  ErrorCode = 0x0F
	ErrCodeUnsupportedGroupType    ErrorCode = 0x10
	ErrCodeInsufficientResources   ErrorCode = 0x11
)

var errCodeNames = map[ErrorCode]string{
	ErrCodeInvalidHandle:          "invalid handle",
	ErrCodeReadNotPermitted:       "read not permitted",
	ErrCodeWriteNotPermitted:      "write not permitted",
	ErrCodeInvalidPDU:             "invalid PDU",
	ErrCodeInsufficientAuthn:      "insufficient authentication",
	ErrCodeRequestNotSupported:    "request not supported",
	ErrCodeInvalidOffset:          "invalid offset",
	ErrCodeInsufficientAuthz:      "insufficient authorization",
	ErrCodePrepareQueueFull:       "prepare queue full",
	ErrCodeAttributeNotFound:      "attribute not found",
	ErrCodeAttributeNotLong:       "attribute not long",
	ErrCodeInsufficientEncKeySize: "insufficient encryption key size",
	ErrCodeInvalidAttributeLen:    "invalid attribute value length",
	ErrCodeUnlikelyError:          "unlikely error",
	ErrCodeInsufficientEncryption: "insufficient encryption",
	ErrCodeUnsupportedGroupType:   "unsupported group type",
	ErrCodeInsufficientResources:  "insufficient resources",
}

func (c ErrorCode) String() string {
	if s, ok := errCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("error code 0x%02x", uint8(c))
}

// ATTError is the typed outcome of a wire Error Response PDU.
type ATTError struct {
	RequestOpcode uint8
	Handle        uint16
	Code          ErrorCode
}

func (e ATTError) Error() string {
	return fmt.Sprintf("ble: att error response: opcode=0x%02x handle=0x%04x code=%s", e.RequestOpcode, e.Handle, e.Code)
}

// Is lets errors.Is(err, ErrAttrNotFound) match an ATTError carrying that
// wire code, so callers don't have to type-assert just to detect the one
// outcome that ends a discovery loop successfully.
func (e ATTError) Is(target error) bool {
	return target == ErrAttrNotFound && e.Code == ErrCodeAttributeNotFound
}
