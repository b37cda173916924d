package att

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leso-kn/attgatt"
)

func TestExchangeMTURoundTrip(t *testing.T) {
	req := NewExchangeMTURequest(185)
	op, err := Validate(req)
	require.NoError(t, err)
	assert.Equal(t, ExchangeMTURequestCode, op)

	decoded, err := DecodeExchangeMTURequest(req)
	require.NoError(t, err)
	assert.EqualValues(t, 185, decoded.ClientRxMTU())

	rsp := NewExchangeMTUResponse(247)
	decodedRsp, err := DecodeExchangeMTUResponse(rsp)
	require.NoError(t, err)
	assert.EqualValues(t, 247, decodedRsp.ServerRxMTU())
}

func TestReadRequestRoundTrip(t *testing.T) {
	req := NewReadRequest(0x002A)
	decoded, err := DecodeReadRequest(req)
	require.NoError(t, err)
	assert.EqualValues(t, 0x002A, decoded.AttributeHandle())
}

func TestWriteRequestRoundTrip(t *testing.T) {
	req := NewWriteRequest(0x0010, []byte("hello"))
	decoded, err := DecodeWriteRequest(req)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0010, decoded.AttributeHandle())
	assert.Equal(t, []byte("hello"), []byte(decoded.AttributeValue()))
}

func TestReadMultipleRequestHandlesAreSequential(t *testing.T) {
	req := NewReadMultipleRequest([]uint16{0x0001, 0x0002, 0x0003})
	decoded, err := DecodeReadMultipleRequest(req)
	require.NoError(t, err)
	set := decoded.SetOfHandles()
	require.Len(t, set, 6)
	assert.EqualValues(t, 0x0001, le16(set[0:2]))
	assert.EqualValues(t, 0x0002, le16(set[2:4]))
	assert.EqualValues(t, 0x0003, le16(set[4:6]))
}

func TestErrorResponseRoundTrip(t *testing.T) {
	rsp := NewErrorResponse(ReadRequestCode, 0x0099, ble.ErrCodeAttributeNotFound)
	attErr, isErr := DecodeErrorIfAny(rsp)
	require.True(t, isErr)
	assert.EqualValues(t, ReadRequestCode, attErr.RequestOpcode)
	assert.EqualValues(t, 0x0099, attErr.Handle)
	assert.Equal(t, ble.ErrCodeAttributeNotFound, attErr.Code)
	assert.ErrorIs(t, *attErr, ble.ErrAttrNotFound)
}

func TestValidateRejectsMalformedFrames(t *testing.T) {
	cases := []struct {
		name string
		b    []byte
	}{
		{"empty", []byte{}},
		{"short exchange mtu request", []byte{byte(ExchangeMTURequestCode), 0x01}},
		{"short read request", []byte{byte(ReadRequestCode), 0x01}},
		{"unsupported opcode", []byte{0x7F, 0x00}},
		{"find info with bad format byte", []byte{byte(FindInformationResponseCode), 0x09, 0x00, 0x01}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.b)
			assert.Error(t, err)
			assert.ErrorIs(t, err, ble.ErrMalformed)
		})
	}
}

func TestFindInformationResponsePairWidth(t *testing.T) {
	b16 := FindInformationResponse{byte(FindInformationResponseCode), FindInfoFormat16, 0x01, 0x00, 0x00, 0x28}
	r, err := DecodeFindInformationResponse(b16)
	require.NoError(t, err)
	assert.Equal(t, 4, r.PairWidth())

	b128 := make(FindInformationResponse, 2+18)
	b128[0] = byte(FindInformationResponseCode)
	b128[1] = FindInfoFormat128
	r2, err := DecodeFindInformationResponse(b128)
	require.NoError(t, err)
	assert.Equal(t, 18, r2.PairWidth())
}

func TestHandleValueNotificationAndConfirmation(t *testing.T) {
	n := NewHandleValueNotification(0x0030, []byte{0x55})
	decoded, err := DecodeHandleValueNotification(n)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0030, decoded.AttributeHandle())
	assert.Equal(t, []byte{0x55}, []byte(decoded.AttributeValue()))

	conf := NewHandleValueConfirmation()
	_, err = DecodeHandleValueConfirmation(conf)
	require.NoError(t, err)
}

func TestHandleValueIndicationRoundTrip(t *testing.T) {
	ind := NewHandleValueIndication(0x0031, []byte{0xAA, 0xBB})
	decoded, err := DecodeHandleValueIndication(ind)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0031, decoded.AttributeHandle())
	assert.Equal(t, []byte{0xAA, 0xBB}, []byte(decoded.AttributeValue()))
}

func TestPrepareAndExecuteWriteRoundTrip(t *testing.T) {
	req := NewPrepareWriteRequest(0x0012, 4, []byte("part"))
	decoded, err := DecodePrepareWriteRequest(req)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0012, decoded.AttributeHandle())
	assert.EqualValues(t, 4, decoded.ValueOffset())
	assert.Equal(t, []byte("part"), []byte(decoded.PartAttributeValue()))

	rsp := make(PrepareWriteResponse, 5+len("part"))
	rsp[0] = byte(PrepareWriteResponseCode)
	putLe16(rsp[1:3], 0x0012)
	putLe16(rsp[3:5], 4)
	copy(rsp[5:], "part")
	decodedRsp, err := DecodePrepareWriteResponse(rsp)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0012, decodedRsp.AttributeHandle())

	exec := NewExecuteWriteRequest(ExecuteWriteWrite)
	decodedExec, err := DecodeExecuteWriteRequest(exec)
	require.NoError(t, err)
	assert.EqualValues(t, ExecuteWriteWrite, decodedExec.Flags())

	execRsp := NewExecuteWriteResponse()
	_, err = DecodeExecuteWriteResponse(execRsp)
	require.NoError(t, err)
}

func TestFindByTypeValueRoundTrip(t *testing.T) {
	req := NewFindByTypeValueRequest(0x0001, 0xFFFF, ble.PrimaryServiceUUID, ble.BatteryUUID)
	decoded, err := DecodeFindByTypeValueRequest(req)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0001, decoded.StartingHandle())
	assert.EqualValues(t, 0xFFFF, decoded.EndingHandle())
	assert.True(t, decoded.AttributeType().Equal(ble.PrimaryServiceUUID))
	assert.Equal(t, []byte(ble.BatteryUUID), decoded.AttributeValue())

	rsp := FindByTypeValueResponse{byte(FindByTypeValueResponseCode), 0x06, 0x00, 0x09, 0x00}
	decodedRsp, err := DecodeFindByTypeValueResponse(rsp)
	require.NoError(t, err)
	list := decodedRsp.HandlesInformationList()
	require.Len(t, list, 4)
	assert.EqualValues(t, 0x0006, le16(list[0:2]))
	assert.EqualValues(t, 0x0009, le16(list[2:4]))
}

func TestReadByTypeAndReadByGroupTypeResponseDecoding(t *testing.T) {
	byType := ReadByTypeResponse{byte(ReadByTypeResponseCode), 4, 0x02, 0x00, 0x01, 0x02}
	decoded, err := DecodeReadByTypeResponse(byType)
	require.NoError(t, err)
	assert.EqualValues(t, 4, decoded.Length())
	assert.Len(t, decoded.AttributeDataList(), 4)

	byGroup := ReadByGroupTypeResponse{byte(ReadByGroupTypeResponseCode), 6, 0x01, 0x00, 0x05, 0x00, 0x0A, 0x18}
	decodedGroup, err := DecodeReadByGroupTypeResponse(byGroup)
	require.NoError(t, err)
	assert.EqualValues(t, 6, decodedGroup.Length())
	assert.Len(t, decodedGroup.AttributeDataList(), 6)
}
