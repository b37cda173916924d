package att_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leso-kn/attgatt"
	"github.com/leso-kn/attgatt/att"
	"github.com/leso-kn/attgatt/internal/fakeperipheral"
	"github.com/leso-kn/attgatt/internal/loopback"
)

func newClientAgainstFakePeripheral(t *testing.T) (*att.Connection, ble.Conn) {
	t.Helper()
	clientAddr := ble.NewBDAddr([6]byte{1, 2, 3, 4, 5, 6})
	serverAddr := ble.NewBDAddr([6]byte{6, 5, 4, 3, 2, 1})
	clientConn, serverConn := loopback.NewPair(clientAddr, serverAddr)

	peripheral := fakeperipheral.New(serverConn)
	go peripheral.Serve()

	client := att.NewConnection(clientConn, nil)
	go client.RunRead()
	go client.RunWrite()
	return client, clientConn
}

func TestRequestsCompleteInOrderAgainstFakePeripheral(t *testing.T) {
	client, _ := newClientAgainstFakePeripheral(t)
	defer client.Close()

	frame, err := client.Do(att.NewReadRequest(0x0003)) // Manufacturer Name
	require.NoError(t, err)
	rsp, err := att.DecodeReadResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", string(rsp.AttributeValue()))

	frame, err = client.Do(att.NewReadRequest(0x0005)) // Model Number
	require.NoError(t, err)
	rsp, err = att.DecodeReadResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, "Model-1", string(rsp.AttributeValue()))
}

func TestConcurrentSendRequestsAreSerializedByTheGate(t *testing.T) {
	client, _ := newClientAgainstFakePeripheral(t)
	defer client.Close()

	type result struct {
		handle uint16
		value  string
		err    error
	}
	results := make(chan result, 2)

	send := func(handle uint16) {
		err := client.SendRequest(att.NewReadRequest(handle), func(frame []byte, err error) {
			if err != nil {
				results <- result{handle, "", err}
				return
			}
			rsp, decErr := att.DecodeReadResponse(frame)
			if decErr != nil {
				results <- result{handle, "", decErr}
				return
			}
			results <- result{handle, string(rsp.AttributeValue()), nil}
		})
		require.NoError(t, err)
	}

	// Both requests are handed to the gate back-to-back; the FIFO queue
	// must still deliver both correctly rather than interleaving frames.
	send(0x0003)
	send(0x0005)

	seen := map[uint16]string{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.err)
			seen[r.handle] = r.value
		case <-time.After(time.Second):
			t.Fatal("request never completed")
		}
	}
	assert.Equal(t, "Acme Corp", seen[0x0003])
	assert.Equal(t, "Model-1", seen[0x0005])
}

func TestErrorResponseMatchedToPendingRequest(t *testing.T) {
	client, _ := newClientAgainstFakePeripheral(t)
	defer client.Close()

	_, err := client.Do(att.NewReadRequest(0xBEEF)) // no such attribute
	require.Error(t, err)

	var attErr ble.ATTError
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, ble.ErrCodeInvalidHandle, attErr.Code)
}

func TestDisconnectionFailsAllOutstandingRequests(t *testing.T) {
	clientAddr := ble.NewBDAddr([6]byte{1, 2, 3, 4, 5, 6})
	serverAddr := ble.NewBDAddr([6]byte{6, 5, 4, 3, 2, 1})
	clientConn, serverConn := loopback.NewPair(clientAddr, serverAddr)

	client := att.NewConnection(clientConn, nil)
	go client.RunRead()
	go client.RunWrite()

	errs := make(chan error, 2)
	require.NoError(t, client.SendRequest(att.NewReadRequest(0x0001), func(_ []byte, err error) { errs <- err }))
	require.NoError(t, client.SendRequest(att.NewReadRequest(0x0002), func(_ []byte, err error) { errs <- err }))

	serverConn.Close()
	client.Close()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ble.ErrTransportClosed)
		case <-time.After(time.Second):
			t.Fatal("request was never failed after disconnection")
		}
	}
}

func TestIndicationIsConfirmedBeforeFurtherDispatch(t *testing.T) {
	clientAddr := ble.NewBDAddr([6]byte{1, 2, 3, 4, 5, 6})
	serverAddr := ble.NewBDAddr([6]byte{6, 5, 4, 3, 2, 1})
	clientConn, serverConn := loopback.NewPair(clientAddr, serverAddr)

	peripheral := fakeperipheral.New(serverConn)
	go peripheral.Serve()

	client := att.NewConnection(clientConn, nil)
	defer client.Close()
	go client.RunRead()
	go client.RunWrite()

	indicated := make(chan []byte, 1)
	client.SetIndicationHandler(func(handle uint16, value []byte) { indicated <- append([]byte(nil), value...) })

	// Enable indications on the battery level CCCD (handle 0x0009).
	_, err := client.Do(att.NewWriteRequest(0x0009, []byte{0x02, 0x00}))
	require.NoError(t, err)

	require.NoError(t, peripheral.IndicateBatteryLevel(73))

	select {
	case v := <-indicated:
		require.Len(t, v, 1)
		assert.EqualValues(t, 73, v[0])
	case <-time.After(time.Second):
		t.Fatal("indication never delivered")
	}

	select {
	case <-peripheral.Confirmed():
	case <-time.After(time.Second):
		t.Fatal("peripheral never received a confirmation for its indication")
	}

	// The gate must still be usable for an ordinary request afterward.
	frame, err := client.Do(att.NewReadRequest(0x0003))
	require.NoError(t, err)
	rsp, err := att.DecodeReadResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", string(rsp.AttributeValue()))
}

func TestSendRequestAfterCloseFailsImmediately(t *testing.T) {
	client, _ := newClientAgainstFakePeripheral(t)
	client.Close()
	<-client.Closed()

	err := client.SendRequest(att.NewReadRequest(0x0001), func([]byte, error) {})
	assert.ErrorIs(t, err, ble.ErrTransportClosed)
}
