package gatt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leso-kn/attgatt"
	"github.com/leso-kn/attgatt/gatt"
	"github.com/leso-kn/attgatt/internal/fakeperipheral"
	"github.com/leso-kn/attgatt/internal/loopback"
)

func newClientAndPeripheral(t *testing.T) (*gatt.Client, *fakeperipheral.Peripheral) {
	t.Helper()
	clientAddr := ble.NewBDAddr([6]byte{1, 1, 1, 1, 1, 1})
	serverAddr := ble.NewBDAddr([6]byte{2, 2, 2, 2, 2, 2})
	clientConn, serverConn := loopback.NewPair(clientAddr, serverAddr)

	peripheral := fakeperipheral.New(serverConn)
	go peripheral.Serve()

	client := gatt.NewClient(clientConn, nil)
	t.Cleanup(func() { client.CancelConnection() })
	return client, peripheral
}

func findService(t *testing.T, services []*ble.Service, u ble.UUID) *ble.Service {
	t.Helper()
	for _, s := range services {
		if s.UUID.Equal(u) {
			return s
		}
	}
	t.Fatalf("service %s not found", u)
	return nil
}

func findCharacteristic(t *testing.T, chars []*ble.Characteristic, u ble.UUID) *ble.Characteristic {
	t.Helper()
	for _, ch := range chars {
		if ch.UUID.Equal(u) {
			return ch
		}
	}
	t.Fatalf("characteristic %s not found", u)
	return nil
}

func TestDiscoverProfileBuildsFullHierarchy(t *testing.T) {
	client, _ := newClientAndPeripheral(t)

	profile, err := client.DiscoverProfile(true)
	require.NoError(t, err)
	require.Len(t, profile.Services, 2)

	devInfo := findService(t, profile.Services, ble.DeviceInfoUUID)
	require.Len(t, devInfo.Characteristics, 2)

	batt := findService(t, profile.Services, ble.BatteryUUID)
	require.Len(t, batt.Characteristics, 1)
	battChar := batt.Characteristics[0]
	require.NotNil(t, battChar.CCCD)

	// A second non-forced call must be served from cache rather than
	// re-discovering, so the same objects come back.
	cached, err := client.DiscoverProfile(false)
	require.NoError(t, err)
	assert.Len(t, cached.Services, 2)
}

func TestReadCharacteristicReturnsDecodedValue(t *testing.T) {
	client, _ := newClientAndPeripheral(t)

	services, err := client.DiscoverServices(nil)
	require.NoError(t, err)
	devInfo := findService(t, services, ble.DeviceInfoUUID)

	chars, err := client.DiscoverCharacteristics(nil, devInfo)
	require.NoError(t, err)
	mfg := findCharacteristic(t, chars, ble.ManufacturerNameUUID)

	value, err := client.ReadCharacteristic(mfg)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", string(value))
}

func TestWriteCharacteristicRoundTrip(t *testing.T) {
	client, _ := newClientAndPeripheral(t)

	services, err := client.DiscoverServices(nil)
	require.NoError(t, err)
	devInfo := findService(t, services, ble.DeviceInfoUUID)

	chars, err := client.DiscoverCharacteristics(nil, devInfo)
	require.NoError(t, err)
	mfg := findCharacteristic(t, chars, ble.ManufacturerNameUUID)

	require.NoError(t, client.WriteCharacteristic(mfg, []byte("Other Corp"), false))

	value, err := client.ReadCharacteristic(mfg)
	require.NoError(t, err)
	assert.Equal(t, "Other Corp", string(value))
}

func TestSubscribeDeliversNotifications(t *testing.T) {
	client, peripheral := newClientAndPeripheral(t)

	services, err := client.DiscoverServices(nil)
	require.NoError(t, err)
	batt := findService(t, services, ble.BatteryUUID)

	chars, err := client.DiscoverCharacteristics(nil, batt)
	require.NoError(t, err)
	battChar := chars[0]

	_, err = client.DiscoverDescriptors(nil, battChar)
	require.NoError(t, err)
	require.NotNil(t, battChar.CCCD)

	values := make(chan []byte, 1)
	require.NoError(t, client.Subscribe(battChar, false, func(id uint, data []byte) {
		values <- append([]byte(nil), data...)
	}))

	require.NoError(t, peripheral.NotifyBatteryLevel(42))

	select {
	case v := <-values:
		require.Len(t, v, 1)
		assert.EqualValues(t, 42, v[0])
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}

	require.NoError(t, client.Unsubscribe(battChar, false))

	// After unsubscribing, a notification must not reach the handler again:
	// the peripheral itself won't send one once the CCCD reads back as 0.
	require.NoError(t, peripheral.NotifyBatteryLevel(99))
	select {
	case <-values:
		t.Fatal("received notification after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReadMultipleCharacteristicsRequiresAtLeastTwoHandles(t *testing.T) {
	client, _ := newClientAndPeripheral(t)
	_, err := client.ReadMultipleCharacteristics([]uint16{0x0003})
	assert.ErrorIs(t, err, ble.ErrInvalidArgument)
}

func TestWriteLongCharacteristicReliable(t *testing.T) {
	client, _ := newClientAndPeripheral(t)

	services, err := client.DiscoverServices(nil)
	require.NoError(t, err)
	devInfo := findService(t, services, ble.DeviceInfoUUID)

	chars, err := client.DiscoverCharacteristics(nil, devInfo)
	require.NoError(t, err)
	mfg := findCharacteristic(t, chars, ble.ManufacturerNameUUID)

	// Longer than one MTU-3 Write Request could carry at the default MTU
	// (23), so the Prepare Write / Execute Write sequence spans several
	// MTU-5 chunks.
	long := []byte("A Rather Long Manufacturer Name Indeed")
	require.NoError(t, client.WriteLongCharacteristic(mfg, long, true))

	value, err := client.ReadLongCharacteristic(mfg)
	require.NoError(t, err)
	assert.Equal(t, long, value)
}

func TestDiscoverCharacteristicsByUUIDTerminatesOnFirstMatch(t *testing.T) {
	client, _ := newClientAndPeripheral(t)

	services, err := client.DiscoverServices(nil)
	require.NoError(t, err)
	devInfo := findService(t, services, ble.DeviceInfoUUID)

	chars, err := client.DiscoverCharacteristics([]ble.UUID{ble.ModelNumberUUID}, devInfo)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.True(t, chars[0].UUID.Equal(ble.ModelNumberUUID))
	assert.EqualValues(t, devInfo.EndHandle, chars[0].EndHandle)
}
