package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leso-kn/attgatt"
)

func TestCacheCompleteSetEvictsMissingServices(t *testing.T) {
	c := newCache()
	svcA := &ble.Service{UUID: ble.UUID16(0x1800), Handle: 1, EndHandle: 5}
	svcB := &ble.Service{UUID: ble.UUID16(0x1801), Handle: 6, EndHandle: 9}
	c.InsertServices([]*ble.Service{svcA, svcB}, true)
	require.Len(t, c.Profile().Services, 2)

	// A second complete-set discovery that only reports svcA must evict svcB.
	c.InsertServices([]*ble.Service{svcA}, true)
	p := c.Profile()
	require.Len(t, p.Services, 1)
	assert.True(t, p.Services[0].UUID.Equal(svcA.UUID))
}

func TestCachePartialInsertDoesNotEvict(t *testing.T) {
	c := newCache()
	svcA := &ble.Service{UUID: ble.UUID16(0x1800), Handle: 1, EndHandle: 5}
	svcB := &ble.Service{UUID: ble.UUID16(0x1801), Handle: 6, EndHandle: 9}
	c.InsertServices([]*ble.Service{svcA, svcB}, true)

	// A filtered (partial) discovery that only names svcA must not evict svcB.
	c.InsertServices([]*ble.Service{svcA}, false)
	assert.Len(t, c.Profile().Services, 2)
}

func TestCacheCharacteristicsCompleteSetEviction(t *testing.T) {
	c := newCache()
	svc := ble.UUID16(0x1800)
	ch1 := &ble.Characteristic{UUID: ble.UUID16(0x2A00), Handle: 2, EndHandle: 3}
	ch2 := &ble.Characteristic{UUID: ble.UUID16(0x2A01), Handle: 4, EndHandle: 5}
	c.InsertCharacteristics(svc, []*ble.Characteristic{ch1, ch2}, true)
	c.InsertCharacteristics(svc, []*ble.Characteristic{ch1}, true)

	_, ok := c.EndHandleOf(svc, ch2.UUID)
	assert.False(t, ok)
	eh, ok := c.EndHandleOf(svc, ch1.UUID)
	require.True(t, ok)
	assert.EqualValues(t, 3, eh)
}

func TestCacheClientConfigRoundTrip(t *testing.T) {
	c := newCache()
	svc := ble.UUID16(0x1800)
	ch := ble.UUID16(0x2A00)

	_, ok := c.ClientConfig(svc, ch)
	assert.False(t, ok)

	c.UpdateClientConfig(svc, ch, ble.GattNotifyFlag)
	bits, ok := c.ClientConfig(svc, ch)
	require.True(t, ok)
	assert.Equal(t, ble.GattNotifyFlag, bits)
}

func TestCacheDescriptorsAndProfileNesting(t *testing.T) {
	c := newCache()
	svc := &ble.Service{UUID: ble.UUID16(0x1800), Handle: 1, EndHandle: 5}
	ch := &ble.Characteristic{UUID: ble.UUID16(0x2A00), ServiceUUID: svc.UUID, Handle: 2, ValueHandle: 3, EndHandle: 5}
	cccd := &ble.Descriptor{UUID: ble.ClientCharacteristicConfigUUID, Handle: 4}

	c.InsertServices([]*ble.Service{svc}, true)
	c.InsertCharacteristics(svc.UUID, []*ble.Characteristic{ch}, true)
	c.InsertDescriptors(svc.UUID, ch.UUID, []*ble.Descriptor{cccd})

	p := c.Profile()
	require.Len(t, p.Services, 1)
	require.Len(t, p.Services[0].Characteristics, 1)
	gotCh := p.Services[0].Characteristics[0]
	require.Len(t, gotCh.Descriptors, 1)
	require.NotNil(t, gotCh.CCCD)
	assert.True(t, gotCh.CCCD.UUID.Equal(ble.ClientCharacteristicConfigUUID))
}
