package gatt

import (
	"sync"

	"github.com/leso-kn/attgatt"
)

// cache is the concrete ble.GattCache: a three-level map (service ->
// characteristic -> descriptor) guarded by one RWMutex, preserving
// discovery order so Profile() reproduces the server's declared ordering
// rather than map iteration order.
//
// Complete-range discovery evicts stale entries at that level; a
// filtered or partial discovery only upserts, leaving entries outside
// the filter untouched.
type cache struct {
	mu sync.RWMutex

	serviceOrder []string
	services     map[string]*ble.Service

	charOrder map[string][]string                   // serviceUUID -> []charUUID, in discovery order
	chars     map[string]map[string]*ble.Characteristic // serviceUUID -> charUUID -> *Characteristic

	descriptors map[string][]*ble.Descriptor // "serviceUUID/charUUID" -> descriptors, in discovery order

	clientConfig map[string]uint16 // "serviceUUID/charUUID" -> last-written CCCD bits
}

func newCache() *cache {
	return &cache{
		services:     make(map[string]*ble.Service),
		charOrder:    make(map[string][]string),
		chars:        make(map[string]map[string]*ble.Characteristic),
		descriptors:  make(map[string][]*ble.Descriptor),
		clientConfig: make(map[string]uint16),
	}
}

func charKey(serviceUUID, charUUID ble.UUID) string {
	return serviceUUID.String() + "/" + charUUID.String()
}

func (c *cache) InsertServices(services []*ble.Service, completeSet bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := make(map[string]bool, len(services))
	for _, s := range services {
		k := s.UUID.String()
		keep[k] = true
		if _, exists := c.services[k]; !exists {
			c.serviceOrder = append(c.serviceOrder, k)
		}
		c.services[k] = s
	}
	if !completeSet {
		return
	}
	var kept []string
	for _, k := range c.serviceOrder {
		if keep[k] {
			kept = append(kept, k)
			continue
		}
		delete(c.services, k)
		delete(c.charOrder, k)
		for ck := range c.chars[k] {
			delete(c.descriptors, k+"/"+ck)
			delete(c.clientConfig, k+"/"+ck)
		}
		delete(c.chars, k)
	}
	c.serviceOrder = kept
}

func (c *cache) InsertCharacteristics(serviceUUID ble.UUID, characteristics []*ble.Characteristic, completeSet bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sk := serviceUUID.String()
	if c.chars[sk] == nil {
		c.chars[sk] = make(map[string]*ble.Characteristic)
	}

	keep := make(map[string]bool, len(characteristics))
	for _, ch := range characteristics {
		ck := ch.UUID.String()
		keep[ck] = true
		if _, exists := c.chars[sk][ck]; !exists {
			c.charOrder[sk] = append(c.charOrder[sk], ck)
		}
		c.chars[sk][ck] = ch
	}
	if !completeSet {
		return
	}
	var kept []string
	for _, ck := range c.charOrder[sk] {
		if keep[ck] {
			kept = append(kept, ck)
			continue
		}
		delete(c.chars[sk], ck)
		delete(c.descriptors, sk+"/"+ck)
		delete(c.clientConfig, sk+"/"+ck)
	}
	c.charOrder[sk] = kept
}

func (c *cache) InsertDescriptors(serviceUUID, characteristicUUID ble.UUID, descriptors []*ble.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors[charKey(serviceUUID, characteristicUUID)] = descriptors
}

func (c *cache) EndHandleOf(serviceUUID, characteristicUUID ble.UUID) (uint16, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chars[serviceUUID.String()][characteristicUUID.String()]
	if !ok {
		return 0, false
	}
	return ch.EndHandle, true
}

func (c *cache) DescriptorsOf(serviceUUID, characteristicUUID ble.UUID) ([]*ble.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descriptors[charKey(serviceUUID, characteristicUUID)]
	return d, ok
}

func (c *cache) UpdateClientConfig(serviceUUID, characteristicUUID ble.UUID, bits uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientConfig[charKey(serviceUUID, characteristicUUID)] = bits
}

func (c *cache) ClientConfig(serviceUUID, characteristicUUID ble.UUID) (uint16, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bits, ok := c.clientConfig[charKey(serviceUUID, characteristicUUID)]
	return bits, ok
}

func (c *cache) Profile() *ble.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := &ble.Profile{}
	for _, sk := range c.serviceOrder {
		s := c.services[sk]
		cp := *s
		cp.Characteristics = nil
		for _, ck := range c.charOrder[sk] {
			ch := c.chars[sk][ck]
			chCopy := *ch
			chCopy.Descriptors = c.descriptors[sk+"/"+ck]
			for _, d := range chCopy.Descriptors {
				if d.UUID.Equal(ble.ClientCharacteristicConfigUUID) {
					chCopy.CCCD = d
					break
				}
			}
			cp.Characteristics = append(cp.Characteristics, &chCopy)
		}
		p.Services = append(p.Services, &cp)
	}
	return p
}
