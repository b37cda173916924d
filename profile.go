package ble

// Service is a discovered primary or secondary service
// [Vol 3, Part G, 3.1].
type Service struct {
	UUID      UUID
	Secondary bool
	Handle    uint16 // declaration handle (start of the service's range)
	EndHandle uint16

	Characteristics []*Characteristic
}

// Characteristic is a discovered characteristic declaration plus its
// value handle [Vol 3, Part G, 3.3].
type Characteristic struct {
	UUID        UUID
	ServiceUUID UUID // UUID of the service this characteristic was discovered under
	Property    Property
	Handle      uint16 // declaration handle
	ValueHandle uint16
	EndHandle   uint16 // one below the next characteristic's declaration, or the service's end handle

	Descriptors []*Descriptor
	CCCD        *Descriptor // shortcut to the Client Characteristic Configuration descriptor, if discovered

	Value []byte // last value read via ReadCharacteristic/ReadLongCharacteristic
}

// Descriptor is a discovered characteristic descriptor
// [Vol 3, Part G, 3.3.3].
type Descriptor struct {
	UUID   UUID
	Handle uint16

	Value []byte // last value read via ReadDescriptor
}

// Profile is the full discovered hierarchy of a GATT server: every
// service, its characteristics, and their descriptors.
type Profile struct {
	Services []*Service
}

// FindService returns the discovered service with the given UUID, or nil.
func (p *Profile) FindService(u UUID) *Service {
	for _, s := range p.Services {
		if s.UUID.Equal(u) {
			return s
		}
	}
	return nil
}

// FindCharacteristic returns the discovered characteristic with the given
// UUID within s, or nil.
func (s *Service) FindCharacteristic(u UUID) *Characteristic {
	for _, c := range s.Characteristics {
		if c.UUID.Equal(u) {
			return c
		}
	}
	return nil
}

// FindDescriptor returns the discovered descriptor with the given UUID
// within c, or nil.
func (c *Characteristic) FindDescriptor(u UUID) *Descriptor {
	for _, d := range c.Descriptors {
		if d.UUID.Equal(u) {
			return d
		}
	}
	return nil
}
