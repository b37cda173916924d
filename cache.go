package ble

// GattCache is the authoritative local view of a server's discovered
// services, characteristics, and descriptors, keyed by UUID at each
// level. It is owned by one GATT client instance; only that client's
// procedure completions mutate it (spec's shared-resource policy) —
// callers may read the Profile a procedure returns, but must not mutate
// cache-owned state directly.
//
// complete_set inserts (a full-range discovery) evict prior entries at
// that level whose UUIDs are absent from the new list; partial inserts
// (e.g. discovery filtered by UUID, or a sub-range) only upsert and never
// evict unrelated entries.
type GattCache interface {
	// InsertServices upserts services into the cache. If completeSet is
	// true, it additionally evicts cached services whose UUID is not in
	// services.
	InsertServices(services []*Service, completeSet bool)

	// InsertCharacteristics upserts characteristics discovered for the
	// service identified by serviceUUID. If completeSet is true, it
	// additionally evicts cached characteristics of that service whose
	// UUID is not in characteristics.
	InsertCharacteristics(serviceUUID UUID, characteristics []*Characteristic, completeSet bool)

	// InsertDescriptors replaces the cached descriptors of the
	// characteristic identified by (serviceUUID, characteristicUUID).
	// Descriptor discovery is always a complete-set operation over the
	// characteristic's range, so there is no partial variant.
	InsertDescriptors(serviceUUID, characteristicUUID UUID, descriptors []*Descriptor)

	// EndHandleOf returns the upper bound of a characteristic's value
	// range: the next characteristic's declaration handle minus one, or
	// the enclosing service's end handle if it is the last
	// characteristic. Returns false if the characteristic isn't cached.
	EndHandleOf(serviceUUID, characteristicUUID UUID) (uint16, bool)

	// DescriptorsOf returns the cached descriptors of a characteristic.
	DescriptorsOf(serviceUUID, characteristicUUID UUID) ([]*Descriptor, bool)

	// UpdateClientConfig records the notify/indicate bits last written to
	// a characteristic's CCCD, without writing anything to the wire.
	UpdateClientConfig(serviceUUID, characteristicUUID UUID, bits uint16)

	// ClientConfig returns the notify/indicate bits last recorded by
	// UpdateClientConfig for a characteristic.
	ClientConfig(serviceUUID, characteristicUUID UUID) (uint16, bool)

	// Profile returns a snapshot of the entire cached hierarchy.
	Profile() *Profile
}
