package ble

// Client is a GATT client bound to one established Conn: the façade over
// discovery, read/write, and subscription procedures that the gatt
// package implements.
type Client interface {
	Addr() Addr
	Conn() Conn

	// ExchangeMTU negotiates the effective ATT_MTU, returning the
	// server's reported receive MTU.
	ExchangeMTU(clientRxMTU int) (int, error)

	// DiscoverProfile discovers the whole hierarchy of a server: every
	// service, its characteristics, and their descriptors. If force is
	// false and a profile has already been discovered, it is returned
	// without re-querying the server.
	DiscoverProfile(force bool) (*Profile, error)

	// DiscoverServices finds all primary services, or (if filter is
	// non-nil) only those whose UUID appears in filter.
	DiscoverServices(filter []UUID) ([]*Service, error)

	// DiscoverIncludedServices finds the services included by s, or (if
	// filter is non-nil) only those whose UUID appears in filter.
	DiscoverIncludedServices(filter []UUID, s *Service) ([]*Service, error)

	// DiscoverCharacteristics finds all characteristics within s, or (if
	// filter is non-nil) the first characteristic whose UUID appears in
	// filter; discovery stops at that match, so at most one is returned.
	DiscoverCharacteristics(filter []UUID, s *Service) ([]*Characteristic, error)

	// DiscoverDescriptors finds all descriptors within c, or (if filter
	// is non-nil) only those whose UUID appears in filter.
	DiscoverDescriptors(filter []UUID, c *Characteristic) ([]*Descriptor, error)

	// ReadCharacteristic reads a characteristic's value, escalating to a
	// blob read if the server's first response looks truncated.
	ReadCharacteristic(c *Characteristic) ([]byte, error)

	// ReadLongCharacteristic reads a characteristic's value across
	// however many Read Blob round trips it takes.
	ReadLongCharacteristic(c *Characteristic) ([]byte, error)

	// ReadCharacteristicsByUUID reads every attribute of type u within
	// [start, end] in one paginated procedure, returning handle -> value.
	ReadCharacteristicsByUUID(start, end uint16, u UUID) (map[uint16][]byte, error)

	// ReadMultipleCharacteristics reads >=2 handles in a single Read
	// Multiple Request, returning the server's opaque concatenated value
	// buffer. Must not be used when any value could be MTU-1 bytes.
	ReadMultipleCharacteristics(handles []uint16) ([]byte, error)

	// WriteCharacteristic writes a characteristic's value. If noRsp is
	// true, it uses Write Command (no response, silently truncated to
	// MTU-3 bytes); otherwise Write Request.
	WriteCharacteristic(c *Characteristic, v []byte, noRsp bool) error

	// WriteLongCharacteristic writes a value of any length via Prepare
	// Write / Execute Write. If reliable is true, each Prepare Write
	// Response is checked to echo back the sent (offset, value) exactly.
	WriteLongCharacteristic(c *Characteristic, v []byte, reliable bool) error

	// ReadDescriptor reads a descriptor's value.
	ReadDescriptor(d *Descriptor) ([]byte, error)

	// WriteDescriptor writes a descriptor's value via Write Request, or via
	// Prepare Write / Execute Write when it does not fit in one Write
	// Request.
	WriteDescriptor(d *Descriptor, v []byte) error

	// Subscribe enables notification (ind=false) or indication (ind=true)
	// delivery for c, routing incoming values to h.
	Subscribe(c *Characteristic, ind bool, h NotificationHandler) error

	// Unsubscribe disables notification or indication delivery for c.
	Unsubscribe(c *Characteristic, ind bool) error

	// ClearSubscriptions disables every active subscription on this client.
	ClearSubscriptions() error

	// CancelConnection tears down the underlying Conn.
	CancelConnection() error

	// Disconnected returns a channel closed when the client disconnects.
	Disconnected() <-chan struct{}
}
