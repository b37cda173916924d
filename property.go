package ble

import "strings"

// Property is the GATT characteristic properties bitmask carried in a
// characteristic declaration [Vol 3, Part G, 3.3.1.1].
type Property uint8

// Characteristic property bits.
const (
	CharBroadcast Property = 1 << iota
	CharRead
	CharWriteNR
	CharWrite
	CharNotify
	CharIndicate
	CharSignedWrite
	CharExtended
)

var propertyNames = []struct {
	bit  Property
	name string
}{
	{CharBroadcast, "broadcast"},
	{CharRead, "read"},
	{CharWriteNR, "write-without-response"},
	{CharWrite, "write"},
	{CharNotify, "notify"},
	{CharIndicate, "indicate"},
	{CharSignedWrite, "signed-write"},
	{CharExtended, "extended"},
}

// String renders the set bits as a comma-separated list, e.g. "read,notify".
func (p Property) String() string {
	var names []string
	for _, pn := range propertyNames {
		if p&pn.bit != 0 {
			names = append(names, pn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
