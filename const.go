package ble

// MinMTU is the default ATT_MTU in effect until a bearer completes MTU
// exchange [Vol 3, Part F, 3.4.2.1]. No PDU may exceed this size before
// that exchange completes.
const MinMTU = 23

// DefaultMTU is the client receive MTU advertised in the Exchange MTU
// Request when the caller hasn't configured one explicitly.
const DefaultMTU = MinMTU

// MaxMTU is the largest ATT_MTU a bearer may negotiate. The maximum
// length of an attribute value is 512 octets [Vol 3, Part F, 3.2.9]; a
// Read Blob / Prepare Write header adds up to 5 bytes on top of that.
const MaxMTU = 512 + 5

// UUIDs ...
var (
	GAPUUID         = UUID16(0x1800) // Generic Access
	GATTUUID        = UUID16(0x1801) // Generic Attribute
	CurrentTimeUUID = UUID16(0x1805) // Current Time Service
	DeviceInfoUUID  = UUID16(0x180A) // Device Information
	BatteryUUID     = UUID16(0x180F) // Battery Service
	HIDUUID         = UUID16(0x1812) // Human Interface Device

	PrimaryServiceUUID   = UUID16(0x2800)
	SecondaryServiceUUID = UUID16(0x2801)
	IncludeUUID          = UUID16(0x2802)
	CharacteristicUUID   = UUID16(0x2803)

	ClientCharacteristicConfigUUID = UUID16(0x2902)
	ServerCharacteristicConfigUUID = UUID16(0x2903)

	DeviceNameUUID               = UUID16(0x2A00)
	AppearanceUUID               = UUID16(0x2A01)
	PeripheralPrivacyUUID        = UUID16(0x2A02)
	ReconnectionAddrUUID         = UUID16(0x2A03)
	PeferredParamsUUID           = UUID16(0x2A04)
	CentralAddressResolutionUUID = UUID16(0x2AA6)
	ServiceChangedUUID           = UUID16(0x2A05)
	SystemIDUUID                 = UUID16(0x2A23)
	ModelNumberUUID              = UUID16(0x2A24)
	SerialNumberUUID             = UUID16(0x2A25)
	FirmwareRevisionStringUUID   = UUID16(0x2A26)
	HardwareRevisionUUID         = UUID16(0x2A27)
	SoftwareRevisionStringUUID   = UUID16(0x2A28)
	ManufacturerNameUUID         = UUID16(0x2A29)
	PnPIDUUID                    = UUID16(0x2A50)

	IEEE1107320601RegulatoryCertificationDataListUUID = UUID16(0x2A2A)
)

// Client Characteristic Configuration Descriptor bit values
// [Vol 3, Part G, 3.3.3.3].
const (
	GattNotifyFlag   uint16 = 0x0001
	GattIndicateFlag uint16 = 0x0002
)
