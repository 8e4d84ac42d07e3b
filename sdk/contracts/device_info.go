package contracts

// DeviceInfo contains information about a MIDI port.
type DeviceInfo struct {
	ID           int    // Index to pass to SelectDevice.
	Name         string // Port name.
	Manufacturer string // Device manufacturer, when the driver reports one.
	EntityName   string // Name of the entity the port belongs to.
}
