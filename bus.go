package optigatrust

import "fmt"

// Bus is a two-wire register-oriented transport to the secure element. A
// register transaction is either a write of the peer address followed by
// addr and data in one phase, or a select-then-read in two phases; the Bus
// implementation owns that framing, the core only deals in (addr, bytes).
type Bus interface {
	Connect(...any) error
	Disconnect() error
	RegWrite(addr byte, data []byte) error
	RegRead(addr byte, buf []byte) (int, error)
}

// NewInterfaceFunc constructs a Bus for a named interface and channel
// string, mirroring how board-specific backends register themselves.
type NewInterfaceFunc func(channel string) (Bus, error)

var interfaceRegistry = make(map[string]NewInterfaceFunc)

// RegisterInterface makes a named Bus backend available to NewBus. Backend
// packages call this from an init() function.
func RegisterInterface(name string, newInterface NewInterfaceFunc) {
	interfaceRegistry[name] = newInterface
}

// NewBus looks up a previously registered interface by name and constructs
// it for the given channel (e.g. a device path or host:port pair).
func NewBus(name string, channel string) (Bus, error) {
	create, ok := interfaceRegistry[name]
	if !ok {
		return nil, fmt.Errorf("optigatrust: unregistered bus interface %q", name)
	}
	return create(channel)
}
