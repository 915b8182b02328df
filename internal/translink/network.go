package translink

import (
	"net"
)

// Network reports whether the host has a usable data connection.
type Network interface {
	IsConnected() bool
}

// NetworkFunc adapts a function to Network.
type NetworkFunc func() bool

func (f NetworkFunc) IsConnected() bool { return f() }

// AlwaysConnected skips the reachability check.
var AlwaysConnected Network = NetworkFunc(func() bool { return true })

// InterfaceNetwork considers the host connected when at least one non-loopback
// interface is up and has an address.
type InterfaceNetwork struct {
	// interfaces is swapped out in tests.
	interfaces func() ([]net.Interface, error)
}

func (n InterfaceNetwork) IsConnected() bool {
	list := n.interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
