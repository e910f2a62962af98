package session

import (
	"net"
)

// Network identifies the station on the network.
type Network struct {
	MACAddress string
	IPAddress  string
}

// DetectNetwork returns the MAC address and IPv4 address of the first
// interface that is up, not a loopback, and has an IPv4 address. Fields are
// empty when nothing qualifies.
func DetectNetwork() (Network, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return Network{}, err
	}
	return pickNetwork(ifaces, func(iface net.Interface) ([]net.Addr, error) {
		return iface.Addrs()
	}), nil
}

func pickNetwork(ifaces []net.Interface, addrs func(net.Interface) ([]net.Addr, error)) Network {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		list, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range list {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return Network{MACAddress: iface.HardwareAddr.String(), IPAddress: ip4.String()}
			}
		}
	}
	return Network{}
}
