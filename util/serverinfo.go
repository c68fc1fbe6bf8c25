package util

import (
	"fmt"
	"net"
	"sort"
)

// ServerInfo describes how devices on the local network can reach the server.
type ServerInfo struct {
	LanIPs        []string `json:"lanIps"`
	Port          uint16   `json:"port"`
	SuggestedURLs []string `json:"suggestedUrls"`
}

// interfaceAddrs is swapped in tests.
var interfaceAddrs = net.InterfaceAddrs

// LANIPv4s returns the sorted non-loopback IPv4 addresses of this host.
func LANIPv4s() ([]string, error) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return nil, err
	}
	ips := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			ips = append(ips, v4.String())
		}
	}
	sort.Strings(ips)
	return ips, nil
}

// BuildServerInfo collects LAN addresses and the URLs a phone or tablet on the
// same network could open.
func BuildServerInfo(port uint16) (ServerInfo, error) {
	ips, err := LANIPv4s()
	if err != nil {
		return ServerInfo{}, err
	}
	urls := make([]string, 0, len(ips)+1)
	urls = append(urls, fmt.Sprintf("http://localhost:%d", port))
	for _, ip := range ips {
		urls = append(urls, fmt.Sprintf("http://%s:%d", ip, port))
	}
	return ServerInfo{LanIPs: ips, Port: port, SuggestedURLs: urls}, nil
}
