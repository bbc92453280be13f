package tool

import (
	"net"
	"slices"
)

// usableInterface reports whether a scanner on the LAN could reach iface.
func usableInterface(iface *net.Interface) bool {
	if iface.Flags&net.FlagUp == 0 {
		return false
	}
	if iface.Flags&net.FlagLoopback != 0 {
		return false
	}
	if iface.Flags&net.FlagPointToPoint != 0 {
		return false // utun / tun / vpn
	}
	return true
}

// LocalIPv4s lists the non-loopback IPv4 addresses of the interfaces that are up.
func LocalIPv4s() []string {
	var result []string
	ifaces, err := net.Interfaces()
	if err != nil {
		return result
	}
	for _, iface := range ifaces {
		if !usableInterface(&iface) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				result = append(result, ipv4.String())
			}
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// ReachableAddrs expands a listen address bound to all interfaces into the
// host:port pairs a scanner would dial. Specific addresses come back as is.
func ReachableAddrs(listen string) []string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return []string{listen}
	}
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return []string{listen}
	}
	var out []string
	for _, ip := range LocalIPv4s() {
		out = append(out, net.JoinHostPort(ip, port))
	}
	if len(out) == 0 {
		return []string{listen}
	}
	return out
}
