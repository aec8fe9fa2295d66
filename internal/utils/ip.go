package utils

import (
	"net"
	"strconv"
	"strings"
)

// NetworkAddress returns the part of an "address/prefix" string before the
// first "/". A value without a prefix is returned unchanged.
func NetworkAddress(subnet string) string {
	addr, _, _ := strings.Cut(subnet, "/")
	return addr
}

// Endpoint formats ip and port as "ip:port", bracketing IPv6 addresses.
func Endpoint(ip string, port int) string {
	if ip == "" {
		ip = "?"
	}
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
