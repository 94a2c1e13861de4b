// Package privacy reduces personal identifiers to forms safe for logs.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
)

// AnonymizeIP truncates an address to its network prefix (/24 for IPv4,
// /48 for IPv6). Unparseable input is returned as "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String() + "/24"
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String() + "/48"
}

// HashIdentifier returns a short stable digest of an identifier for log
// correlation without exposing the raw value.
func HashIdentifier(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
