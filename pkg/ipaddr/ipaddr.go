package ipaddr

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ErrMalformedCIDR is returned for text that is not a valid CIDR
var ErrMalformedCIDR = errors.New("malformed CIDR")

// Width is the address width in bits
type Width int

const (
	// IPv4 addresses are 32 bits wide
	IPv4 Width = 32
	// IPv6 addresses are 128 bits wide
	IPv6 Width = 128
)

func (w Width) String() string {
	switch w {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return fmt.Sprintf("width(%d)", int(w))
}

// ParseFamily converts "ipv4" or "ipv6" (also "4" and "6") into a Width
func ParseFamily(s string) (Width, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4", "4", "inet":
		return IPv4, nil
	case "ipv6", "6", "inet6":
		return IPv6, nil
	}
	return 0, fmt.Errorf("unknown address family %q", s)
}

// Prefix is a CIDR block held as an integer network address
type Prefix struct {
	Addr  Uint128
	Bits  int
	Width Width
}

// ParseCIDR parses "addr/len". Host bits are masked off so the result is
// always the network containing addr.
func ParseCIDR(text string) (Prefix, error) {
	text = strings.TrimSpace(text)
	i := strings.LastIndexByte(text, '/')
	if i < 0 {
		return Prefix{}, fmt.Errorf("%w %q: missing prefix length", ErrMalformedCIDR, text)
	}

	addr, err := netip.ParseAddr(text[:i])
	if err != nil {
		return Prefix{}, fmt.Errorf("%w %q: %v", ErrMalformedCIDR, text, err)
	}
	if addr.Zone() != "" {
		return Prefix{}, fmt.Errorf("%w %q: zones are not allowed", ErrMalformedCIDR, text)
	}

	lenText := text[i+1:]
	if lenText == "" || strings.TrimLeft(lenText, "0123456789") != "" {
		return Prefix{}, fmt.Errorf("%w %q: bad prefix length", ErrMalformedCIDR, text)
	}
	bits, err := strconv.Atoi(lenText)
	if err != nil {
		return Prefix{}, fmt.Errorf("%w %q: %v", ErrMalformedCIDR, text, err)
	}

	v, w := AddrFrom(addr)
	if bits < 0 || bits > int(w) {
		return Prefix{}, fmt.Errorf("%w %q: prefix length must be in [0, %d]", ErrMalformedCIDR, text, int(w))
	}
	return NewPrefix(v, bits, w), nil
}

// MustParseCIDR is like ParseCIDR but panics on error
func MustParseCIDR(text string) Prefix {
	p, err := ParseCIDR(text)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPrefix builds the prefix of length bits containing addr
func NewPrefix(addr Uint128, bits int, w Width) Prefix {
	p := Prefix{Bits: bits, Width: w}
	p.Addr = addr.And(Mask(p.HostBits()).Not())
	return p
}

// FormatCIDR is the inverse of ParseCIDR
func FormatCIDR(addr Uint128, bits int, w Width) string {
	return FormatAddr(addr, w) + "/" + strconv.Itoa(bits)
}

// FormatAddr formats addr as dotted-quad or RFC 5952 text
func FormatAddr(addr Uint128, w Width) string {
	return addr.NetIP(w).String()
}

// HostBits is the number of host bits, log2 of the block size
func (p Prefix) HostBits() uint {
	return uint(int(p.Width) - p.Bits)
}

// Size is the number of addresses in p. It is zero for ::/0.
func (p Prefix) Size() Uint128 {
	return BlockSize(p.HostBits())
}

// Last returns the highest address in p
func (p Prefix) Last() Uint128 {
	return p.Addr.Or(Mask(p.HostBits()))
}

// Contains reports whether a falls inside p
func (p Prefix) Contains(a Uint128) bool {
	return p.Addr.Cmp(a) <= 0 && a.Cmp(p.Last()) <= 0
}

// Overlaps reports whether p and q share any address. Prefixes of different
// widths never overlap.
func (p Prefix) Overlaps(q Prefix) bool {
	if p.Width != q.Width {
		return false
	}
	return p.Contains(q.Addr) || q.Contains(p.Addr)
}

// ContainsPrefix reports whether q lies fully inside p
func (p Prefix) ContainsPrefix(q Prefix) bool {
	return p.Width == q.Width && q.Bits >= p.Bits && p.Contains(q.Addr)
}

func (p Prefix) String() string {
	return FormatCIDR(p.Addr, p.Bits, p.Width)
}

// NetIP converts p to a netip.Prefix
func (p Prefix) NetIP() netip.Prefix {
	return netip.PrefixFrom(p.Addr.NetIP(p.Width), p.Bits)
}

// IPNet converts p into a net.IPNet whose IP is ip
func (p Prefix) IPNet(ip Uint128) net.IPNet {
	return net.IPNet{
		IP:   net.IP(ip.NetIP(p.Width).AsSlice()),
		Mask: net.CIDRMask(p.Bits, int(p.Width)),
	}
}

// Broadcast returns the broadcast address of p, the same as Last
func (p Prefix) Broadcast() Uint128 {
	return p.Last()
}

// hasReservedEnds reports whether the network and broadcast addresses are
// unusable. RFC 3021 lets /31 and /32 IPv4 blocks use every address.
func (p Prefix) hasReservedEnds() bool {
	return p.Width == IPv4 && p.HostBits() >= 2
}

// FirstUsable returns the first host address
func (p Prefix) FirstUsable() Uint128 {
	if p.hasReservedEnds() {
		return p.Addr.Add(One)
	}
	return p.Addr
}

// LastUsable returns the last host address
func (p Prefix) LastUsable() Uint128 {
	if p.hasReservedEnds() {
		return p.Last().Sub(One)
	}
	return p.Last()
}

// UsableHosts counts the host addresses between FirstUsable and LastUsable
func (p Prefix) UsableHosts() Uint128 {
	return p.LastUsable().Sub(p.FirstUsable()).Add(One)
}
