package ipaddr

import (
	"encoding/binary"
	"math"
	"math/big"
	"math/bits"
	"net/netip"
)

// Uint128 is an address or address count held as two 64-bit words.
// IPv4 values only use the low 32 bits of Lo.
type Uint128 struct {
	Hi, Lo uint64
}

var (
	// Zero is the zero value
	Zero = Uint128{}
	// One is the value 1
	One = Uint128{Lo: 1}
	// Max is 2^128-1
	Max = Uint128{Hi: math.MaxUint64, Lo: math.MaxUint64}
)

// From64 widens v
func From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// Add returns x + y, wrapping on overflow
func (x Uint128) Add(y Uint128) Uint128 {
	sum, _ := x.AddCarry(y)
	return sum
}

// AddCarry returns x + y and whether the addition overflowed
func (x Uint128) AddCarry(y Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(x.Lo, y.Lo, 0)
	hi, carry := bits.Add64(x.Hi, y.Hi, carry)
	return Uint128{Hi: hi, Lo: lo}, carry != 0
}

// Sub returns x - y. Callers must ensure x >= y
func (x Uint128) Sub(y Uint128) Uint128 {
	lo, borrow := bits.Sub64(x.Lo, y.Lo, 0)
	hi, _ := bits.Sub64(x.Hi, y.Hi, borrow)
	return Uint128{Hi: hi, Lo: lo}
}

// Cmp returns -1, 0 or +1 depending on whether x is less, equal or greater than y
func (x Uint128) Cmp(y Uint128) int {
	switch {
	case x.Hi < y.Hi:
		return -1
	case x.Hi > y.Hi:
		return 1
	case x.Lo < y.Lo:
		return -1
	case x.Lo > y.Lo:
		return 1
	}
	return 0
}

// Less reports whether x < y
func (x Uint128) Less(y Uint128) bool {
	return x.Cmp(y) < 0
}

// IsZero reports whether x == 0
func (x Uint128) IsZero() bool {
	return x.Hi == 0 && x.Lo == 0
}

// Lsh shifts x left by k bits. Shifts of 128 or more yield zero.
func (x Uint128) Lsh(k uint) Uint128 {
	switch {
	case k >= 128:
		return Zero
	case k >= 64:
		return Uint128{Hi: x.Lo << (k - 64)}
	case k == 0:
		return x
	}
	return Uint128{Hi: x.Hi<<k | x.Lo>>(64-k), Lo: x.Lo << k}
}

// Rsh shifts x right by k bits. Shifts of 128 or more yield zero.
func (x Uint128) Rsh(k uint) Uint128 {
	switch {
	case k >= 128:
		return Zero
	case k >= 64:
		return Uint128{Lo: x.Hi >> (k - 64)}
	case k == 0:
		return x
	}
	return Uint128{Hi: x.Hi >> k, Lo: x.Lo>>k | x.Hi<<(64-k)}
}

// And returns x & y
func (x Uint128) And(y Uint128) Uint128 {
	return Uint128{Hi: x.Hi & y.Hi, Lo: x.Lo & y.Lo}
}

// Or returns x | y
func (x Uint128) Or(y Uint128) Uint128 {
	return Uint128{Hi: x.Hi | y.Hi, Lo: x.Lo | y.Lo}
}

// Not returns ^x
func (x Uint128) Not() Uint128 {
	return Uint128{Hi: ^x.Hi, Lo: ^x.Lo}
}

// Mask returns 2^hostBits - 1, the offset mask of a block holding 2^hostBits addresses.
func Mask(hostBits uint) Uint128 {
	if hostBits == 0 {
		return Zero
	}
	return Max.Rsh(128 - hostBits)
}

// BlockSize returns 2^hostBits. It is zero for hostBits >= 128, which no pool can hold.
func BlockSize(hostBits uint) Uint128 {
	return One.Lsh(hostBits)
}

// IsAligned reports whether x is a multiple of 2^hostBits
func (x Uint128) IsAligned(hostBits uint) bool {
	return x.And(Mask(hostBits)).IsZero()
}

// AlignUp rounds x up to the next multiple of 2^hostBits.
// ok is false when the rounded value does not fit in 128 bits.
func (x Uint128) AlignUp(hostBits uint) (aligned Uint128, ok bool) {
	m := Mask(hostBits)
	sum, carry := x.AddCarry(m)
	if carry {
		return Zero, false
	}
	return sum.And(m.Not()), true
}

// Big converts x to a big.Int
func (x Uint128) Big() *big.Int {
	hi := new(big.Int).SetUint64(x.Hi)
	hi.Lsh(hi, 64)
	return hi.Or(hi, new(big.Int).SetUint64(x.Lo))
}

// String formats x in decimal
func (x Uint128) String() string {
	if x.Hi == 0 {
		return big.NewInt(0).SetUint64(x.Lo).String()
	}
	return x.Big().String()
}

// NetIP converts x to a netip.Addr of the given width
func (x Uint128) NetIP(w Width) netip.Addr {
	if w == IPv4 {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(x.Lo))
		return netip.AddrFrom4(b)
	}
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], x.Hi)
	binary.BigEndian.PutUint64(b[8:], x.Lo)
	return netip.AddrFrom16(b)
}

// AddrFrom converts a netip.Addr into its integer value and width.
// IPv4-mapped IPv6 addresses keep the IPv6 width.
func AddrFrom(a netip.Addr) (Uint128, Width) {
	if a.Is4() {
		b := a.As4()
		return Uint128{Lo: uint64(binary.BigEndian.Uint32(b[:]))}, IPv4
	}
	b := a.As16()
	return Uint128{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}, IPv6
}

// NextPow2Bits returns the smallest k with 2^k >= n. It returns 0 for n <= 1.
func NextPow2Bits(n uint64) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len64(n - 1))
}
