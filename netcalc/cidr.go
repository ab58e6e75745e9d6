package netcalc

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxPrefix is the longest valid IPv4 prefix length.
const MaxPrefix = 32

// reservedAddrs is the number of addresses Azure reserves in every subnet:
// network, broadcast, gateway and two DNS addresses.
const reservedAddrs = 5

var (
	ErrInvalidFormat       = errors.New("CIDR must be in address/prefix form")
	ErrInvalidAddress      = errors.New("invalid IPv4 address")
	ErrInvalidPrefixLength = errors.New("prefix length must be an integer between 0 and 32")
	ErrPrefixTooLong       = errors.New("prefix length is too long")
	ErrBlockTooSmall       = errors.New("block is too small to hold any usable hosts")
	ErrAddressOverflow     = errors.New("address arithmetic overflowed the IPv4 space")
)

// Cidr is an IPv4 address paired with a prefix length.
//
// Two Cidrs are equal only if both the address and the prefix match exactly;
// a /24 and a /26 inside it are distinct values even though one contains the
// other. Ordering is lexicographic on (address, prefix), so for equal
// addresses the bigger block (smaller prefix) sorts first.
type Cidr struct {
	Addr   uint32
	Prefix uint8
}

// Parse converts text in "a.b.c.d/n" form into a Cidr.
func Parse(s string) (Cidr, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Cidr{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	addr, err := ParseAddr(parts[0])
	if err != nil {
		return Cidr{}, err
	}

	prefix, err := strconv.Atoi(parts[1])
	if err != nil || prefix < 0 || prefix > MaxPrefix {
		return Cidr{}, fmt.Errorf("%w: %q", ErrInvalidPrefixLength, parts[1])
	}

	return Cidr{Addr: addr, Prefix: uint8(prefix)}, nil
}

// MustParse is Parse for known-good literals. It panics on invalid input and
// exists for tests and compile-time constants.
func MustParse(s string) Cidr {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseAddr converts a dotted-quad IPv4 address into its 32-bit value.
func ParseAddr(s string) (uint32, error) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	var addr uint32
	for _, o := range octets {
		if o == "" || len(o) > 3 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 || v > 255 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		addr = addr<<8 | uint32(v)
	}
	return addr, nil
}

// FormatAddr renders a 32-bit address in dotted-quad form.
func FormatAddr(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", addr>>24, addr>>16&0xff, addr>>8&0xff, addr&0xff)
}

// Mask returns the network mask for a prefix length as a 32-bit value.
func Mask(prefix uint8) (uint32, error) {
	if prefix > MaxPrefix {
		return 0, fmt.Errorf("%w: /%d", ErrPrefixTooLong, prefix)
	}
	if prefix == 0 {
		return 0, nil
	}
	return ^uint32(0) << (MaxPrefix - prefix), nil
}

// AlignmentMask returns the smallest prefix length for which addr is a legal
// network address, i.e. 32 minus the number of trailing zero bits.
func AlignmentMask(addr uint32) uint8 {
	return uint8(MaxPrefix - bits.TrailingZeros32(addr))
}

func (c Cidr) String() string {
	return fmt.Sprintf("%s/%d", FormatAddr(c.Addr), c.Prefix)
}

// NetworkAddr returns the address with the host bits cleared.
func (c Cidr) NetworkAddr() (uint32, error) {
	mask, err := Mask(c.Prefix)
	if err != nil {
		return 0, err
	}
	return c.Addr & mask, nil
}

// BroadcastAddr returns the highest address in the block.
func (c Cidr) BroadcastAddr() (uint32, error) {
	mask, err := Mask(c.Prefix)
	if err != nil {
		return 0, err
	}
	return c.Addr&mask | ^mask, nil
}

// Broadcast returns the block's broadcast address carrying the same prefix.
func (c Cidr) Broadcast() (Cidr, error) {
	addr, err := c.BroadcastAddr()
	if err != nil {
		return Cidr{}, err
	}
	return Cidr{Addr: addr, Prefix: c.Prefix}, nil
}

// Contains reports whether other's address range lies entirely within c.
func (c Cidr) Contains(other Cidr) bool {
	cLo, err := c.NetworkAddr()
	if err != nil {
		return false
	}
	cHi, err := c.BroadcastAddr()
	if err != nil {
		return false
	}
	oLo, err := other.NetworkAddr()
	if err != nil {
		return false
	}
	oHi, err := other.BroadcastAddr()
	if err != nil {
		return false
	}
	return oLo >= cLo && oHi <= cHi
}

// ContainsAddr reports whether a single address lies within c.
func (c Cidr) ContainsAddr(addr uint32) bool {
	return c.Contains(Cidr{Addr: addr, Prefix: MaxPrefix})
}

// UsableHosts returns the number of attachable addresses in the block after
// Azure's five reserved addresses. Blocks of /30 and longer cannot hold the
// reserved set and are rejected rather than underflowing.
func (c Cidr) UsableHosts() (uint64, error) {
	if c.Prefix > MaxPrefix {
		return 0, fmt.Errorf("%w: /%d", ErrPrefixTooLong, c.Prefix)
	}
	if c.Prefix >= MaxPrefix-2 {
		return 0, fmt.Errorf("%w: /%d", ErrBlockTooSmall, c.Prefix)
	}
	return (uint64(1) << (MaxPrefix - c.Prefix)) - reservedAddrs, nil
}

// NextBlock returns the block that follows c, sized at the requested prefix.
//
// When the requested block is the same size or bigger than c (prefix <=
// c.Prefix), the result starts immediately after c's network address at the
// requested size. When it is smaller (more specific), the result is the first
// block of that size past c's broadcast address. This models "advance past
// what has already been covered, at a possibly different granularity".
func (c Cidr) NextBlock(prefix uint8) (Cidr, error) {
	if prefix <= c.Prefix {
		addr, err := addrAfterBlock(c.Addr, prefix)
		if err != nil {
			return Cidr{}, err
		}
		return Cidr{Addr: addr, Prefix: prefix}, nil
	}

	broadcast, err := c.BroadcastAddr()
	if err != nil {
		return Cidr{}, err
	}
	addr, err := addrAfterBlock(broadcast, prefix)
	if err != nil {
		return Cidr{}, err
	}
	return Cidr{Addr: addr, Prefix: prefix}, nil
}

// addrAfterBlock returns the first address after the block of the given size
// containing addr.
func addrAfterBlock(addr uint32, prefix uint8) (uint32, error) {
	mask, err := Mask(prefix)
	if err != nil {
		return 0, err
	}
	size := uint64(1) << (MaxPrefix - prefix)
	next := uint64(addr&mask) + size
	if next > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: %s + /%d block", ErrAddressOverflow, FormatAddr(addr), prefix)
	}
	return uint32(next), nil
}

// Compare orders two Cidrs lexicographically on (address, prefix).
func (c Cidr) Compare(other Cidr) int {
	switch {
	case c.Addr < other.Addr:
		return -1
	case c.Addr > other.Addr:
		return 1
	case c.Prefix < other.Prefix:
		return -1
	case c.Prefix > other.Prefix:
		return 1
	}
	return 0
}

// Less reports whether c sorts before other.
func (c Cidr) Less(other Cidr) bool {
	return c.Compare(other) < 0
}

// MarshalJSON renders the CIDR as its "a.b.c.d/n" string form.
func (c Cidr) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

// UnmarshalJSON parses the "a.b.c.d/n" string form.
func (c *Cidr) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
