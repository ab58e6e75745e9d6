package netcalc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("valid round trip", func(t *testing.T) {
		for _, in := range []string{"0.0.0.0/0", "10.0.0.0/8", "10.6.2.80/28", "192.168.1.42/32", "255.255.255.255/32"} {
			c, err := Parse(in)
			require.NoError(t, err)
			require.Equal(t, in, c.String(), "parsed CIDR should render back to its input")

			again, err := Parse(c.String())
			require.NoError(t, err)
			require.Equal(t, c, again, "parse(format(parse(x))) should equal parse(x)")
		}
	})

	t.Run("surrounding whitespace is accepted", func(t *testing.T) {
		c, err := Parse("  10.1.2.0/24 ")
		require.NoError(t, err)
		require.Equal(t, Cidr{Addr: 0x0a010200, Prefix: 24}, c)
	})

	t.Run("invalid input", func(t *testing.T) {
		cases := []struct {
			in   string
			want error
		}{
			{"10.0.0.0", ErrInvalidFormat},
			{"10.0.0.0/8/12", ErrInvalidFormat},
			{"", ErrInvalidFormat},
			{"10.0.0/8", ErrInvalidAddress},
			{"10.0.0.256/8", ErrInvalidAddress},
			{"10.0.0.-1/8", ErrInvalidAddress},
			{"ten.0.0.0/8", ErrInvalidAddress},
			{"10.0.0.0/33", ErrInvalidPrefixLength},
			{"10.0.0.0/-1", ErrInvalidPrefixLength},
			{"10.0.0.0/abc", ErrInvalidPrefixLength},
			{"10.0.0.0/", ErrInvalidPrefixLength},
		}
		for _, tc := range cases {
			_, err := Parse(tc.in)
			require.ErrorIs(t, err, tc.want, "input %q", tc.in)
		}
	})
}

func TestMask(t *testing.T) {
	cases := []struct {
		prefix uint8
		want   uint32
	}{
		{0, 0x00000000},
		{8, 0xFF000000},
		{16, 0xFFFF0000},
		{24, 0xFFFFFF00},
		{32, 0xFFFFFFFF},
	}
	for _, tc := range cases {
		got, err := Mask(tc.prefix)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "mask for /%d", tc.prefix)
	}

	_, err := Mask(33)
	require.ErrorIs(t, err, ErrPrefixTooLong)
}

func TestNetworkAndBroadcast(t *testing.T) {
	cases := []struct {
		in        string
		network   string
		broadcast string
	}{
		{"192.168.1.42/24", "192.168.1.0", "192.168.1.255"},
		{"192.168.1.42/16", "192.168.0.0", "192.168.255.255"},
		{"192.168.1.42/8", "192.0.0.0", "192.255.255.255"},
		{"192.168.1.42/32", "192.168.1.42", "192.168.1.42"},
		{"0.0.0.0/0", "0.0.0.0", "255.255.255.255"},
	}
	for _, tc := range cases {
		c := MustParse(tc.in)
		lo, err := c.NetworkAddr()
		require.NoError(t, err)
		hi, err := c.BroadcastAddr()
		require.NoError(t, err)
		require.Equal(t, tc.network, FormatAddr(lo), "network of %s", tc.in)
		require.Equal(t, tc.broadcast, FormatAddr(hi), "broadcast of %s", tc.in)
		require.LessOrEqual(t, lo, hi, "network address should never exceed broadcast")
	}

	_, err := Cidr{Addr: 1, Prefix: 40}.NetworkAddr()
	require.ErrorIs(t, err, ErrPrefixTooLong)
}

func TestContains(t *testing.T) {
	outer := MustParse("10.0.0.0/8")
	inner := MustParse("10.0.10.0/24")
	sibling := MustParse("11.0.0.0/24")

	require.True(t, outer.Contains(outer), "a block always contains itself")
	require.True(t, inner.Contains(inner))
	require.True(t, outer.Contains(inner))
	require.False(t, inner.Contains(outer))
	require.False(t, outer.Contains(sibling))

	require.True(t, outer.ContainsAddr(MustParse("10.255.255.255/32").Addr))
	require.False(t, outer.ContainsAddr(MustParse("11.0.0.0/32").Addr))
}

func TestUsableHosts(t *testing.T) {
	cases := []struct {
		prefix uint8
		want   uint64
	}{
		{0, 4294967291},
		{8, 16777211},
		{16, 65531},
		{24, 251},
		{25, 123},
		{26, 59},
		{27, 27},
		{28, 11},
		{29, 3},
	}
	for _, tc := range cases {
		got, err := Cidr{Addr: 0x0a000000, Prefix: tc.prefix}.UsableHosts()
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "usable hosts in a /%d", tc.prefix)
	}

	_, err := Cidr{Prefix: 30}.UsableHosts()
	require.ErrorIs(t, err, ErrBlockTooSmall, "a /30 cannot hold the reserved addresses")
	_, err = Cidr{Prefix: 32}.UsableHosts()
	require.ErrorIs(t, err, ErrBlockTooSmall)
}

func TestNextBlock(t *testing.T) {
	t.Run("same size", func(t *testing.T) {
		cases := []struct {
			in   string
			want string
		}{
			{"10.1.1.0/28", "10.1.1.16/28"},
			{"10.1.1.0/29", "10.1.1.8/29"},
			{"192.168.1.0/8", "193.0.0.0/8"},
			{"10.2.3.4/16", "10.3.0.0/16"},
		}
		for _, tc := range cases {
			c := MustParse(tc.in)
			next, err := c.NextBlock(c.Prefix)
			require.NoError(t, err)
			require.Equal(t, MustParse(tc.want), next, "block after %s", tc.in)
		}
	})

	t.Run("bigger block requested", func(t *testing.T) {
		next, err := MustParse("10.1.1.8/29").NextBlock(28)
		require.NoError(t, err)
		require.Equal(t, MustParse("10.1.1.16/28"), next)
	})

	t.Run("more specific block advances past the broadcast", func(t *testing.T) {
		next, err := MustParse("192.168.1.0/8").NextBlock(16)
		require.NoError(t, err)
		require.Equal(t, MustParse("193.0.0.0/16"), next)

		next, err = MustParse("10.2.3.4/16").NextBlock(24)
		require.NoError(t, err)
		require.Equal(t, MustParse("10.3.0.0/24"), next)

		next, err = MustParse("10.18.126.0/24").NextBlock(28)
		require.NoError(t, err)
		require.Equal(t, MustParse("10.18.127.0/28"), next)

		next, err = next.NextBlock(24)
		require.NoError(t, err)
		require.Equal(t, MustParse("10.18.128.0/24"), next)
	})

	t.Run("overflow at the top of the address space", func(t *testing.T) {
		_, err := MustParse("255.255.255.0/24").NextBlock(24)
		require.ErrorIs(t, err, ErrAddressOverflow)
	})
}

func TestAlignmentMask(t *testing.T) {
	cases := []struct {
		addr string
		want uint8
	}{
		{"192.168.1.1", 32},
		{"10.6.2.80", 28},  // four trailing zero bits
		{"10.11.12.0", 22}, // ten trailing zero bits
		{"10.0.0.0", 7}, // 0x0a000000 has 25 trailing zero bits
		{"128.0.0.0", 1},
		{"0.0.0.0", 0},
	}
	for _, tc := range cases {
		addr, err := ParseAddr(tc.addr)
		require.NoError(t, err)
		require.Equal(t, tc.want, AlignmentMask(addr), "alignment mask of %s", tc.addr)
	}
}

func TestCompare(t *testing.T) {
	a := MustParse("10.0.0.1/24")
	b := MustParse("10.0.0.2/24")
	c := MustParse("10.0.0.1/24")

	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.Equal(t, 0, a.Compare(c))

	// a bigger block covering a smaller one sorts first for equal addresses,
	// and overlapping blocks are never equal
	wide := MustParse("10.0.0.0/8")
	narrow := MustParse("10.0.10.64/26")
	mid := MustParse("10.0.10.0/24")
	require.True(t, wide.Less(mid))
	require.True(t, mid.Less(narrow))
	require.NotEqual(t, 0, wide.Compare(mid), "containment does not imply equality")

	samAddrWide := MustParse("10.0.0.0/16")
	samAddrNarrow := MustParse("10.0.0.0/24")
	require.True(t, samAddrWide.Less(samAddrNarrow))
}

func TestJSONRoundTrip(t *testing.T) {
	c := MustParse("10.18.126.0/24")
	data, err := c.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"10.18.126.0/24"`, string(data))

	var decoded Cidr
	require.NoError(t, decoded.UnmarshalJSON(data))
	require.Equal(t, c, decoded)

	require.Error(t, decoded.UnmarshalJSON([]byte(`"10.0.0.0"`)))
	require.Error(t, decoded.UnmarshalJSON([]byte(`42`)))
}
