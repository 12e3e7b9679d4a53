package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowListEmptyAllowsAll(t *testing.T) {
	al := NewAllowList(nil, testLogger())

	assert.True(t, al.Empty())
	assert.True(t, al.Allowed("10.1.2.3"))
	assert.True(t, al.Allowed("192.168.1.1"))
}

func TestAllowListCIDR(t *testing.T) {
	al := NewAllowList([]string{"10.0.0.0/8"}, testLogger())

	assert.True(t, al.Allowed("10.1.2.3"))
	assert.False(t, al.Allowed("192.168.1.1"))
}

func TestAllowListExactAddress(t *testing.T) {
	al := NewAllowList([]string{"203.0.113.7"}, testLogger())

	assert.True(t, al.Allowed("203.0.113.7"))
	assert.False(t, al.Allowed("203.0.113.8"))
}

func TestAllowListMixedEntries(t *testing.T) {
	al := NewAllowList([]string{"10.0.0.0/8", "203.0.113.7"}, testLogger())

	assert.True(t, al.Allowed("10.255.0.1"))
	assert.True(t, al.Allowed("203.0.113.7"))
	assert.False(t, al.Allowed("8.8.8.8"))
}

func TestAllowListSkipsInvalidEntries(t *testing.T) {
	al := NewAllowList([]string{"not-an-ip", "10.0.0.0/8"}, testLogger())

	assert.True(t, al.Allowed("10.1.2.3"))
	assert.False(t, al.Allowed("192.168.1.1"))
}

func TestAllowListRejectsUnparseableClientIP(t *testing.T) {
	al := NewAllowList([]string{"10.0.0.0/8"}, testLogger())

	assert.False(t, al.Allowed("garbage"))
	assert.False(t, al.Allowed(""))
}

func TestAllowListIPv6(t *testing.T) {
	al := NewAllowList([]string{"2001:db8::/32"}, testLogger())

	assert.True(t, al.Allowed("2001:db8::1"))
	assert.False(t, al.Allowed("2001:db9::1"))
}
