package tool

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReachableAddrsSpecificHost(t *testing.T) {
	assert.Equal(t, []string{"127.0.0.1:2001"}, ReachableAddrs("127.0.0.1:2001"))
	assert.Equal(t, []string{"scanner-gw:2001"}, ReachableAddrs("scanner-gw:2001"))
	assert.Equal(t, []string{"garbage"}, ReachableAddrs("garbage"))
}

func TestReachableAddrsWildcardKeepsPort(t *testing.T) {
	for _, listen := range []string{":2001", "0.0.0.0:2001"} {
		addrs := ReachableAddrs(listen)
		assert.NotEmpty(t, addrs)
		for _, a := range addrs {
			_, port, err := net.SplitHostPort(a)
			assert.NoError(t, err)
			assert.Equal(t, "2001", port)
		}
	}
}
