package tls

import (
	"crypto/tls"
	"net"
	"strings"
)

var emptyConfig tls.Config

func defaultConfig() *tls.Config {
	return &emptyConfig
}

// clientConfig fills in ServerName from the dialed address when config has none.
// Unix sockets have no host, so their configs are used as given.
func clientConfig(config *tls.Config, network string, address string) *tls.Config {
	if config == nil {
		config = defaultConfig()
	}
	if config.ServerName != "" || strings.HasPrefix(network, "unix") {
		return config
	}
	hostname, _, err := net.SplitHostPort(address)
	if err != nil {
		colonPos := strings.LastIndex(address, ":")
		if colonPos == -1 {
			colonPos = len(address)
		}
		hostname = address[:colonPos]
	}
	if hostname == "" {
		return config
	}
	c := config.Clone()
	c.ServerName = hostname
	return c
}
