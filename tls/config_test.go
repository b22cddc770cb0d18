package tls

import (
	"crypto/tls"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestClientConfig(t *testing.T) {
	c := clientConfig(nil, "tcp", "example.com:443")
	assert.Equal(t, "example.com", c.ServerName)
	assert.Equal(t, "", defaultConfig().ServerName)

	c = clientConfig(nil, "tcp6", "[::1]:443")
	assert.Equal(t, "::1", c.ServerName)

	c = clientConfig(nil, "tcp", "example.com")
	assert.Equal(t, "example.com", c.ServerName)

	given := &tls.Config{ServerName: "other"}
	assert.Same(t, given, clientConfig(given, "tcp", "example.com:443"))

	given = &tls.Config{MinVersion: tls.VersionTLS13}
	c = clientConfig(given, "tcp", "example.com:443")
	assert.NotSame(t, given, c)
	assert.Equal(t, "", given.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS13), c.MinVersion)

	given = &tls.Config{}
	assert.Same(t, given, clientConfig(given, "unix", "/tmp/echo.sock"))
}
