package sys

import (
	"github.com/brickingsoft/errors"
	"net"
	"strings"
	"syscall"
)

// ResolveAddr resolves a stream address and reports the socket family it needs.
func ResolveAddr(network string, address string) (addr net.Addr, family int, ipv6only bool, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		err = errors.New("address is invalid")
		return
	}
	ipv6only = strings.HasSuffix(network, "6")
	switch network {
	case "tcp", "tcp4", "tcp6":
		a, resolveErr := net.ResolveTCPAddr(network, address)
		if resolveErr != nil {
			err = resolveErr
			return
		}
		if !ipv6only && a.AddrPort().Addr().Is4In6() {
			a.IP = a.IP.To4()
		}
		switch len(a.IP) {
		case net.IPv4len:
			family = syscall.AF_INET
			break
		case net.IPv6len:
			family = syscall.AF_INET6
			break
		case 0:
			family = syscall.AF_INET
			a.IP = net.IPv4zero.To4()
			break
		default:
			err = errors.New("ip is invalid")
			return
		}
		addr = a
		break
	case "unix", "unixpacket":
		family = syscall.AF_UNIX
		addr, err = net.ResolveUnixAddr(network, address)
		if err != nil {
			return
		}
		break
	default:
		err = net.UnknownNetworkError(network)
		return
	}
	return
}

func AddrToSockaddr(a net.Addr) (sa syscall.Sockaddr, err error) {
	switch addr := a.(type) {
	case *net.TCPAddr:
		ip := addr.IP
		if addr.AddrPort().Addr().Is4In6() {
			ip = ip.To4()
		}
		switch len(ip) {
		case 0, net.IPv4len:
			sa4 := &syscall.SockaddrInet4{
				Port: addr.Port,
			}
			if ip4 := ip.To4(); ip4 != nil {
				copy(sa4.Addr[:], ip4)
			}
			sa = sa4
			return
		case net.IPv6len:
			zoneId := uint32(0)
			if addr.Zone != "" {
				if ifi, ifiErr := net.InterfaceByName(addr.Zone); ifiErr == nil {
					zoneId = uint32(ifi.Index)
				}
			}
			sa6 := &syscall.SockaddrInet6{
				Port:   addr.Port,
				ZoneId: zoneId,
			}
			copy(sa6.Addr[:], ip.To16())
			sa = sa6
			return
		default:
			err = errors.New("ip is invalid")
			return
		}
	case *net.UnixAddr:
		sa = &syscall.SockaddrUnix{
			Name: addr.Name,
		}
		return
	case nil:
		err = errors.New("addr is nil")
		return
	default:
		err = errors.New("type of addr is invalid")
		return
	}
}

func SockaddrToAddr(network string, sa syscall.Sockaddr) (addr net.Addr) {
	switch sa := sa.(type) {
	case *syscall.SockaddrInet4:
		addr = &net.TCPAddr{
			IP:   append([]byte{}, sa.Addr[:]...),
			Port: sa.Port,
		}
		break
	case *syscall.SockaddrInet6:
		var zone string
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
		addr = &net.TCPAddr{
			IP:   append([]byte{}, sa.Addr[:]...),
			Port: sa.Port,
			Zone: zone,
		}
		break
	case *syscall.SockaddrUnix:
		addr = &net.UnixAddr{Net: network, Name: sa.Name}
		break
	}
	return
}

func IsWildcard(addr net.Addr) bool {
	if addr == nil {
		return true
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		if a.IP == nil {
			return true
		}
		return a.IP.IsUnspecified()
	case *net.UnixAddr:
		return a.Name == ""
	default:
		return false
	}
}
