// Package vpc decides whether the process runs inside the private network,
// which selects private over public connection variables.
package vpc

import (
	"net"
	"sync"
)

// DefaultCIDR is the private range App Platform attaches VPC interfaces to.
const DefaultCIDR = "10.0.0.0/8"

// AddrLister abstracts interface address enumeration for testability.
type AddrLister interface {
	InterfaceAddrs() ([]net.Addr, error)
}

// RealAddrLister uses the host's network interfaces.
type RealAddrLister struct{}

func (RealAddrLister) InterfaceAddrs() ([]net.Addr, error) {
	return net.InterfaceAddrs()
}

// Detector reports VPC membership. The answer is computed once and cached
// for the lifetime of the Detector.
type Detector struct {
	CIDR   string
	Lister AddrLister

	once   sync.Once
	inside bool
	addr   string
}

// New returns a Detector for cidr using the real interface list.
func New(cidr string) *Detector {
	if cidr == "" {
		cidr = DefaultCIDR
	}
	return &Detector{CIDR: cidr, Lister: RealAddrLister{}}
}

// Inside reports whether any local IPv4 address falls inside the CIDR.
func (d *Detector) Inside() bool {
	d.once.Do(d.detect)
	return d.inside
}

// Address returns the matching local address, or "" outside the VPC.
func (d *Detector) Address() string {
	d.once.Do(d.detect)
	return d.addr
}

func (d *Detector) detect() {
	if d == nil || d.Lister == nil {
		return
	}
	_, network, err := net.ParseCIDR(d.cidr())
	if err != nil {
		return
	}
	addrs, err := d.Lister.InterfaceAddrs()
	if err != nil {
		return
	}
	for _, a := range addrs {
		ip := ipOf(a)
		if ip == nil || ip.To4() == nil || ip.IsLoopback() {
			continue
		}
		if network.Contains(ip) {
			d.inside, d.addr = true, ip.String()
			return
		}
	}
}

// Fixed returns a Detector with a predetermined answer.
func Fixed(inside bool) *Detector {
	d := &Detector{}
	d.once.Do(func() { d.inside = inside })
	return d
}

// FixedAddr returns a Detector that reports addr as its VPC address. An
// empty addr means outside the VPC.
func FixedAddr(addr string) *Detector {
	d := &Detector{}
	d.once.Do(func() { d.inside, d.addr = addr != "", addr })
	return d
}

// Addresses lists the non-loopback IPv4 addresses of the host, each
// flagged with whether it falls inside the CIDR.
func (d *Detector) Addresses() []Addr {
	if d == nil || d.Lister == nil {
		return nil
	}
	_, network, _ := net.ParseCIDR(d.cidr())
	addrs, err := d.Lister.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []Addr
	for _, a := range addrs {
		ip := ipOf(a)
		if ip == nil || ip.To4() == nil || ip.IsLoopback() {
			continue
		}
		out = append(out, Addr{IP: ip.String(), VPC: network != nil && network.Contains(ip)})
	}
	return out
}

// Addr is a local address and its VPC membership.
type Addr struct {
	IP  string
	VPC bool
}

func (d *Detector) cidr() string {
	if d.CIDR == "" {
		return DefaultCIDR
	}
	return d.CIDR
}

func ipOf(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	ip, _, err := net.ParseCIDR(a.String())
	if err != nil {
		return net.ParseIP(a.String())
	}
	return ip
}
