package vpc

import (
	"errors"
	"net"
	"testing"
)

type mockLister struct {
	addrs []net.Addr
	err   error
	calls int
}

func (m *mockLister) InterfaceAddrs() ([]net.Addr, error) {
	m.calls++
	return m.addrs, m.err
}

func ipNet(cidr string) net.Addr {
	ip, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestDetector(t *testing.T) {
	tests := []struct {
		name     string
		cidr     string
		addrs    []net.Addr
		err      error
		want     bool
		wantAddr string
	}{
		{
			name:     "private interface",
			addrs:    []net.Addr{ipNet("127.0.0.1/8"), ipNet("10.10.0.4/20")},
			want:     true,
			wantAddr: "10.10.0.4",
		},
		{
			name:  "public only",
			addrs: []net.Addr{ipNet("127.0.0.1/8"), ipNet("172.17.0.2/16"), ipNet("fe80::1/64")},
			want:  false,
		},
		{
			name: "listing error",
			err:  errors.New("permission denied"),
			want: false,
		},
		{
			name:     "custom cidr",
			cidr:     "172.16.0.0/12",
			addrs:    []net.Addr{ipNet("172.17.0.2/16")},
			want:     true,
			wantAddr: "172.17.0.2",
		},
		{
			name:  "invalid cidr",
			cidr:  "not-a-cidr",
			addrs: []net.Addr{ipNet("10.0.0.1/8")},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Detector{CIDR: tt.cidr, Lister: &mockLister{addrs: tt.addrs, err: tt.err}}
			if got := d.Inside(); got != tt.want {
				t.Errorf("Inside() = %v, want %v", got, tt.want)
			}
			if got := d.Address(); got != tt.wantAddr {
				t.Errorf("Address() = %q, want %q", got, tt.wantAddr)
			}
		})
	}
}

func TestDetectorCaches(t *testing.T) {
	m := &mockLister{addrs: []net.Addr{ipNet("10.0.0.9/8")}}
	d := &Detector{Lister: m}
	for i := 0; i < 3; i++ {
		if !d.Inside() {
			t.Fatal("Inside() = false")
		}
	}
	if m.calls != 1 {
		t.Errorf("InterfaceAddrs called %d times, want 1", m.calls)
	}
}

func TestFixed(t *testing.T) {
	if !Fixed(true).Inside() {
		t.Error("Fixed(true).Inside() = false")
	}
	if Fixed(false).Inside() {
		t.Error("Fixed(false).Inside() = true")
	}
}

func TestAddresses(t *testing.T) {
	d := &Detector{Lister: &mockLister{addrs: []net.Addr{
		ipNet("127.0.0.1/8"), ipNet("10.10.0.4/20"), ipNet("172.17.0.2/16"), ipNet("fe80::1/64"),
	}}}
	got := d.Addresses()
	want := []Addr{{IP: "10.10.0.4", VPC: true}, {IP: "172.17.0.2", VPC: false}}
	if len(got) != len(want) {
		t.Fatalf("Addresses() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Addresses()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFixedAddr(t *testing.T) {
	d := FixedAddr("10.1.2.3")
	if !d.Inside() || d.Address() != "10.1.2.3" {
		t.Errorf("FixedAddr: Inside=%v Address=%q", d.Inside(), d.Address())
	}
	if FixedAddr("").Inside() {
		t.Error("FixedAddr(\"\") should be outside the VPC")
	}
}
