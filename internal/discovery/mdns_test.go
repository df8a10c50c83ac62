// ABOUTME: Tests for mDNS discovery
// ABOUTME: Uses a stubbed query function so no multicast traffic is needed
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Test Server", Port: 8000})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.BrowseInterval != 3*time.Second {
		t.Errorf("expected default browse interval, got %v", mgr.config.BrowseInterval)
	}
}

func TestAdvertiseRejectsBadPort(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "x"})
	defer mgr.Stop()
	if err := mgr.Advertise(); err == nil {
		t.Error("expected error for zero port")
	}
}

func TestToServerInfo(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{"nil entry", nil, nil},
		{"no address", &mdns.ServiceEntry{Name: "a", Port: 1}, nil},
		{
			"ipv4 with path",
			&mdns.ServiceEntry{
				Name:       "Studio._kikitori._tcp.local.",
				AddrV4:     net.ParseIP("192.168.1.20"),
				Port:       8000,
				InfoFields: []string{"path=/live", "api=/api"},
			},
			&ServerInfo{Name: "Studio", Host: "192.168.1.20", Port: 8000, Path: "/live"},
		},
		{
			"default path",
			&mdns.ServiceEntry{Name: "b", AddrV4: net.ParseIP("10.0.0.2"), Port: 9},
			&ServerInfo{Name: "b", Host: "10.0.0.2", Port: 9, Path: "/ws"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toServerInfo(tt.entry)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("toServerInfo() = %+v, want %+v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("toServerInfo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServerInfoURLs(t *testing.T) {
	s := &ServerInfo{Host: "10.0.0.5", Port: 8000}
	if got := s.WebSocketURL(); got != "ws://10.0.0.5:8000" {
		t.Errorf("WebSocketURL() = %q", got)
	}
	if got := s.APIURL(); got != "http://10.0.0.5:8000" {
		t.Errorf("APIURL() = %q", got)
	}
}

func TestFirstReturnsDiscoveredServer(t *testing.T) {
	mgr := NewManager(Config{BrowseInterval: 10 * time.Millisecond})
	mgr.query = func(p *mdns.QueryParam) error {
		if p.Service != ServiceType {
			t.Errorf("unexpected service %q", p.Service)
		}
		p.Entries <- &mdns.ServiceEntry{Name: "dev", AddrV4: net.ParseIP("127.0.0.1"), Port: 8000}
		time.Sleep(p.Timeout)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := mgr.First(ctx)
	if err != nil {
		t.Fatalf("First failed: %v", err)
	}
	if s.Host != "127.0.0.1" || s.Port != 8000 {
		t.Errorf("unexpected server %+v", s)
	}
}

func TestFirstTimesOut(t *testing.T) {
	mgr := NewManager(Config{BrowseInterval: 10 * time.Millisecond})
	mgr.query = func(p *mdns.QueryParam) error {
		time.Sleep(p.Timeout)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := mgr.First(ctx); err == nil {
		t.Error("expected timeout error")
	}
}
