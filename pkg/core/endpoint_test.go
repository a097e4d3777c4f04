package core

import (
	"strings"
	"testing"
)

func TestNewEndpoint(t *testing.T) {
	conns := map[int]int{2: 300, 0: 100, 1: 200}
	e := NewEndpoint(0, 1000, conns)

	// mutating the source map must not change the endpoint
	conns[3] = 50

	if e.ID() != 0 {
		t.Errorf("Endpoint.ID() = %v, want 0", e.ID())
	}
	if e.DCLatency() != 1000 {
		t.Errorf("Endpoint.DCLatency() = %v, want 1000", e.DCLatency())
	}
	if e.NumConnections() != 3 {
		t.Fatalf("Endpoint.NumConnections() = %v, want 3", e.NumConnections())
	}
	got := e.Connections()
	for i, c := range got {
		if c.CacheID != i {
			t.Errorf("Connections()[%d].CacheID = %v, want %v", i, c.CacheID, i)
		}
		if c.Latency != 100*(i+1) {
			t.Errorf("Connections()[%d].Latency = %v, want %v", i, c.Latency, 100*(i+1))
		}
	}

	// the returned slice is a copy
	got[0].Latency = 1
	if lat, _ := e.Latency(0); lat != 100 {
		t.Errorf("Latency(0) = %v after mutating Connections(), want 100", lat)
	}
}

func TestEndpoint_SavedLatency(t *testing.T) {
	e := NewEndpoint(1, 100, map[int]int{0: 20, 1: 150})

	tests := []struct {
		name      string
		cacheID   int
		want      int
		reachable bool
	}{
		{
			name:      "faster cache",
			cacheID:   0,
			want:      80,
			reachable: true,
		},
		{
			name:      "slower cache gives negative saving",
			cacheID:   1,
			want:      -50,
			reachable: true,
		},
		{
			name:      "unreachable cache",
			cacheID:   7,
			want:      0,
			reachable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.SavedLatency(tt.cacheID)
			if ok != tt.reachable {
				t.Errorf("SavedLatency(%d) reachable = %v, want %v", tt.cacheID, ok, tt.reachable)
			}
			if got != tt.want {
				t.Errorf("SavedLatency(%d) = %v, want %v", tt.cacheID, got, tt.want)
			}
		})
	}
}

func TestEndpoint_String(t *testing.T) {
	e := NewEndpoint(3, 500, map[int]int{4: 10, 1: 20})
	str := e.String()
	if !strings.Contains(str, "id=3") || !strings.Contains(str, "[1:20 4:10]") {
		t.Errorf("Endpoint.String() = %q", str)
	}
}
