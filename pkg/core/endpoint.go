package core

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Latency from an endpoint to one reachable cache
type Connection struct {
	CacheID int
	Latency int
}

// A group of clients; caches absent from the connection map are unreachable
type Endpoint struct {
	id          int
	dcLatency   int
	connections map[int]int // cacheID -> latency

	sorted []Connection // connections ordered by cache id
}

// Create an endpoint; the connection map is copied
func NewEndpoint(id, dcLatency int, connections map[int]int) *Endpoint {
	conns := make(map[int]int, len(connections))
	maps.Copy(conns, connections)

	sorted := make([]Connection, 0, len(conns))
	for cacheID, latency := range conns {
		sorted = append(sorted, Connection{CacheID: cacheID, Latency: latency})
	}
	slices.SortFunc(sorted, func(a, b Connection) int {
		return cmp.Compare(a.CacheID, b.CacheID)
	})

	return &Endpoint{
		id:          id,
		dcLatency:   dcLatency,
		connections: conns,
		sorted:      sorted,
	}
}

func (e *Endpoint) ID() int {
	return e.id
}

func (e *Endpoint) DCLatency() int {
	return e.dcLatency
}

// Latency to a cache and whether the cache is reachable
func (e *Endpoint) Latency(cacheID int) (int, bool) {
	latency, exists := e.connections[cacheID]
	return latency, exists
}

func (e *Endpoint) NumConnections() int {
	return len(e.sorted)
}

// Reachable caches in ascending cache id order
func (e *Endpoint) Connections() []Connection {
	return slices.Clone(e.sorted)
}

// Latency saved per request when served from the cache instead of the data center.
// May be negative if the cache link is slower than the data center.
func (e *Endpoint) SavedLatency(cacheID int) (int, bool) {
	latency, exists := e.connections[cacheID]
	if !exists {
		return 0, false
	}
	return e.dcLatency - latency, true
}

func (e *Endpoint) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Endpoint: id=%d; dcLatency=%d; connections=[", e.id, e.dcLatency)
	for i, c := range e.sorted {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d:%d", c.CacheID, c.Latency)
	}
	b.WriteString("]")
	return b.String()
}
