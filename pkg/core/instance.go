package core

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidInstance = errors.New("invalid problem instance")

// The complete problem data: videos, endpoints, caches and the materialized requests.
// Read-only once created.
type ProblemInstance struct {
	videos    []*Video    // indexed by video id
	endpoints []*Endpoint // indexed by endpoint id
	caches    []*Cache    // indexed by cache id
	requests  []*Request  // ascending request id

	requestIndex map[int]*Request

	cacheCapacity    int
	declaredRequests int // request count announced by the dataset header
}

// Create a problem instance and check its invariants
func NewProblemInstance(videos []*Video, endpoints []*Endpoint, caches []*Cache, requests []*Request,
	cacheCapacity int, declaredRequests int) (*ProblemInstance, error) {

	reqs := slices.Clone(requests)
	slices.SortFunc(reqs, func(a, b *Request) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	index := make(map[int]*Request, len(reqs))
	for _, r := range reqs {
		index[r.ID()] = r
	}

	p := &ProblemInstance{
		videos:           slices.Clone(videos),
		endpoints:        slices.Clone(endpoints),
		caches:           slices.Clone(caches),
		requests:         reqs,
		requestIndex:     index,
		cacheCapacity:    cacheCapacity,
		declaredRequests: declaredRequests,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that ids are dense, references resolve and capacity is uniform
func (p *ProblemInstance) Validate() error {
	if p.cacheCapacity <= 0 {
		return fmt.Errorf("%w: cache capacity %d must be positive", ErrInvalidInstance, p.cacheCapacity)
	}
	for i, v := range p.videos {
		if v == nil || v.ID() != i {
			return fmt.Errorf("%w: video ids must be dense, position %d", ErrInvalidInstance, i)
		}
		if v.Size() <= 0 {
			return fmt.Errorf("%w: video %d has non-positive size %d", ErrInvalidInstance, i, v.Size())
		}
	}
	for i, c := range p.caches {
		if c == nil || c.ID() != i {
			return fmt.Errorf("%w: cache ids must be dense, position %d", ErrInvalidInstance, i)
		}
		if c.Capacity() != p.cacheCapacity {
			return fmt.Errorf("%w: cache %d capacity %d differs from %d",
				ErrInvalidInstance, i, c.Capacity(), p.cacheCapacity)
		}
	}
	for i, e := range p.endpoints {
		if e == nil || e.ID() != i {
			return fmt.Errorf("%w: endpoint ids must be dense, position %d", ErrInvalidInstance, i)
		}
		if e.DCLatency() < 0 {
			return fmt.Errorf("%w: endpoint %d has negative data center latency", ErrInvalidInstance, i)
		}
		for _, conn := range e.sorted {
			if conn.CacheID < 0 || conn.CacheID >= len(p.caches) {
				return fmt.Errorf("%w: endpoint %d connects to unknown cache %d", ErrInvalidInstance, i, conn.CacheID)
			}
			if conn.Latency < 0 {
				return fmt.Errorf("%w: endpoint %d has negative latency to cache %d",
					ErrInvalidInstance, i, conn.CacheID)
			}
		}
	}
	for i, r := range p.requests {
		if i > 0 && p.requests[i-1].ID() == r.ID() {
			return fmt.Errorf("%w: duplicate request id %d", ErrInvalidInstance, r.ID())
		}
		if r.ID() < 0 {
			return fmt.Errorf("%w: negative request id %d", ErrInvalidInstance, r.ID())
		}
		if r.VideoID() < 0 || r.VideoID() >= len(p.videos) {
			return fmt.Errorf("%w: request %d references unknown video %d", ErrInvalidInstance, r.ID(), r.VideoID())
		}
		if r.EndpointID() < 0 || r.EndpointID() >= len(p.endpoints) {
			return fmt.Errorf("%w: request %d references unknown endpoint %d",
				ErrInvalidInstance, r.ID(), r.EndpointID())
		}
		if r.Count() <= 0 {
			return fmt.Errorf("%w: request %d has non-positive count %d", ErrInvalidInstance, r.ID(), r.Count())
		}
	}
	if len(p.requests) > p.declaredRequests {
		return fmt.Errorf("%w: %d requests materialized but only %d declared",
			ErrInvalidInstance, len(p.requests), p.declaredRequests)
	}
	return nil
}

func (p *ProblemInstance) NumVideos() int {
	return len(p.videos)
}

func (p *ProblemInstance) NumEndpoints() int {
	return len(p.endpoints)
}

func (p *ProblemInstance) NumCaches() int {
	return len(p.caches)
}

// Number of materialized requests
func (p *ProblemInstance) NumRequests() int {
	return len(p.requests)
}

// Number of requests declared by the dataset header
func (p *ProblemInstance) DeclaredRequests() int {
	return p.declaredRequests
}

func (p *ProblemInstance) CacheCapacity() int {
	return p.cacheCapacity
}

// Video by id; nil if out of range
func (p *ProblemInstance) Video(id int) *Video {
	if id < 0 || id >= len(p.videos) {
		return nil
	}
	return p.videos[id]
}

// Endpoint by id; nil if out of range
func (p *ProblemInstance) Endpoint(id int) *Endpoint {
	if id < 0 || id >= len(p.endpoints) {
		return nil
	}
	return p.endpoints[id]
}

// Cache by id; nil if out of range
func (p *ProblemInstance) Cache(id int) *Cache {
	if id < 0 || id >= len(p.caches) {
		return nil
	}
	return p.caches[id]
}

// Materialized request by id; nil if not materialized
func (p *ProblemInstance) Request(id int) *Request {
	return p.requestIndex[id]
}

func (p *ProblemInstance) Videos() []*Video {
	return slices.Clone(p.videos)
}

func (p *ProblemInstance) Endpoints() []*Endpoint {
	return slices.Clone(p.endpoints)
}

func (p *ProblemInstance) Caches() []*Cache {
	return slices.Clone(p.caches)
}

// Materialized requests in ascending id order
func (p *ProblemInstance) Requests() []*Request {
	return slices.Clone(p.requests)
}

// Sum of counts over the materialized requests
func (p *ProblemInstance) TotalRequestCount() int {
	total := 0
	for _, r := range p.requests {
		total += r.Count()
	}
	return total
}

// Number of endpoint to cache links
func (p *ProblemInstance) NumConnections() int {
	n := 0
	for _, e := range p.endpoints {
		n += e.NumConnections()
	}
	return n
}

func (p *ProblemInstance) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "ProblemInstance: videos=%d; endpoints=%d; caches=%d; capacity=%d; requests=%d/%d; connections=%d",
		len(p.videos), len(p.endpoints), len(p.caches), p.cacheCapacity,
		len(p.requests), p.declaredRequests, p.NumConnections())
	return b.String()
}
