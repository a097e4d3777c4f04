package formulation

import (
	"errors"
	"fmt"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

var ErrInconsistentInstance = errors.New("inconsistent problem instance")

// Identifies the variable x[v,c]: video v is stored in cache c
type PlacementKey struct {
	Video int
	Cache int
}

// Identifies the variable y[r,c]: request r is served from cache c
type ServiceKey struct {
	Request int
	Cache   int
}

// Sizes of the built model
type Stats struct {
	PlacementVars int `json:"placementVars" yaml:"placementVars"`
	ServiceVars   int `json:"serviceVars" yaml:"serviceVars"`
	CapacityRows  int `json:"capacityRows" yaml:"capacityRows"`
	LinkRows      int `json:"linkRows" yaml:"linkRows"`
	ServiceRows   int `json:"serviceRows" yaml:"serviceRows"`
}

func (s Stats) Vars() int {
	return s.PlacementVars + s.ServiceVars
}

func (s Stats) Constraints() int {
	return s.CapacityRows + s.LinkRows + s.ServiceRows
}

// Formulation maps the placement and service decisions of an instance to
// the variables registered on a model builder
type Formulation struct {
	x map[PlacementKey]mip.Var
	y map[ServiceKey]mip.Var

	placementKeys []PlacementKey // registration order
	serviceKeys   []ServiceKey   // registration order

	stats Stats
}

// Build registers the variables, objective and constraints of the placement
// problem on b. Identical instances produce identical models.
func Build(inst *core.ProblemInstance, b mip.Builder) (*Formulation, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: nil instance", ErrInconsistentInstance)
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconsistentInstance, err)
	}

	numVideos, numCaches := inst.NumVideos(), inst.NumCaches()
	f := &Formulation{
		x:             make(map[PlacementKey]mip.Var, numVideos*numCaches),
		y:             make(map[ServiceKey]mip.Var),
		placementKeys: make([]PlacementKey, 0, numVideos*numCaches),
	}

	// x[v,c] for every video and cache
	for v := 0; v < numVideos; v++ {
		for c := 0; c < numCaches; c++ {
			key := PlacementKey{Video: v, Cache: c}
			f.x[key] = b.AddBinaryVar(fmt.Sprintf("x_%d_%d", v, c))
			f.placementKeys = append(f.placementKeys, key)
		}
	}
	f.stats.PlacementVars = len(f.placementKeys)

	// y[r,c] for every cache reachable from the request's endpoint
	var objective mip.LinExpr
	requests := inst.Requests()
	for _, r := range requests {
		e := inst.Endpoint(r.EndpointID())
		if e == nil {
			return nil, fmt.Errorf("%w: request %d references unknown endpoint %d",
				ErrInconsistentInstance, r.ID(), r.EndpointID())
		}
		for _, conn := range e.Connections() {
			key := ServiceKey{Request: r.ID(), Cache: conn.CacheID}
			yv := b.AddBinaryVar(fmt.Sprintf("y_%d_%d", r.ID(), conn.CacheID))
			f.y[key] = yv
			f.serviceKeys = append(f.serviceKeys, key)
			saved := float64(r.Count()) * float64(e.DCLatency()-conn.Latency)
			objective = objective.Add(yv, saved)
		}
	}
	f.stats.ServiceVars = len(f.serviceKeys)
	b.SetObjective(objective, mip.Maximize)

	// cache capacities
	for c := 0; c < numCaches; c++ {
		var expr mip.LinExpr
		for v := 0; v < numVideos; v++ {
			expr = expr.Add(f.x[PlacementKey{Video: v, Cache: c}], float64(inst.Video(v).Size()))
		}
		b.AddConstraint(fmt.Sprintf("CacheCap_%d", c), expr, mip.LessEqual, float64(inst.Cache(c).Capacity()))
		f.stats.CapacityRows++
	}

	// a request is served from a cache only if the cache stores the video,
	// and from at most one cache
	for _, r := range requests {
		var unique mip.LinExpr
		for _, conn := range inst.Endpoint(r.EndpointID()).Connections() {
			yv := f.y[ServiceKey{Request: r.ID(), Cache: conn.CacheID}]
			xv, ok := f.x[PlacementKey{Video: r.VideoID(), Cache: conn.CacheID}]
			if !ok {
				return nil, fmt.Errorf("%w: request %d reaches unknown cache %d",
					ErrInconsistentInstance, r.ID(), conn.CacheID)
			}
			b.AddConstraint(fmt.Sprintf("Link_%d_%d", r.ID(), conn.CacheID),
				mip.LinExpr{}.Add(yv, 1).Add(xv, -1), mip.LessEqual, 0)
			f.stats.LinkRows++
			unique = unique.Add(yv, 1)
		}
		if len(unique) == 0 {
			continue
		}
		b.AddConstraint(fmt.Sprintf("UniqueService_%d", r.ID()), unique, mip.LessEqual, 1)
		f.stats.ServiceRows++
	}

	logger.Log.Debugw("formulation built", "placementVars", f.stats.PlacementVars, "serviceVars", f.stats.ServiceVars,
		"capacityRows", f.stats.CapacityRows, "linkRows", f.stats.LinkRows, "serviceRows", f.stats.ServiceRows)
	return f, nil
}

// Variable x[video,cache]
func (f *Formulation) X(video, cache int) (mip.Var, bool) {
	v, ok := f.x[PlacementKey{Video: video, Cache: cache}]
	return v, ok
}

// Variable y[request,cache]; absent when the cache is unreachable from the request's endpoint
func (f *Formulation) Y(request, cache int) (mip.Var, bool) {
	v, ok := f.y[ServiceKey{Request: request, Cache: cache}]
	return v, ok
}

// Placement keys in registration order (ascending video, then cache)
func (f *Formulation) PlacementKeys() []PlacementKey {
	return append([]PlacementKey(nil), f.placementKeys...)
}

// Service keys in registration order (ascending request, then cache)
func (f *Formulation) ServiceKeys() []ServiceKey {
	return append([]ServiceKey(nil), f.serviceKeys...)
}

func (f *Formulation) Stats() Stats {
	return f.stats
}

func (f *Formulation) NumVars() int {
	return f.stats.Vars()
}
