package placement

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
)

var ErrCapacityExceeded = errors.New("cache capacity exceeded")
var ErrInvalidPlan = errors.New("invalid placement plan")

// Videos stored in one cache
type CacheAssignment struct {
	Cache  int   `json:"cache" yaml:"cache"`
	Videos []int `json:"videos" yaml:"videos"` // ascending
}

// Plan assigns videos to caches. Only non-empty caches are listed, in ascending cache order.
type Plan struct {
	assignments []CacheAssignment
}

// Create a plan from cache id to video ids; videos are sorted and deduplicated, empty caches dropped
func NewPlan(videosByCache map[int][]int) *Plan {
	p := &Plan{}
	for _, c := range slices.Sorted(maps.Keys(videosByCache)) {
		videos := slices.Clone(videosByCache[c])
		slices.Sort(videos)
		videos = slices.Compact(videos)
		if len(videos) == 0 {
			continue
		}
		p.assignments = append(p.assignments, CacheAssignment{Cache: c, Videos: videos})
	}
	return p
}

// Non-empty cache assignments in ascending cache order
func (p *Plan) Assignments() []CacheAssignment {
	if len(p.assignments) == 0 {
		return nil
	}
	out := make([]CacheAssignment, len(p.assignments))
	for i, a := range p.assignments {
		out[i] = CacheAssignment{Cache: a.Cache, Videos: slices.Clone(a.Videos)}
	}
	return out
}

// Number of non-empty caches
func (p *Plan) NumCaches() int {
	return len(p.assignments)
}

// Videos stored in a cache, ascending; nil if none
func (p *Plan) Videos(cache int) []int {
	if a := p.find(cache); a != nil {
		return slices.Clone(a.Videos)
	}
	return nil
}

// Has reports whether the video is stored in the cache
func (p *Plan) Has(video, cache int) bool {
	a := p.find(cache)
	if a == nil {
		return false
	}
	_, found := slices.BinarySearch(a.Videos, video)
	return found
}

// Total number of (video, cache) placements
func (p *Plan) NumPlacements() int {
	n := 0
	for _, a := range p.assignments {
		n += len(a.Videos)
	}
	return n
}

func (p *Plan) find(cache int) *CacheAssignment {
	i, found := slices.BinarySearchFunc(p.assignments, cache, func(a CacheAssignment, c int) int {
		return cmp.Compare(a.Cache, c)
	})
	if !found {
		return nil
	}
	return &p.assignments[i]
}

// Used storage of a cache
func (p *Plan) UsedCapacity(inst *core.ProblemInstance, cache int) int {
	used := 0
	for _, v := range p.Videos(cache) {
		if video := inst.Video(v); video != nil {
			used += video.Size()
		}
	}
	return used
}

// Validate checks that every id exists and no cache holds more than its capacity
func (p *Plan) Validate(inst *core.ProblemInstance) error {
	for _, a := range p.assignments {
		cache := inst.Cache(a.Cache)
		if cache == nil {
			return fmt.Errorf("%w: unknown cache %d", ErrInvalidPlan, a.Cache)
		}
		used := 0
		for _, v := range a.Videos {
			video := inst.Video(v)
			if video == nil {
				return fmt.Errorf("%w: unknown video %d in cache %d", ErrInvalidPlan, v, a.Cache)
			}
			used += video.Size()
		}
		if used > cache.Capacity() {
			return fmt.Errorf("%w: cache %d holds %d, capacity %d", ErrCapacityExceeded, a.Cache, used, cache.Capacity())
		}
	}
	return nil
}

func (p *Plan) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Plan: caches=%d; placements=%d", p.NumCaches(), p.NumPlacements())
	for _, a := range p.assignments {
		fmt.Fprintf(&b, "; %d:%v", a.Cache, a.Videos)
	}
	return b.String()
}
