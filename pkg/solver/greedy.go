package solver

import (
	"cmp"
	"slices"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/placement"
)

// Candidate placement of a video in a cache
type candidate struct {
	video int
	cache int
	size  int
	gain  int // latency saved by this placement given the placements made so far
}

// gain per unit of storage, larger first
func compareCandidates(a, b *candidate) int {
	// a.gain/a.size > b.gain/b.size
	if c := cmp.Compare(b.gain*a.size, a.gain*b.size); c != 0 {
		return c
	}
	if c := cmp.Compare(a.video, b.video); c != 0 {
		return c
	}
	return cmp.Compare(a.cache, b.cache)
}

// GreedyPlacement fills caches with the video placements saving the most latency
// per unit of storage. Gains are re-evaluated lazily as placements are made.
func GreedyPlacement(inst *core.ProblemInstance) *placement.Plan {
	// requests by video
	byVideo := make([][]*core.Request, inst.NumVideos())
	for _, r := range inst.Requests() {
		byVideo[r.VideoID()] = append(byVideo[r.VideoID()], r)
	}
	// current latency of every request
	latency := make(map[int]int, inst.NumRequests())
	for _, r := range inst.Requests() {
		latency[r.ID()] = inst.Endpoint(r.EndpointID()).DCLatency()
	}
	gainOf := func(c *candidate) int {
		gain := 0
		for _, r := range byVideo[c.video] {
			if l, ok := inst.Endpoint(r.EndpointID()).Latency(c.cache); ok && l < latency[r.ID()] {
				gain += r.Count() * (latency[r.ID()] - l)
			}
		}
		return gain
	}

	var entries []*candidate
	for v := 0; v < inst.NumVideos(); v++ {
		size := inst.Video(v).Size()
		if size > inst.CacheCapacity() || len(byVideo[v]) == 0 {
			continue
		}
		for c := 0; c < inst.NumCaches(); c++ {
			e := &candidate{video: v, cache: c, size: size}
			if e.gain = gainOf(e); e.gain > 0 {
				entries = append(entries, e)
			}
		}
	}
	slices.SortFunc(entries, compareCandidates)

	free := make([]int, inst.NumCaches())
	for c := range free {
		free[c] = inst.Cache(c).Capacity()
	}
	byCache := make(map[int][]int)
	for len(entries) > 0 {
		top := entries[0]
		entries = entries[1:]
		if top.size > free[top.cache] {
			continue
		}
		// gains only shrink as placements are made; a stale entry is re-queued
		if gain := gainOf(top); gain != top.gain {
			top.gain = gain
			if gain <= 0 {
				continue
			}
			i, _ := slices.BinarySearchFunc(entries, top, compareCandidates)
			entries = slices.Insert(entries, i, top)
			continue
		}
		free[top.cache] -= top.size
		byCache[top.cache] = append(byCache[top.cache], top.video)
		for _, r := range byVideo[top.video] {
			if l, ok := inst.Endpoint(r.EndpointID()).Latency(top.cache); ok && l < latency[r.ID()] {
				latency[r.ID()] = l
			}
		}
	}
	return placement.NewPlan(byCache)
}

// WarmStart encodes the greedy placement as a starting assignment for the model built by form on p
func WarmStart(inst *core.ProblemInstance, form *formulation.Formulation, p *mip.Problem) ([]float64, error) {
	return placement.Encode(inst, form, GreedyPlacement(inst), p.NumVars())
}
