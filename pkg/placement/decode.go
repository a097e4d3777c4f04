package placement

import (
	"fmt"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
)

// Decode reads the placement variables of a solved model into a plan.
// A video is placed when its variable is above the selection threshold.
// Capacity is not re-checked here; see Plan.Validate.
func Decode(inst *core.ProblemInstance, form *formulation.Formulation, values []float64) (*Plan, error) {
	if len(values) < form.NumVars() {
		return nil, fmt.Errorf("%d values for %d variables", len(values), form.NumVars())
	}
	byCache := make(map[int][]int)
	for _, key := range form.PlacementKeys() {
		if key.Cache >= inst.NumCaches() || key.Video >= inst.NumVideos() {
			return nil, fmt.Errorf("placement key %v outside the instance", key)
		}
		x, _ := form.X(key.Video, key.Cache)
		if int(x) >= len(values) {
			return nil, fmt.Errorf("no value for variable %d", x)
		}
		if values[x] > config.SelectionThreshold {
			byCache[key.Cache] = append(byCache[key.Cache], key.Video)
		}
	}
	return NewPlan(byCache), nil
}

// Encode is the inverse of Decode: placement variables are set from the plan
// and every request is served from its best reachable cache holding the video,
// when that saves latency. numVars is the size of the model the formulation was built on.
func Encode(inst *core.ProblemInstance, form *formulation.Formulation, plan *Plan, numVars int) ([]float64, error) {
	values := make([]float64, numVars)
	for _, a := range plan.assignments {
		for _, v := range a.Videos {
			x, ok := form.X(v, a.Cache)
			if !ok || int(x) >= numVars {
				return nil, fmt.Errorf("%w: no variable for video %d in cache %d", ErrInvalidPlan, v, a.Cache)
			}
			values[x] = 1
		}
	}
	for _, r := range inst.Requests() {
		best, bestSaved := -1, 0
		for _, conn := range inst.Endpoint(r.EndpointID()).Connections() {
			saved, _ := inst.Endpoint(r.EndpointID()).SavedLatency(conn.CacheID)
			if saved > bestSaved && plan.Has(r.VideoID(), conn.CacheID) {
				best, bestSaved = conn.CacheID, saved
			}
		}
		if best < 0 {
			continue
		}
		if y, ok := form.Y(r.ID(), best); ok && int(y) < numVars {
			values[y] = 1
		}
	}
	return values, nil
}
