package placement

import (
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
)

// Score is the average latency saved per request, in microseconds, rounded down.
// Each request is served by the lowest latency cache holding its video, or by the data center.
func Score(inst *core.ProblemInstance, plan *Plan) int {
	saved, total := 0, 0
	for _, r := range inst.Requests() {
		total += r.Count()
		saved += r.Count() * savedLatency(inst.Endpoint(r.EndpointID()), r.VideoID(), plan)
	}
	if total == 0 {
		return 0
	}
	return int(1000 * float64(saved) / float64(total))
}

// Objective is the total latency saved over all requests, the value the model maximizes
func Objective(inst *core.ProblemInstance, plan *Plan) int {
	saved := 0
	for _, r := range inst.Requests() {
		saved += r.Count() * savedLatency(inst.Endpoint(r.EndpointID()), r.VideoID(), plan)
	}
	return saved
}

func savedLatency(e *core.Endpoint, video int, plan *Plan) int {
	best := 0
	for _, conn := range e.Connections() {
		if !plan.Has(video, conn.CacheID) {
			continue
		}
		if saved := e.DCLatency() - conn.Latency; saved > best {
			best = saved
		}
	}
	return best
}
