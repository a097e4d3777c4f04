package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/metrics"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
)

// A stateless REST server optimizing the dataset posted with each request
type OptimizerServer struct {
	BaseServer
	config       config.Config
	emitter      *metrics.MetricsEmitter
	maxBodyBytes int64
}

// create an optimizer REST server; cfg holds the defaults of every request
func NewOptimizerServer(cfg *config.Config, gatherer prometheus.Gatherer, emitter *metrics.MetricsEmitter) *OptimizerServer {
	server := &OptimizerServer{
		BaseServer: *NewBaseServer(),
		config:       *cfg,
		emitter:      emitter,
		maxBodyBytes: MaxDatasetBytes,
	}

	server.router.POST("/optimize", server.optimize)
	server.router.GET("/healthz", healthz)
	server.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return server
}
