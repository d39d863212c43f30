package monitoring

import (
	"context"
	"net/http"
	"runtime"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/task"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rest API server, serves monitor counters and endpoints registered by other components
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	monitor  *Service
	registry *prometheus.Registry
	routes   []func(v1 *gin.RouterGroup)
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "server").
		WithOnBeforeStart(self.setup).
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if !config.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	self.Router = gin.New()
	self.Router.Use(gin.Recovery())

	self.registry = prometheus.NewRegistry()

	self.httpServer = &http.Server{
		Addr:    self.Config.RESTListenAddress,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithMonitor(monitor *Service) *Server {
	self.monitor = monitor
	return self
}

// Registers additional endpoints under /v1
func (self *Server) WithRoutes(f func(v1 *gin.RouterGroup)) *Server {
	self.routes = append(self.routes, f)
	return self
}

func (self *Server) setup() (err error) {
	v1 := self.Router.Group("v1")
	{
		v1.GET("health", self.monitor.OnGetHealth)
		v1.GET("state", self.monitor.OnGetState)
	}
	for _, f := range self.routes {
		f(v1)
	}

	err = self.registry.Register(self.monitor.GetPrometheusCollector())
	if err != nil {
		return
	}
	err = self.registry.Register(collectors.NewGoCollector())
	if err != nil {
		return
	}
	err = self.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return
	}
	self.Router.GET("metrics", gin.WrapH(promhttp.HandlerFor(self.registry, promhttp.HandlerOpts{})))

	if self.Config.Profiler.Enabled {
		runtime.SetBlockProfileRate(self.Config.Profiler.BlockProfileRate)
		pprof.Register(self.Router)
		self.Log.Info("Profiling endpoints enabled")
	}
	return
}

func (self *Server) run() (err error) {
	self.Log.WithField("addr", self.httpServer.Addr).Info("Starting REST server")
	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
