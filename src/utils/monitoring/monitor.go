package monitoring

import (
	"net/http"
	"time"

	"github.com/artcommission/anchor/src/utils/monitoring/report"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Used by components that only update counters
type Monitor interface {
	GetReport() *report.Report
}

// Stores monitor counters, exposes them as JSON and prometheus metrics
type Service struct {
	Report    report.Report
	collector *Collector
}

func NewService() (self *Service) {
	self = new(Service)
	self.Report = report.New()
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())
	self.collector = NewCollector().WithMonitor(self)
	return
}

func (self *Service) GetReport() *report.Report {
	return &self.Report
}

func (self *Service) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func (self *Service) IsOK() bool {
	return true
}

func (self *Service) OnGetState(c *gin.Context) {
	self.Report.Run.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.State.StartTimestamp.Load()))
	c.JSON(http.StatusOK, &self.Report)
}

func (self *Service) OnGetHealth(c *gin.Context) {
	if self.IsOK() {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
}
