package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artcommission/anchor/src/utils/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

type ServerTestSuite struct {
	suite.Suite
	monitor *Service
	server  *Server
}

func (s *ServerTestSuite) SetupTest() {
	conf := config.Default()
	conf.Profiler.Enabled = true

	s.monitor = NewService()
	s.server = NewServer(conf).
		WithMonitor(s.monitor).
		WithRoutes(func(v1 *gin.RouterGroup) {
			v1.GET("ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		})
	s.Require().NoError(s.server.setup())
}

func (s *ServerTestSuite) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.server.Router.ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) TestHealth() {
	s.Require().Equal(http.StatusOK, s.get("/v1/health").Code)
}

func (s *ServerTestSuite) TestState() {
	s.monitor.GetReport().Dispatcher.State.Succeeded.Add(3)
	s.monitor.GetReport().Reconciler.Errors.Panics.Inc()

	w := s.get("/v1/state")
	s.Require().Equal(http.StatusOK, w.Code)

	var body map[string]map[string]map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Require().EqualValues(3, body["dispatcher"]["state"]["succeeded"])
	s.Require().EqualValues(1, body["reconciler"]["errors"]["panics"])
}

func (s *ServerTestSuite) TestMetrics() {
	s.monitor.GetReport().Operator.Errors.Throttled.Add(2)

	w := s.get("/metrics")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().Contains(w.Body.String(), `operator_error_throttled{app="anchor"} 2`)
	s.Require().Contains(w.Body.String(), "go_goroutines")
}

func (s *ServerTestSuite) TestExtraRoutesAndProfiler() {
	w := s.get("/v1/ping")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().Equal("pong", w.Body.String())

	s.Require().Equal(http.StatusOK, s.get("/debug/pprof/").Code)
}
