package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/model"

	"github.com/stretchr/testify/suite"
)

func TestRelayerGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(RelayerGatewayTestSuite))
}

type RelayerGatewayTestSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	gateway *RelayerGateway
}

func (s *RelayerGatewayTestSuite) SetupTest() {
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))

	conf := config.Default()
	conf.Ledger.RelayerUrl = s.server.URL
	conf.Ledger.RelayerApiKey = "secret"
	s.gateway = NewRelayerGateway(conf)
}

func (s *RelayerGatewayTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *RelayerGatewayTestSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *RelayerGatewayTestSuite) TestSubmit() {
	cmd := Command{RecordID: 3, ContractID: 10, Action: model.ActionTypeUpdateStatus, Status: model.ContractStatusCompleted}

	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/v1/actions", r.URL.Path)
		s.Equal("Bearer secret", r.Header.Get("Authorization"))
		s.Equal(IdempotencyKey(cmd), r.Header.Get("Idempotency-Key"))

		var body relayerAction
		s.NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal(relayerAction{ContractID: 10, Action: "UPDATE_STATUS", Status: "COMPLETED"}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCEEDED","tx_hash":"0xabc"}`))
	}

	receipt, err := s.gateway.Submit(context.Background(), cmd)
	s.Require().NoError(err)
	s.Require().Equal("0xabc", receipt.TxHash)
}

func (s *RelayerGatewayTestSuite) TestSubmitRejected() {
	s.respond(http.StatusUnprocessableEntity, `{"error":"token already minted"}`)

	_, err := s.gateway.Submit(context.Background(), Command{ContractID: 1, Action: model.ActionTypeMint})
	s.Require().True(IsDeterministic(err))
	s.Require().Contains(err.Error(), "token already minted")
}

func (s *RelayerGatewayTestSuite) TestSubmitServerError() {
	s.respond(http.StatusBadGateway, `{"error":"node unavailable"}`)

	_, err := s.gateway.Submit(context.Background(), Command{ContractID: 1, Action: model.ActionTypeMint})
	s.Require().True(IsTransient(err))
}

func (s *RelayerGatewayTestSuite) TestSubmitThrottled() {
	s.respond(http.StatusTooManyRequests, `{}`)

	_, err := s.gateway.Submit(context.Background(), Command{ContractID: 1, Action: model.ActionTypeBurn})
	s.Require().True(IsTransient(err))
}

func (s *RelayerGatewayTestSuite) TestSubmitUnreachable() {
	s.server.Close()

	_, err := s.gateway.Submit(context.Background(), Command{ContractID: 1, Action: model.ActionTypeBurn})
	s.Require().True(IsTransient(err))
}

func (s *RelayerGatewayTestSuite) TestQueryOutcome() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/v1/actions/42/BURN", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCEEDED","tx_hash":"0xdef"}`))
	}
	outcome, err := s.gateway.QueryOutcome(context.Background(), 42, model.ActionTypeBurn)
	s.Require().NoError(err)
	s.Require().Equal(Succeeded("0xdef"), outcome)

	s.respond(http.StatusNotFound, `{"error":"no such action"}`)
	outcome, err = s.gateway.QueryOutcome(context.Background(), 42, model.ActionTypeBurn)
	s.Require().NoError(err)
	s.Require().Equal(Absent(), outcome)

	s.respond(http.StatusOK, `{"status":"PENDING"}`)
	outcome, err = s.gateway.QueryOutcome(context.Background(), 42, model.ActionTypeBurn)
	s.Require().NoError(err)
	s.Require().Equal(Unknown(), outcome)

	s.respond(http.StatusServiceUnavailable, `{}`)
	outcome, err = s.gateway.QueryOutcome(context.Background(), 42, model.ActionTypeBurn)
	s.Require().Error(err)
	s.Require().Equal(OutcomeUnknown, outcome.Kind)
}

func (s *RelayerGatewayTestSuite) TestIdempotencyKey() {
	a := Command{RecordID: 1, ContractID: 5, Action: model.ActionTypeMint}
	b := Command{RecordID: 2, ContractID: 5, Action: model.ActionTypeMint}

	s.Require().Equal(IdempotencyKey(a), IdempotencyKey(a))
	s.Require().NotEqual(IdempotencyKey(a), IdempotencyKey(b))
}
