package ledger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/artcommission/anchor/src/utils/build_info"
	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Namespace of the idempotency keys sent to the relayer
var idempotencyNamespace = uuid.MustParse("8f6b1f0e-2c1a-4c55-9a57-3f0e7c1d2b60")

type relayerAction struct {
	ContractID int64  `json:"contract_id"`
	Action     string `json:"action"`
	TokenURI   string `json:"token_uri,omitempty"`
	Status     string `json:"status,omitempty"`
}

type relayerResult struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash"`
}

type relayerError struct {
	Error string `json:"error"`
}

// Hands transactions over to a relayer service that holds the keys and pays for gas
type RelayerGateway struct {
	log    *logrus.Entry
	client *resty.Client
}

func NewRelayerGateway(config *config.Config) (self *RelayerGateway) {
	self = new(RelayerGateway)
	self.log = logger.NewSublogger("relayer-gateway")

	self.client = resty.New().
		SetBaseURL(config.Ledger.RelayerUrl).
		SetTimeout(config.Ledger.RequestTimeout).
		SetHeader("User-Agent", "anchor/"+build_info.Version).
		SetHeader("Accept", "application/json").
		SetLogger(NewLogger())

	if config.Ledger.RelayerApiKey != "" {
		self.client.SetAuthToken(config.Ledger.RelayerApiKey)
	}

	return
}

// Same record always gets the same key, so redelivered requests aren't applied twice by the relayer
func IdempotencyKey(cmd Command) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(fmt.Sprintf("%d/%s/%d", cmd.ContractID, cmd.Action, cmd.RecordID))).String()
}

func (self *RelayerGateway) Submit(ctx context.Context, cmd Command) (receipt Receipt, err error) {
	body := relayerAction{
		ContractID: cmd.ContractID,
		Action:     string(cmd.Action),
		TokenURI:   cmd.TokenURI,
	}
	if cmd.Action == model.ActionTypeUpdateStatus {
		body.Status = string(cmd.Status)
	}

	resp, err := self.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", IdempotencyKey(cmd)).
		SetBody(body).
		SetResult(&relayerResult{}).
		SetError(&relayerError{}).
		Post("/v1/actions")
	if err != nil {
		// Request may have reached the relayer
		err = Transient(err)
		return
	}

	if !resp.IsSuccess() {
		err = statusError(resp)
		return
	}

	result, ok := resp.Result().(*relayerResult)
	if !ok || result.TxHash == "" {
		err = Transient(fmt.Errorf("relayer accepted the action without a transaction hash"))
		return
	}

	receipt.TxHash = result.TxHash
	return
}

func (self *RelayerGateway) QueryOutcome(ctx context.Context, contractID int64, action model.ActionType) (outcome Outcome, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"contractId": fmt.Sprintf("%d", contractID),
			"action":     string(action),
		}).
		SetResult(&relayerResult{}).
		SetError(&relayerError{}).
		Get("/v1/actions/{contractId}/{action}")
	if err != nil {
		return Unknown(), Transient(err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return Absent(), nil
	}

	if !resp.IsSuccess() {
		return Unknown(), statusError(resp)
	}

	result, ok := resp.Result().(*relayerResult)
	if !ok {
		return Unknown(), Transient(fmt.Errorf("failed to parse relayer response"))
	}

	switch result.Status {
	case "SUCCEEDED":
		if result.TxHash == "" {
			return Unknown(), Transient(fmt.Errorf("relayer reported success without a transaction hash"))
		}
		return Succeeded(result.TxHash), nil
	case "FAILED", "ABSENT":
		return Absent(), nil
	}

	self.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"action":      action,
		"status":      result.Status,
	}).Debug("Relayer doesn't know the outcome yet")
	return Unknown(), nil
}

// Client errors are definite rejections, except for timeouts and throttling
func statusError(resp *resty.Response) error {
	msg := resp.Status()
	if e, ok := resp.Error().(*relayerError); ok && e.Error != "" {
		msg = e.Error
	}
	err := fmt.Errorf("relayer responded %d: %s", resp.StatusCode(), msg)

	code := resp.StatusCode()
	if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return Deterministic(err)
	}
	return Transient(err)
}
