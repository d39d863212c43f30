package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Interface of the anchoring contract deployed on the EVM chain
const AnchorABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"},{"name":"tokenUri","type":"string"}],"outputs":[]},
	{"type":"function","name":"updateStatus","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"},{"name":"status","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"contractId","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"Minted","anonymous":false,"inputs":[{"name":"contractId","type":"uint256","indexed":true},{"name":"tokenUri","type":"string","indexed":false}]},
	{"type":"event","name":"StatusUpdated","anonymous":false,"inputs":[{"name":"contractId","type":"uint256","indexed":true},{"name":"status","type":"uint8","indexed":false}]},
	{"type":"event","name":"Burned","anonymous":false,"inputs":[{"name":"contractId","type":"uint256","indexed":true}]}
]`

// Status codes stored by updateStatus
var statusCodes = map[model.ContractStatus]uint8{
	model.ContractStatusPending:               0,
	model.ContractStatusDeclined:              1,
	model.ContractStatusWithdrawn:             2,
	model.ContractStatusArtistSigned:          3,
	model.ContractStatusPaymentPending:        4,
	model.ContractStatusPaymentCompleted:      5,
	model.ContractStatusCancellationRequested: 6,
	model.ContractStatusCanceled:              7,
	model.ContractStatusCompleted:             8,
}

type ethBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// Signs and sends transactions directly to an EVM node
type EthGateway struct {
	log        *logrus.Entry
	config     *config.Config
	classifier *Classifier

	backend  ethBackend
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract

	// Nonce is taken from the node, sends must not interleave
	mtx  sync.Mutex
	auth *bind.TransactOpts
}

func NewEthGateway(config *config.Config) (self *EthGateway, err error) {
	client, err := ethclient.Dial(config.Ledger.RpcUrl)
	if err != nil {
		return
	}
	return newEthGateway(config, client)
}

func newEthGateway(config *config.Config, backend ethBackend) (self *EthGateway, err error) {
	self = new(EthGateway)
	self.log = logger.NewSublogger("eth-gateway")
	self.config = config
	self.classifier = NewClassifier(config.Ledger.DeterministicErrors)
	self.backend = backend

	self.abi, err = abi.JSON(strings.NewReader(AnchorABI))
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(config.Ledger.ContractAddress) {
		return nil, fmt.Errorf("invalid ledger contract address: %q", config.Ledger.ContractAddress)
	}
	self.address = common.HexToAddress(config.Ledger.ContractAddress)
	self.contract = bind.NewBoundContract(self.address, self.abi, backend, backend, backend)

	key, err := crypto.HexToECDSA(strings.TrimPrefix(config.Ledger.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger private key: %w", err)
	}

	self.auth, err = bind.NewKeyedTransactorWithChainID(key, big.NewInt(config.Ledger.ChainId))
	if err != nil {
		return nil, err
	}
	self.auth.GasLimit = config.Ledger.GasLimit

	self.log.WithFields(logrus.Fields{
		"contract": self.address.Hex(),
		"sender":   self.auth.From.Hex(),
		"chain_id": config.Ledger.ChainId,
	}).Info("Ledger gateway ready")

	return
}

// Contract method and its arguments for the command
func call(cmd Command) (method string, args []interface{}, err error) {
	id := new(big.Int).SetInt64(cmd.ContractID)
	switch cmd.Action {
	case model.ActionTypeMint:
		return "mint", []interface{}{id, cmd.TokenURI}, nil
	case model.ActionTypeUpdateStatus:
		code, ok := statusCodes[cmd.Status]
		if !ok {
			return "", nil, fmt.Errorf("no status code for %q", cmd.Status)
		}
		return "updateStatus", []interface{}{id, code}, nil
	case model.ActionTypeBurn:
		return "burn", []interface{}{id}, nil
	}
	return "", nil, fmt.Errorf("unsupported action %q", cmd.Action)
}

// Event emitted by the contract once the action is applied
func eventName(action model.ActionType) (string, error) {
	switch action {
	case model.ActionTypeMint:
		return "Minted", nil
	case model.ActionTypeUpdateStatus:
		return "StatusUpdated", nil
	case model.ActionTypeBurn:
		return "Burned", nil
	}
	return "", fmt.Errorf("unsupported action %q", action)
}

func (self *EthGateway) Submit(ctx context.Context, cmd Command) (receipt Receipt, err error) {
	method, args, err := call(cmd)
	if err != nil {
		err = Deterministic(err)
		return
	}

	tx, err := self.send(ctx, method, args)
	if err != nil {
		err = self.classifier.Classify(err)
		return
	}

	log := self.log.WithFields(logrus.Fields{
		"record_id":   cmd.RecordID,
		"contract_id": cmd.ContractID,
		"action":      cmd.Action,
		"tx":          tx.Hash().Hex(),
	})
	log.Debug("Transaction sent, waiting for it to be mined")

	mined, err := bind.WaitMined(ctx, self.backend, tx)
	if err != nil {
		// Sent but not confirmed, it may still get mined
		err = Transient(err)
		return
	}

	if mined.Status != types.ReceiptStatusSuccessful {
		err = Deterministic(fmt.Errorf("transaction %s reverted in block %s", tx.Hash().Hex(), mined.BlockNumber))
		return
	}

	log.WithField("block", mined.BlockNumber).Info("Transaction mined")
	receipt.TxHash = tx.Hash().Hex()
	return
}

func (self *EthGateway) send(ctx context.Context, method string, args []interface{}) (*types.Transaction, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	opts := *self.auth
	opts.Context = ctx
	return self.contract.Transact(&opts, method, args...)
}

func (self *EthGateway) QueryOutcome(ctx context.Context, contractID int64, action model.ActionType) (outcome Outcome, err error) {
	query, err := self.filterQuery(ctx, contractID, action)
	if err != nil {
		return Unknown(), err
	}

	logs, err := self.backend.FilterLogs(ctx, query)
	if err != nil {
		return Unknown(), Transient(err)
	}

	for _, l := range logs {
		if l.Removed {
			// Reorged out
			continue
		}
		return Succeeded(l.TxHash.Hex()), nil
	}
	return Absent(), nil
}

func (self *EthGateway) filterQuery(ctx context.Context, contractID int64, action model.ActionType) (query ethereum.FilterQuery, err error) {
	name, err := eventName(action)
	if err != nil {
		return
	}
	event, ok := self.abi.Events[name]
	if !ok {
		err = errors.New("event missing in the contract interface: " + name)
		return
	}

	head, err := self.backend.BlockNumber(ctx)
	if err != nil {
		err = Transient(err)
		return
	}

	var from uint64
	if head > self.config.Ledger.LookbackBlocks {
		from = head - self.config.Ledger.LookbackBlocks
	}

	query = ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{self.address},
		Topics: [][]common.Hash{
			{event.ID},
			{common.BigToHash(big.NewInt(contractID))},
		},
	}
	return
}
