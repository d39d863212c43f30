package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/artcommission/anchor/src/utils/model"
)

type memoryKey struct {
	contractID int64
	action     model.ActionType
}

// Simulated ledger. Applies each (contract, action) effect at most once, like the on-chain contract.
type MemoryGateway struct {
	mtx     sync.Mutex
	applied map[memoryKey]string
	submits int

	// Overrides the result of Submit, called before the effect is applied
	OnSubmit func(cmd Command) error

	// Overrides the result of QueryOutcome
	OnQuery func(contractID int64, action model.ActionType) (Outcome, error)
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		applied: make(map[memoryKey]string),
	}
}

func (self *MemoryGateway) Submit(ctx context.Context, cmd Command) (receipt Receipt, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.submits++

	if self.OnSubmit != nil {
		err = self.OnSubmit(cmd)
		if err != nil {
			return
		}
	}

	if err = ctx.Err(); err != nil {
		return receipt, Transient(err)
	}

	key := memoryKey{cmd.ContractID, cmd.Action}
	if _, ok := self.applied[key]; ok {
		return receipt, Deterministic(fmt.Errorf("execution reverted: %s already applied to contract %d", cmd.Action, cmd.ContractID))
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%d/%s/%d", cmd.ContractID, cmd.Action, cmd.RecordID)))
	receipt.TxHash = "0x" + hex.EncodeToString(sum[:])
	self.applied[key] = receipt.TxHash
	return
}

func (self *MemoryGateway) QueryOutcome(ctx context.Context, contractID int64, action model.ActionType) (Outcome, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.OnQuery != nil {
		return self.OnQuery(contractID, action)
	}

	hash, ok := self.applied[memoryKey{contractID, action}]
	if !ok {
		return Absent(), nil
	}
	return Succeeded(hash), nil
}

// Marks the effect as applied without a submission, e.g. by a process that crashed before recording it
func (self *MemoryGateway) Apply(contractID int64, action model.ActionType, txHash string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.applied[memoryKey{contractID, action}] = txHash
}

func (self *MemoryGateway) Applied(contractID int64, action model.ActionType) (txHash string, ok bool) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	txHash, ok = self.applied[memoryKey{contractID, action}]
	return
}

func (self *MemoryGateway) Submits() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.submits
}
