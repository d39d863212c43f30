package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artcommission/anchor/src/utils/model"
)

type pairKey struct {
	contractID int64
	action     model.ActionType
}

type memoryState struct {
	mtx sync.Mutex

	contracts map[int64]model.Contract
	records   map[int64]model.OnchainRecord
	logs      []model.ActionLog

	// Id of the SUCCEEDED record per pair, same as the partial unique index
	succeeded map[pairKey]int64

	lastContractID int64
	lastRecordID   int64
	lastLogID      int64

	// Transactions are serialized
	txMtx sync.Mutex
}

// Store kept in process memory. Used in development mode and tests.
// Transactions are serialized and a failed one is undone.
type Memory struct {
	*memoryState

	// Set inside a transaction
	undo *[]func()
}

func NewMemory() *Memory {
	return &Memory{
		memoryState: &memoryState{
			contracts: make(map[int64]model.Contract),
			records:   make(map[int64]model.OnchainRecord),
			succeeded: make(map[pairKey]int64),
		},
	}
}

func (self *Memory) Transaction(ctx context.Context, f func(tx Store) error) (err error) {
	if self.undo != nil {
		// Already in a transaction
		return f(self)
	}

	self.txMtx.Lock()
	defer self.txMtx.Unlock()

	undo := make([]func(), 0)
	tx := &Memory{memoryState: self.memoryState, undo: &undo}

	defer func() {
		p := recover()
		if err != nil || p != nil {
			self.mtx.Lock()
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
			self.mtx.Unlock()
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = ctx.Err(); err != nil {
		return
	}
	return f(tx)
}

// Must be called with the state lock held
func (self *Memory) onRollback(f func()) {
	if self.undo != nil {
		*self.undo = append(*self.undo, f)
	}
}

func (self *Memory) CreateContract(ctx context.Context, c *model.Contract) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.lastContractID++
	c.ID = self.lastContractID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	self.contracts[c.ID] = *c

	id := c.ID
	self.onRollback(func() { delete(self.contracts, id) })
	return nil
}

func (self *Memory) GetContract(ctx context.Context, id int64) (*model.Contract, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	c, ok := self.contracts[id]
	if !ok {
		return nil, notFound("contract", id)
	}
	return &c, nil
}

func (self *Memory) SaveContract(ctx context.Context, c *model.Contract, expected model.ContractStatus) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	stored, ok := self.contracts[c.ID]
	if !ok {
		return notFound("contract", c.ID)
	}
	if stored.Status != expected {
		return &contractStatusError{id: c.ID, expected: expected, actual: stored.Status}
	}

	updated := *c
	updated.AppliedFeeRate = stored.AppliedFeeRate
	updated.CreatedAt = stored.CreatedAt
	self.contracts[c.ID] = updated

	self.onRollback(func() { self.contracts[stored.ID] = stored })
	return nil
}

func (self *Memory) ListUnanchored(ctx context.Context, action model.ActionType, statuses []model.ContractStatus, updatedBefore time.Time, afterID int64, limit int) ([]model.Contract, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	out := make([]model.Contract, 0, limit)
	for _, c := range self.contracts {
		if c.ID <= afterID || !c.UpdatedAt.Before(updatedBefore) || !hasStatus(c.Status, statuses) {
			continue
		}
		if len(self.pair(c.ID, action)) > 0 {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasStatus(status model.ContractStatus, statuses []model.ContractStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (self *Memory) CreateRecord(ctx context.Context, r *model.OnchainRecord) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if _, ok := self.contracts[r.ContractID]; !ok {
		return notFound("contract", r.ContractID)
	}

	key := pairKey{r.ContractID, r.ActionType}
	if r.Status == model.OnchainStatusSucceeded {
		if _, ok := self.succeeded[key]; ok {
			return ErrDuplicateSuccess
		}
	}

	self.lastRecordID++
	r.ID = self.lastRecordID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	self.records[r.ID] = *r
	if r.Status == model.OnchainStatusSucceeded {
		self.succeeded[key] = r.ID
	}

	id := r.ID
	self.onRollback(func() {
		delete(self.records, id)
		if self.succeeded[key] == id {
			delete(self.succeeded, key)
		}
	})
	return nil
}

func (self *Memory) GetRecord(ctx context.Context, id int64) (*model.OnchainRecord, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	r, ok := self.records[id]
	if !ok {
		return nil, notFound("onchain record", id)
	}
	return &r, nil
}

func (self *Memory) FindSucceeded(ctx context.Context, contractID int64, action model.ActionType) (*model.OnchainRecord, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	id, ok := self.succeeded[pairKey{contractID, action}]
	if !ok {
		return nil, nil
	}
	r := self.records[id]
	return &r, nil
}

// Must be called with the state lock held
func (self *Memory) pair(contractID int64, action model.ActionType) (out []model.OnchainRecord) {
	for _, r := range self.records {
		if r.ContractID == contractID && r.ActionType == action {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return
}

func (self *Memory) LatestRecord(ctx context.Context, contractID int64, action model.ActionType) (*model.OnchainRecord, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	records := self.pair(contractID, action)
	if len(records) == 0 {
		return nil, notFound("onchain record for contract", contractID)
	}
	return &records[len(records)-1], nil
}

func (self *Memory) ListRecords(ctx context.Context, contractID int64, action model.ActionType) ([]model.OnchainRecord, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.pair(contractID, action), nil
}

func (self *Memory) ListStalePending(ctx context.Context, createdBefore time.Time, afterID int64, limit int) ([]model.OnchainRecord, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	out := make([]model.OnchainRecord, 0, limit)
	for _, r := range self.records {
		if r.Status == model.OnchainStatusPending && r.CreatedAt.Before(createdBefore) && r.ID > afterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (self *Memory) ListFailed(ctx context.Context, action model.ActionType, offset, limit int) (records []model.OnchainRecord, total int64, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	all := make([]model.OnchainRecord, 0)
	for _, r := range self.records {
		if r.Status == model.OnchainStatusFailed && (action == "" || r.ActionType == action) {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total = int64(len(all))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []model.OnchainRecord{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (self *Memory) MarkSucceeded(ctx context.Context, id int64, txHash string, now time.Time) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	r, ok := self.records[id]
	if !ok {
		return notFound("onchain record", id)
	}
	if !r.IsPending() {
		return notPending(&r)
	}

	key := pairKey{r.ContractID, r.ActionType}
	if _, ok := self.succeeded[key]; ok {
		return ErrDuplicateSuccess
	}

	before := r
	err := r.SetSucceeded(txHash, now)
	if err != nil {
		return err
	}
	self.records[id] = r
	self.succeeded[key] = id

	self.onRollback(func() {
		self.records[id] = before
		delete(self.succeeded, key)
	})
	return nil
}

func (self *Memory) MarkFailed(ctx context.Context, id int64, now time.Time) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	r, ok := self.records[id]
	if !ok {
		return notFound("onchain record", id)
	}

	before := r
	err := r.SetFailed(now)
	if err != nil {
		return err
	}
	self.records[id] = r

	self.onRollback(func() { self.records[id] = before })
	return nil
}

func (self *Memory) AppendActionLog(ctx context.Context, l *model.ActionLog) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if _, ok := self.contracts[l.ContractID]; !ok {
		return notFound("contract", l.ContractID)
	}

	self.lastLogID++
	l.ID = self.lastLogID
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	self.logs = append(self.logs, *l)

	id := l.ID
	self.onRollback(func() {
		for i := range self.logs {
			if self.logs[i].ID == id {
				self.logs = append(self.logs[:i], self.logs[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (self *Memory) ListActionLogs(ctx context.Context, contractID int64) (out []model.ActionLog, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for _, l := range self.logs {
		if l.ContractID == contractID {
			out = append(out, l)
		}
	}
	return
}

func (self *Memory) LatestEventTimestamp(ctx context.Context, contractID int64, kind model.ActionLogType) (ts time.Time, found bool, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for _, l := range self.logs {
		if l.ContractID != contractID || l.Type != kind {
			continue
		}
		if !found || !l.CreatedAt.Before(ts) {
			ts = l.CreatedAt
			found = true
		}
	}
	return
}
