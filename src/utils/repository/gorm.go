package repository

import (
	"context"
	"errors"
	"time"

	"github.com/artcommission/anchor/src/utils/model"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// Postgres backed store
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (self *Gorm) Transaction(ctx context.Context, f func(tx Store) error) error {
	return self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&Gorm{db: tx})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (self *Gorm) CreateContract(ctx context.Context, c *model.Contract) error {
	return self.db.WithContext(ctx).Create(c).Error
}

func (self *Gorm) GetContract(ctx context.Context, id int64) (out *model.Contract, err error) {
	out = new(model.Contract)
	err = self.db.WithContext(ctx).
		Table(model.TableContract).
		Where("id = ?", id).
		First(out).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("contract", id)
	}
	return
}

func (self *Gorm) SaveContract(ctx context.Context, c *model.Contract, expected model.ContractStatus) error {
	res := self.db.WithContext(ctx).
		Table(model.TableContract).
		Where("id = ?", c.ID).
		Where("status = ?", expected).
		Updates(map[string]interface{}{
			"title":            c.Title,
			"description":      c.Description,
			"started_at":       c.StartedAt,
			"ended_at":         c.EndedAt,
			"total_amount":     c.TotalAmount,
			"leader_signature": c.LeaderSignature,
			"artist_signature": c.ArtistSignature,
			"nft_image_url":    c.NftImageUrl,
			"status":           c.Status,
			"updated_at":       c.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		stored, err := self.GetContract(ctx, c.ID)
		if err != nil {
			return err
		}
		return &contractStatusError{id: c.ID, expected: expected, actual: stored.Status}
	}
	return nil
}

func (self *Gorm) ListUnanchored(ctx context.Context, action model.ActionType, statuses []model.ContractStatus, updatedBefore time.Time, afterID int64, limit int) (contracts []model.Contract, err error) {
	contracts = make([]model.Contract, 0, limit)
	err = self.db.WithContext(ctx).
		Table(model.TableContract).
		Where("status IN ?", statuses).
		Where("updated_at < ?", updatedBefore).
		Where("id > ?", afterID).
		Where("NOT EXISTS (SELECT 1 FROM "+model.TableOnchainRecord+" r WHERE r.contract_id = contracts.id AND r.action_type = ?)", action).
		Order("id ASC").
		Limit(limit).
		Find(&contracts).
		Error
	return
}

func (self *Gorm) CreateRecord(ctx context.Context, r *model.OnchainRecord) error {
	return self.db.WithContext(ctx).Create(r).Error
}

func (self *Gorm) GetRecord(ctx context.Context, id int64) (out *model.OnchainRecord, err error) {
	out = new(model.OnchainRecord)
	err = self.db.WithContext(ctx).
		Table(model.TableOnchainRecord).
		Where("id = ?", id).
		First(out).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("onchain record", id)
	}
	return
}

func (self *Gorm) FindSucceeded(ctx context.Context, contractID int64, action model.ActionType) (*model.OnchainRecord, error) {
	var records []model.OnchainRecord
	err := self.db.WithContext(ctx).
		Table(model.TableOnchainRecord).
		Where("contract_id = ?", contractID).
		Where("action_type = ?", action).
		Where("status = ?", model.OnchainStatusSucceeded).
		Limit(1).
		Find(&records).
		Error
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (self *Gorm) LatestRecord(ctx context.Context, contractID int64, action model.ActionType) (out *model.OnchainRecord, err error) {
	var records []model.OnchainRecord
	err = self.db.WithContext(ctx).
		Table(model.TableOnchainRecord).
		Where("contract_id = ?", contractID).
		Where("action_type = ?", action).
		Order("id DESC").
		Limit(1).
		Find(&records).
		Error
	if err != nil {
		return
	}
	if len(records) == 0 {
		return nil, notFound("onchain record for contract", contractID)
	}
	return &records[0], nil
}

func (self *Gorm) ListRecords(ctx context.Context, contractID int64, action model.ActionType) (records []model.OnchainRecord, err error) {
	err = self.db.WithContext(ctx).
		Table(model.TableOnchainRecord).
		Where("contract_id = ?", contractID).
		Where("action_type = ?", action).
		Order("id ASC").
		Find(&records).
		Error
	return
}

func (self *Gorm) ListStalePending(ctx context.Context, createdBefore time.Time, afterID int64, limit int) (records []model.OnchainRecord, err error) {
	records = make([]model.OnchainRecord, 0, limit)
	err = self.db.WithContext(ctx).
		Table(model.TableOnchainRecord).
		Where("status = ?", model.OnchainStatusPending).
		Where("created_at < ?", createdBefore).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&records).
		Error
	return
}

func (self *Gorm) ListFailed(ctx context.Context, action model.ActionType, offset, limit int) (records []model.OnchainRecord, total int64, err error) {
	query := func() *gorm.DB {
		q := self.db.WithContext(ctx).
			Table(model.TableOnchainRecord).
			Where("status = ?", model.OnchainStatusFailed)
		if action != "" {
			q = q.Where("action_type = ?", action)
		}
		return q
	}

	err = query().Count(&total).Error
	if err != nil {
		return
	}

	err = query().
		Order("updated_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).
		Error
	return
}

func (self *Gorm) MarkSucceeded(ctx context.Context, id int64, txHash string, now time.Time) error {
	return self.close(ctx, id, map[string]interface{}{
		"status":     model.OnchainStatusSucceeded,
		"tx_hash":    txHash,
		"updated_at": now,
	})
}

func (self *Gorm) MarkFailed(ctx context.Context, id int64, now time.Time) error {
	return self.close(ctx, id, map[string]interface{}{
		"status":     model.OnchainStatusFailed,
		"updated_at": now,
	})
}

func (self *Gorm) close(ctx context.Context, id int64, values map[string]interface{}) error {
	res := self.db.WithContext(ctx).
		Table(model.TableOnchainRecord).
		Where("id = ?", id).
		Where("status = ?", model.OnchainStatusPending).
		Updates(values)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicateSuccess
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		stored, err := self.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		return notPending(stored)
	}
	return nil
}

func (self *Gorm) AppendActionLog(ctx context.Context, l *model.ActionLog) error {
	return self.db.WithContext(ctx).Create(l).Error
}

func (self *Gorm) ListActionLogs(ctx context.Context, contractID int64) (logs []model.ActionLog, err error) {
	err = self.db.WithContext(ctx).
		Table(model.TableActionLog).
		Where("contract_id = ?", contractID).
		Order("id ASC").
		Find(&logs).
		Error
	return
}

func (self *Gorm) LatestEventTimestamp(ctx context.Context, contractID int64, kind model.ActionLogType) (ts time.Time, found bool, err error) {
	var logs []model.ActionLog
	err = self.db.WithContext(ctx).
		Table(model.TableActionLog).
		Where("contract_id = ?", contractID).
		Where("type = ?", kind).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&logs).
		Error
	if err != nil || len(logs) == 0 {
		return
	}
	return logs[0].CreatedAt, true, nil
}
