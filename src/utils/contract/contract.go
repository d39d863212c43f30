// Package contract holds the state machine of the agreement between a leader and an artist.
// Transitions only change the status. Side effects such as ledger actions are published
// by the caller once the new state is committed.
package contract

import (
	"errors"
	"fmt"
	"time"

	"github.com/artcommission/anchor/src/utils/model"

	"github.com/shopspring/decimal"
)

var ErrInvalidTerms = errors.New("invalid contract terms")

// Negotiable part of the contract
type Terms struct {
	ProjectID   int64
	LeaderID    int64
	ArtistID    int64
	Title       string
	Description string
	StartedAt   time.Time
	EndedAt     time.Time
	TotalAmount int64
	NftImageUrl string
}

func (self Terms) Validate() error {
	switch {
	case self.LeaderID == 0 || self.ArtistID == 0:
		return fmt.Errorf("%w: both parties are required", ErrInvalidTerms)
	case self.LeaderID == self.ArtistID:
		return fmt.Errorf("%w: leader and artist must differ", ErrInvalidTerms)
	case self.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTerms)
	case self.TotalAmount <= 0:
		return fmt.Errorf("%w: total amount must be positive", ErrInvalidTerms)
	case self.EndedAt.Before(self.StartedAt):
		return fmt.Errorf("%w: contract ends before it starts", ErrInvalidTerms)
	}
	return nil
}

type Contract struct {
	id              int64
	terms           Terms
	appliedFeeRate  decimal.Decimal
	leaderSignature []byte
	artistSignature []byte
	status          model.ContractStatus
	createdAt       time.Time
	updatedAt       time.Time
}

// New offer. The fee rate is captured here and never changes afterwards.
func New(terms Terms, feeRate decimal.Decimal) (*Contract, error) {
	err := terms.Validate()
	if err != nil {
		return nil, err
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: fee rate %s out of range", ErrInvalidTerms, feeRate)
	}

	return &Contract{
		terms:          terms,
		appliedFeeRate: feeRate,
		status:         model.ContractStatusPending,
	}, nil
}

func FromModel(m *model.Contract) *Contract {
	return &Contract{
		id: m.ID,
		terms: Terms{
			ProjectID:   m.ProjectID,
			LeaderID:    m.LeaderID,
			ArtistID:    m.ArtistID,
			Title:       m.Title,
			Description: m.Description,
			StartedAt:   m.StartedAt,
			EndedAt:     m.EndedAt,
			TotalAmount: m.TotalAmount,
			NftImageUrl: m.NftImageUrl,
		},
		appliedFeeRate:  m.AppliedFeeRate,
		leaderSignature: m.LeaderSignature,
		artistSignature: m.ArtistSignature,
		status:          m.Status,
		createdAt:       m.CreatedAt,
		updatedAt:       m.UpdatedAt,
	}
}

func (self *Contract) ToModel() *model.Contract {
	return &model.Contract{
		ID:              self.id,
		ProjectID:       self.terms.ProjectID,
		LeaderID:        self.terms.LeaderID,
		ArtistID:        self.terms.ArtistID,
		Title:           self.terms.Title,
		Description:     self.terms.Description,
		StartedAt:       self.terms.StartedAt,
		EndedAt:         self.terms.EndedAt,
		TotalAmount:     self.terms.TotalAmount,
		AppliedFeeRate:  self.appliedFeeRate,
		LeaderSignature: self.leaderSignature,
		ArtistSignature: self.artistSignature,
		NftImageUrl:     self.terms.NftImageUrl,
		Status:          self.status,
		CreatedAt:       self.createdAt,
		UpdatedAt:       self.updatedAt,
	}
}

func (self *Contract) ID() int64                       { return self.id }
func (self *Contract) Terms() Terms                    { return self.terms }
func (self *Contract) AppliedFeeRate() decimal.Decimal { return self.appliedFeeRate }
func (self *Contract) Status() model.ContractStatus    { return self.status }
func (self *Contract) LeaderSignature() []byte         { return self.leaderSignature }
func (self *Contract) ArtistSignature() []byte         { return self.artistSignature }
func (self *Contract) CreatedAt() time.Time            { return self.createdAt }

func (self *Contract) IsParticipant(userID int64) bool {
	return userID != 0 && (userID == self.terms.LeaderID || userID == self.terms.ArtistID)
}

func (self *Contract) transition(to model.ContractStatus) error {
	if !CanTransition(self.status, to) {
		return &TransitionError{ContractID: self.id, From: self.status, To: to}
	}
	self.status = to
	return nil
}

// Artist refuses the offer. The leader may reoffer or withdraw.
func (self *Contract) Decline() error {
	return self.transition(model.ContractStatusDeclined)
}

// Leader takes the offer back
func (self *Contract) Withdraw() error {
	return self.transition(model.ContractStatusWithdrawn)
}

// Declined offer goes back to the artist with new terms. Parties can't change.
func (self *Contract) Reoffer(terms Terms) error {
	if !CanTransition(self.status, model.ContractStatusPending) {
		return &TransitionError{ContractID: self.id, From: self.status, To: model.ContractStatusPending}
	}
	err := terms.Validate()
	if err != nil {
		return err
	}
	if terms.LeaderID != self.terms.LeaderID || terms.ArtistID != self.terms.ArtistID {
		return fmt.Errorf("%w: parties can't change on reoffer", ErrInvalidTerms)
	}

	self.terms = terms
	self.artistSignature = nil
	return self.transition(model.ContractStatusPending)
}

func (self *Contract) SignByArtist(signature []byte) error {
	if !CanTransition(self.status, model.ContractStatusArtistSigned) {
		return &TransitionError{ContractID: self.id, From: self.status, To: model.ContractStatusArtistSigned}
	}
	if len(signature) == 0 {
		return fmt.Errorf("%w: empty artist signature", ErrInvalidTerms)
	}
	self.artistSignature = signature
	return self.transition(model.ContractStatusArtistSigned)
}

// Leader countersigns, payment can be collected afterwards
func (self *Contract) SignByLeader(signature []byte) error {
	if !CanTransition(self.status, model.ContractStatusPaymentPending) {
		return &TransitionError{ContractID: self.id, From: self.status, To: model.ContractStatusPaymentPending}
	}
	if len(signature) == 0 {
		return fmt.Errorf("%w: empty leader signature", ErrInvalidTerms)
	}
	self.leaderSignature = signature
	return self.transition(model.ContractStatusPaymentPending)
}

// Payment captured by the payment gateway
func (self *Contract) CompletePayment() error {
	if self.status != model.ContractStatusPaymentPending {
		return &TransitionError{ContractID: self.id, From: self.status, To: model.ContractStatusPaymentCompleted}
	}
	return self.transition(model.ContractStatusPaymentCompleted)
}

func (self *Contract) Complete() error {
	return self.transition(model.ContractStatusCompleted)
}

func (self *Contract) RequestCancellation() error {
	return self.transition(model.ContractStatusCancellationRequested)
}

func (self *Contract) ApproveCancellation() error {
	return self.transition(model.ContractStatusCanceled)
}

// Cancellation request turned down, work continues
func (self *Contract) RejectCancellation() error {
	if self.status != model.ContractStatusCancellationRequested {
		return &TransitionError{ContractID: self.id, From: self.status, To: model.ContractStatusPaymentCompleted}
	}
	return self.transition(model.ContractStatusPaymentCompleted)
}
