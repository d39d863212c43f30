package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// Outcome of the call is unknown, it may or may not have been applied
	ErrTransient = errors.New("transient ledger failure")

	// Ledger definitively rejected the call
	ErrDeterministic = errors.New("deterministic ledger failure")
)

func Transient(err error) error {
	if err == nil || IsTransient(err) || IsDeterministic(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func Deterministic(err error) error {
	if err == nil || IsTransient(err) || IsDeterministic(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDeterministic, err)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsDeterministic(err error) bool {
	return errors.Is(err, ErrDeterministic)
}

// Sorts raw ledger client errors into transient and deterministic ones.
// Anything not recognized is transient: the reconciler will look at it later.
type Classifier struct {
	fragments []string
}

func NewClassifier(fragments []string) *Classifier {
	self := new(Classifier)
	for _, f := range fragments {
		f = strings.TrimSpace(strings.ToLower(f))
		if f != "" {
			self.fragments = append(self.fragments, f)
		}
	}
	return self
}

func (self *Classifier) Classify(err error) error {
	if err == nil || IsTransient(err) || IsDeterministic(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(err)
	}

	msg := strings.ToLower(err.Error())
	for _, f := range self.fragments {
		if strings.Contains(msg, f) {
			return Deterministic(err)
		}
	}
	return Transient(err)
}
