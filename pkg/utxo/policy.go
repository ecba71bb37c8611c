// Package utxo locates the outputs spent by a block's transactions.
package utxo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/canopy-network/liquidityx/pkg/ledger"
)

var ErrMissingData = errors.New("consumed outputs could not be resolved")

// MissingDataAction is what a Resolver does when a consumed output is unknown.
type MissingDataAction uint8

const (
	// ActionSkip silently treats the output as not found.
	ActionSkip MissingDataAction = iota
	// ActionWarn treats it as not found and logs a warning.
	ActionWarn
	// ActionFail aborts the block.
	ActionFail
)

func (a MissingDataAction) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionWarn:
		return "warn"
	case ActionFail:
		return "fail"
	}
	return "unknown"
}

func ParseMissingDataAction(s string) (MissingDataAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return ActionSkip, nil
	case "warn":
		return ActionWarn, nil
	case "fail":
		return ActionFail, nil
	}
	return ActionSkip, fmt.Errorf("invalid missing data policy %q (want skip, warn or fail)", s)
}

// Status is the outcome of resolving one reference.
type Status uint8

const (
	StatusFound Status = iota + 1
	// StatusMissing means the output is unknown and the policy tolerates it.
	StatusMissing
	// StatusFailed means the lookup itself failed or the policy forbids missing data.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusMissing:
		return "missing"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

type Resolution struct {
	Status Status
	Output ledger.Output
}

func Found(out ledger.Output) Resolution { return Resolution{Status: StatusFound, Output: out} }
