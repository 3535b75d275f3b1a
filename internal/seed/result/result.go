// Package result holds the outcome of a seed run: a tree mirroring the plan
// with created identifiers or errors on every node, and a summary.
//
// Every node is written once by the goroutine that created it and is
// read-only afterwards. The summary is computed in a single pass over the
// finished tree.
package result

import (
	"fmt"
	"time"

	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/plan"
)

// Result is the full outcome of one run.
type Result struct {
	RunID      string       `json:"run_id"`
	Scenario   string       `json:"scenario"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Users      []UserResult `json:"users"`
	Summary    Summary      `json:"summary"`
}

// UserResult is the outcome of one user branch.
type UserResult struct {
	ID       capability.UserID `json:"id,omitempty"`
	Err      *NodeError        `json:"error,omitempty"`
	Accounts []AccountResult   `json:"accounts,omitempty"`
}

// AccountResult is the outcome of one account branch.
type AccountResult struct {
	ID         capability.AccountID `json:"id,omitempty"`
	Type       plan.AccountType     `json:"type"`
	Err        *NodeError           `json:"error,omitempty"`
	Cards      []CardResult         `json:"cards,omitempty"`
	Operations []OperationResult    `json:"operations,omitempty"`
}

// CardResult is the outcome of one card creation.
type CardResult struct {
	ID   capability.CardID `json:"id,omitempty"`
	Type plan.CardType     `json:"type"`
	Err  *NodeError        `json:"error,omitempty"`
}

// OperationResult is the outcome of one operation creation. CardID is the
// card the operation was made with, empty when it was never attempted.
type OperationResult struct {
	ID     capability.OperationID `json:"id,omitempty"`
	Kind   plan.OperationKind     `json:"kind"`
	CardID capability.CardID      `json:"card_id,omitempty"`
	Err    *NodeError             `json:"error,omitempty"`
}

// Summary counts entities across the whole tree. Planned entities that were
// neither created nor failed were skipped because an ancestor failed.
type Summary struct {
	PlannedTotal int `json:"planned_total"`
	CreatedTotal int `json:"created_total"`
	FailedTotal  int `json:"failed_total"`
}

// SkippedTotal returns the planned entities that were never attempted.
func (s Summary) SkippedTotal() int {
	return max(s.PlannedTotal-s.CreatedTotal-s.FailedTotal, 0)
}

// Level names one level of the hierarchy.
type Level string

const (
	LevelUser      Level = "user"
	LevelAccount   Level = "account"
	LevelCard      Level = "card"
	LevelOperation Level = "operation"
)

// Node is a read-only view of one result node passed to Walk.
type Node struct {
	Path  string
	Level Level
	ID    string
	Err   *NodeError
}

// Created reports whether the node holds a created entity.
func (n Node) Created() bool {
	return n.Err == nil && n.ID != ""
}

// Attempted reports whether a capability call was issued for the node.
func (n Node) Attempted() bool {
	return n.Created() || (n.Err != nil && n.Err.Kind == KindTransport)
}

// Walk visits every node depth-first in tree order.
func (r *Result) Walk(fn func(Node)) {
	if r == nil {
		return
	}
	Walk(r.Users, fn)
}

// Walk visits every node of users depth-first in tree order.
func Walk(users []UserResult, fn func(Node)) {
	for i, user := range users {
		userPath := fmt.Sprintf("users[%d]", i)
		fn(Node{Path: userPath, Level: LevelUser, ID: string(user.ID), Err: user.Err})
		for j, account := range user.Accounts {
			accountPath := fmt.Sprintf("%s.accounts[%d]", userPath, j)
			fn(Node{Path: accountPath, Level: LevelAccount, ID: string(account.ID), Err: account.Err})
			for k, card := range account.Cards {
				fn(Node{Path: fmt.Sprintf("%s.cards[%d]", accountPath, k), Level: LevelCard, ID: string(card.ID), Err: card.Err})
			}
			for k, op := range account.Operations {
				fn(Node{Path: fmt.Sprintf("%s.operations[%d]", accountPath, k), Level: LevelOperation, ID: string(op.ID), Err: op.Err})
			}
		}
	}
}

// Summarize counts created and failed nodes. plannedTotal comes from the
// plan because skipped branches leave no nodes behind.
func Summarize(users []UserResult, plannedTotal int) Summary {
	summary := Summary{PlannedTotal: plannedTotal}
	Walk(users, func(n Node) {
		switch {
		case n.Err != nil:
			summary.FailedTotal++
		case n.ID != "":
			summary.CreatedTotal++
		}
	})
	return summary
}

// LevelCounts tallies one hierarchy level.
type LevelCounts struct {
	Attempted int `json:"attempted"`
	Created   int `json:"created"`
	Failed    int `json:"failed"`
}

// Counts tallies every hierarchy level.
type Counts struct {
	Users      LevelCounts `json:"users"`
	Accounts   LevelCounts `json:"accounts"`
	Cards      LevelCounts `json:"cards"`
	Operations LevelCounts `json:"operations"`
}

// Counts tallies attempted, created and failed nodes per level.
func (r *Result) Counts() Counts {
	var counts Counts
	r.Walk(func(n Node) {
		var level *LevelCounts
		switch n.Level {
		case LevelUser:
			level = &counts.Users
		case LevelAccount:
			level = &counts.Accounts
		case LevelCard:
			level = &counts.Cards
		case LevelOperation:
			level = &counts.Operations
		default:
			return
		}
		if n.Attempted() {
			level.Attempted++
		}
		if n.Created() {
			level.Created++
		}
		if n.Err != nil {
			level.Failed++
		}
	})
	return counts
}

// Failure describes one failed node.
type Failure struct {
	Path    string    `json:"path"`
	Level   Level     `json:"level"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Failures lists every failed node in tree order.
func (r *Result) Failures() []Failure {
	var failures []Failure
	r.Walk(func(n Node) {
		if n.Err == nil {
			return
		}
		failures = append(failures, Failure{Path: n.Path, Level: n.Level, Kind: n.Err.Kind, Message: n.Err.Message})
	})
	return failures
}

// OK reports whether every planned entity was created.
func (r *Result) OK() bool {
	if r == nil {
		return false
	}
	return r.Summary.FailedTotal == 0 && r.Summary.CreatedTotal == r.Summary.PlannedTotal
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	if r == nil || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
