package engine

import (
	"context"
	"sync"

	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/plan"
	"github.com/paygate/seedforge/internal/seed/result"
	"golang.org/x/sync/semaphore"
)

// run is the state shared by every goroutine of one Engine.Run call.
type run struct {
	ctx        context.Context
	capability capability.Capability
	gate       *semaphore.Weighted
	logf       func(string, ...any)
}

func (r *run) log(format string, args ...any) {
	if r.logf != nil {
		r.logf(format, args...)
	}
}

// call runs fn while holding one gate permit. An empty identifier with a
// nil error is treated as a failure.
func call[T ~string](r *run, fn func(context.Context) (T, error)) (T, error) {
	if err := r.gate.Acquire(r.ctx, 1); err != nil {
		return "", err
	}
	defer r.gate.Release(1)
	value, err := fn(r.ctx)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", capability.ErrEmptyID
	}
	return value, nil
}

func (r *run) user(p plan.UsersPlan) result.UserResult {
	userID, err := call(r, r.capability.CreateUser)
	if err != nil {
		r.log("create user: %v", err)
		return result.UserResult{Err: result.Transport(capability.OpCreateUser, err)}
	}

	var slots []accountSlot
	for _, accountType := range plan.AccountTypes() {
		accountPlan, ok := p.Accounts[accountType]
		if !ok {
			continue
		}
		for range accountPlan.Count {
			slots = append(slots, accountSlot{accountType: accountType, plan: accountPlan})
		}
	}

	accounts := make([]result.AccountResult, len(slots))
	var wg sync.WaitGroup
	for i, slot := range slots {
		wg.Go(func() {
			accounts[i] = r.account(userID, slot)
		})
	}
	wg.Wait()

	return result.UserResult{ID: userID, Accounts: accounts}
}

type accountSlot struct {
	accountType plan.AccountType
	plan        plan.AccountPlan
}

func (r *run) account(userID capability.UserID, slot accountSlot) result.AccountResult {
	out := result.AccountResult{Type: slot.accountType}
	accountID, err := call(r, func(ctx context.Context) (capability.AccountID, error) {
		return r.capability.OpenAccount(ctx, userID, slot.accountType)
	})
	if err != nil {
		r.log("open %s account for user %s: %v", slot.accountType, userID, err)
		out.Err = result.Transport(capability.OpOpenAccount, err)
		return out
	}
	out.ID = accountID

	out.Cards = r.cards(userID, accountID, slot.plan)
	out.Operations = r.operations(userID, accountID, slot.plan, firstCard(out.Cards))
	return out
}

// cards issues every requested card for one account and returns once all
// of them have completed. This is the barrier before the operation phase.
func (r *run) cards(userID capability.UserID, accountID capability.AccountID, accountPlan plan.AccountPlan) []result.CardResult {
	var cardTypes []plan.CardType
	for _, cardType := range plan.CardTypes() {
		for range accountPlan.Cards[cardType].Count {
			cardTypes = append(cardTypes, cardType)
		}
	}
	if len(cardTypes) == 0 {
		return nil
	}

	cards := make([]result.CardResult, len(cardTypes))
	var wg sync.WaitGroup
	for i, cardType := range cardTypes {
		wg.Go(func() {
			req := capability.CardRequest{UserID: userID, AccountID: accountID, Type: cardType}
			cardID, err := call(r, func(ctx context.Context) (capability.CardID, error) {
				return r.capability.IssueCard(ctx, req)
			})
			if err != nil {
				r.log("issue %s card for account %s: %v", cardType, accountID, err)
				cards[i] = result.CardResult{Type: cardType, Err: result.Transport(capability.OpIssueCard, err)}
				return
			}
			cards[i] = result.CardResult{ID: cardID, Type: cardType}
		})
	}
	wg.Wait()
	return cards
}

// firstCard picks the first successfully created card in creation order,
// which is plan order: card types in declaration order, then by count.
func firstCard(cards []result.CardResult) capability.CardID {
	for _, card := range cards {
		if card.Err == nil && card.ID != "" {
			return card.ID
		}
	}
	return ""
}

func (r *run) operations(userID capability.UserID, accountID capability.AccountID, accountPlan plan.AccountPlan, cardID capability.CardID) []result.OperationResult {
	var kinds []plan.OperationKind
	for _, kind := range plan.OperationKinds() {
		for range accountPlan.Operations[kind].Count {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return nil
	}

	ops := make([]result.OperationResult, len(kinds))
	if cardID == "" {
		r.log("account %s: skipping %d operation(s), no card was created", accountID, len(kinds))
		for i, kind := range kinds {
			ops[i] = result.OperationResult{Kind: kind, Err: result.Dependency(accountID)}
		}
		return ops
	}

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Go(func() {
			req := capability.OperationRequest{UserID: userID, CardID: cardID, AccountID: accountID, Kind: kind}
			opID, err := call(r, func(ctx context.Context) (capability.OperationID, error) {
				return r.capability.CreateOperation(ctx, req)
			})
			if err != nil {
				r.log("create %s operation for card %s: %v", kind, cardID, err)
				ops[i] = result.OperationResult{Kind: kind, CardID: cardID, Err: result.Transport(capability.OpCreateOperation, err)}
				return
			}
			ops[i] = result.OperationResult{ID: opID, Kind: kind, CardID: cardID}
		})
	}
	wg.Wait()
	return ops
}
