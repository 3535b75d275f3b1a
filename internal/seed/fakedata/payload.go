package fakedata

import (
	"fmt"
	"strings"

	"github.com/paygate/seedforge/internal/seed/plan"
	"github.com/shopspring/decimal"
)

// OperationStatusCompleted is the status seeded operations are created with.
const OperationStatusCompleted = "COMPLETED"

// Money is an amount that encodes as a JSON number with two decimals.
type Money decimal.Decimal

// Decimal returns m as a decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.Decimal(m)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

// UnmarshalJSON accepts both a JSON number and a quoted decimal.
func (m *Money) UnmarshalJSON(data []byte) error {
	d, err := decimal.NewFromString(strings.Trim(string(data), `"`))
	if err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	*m = Money(d)
	return nil
}

// OperationPayload is the body of a make-operation request.
type OperationPayload struct {
	Status    string `json:"status"`
	Amount    Money  `json:"amount"`
	CardID    string `json:"cardId"`
	AccountID string `json:"accountId"`
	Category  string `json:"category,omitempty"`
}

// Operation builds the payload for an operation of the given kind. Only
// purchases carry a category.
func (g *Generator) Operation(kind plan.OperationKind, cardID, accountID string) OperationPayload {
	payload := OperationPayload{
		Status:    OperationStatusCompleted,
		Amount:    Money(g.Amount(kind)),
		CardID:    cardID,
		AccountID: accountID,
	}
	if kind == plan.OperationPurchase {
		payload.Category = g.PurchaseCategory()
	}
	return payload
}
