package httpgateway

import (
	"fmt"
	"strings"

	"github.com/paygate/seedforge/internal/seed/plan"
)

// AccountPath returns the endpoint that opens an account of type t.
func AccountPath(t plan.AccountType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("unknown account type %q", t)
	}
	return "/api/v1/accounts/open-" + slug(string(t)) + "-account", nil
}

// CardPath returns the endpoint that issues a card of type t.
func CardPath(t plan.CardType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("unknown card type %q", t)
	}
	return "/api/v1/cards/issue-" + slug(string(t)) + "-card", nil
}

// OperationPath returns the endpoint that makes an operation of kind k.
func OperationPath(k plan.OperationKind) (string, error) {
	if !k.Valid() {
		return "", fmt.Errorf("unknown operation kind %q", k)
	}
	return "/api/v1/operations/make-" + slug(string(k)) + "-operation", nil
}

func slug(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}
