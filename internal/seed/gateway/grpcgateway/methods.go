package grpcgateway

import (
	"fmt"
	"strings"

	"github.com/paygate/seedforge/internal/seed/plan"
)

// Gateway service names.
const (
	UsersService      = "gateway.users.UsersGatewayService"
	AccountsService   = "gateway.accounts.AccountsGatewayService"
	CardsService      = "gateway.cards.CardsGatewayService"
	OperationsService = "gateway.operations.OperationsGatewayService"
)

// CreateUserMethod is the full method name for creating a user.
const CreateUserMethod = "/" + UsersService + "/CreateUser"

// AccountMethod returns the full method name that opens an account of type t.
func AccountMethod(t plan.AccountType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("unknown account type %q", t)
	}
	return fullMethod(AccountsService, "Open"+pascal(string(t))+"Account"), nil
}

// CardMethod returns the full method name that issues a card of type t.
func CardMethod(t plan.CardType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("unknown card type %q", t)
	}
	return fullMethod(CardsService, "Issue"+pascal(string(t))+"Card"), nil
}

// OperationMethod returns the full method name that makes an operation of
// kind k.
func OperationMethod(k plan.OperationKind) (string, error) {
	if !k.Valid() {
		return "", fmt.Errorf("unknown operation kind %q", k)
	}
	return fullMethod(OperationsService, "Make"+pascal(string(k))+"Operation"), nil
}

// Methods lists every gateway create method the adapter calls.
func Methods() []string {
	methods := []string{CreateUserMethod}
	for _, t := range plan.AccountTypes() {
		m, _ := AccountMethod(t)
		methods = append(methods, m)
	}
	for _, t := range plan.CardTypes() {
		m, _ := CardMethod(t)
		methods = append(methods, m)
	}
	for _, k := range plan.OperationKinds() {
		m, _ := OperationMethod(k)
		methods = append(methods, m)
	}
	return methods
}

func fullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// pascal turns snake_case into PascalCase.
func pascal(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
