package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the wire shape shared by the JSON and YAML encodings.
type document struct {
	Users usersDocument `json:"users" yaml:"users"`
}

type usersDocument struct {
	Count    int                        `json:"count" yaml:"count"`
	Accounts map[string]accountDocument `json:"accounts,omitempty" yaml:"accounts,omitempty"`
}

type accountDocument struct {
	Count      int                      `json:"count" yaml:"count"`
	Cards      map[string]countDocument `json:"cards,omitempty" yaml:"cards,omitempty"`
	Operations map[string]countDocument `json:"operations,omitempty" yaml:"operations,omitempty"`
}

type countDocument struct {
	Count int `json:"count" yaml:"count"`
}

// MarshalJSON encodes the plan in its wire shape.
func (p Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(toDocument(p))
}

// UnmarshalJSON decodes the plan from its wire shape. Unknown enum keys are
// kept so Validate can report them.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode plan json: %w", err)
	}
	decoded, err := fromDocument(doc)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MarshalYAML encodes the plan in its wire shape.
func (p Plan) MarshalYAML() (any, error) {
	return toDocument(p), nil
}

// UnmarshalYAML decodes the plan from its wire shape.
func (p *Plan) UnmarshalYAML(node *yaml.Node) error {
	var doc document
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("decode plan yaml: %w", err)
	}
	decoded, err := fromDocument(doc)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Decode parses a plan in the given format ("json" or "yaml") and validates it.
func Decode(data []byte, format string) (Plan, error) {
	var p Plan
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &p); err != nil {
			return Plan{}, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Plan{}, err
		}
	default:
		return Plan{}, fmt.Errorf("unsupported plan format: %s", format)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// LoadFile reads a plan from a .json, .yaml or .yml file.
func LoadFile(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan file: %w", err)
	}
	p, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Plan{}, fmt.Errorf("load plan %s: %w", path, err)
	}
	return p, nil
}

func toDocument(p Plan) document {
	doc := document{Users: usersDocument{Count: p.Users.Count}}
	if len(p.Users.Accounts) > 0 {
		doc.Users.Accounts = make(map[string]accountDocument, len(p.Users.Accounts))
	}
	for accountType, account := range p.Users.Accounts {
		accountDoc := accountDocument{Count: account.Count}
		if len(account.Cards) > 0 {
			accountDoc.Cards = make(map[string]countDocument, len(account.Cards))
			for cardType, card := range account.Cards {
				accountDoc.Cards[string(cardType)] = countDocument{Count: card.Count}
			}
		}
		if len(account.Operations) > 0 {
			accountDoc.Operations = make(map[string]countDocument, len(account.Operations))
			for kind, op := range account.Operations {
				accountDoc.Operations[string(kind)] = countDocument{Count: op.Count}
			}
		}
		doc.Users.Accounts[string(accountType)] = accountDoc
	}
	return doc
}

func fromDocument(doc document) (Plan, error) {
	users := UsersPlan{Count: doc.Users.Count}
	if len(doc.Users.Accounts) > 0 {
		users.Accounts = make(map[AccountType]AccountPlan, len(doc.Users.Accounts))
	}
	accountKeys := make(map[AccountType]string, len(doc.Users.Accounts))
	for _, rawType := range sortedKeys(doc.Users.Accounts) {
		accountDoc := doc.Users.Accounts[rawType]
		accountType, err := uniqueKey("users.accounts", rawType, ParseAccountType, accountKeys)
		if err != nil {
			return Plan{}, err
		}
		path := fmt.Sprintf("users.accounts[%s]", rawType)
		account := AccountPlan{Count: accountDoc.Count}
		if len(accountDoc.Cards) > 0 {
			account.Cards = make(map[CardType]CardPlan, len(accountDoc.Cards))
			cardKeys := make(map[CardType]string, len(accountDoc.Cards))
			for _, rawCard := range sortedKeys(accountDoc.Cards) {
				cardType, err := uniqueKey(path+".cards", rawCard, ParseCardType, cardKeys)
				if err != nil {
					return Plan{}, err
				}
				account.Cards[cardType] = CardPlan{Count: accountDoc.Cards[rawCard].Count}
			}
		}
		if len(accountDoc.Operations) > 0 {
			account.Operations = make(map[OperationKind]OperationPlan, len(accountDoc.Operations))
			kindKeys := make(map[OperationKind]string, len(accountDoc.Operations))
			for _, rawKind := range sortedKeys(accountDoc.Operations) {
				kind, err := uniqueKey(path+".operations", rawKind, ParseOperationKind, kindKeys)
				if err != nil {
					return Plan{}, err
				}
				account.Operations[kind] = OperationPlan{Count: accountDoc.Operations[rawKind].Count}
			}
		}
		users.Accounts[accountType] = account
	}
	return Plan{Users: users}, nil
}

// uniqueKey normalizes raw and rejects it when another raw key of the same
// map already normalized to the same value.
func uniqueKey[K ~string](path, raw string, parse func(string) (K, error), seen map[K]string) (K, error) {
	key := keyOf(raw, parse)
	if prev, ok := seen[key]; ok {
		return "", invalid(path, "keys %q and %q both name %q", prev, raw, string(key))
	}
	seen[key] = raw
	return key, nil
}

// keyOf normalizes a known key and keeps an unknown one verbatim.
func keyOf[K ~string](raw string, parse func(string) (K, error)) K {
	if key, err := parse(raw); err == nil {
		return key
	}
	return K(raw)
}
