// Package search evaluates filter groups against entities held in memory.
package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

type Category string

const (
	EntityID          Category = "entityID"
	EntityName        Category = "entityName"
	EntityAliases     Category = "entityAliases"
	EntityCidocClass  Category = "entityCidocClass"
	EntitySystemClass Category = "entitySystemClass"
	TypeName          Category = "typeName"
	TypeID            Category = "typeID"
	TypeIDWithSubs    Category = "typeIDWithSubs"
	BeginFrom         Category = "beginFrom"
	BeginTo           Category = "beginTo"
	EndFrom           Category = "endFrom"
	EndTo             Category = "endTo"
)

var categories = map[Category]bool{
	EntityID: false, EntityName: false, EntityAliases: false, EntityCidocClass: false,
	EntitySystemClass: false, TypeName: false, TypeID: false, TypeIDWithSubs: false,
	BeginFrom: true, BeginTo: true, EndFrom: true, EndTo: true,
}

// IsDate reports whether the category compares calendar dates.
func (c Category) IsDate() bool {
	return categories[c]
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

type Operator string

const (
	Equal            Operator = "equal"
	NotEqual         Operator = "notEqual"
	GreaterThan      Operator = "greaterThan"
	GreaterThanEqual Operator = "greaterThanEqual"
	LesserThan       Operator = "lesserThan"
	LesserThanEqual  Operator = "lesserThanEqual"
)

type Logical string

const (
	And Logical = "and"
	Or  Logical = "or"
)

// Clause is one criterion. Values combine per LogicalOperator, "or" when empty.
type Clause struct {
	Operator        Operator `json:"operator"`
	Values          Values   `json:"values"`
	LogicalOperator Logical  `json:"logicalOperator,omitempty"`
}

type Group struct {
	Category Category
	Clauses  []Clause
}

// Values accepts strings and numbers and keeps them as strings.
type Values []string

func (v *Values) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	out := make(Values, 0, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(x))
		case nil:
			continue
		default:
			return fmt.Errorf("unsupported search value %v: %w", item, domain.ErrInvalidArgument)
		}
	}
	*v = out
	return nil
}

// ParseGroups decodes the search query format. Each raw item is either an
// object mapping categories to clause lists or an array of such objects.
// Every category key becomes its own group.
func ParseGroups(raw []string) ([]Group, error) {
	groups := make([]Group, 0)
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		var objects []map[Category][]Clause
		if strings.HasPrefix(item, "[") {
			if err := json.Unmarshal([]byte(item), &objects); err != nil {
				return nil, fmt.Errorf("search: %v: %w", err, domain.ErrInvalidArgument)
			}
		} else {
			var obj map[Category][]Clause
			if err := json.Unmarshal([]byte(item), &obj); err != nil {
				return nil, fmt.Errorf("search: %v: %w", err, domain.ErrInvalidArgument)
			}
			objects = append(objects, obj)
		}
		for _, obj := range objects {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, string(k))
			}
			sort.Strings(keys)
			for _, k := range keys {
				groups = append(groups, Group{Category: Category(k), Clauses: obj[Category(k)]})
			}
		}
	}
	return groups, nil
}
