package search

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

// SubIDResolver expands a type id to its transitive sub type ids.
type SubIDResolver interface {
	SubIDs(id uint) []uint
}

type clause struct {
	category Category
	operator Operator
	logical  Logical
	values   []string
	dates    []time.Time
}

type compiledGroup []clause

// Search returns the entities matching at least one group, in input order.
// Clauses inside a group must all hold. With no entities nothing is
// validated and the result is empty.
func Search(entities []domain.Entity, groups []Group, subs SubIDResolver) ([]domain.Entity, error) {
	out := make([]domain.Entity, 0)
	if len(entities) == 0 {
		return out, nil
	}
	compiled, err := Compile(groups, subs)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if compiled.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Filter is a validated, expanded set of groups ready to match entities.
type Filter []compiledGroup

// Compile validates every clause and expands typeIDWithSubs values once.
func Compile(groups []Group, subs SubIDResolver) (Filter, error) {
	out := make(Filter, 0, len(groups))
	for _, g := range groups {
		if !g.Category.Valid() {
			return nil, fmt.Errorf("unknown category %q: %w", g.Category, domain.ErrInvalidOperator)
		}
		cg := make(compiledGroup, 0, len(g.Clauses))
		for _, c := range g.Clauses {
			cc, err := compileClause(g.Category, c, subs)
			if err != nil {
				return nil, err
			}
			cg = append(cg, cc)
		}
		out = append(out, cg)
	}
	return out, nil
}

func compileClause(cat Category, c Clause, subs SubIDResolver) (clause, error) {
	logical := c.LogicalOperator
	if logical == "" {
		logical = Or
	}
	if logical != And && logical != Or {
		return clause{}, fmt.Errorf("unknown logical operator %q: %w", logical, domain.ErrInvalidOperator)
	}
	switch c.Operator {
	case Equal, NotEqual:
	case GreaterThan, GreaterThanEqual, LesserThan, LesserThanEqual:
		if !cat.IsDate() {
			return clause{}, fmt.Errorf("operator %q needs a date category, got %q: %w", c.Operator, cat, domain.ErrInvalidOperator)
		}
	default:
		return clause{}, fmt.Errorf("unknown operator %q: %w", c.Operator, domain.ErrInvalidOperator)
	}

	cc := clause{category: cat, operator: c.Operator, logical: logical, values: slices.Clone([]string(c.Values))}
	if cat.IsDate() {
		cc.dates = make([]time.Time, 0, len(c.Values))
		for _, v := range c.Values {
			d, ok := ParseDate(v)
			if !ok {
				return clause{}, fmt.Errorf("invalid date %q for %s: %w", v, cat, domain.ErrInvalidOperator)
			}
			cc.dates = append(cc.dates, d)
		}
	}
	if cat == TypeIDWithSubs {
		expanded, err := expandTypeIDs(cc.values, subs)
		if err != nil {
			return clause{}, err
		}
		cc.values = expanded
	}
	return cc, nil
}

func expandTypeIDs(values []string, subs SubIDResolver) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	add := func(v string) {
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range values {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("type id %q: %w", v, domain.ErrInvalidArgument)
		}
		add(v)
		if subs == nil {
			continue
		}
		for _, sub := range subs.SubIDs(uint(id)) {
			add(strconv.FormatUint(uint64(sub), 10))
		}
	}
	return out, nil
}

// Match reports whether e satisfies at least one group.
func (f Filter) Match(e domain.Entity) bool {
	for _, g := range f {
		if g.match(e) {
			return true
		}
	}
	return false
}

func (g compiledGroup) match(e domain.Entity) bool {
	for _, c := range g {
		if !c.match(e) {
			return false
		}
	}
	return true
}

func (c clause) match(e domain.Entity) bool {
	if c.category.IsDate() {
		d, ok := entityDate(e, c.category)
		if !ok {
			return false
		}
		return c.matchDate(d)
	}
	have := resolve(e, c.category)
	contains := func(v string) bool { return slices.Contains(have, v) }
	switch c.operator {
	case Equal:
		return combine(c.logical, c.values, contains)
	case NotEqual:
		return !combine(c.logical, c.values, contains)
	}
	return false
}

func (c clause) matchDate(d time.Time) bool {
	var test func(time.Time) bool
	negate := false
	switch c.operator {
	case Equal:
		test = func(v time.Time) bool { return d.Equal(v) }
	case NotEqual:
		test = func(v time.Time) bool { return d.Equal(v) }
		negate = true
	case GreaterThan:
		test = func(v time.Time) bool { return d.After(v) }
	case GreaterThanEqual:
		test = func(v time.Time) bool { return !d.Before(v) }
	case LesserThan:
		test = func(v time.Time) bool { return d.Before(v) }
	case LesserThanEqual:
		test = func(v time.Time) bool { return !d.After(v) }
	default:
		return false
	}
	result := combine(c.logical, c.dates, test)
	if negate {
		return !result
	}
	return result
}

// combine applies any (or) or all (and) over values. An empty list is false
// under "or" and true under "and".
func combine[T any](logical Logical, values []T, test func(T) bool) bool {
	if logical == And {
		for _, v := range values {
			if !test(v) {
				return false
			}
		}
		return true
	}
	for _, v := range values {
		if test(v) {
			return true
		}
	}
	return false
}

func resolve(e domain.Entity, cat Category) []string {
	switch cat {
	case EntityID:
		return []string{formatID(e.ID)}
	case EntityName:
		return []string{e.Name}
	case EntityAliases:
		return e.AliasNames()
	case EntityCidocClass:
		return []string{e.CidocCode()}
	case EntitySystemClass:
		return []string{string(e.Class)}
	case TypeName:
		out := make([]string, 0, len(e.Types))
		for _, t := range e.Types {
			out = append(out, t.Name)
		}
		return out
	case TypeID, TypeIDWithSubs:
		out := make([]string, 0, len(e.Types))
		for _, t := range e.Types {
			out = append(out, formatID(t.ID))
		}
		return out
	}
	return nil
}

func entityDate(e domain.Entity, cat Category) (time.Time, bool) {
	switch cat {
	case BeginFrom:
		return ParseDate(e.BeginFrom)
	case BeginTo:
		return ParseDate(e.BeginTo)
	case EndFrom:
		return ParseDate(e.EndFrom)
	case EndTo:
		return ParseDate(e.EndTo)
	}
	return time.Time{}, false
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
