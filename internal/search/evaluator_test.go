package search

import (
	"testing"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/typetree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entities []domain.Entity) []uint {
	out := make([]uint, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}

func fixtures() []domain.Entity {
	return []domain.Entity{
		{
			ID: 1, Class: domain.ClassPlace, Name: "Nostromos",
			Timespan: domain.Timespan{BeginFrom: "1979-05-25"},
			Aliases:  map[uint]string{90: "USCSS Nostromo"},
			Types:    []domain.TypeRef{{ID: 12, Name: "Ship"}},
		},
		{
			ID: 2, Class: domain.ClassPerson, Name: "Asgard",
			Timespan: domain.Timespan{BeginFrom: "0800-01-01", EndTo: "1100-12-31"},
			Types:    []domain.TypeRef{{ID: 13, Name: "Realm"}},
		},
		{ID: 3, Class: domain.ClassArtifact, Name: "Unknown", Timespan: domain.Timespan{BeginFrom: "not a date"}},
		{ID: 4, Class: domain.ClassArtifact, Name: "Tagged root", Types: []domain.TypeRef{{ID: 10, Name: "Root"}}},
	}
}

func typeTree() *typetree.Tree {
	// Root(10) -> A(11) -> {B(12), C(13)}
	return typetree.Build(
		[]domain.TypeRecord{{ID: 10, Name: "Root"}, {ID: 11, Name: "A"}, {ID: 12, Name: "B"}, {ID: 13, Name: "C"}},
		[]domain.ParentEdge{{LinkID: 1, ChildID: 11, ParentID: 10}, {LinkID: 2, ChildID: 12, ParentID: 11}, {LinkID: 3, ChildID: 13, ParentID: 11}},
		nil, nil)
}

func TestSearchEmptyInputs(t *testing.T) {
	out, err := Search(nil, []Group{{Category: EntityName, Clauses: []Clause{{Operator: "bogus"}}}}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Search(fixtures(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSearchByNameIsExact(t *testing.T) {
	groups := []Group{{Category: EntityName, Clauses: []Clause{{Operator: Equal, Values: Values{"Nostromos"}, LogicalOperator: Or}}}}
	out, err := Search(fixtures(), groups, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(out))

	groups[0].Clauses[0].Values = Values{"Nostro"}
	out, err = Search(fixtures(), groups, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTypeIDWithSubsMatchesSubtree(t *testing.T) {
	groups := []Group{{Category: TypeIDWithSubs, Clauses: []Clause{{Operator: Equal, Values: Values{"10"}}}}}
	out, err := Search(fixtures(), groups, typeTree())
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 4}, ids(out))

	plain := []Group{{Category: TypeID, Clauses: []Clause{{Operator: Equal, Values: Values{"10"}}}}}
	out, err = Search(fixtures(), plain, typeTree())
	require.NoError(t, err)
	assert.Equal(t, []uint{4}, ids(out))
}

func TestDateFilterExcludesMissingDates(t *testing.T) {
	groups := []Group{{Category: BeginFrom, Clauses: []Clause{{Operator: GreaterThan, Values: Values{"1950-01-01"}}}}}
	out, err := Search(fixtures(), groups, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(out))

	negated := []Group{{Category: BeginFrom, Clauses: []Clause{{Operator: NotEqual, Values: Values{"1950-01-01"}}}}}
	out, err = Search(fixtures(), negated, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids(out), "entities without a parsable date never match")
}

func TestDateComparisonIsCalendarOrdered(t *testing.T) {
	entities := []domain.Entity{
		{ID: 1, Timespan: domain.Timespan{EndTo: "-0044-03-15"}},
		{ID: 2, Timespan: domain.Timespan{EndTo: "0476-09-04"}},
	}
	groups := []Group{{Category: EndTo, Clauses: []Clause{{Operator: LesserThanEqual, Values: Values{"0001-01-01"}}}}}
	out, err := Search(entities, groups, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(out))

	between := []Group{{Category: EndTo, Clauses: []Clause{
		{Operator: GreaterThanEqual, Values: Values{"0476-09-04"}},
		{Operator: LesserThan, Values: Values{"0500-01-01"}},
	}}}
	out, err = Search(entities, between, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids(out))
}

func TestGroupsAreOred(t *testing.T) {
	groups := []Group{
		{Category: EntityName, Clauses: []Clause{{Operator: Equal, Values: Values{"Asgard"}}}},
		{Category: EntitySystemClass, Clauses: []Clause{{Operator: Equal, Values: Values{"artifact"}}}},
	}
	out, err := Search(fixtures(), groups, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3, 4}, ids(out))
}

func TestLogicalOperators(t *testing.T) {
	e := []domain.Entity{{ID: 1, Types: []domain.TypeRef{{ID: 5, Name: "Red"}, {ID: 6, Name: "Round"}}}}

	cases := []struct {
		name    string
		op      Operator
		logical Logical
		values  Values
		want    bool
	}{
		{"equal or one hit", Equal, Or, Values{"Red", "Blue"}, true},
		{"equal and needs all", Equal, And, Values{"Red", "Blue"}, false},
		{"equal and all present", Equal, And, Values{"Red", "Round"}, true},
		{"not equal or", NotEqual, Or, Values{"Red", "Blue"}, false},
		{"not equal and", NotEqual, And, Values{"Red", "Blue"}, true},
		{"empty values under and", Equal, And, Values{}, true},
		{"empty values under or", Equal, Or, Values{}, false},
		{"not equal empty under and", NotEqual, And, Values{}, false},
		{"not equal empty under or", NotEqual, Or, Values{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := []Group{{Category: TypeName, Clauses: []Clause{{Operator: tc.op, Values: tc.values, LogicalOperator: tc.logical}}}}
			out, err := Search(e, groups, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, len(out) == 1)
		})
	}
}

func TestInvalidOperatorsFailWholeSearch(t *testing.T) {
	cases := []Group{
		{Category: EntityName, Clauses: []Clause{{Operator: "like", Values: Values{"x"}}}},
		{Category: EntityName, Clauses: []Clause{{Operator: GreaterThan, Values: Values{"x"}}}},
		{Category: EntityName, Clauses: []Clause{{Operator: Equal, Values: Values{"x"}, LogicalOperator: "xor"}}},
		{Category: "entityColour", Clauses: []Clause{{Operator: Equal, Values: Values{"x"}}}},
		{Category: BeginFrom, Clauses: []Clause{{Operator: Equal, Values: Values{"yesterday"}}}},
	}
	for _, g := range cases {
		_, err := Search(fixtures(), []Group{g}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidOperator, "%+v", g)
	}
}

func TestAliasesIDsAndClasses(t *testing.T) {
	out, err := Search(fixtures(), []Group{{Category: EntityAliases, Clauses: []Clause{{Operator: Equal, Values: Values{"USCSS Nostromo"}}}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(out))

	out, err = Search(fixtures(), []Group{{Category: EntityID, Clauses: []Clause{{Operator: Equal, Values: Values{"2", "3"}}}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3}, ids(out))

	out, err = Search(fixtures(), []Group{{Category: EntityCidocClass, Clauses: []Clause{{Operator: Equal, Values: Values{"E21"}}}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids(out))
}

func TestParseGroups(t *testing.T) {
	groups, err := ParseGroups([]string{
		`{"entityName":[{"operator":"equal","values":["Nostromos"],"logicalOperator":"or"}]}`,
		`[{"typeID":[{"operator":"equal","values":[12, 13]}]}]`,
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, EntityName, groups[0].Category)
	assert.Equal(t, TypeID, groups[1].Category)
	assert.Equal(t, Values{"12", "13"}, groups[1].Clauses[0].Values)

	_, err = ParseGroups([]string{`{"entityName":`})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("-0300-06-01")
	require.True(t, ok)
	assert.Equal(t, -300, d.Year())

	_, ok = ParseDate("1950-01-01 00:00:00")
	assert.True(t, ok)
	_, ok = ParseDate("2021-02-30")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}
