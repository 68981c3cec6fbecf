package application_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/culturalatlas/internal/adapters/db/gormdb"
	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/search"
)

type fixture struct {
	svc  *application.GraphService
	repo *gormdb.GraphRepository
	// type ids: place -> settlement -> town; license (system) -> cc-by
	placeType, settlement, town uint
	license, ccBy               uint
	height                      uint
}

func newFixture(t *testing.T, opts ...application.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := gormdb.OpenSQLite(filepath.Join(t.TempDir(), "atlas_test.db"))
	require.NoError(t, err)
	require.NoError(t, gormdb.RunMigrations(ctx, db))
	repo := gormdb.NewGraphRepository(db)

	f := &fixture{svc: application.NewGraphService(repo, opts...), repo: repo}
	mkType := func(name string, parent uint) uint {
		e, err := repo.InsertEntity(ctx, domain.Entity{Class: domain.ClassType, Name: name})
		require.NoError(t, err)
		if parent != 0 {
			_, err := repo.InsertLink(ctx, domain.Link{Property: "P127", Domain: domain.EntityRef{ID: e.ID}, Range: domain.EntityRef{ID: parent}})
			require.NoError(t, err)
		}
		return e.ID
	}
	f.placeType = mkType("Place", 0)
	f.settlement = mkType("Settlement", f.placeType)
	f.town = mkType("Town", f.settlement)
	f.license = mkType("License", 0)
	f.ccBy = mkType("CC BY 4.0", f.license)
	f.height = mkType("Height", 0)
	require.NoError(t, repo.UpsertHierarchy(ctx, domain.Hierarchy{TypeID: f.placeType, Category: domain.CategoryStandard}))
	require.NoError(t, repo.UpsertHierarchy(ctx, domain.Hierarchy{TypeID: f.license, Category: domain.CategorySystem}))
	require.NoError(t, repo.UpsertHierarchy(ctx, domain.Hierarchy{TypeID: f.height, Category: domain.CategoryValue}))
	return f
}

func (f *fixture) save(t *testing.T, in application.SaveInput) domain.Entity {
	t.Helper()
	e, err := f.svc.SaveEntity(context.Background(), f.svc.NewScope(), in)
	require.NoError(t, err)
	return e
}

func countClass(t *testing.T, f *fixture, classes ...domain.SystemClass) int {
	t.Helper()
	items, err := f.repo.ListEntitiesByClass(context.Background(), classes, 0)
	require.NoError(t, err)
	return len(items)
}

func TestBuildEntityNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BuildEntity(context.Background(), 4242, application.Full)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBuildEntitiesFollowsRequestOrder(t *testing.T) {
	f := newFixture(t)
	a := f.save(t, application.SaveInput{Class: domain.ClassPerson, Name: "Ripley", Aliases: []string{"Ellen"}})
	b := f.save(t, application.SaveInput{Class: domain.ClassPerson, Name: "Dallas"})

	items, err := f.svc.BuildEntities(context.Background(), []uint{b.ID, 999, a.ID, b.ID}, application.Augment{Aliases: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
	assert.Equal(t, []string{"Ellen"}, items[1].AliasNames())
	assert.Empty(t, items[1].Types)
}

func TestSavePlaceCreatesLocationAliasesAndTypes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	place := f.save(t, application.SaveInput{
		Class:      domain.ClassPlace,
		Name:       "Thebes",
		BeginFrom:  "-3200-01-01",
		Aliases:    []string{"Waset", "Waset", " "},
		Types:      []application.TypeInput{{ID: f.town}, {ID: f.height, Value: "12.5"}},
		Geometries: []application.GeometryInput{{GeoJSON: json.RawMessage(`{"type":"Point","coordinates":[32.6,25.7]}`)}},
	})
	assert.Equal(t, []string{"Waset"}, place.AliasNames())
	require.Len(t, place.Types, 2)

	location, err := f.svc.GetLinkedEntitySafe(ctx, place.ID, "P53", false)
	require.NoError(t, err)
	assert.Equal(t, "Location of Thebes", location.Name)
	assert.Equal(t, domain.ClassObjectLocation, location.Class)

	geoms, err := f.svc.LocationGeometries(ctx, []uint{place.ID})
	require.NoError(t, err)
	require.Len(t, geoms[place.ID], 1)
	assert.Equal(t, "point", geoms[place.ID][0].Shape)

	updated := f.save(t, application.SaveInput{
		ID:      place.ID,
		Name:    "Thebes",
		Aliases: []string{"Luxor"},
		Types:   []application.TypeInput{{ID: f.settlement}},
	})
	assert.Equal(t, []string{"Luxor"}, updated.AliasNames())
	require.Len(t, updated.Types, 1)
	assert.Equal(t, f.settlement, updated.Types[0].ID)
	assert.Equal(t, 1, countClass(t, f, domain.ClassAppellation))

	geoms, err = f.svc.LocationGeometries(ctx, []uint{place.ID})
	require.NoError(t, err)
	assert.Len(t, geoms[place.ID], 1, "nil geometries keep stored ones")

	logs, err := f.svc.ListLogs(ctx, place.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "update", logs[0].Action)
}

func TestSaveReplacesManagedLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	home := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Hadley's Hope"})
	other := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Gateway"})
	crew := f.save(t, application.SaveInput{Class: domain.ClassGroup, Name: "Colonial Marines"})

	actor := f.save(t, application.SaveInput{
		Class: domain.ClassPerson,
		Name:  "Newt",
		Links: []application.LinkInput{
			{Property: "p74", TargetID: home.ID, ViaLocation: true},
			{Property: "P107", TargetID: crew.ID, Inverse: true},
		},
	})
	residence, err := f.svc.GetLinkedEntity(ctx, actor.ID, "P74", false)
	require.NoError(t, err)
	require.NotNil(t, residence)
	assert.Equal(t, "Location of Hadley's Hope", residence.Name)

	f.save(t, application.SaveInput{
		ID:    actor.ID,
		Name:  "Newt",
		Links: []application.LinkInput{{Property: "P74", TargetID: other.ID, ViaLocation: true}},
	})
	links, err := f.svc.GetLinks(ctx, []uint{actor.ID}, []string{"P74"}, false)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Location of Gateway", links[0].Range.Name)

	members, err := f.svc.GetLinks(ctx, []uint{actor.ID}, []string{"P107"}, true)
	require.NoError(t, err)
	require.Len(t, members, 1, "unmanaged links survive an update")
	assert.Equal(t, crew.ID, members[0].Domain.ID)
}

func TestSaveRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := f.save(t, application.SaveInput{Class: domain.ClassPerson, Name: "Bishop"})
	before := countClass(t, f, domain.ClassActivity, domain.ClassAppellation)

	_, err := f.svc.SaveEntity(ctx, f.svc.NewScope(), application.SaveInput{
		Class:   domain.ClassActivity,
		Name:    "Evacuation",
		Aliases: []string{"Exodus"},
		Links: []application.LinkInput{
			{Property: "P11", TargetID: target.ID},
			{Property: "P11", TargetID: 987654},
			{Property: "P14", TargetID: target.ID},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransactionFailed))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Equal(t, before, countClass(t, f, domain.ClassActivity, domain.ClassAppellation))
	links, err := f.svc.GetLinks(ctx, []uint{target.ID}, nil, true)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestSaveRejectsInvalidGeometry(t *testing.T) {
	f := newFixture(t)
	before := countClass(t, f, domain.ClassPlace, domain.ClassObjectLocation)

	_, err := f.svc.SaveEntity(context.Background(), f.svc.NewScope(), application.SaveInput{
		Class:      domain.ClassPlace,
		Name:       "Nowhere",
		Geometries: []application.GeometryInput{{GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1]]]}`)}},
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidGeometry))
	assert.True(t, errors.Is(err, domain.ErrTransactionFailed))
	assert.Equal(t, before, countClass(t, f, domain.ClassPlace, domain.ClassObjectLocation))
}

func TestSaveValidatesTypes(t *testing.T) {
	f := newFixture(t)
	scope := f.svc.NewScope()
	ctx := context.Background()

	_, err := f.svc.SaveEntity(ctx, scope, application.SaveInput{Class: domain.ClassPlace, Name: "X", Types: []application.TypeInput{{ID: f.town}, {ID: f.settlement}}})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "single choice hierarchy")

	_, err = f.svc.SaveEntity(ctx, scope, application.SaveInput{Class: domain.ClassPlace, Name: "X", Types: []application.TypeInput{{ID: f.height, Value: "tall"}}})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "value types need numbers")

	_, err = f.svc.SaveEntity(ctx, scope, application.SaveInput{Class: domain.ClassPlace, Name: "X", Types: []application.TypeInput{{ID: 5555}}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.SaveEntity(ctx, scope, application.SaveInput{Class: domain.ClassPlace, Name: "  "})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestLinkedEntityNoneVersusSafe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	person := f.save(t, application.SaveInput{Class: domain.ClassPerson, Name: "Hicks"})

	e, err := f.svc.GetLinkedEntity(ctx, person.ID, "P74", false)
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = f.svc.GetLinkedEntitySafe(ctx, person.ID, "P74", false)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLinkedEntityTakesLowestLinkID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	person := f.save(t, application.SaveInput{Class: domain.ClassPerson, Name: "Vasquez"})
	first := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "LV-426"})
	second := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Earth"})
	for _, target := range []uint{first.ID, second.ID} {
		_, err := f.repo.InsertLink(ctx, domain.Link{Property: "P74", Domain: domain.EntityRef{ID: person.ID}, Range: domain.EntityRef{ID: target}})
		require.NoError(t, err)
	}

	e, err := f.svc.GetLinkedEntity(ctx, person.ID, " p74", false)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, first.ID, e.ID)

	safe, err := f.svc.GetLinkedEntitySafe(ctx, person.ID, "P74", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, safe.ID)

	_, err = f.svc.GetLinkedEntity(ctx, person.ID, "P999", false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.svc.GetLinkedEntitySafe(ctx, person.ID, "", false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSaveRejectsFieldManagedLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	place := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Acheron"})
	before := countClass(t, f, domain.ClassType, domain.ClassPlace)

	cases := []struct {
		class  domain.SystemClass
		code   string
		target uint
	}{
		{domain.ClassPerson, "P1", place.ID},
		{domain.ClassPerson, "p2", f.town},
		{domain.ClassPlace, "P53", place.ID},
		{domain.ClassType, "P127", f.settlement},
	}
	for _, tc := range cases {
		_, err := f.svc.SaveEntity(ctx, f.svc.NewScope(), application.SaveInput{
			Class: tc.class,
			Name:  "Rejected",
			Links: []application.LinkInput{{Property: tc.code, TargetID: tc.target}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, tc.code)
	}
	assert.Equal(t, before, countClass(t, f, domain.ClassType, domain.ClassPlace))

	_, err := f.svc.SaveEntity(ctx, f.svc.NewScope(), application.SaveInput{
		ID:    f.settlement,
		Name:  "Settlement",
		Links: []application.LinkInput{{Property: "P127", TargetID: f.town}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	root, err := f.svc.NewScope().RootOf(ctx, f.settlement)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.placeType}, root)
}

func TestSaveTypeBelowSuper(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	village := f.save(t, application.SaveInput{Class: domain.ClassType, Name: "Village", ParentID: f.settlement})
	scope := f.svc.NewScope()
	root, err := scope.RootOf(ctx, village.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.settlement, f.placeType}, root)
	subs, err := scope.SubIDsOf(ctx, f.settlement)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.town, village.ID}, subs)

	_, err = f.svc.SaveEntity(ctx, f.svc.NewScope(), application.SaveInput{Class: domain.ClassType, Name: "Orphan", ParentID: 9999})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.SaveEntity(ctx, f.svc.NewScope(), application.SaveInput{Class: domain.ClassPerson, Name: "Burke", ParentID: f.settlement})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	update := func(id uint, name string, parent uint) error {
		_, err := f.svc.SaveEntity(ctx, f.svc.NewScope(), application.SaveInput{ID: id, Name: name, ParentID: parent})
		return err
	}
	assert.ErrorIs(t, update(f.settlement, "Settlement", f.settlement), domain.ErrTypeSelfParent)
	assert.ErrorIs(t, update(f.settlement, "Settlement", f.town), domain.ErrTypeCycle)
	assert.ErrorIs(t, update(village.ID, "Village", f.license), domain.ErrInvalidArgument)
	assert.NoError(t, update(f.ccBy, "CC BY 4.0", f.license), "an unchanged super is not a move")

	require.NoError(t, update(village.ID, "Village", f.placeType))
	require.NoError(t, update(village.ID, "Hamlet", f.placeType))
	scope = f.svc.NewScope()
	root, err = scope.RootOf(ctx, village.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.placeType}, root)
	root, err = scope.RootOf(ctx, f.settlement)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.placeType}, root)

	links, err := f.svc.GetLinks(ctx, []uint{village.ID}, []string{"P127"}, false)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestSaveUpdatesRepeatedLinksInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	crew := f.save(t, application.SaveInput{Class: domain.ClassGroup, Name: "Colonial Marines"})
	in := application.SaveInput{
		Class: domain.ClassPerson,
		Name:  "Apone",
		Links: []application.LinkInput{{Property: "P107", TargetID: crew.ID, Inverse: true, Description: "private"}},
	}
	actor := f.save(t, in)

	in.ID = actor.ID
	in.Links[0].Description = "sergeant"
	f.save(t, in)
	f.save(t, in)

	members, err := f.svc.GetLinks(ctx, []uint{actor.ID}, []string{"P107"}, true)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "sergeant", members[0].Description)
}

func TestTypeQueriesAndReparent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.svc.NewScope()

	subs, err := scope.SubIDsOf(ctx, f.placeType)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.settlement, f.town}, subs)

	root, err := scope.RootOf(ctx, f.town)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.settlement, f.placeType}, root)

	assert.ErrorIs(t, f.svc.ReparentType(ctx, scope, f.settlement, f.settlement), domain.ErrTypeSelfParent)
	assert.ErrorIs(t, f.svc.ReparentType(ctx, scope, f.settlement, f.town), domain.ErrTypeCycle)
	assert.ErrorIs(t, f.svc.ReparentType(ctx, scope, f.ccBy, f.license), domain.ErrReadOnlyType)
	assert.ErrorIs(t, f.svc.ReparentType(ctx, scope, f.placeType, f.town), domain.ErrReadOnlyType)

	require.NoError(t, f.svc.ReparentType(ctx, scope, f.town, f.placeType))
	root, err = scope.RootOf(ctx, f.town)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.placeType}, root)

	_, err = scope.SubIDsOf(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteEntity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := f.svc.NewScope()

	assert.ErrorIs(t, f.svc.DeleteEntity(ctx, scope, f.settlement), domain.ErrTypeInUse)

	place := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Sulaco", Aliases: []string{"Ship"}, Types: []application.TypeInput{{ID: f.town}}})
	assert.ErrorIs(t, f.svc.DeleteEntity(ctx, f.svc.NewScope(), f.town), domain.ErrTypeInUse)

	require.NoError(t, f.svc.DeleteEntity(ctx, scope, place.ID))
	assert.Equal(t, 0, countClass(t, f, domain.ClassPlace, domain.ClassObjectLocation, domain.ClassAppellation))
	assert.ErrorIs(t, f.svc.DeleteEntity(ctx, scope, place.ID), domain.ErrNotFound)

	require.NoError(t, f.svc.DeleteEntity(ctx, f.svc.NewScope(), f.town))
}

func TestQueryEntitiesSearchesWithSubTypes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	town := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Karnak", Types: []application.TypeInput{{ID: f.town}}})
	f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Desert"})
	f.save(t, application.SaveInput{Class: domain.ClassPerson, Name: "Hatshepsut"})

	groups := []search.Group{{
		Category: search.TypeIDWithSubs,
		Clauses:  []search.Clause{{Operator: search.Equal, Values: search.Values{formatUint(f.placeType)}}},
	}}

	items, err := f.svc.QueryEntities(ctx, f.svc.NewScope(), application.Query{View: domain.ViewPlace, Groups: groups})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, town.ID, items[0].ID)

	all, err := f.svc.QueryEntities(ctx, f.svc.NewScope(), application.Query{Classes: []domain.SystemClass{domain.ClassPlace, domain.ClassPerson}, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.QueryEntities(ctx, f.svc.NewScope(), application.Query{View: "spaceship"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTraverseValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Traverse(ctx, domain.TraverseQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.svc.Traverse(ctx, domain.TraverseQuery{StartEntityID: 77})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	place := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Giza"})
	_, err = f.svc.Traverse(ctx, domain.TraverseQuery{StartEntityID: place.ID, Properties: []string{"X1"}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	hops, err := f.svc.Traverse(ctx, domain.TraverseQuery{StartEntityID: place.ID, Properties: []string{"p53"}})
	require.NoError(t, err)
	require.Len(t, hops, 1)
	assert.Equal(t, "Location of Giza", hops[0].ToName)
}

type memoryFiles struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failOn  int
	saveCnt int
}

func (m *memoryFiles) Save(_ context.Context, key string, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCnt++
	if m.saveCnt == m.failOn {
		return errors.New("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.blobs[key] = b
	return nil
}

func (m *memoryFiles) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memoryFiles) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func TestInsertFilesLinksAndStores(t *testing.T) {
	ctx := context.Background()
	files := &memoryFiles{blobs: map[string][]byte{}}
	f := newFixture(t, application.WithFileStore(files))
	place := f.save(t, application.SaveInput{Class: domain.ClassPlace, Name: "Abydos"})

	ids, err := f.svc.InsertFiles(ctx, []application.FileUpload{{Filename: "Plan.PNG", Content: strings.NewReader("png")}}, place.ID)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Contains(t, files.blobs, formatUint(ids[0])+".png")

	rc, e, err := f.svc.OpenFile(ctx, ids[0])
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "png", string(body))
	assert.Equal(t, "Plan.PNG", e.Name)

	refs, err := f.svc.GetLinks(ctx, []uint{place.ID}, []string{"P67"}, true)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ids[0], refs[0].Domain.ID)

	require.NoError(t, f.svc.DeleteEntity(ctx, f.svc.NewScope(), ids[0]))
	assert.Empty(t, files.blobs)
}

func TestInsertFilesCleansUpOnFailure(t *testing.T) {
	ctx := context.Background()
	files := &memoryFiles{blobs: map[string][]byte{}, failOn: 2}
	f := newFixture(t, application.WithFileStore(files))

	_, err := f.svc.InsertFiles(ctx, []application.FileUpload{
		{Filename: "a.txt", Content: strings.NewReader("a")},
		{Filename: "b.txt", Content: strings.NewReader("b")},
	}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.Empty(t, files.blobs)
	assert.Equal(t, 0, countClass(t, f, domain.ClassFile))
}

func formatUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
