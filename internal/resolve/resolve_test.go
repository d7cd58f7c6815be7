package resolve

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/skycat/internal/metrics"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/testutil"
	"github.com/aidanlsb/skycat/internal/wtml"
)

func fixture(t *testing.T) *store.Store {
	t.Helper()
	fg := &model.Imageset{URL: "https://example.org/m51/", Name: "M51 Hubble", DataSetType: model.DataSetSky, BandPass: "Visible"}
	dss := &model.Imageset{URL: "https://example.org/dss/", AltURL: "https://mirror.example.org/dss/", Name: "DSS", DataSetType: model.DataSetSky}
	m51 := &model.Place{Name: "M51", DataSetType: model.DataSetSky, RA: model.Float(13.49), Dec: model.Float(47.19), ForegroundURL: fg.URL}

	ts := testutil.NewTestStore(t).
		WithImageset(fg).
		WithImageset(dss).
		WithPlace(m51)

	ts.WithTemplate(&model.FolderTemplate{
		Catalog:    "explore",
		Standalone: true,
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Explore"},
			Children: []model.Child{
				model.PlaceRef(m51.ID),
				model.CatalogRef("surveys"),
				model.CatalogRef("galaxies"),
				model.InlineFolder(&model.FolderSpec{FolderAttrs: model.FolderAttrs{
					Name: "Galaxies again",
					URL:  DefaultCatalogURL + "?W=galaxies",
				}}),
				model.InlineFolder(&model.FolderSpec{FolderAttrs: model.FolderAttrs{
					Name: "Elsewhere",
					URL:  "https://other.example.org/tours.wtml",
				}}),
			},
		},
	})
	ts.WithTemplate(&model.FolderTemplate{
		Catalog: "surveys",
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Surveys"},
			Children:    []model.Child{model.ImagesetRef("https://mirror.example.org/dss/")},
		},
	})
	ts.WithTemplate(&model.FolderTemplate{
		Catalog:    "galaxies",
		Standalone: true,
		IsXML:      true,
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Galaxies"},
			Children:    []model.Child{model.PlaceRef(m51.ID)},
		},
	})
	return ts.Open()
}

func TestResolveAbsolute(t *testing.T) {
	r := New(fixture(t), Options{})

	f, err := r.Resolve("explore", Absolute)
	require.NoError(t, err)
	assert.Equal(t, "Explore", f.Attrs.Name)
	require.Len(t, f.Children, 5)

	pl := f.Children[0].(*wtml.Place)
	assert.Equal(t, "M51", pl.Place.Name)
	require.NotNil(t, pl.Foreground)
	assert.Equal(t, "M51 Hubble", pl.Foreground.Name)

	surveys := f.Children[1].(*wtml.Folder)
	assert.Equal(t, "Surveys", surveys.Attrs.Name)
	require.Len(t, surveys.Children, 1)
	assert.Equal(t, "https://example.org/dss/", surveys.Children[0].(*wtml.Imageset).URL)

	galaxies := f.Children[2].(*wtml.Folder)
	assert.True(t, galaxies.IsLink())
	assert.Equal(t, DefaultCatalogURL+"?X=galaxies", galaxies.Attrs.URL)

	again := f.Children[3].(*wtml.Folder)
	assert.Equal(t, DefaultCatalogURL+"?X=galaxies", again.Attrs.URL)

	other := f.Children[4].(*wtml.Folder)
	assert.Equal(t, "https://other.example.org/tours.wtml", other.Attrs.URL)
}

func TestPreviewDiffersOnlyInLinks(t *testing.T) {
	r := New(fixture(t), Options{})

	abs, err := r.Resolve("explore", Absolute)
	require.NoError(t, err)
	rel, err := r.Resolve("explore", Preview)
	require.NoError(t, err)

	assert.Equal(t, "./galaxies_rel.xml", rel.Children[2].(*wtml.Folder).Attrs.URL)
	assert.Equal(t, "./galaxies_rel.xml", rel.Children[3].(*wtml.Folder).Attrs.URL)

	// Normalize the link URLs and the trees must be identical.
	for _, i := range []int{2, 3} {
		rel.Children[i].(*wtml.Folder).Attrs.URL = abs.Children[i].(*wtml.Folder).Attrs.URL
	}
	assert.Equal(t, abs, rel)
}

func TestResolveDoesNotAliasStore(t *testing.T) {
	st := fixture(t)
	r := New(st, Options{})

	f, err := r.Resolve("explore", Absolute)
	require.NoError(t, err)
	f.Children[0].(*wtml.Place).Foreground.Name = "changed"

	im, ok := st.Imageset("https://example.org/m51/")
	require.True(t, ok)
	assert.Equal(t, "M51 Hubble", im.Name)
}

func TestResolveDanglingReference(t *testing.T) {
	tests := []struct {
		name  string
		child model.Child
		kind  model.ChildKind
	}{
		{"imageset", model.ImagesetRef("https://example.org/missing/"), model.ChildImageset},
		{"place", model.PlaceRef("00000000-0000-4000-8000-000000000000"), model.ChildPlace},
		{"catalog", model.CatalogRef("nowhere"), model.ChildCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testutil.NewTestStore(t).
				WithTemplate(&model.FolderTemplate{
					Catalog:    "root",
					Standalone: true,
					FolderSpec: model.FolderSpec{Children: []model.Child{
						model.InlineFolder(&model.FolderSpec{Children: []model.Child{tt.child}}),
					}},
				}).
				Open()

			_, err := New(st, Options{}).Resolve("root", Absolute)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrDanglingReference))

			var de *model.DanglingReferenceError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "root", de.Catalog)
			assert.Equal(t, tt.kind, de.Kind)
			assert.Equal(t, tt.child.Ref, de.Ref)
		})
	}
}

func TestResolvePlaceWithMissingImagery(t *testing.T) {
	st := testutil.NewTestStore(t).
		WithPlace(&model.Place{ID: "6ba7b810-9dad-41d1-80b4-00c04fd430c8", Name: "X", RA: model.Float(1), Dec: model.Float(2), ImagesetURL: "https://example.org/gone/"}).
		WithTemplate(&model.FolderTemplate{
			Catalog:    "root",
			FolderSpec: model.FolderSpec{Children: []model.Child{model.PlaceRef("6ba7b810-9dad-41d1-80b4-00c04fd430c8")}},
		}).
		Open()

	_, err := New(st, Options{}).Resolve("root", Absolute)
	var de *model.DanglingReferenceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, model.ChildImageset, de.Kind)
	assert.Equal(t, "https://example.org/gone/", de.Ref)
}

func TestResolveCycle(t *testing.T) {
	st := testutil.NewTestStore(t).
		WithTemplate(&model.FolderTemplate{Catalog: "a", Standalone: true, FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("b")}}}).
		WithTemplate(&model.FolderTemplate{Catalog: "b", FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("c")}}}).
		WithTemplate(&model.FolderTemplate{Catalog: "c", FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("b")}}}).
		Open()

	_, err := New(st, Options{}).Resolve("a", Absolute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrCyclicReference))

	var ce *model.CyclicReferenceError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"b", "c", "b"}, ce.Chain)
}

func TestStandaloneSelfReferenceIsALink(t *testing.T) {
	st := testutil.NewTestStore(t).
		WithTemplate(&model.FolderTemplate{Catalog: "loop", Standalone: true, FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("loop")}}}).
		Open()

	f, err := New(st, Options{}).Resolve("loop", Preview)
	require.NoError(t, err)
	require.Len(t, f.Children, 1)
	assert.Equal(t, "./loop_rel.wtml", f.Children[0].(*wtml.Folder).Attrs.URL)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Preview")
	require.NoError(t, err)
	assert.Equal(t, Preview, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Absolute, m)

	_, err = ParseMode("relative")
	assert.Error(t, err)
}

func TestEmit(t *testing.T) {
	run := metrics.New()
	r := New(fixture(t), Options{Metrics: run})
	out := memfs.New()

	emitted, err := r.Emit(out, nil, Preview)
	require.NoError(t, err)
	require.Len(t, emitted, 2)
	assert.Equal(t, "explore_rel.wtml", emitted[0].File)
	assert.Equal(t, "galaxies_rel.xml", emitted[1].File)
	assert.Equal(t, 2.0, promtest.ToFloat64(run.CatalogsEmitted.WithLabelValues("preview")))

	data, err := util.ReadFile(out, "explore_rel.wtml")
	require.NoError(t, err)
	doc, err := wtml.Unmarshal(data, "explore_rel.wtml")
	require.NoError(t, err)
	assert.Equal(t, "Explore", doc.Attrs.Name)
}

func TestEmitWritesNothingOnFailure(t *testing.T) {
	st := testutil.NewTestStore(t).
		WithTemplate(&model.FolderTemplate{Catalog: "good", Standalone: true}).
		WithTemplate(&model.FolderTemplate{Catalog: "bad", Standalone: true, FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("missing")}}}).
		Open()
	out := memfs.New()

	_, err := New(st, Options{}).Emit(out, []string{"good", "bad"}, Absolute)
	require.Error(t, err)

	_, err = out.Stat("good.wtml")
	assert.Error(t, err)
}

func TestCheckCollectsEveryProblem(t *testing.T) {
	st := testutil.NewTestStore(t).
		WithTemplate(&model.FolderTemplate{Catalog: "one", Standalone: true, FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("x")}}}).
		WithTemplate(&model.FolderTemplate{Catalog: "two", Standalone: true, FolderSpec: model.FolderSpec{Children: []model.Child{model.CatalogRef("y")}}}).
		WithTemplate(&model.FolderTemplate{Catalog: "three", Standalone: true}).
		Open()

	problems := New(st, Options{}).Check()
	require.Len(t, problems, 2)
	assert.Equal(t, "one", problems[0].Catalog)
	assert.Equal(t, "two", problems[1].Catalog)
	assert.True(t, errors.Is(Err(problems), model.ErrDanglingReference))
}
