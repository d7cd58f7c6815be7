package trace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/resolve"
	"github.com/aidanlsb/skycat/internal/testutil"
)

func TestTraceEverythingReachable(t *testing.T) {
	a := &model.Imageset{URL: "https://example.org/a/", AltURL: "https://example.org/a-alt/"}
	b := &model.Imageset{URL: "https://example.org/b/"}
	c := &model.Imageset{URL: "https://example.org/c/"}
	p := &model.Place{Name: "P", RA: model.Float(1), Dec: model.Float(1), BackgroundURL: b.URL}

	ts := testutil.NewTestStore(t).WithImageset(a).WithImageset(b).WithImageset(c).WithPlace(p)
	ts.WithTemplate(&model.FolderTemplate{Catalog: "exploreroot6", Standalone: true, FolderSpec: model.FolderSpec{
		Children: []model.Child{
			model.ImagesetRef("https://example.org/a-alt/"),
			model.InlineFolder(&model.FolderSpec{FolderAttrs: model.FolderAttrs{Name: "Link", URL: resolve.DefaultCatalogURL + "?W=linked"}}),
		},
	}})
	ts.WithTemplate(&model.FolderTemplate{Catalog: "linked", Standalone: true, FolderSpec: model.FolderSpec{
		Children: []model.Child{model.PlaceRef(p.ID), model.CatalogRef("exploreroot6")},
	}})
	ts.WithTemplate(&model.FolderTemplate{Catalog: "imagesets6", Standalone: true, FolderSpec: model.FolderSpec{
		Children: []model.Child{model.InlineFolder(&model.FolderSpec{Children: []model.Child{model.ImagesetRef(c.URL)}})},
	}})

	res := Trace(ts.Open(), Options{Roots: []string{"exploreroot6", "imagesets6"}})
	assert.True(t, res.Clean())
	assert.Equal(t, 3, res.Stored)
	assert.Equal(t, 3, res.Reachable)
	assert.Empty(t, res.Unreachable)
}

func TestTraceReportsUnreachableAndDiagnostics(t *testing.T) {
	used := &model.Imageset{URL: "https://example.org/used/"}
	orphan := &model.Imageset{URL: "https://example.org/orphan/", Name: "Orphan"}
	kept := &model.Imageset{URL: "https://example.org/kept/"}
	lonely := &model.Place{Name: "Lonely", RA: model.Float(2), Dec: model.Float(2), ImagesetURL: orphan.URL}

	ts := testutil.NewTestStore(t).WithImageset(used).WithImageset(orphan).WithImageset(kept).WithPlace(lonely).
		WithQuarantined(&model.Imageset{URL: "https://example.org/bad/"}, "broken tiles")
	ts.WithTemplate(&model.FolderTemplate{Catalog: "root", FolderSpec: model.FolderSpec{
		Children: []model.Child{
			model.ImagesetRef(used.URL),
			model.ImagesetRef("https://example.org/bad/"),
			model.PlaceRef("00000000-0000-4000-8000-000000000000"),
			model.CatalogRef("gone"),
		},
	}})

	res := Trace(ts.Open(), Options{
		Roots: []string{"root", "missing"},
		Allow: []string{kept.URL, "https://example.org/stale/"},
	})

	assert.False(t, res.Clean())
	assert.Equal(t, 3, res.Stored)
	assert.Equal(t, 1, res.Reachable)
	assert.Equal(t, []Unreachable{{URL: orphan.URL, Name: "Orphan", Places: []string{lonely.ID}}}, res.Unreachable)
	assert.Equal(t, []string{kept.URL}, res.Allowed)
	assert.Equal(t, []string{"https://example.org/stale/"}, res.StaleAllow)
	assert.Equal(t, []string{"missing"}, res.MissingRoots)

	require.Len(t, res.Dangling, 3)
	assert.Equal(t, Dangling{Catalog: "root", Kind: "imageset", Ref: "https://example.org/bad/"}, res.Dangling[0])
	assert.Equal(t, "place", res.Dangling[1].Kind)
	assert.Equal(t, "catalog", res.Dangling[2].Kind)
	assert.True(t, errors.Is(res.Dangling[2].Err(), model.ErrDanglingReference))
}
