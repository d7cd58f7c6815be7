package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/testutil"
)

func m51() *model.Imageset {
	return &model.Imageset{
		URL:         "https://example.org/hst/m51/{1}/{3}/{2}.png",
		Name:        "M51",
		DataSetType: "Sky",
		BandPass:    "Visible",
		Projection:  "Tan",
		Credits:     "NASA/ESA",
	}
}

func TestLoadRoundTrip(t *testing.T) {
	place := &model.Place{Name: "Whirlpool", RA: model.Float(13.5), Dec: model.Float(47.2), ForegroundURL: m51().URL}
	ts := testutil.NewTestStore(t).
		WithImageset(m51()).
		WithPlace(place).
		WithTemplate(&model.FolderTemplate{
			Catalog:    "t1",
			FolderSpec: model.FolderSpec{Children: []model.Child{model.PlaceRef(place.ID)}},
		})

	s := ts.Open()

	im, ok := s.Imageset(m51().URL)
	require.True(t, ok)
	assert.True(t, im.Equal(m51()))

	p, ok := s.Place(place.ID)
	require.True(t, ok)
	assert.Equal(t, "Whirlpool", p.Name)

	tmpl, ok := s.Template("t1")
	require.True(t, ok)
	assert.Equal(t, "t1", tmpl.Catalog)
	assert.Equal(t, []model.Child{model.PlaceRef(place.ID)}, tmpl.Children)

	path, ok := s.PathOf(model.ChildPlace, place.ID)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("places", "sky_ra13", place.ID+".yml"), path)
}

func TestLoadIgnoresHiddenFiles(t *testing.T) {
	ts := testutil.NewTestStore(t).
		WithImageset(m51()).
		WithFile(filepath.Join("imagesets", "sky_visible", ".half-written.yml.tmp-123"), "url: [").
		WithFile(filepath.Join("places", ".trash", "x.yml"), "garbage: [")

	s := ts.Open()
	assert.Len(t, s.Imagesets(), 1)
}

func TestLoadFailures(t *testing.T) {
	misplaced := m51()
	misplaced.BandPass = "Radio"
	ok := testutil.NewTestStore(t).WithImageset(misplaced)
	radioFile := canon.ImagesetLocation(misplaced).Path()
	radioContent := ok.ReadFile(radioFile)

	tests := []struct {
		name   string
		setup  func(ts *testutil.TestStore)
		target error
	}{
		{
			name: "unparseable record",
			setup: func(ts *testutil.TestStore) {
				ts.WithFile(filepath.Join("imagesets", "sky", "bad.yml"), "url: [unclosed\n")
			},
			target: model.ErrParse,
		},
		{
			name: "unknown field",
			setup: func(ts *testutil.TestStore) {
				ts.WithFile(filepath.Join("imagesets", "sky", "bad.yml"), "url: u\nnmae: typo\n")
			},
			target: model.ErrParse,
		},
		{
			name: "misplaced imageset",
			setup: func(ts *testutil.TestStore) {
				ts.WithFile(filepath.Join("imagesets", "sky_visible", filepath.Base(radioFile)), radioContent)
			},
			target: model.ErrStoreCorrupt,
		},
		{
			name: "duplicate url in two buckets",
			setup: func(ts *testutil.TestStore) {
				ts.WithImageset(misplaced)
				ts.WithFile(filepath.Join("imagesets", "sky_visible", "dup.yml"), radioContent)
			},
			target: model.ErrStoreCorrupt,
		},
		{
			name: "duplicate url across quarantine",
			setup: func(ts *testutil.TestStore) {
				ts.WithImageset(misplaced)
				ts.WithFile(canon.QuarantineLocation(misplaced).Path(), radioContent+"reason: broken tiles\n")
			},
			target: model.ErrStoreCorrupt,
		},
		{
			name: "quarantine without reason",
			setup: func(ts *testutil.TestStore) {
				ts.WithFile(canon.QuarantineLocation(misplaced).Path(), radioContent)
			},
			target: model.ErrStoreCorrupt,
		},
		{
			name: "place id not generated",
			setup: func(ts *testutil.TestStore) {
				ts.WithFile(filepath.Join("places", "sky", "my-place.yml"), "id: my-place\nname: x\n")
			},
			target: model.ErrStoreCorrupt,
		},
		{
			name: "invalid catalog name",
			setup: func(ts *testutil.TestStore) {
				ts.WithFile(filepath.Join("catfiles", "bad name.yml"), "name: x\n")
			},
			target: model.ErrStoreCorrupt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testutil.NewTestStore(t)
			tt.setup(ts)

			_, err := store.Open(ts.FS, ts.Options())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestLoadErrorsNameTheFile(t *testing.T) {
	ts := testutil.NewTestStore(t).
		WithFile(filepath.Join("places", "sky", "dup-a.yml"), "id: 0f8fad5b-d9cb-469f-a165-70867728950e\n").
		WithFile(filepath.Join("places", "sky", "dup-b.yml"), "id: 0f8fad5b-d9cb-469f-a165-70867728950e\n")

	opts := ts.Options()
	opts.AllowMisplaced = true
	_, err := store.Open(ts.FS, opts)

	var corrupt *model.StoreCorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", corrupt.Key)
	assert.Contains(t, corrupt.Error(), "dup-")
}

func TestSaveImagesetMovesOnClassifyingChange(t *testing.T) {
	ts := testutil.NewTestStore(t).WithImageset(m51())
	s := ts.Open()
	before := canon.ImagesetLocation(m51()).Path()

	im, _ := s.Imageset(m51().URL)
	updated := im.Clone()
	updated.BandPass = "IR"
	require.NoError(t, s.SaveImageset(updated))

	ts.AssertFileNotExists(before)
	ts.AssertFileExists(canon.ImagesetLocation(updated).Path())
	ts.AssertFileContains(canon.ImagesetLocation(updated).Path(), "band_pass: IR")

	reloaded := ts.Open()
	got, ok := reloaded.Imageset(m51().URL)
	require.True(t, ok)
	assert.Equal(t, "IR", got.BandPass)
}

func TestSavePlaceKeepsIdentity(t *testing.T) {
	ts := testutil.NewTestStore(t)
	s := ts.Open()

	p := &model.Place{Name: "Test", RA: model.Float(10), Dec: model.Float(20)}
	require.NoError(t, s.SavePlace(p))
	require.True(t, model.ValidPlaceID(p.ID))
	id := p.ID

	moved := p.Clone()
	moved.RA = model.Float(11.5)
	require.NoError(t, s.SavePlace(moved))

	assert.Equal(t, id, moved.ID)
	ts.AssertFileNotExists(filepath.Join("places", "sky_ra10", id+".yml"))
	ts.AssertFileExists(filepath.Join("places", "sky_ra11", id+".yml"))
	assert.Len(t, ts.Open().Places(), 1)
}

func TestNewPlaceIDsAreDeterministicPerSource(t *testing.T) {
	a := store.New(testutil.NewTestStore(t).FS, store.Options{Rand: testutil.Rand(9)})
	b := store.New(testutil.NewTestStore(t).FS, store.Options{Rand: testutil.Rand(9)})

	idA, err := a.NewPlaceID()
	require.NoError(t, err)
	idB, err := b.NewPlaceID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestQuarantine(t *testing.T) {
	ts := testutil.NewTestStore(t).WithImageset(m51())
	s := ts.Open()

	require.Error(t, s.Quarantine(m51().URL, "  "))
	require.NoError(t, s.Quarantine(m51().URL, "tiles are misregistered"))

	_, ok := s.Imageset(m51().URL)
	assert.False(t, ok)
	q, ok := s.Quarantined(m51().URL)
	require.True(t, ok)
	assert.Equal(t, "tiles are misregistered", q.Reason)

	ts.AssertFileNotExists(canon.ImagesetLocation(m51()).Path())
	ts.AssertFileContains(canon.QuarantineLocation(m51()).Path(), "reason: tiles are misregistered")

	err := s.SaveImageset(m51())
	assert.ErrorIs(t, err, store.ErrQuarantined)

	reloaded := ts.Open()
	assert.Empty(t, reloaded.Imagesets())
	assert.Len(t, reloaded.QuarantinedImagesets(), 1)
}

func TestAltURLMapsToMain(t *testing.T) {
	im := m51()
	im.AltURL = "http://old.example.org/m51"
	s := testutil.NewTestStore(t).WithImageset(im).Open()

	assert.Equal(t, im.URL, s.MainURL("http://old.example.org/m51"))
	assert.Equal(t, "http://other/", s.MainURL("http://other/"))
}

func TestRelocateIsIdempotent(t *testing.T) {
	radio := m51()
	radio.BandPass = "Radio"
	ts := testutil.NewTestStore(t).WithImageset(radio)
	canonical := canon.ImagesetLocation(radio).Path()
	content := ts.ReadFile(canonical)

	// Move the record by hand into the wrong bucket, and add a record whose
	// bytes are not canonical.
	require.NoError(t, ts.FS.Remove(canonical))
	wrong := filepath.Join("imagesets", "sky_visible", filepath.Base(canonical))
	ts.WithFile(wrong, content)

	sloppy := &model.Imageset{URL: "https://example.org/sloppy/", DataSetType: "Sky"}
	sloppyPath := canon.ImagesetLocation(sloppy).Path()
	ts.WithFile(sloppyPath, "url:    https://example.org/sloppy/\ndata_set_type:   Sky\n")

	_, err := store.Open(ts.FS, ts.Options())
	require.ErrorIs(t, err, model.ErrStoreCorrupt)

	opts := ts.Options()
	opts.AllowMisplaced = true
	s, err := store.Open(ts.FS, opts)
	require.NoError(t, err)

	first, err := s.Relocate()
	require.NoError(t, err)
	assert.Equal(t, []store.Move{{Key: radio.URL, From: wrong, To: canonical}}, first.Moved)
	assert.Equal(t, []string{sloppyPath}, first.Rewritten)

	ts.AssertFileNotExists(wrong)
	ts.AssertFileExists(canonical)
	after := ts.Snapshot()

	second, err := s.Relocate()
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Equal(t, after, ts.Snapshot())

	// The repaired store loads strictly.
	strict := ts.Open()
	for _, im := range strict.Imagesets() {
		path, _ := strict.PathOf(model.ChildImageset, im.URL)
		assert.Equal(t, canon.ImagesetLocation(im).Path(), path)
	}
}
