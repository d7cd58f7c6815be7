package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/config"
	"github.com/aidanlsb/skycat/internal/ingest"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/partition"
	"github.com/aidanlsb/skycat/internal/resolve"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/testutil"
	"github.com/aidanlsb/skycat/internal/trace"
)

type envelope struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *ErrorInfo      `json:"error"`
	Warnings []Warning       `json:"warnings"`
	Meta     *Meta           `json:"meta"`
}

type runResult struct {
	Stdout string
	Stderr string
	Err    error
}

// run executes the command tree in-process against root.
func run(t *testing.T, root, stdin string, args ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--root", root, "--log-level", "off"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return runResult{Stdout: out.String(), Stderr: errOut.String(), Err: err}
}

// runJSON runs with --json and decodes the envelope.
func runJSON(t *testing.T, root, stdin string, args ...string) envelope {
	t.Helper()
	res := run(t, root, stdin, append([]string{"--json"}, args...)...)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &env), "stdout: %s\nstderr: %s", res.Stdout, res.Stderr)
	if env.OK {
		require.NoError(t, res.Err)
	} else {
		require.True(t, errors.Is(res.Err, errReported), "unexpected error: %v", res.Err)
		require.NotNil(t, env.Error)
	}
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type catalogFixture struct {
	ts  *testutil.TestStore
	m51 *model.Place
	fg  *model.Imageset
	dss *model.Imageset
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	f := &catalogFixture{
		ts: testutil.NewDiskStore(t),
		fg: &model.Imageset{
			URL:         "https://example.org/m51/",
			Name:        "M51 Hubble",
			DataSetType: model.DataSetSky,
			BandPass:    "Visible",
			Projection:  model.ProjectionTan,
		},
		dss: &model.Imageset{URL: "https://example.org/dss/", Name: "DSS", DataSetType: model.DataSetSky},
	}
	f.m51 = &model.Place{
		Name:           "M51",
		DataSetType:    model.DataSetSky,
		RA:             model.Float(13.49),
		Dec:            model.Float(47.19),
		Constellation:  "Canes Venatici",
		Classification: "SpiralGalaxy",
		ForegroundURL:  f.fg.URL,
	}
	f.ts.WithImageset(f.fg).WithImageset(f.dss).WithPlace(f.m51)
	f.ts.WithTemplate(&model.FolderTemplate{
		Catalog:    "explore",
		Standalone: true,
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Explore"},
			Children:    []model.Child{model.PlaceRef(f.m51.ID), model.ImagesetRef(f.dss.URL)},
		},
	})
	return f
}

func TestInit(t *testing.T) {
	root := t.TempDir()

	env := runJSON(t, root, "", "init")
	res := decode[initResult](t, env)
	assert.True(t, res.ConfigCreated)
	assert.Equal(t, []string{canon.ImagesetDir, canon.PlaceDir, canon.CatfileDir, canon.QuarantineDir}, res.Directories)
	for _, dir := range res.Directories {
		assert.DirExists(t, filepath.Join(root, dir))
	}
	assert.FileExists(t, filepath.Join(root, config.FileName))

	env = runJSON(t, root, "", "init")
	assert.False(t, decode[initResult](t, env).ConfigCreated)
}

func TestCheck(t *testing.T) {
	f := newCatalogFixture(t)

	env := runJSON(t, f.ts.Path, "", "check")
	res := decode[checkResult](t, env)
	assert.Equal(t, 2, res.Imagesets)
	assert.Equal(t, 1, res.Places)
	assert.Equal(t, 1, res.Catalogs)
	assert.Empty(t, res.Problems)
}

func TestCheckListsEveryProblem(t *testing.T) {
	f := newCatalogFixture(t)
	f.ts.WithTemplate(&model.FolderTemplate{
		Catalog:    "broken",
		Standalone: true,
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Broken"},
			Children:    []model.Child{model.ImagesetRef("https://example.org/missing/")},
		},
	})
	f.ts.WithTemplate(&model.FolderTemplate{
		Catalog: "loop",
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Loop"},
			Children:    []model.Child{model.CatalogRef("loop")},
		},
	})
	f.ts.WithTemplate(&model.FolderTemplate{
		Catalog:    "cyclic",
		Standalone: true,
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Cyclic"},
			Children:    []model.Child{model.CatalogRef("loop")},
		},
	})

	env := runJSON(t, f.ts.Path, "", "check")
	assert.Equal(t, ErrCheckFailed, env.Error.Code)

	details, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	problems, ok := details["problems"].([]interface{})
	require.True(t, ok)
	require.Len(t, problems, 2)

	codes := map[string]string{}
	for _, p := range problems {
		m := p.(map[string]interface{})
		codes[m["catalog"].(string)] = m["code"].(string)
	}
	assert.Equal(t, map[string]string{"broken": ErrDanglingReference, "cyclic": ErrCyclicReference}, codes)
}

func TestCheckRejectsMisplacedRecordsUntilFormatted(t *testing.T) {
	f := newCatalogFixture(t)
	loc := canon.ImagesetLocation(f.dss)
	moved := filepath.Join(loc.Partition, "elsewhere", loc.File)
	require.NoError(t, f.ts.FS.MkdirAll(filepath.Dir(moved), 0o755))
	require.NoError(t, f.ts.FS.Rename(loc.Path(), moved))

	env := runJSON(t, f.ts.Path, "", "check")
	assert.Equal(t, ErrStoreCorrupt, env.Error.Code)

	env = runJSON(t, f.ts.Path, "", "format")
	report := decode[store.RelocateReport](t, env)
	require.Len(t, report.Moved, 1)
	assert.Equal(t, f.dss.URL, report.Moved[0].Key)
	f.ts.AssertFileExists(loc.Path())
	f.ts.AssertFileNotExists(moved)

	env = runJSON(t, f.ts.Path, "", "format")
	second := decode[store.RelocateReport](t, env)
	assert.False(t, second.Changed())

	runJSON(t, f.ts.Path, "", "check")
}

func TestEmit(t *testing.T) {
	f := newCatalogFixture(t)
	out := t.TempDir()

	env := runJSON(t, f.ts.Path, "", "emit", "--out", out)
	res := decode[emitResult](t, env)
	assert.Equal(t, "absolute", res.Mode)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "explore.wtml", res.Files[0].File)

	data, err := os.ReadFile(filepath.Join(out, "explore.wtml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `Name="M51"`)
	assert.Contains(t, string(data), f.dss.URL)

	r := run(t, f.ts.Path, "", "emit", "explore", "--mode", "preview", "--out", out)
	require.NoError(t, r.Err)
	assert.Contains(t, r.Stdout, "explore_rel.wtml")
	assert.FileExists(t, filepath.Join(out, "explore_rel.wtml"))
}

func TestEmitRejectsUnknownMode(t *testing.T) {
	f := newCatalogFixture(t)
	r := run(t, f.ts.Path, "", "emit", "--mode", "sideways", "--out", t.TempDir())
	require.Error(t, r.Err)
	assert.Contains(t, r.Err.Error(), "sideways")
}

const ingestDoc = `<?xml version="1.0" encoding="UTF-8"?>
<Folder Name="t1" Group="Explorer">
  <Place Name="Test" DataSetType="Sky" RA="10" Dec="20" />
  <ImageSet Url="u1" Name="One" DataSetType="Sky" BandPass="Visible">
    <Credits>First credit</Credits>
  </ImageSet>
</Folder>
`

func TestIngestFromStdin(t *testing.T) {
	ts := testutil.NewDiskStore(t)

	env := runJSON(t, ts.Path, ingestDoc, "ingest", "-", "--emit", "t1", "--dry-run")
	report := decode[ingest.Report](t, env)
	assert.True(t, report.DryRun)
	assert.Equal(t, ingest.Counts{Created: 1}, report.Imagesets)
	assert.Empty(t, ts.Snapshot())

	env = runJSON(t, ts.Path, ingestDoc, "ingest", "-", "--emit", "t1")
	report = decode[ingest.Report](t, env)
	assert.Equal(t, "<stdin>", report.Source)
	assert.Equal(t, ingest.Counts{Created: 1}, report.Places)
	assert.Equal(t, "t1", report.Template)

	st := ts.Open()
	im, ok := st.Imageset("u1")
	require.True(t, ok)
	assert.Equal(t, "First credit", im.Credits)
	_, ok = st.Template("t1")
	assert.True(t, ok)

	env = runJSON(t, ts.Path, ingestDoc, "ingest", "-", "--emit", "t1")
	assert.Equal(t, ingest.Counts{Unchanged: 1}, decode[ingest.Report](t, env).Imagesets)
}

func TestIngestFromFile(t *testing.T) {
	ts := testutil.NewDiskStore(t)
	doc := filepath.Join(t.TempDir(), "doc.wtml")
	require.NoError(t, os.WriteFile(doc, []byte(ingestDoc), 0o644))

	r := run(t, ts.Path, "", "ingest", doc, "--emit", "t1")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Stdout, "Ingested "+doc)
	assert.Contains(t, r.Stdout, "catalog t1 created")
}

func TestIngestErrors(t *testing.T) {
	f := newCatalogFixture(t)

	env := runJSON(t, f.ts.Path, ingestDoc, "ingest", "-", "--emit", "t1", "--target", "explore")
	assert.Equal(t, ErrInvalidInput, env.Error.Code)

	env = runJSON(t, f.ts.Path, "<Folder><Place", "ingest", "-", "--emit", "t1")
	assert.Equal(t, ErrParse, env.Error.Code)

	env = runJSON(t, f.ts.Path, ingestDoc, "ingest", "-", "--target", "nowhere")
	assert.Equal(t, ErrDanglingReference, env.Error.Code)

	for _, tol := range []string{"0", "-0.5"} {
		env = runJSON(t, f.ts.Path, ingestDoc, "ingest", "-", "--emit", "t1", "--tolerance="+tol)
		assert.Equal(t, ErrInvalidInput, env.Error.Code, tol)
	}
}

func TestTrace(t *testing.T) {
	f := newCatalogFixture(t)

	env := runJSON(t, f.ts.Path, "", "trace", "--roots", "explore")
	res := decode[trace.Result](t, env)
	assert.Equal(t, 2, res.Reachable)
	assert.True(t, res.Clean())

	f.ts.WithImageset(&model.Imageset{URL: "https://example.org/orphan/", Name: "Orphan", DataSetType: model.DataSetSky})
	env = runJSON(t, f.ts.Path, "", "trace", "--roots", "explore")
	assert.Equal(t, ErrTraceUnclean, env.Error.Code)

	details := env.Error.Details.(map[string]interface{})
	unreachable := details["unreachable"].([]interface{})
	require.Len(t, unreachable, 1)
	assert.Equal(t, "https://example.org/orphan/", unreachable[0].(map[string]interface{})["url"])
}

func TestTraceAllowFromConfig(t *testing.T) {
	f := newCatalogFixture(t)
	f.ts.WithImageset(&model.Imageset{URL: "https://example.org/orphan/", DataSetType: model.DataSetSky})
	f.ts.WithFile(config.FileName, `roots = ["explore"]
trace_allow = ["https://example.org/orphan/", "https://example.org/gone/"]
`)

	env := runJSON(t, f.ts.Path, "", "trace")
	res := decode[trace.Result](t, env)
	assert.Equal(t, []string{"explore"}, res.Roots)
	assert.Equal(t, []string{"https://example.org/orphan/"}, res.Allowed)
	require.Len(t, env.Warnings, 1)
	assert.Equal(t, "STALE_ALLOW", env.Warnings[0].Code)
	assert.Equal(t, "https://example.org/gone/", env.Warnings[0].Ref)
}

func TestQuarantine(t *testing.T) {
	f := newCatalogFixture(t)

	env := runJSON(t, f.ts.Path, "", "quarantine", f.dss.URL)
	assert.Equal(t, ErrInvalidInput, env.Error.Code)

	env = runJSON(t, f.ts.Path, "", "quarantine", f.dss.URL, "--reason", "tiles missing")
	res := decode[quarantineResult](t, env)
	assert.Equal(t, "tiles missing", res.Reason)
	f.ts.AssertFileExists(res.Path)
	f.ts.AssertFileNotExists(canon.ImagesetLocation(f.dss).Path())

	env = runJSON(t, f.ts.Path, "", "quarantine", f.dss.URL, "--reason", "again")
	assert.Equal(t, ErrQuarantined, env.Error.Code)

	// The template still names the quarantined imageset.
	env = runJSON(t, f.ts.Path, "", "check")
	assert.Equal(t, ErrCheckFailed, env.Error.Code)
}

func TestSearchdata(t *testing.T) {
	f := newCatalogFixture(t)
	out := filepath.Join(t.TempDir(), "searchdata.js")

	env := runJSON(t, f.ts.Path, "", "searchdata", "--format", "compact", "--out", out)
	res := decode[searchdataResult](t, env)
	assert.Equal(t, 1, res.Places)
	assert.Equal(t, 0, res.CatalogRows)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, data, res.Bytes)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), ";"))
	assert.Contains(t, string(data), "M51")

	r := run(t, f.ts.Path, "", "searchdata")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Stdout, `"M51"`)

	env = runJSON(t, f.ts.Path, "", "searchdata")
	assert.Equal(t, ErrInvalidInput, env.Error.Code)
}

func TestSearchdataCatalogWarnings(t *testing.T) {
	f := newCatalogFixture(t)
	f.ts.WithFile("catfiles-src/messier.txt", "M1\tSupernovaRemnant\t83.63\t22.01\t8.4\tTAU\n")

	env := runJSON(t, f.ts.Path, "", "searchdata", "--catalogs", "catfiles-src", "--out", filepath.Join(t.TempDir(), "s.json"))
	res := decode[searchdataResult](t, env)
	assert.Equal(t, 1, res.CatalogRows)
	assert.NotEmpty(t, env.Warnings)
	for _, w := range env.Warnings {
		assert.Equal(t, "SEARCHDATA", w.Code)
	}
}

func TestReport(t *testing.T) {
	f := newCatalogFixture(t)

	env := runJSON(t, f.ts.Path, "", "report")
	res := decode[reportResult](t, env)
	assert.Equal(t, 2, res.Indexed.Imagesets)
	assert.Equal(t, 1, res.Indexed.Places)
	assert.Equal(t, []string{f.dss.URL}, res.Unused)
	assert.DirExists(t, filepath.Join(f.ts.Path, ".skycat"))

	env = runJSON(t, f.ts.Path, "", "report", "--partition", "places")
	res = decode[reportResult](t, env)
	require.Len(t, res.Buckets, 1)
	assert.Equal(t, "places", res.Buckets[0].Partition)
	assert.Equal(t, 1, res.Buckets[0].Records)
}

func TestPartitionUpdateAndEmit(t *testing.T) {
	f := newCatalogFixture(t)
	dir := t.TempDir()
	parts := filepath.Join(dir, "parts.txt")

	env := runJSON(t, f.ts.Path, "", "partition", "update", parts)
	upd := decode[partition.UpdateReport](t, env)
	assert.Equal(t, 2, upd.Total)
	assert.Equal(t, 2, upd.Added)
	assert.Equal(t, []partition.TagCount{{Tag: partition.Unassigned, Count: 2}}, upd.Tags)
	assert.FileExists(t, parts)

	out := filepath.Join(dir, "review.wtml")
	env = runJSON(t, f.ts.Path, "", "partition", "emit", parts, partition.Unassigned, out)
	em := decode[partition.EmitReport](t, env)
	assert.Equal(t, 1, em.Places)
	assert.Equal(t, 1, em.Imagesets)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `Name="M51"`)
	assert.Contains(t, string(data), f.dss.URL)

	env = runJSON(t, f.ts.Path, "", "partition", "emit", parts, "nebulae", out)
	assert.Equal(t, ErrInvalidInput, env.Error.Code)
}

func TestMetricsFile(t *testing.T) {
	ts := testutil.NewDiskStore(t)

	runJSON(t, ts.Path, ingestDoc, "--metrics-file", "metrics.prom", "ingest", "-", "--emit", "t1")

	data, err := os.ReadFile(filepath.Join(ts.Path, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "skycat_records_created_total")
}

func TestInvalidConfig(t *testing.T) {
	f := newCatalogFixture(t)
	f.ts.WithFile(config.FileName, "place_tolerance = -1\n")

	env := runJSON(t, f.ts.Path, "", "check")
	assert.Equal(t, ErrConfigInvalid, env.Error.Code)
	assert.NotEmpty(t, env.Error.Suggestion)
}

func TestVersion(t *testing.T) {
	env := runJSON(t, t.TempDir(), "", "version")
	info := decode[versionInfo](t, env)
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Module)
	assert.Contains(t, info.Platform, "/")
}

func TestCatalogURLFromEnvironment(t *testing.T) {
	f := newCatalogFixture(t)
	f.ts.WithTemplate(&model.FolderTemplate{
		Catalog:    "outer",
		Standalone: true,
		FolderSpec: model.FolderSpec{
			FolderAttrs: model.FolderAttrs{Name: "Outer"},
			Children:    []model.Child{model.CatalogRef("explore")},
		},
	})
	t.Setenv("SKYCAT_CATALOG_URL", "https://mirror.example.org/wwtweb/catalog.aspx")
	out := t.TempDir()

	runJSON(t, f.ts.Path, "", "emit", "outer", "--out", out)
	data, err := os.ReadFile(filepath.Join(out, "outer.wtml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://mirror.example.org/wwtweb/catalog.aspx?W=explore")
	assert.NotContains(t, string(data), resolve.DefaultCatalogURL)
}
