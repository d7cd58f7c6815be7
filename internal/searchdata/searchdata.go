// Package searchdata projects the store and the supplementary object
// catalogs into the flattened search index used by the web client.
package searchdata

import (
	"fmt"
	"math"

	"github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/rs/zerolog"

	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
)

// Group names that follow the constellations.
const (
	GroupSolarSystem    = "SolarSystem"
	GroupConstellations = "Constellations"
)

// CompactPrefix and CompactSuffix wrap the compact rendering so a browser
// can load it as a script.
const (
	CompactPrefix = "wwt.searchData="
	CompactSuffix = ";"
)

// Options configures a projection.
type Options struct {
	// Catalogs holds the supplementary catalog files. Nil skips them.
	Catalogs billy.Filesystem
	Logger   zerolog.Logger
}

// Group is the list of entries filed under one constellation or section.
type Group struct {
	Name    string
	Entries []map[string]interface{}
}

// Index is a projected search index.
type Index struct {
	Groups []*Group

	// Places and CatalogRows count the entries contributed by each source.
	Places      int
	CatalogRows int

	// NonFinite counts values written as null because they were NaN or
	// infinite.
	NonFinite int

	Warnings []string
}

type projector struct {
	st     *store.Store
	opts   Options
	log    zerolog.Logger
	index  *Index
	groups map[string]*Group
}

// Project builds the search index from st and the supplementary catalogs.
// Problems with individual places or rows are warnings, never errors.
func Project(st *store.Store, opts Options) (*Index, error) {
	p := &projector{
		st:     st,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "searchdata").Logger(),
		index:  &Index{},
		groups: make(map[string]*Group),
	}
	for _, name := range groupOrder() {
		g := &Group{Name: name, Entries: []map[string]interface{}{}}
		p.index.Groups = append(p.index.Groups, g)
		p.groups[name] = g
	}

	p.places()
	if opts.Catalogs != nil {
		if err := p.catalogs(); err != nil {
			return nil, err
		}
	}
	p.finish()

	p.log.Info().
		Int("places", p.index.Places).
		Int("catalog_rows", p.index.CatalogRows).
		Int("warnings", len(p.index.Warnings)).
		Msg("search index projected")
	return p.index, nil
}

func groupOrder() []string {
	names := make([]string, 0, len(model.Constellations)+2)
	for _, c := range model.Constellations {
		names = append(names, c.Abbrev)
	}
	return append(names, GroupSolarSystem, GroupConstellations)
}

func (p *projector) warn(key, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.index.Warnings = append(p.index.Warnings, key+": "+msg)
	p.log.Warn().Str("key", key).Msg(msg)
}

var classificationAliases = map[string]string{
	"":                 "Unidentified",
	"Unspecified":      "Unidentified",
	"Unfiltered":       "Unidentified",
	"Other":            "Unidentified",
	"StellarGroupings": "MultipleStars",
	"Galactic":         "Galaxy",
	"Stellar":          "Star",
}

func (p *projector) places() {
	for _, pl := range p.st.Places() {
		if pl.DataSetType != "" && pl.DataSetType != model.DataSetSky {
			continue
		}
		if pl.ForegroundURL == "" {
			continue
		}
		img, ok := p.st.Imageset(p.st.MainURL(pl.ForegroundURL))
		if !ok {
			p.warn(pl.ID, "foreground imageset %s is not in the store", pl.ForegroundURL)
			continue
		}
		if img.Projection != model.ProjectionTan {
			continue
		}
		if pl.RA == nil || pl.Dec == nil {
			p.warn(pl.ID, "sky place %q has no position", pl.Name)
			continue
		}
		group, ok := model.LookupConstellation(pl.Constellation)
		if !ok {
			p.warn(pl.ID, "place %q has no recognizable constellation %q", pl.Name, pl.Constellation)
			continue
		}

		entry := map[string]interface{}{
			"n":     pl.Name,
			"r_deg": *pl.RA * 15,
			"d_deg": *pl.Dec,
			"fgi":   p.foreground(img),
		}

		class := pl.Classification
		if alias, ok := classificationAliases[class]; ok {
			class = alias
		}
		if class != "Unidentified" {
			bits, ok := model.ClassificationBits(class)
			if ok {
				entry["c"] = bits
			} else {
				p.warn(pl.ID, "unknown classification %q", pl.Classification)
			}
		}
		if pl.ZoomLevel != -1 {
			entry["z"] = pl.ZoomLevel
		}

		p.groups[group].Entries = append(p.groups[group].Entries, entry)
		p.index.Places++
	}
}

func (p *projector) foreground(img *model.Imageset) map[string]interface{} {
	fgi := map[string]interface{}{
		"bd": p.num(img.BaseDegreesPerTile),
		"cX": p.num(img.CenterX),
		"cY": p.num(img.CenterY),
		"ct": str(img.Credits),
		"cu": str(img.CreditsURL),
		"n":  str(img.Name),
		"tu": str(img.ThumbnailURL),
		"u":  img.URL,
		"wf": p.num(img.WidthFactor),
	}
	if img.BaseTileLevel != 0 {
		fgi["bl"] = int64(0)
	}
	if img.BandPass != "" && img.BandPass != "Visible" {
		fgi["bp"] = img.BandPass
	}
	if img.BottomsUp {
		fgi["bu"] = true
	}
	if img.TileLevels != 4 {
		fgi["lv"] = int64(img.TileLevels)
	}
	if img.OffsetX != 0 {
		fgi["oX"] = p.num(img.OffsetX)
	}
	if img.OffsetY != 0 {
		fgi["oY"] = p.num(img.OffsetY)
	}
	if img.StockSet {
		fgi["ds"] = true
	}
	if img.QuadTreeMap != "" {
		fgi["q"] = img.QuadTreeMap
	}
	if img.Rotation != 0 {
		fgi["r"] = p.num(img.Rotation)
	}
	if img.FileType != "" && img.FileType != ".png" {
		fgi["ft"] = img.FileType
	}
	return fgi
}

// finish converts positions to their final rounded form.
func (p *projector) finish() {
	for _, g := range p.index.Groups {
		for _, e := range g.Entries {
			e["r"] = p.num(round(e["r_deg"].(float64)/15, 4))
			e["d"] = p.num(round(e["d_deg"].(float64), 4))
			delete(e, "r_deg")
			delete(e, "d_deg")

			if z, ok := e["z"].(float64); ok {
				e["z"] = p.num(round(z, 5))
			} else {
				e["z"] = int64(-1)
			}
		}
	}
}

// num passes finite numbers through and replaces the rest with null.
func (p *projector) num(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.index.NonFinite++
		return nil
	}
	return v
}

func str(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func (ix *Index) value() map[string]interface{} {
	groups := make([]interface{}, 0, len(ix.Groups))
	for _, g := range ix.Groups {
		places := make([]interface{}, 0, len(g.Entries))
		for _, e := range g.Entries {
			places = append(places, e)
		}
		groups = append(groups, map[string]interface{}{"name": g.Name, "places": places})
	}
	return map[string]interface{}{"Constellations": groups}
}

// Pretty renders the index as indented JSON with sorted keys.
func (ix *Index) Pretty() string {
	return oj.JSON(ix.value(), &ojg.Options{Sort: true, Indent: 2}) + "\n"
}

// Compact renders the index as a script assigning the compact JSON payload.
func (ix *Index) Compact() string {
	return CompactPrefix + oj.JSON(ix.value(), &ojg.Options{Sort: true}) + CompactSuffix + "\n"
}
