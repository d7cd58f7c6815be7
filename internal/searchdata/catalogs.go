package searchdata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/aidanlsb/skycat/internal/model"
)

// Supplementary catalogs filed by constellation, in the order they are read.
var constellationCatalogs = []string{"messier", "ngc", "ic", "commonstars", "bsc"}

const (
	solarSystemCatalog   = "ssobjects"
	constellationCatalog = "constellationlist"
	catalogExt           = ".txt"
)

// row is one parsed line of a supplementary catalog.
type row struct {
	name          string
	class         int64
	raDeg, decDeg float64
	constellation string
	zoom          *float64
}

func (r *row) entry() map[string]interface{} {
	e := map[string]interface{}{
		"n":     r.name,
		"c":     r.class,
		"r_deg": r.raDeg,
		"d_deg": r.decDeg,
	}
	if r.zoom != nil {
		e["z"] = *r.zoom
	}
	return e
}

func (p *projector) catalogs() error {
	for _, name := range constellationCatalogs {
		err := p.scan(name, func(r *row) {
			group, ok := model.LookupConstellation(r.constellation)
			if !ok {
				p.warn(name+":"+r.name, "unknown constellation %q", r.constellation)
				return
			}
			p.add(group, r)
		})
		if err != nil {
			return err
		}
	}

	err := p.scan(solarSystemCatalog, func(r *row) {
		p.add(GroupSolarSystem, r)
		if r.name == "Venus" {
			earth := *r
			earth.name = "Earth"
			p.add(GroupSolarSystem, &earth)
		}
	})
	if err != nil {
		return err
	}

	return p.scan(constellationCatalog, func(r *row) {
		p.add(GroupConstellations, r)
	})
}

func (p *projector) add(group string, r *row) {
	g := p.groups[group]
	g.Entries = append(g.Entries, r.entry())
	p.index.CatalogRows++
}

// scan reads one catalog file and calls fn for every well-formed row. A
// missing file is a warning; an unreadable one is an error.
func (p *projector) scan(name string, fn func(*row)) error {
	data, err := util.ReadFile(p.opts.Catalogs, name+catalogExt)
	if errors.Is(err, os.ErrNotExist) {
		p.warn(name, "catalog file %s%s not found", name, catalogExt)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", name, err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		r, err := parseRow(line)
		if err != nil {
			p.warn(fmt.Sprintf("%s:%d", name, lineNo), "skipping malformed row: %v", err)
			continue
		}
		if r.raDeg == 0 && r.decDeg == 0 && name != solarSystemCatalog {
			p.warn(name+":"+r.name, "suspicious catalog object at RA = Dec = 0")
		}
		fn(r)
	}
	return sc.Err()
}

// parseRow parses a tab-separated row: name, classification, RA and Dec in
// degrees, then optional magnitude, constellation and zoom columns.
func parseRow(line string) (*row, error) {
	bits := strings.Split(line, "\t")
	if len(bits) < 4 {
		return nil, fmt.Errorf("want at least 4 columns, got %d", len(bits))
	}

	r := &row{name: bits[0]}
	class, ok := model.ParseClassification(bits[1])
	if !ok {
		return nil, fmt.Errorf("unknown classification %q", bits[1])
	}
	r.class, _ = model.ClassificationBits(class)

	var err error
	if r.raDeg, err = strconv.ParseFloat(bits[2], 64); err != nil {
		return nil, fmt.Errorf("invalid RA %q", bits[2])
	}
	if r.decDeg, err = strconv.ParseFloat(bits[3], 64); err != nil {
		return nil, fmt.Errorf("invalid Dec %q", bits[3])
	}

	// Magnitude is validated but unused by the client.
	if len(bits) > 4 && bits[4] != "" && bits[4] != "NULL" {
		if _, err := strconv.ParseFloat(bits[4], 64); err != nil {
			return nil, fmt.Errorf("invalid magnitude %q", bits[4])
		}
	}
	if len(bits) > 5 {
		r.constellation = bits[5]
	}
	if len(bits) > 6 && bits[6] != "" {
		z, err := strconv.ParseFloat(bits[6], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid zoom %q", bits[6])
		}
		r.zoom = &z
	}
	return r, nil
}
