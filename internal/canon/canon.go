// Package canon computes the canonical location of every record kind.
//
// Locations are a pure function of a fixed projection of each record's
// classifying attributes. The store validates placement against them at load
// time and the format pass moves records to them.
package canon

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/slugs"
)

// Partition directories under the store root.
const (
	ImagesetDir   = "imagesets"
	PlaceDir      = "places"
	CatfileDir    = "catfiles"
	QuarantineDir = "quarantine"
)

// RecordExt is the extension of every record file.
const RecordExt = ".yml"

const (
	slugMax = 64
	hashLen = 10
)

// Location is the canonical file of a record, relative to the store root.
type Location struct {
	Partition string
	Bucket    string
	File      string
}

// Path joins the location into a relative file path.
func (l Location) Path() string {
	return filepath.Join(l.Partition, l.Bucket, l.File)
}

func (l Location) String() string { return filepath.ToSlash(l.Path()) }

// ImagesetBucket routes an imageset by data set type, reference frame (unless
// it is the sky frame) and band pass. An unset data set type routes as Sky.
func ImagesetBucket(im *model.Imageset) string {
	dst := im.DataSetType
	if dst == "" {
		dst = model.DataSetSky
	}
	parts := []string{slugs.Token(dst)}
	if im.ReferenceFrame != "" && im.ReferenceFrame != model.DataSetSky {
		parts = append(parts, slugs.Token(im.ReferenceFrame))
	}
	if im.BandPass != "" {
		parts = append(parts, slugs.Token(im.BandPass))
	}
	return strings.Join(parts, "_")
}

// ImagesetFile names the record file of the imageset with the given URL: a
// readable slug plus a short hash of the full URL so distinct URLs that slug
// alike never collide.
func ImagesetFile(url string) string {
	sum := sha1.Sum([]byte(url))
	return slugs.URLSlug(url, slugMax) + "-" + hex.EncodeToString(sum[:])[:hashLen] + RecordExt
}

// ImagesetLocation returns where an imageset lives in the production partition.
func ImagesetLocation(im *model.Imageset) Location {
	return Location{Partition: ImagesetDir, Bucket: ImagesetBucket(im), File: ImagesetFile(im.URL)}
}

// QuarantineLocation returns where a quarantined imageset lives. The layout
// mirrors the production partition.
func QuarantineLocation(im *model.Imageset) Location {
	loc := ImagesetLocation(im)
	loc.Partition = QuarantineDir
	return loc
}

// PlaceBucket routes a place by data set type and coarse position: the hour
// of right ascension for sky positions, a ten degree longitude band for
// planetary ones.
func PlaceBucket(p *model.Place) string {
	dst := p.DataSetType
	if dst == "" {
		dst = model.DataSetSky
	}
	parts := []string{slugs.Token(dst)}
	if p.RA != nil {
		hr := int(math.Floor(*p.RA)) % 24
		if hr < 0 {
			hr += 24
		}
		parts = append(parts, fmt.Sprintf("ra%02d", hr))
	}
	if p.Longitude != nil {
		band := int(math.Floor(math.Floor(*p.Longitude)/10)) * 10
		parts = append(parts, fmt.Sprintf("lon%03d", band))
	}
	return strings.Join(parts, "_")
}

// PlaceLocation returns where a place lives.
func PlaceLocation(p *model.Place) Location {
	return Location{Partition: PlaceDir, Bucket: PlaceBucket(p), File: p.ID + RecordExt}
}

var catalogName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidCatalogName reports whether name can key a folder template.
func ValidCatalogName(name string) bool {
	return catalogName.MatchString(name) && !strings.HasPrefix(name, ".")
}

// TemplateLocation returns where the template for a catalog lives.
func TemplateLocation(catalog string) Location {
	return Location{Partition: CatfileDir, File: catalog + RecordExt}
}
