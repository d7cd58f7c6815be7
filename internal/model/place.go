package model

import (
	"io"
	"math"

	"github.com/google/uuid"
)

// Place is a named viewpoint a client can jump to. Its ID is a generated
// surrogate key that never changes once assigned.
type Place struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name,omitempty"`
	DataSetType    string   `yaml:"data_set_type,omitempty"`
	RA             *float64 `yaml:"ra,omitempty"` // hours
	Dec            *float64 `yaml:"dec,omitempty"`
	Latitude       *float64 `yaml:"latitude,omitempty"`
	Longitude      *float64 `yaml:"longitude,omitempty"`
	ZoomLevel      float64  `yaml:"zoom_level,omitempty"`
	Rotation       float64  `yaml:"rotation,omitempty"`
	Angle          float64  `yaml:"angle,omitempty"`
	AngularSize    float64  `yaml:"angular_size,omitempty"`
	Distance       float64  `yaml:"distance,omitempty"`
	Opacity        float64  `yaml:"opacity,omitempty"`
	Magnitude      float64  `yaml:"magnitude,omitempty"`
	Classification string   `yaml:"classification,omitempty"`
	Constellation  string   `yaml:"constellation,omitempty"`
	Description    string   `yaml:"description,omitempty"`
	Thumbnail      string   `yaml:"thumbnail,omitempty"`
	Annotation     string   `yaml:"annotation,omitempty"`

	// Imagery references, by imageset URL.
	ImagesetURL   string `yaml:"imageset_url,omitempty"`
	ForegroundURL string `yaml:"foreground_url,omitempty"`
	BackgroundURL string `yaml:"background_url,omitempty"`

	Extra map[string]string `yaml:"extra,omitempty"`
}

// PlaceAttrs is the attribute table for places. The ID and imagery references
// have no document name: IDs never leave the store and imagery is embedded as
// nested imageset elements.
var PlaceAttrs = []Attr[Place]{
	strAttr("name", "Name", func(r *Place) *string { return &r.Name }),
	strAttr("data_set_type", "DataSetType", func(r *Place) *string { return &r.DataSetType }),
	optFloatAttr("ra", "RA", func(r *Place) **float64 { return &r.RA }),
	optFloatAttr("dec", "Dec", func(r *Place) **float64 { return &r.Dec }),
	optFloatAttr("latitude", "Lat", func(r *Place) **float64 { return &r.Latitude }),
	optFloatAttr("longitude", "Lng", func(r *Place) **float64 { return &r.Longitude }),
	floatAttr("zoom_level", "ZoomLevel", func(r *Place) *float64 { return &r.ZoomLevel }),
	floatAttr("rotation", "Rotation", func(r *Place) *float64 { return &r.Rotation }),
	floatAttr("angle", "Angle", func(r *Place) *float64 { return &r.Angle }),
	floatAttr("angular_size", "AngularSize", func(r *Place) *float64 { return &r.AngularSize }),
	floatAttr("distance", "Distance", func(r *Place) *float64 { return &r.Distance }),
	floatAttr("opacity", "Opacity", func(r *Place) *float64 { return &r.Opacity }),
	floatAttr("magnitude", "Magnitude", func(r *Place) *float64 { return &r.Magnitude }),
	strAttr("classification", "Classification", func(r *Place) *string { return &r.Classification }),
	strAttr("constellation", "Constellation", func(r *Place) *string { return &r.Constellation }),
	strAttr("thumbnail", "Thumbnail", func(r *Place) *string { return &r.Thumbnail }),
	strAttr("annotation", "Annotation", func(r *Place) *string { return &r.Annotation }),
	elemAttr("description", "Description", func(r *Place) *string { return &r.Description }),
	strAttr("imageset_url", "", func(r *Place) *string { return &r.ImagesetURL }),
	strAttr("foreground_url", "", func(r *Place) *string { return &r.ForegroundURL }),
	strAttr("background_url", "", func(r *Place) *string { return &r.BackgroundURL }),
}

// Attrs flattens the place into a map of non-empty attributes. The ID is not
// included.
func (p *Place) Attrs() map[string]string {
	return flatten(PlaceAttrs, p, p.Extra)
}

// Equal reports whether two places carry identical attributes, ignoring IDs.
func (p *Place) Equal(o *Place) bool {
	return len(Diff(p.Attrs(), o.Attrs())) == 0
}

// Clone returns a deep copy.
func (p *Place) Clone() *Place {
	c := *p
	c.RA = cloneFloat(p.RA)
	c.Dec = cloneFloat(p.Dec)
	c.Latitude = cloneFloat(p.Latitude)
	c.Longitude = cloneFloat(p.Longitude)
	c.Extra = cloneExtra(p.Extra)
	return &c
}

// ImagesetURLs returns the non-empty imagery references of the place in
// imageset, foreground, background order.
func (p *Place) ImagesetURLs() []string {
	var urls []string
	for _, u := range []string{p.ImagesetURL, p.ForegroundURL, p.BackgroundURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Matches reports whether a candidate place is equivalent to p: same data set
// type, same name, and every coordinate within tol. Right ascension and
// longitude wrap, so values on either side of the seam compare as close.
func (p *Place) Matches(o *Place, tol float64) bool {
	if dataSetOrSky(p.DataSetType) != dataSetOrSky(o.DataSetType) || p.Name != o.Name {
		return false
	}
	return coordClose(p.RA, o.RA, tol, 24) &&
		coordClose(p.Dec, o.Dec, tol, 0) &&
		coordClose(p.Latitude, o.Latitude, tol, 0) &&
		coordClose(p.Longitude, o.Longitude, tol, 360)
}

func coordClose(a, b *float64, tol, period float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	d := math.Abs(*a - *b)
	if period > 0 {
		d = math.Mod(d, period)
		d = math.Min(d, period-d)
	}
	return d <= tol
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func dataSetOrSky(s string) string {
	if s == "" {
		return DataSetSky
	}
	return s
}

// NewPlaceID generates a fresh place identifier from the random source r.
func NewPlaceID(r io.Reader) (string, error) {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidPlaceID reports whether id has the form of a generated identifier.
func ValidPlaceID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Float returns a pointer to v, for building places with coordinates.
func Float(v float64) *float64 { return &v }
