package model

// Imageset is a URL-keyed reference to an image data product, with the
// display and tiling metadata clients need to render it.
type Imageset struct {
	URL                string  `yaml:"url"`
	AltURL             string  `yaml:"alt_url,omitempty"`
	Name               string  `yaml:"name,omitempty"`
	DataSetType        string  `yaml:"data_set_type,omitempty"`
	ReferenceFrame     string  `yaml:"reference_frame,omitempty"`
	BandPass           string  `yaml:"band_pass,omitempty"`
	Projection         string  `yaml:"projection,omitempty"`
	FileType           string  `yaml:"file_type,omitempty"`
	BaseTileLevel      int     `yaml:"base_tile_level,omitempty"`
	TileLevels         int     `yaml:"tile_levels,omitempty"`
	BaseDegreesPerTile float64 `yaml:"base_degrees_per_tile,omitempty"`
	WidthFactor        float64 `yaml:"width_factor,omitempty"`
	CenterX            float64 `yaml:"center_x,omitempty"`
	CenterY            float64 `yaml:"center_y,omitempty"`
	OffsetX            float64 `yaml:"offset_x,omitempty"`
	OffsetY            float64 `yaml:"offset_y,omitempty"`
	Rotation           float64 `yaml:"rotation,omitempty"`
	QuadTreeMap        string  `yaml:"quad_tree_map,omitempty"`
	BottomsUp          bool    `yaml:"bottoms_up,omitempty"`
	StockSet           bool    `yaml:"stock_set,omitempty"`
	Credits            string  `yaml:"credits,omitempty"`
	CreditsURL         string  `yaml:"credits_url,omitempty"`
	ThumbnailURL       string  `yaml:"thumbnail_url,omitempty"`
	Description        string  `yaml:"description,omitempty"`

	// Extra holds document attributes with no typed field, keyed by their
	// document name, so they survive a round trip.
	Extra map[string]string `yaml:"extra,omitempty"`
}

// ImagesetAttrs is the attribute table for imagesets.
var ImagesetAttrs = []Attr[Imageset]{
	strAttr("url", "Url", func(r *Imageset) *string { return &r.URL }),
	strAttr("alt_url", "AltUrl", func(r *Imageset) *string { return &r.AltURL }),
	strAttr("name", "Name", func(r *Imageset) *string { return &r.Name }),
	strAttr("data_set_type", "DataSetType", func(r *Imageset) *string { return &r.DataSetType }),
	strAttr("reference_frame", "ReferenceFrame", func(r *Imageset) *string { return &r.ReferenceFrame }),
	strAttr("band_pass", "BandPass", func(r *Imageset) *string { return &r.BandPass }),
	strAttr("projection", "Projection", func(r *Imageset) *string { return &r.Projection }),
	strAttr("file_type", "FileType", func(r *Imageset) *string { return &r.FileType }),
	intAttr("base_tile_level", "BaseTileLevel", func(r *Imageset) *int { return &r.BaseTileLevel }),
	intAttr("tile_levels", "TileLevels", func(r *Imageset) *int { return &r.TileLevels }),
	floatAttr("base_degrees_per_tile", "BaseDegreesPerTile", func(r *Imageset) *float64 { return &r.BaseDegreesPerTile }),
	floatAttr("width_factor", "WidthFactor", func(r *Imageset) *float64 { return &r.WidthFactor }),
	floatAttr("center_x", "CenterX", func(r *Imageset) *float64 { return &r.CenterX }),
	floatAttr("center_y", "CenterY", func(r *Imageset) *float64 { return &r.CenterY }),
	floatAttr("offset_x", "OffsetX", func(r *Imageset) *float64 { return &r.OffsetX }),
	floatAttr("offset_y", "OffsetY", func(r *Imageset) *float64 { return &r.OffsetY }),
	floatAttr("rotation", "Rotation", func(r *Imageset) *float64 { return &r.Rotation }),
	strAttr("quad_tree_map", "QuadTreeMap", func(r *Imageset) *string { return &r.QuadTreeMap }),
	boolAttr("bottoms_up", "BottomsUp", func(r *Imageset) *bool { return &r.BottomsUp }),
	boolAttr("stock_set", "StockSet", func(r *Imageset) *bool { return &r.StockSet }),
	elemAttr("credits", "Credits", func(r *Imageset) *string { return &r.Credits }),
	elemAttr("credits_url", "CreditsUrl", func(r *Imageset) *string { return &r.CreditsURL }),
	elemAttr("thumbnail_url", "ThumbnailUrl", func(r *Imageset) *string { return &r.ThumbnailURL }),
	elemAttr("description", "Description", func(r *Imageset) *string { return &r.Description }),
}

// Attrs flattens the imageset into a map of non-empty attributes.
func (im *Imageset) Attrs() map[string]string {
	return flatten(ImagesetAttrs, im, im.Extra)
}

// Equal reports whether two imagesets carry identical attributes.
func (im *Imageset) Equal(o *Imageset) bool {
	return len(Diff(im.Attrs(), o.Attrs())) == 0
}

// Clone returns a deep copy.
func (im *Imageset) Clone() *Imageset {
	c := *im
	c.Extra = cloneExtra(im.Extra)
	return &c
}

// IsSky reports whether the imageset belongs to the sky, treating an unset
// data set type as sky.
func (im *Imageset) IsSky() bool {
	return im.DataSetType == "" || im.DataSetType == DataSetSky
}

// QuarantinedImageset is an imageset held out of resolution along with the
// reason it was set aside.
type QuarantinedImageset struct {
	Imageset `yaml:",inline"`
	Reason   string `yaml:"reason"`
}
