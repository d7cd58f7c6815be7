package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FolderAttrs are the display attributes of a folder node.
type FolderAttrs struct {
	Name       string            `yaml:"name,omitempty"`
	Type       string            `yaml:"type,omitempty"`
	Group      string            `yaml:"group,omitempty"`
	SubType    string            `yaml:"sub_type,omitempty"`
	Thumbnail  string            `yaml:"thumbnail,omitempty"`
	URL        string            `yaml:"url,omitempty"`
	Browseable *bool             `yaml:"browseable,omitempty"`
	Searchable *bool             `yaml:"searchable,omitempty"`
	Extra      map[string]string `yaml:"extra,omitempty"`
}

// FolderAttrTable is the attribute table for folders.
var FolderAttrTable = []Attr[FolderAttrs]{
	strAttr("name", "Name", func(r *FolderAttrs) *string { return &r.Name }),
	strAttr("type", "Type", func(r *FolderAttrs) *string { return &r.Type }),
	strAttr("group", "Group", func(r *FolderAttrs) *string { return &r.Group }),
	strAttr("sub_type", "SubType", func(r *FolderAttrs) *string { return &r.SubType }),
	strAttr("thumbnail", "Thumbnail", func(r *FolderAttrs) *string { return &r.Thumbnail }),
	strAttr("url", "Url", func(r *FolderAttrs) *string { return &r.URL }),
	optBoolAttr("browseable", "Browseable", func(r *FolderAttrs) **bool { return &r.Browseable }),
	optBoolAttr("searchable", "Searchable", func(r *FolderAttrs) **bool { return &r.Searchable }),
}

// Attrs flattens the folder attributes into a map of non-empty values.
func (f *FolderAttrs) Attrs() map[string]string {
	return flatten(FolderAttrTable, f, f.Extra)
}

// FolderSpec is one folder node of a template: its attributes and its
// ordered children.
type FolderSpec struct {
	FolderAttrs `yaml:",inline"`
	Children    []Child `yaml:"children,omitempty"`
}

// FolderTemplate is an authored catalog: the root folder node plus the flags
// that control how it is emitted. Catalog is the template's key and comes
// from its file name.
type FolderTemplate struct {
	Catalog    string `yaml:"-"`
	Standalone bool   `yaml:"standalone,omitempty"`
	IsXML      bool   `yaml:"is_xml,omitempty"`
	FolderSpec `yaml:",inline"`
}

// Ext returns the file extension the catalog is emitted with.
func (t *FolderTemplate) Ext() string {
	if t.IsXML {
		return ".xml"
	}
	return ".wtml"
}

// ChildKind tags the variants of a template child.
type ChildKind uint8

const (
	ChildFolder ChildKind = iota
	ChildImageset
	ChildPlace
	ChildCatalog
)

func (k ChildKind) String() string {
	switch k {
	case ChildFolder:
		return "folder"
	case ChildImageset:
		return "imageset"
	case ChildPlace:
		return "place"
	case ChildCatalog:
		return "catalog"
	}
	return fmt.Sprintf("ChildKind(%d)", uint8(k))
}

// Child is one entry of a folder: an inline folder, or a reference to an
// imageset by URL, a place by ID, or another template by catalog name.
type Child struct {
	Kind   ChildKind
	Ref    string
	Folder *FolderSpec
}

// ImagesetRef returns a child referencing the imageset with the given URL.
func ImagesetRef(url string) Child { return Child{Kind: ChildImageset, Ref: url} }

// PlaceRef returns a child referencing the place with the given ID.
func PlaceRef(id string) Child { return Child{Kind: ChildPlace, Ref: id} }

// CatalogRef returns a child referencing another template by name.
func CatalogRef(name string) Child { return Child{Kind: ChildCatalog, Ref: name} }

// InlineFolder returns a child holding a nested folder.
func InlineFolder(f *FolderSpec) Child { return Child{Kind: ChildFolder, Folder: f} }

// String renders reference children the way template files store them.
func (c Child) String() string {
	if c.Kind == ChildFolder {
		if c.Folder == nil {
			return "folder"
		}
		return "folder " + c.Folder.Name
	}
	return c.Kind.String() + " " + c.Ref
}

// ParseChildRef parses a reference child written as "<kind> <ref>".
func ParseChildRef(s string) (Child, error) {
	kind, ref, ok := strings.Cut(strings.TrimSpace(s), " ")
	ref = strings.TrimSpace(ref)
	if !ok || ref == "" {
		return Child{}, fmt.Errorf("invalid child reference %q", s)
	}
	switch kind {
	case "imageset":
		return ImagesetRef(ref), nil
	case "place":
		return PlaceRef(ref), nil
	case "catalog":
		return CatalogRef(ref), nil
	}
	return Child{}, fmt.Errorf("invalid child reference %q: unknown kind %q", s, kind)
}

func (c Child) MarshalYAML() (interface{}, error) {
	if c.Kind == ChildFolder {
		if c.Folder == nil {
			return nil, fmt.Errorf("inline folder child has no folder")
		}
		return c.Folder, nil
	}
	return c.String(), nil
}

func (c *Child) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseChildRef(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*c = parsed
		return nil
	case yaml.MappingNode:
		var f FolderSpec
		if err := node.Decode(&f); err != nil {
			return err
		}
		*c = InlineFolder(&f)
		return nil
	}
	return fmt.Errorf("line %d: child must be a reference string or a folder mapping", node.Line)
}

// Walk calls fn for every child of f, depth first through inline folders.
// Catalog references are not followed.
func (f *FolderSpec) Walk(fn func(Child)) {
	for _, c := range f.Children {
		fn(c)
		if c.Kind == ChildFolder && c.Folder != nil {
			c.Folder.Walk(fn)
		}
	}
}
