// Package wtml models resolved catalog documents and reads and writes their
// XML form.
//
// A document is a tree of folders whose children are folders, places with
// their imagery inlined, and imagesets. A folder with a URL and no children
// is a link to another document.
package wtml

import "github.com/aidanlsb/skycat/internal/model"

// Node is a child of a folder: *Folder, *Place or *Imageset.
type Node interface {
	node()
}

// Folder is a folder element.
type Folder struct {
	Attrs    model.FolderAttrs
	Children []Node
}

// Place is a place element with its imagery inlined.
type Place struct {
	Place      model.Place
	Imageset   *model.Imageset
	Foreground *model.Imageset
	Background *model.Imageset
}

// Imageset is an imageset element.
type Imageset struct {
	model.Imageset
}

func (*Folder) node()   {}
func (*Place) node()    {}
func (*Imageset) node() {}

// IsLink reports whether the folder only points at another document.
func (f *Folder) IsLink() bool {
	return f.Attrs.URL != "" && len(f.Children) == 0
}

// Imagesets returns every imageset in the subtree, including those inlined
// in places, in document order.
func (f *Folder) Imagesets() []*model.Imageset {
	var out []*model.Imageset
	f.walk(func(n Node) {
		switch n := n.(type) {
		case *Imageset:
			out = append(out, &n.Imageset)
		case *Place:
			for _, im := range []*model.Imageset{n.Imageset, n.Foreground, n.Background} {
				if im != nil {
					out = append(out, im)
				}
			}
		}
	})
	return out
}

func (f *Folder) walk(fn func(Node)) {
	for _, c := range f.Children {
		fn(c)
		if sub, ok := c.(*Folder); ok {
			sub.walk(fn)
		}
	}
}

// elemPrefix marks extra entries that came from unrecognized child text
// elements rather than attributes.
const elemPrefix = "elem:"
