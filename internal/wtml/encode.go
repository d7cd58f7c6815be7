package wtml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aidanlsb/skycat/internal/model"
)

// Write renders a document rooted at f as indented XML. Attributes are
// written in name order so equal trees always render to equal bytes.
func Write(w io.Writer, f *Folder) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeFolder(enc, f); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal renders a document to bytes.
func Marshal(f *Folder) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type textElem struct {
	name, value string
}

func collect[T any](table []model.Attr[T], r *T, extra map[string]string) ([]xml.Attr, []textElem) {
	var attrs []xml.Attr
	var elems []textElem
	for _, a := range table {
		if a.Name == "" {
			continue
		}
		v := a.Get(r)
		if v == "" {
			continue
		}
		if a.Elem {
			elems = append(elems, textElem{a.Name, v})
		} else {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: a.Name}, Value: v})
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if name, ok := strings.CutPrefix(k, elemPrefix); ok {
			elems = append(elems, textElem{name, extra[k]})
		} else {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: k}, Value: extra[k]})
		}
	}

	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name.Local < attrs[j].Name.Local })
	return attrs, elems
}

func start(name string, attrs []xml.Attr) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
}

func encodeText(enc *xml.Encoder, elems []textElem) error {
	for _, e := range elems {
		se := start(e.name, nil)
		if err := enc.EncodeToken(se); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.CharData(e.value)); err != nil {
			return err
		}
		if err := enc.EncodeToken(se.End()); err != nil {
			return err
		}
	}
	return nil
}

func encodeFolder(enc *xml.Encoder, f *Folder) error {
	attrs, _ := collect(model.FolderAttrTable, &f.Attrs, f.Attrs.Extra)
	se := start("Folder", attrs)
	if err := enc.EncodeToken(se); err != nil {
		return err
	}
	for _, c := range f.Children {
		var err error
		switch c := c.(type) {
		case *Folder:
			err = encodeFolder(enc, c)
		case *Place:
			err = encodePlace(enc, c)
		case *Imageset:
			err = encodeImageset(enc, &c.Imageset)
		default:
			err = fmt.Errorf("unsupported node %T", c)
		}
		if err != nil {
			return err
		}
	}
	return enc.EncodeToken(se.End())
}

func encodePlace(enc *xml.Encoder, p *Place) error {
	attrs, elems := collect(model.PlaceAttrs, &p.Place, p.Place.Extra)
	se := start("Place", attrs)
	if err := enc.EncodeToken(se); err != nil {
		return err
	}
	if err := encodeText(enc, elems); err != nil {
		return err
	}

	wrapped := []struct {
		name string
		im   *model.Imageset
	}{
		{"ImageSet", p.Imageset},
		{"ForegroundImageSet", p.Foreground},
		{"BackgroundImageSet", p.Background},
	}
	for _, w := range wrapped {
		if w.im == nil {
			continue
		}
		ws := start(w.name, nil)
		if err := enc.EncodeToken(ws); err != nil {
			return err
		}
		if err := encodeImageset(enc, w.im); err != nil {
			return err
		}
		if err := enc.EncodeToken(ws.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(se.End())
}

func encodeImageset(enc *xml.Encoder, im *model.Imageset) error {
	attrs, elems := collect(model.ImagesetAttrs, im, im.Extra)
	se := start("ImageSet", attrs)
	if err := enc.EncodeToken(se); err != nil {
		return err
	}
	if err := encodeText(enc, elems); err != nil {
		return err
	}
	return enc.EncodeToken(se.End())
}
