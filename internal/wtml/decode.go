package wtml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aidanlsb/skycat/internal/model"
)

// Parse reads a document whose root element is a Folder. Errors are
// *model.ParseError values naming the source.
func Parse(r io.Reader, source string) (*Folder, error) {
	d := &decoder{dec: xml.NewDecoder(r)}
	f, err := d.root()
	if err != nil {
		return nil, &model.ParseError{Path: source, Err: err}
	}
	return f, nil
}

// Unmarshal parses a document from bytes.
func Unmarshal(data []byte, source string) (*Folder, error) {
	return Parse(bytes.NewReader(data), source)
}

type decoder struct {
	dec *xml.Decoder
}

func (d *decoder) errorf(format string, args ...interface{}) error {
	line, _ := d.dec.InputPos()
	return fmt.Errorf("line %d: %s", line, fmt.Sprintf(format, args...))
}

func (d *decoder) root() (*Folder, error) {
	for {
		tok, err := d.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("document has no root element")
		}
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "Folder" {
				return nil, d.errorf("root element is %s, want Folder", se.Name.Local)
			}
			return d.folder(se)
		}
	}
}

func setAttrs[T any](d *decoder, table []model.Attr[T], r *T, extra *map[string]string, attrs []xml.Attr) error {
	for _, xa := range attrs {
		name := xa.Name.Local
		if xa.Name.Space == "xmlns" || name == "xmlns" {
			continue
		}
		a, ok := model.AttrByName(table, name)
		if !ok || a.Elem {
			if *extra == nil {
				*extra = make(map[string]string)
			}
			(*extra)[name] = xa.Value
			continue
		}
		if err := a.Set(r, xa.Value); err != nil {
			return d.errorf("%v", err)
		}
	}
	return nil
}

func (d *decoder) folder(se xml.StartElement) (*Folder, error) {
	f := &Folder{}
	if err := setAttrs(d, model.FolderAttrTable, &f.Attrs, &f.Attrs.Extra, se.Attr); err != nil {
		return nil, err
	}

	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child Node
			switch t.Name.Local {
			case "Folder":
				child, err = d.folder(t)
			case "Place":
				child, err = d.place(t)
			case "ImageSet":
				var im *model.Imageset
				im, err = d.imageset(t)
				if im != nil {
					child = &Imageset{Imageset: *im}
				}
			default:
				return nil, d.errorf("unexpected element %s in Folder", t.Name.Local)
			}
			if err != nil {
				return nil, err
			}
			f.Children = append(f.Children, child)
		case xml.EndElement:
			return f, nil
		}
	}
}

func (d *decoder) place(se xml.StartElement) (*Place, error) {
	p := &Place{}
	if err := setAttrs(d, model.PlaceAttrs, &p.Place, &p.Place.Extra, se.Attr); err != nil {
		return nil, err
	}

	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "ImageSet":
				p.Imageset, err = d.wrappedImageset(t)
			case "ForegroundImageSet":
				p.Foreground, err = d.wrappedImageset(t)
			case "BackgroundImageSet":
				p.Background, err = d.wrappedImageset(t)
			default:
				err = textChild(d, model.PlaceAttrs, &p.Place, &p.Place.Extra, t)
			}
			if err != nil {
				return nil, err
			}
		case xml.EndElement:
			return p, nil
		}
	}
}

// wrappedImageset reads an imagery element of a place. The imageset is
// normally nested one level down; an ImageSet element carrying attributes
// directly is accepted too.
func (d *decoder) wrappedImageset(se xml.StartElement) (*model.Imageset, error) {
	if se.Name.Local == "ImageSet" && len(se.Attr) > 0 {
		return d.imageset(se)
	}

	var im *model.Imageset
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "ImageSet" || im != nil {
				return nil, d.errorf("unexpected element %s in %s", t.Name.Local, se.Name.Local)
			}
			if im, err = d.imageset(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if im == nil {
				return nil, d.errorf("empty %s", se.Name.Local)
			}
			return im, nil
		}
	}
}

func (d *decoder) imageset(se xml.StartElement) (*model.Imageset, error) {
	im := &model.Imageset{}
	if err := setAttrs(d, model.ImagesetAttrs, im, &im.Extra, se.Attr); err != nil {
		return nil, err
	}

	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := textChild(d, model.ImagesetAttrs, im, &im.Extra, t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if im.URL == "" {
				return nil, d.errorf("ImageSet without Url")
			}
			return im, nil
		}
	}
}

// textChild reads a child text element into its typed attribute, or into
// extra when it is not recognized.
func textChild[T any](d *decoder, table []model.Attr[T], r *T, extra *map[string]string, se xml.StartElement) error {
	var text strings.Builder
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return d.unexpected(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			return d.errorf("unexpected element %s in %s", t.Name.Local, se.Name.Local)
		case xml.EndElement:
			name := se.Name.Local
			if a, ok := model.AttrByName(table, name); ok && a.Elem {
				return a.Set(r, text.String())
			}
			if *extra == nil {
				*extra = make(map[string]string)
			}
			(*extra)[elemPrefix+name] = text.String()
			return nil
		}
	}
}

func (d *decoder) unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return d.errorf("unexpected end of document")
	}
	return err
}
