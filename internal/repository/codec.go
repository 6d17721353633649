package repository

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/pateepk/agilesite-ci/internal/model"
)

type objectDoc struct {
	XMLName  xml.Name `xml:"object"`
	Type     string   `xml:"type,attr"`
	CodeName string   `xml:"codeName"`
	GUID     string   `xml:"guid,omitempty"`
	Site     string   `xml:"site,omitempty"`
	Parent   string   `xml:"parent,omitempty"`
	Columns  []column `xml:"column"`
}

type column struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type batchDoc struct {
	XMLName xml.Name    `xml:"objects"`
	Type    string      `xml:"type,attr"`
	Objects []objectDoc `xml:"object"`
}

func toDoc(info *model.TypeInfo, obj *model.Object) objectDoc {
	tracked := obj.Tracked(info)
	doc := objectDoc{
		Type:     info.Name,
		CodeName: tracked.CodeName,
		GUID:     tracked.GUID,
		Site:     tracked.Site,
		Parent:   tracked.Parent,
	}
	for _, name := range tracked.FieldNames() {
		doc.Columns = append(doc.Columns, column{Name: name, Value: tracked.Fields[name]})
	}
	return doc
}

func fromDoc(doc objectDoc) *model.Object {
	obj := &model.Object{
		Type:     model.NormalizeType(doc.Type),
		CodeName: doc.CodeName,
		GUID:     doc.GUID,
		Site:     doc.Site,
		Parent:   doc.Parent,
		Fields:   make(map[string]string, len(doc.Columns)),
	}
	for _, c := range doc.Columns {
		obj.Fields[c.Name] = c.Value
	}
	return obj
}

// MarshalObject serializes obj as UTF-8 XML declaring encodingName.
func MarshalObject(info *model.TypeInfo, obj *model.Object, encodingName string) ([]byte, error) {
	return marshal(toDoc(info, obj), encodingName)
}

// MarshalBatch serializes objs as one batch document, sorted by site and code name.
func MarshalBatch(info *model.TypeInfo, objs []*model.Object, encodingName string) ([]byte, error) {
	sorted := append([]*model.Object(nil), objs...)
	SortObjects(sorted)

	doc := batchDoc{Type: info.Name}
	for _, obj := range sorted {
		doc.Objects = append(doc.Objects, toDoc(info, obj))
	}
	return marshal(doc, encodingName)
}

func marshal(v any, encodingName string) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal xml: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<?xml version=\"1.0\" encoding=\"%s\"?>\n", encodingName)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// UnmarshalObject decodes a single-object document from UTF-8 text.
func UnmarshalObject(text []byte) (*model.Object, error) {
	var doc objectDoc
	if err := unmarshal(text, &doc); err != nil {
		return nil, err
	}
	if doc.CodeName == "" {
		return nil, fmt.Errorf("object document has no code name")
	}
	return fromDoc(doc), nil
}

// UnmarshalBatch decodes a batch document from UTF-8 text.
func UnmarshalBatch(text []byte) ([]*model.Object, error) {
	var doc batchDoc
	if err := unmarshal(text, &doc); err != nil {
		return nil, err
	}
	out := make([]*model.Object, 0, len(doc.Objects))
	for i, od := range doc.Objects {
		if od.CodeName == "" {
			return nil, fmt.Errorf("batch entry %d has no code name", i)
		}
		if od.Type == "" {
			od.Type = doc.Type
		}
		out = append(out, fromDoc(od))
	}
	return out, nil
}

func unmarshal(text []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(text))
	// Text is already UTF-8 regardless of the declared encoding.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse xml: %w", err)
	}
	return nil
}

// SortObjects orders objs by site, then code name, case-insensitively.
func SortObjects(objs []*model.Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].Key() < objs[j].Key()
	})
}
