package apicall

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const defaultFileContentType = "application/octet-stream"

// Payload is an encoded request body.
type Payload struct {
	Data        []byte
	ContentType string
}

// wantsMultipart reports whether an unconsumed value must travel as a form part.
func wantsMultipart(params []*BoundParameter) bool {
	for _, p := range params {
		if p.Consumed || isNil(p.Value) {
			continue
		}
		if p.Source == SourceForm || isFile(p.Value) {
			return true
		}
	}
	return false
}

// promoteToForm moves query values bound by default into the form. It is
// called before the query is encoded when the body is a multipart form.
func promoteToForm(params []*BoundParameter) {
	for _, p := range params {
		if !p.Consumed && !p.Explicit && p.Source == SourceQuery {
			p.Source = SourceForm
		}
	}
}

// encodeBody builds the request body: a multipart form if form values or
// files are present, otherwise at most one value serialized by codec.
func encodeBody(params []*BoundParameter, codec Codec) (*Payload, error) {
	if wantsMultipart(params) {
		return encodeMultipart(params, codec)
	}

	p := pickBody(params)
	if p == nil {
		return nil, nil
	}
	data, contentType, err := codec.Marshal(p.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body parameter %s: %w", p.Name, err)
	}
	p.Consumed = true
	return &Payload{Data: data, ContentType: contentType}, nil
}

// pickBody prefers a value marked as body or form and falls back to the
// first unconsumed one. Route and header values are never picked.
func pickBody(params []*BoundParameter) *BoundParameter {
	var first *BoundParameter
	for _, p := range params {
		if p.Consumed || isNil(p.Value) || p.Source == SourceRoute || p.Source == SourceHeader {
			continue
		}
		if p.Source == SourceBody || p.Source == SourceForm {
			return p
		}
		if first == nil {
			first = p
		}
	}
	return first
}

func encodeMultipart(params []*BoundParameter, codec Codec) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range params {
		if p.Consumed || isNil(p.Value) {
			continue
		}
		if p.Source != SourceForm && !isFile(p.Value) {
			continue
		}
		if err := writeFormValue(w, p.Name, p.Value, codec); err != nil {
			return nil, fmt.Errorf("failed to encode form parameter %s: %w", p.Name, err)
		}
		p.Consumed = true
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Payload{Data: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}

func writeFormValue(w *multipart.Writer, name string, value any, codec Codec) error {
	v := indirect(reflect.ValueOf(value))
	if !v.IsValid() {
		return nil
	}
	if v.Type() == fileType {
		return writeFile(w, name, fileOf(v))
	}
	if isFileCollection(v.Type()) {
		return writeFiles(w, name, v)
	}

	var err error
	if eachScalar(v.Interface(), func(_ int, text string) {
		if err == nil {
			err = w.WriteField(name, text)
		}
	}) {
		return err
	}

	switch v.Kind() {
	case reflect.Struct:
		for _, f := range getTypeInfo(v.Type()).fields {
			member := fieldByIndex(v, f.index)
			if !member.IsValid() {
				continue
			}
			if err := writeFormMember(w, name+"."+f.name, member, codec); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			keys := v.MapKeys()
			sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
			for _, k := range keys {
				if err := writeFormMember(w, name+"."+k.String(), v.MapIndex(k), codec); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return writeEncoded(w, name, v.Interface(), codec)
}

// writeFormMember writes one member of a form object. Collections of
// simple values become indexed parts: name[0], name[1], ...
func writeFormMember(w *multipart.Writer, name string, member reflect.Value, codec Codec) error {
	member = indirect(member)
	if !member.IsValid() {
		return nil
	}
	if member.Type() == fileType {
		return writeFile(w, name, fileOf(member))
	}
	if isFileCollection(member.Type()) {
		return writeFiles(w, name, member)
	}
	if isSimpleType(member.Type()) {
		text, ok := formatValue(member)
		if !ok {
			return nil
		}
		return w.WriteField(name, text)
	}
	if isSimpleCollection(member.Type()) {
		var err error
		eachScalar(member.Interface(), func(i int, text string) {
			if err == nil {
				err = w.WriteField(name+"["+strconv.Itoa(i)+"]", text)
			}
		})
		return err
	}
	return writeEncoded(w, name, member.Interface(), codec)
}

func fileOf(v reflect.Value) *File {
	if v.CanAddr() {
		return v.Addr().Interface().(*File)
	}
	f := v.Interface().(File)
	return &f
}

// writeFiles writes one part per file, all under the same name. Nil
// elements are skipped.
func writeFiles(w *multipart.Writer, name string, files reflect.Value) error {
	for i := 0; i < files.Len(); i++ {
		elem := indirect(files.Index(i))
		if !elem.IsValid() {
			continue
		}
		if err := writeFile(w, name, fileOf(elem)); err != nil {
			return err
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, name string, f *File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = defaultFileContentType
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(f.FileName)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Content)
	return err
}

// writeEncoded writes a value serialized by codec as a single part.
func writeEncoded(w *multipart.Writer, name string, value any, codec Codec) error {
	data, contentType, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}
