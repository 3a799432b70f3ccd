package apicall

import (
	"encoding"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BoundParameter is one value participating in a call.
type BoundParameter struct {
	// Wire name after alias resolution.
	Name string

	// Value may be nil.
	Value any

	// Declared type used to pick the encoding.
	Type reflect.Type

	Source Source

	// Explicit is set when Source comes from an annotation rather than defaults.
	Explicit bool

	// Consumed is set once the value was placed into route, query, header or body.
	Consumed bool

	// fromProperty is set for values taken from a field of an expanded argument.
	// Objects bound this way are flattened under their own name.
	fromProperty bool
}

// File is a file-like value. It is always sent as a multipart form part.
type File struct {
	FileName    string
	ContentType string
	Content     []byte
}

// NewFile reads r into a File.
func NewFile(fileName, contentType string, r io.Reader) (*File, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &File{
		FileName:    fileName,
		ContentType: contentType,
		Content:     content,
	}, nil
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	durationType      = reflect.TypeOf(time.Duration(0))
	uuidType          = reflect.TypeOf(uuid.UUID{})
	decimalType       = reflect.TypeOf(decimal.Decimal{})
	fileType          = reflect.TypeOf(File{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Struct tags with explicit sources, in precedence order.
var sourceTags = []struct {
	tag    string
	source Source
}{
	{"url", SourceRoute},
	{"query", SourceQuery},
	{"form", SourceForm},
	{"header", SourceHeader},
	{"body", SourceBody},
}

type fieldInfo struct {
	index    []int
	name     string
	jsonName string
	source   Source
}

type typeInfo struct {
	fields  []fieldInfo
	hasBody bool
}

// typeInfos caches parsed tags per struct type. Entries are built once.
var typeInfos sync.Map

func getTypeInfo(t reflect.Type) *typeInfo {
	if info, has := typeInfos.Load(t); has {
		return info.(*typeInfo)
	}
	info := &typeInfo{}
	collectFields(t, nil, info)
	actual, _ := typeInfos.LoadOrStore(t, info)
	return actual.(*typeInfo)
}

func collectFields(t reflect.Type, index []int, info *typeInfo) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldIndex := append(append([]int(nil), index...), i)

		source, name, skip := fieldSource(field)
		if skip {
			continue
		}

		if field.Anonymous && source == SourceAuto {
			embedded := indirectType(field.Type)
			if embedded.Kind() == reflect.Struct && !isSimpleType(embedded) {
				collectFields(embedded, fieldIndex, info)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		if name == "" {
			name = field.Name
		}
		jsonName := field.Name
		if jsonTag := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]; jsonTag != "" && jsonTag != "-" {
			jsonName = jsonTag
		}
		if source == SourceBody {
			info.hasBody = true
		}
		info.fields = append(info.fields, fieldInfo{
			index:    fieldIndex,
			name:     name,
			jsonName: jsonName,
			source:   source,
		})
	}
}

func fieldSource(field reflect.StructField) (source Source, name string, skip bool) {
	for _, st := range sourceTags {
		value, has := field.Tag.Lookup(st.tag)
		if !has {
			continue
		}
		if value == "-" {
			return SourceAuto, "", true
		}
		return st.source, value, false
	}
	return SourceAuto, "", false
}

// fieldByIndex is like reflect.Value.FieldByIndex, but returns an invalid
// Value instead of panicking on nil embedded pointers.
func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 {
			for v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Value{}
				}
				v = v.Elem()
			}
		}
		v = v.Field(x)
	}
	return v
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// indirect follows pointers and interfaces. It returns an invalid Value for nil.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// isNilValue reports nil pointers, interfaces, slices and maps.
func isNilValue(v reflect.Value) bool {
	v = indirect(v)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.IsNil()
	}
	return false
}

func isNil(value any) bool {
	return isNilValue(reflect.ValueOf(value))
}

func isSimpleType(t reflect.Type) bool {
	t = indirectType(t)
	switch t {
	case timeType, durationType, uuidType, decimalType:
		return true
	case fileType:
		return false
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
}

// isSimpleCollection reports slices and arrays of simple values. []byte is not one.
func isSimpleCollection(t reflect.Type) bool {
	t = indirectType(t)
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	if t.Elem().Kind() == reflect.Uint8 {
		return false
	}
	return isSimpleType(t.Elem())
}

func isFileType(t reflect.Type) bool {
	return indirectType(t) == fileType
}

// isFileCollection reports slices and arrays of File or *File.
func isFileCollection(t reflect.Type) bool {
	t = indirectType(t)
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	return isFileType(t.Elem())
}

// isFile reports a file or a collection of files.
func isFile(value any) bool {
	v := indirect(reflect.ValueOf(value))
	return v.IsValid() && (v.Type() == fileType || isFileCollection(v.Type()))
}

// classifier turns call arguments into bound parameters.
type classifier struct {
	sink   ExampleSink
	logger *slog.Logger
}

func (c *classifier) classify(params []Param, args []any) []*BoundParameter {
	var bound []*BoundParameter
	for i, arg := range args {
		if i >= len(params) {
			c.logger.Debug("argument has no declared parameter, dropped",
				slog.Int("position", i),
				slog.String("type", fmt.Sprintf("%T", arg)))
			continue
		}
		bound = append(bound, c.classifyArg(params[i], arg)...)
	}
	return bound
}

func (c *classifier) classifyArg(param Param, arg any) []*BoundParameter {
	v := indirect(reflect.ValueOf(arg))
	if isNilValue(v) {
		return nil
	}
	declared := param.Type
	if declared == nil {
		declared = v.Type()
	}
	name := param.wireName()

	if param.From != SourceAuto {
		if param.From == SourceBody {
			c.pushExamples(v)
		}
		return []*BoundParameter{{Name: name, Value: arg, Type: declared, Source: param.From, Explicit: true}}
	}

	t := v.Type()
	switch {
	case isFileType(t), isFileCollection(t):
		return []*BoundParameter{{Name: name, Value: arg, Type: declared, Source: SourceForm}}
	case isSimpleType(t), isSimpleCollection(t):
		return []*BoundParameter{{Name: name, Value: arg, Type: declared, Source: SourceQuery}}
	case t.Kind() == reflect.Struct:
		info := getTypeInfo(t)
		if info.hasBody {
			c.pushExamples(v)
			return []*BoundParameter{{Name: name, Value: arg, Type: declared, Source: SourceBody}}
		}
		return c.expand(v, info)
	default:
		c.pushExamples(v)
		return []*BoundParameter{{Name: name, Value: arg, Type: declared, Source: SourceBody}}
	}
}

// expand binds every non-nil field of a struct argument on its own.
func (c *classifier) expand(v reflect.Value, info *typeInfo) []*BoundParameter {
	var bound []*BoundParameter
	for _, f := range info.fields {
		fv := fieldByIndex(v, f.index)
		if !fv.IsValid() || isNilValue(fv) {
			continue
		}
		value := fv.Interface()
		ft := indirect(fv).Type()

		if f.source != SourceAuto {
			bound = append(bound, &BoundParameter{
				Name:         f.name,
				Value:        value,
				Type:         fv.Type(),
				Source:       f.source,
				Explicit:     true,
				fromProperty: true,
			})
			continue
		}

		switch {
		case isFileType(ft), isFileCollection(ft):
			bound = append(bound, &BoundParameter{Name: f.name, Value: value, Type: fv.Type(), Source: SourceForm, fromProperty: true})
		case isSimpleType(ft), isSimpleCollection(ft):
			bound = append(bound, &BoundParameter{Name: f.name, Value: value, Type: fv.Type(), Source: SourceQuery, fromProperty: true})
		case ft.Kind() == reflect.Struct:
			if getTypeInfo(ft).hasBody {
				c.pushExamples(indirect(fv))
				bound = append(bound, &BoundParameter{Name: f.name, Value: value, Type: fv.Type(), Source: SourceBody, fromProperty: true})
				continue
			}
			bound = append(bound, expandNested(f.name, indirect(fv))...)
		default:
			bound = append(bound, &BoundParameter{Name: f.name, Value: value, Type: fv.Type(), Source: SourceQuery, fromProperty: true})
		}
	}
	return bound
}

// expandNested binds fields of a nested struct one level deep as Outer.Inner.
// Tagged fields keep their source and tag name.
func expandNested(prefix string, v reflect.Value) []*BoundParameter {
	var bound []*BoundParameter
	for _, f := range getTypeInfo(v.Type()).fields {
		fv := fieldByIndex(v, f.index)
		if !fv.IsValid() || isNilValue(fv) {
			continue
		}
		if f.source != SourceAuto {
			bound = append(bound, &BoundParameter{
				Name:         f.name,
				Value:        fv.Interface(),
				Type:         fv.Type(),
				Source:       f.source,
				Explicit:     true,
				fromProperty: true,
			})
			continue
		}
		source := SourceQuery
		if isFileType(fv.Type()) || isFileCollection(fv.Type()) {
			source = SourceForm
		}
		bound = append(bound, &BoundParameter{
			Name:         prefix + "." + f.name,
			Value:        fv.Interface(),
			Type:         fv.Type(),
			Source:       source,
			fromProperty: true,
		})
	}
	return bound
}

// pushExamples sends non-zero fields of a body value to the example sink.
func (c *classifier) pushExamples(v reflect.Value) {
	if c.sink == nil || v.Kind() != reflect.Struct || isSimpleType(v.Type()) {
		return
	}
	typeKey := v.Type().String()
	for _, f := range getTypeInfo(v.Type()).fields {
		fv := fieldByIndex(v, f.index)
		if !fv.IsValid() || fv.IsZero() {
			continue
		}
		c.sink.AddExample(typeKey, f.jsonName, fv.Interface())
	}
}
