// Package openapiexamples collects example values of request bodies sent
// by apicall clients into OpenAPI component schemas.
//
//	collector := openapiexamples.New()
//	client := apicall.NewClient(actions, server.URL, apicall.WithExampleSink(collector))
//	... run the tests ...
//	doc := collector.Document("accounts", "1.0.0")
package openapiexamples

import (
	"encoding"
	"encoding/json"
	"io"
	"reflect"
	"sort"
	"sync"
	"time"

	spec "github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collector is an apicall.ExampleSink. The first example of each property
// is kept in its JSON form. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	schemas spec.Schemas
}

func New() *Collector {
	return &Collector{
		schemas: make(spec.Schemas),
	}
}

func (c *Collector) AddExample(typeKey, propertyKey string, example any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, has := c.schemas[typeKey]
	if !has {
		ref = spec.NewSchemaRef("", spec.NewObjectSchema())
		c.schemas[typeKey] = ref
	}
	prop, has := ref.Value.Properties[propertyKey]
	if !has {
		prop = spec.NewSchemaRef("", schemaOf(reflect.TypeOf(example)))
		ref.Value.Properties[propertyKey] = prop
	}
	if prop.Value.Example == nil {
		prop.Value.Example = jsonValue(example)
	}
}

// jsonValue converts an example to its JSON form, so uuid.UUID becomes a
// string and structs become maps.
func jsonValue(example any) any {
	data, err := json.Marshal(example)
	if err != nil {
		return example
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return example
	}
	return v
}

// TypeKeys returns the names of the types seen so far, sorted.
func (c *Collector) TypeKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.schemas))
	for key := range c.schemas {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Example returns the example of a property, if one was seen.
func (c *Collector) Example(typeKey, propertyKey string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, has := c.schemas[typeKey]
	if !has {
		return nil, false
	}
	prop, has := ref.Value.Properties[propertyKey]
	if !has {
		return nil, false
	}
	return prop.Value.Example, true
}

// Document returns an OpenAPI document whose components hold the
// collected schemas.
func (c *Collector) Document(title, version string) *spec.T {
	c.mu.Lock()
	defer c.mu.Unlock()
	schemas := make(spec.Schemas, len(c.schemas))
	for key, ref := range c.schemas {
		schemas[key] = ref
	}
	return &spec.T{
		OpenAPI: "3.0.0",
		Info: &spec.Info{
			Title:   title,
			Version: version,
		},
		Paths: spec.Paths{},
		Components: &spec.Components{
			Schemas: schemas,
		},
	}
}

func (c *Collector) WriteJSON(w io.Writer, title, version string) error {
	content, err := json.MarshalIndent(c.Document(title, version), "", " ")
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	uuidType          = reflect.TypeOf(uuid.UUID{})
	decimalType       = reflect.TypeOf(decimal.Decimal{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func schemaOf(t reflect.Type) *spec.Schema {
	if t == nil {
		return &spec.Schema{}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return spec.NewDateTimeSchema()
	case uuidType:
		return spec.NewStringSchema().WithFormat("uuid")
	case decimalType:
		return spec.NewStringSchema().WithFormat("decimal")
	}

	switch t.Kind() {
	case reflect.Bool:
		return spec.NewBoolSchema()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return spec.NewInt32Schema()
	case reflect.Int64, reflect.Uint64:
		return spec.NewInt64Schema()
	case reflect.Float32, reflect.Float64:
		return spec.NewFloat64Schema()
	case reflect.String:
		return spec.NewStringSchema()
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return spec.NewBytesSchema()
		}
		return spec.NewArraySchema().WithItems(schemaOf(t.Elem()))
	case reflect.Map:
		return spec.NewObjectSchema().WithAnyAdditionalProperties()
	case reflect.Struct:
		if reflect.PointerTo(t).Implements(textMarshalerType) {
			return spec.NewStringSchema()
		}
		return spec.NewObjectSchema()
	}
	return &spec.Schema{}
}
