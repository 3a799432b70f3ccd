package apicall

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShapeKind tells how a response is turned into a result.
type ShapeKind int

const (
	// ShapeNoContent discards the body and returns nil.
	ShapeNoContent ShapeKind = iota

	// ShapePrimitive parses the body as a single simple value.
	ShapePrimitive

	// ShapeOutcome decodes the body into Outcome[T].
	ShapeOutcome

	// ShapeUnion selects one of several variants by status code.
	ShapeUnion

	// ShapeDecode decodes the body with the codec.
	ShapeDecode
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeNoContent:
		return "no-content"
	case ShapePrimitive:
		return "primitive"
	case ShapeOutcome:
		return "outcome"
	case ShapeUnion:
		return "union"
	case ShapeDecode:
		return "decode"
	}
	return "unknown"
}

// Shape is the declared return shape of an action. The zero Shape
// expects no payload.
type Shape struct {
	kind ShapeKind
	name string

	// decode builds the result of a 2xx response for non-union shapes.
	decode func(raw *RawResponse, codec Codec) (any, error)

	variants []Variant
	convert  func(Results) any
}

func (s Shape) Kind() ShapeKind {
	return s.kind
}

// Name is the Go type the shape produces.
func (s Shape) Name() string {
	if s.kind == ShapeNoContent {
		return "nothing"
	}
	return s.name
}

// Variants returns the variants of a union shape.
func (s Shape) Variants() []Variant {
	return s.variants
}

// Primitive lists the types a primitive shape can produce.
type Primitive interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 |
		uuid.UUID | decimal.Decimal | time.Time
}

// ReturnsNothing expects no payload. The result of the call is nil.
func ReturnsNothing() Shape {
	return Shape{kind: ShapeNoContent}
}

// ReturnsPrimitive parses the body as T. JSON string literals are
// unquoted first, so both `"3fa85f64-..."` and `3fa85f64-...` give the
// same uuid.UUID.
func ReturnsPrimitive[T Primitive]() Shape {
	return Shape{
		kind: ShapePrimitive,
		name: typeName[T](),
		decode: func(raw *RawResponse, _ Codec) (any, error) {
			v, err := parsePrimitive[T](raw.Body)
			if err != nil {
				return nil, &TranslationError{
					Type:        typeName[T](),
					ContentType: raw.ContentType(),
					Body:        raw.Body,
					Err:         err,
				}
			}
			return v, nil
		},
	}
}

// Outcome is a decoded value together with the response metadata.
type Outcome[T any] struct {
	Status int
	Header http.Header
	Value  T
}

// ReturnsOutcome decodes the body into Outcome[T]. An empty body leaves
// Value zero.
func ReturnsOutcome[T any]() Shape {
	return Shape{
		kind: ShapeOutcome,
		name: typeName[Outcome[T]](),
		decode: func(raw *RawResponse, codec Codec) (any, error) {
			out := Outcome[T]{
				Status: raw.StatusCode,
				Header: raw.Header,
			}
			if len(raw.Body) == 0 {
				return out, nil
			}
			v, err := decodeInto[T](raw, codec)
			if err != nil {
				return nil, err
			}
			out.Value = v
			return out, nil
		},
	}
}

// Returns decodes the body into T with the codec of the client.
func Returns[T any]() Shape {
	return Shape{
		kind: ShapeDecode,
		name: typeName[T](),
		decode: func(raw *RawResponse, codec Codec) (any, error) {
			if len(raw.Body) == 0 {
				var zero T
				return zero, nil
			}
			return decodeInto[T](raw, codec)
		},
	}
}

// ReturnsOneOf declares a union of variants. The call result is Results.
func ReturnsOneOf(variants ...Variant) Shape {
	return ReturnsUnion("", nil, variants...)
}

// ReturnsUnion declares a union of variants with a custom result type.
// convert receives the matched variant; nil convert returns Results as is.
// An empty name is derived from the variants.
func ReturnsUnion(name string, convert func(Results) any, variants ...Variant) Shape {
	if len(variants) == 0 {
		panic("union without variants")
	}
	if name == "" {
		names := make([]string, len(variants))
		for i, v := range variants {
			names[i] = v.Type.String()
		}
		name = "OneOf[" + strings.Join(names, ", ") + "]"
	}
	return Shape{
		kind:     ShapeUnion,
		name:     name,
		variants: variants,
		convert:  convert,
	}
}

// match finds the variant for a status: the exact status first, then the
// first AnySuccess variant for 2xx statuses.
func (s Shape) match(status int) *Variant {
	for i := range s.variants {
		if s.variants[i].Status == status {
			return &s.variants[i]
		}
	}
	if !isSuccess(status) {
		return nil
	}
	for i := range s.variants {
		if s.variants[i].Status == AnySuccess {
			return &s.variants[i]
		}
	}
	return nil
}
