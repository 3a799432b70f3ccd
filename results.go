package apicall

import (
	"net/http"
	"reflect"
)

// AnySuccess as Variant.Status matches any 2xx status not claimed by
// another variant.
const AnySuccess = 0

// Variant is one alternative of a union return shape.
type Variant struct {
	// Status the variant is selected by, or AnySuccess.
	Status int

	// Payload is the type decoded from the body. Nil means the body is
	// not read.
	Payload reflect.Type

	// Type of the value the variant produces.
	Type reflect.Type

	build func(raw *RawResponse, codec Codec) (any, error)
}

// VariantOf declares a variant with payload T. The decoded payload is
// passed to construct. An empty body gives the zero T.
func VariantOf[T, V any](status int, construct func(T) V) Variant {
	return Variant{
		Status:  status,
		Payload: reflect.TypeOf((*T)(nil)).Elem(),
		Type:    reflect.TypeOf((*V)(nil)).Elem(),
		build: func(raw *RawResponse, codec Codec) (any, error) {
			var payload T
			if len(raw.Body) != 0 {
				var err error
				payload, err = decodeInto[T](raw, codec)
				if err != nil {
					return nil, err
				}
			}
			return construct(payload), nil
		},
	}
}

// EmptyVariant declares a variant without payload that produces value.
func EmptyVariant[V any](status int, value V) Variant {
	return Variant{
		Status: status,
		Type:   reflect.TypeOf((*V)(nil)).Elem(),
		build: func(*RawResponse, Codec) (any, error) {
			return value, nil
		},
	}
}

// Results is the matched alternative of a union.
type Results struct {
	// Status is the actual response status.
	Status int

	// Value is the variant value, e.g. Ok[Account] or NotFound[string].
	Value any
}

// ResultAs returns the variant value if it has type V.
func ResultAs[V any](r Results) (V, bool) {
	v, ok := r.Value.(V)
	return v, ok
}

type Ok[T any] struct{ Value T }

type Created[T any] struct{ Value T }

type Accepted[T any] struct{ Value T }

type BadRequest[T any] struct{ Value T }

type NotFound[T any] struct{ Value T }

type Conflict[T any] struct{ Value T }

type UnprocessableEntity[T any] struct{ Value T }

type NoContent struct{}

type Unauthorized struct{}

type Forbidden struct{}

// Status is a payload-less variant for any other status code.
type Status struct{ Code int }

// OkOf matches any 2xx status without a more specific variant.
func OkOf[T any]() Variant {
	return VariantOf(AnySuccess, func(v T) Ok[T] { return Ok[T]{Value: v} })
}

func CreatedOf[T any]() Variant {
	return VariantOf(http.StatusCreated, func(v T) Created[T] { return Created[T]{Value: v} })
}

func AcceptedOf[T any]() Variant {
	return VariantOf(http.StatusAccepted, func(v T) Accepted[T] { return Accepted[T]{Value: v} })
}

func NoContentOf() Variant {
	return EmptyVariant(http.StatusNoContent, NoContent{})
}

func BadRequestOf[T any]() Variant {
	return VariantOf(http.StatusBadRequest, func(v T) BadRequest[T] { return BadRequest[T]{Value: v} })
}

func UnauthorizedOf() Variant {
	return EmptyVariant(http.StatusUnauthorized, Unauthorized{})
}

func ForbiddenOf() Variant {
	return EmptyVariant(http.StatusForbidden, Forbidden{})
}

func NotFoundOf[T any]() Variant {
	return VariantOf(http.StatusNotFound, func(v T) NotFound[T] { return NotFound[T]{Value: v} })
}

func ConflictOf[T any]() Variant {
	return VariantOf(http.StatusConflict, func(v T) Conflict[T] { return Conflict[T]{Value: v} })
}

func UnprocessableEntityOf[T any]() Variant {
	return VariantOf(http.StatusUnprocessableEntity, func(v T) UnprocessableEntity[T] {
		return UnprocessableEntity[T]{Value: v}
	})
}

// EmptyOf matches exactly status and yields Status{Code: status}.
func EmptyOf(status int) Variant {
	return EmptyVariant(status, Status{Code: status})
}
