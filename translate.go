package apicall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawResponse is a fully read HTTP response.
type RawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (r *RawResponse) ContentType() string {
	return r.Header.Get("Content-Type")
}

func (r *RawResponse) statusError() *StatusError {
	return &StatusError{
		Code:   r.StatusCode,
		Status: r.Status,
		Header: r.Header,
		Body:   r.Body,
	}
}

func isSuccess(status int) bool {
	return 200 <= status && status < 300
}

// translate maps a response to the value of the declared shape.
func translate(shape *Shape, raw *RawResponse, codec Codec) (any, error) {
	if shape.kind == ShapeUnion {
		return translateUnion(shape, raw, codec)
	}
	if !isSuccess(raw.StatusCode) {
		return nil, raw.statusError()
	}
	if shape.kind == ShapeNoContent || shape.decode == nil {
		return nil, nil
	}
	return shape.decode(raw, codec)
}

func translateUnion(shape *Shape, raw *RawResponse, codec Codec) (any, error) {
	variant := shape.match(raw.StatusCode)
	if variant == nil {
		err := &UnmappedVariantError{
			Union:  shape.name,
			Status: raw.StatusCode,
			Body:   raw.Body,
		}
		if !isSuccess(raw.StatusCode) {
			err.err = raw.statusError()
		}
		return nil, err
	}

	value, err := variant.build(raw, codec)
	if err != nil {
		return nil, err
	}
	res := Results{Status: raw.StatusCode, Value: value}
	if shape.convert != nil {
		return shape.convert(res), nil
	}
	return res, nil
}

func isJSONString(body []byte) bool {
	body = bytes.TrimSpace(body)
	return len(body) >= 2 && body[0] == '"' && body[len(body)-1] == '"'
}

// primitiveText returns the body with JSON string quotes removed.
func isJSONNull(body []byte) bool {
	return string(bytes.TrimSpace(body)) == "null"
}

func primitiveText(body []byte) (string, error) {
	if isJSONNull(body) {
		return "", nil
	}
	if isJSONString(body) {
		var s string
		if err := json.Unmarshal(bytes.TrimSpace(body), &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(body), nil
}

func parsePrimitive[T Primitive](body []byte) (T, error) {
	var v T
	text, err := primitiveText(body)
	if err != nil {
		return v, err
	}

	switch p := any(&v).(type) {
	case *uuid.UUID:
		*p, err = uuid.Parse(strings.TrimSpace(text))
		return v, err
	case *decimal.Decimal:
		*p, err = decimal.NewFromString(strings.TrimSpace(text))
		return v, err
	case *time.Time:
		*p, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(text))
		return v, err
	}

	rv := reflect.ValueOf(&v).Elem()
	if rv.Kind() == reflect.String {
		rv.SetString(text)
		return v, nil
	}
	text = strings.TrimSpace(text)
	switch rv.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return v, err
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, rv.Type().Bits())
		if err != nil {
			return v, err
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(text, 10, rv.Type().Bits())
		if err != nil {
			return v, err
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, rv.Type().Bits())
		if err != nil {
			return v, err
		}
		rv.SetFloat(f)
	default:
		return v, fmt.Errorf("unsupported primitive type %s", rv.Type())
	}
	return v, nil
}
