package apicall

import (
	"encoding"
	"reflect"
	"strconv"
	"time"
)

// formatScalar returns the text form of a simple value used in routes,
// query strings, headers and form fields. It reports false for nil and
// for values that have no text form.
func formatScalar(value any) (string, bool) {
	v := indirect(reflect.ValueOf(value))
	if !v.IsValid() {
		return "", false
	}
	return formatValue(v)
}

func formatValue(v reflect.Value) (string, bool) {
	switch x := v.Interface().(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	case time.Duration:
		return x.String(), true
	case string:
		return x, true
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return "", false
		}
		return string(text), true
	}

	// MarshalText with a pointer receiver.
	if reflect.PointerTo(v.Type()).Implements(textMarshalerType) {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		text, err := ptr.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", false
		}
		return string(text), true
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}

// eachScalar calls fn for every element of a simple collection, or once
// for a simple value. Nil elements are skipped.
func eachScalar(value any, fn func(i int, text string)) bool {
	v := indirect(reflect.ValueOf(value))
	if !v.IsValid() {
		return false
	}
	if isSimpleType(v.Type()) {
		text, ok := formatValue(v)
		if ok {
			fn(0, text)
		}
		return ok
	}
	if !isSimpleCollection(v.Type()) {
		return false
	}
	n := 0
	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		if !elem.IsValid() {
			continue
		}
		if text, ok := formatValue(elem); ok {
			fn(n, text)
			n++
		}
	}
	return true
}
