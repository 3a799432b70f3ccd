package apicall

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

// Codec serializes request bodies and deserializes response bodies.
type Codec interface {
	Marshal(v any) (data []byte, contentType string, err error)
	Unmarshal(data []byte, contentType string, v any) error
}

const (
	jsonContentType     = "application/json; charset=utf-8"
	yamlContentType     = "application/yaml"
	protobufContentType = "application/x-protobuf"
)

// JSONCodec is the default codec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return data, jsonContentType, nil
}

func (JSONCodec) Unmarshal(data []byte, contentType string, v any) error {
	return json.Unmarshal(data, v)
}

// YAMLCodec sends and reads YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return data, yamlContentType, nil
}

func (YAMLCodec) Unmarshal(data []byte, contentType string, v any) error {
	if isJSON(contentType) {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

// ProtobufCodec sends protobuf messages in binary form. Responses with a
// JSON content type are parsed with protojson. Values which are not
// messages fall back to encoding/json.
type ProtobufCodec struct{}

func (ProtobufCodec) Marshal(v any) ([]byte, string, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return JSONCodec{}.Marshal(v)
	}
	data, err := proto.Marshal(m)
	if err != nil {
		return nil, "", err
	}
	return data, protobufContentType, nil
}

func (ProtobufCodec) Unmarshal(data []byte, contentType string, v any) error {
	m, ok := protoTarget(v)
	if !ok {
		return json.Unmarshal(data, v)
	}
	if isJSON(contentType) {
		return protojson.Unmarshal(data, m)
	}
	return proto.Unmarshal(data, m)
}

// protoTarget accepts *Msg and **Msg; the latter is allocated if nil.
func protoTarget(v any) (proto.Message, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, false
	}
	if elem := rv.Elem(); elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			elem.Set(reflect.New(elem.Type().Elem()))
		}
		m, ok := elem.Interface().(proto.Message)
		return m, ok
	}
	m, ok := v.(proto.Message)
	return m, ok
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// decodeInto deserializes a response body into a new T.
func decodeInto[T any](raw *RawResponse, codec Codec) (T, error) {
	var v T
	// Plain text bodies are common for string payloads of error statuses.
	if s, ok := any(&v).(*string); ok && !isJSONString(raw.Body) {
		if !isJSONNull(raw.Body) {
			*s = string(raw.Body)
		}
		return v, nil
	}
	if err := codec.Unmarshal(raw.Body, raw.ContentType(), &v); err != nil {
		return v, &TranslationError{
			Type:        typeName[T](),
			ContentType: raw.ContentType(),
			Body:        raw.Body,
			Err:         err,
		}
	}
	return v, nil
}

func typeName[T any]() string {
	return fmt.Sprint(reflect.TypeOf((*T)(nil)).Elem())
}
