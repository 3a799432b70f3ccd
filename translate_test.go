package apicall

import (
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func jsonResponse(status int, body string) *RawResponse {
	return &RawResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func TestTranslatePrimitives(t *testing.T) {
	codec := JSONCodec{}

	t.Run("quoted guid", func(t *testing.T) {
		shape := ReturnsPrimitive[uuid.UUID]()
		got, err := translate(&shape, jsonResponse(200, `"6ec3e17e-c51c-43f0-b5d0-02889912a78c"`), codec)
		require.NoError(t, err)
		require.Equal(t, uuid.MustParse("6ec3e17e-c51c-43f0-b5d0-02889912a78c"), got)
	})

	t.Run("bare guid", func(t *testing.T) {
		shape := ReturnsPrimitive[uuid.UUID]()
		got, err := translate(&shape, jsonResponse(200, "6ec3e17e-c51c-43f0-b5d0-02889912a78c\n"), codec)
		require.NoError(t, err)
		require.Equal(t, uuid.MustParse("6ec3e17e-c51c-43f0-b5d0-02889912a78c"), got)
	})

	t.Run("string", func(t *testing.T) {
		shape := ReturnsPrimitive[string]()
		got, err := translate(&shape, jsonResponse(200, `"a \"quoted\" text"`), codec)
		require.NoError(t, err)
		require.Equal(t, `a "quoted" text`, got)

		got, err = translate(&shape, jsonResponse(200, "plain text"), codec)
		require.NoError(t, err)
		require.Equal(t, "plain text", got)

		got, err = translate(&shape, jsonResponse(200, "null"), codec)
		require.NoError(t, err)
		require.Equal(t, "", got)
	})

	t.Run("numbers", func(t *testing.T) {
		intShape := ReturnsPrimitive[int64]()
		got, err := translate(&intShape, jsonResponse(200, "42\n"), codec)
		require.NoError(t, err)
		require.Equal(t, int64(42), got)

		floatShape := ReturnsPrimitive[float64]()
		got, err = translate(&floatShape, jsonResponse(200, "0.5"), codec)
		require.NoError(t, err)
		require.Equal(t, 0.5, got)

		decimalShape := ReturnsPrimitive[decimal.Decimal]()
		got, err = translate(&decimalShape, jsonResponse(200, `"10.25"`), codec)
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("10.25").Equal(got.(decimal.Decimal)))

		boolShape := ReturnsPrimitive[bool]()
		got, err = translate(&boolShape, jsonResponse(200, "true"), codec)
		require.NoError(t, err)
		require.Equal(t, true, got)
	})

	t.Run("time", func(t *testing.T) {
		shape := ReturnsPrimitive[time.Time]()
		got, err := translate(&shape, jsonResponse(200, `"2024-03-01T12:30:00Z"`), codec)
		require.NoError(t, err)
		require.True(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC).Equal(got.(time.Time)))
	})

	t.Run("parse error", func(t *testing.T) {
		shape := ReturnsPrimitive[int]()
		_, err := translate(&shape, jsonResponse(200, "forty-two"), codec)
		var translationErr *TranslationError
		require.ErrorAs(t, err, &translationErr)
		require.Equal(t, "int", translationErr.Type)
		require.Equal(t, "forty-two", string(translationErr.Body))
	})
}

func TestTranslateUnion(t *testing.T) {
	codec := JSONCodec{}
	shape := ReturnsOneOf(
		OkOf[account](),
		NotFoundOf[string](),
		NoContentOf(),
	)

	t.Run("ok", func(t *testing.T) {
		got, err := translate(&shape, jsonResponse(200, `{"id":1,"name":"main"}`), codec)
		require.NoError(t, err)
		res := got.(Results)
		require.Equal(t, 200, res.Status)
		ok, has := ResultAs[Ok[account]](res)
		require.True(t, has)
		require.Equal(t, account{ID: 1, Name: "main"}, ok.Value)
	})

	t.Run("any success", func(t *testing.T) {
		got, err := translate(&shape, jsonResponse(201, `{"id":2}`), codec)
		require.NoError(t, err)
		require.Equal(t, Results{Status: 201, Value: Ok[account]{Value: account{ID: 2}}}, got)
	})

	t.Run("exact status wins", func(t *testing.T) {
		got, err := translate(&shape, jsonResponse(204, "ignored"), codec)
		require.NoError(t, err)
		require.Equal(t, Results{Status: 204, Value: NoContent{}}, got)
	})

	t.Run("not found", func(t *testing.T) {
		got, err := translate(&shape, jsonResponse(404, `"missing"`), codec)
		require.NoError(t, err)
		require.Equal(t, Results{Status: 404, Value: NotFound[string]{Value: "missing"}}, got)
	})

	t.Run("not found with null", func(t *testing.T) {
		got, err := translate(&shape, jsonResponse(404, "null\n"), codec)
		require.NoError(t, err)
		require.Equal(t, Results{Status: 404, Value: NotFound[string]{}}, got)
	})

	t.Run("not found with plain text", func(t *testing.T) {
		got, err := translate(&shape, jsonResponse(404, "no such account"), codec)
		require.NoError(t, err)
		require.Equal(t, Results{Status: 404, Value: NotFound[string]{Value: "no such account"}}, got)
	})

	t.Run("unmapped error status", func(t *testing.T) {
		_, err := translate(&shape, jsonResponse(409, "conflict"), codec)
		var unmapped *UnmappedVariantError
		require.ErrorAs(t, err, &unmapped)
		require.Equal(t, 409, unmapped.Status)
		require.Equal(t, shape.Name(), unmapped.Union)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, "conflict", string(statusErr.Body))
	})

	t.Run("unmapped success", func(t *testing.T) {
		only := ReturnsOneOf(NotFoundOf[string]())
		_, err := translate(&only, jsonResponse(200, "{}"), codec)
		var unmapped *UnmappedVariantError
		require.ErrorAs(t, err, &unmapped)
		require.Nil(t, errors.Unwrap(err))
	})

	t.Run("bad payload", func(t *testing.T) {
		_, err := translate(&shape, jsonResponse(200, `{"id":"x"}`), codec)
		var translationErr *TranslationError
		require.ErrorAs(t, err, &translationErr)
		require.Equal(t, "apicall.account", translationErr.Type)
	})

	t.Run("converter", func(t *testing.T) {
		converted := ReturnsUnion("AccountOrMissing", func(r Results) any {
			if ok, has := ResultAs[Ok[account]](r); has {
				return ok.Value.Name
			}
			return ""
		}, OkOf[account](), NotFoundOf[string]())
		got, err := translate(&converted, jsonResponse(200, `{"name":"main"}`), codec)
		require.NoError(t, err)
		require.Equal(t, "main", got)
		require.Equal(t, "AccountOrMissing", converted.Name())
	})
}

func TestTranslateNonUnion(t *testing.T) {
	codec := JSONCodec{}

	t.Run("status error keeps body", func(t *testing.T) {
		shape := Returns[account]()
		_, err := translate(&shape, jsonResponse(400, `{"error":"name is required"}`), codec)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, 400, statusErr.HttpCode())
		require.Equal(t, `{"error":"name is required"}`, string(statusErr.Body))
		require.Equal(t, "name is required", statusErr.Message())
		require.Equal(t, "unexpected response status 400 Bad Request: name is required", statusErr.Error())
	})

	t.Run("status error envelope code", func(t *testing.T) {
		shape := Returns[account]()
		_, err := translate(&shape, jsonResponse(409, `{"code":"already_exists","message":"duplicate"}`), codec)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, "duplicate", statusErr.Message())
		require.Equal(t, "already_exists", statusErr.ErrorCode())
	})

	t.Run("no content", func(t *testing.T) {
		var shape Shape
		got, err := translate(&shape, jsonResponse(200, "anything"), codec)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("outcome", func(t *testing.T) {
		shape := ReturnsOutcome[account]()
		raw := jsonResponse(201, `{"id":3}`)
		raw.Header.Set("Location", "/accounts/3")
		got, err := translate(&shape, raw, codec)
		require.NoError(t, err)
		out := got.(Outcome[account])
		require.Equal(t, 201, out.Status)
		require.Equal(t, "/accounts/3", out.Header.Get("Location"))
		require.Equal(t, 3, out.Value.ID)
	})

	t.Run("decode", func(t *testing.T) {
		shape := Returns[[]account]()
		got, err := translate(&shape, jsonResponse(200, `[{"id":1},{"id":2}]`), codec)
		require.NoError(t, err)
		require.Equal(t, []account{{ID: 1}, {ID: 2}}, got)
	})
}

func TestShapeMetadata(t *testing.T) {
	cases := []struct {
		shape Shape
		kind  ShapeKind
	}{
		{Shape{}, ShapeNoContent},
		{ReturnsNothing(), ShapeNoContent},
		{ReturnsPrimitive[int](), ShapePrimitive},
		{ReturnsOutcome[account](), ShapeOutcome},
		{Returns[[]account](), ShapeDecode},
		{ReturnsOneOf(NoContentOf()), ShapeUnion},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, tc.shape.Kind(), tc.kind.String())
	}
	require.Equal(t, "nothing", ReturnsNothing().Name())
	require.Equal(t, "int", ReturnsPrimitive[int]().Name())

	union := ReturnsOneOf(OkOf[account](), NotFoundOf[string](), NoContentOf())
	variants := union.Variants()
	require.Len(t, variants, 3)

	require.Equal(t, AnySuccess, variants[0].Status)
	require.Equal(t, reflect.TypeOf(account{}), variants[0].Payload)
	require.Equal(t, reflect.TypeOf(Ok[account]{}), variants[0].Type)

	require.Equal(t, http.StatusNotFound, variants[1].Status)
	require.Equal(t, reflect.TypeOf(""), variants[1].Payload)
	require.Equal(t, reflect.TypeOf(NotFound[string]{}), variants[1].Type)

	// Variants without payload never read the body.
	require.Equal(t, http.StatusNoContent, variants[2].Status)
	require.Nil(t, variants[2].Payload)
	require.Equal(t, reflect.TypeOf(NoContent{}), variants[2].Type)

	require.Nil(t, ReturnsPrimitive[int]().Variants())
}
