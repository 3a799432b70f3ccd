package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starius/apicall"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   codes.Code
	}{
		{http.StatusOK, codes.OK},
		{http.StatusCreated, codes.OK},
		{http.StatusBadRequest, codes.InvalidArgument},
		{http.StatusUnauthorized, codes.Unauthenticated},
		{http.StatusForbidden, codes.PermissionDenied},
		{http.StatusNotFound, codes.NotFound},
		{http.StatusMethodNotAllowed, codes.Unimplemented},
		{http.StatusConflict, codes.AlreadyExists},
		{http.StatusTeapot, codes.FailedPrecondition},
		{http.StatusTooManyRequests, codes.ResourceExhausted},
		{http.StatusInternalServerError, codes.Unknown},
		{http.StatusNotImplemented, codes.Unimplemented},
		{http.StatusServiceUnavailable, codes.Unavailable},
		{http.StatusGatewayTimeout, codes.DeadlineExceeded},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, FromHTTPStatus(tc.status), "status %d", tc.status)
	}
}

func TestCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"code error", NotFound("no account %d", 1), codes.NotFound},
		{"wrapped code error", fmt.Errorf("call: %w", PermissionDenied("no")), codes.PermissionDenied},
		{"status", &apicall.StatusError{Code: http.StatusConflict}, codes.AlreadyExists},
		{"unmapped variant", &apicall.UnmappedVariantError{Status: http.StatusUnauthorized}, codes.Unauthenticated},
		{"route", &apicall.MalformedRouteError{Missing: []string{"id"}}, codes.InvalidArgument},
		{"transport", &apicall.TransportError{Err: stderrors.New("connection refused")}, codes.Unavailable},
		{"canceled", &apicall.TransportError{Err: context.Canceled}, codes.Canceled},
		{"deadline", &apicall.TransportError{Err: context.DeadlineExceeded}, codes.DeadlineExceeded},
		{"translation", &apicall.TranslationError{Err: stderrors.New("bad json")}, codes.Internal},
		{"other", stderrors.New("boom"), codes.Unknown},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Code(tc.err), tc.name)
	}
}

func TestCodeOfCall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/Items/", func(w http.ResponseWriter, r *http.Request) {
		err := NotFound("item %s not found", r.URL.Path)
		http.Error(w, err.Error(), err.HttpCode())
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	items := &apicall.Controller{Name: "ItemsController", Route: "api/[controller]"}
	client := apicall.NewClient([]*apicall.Action{{
		Controller: items,
		Name:       "Get",
		Method:     http.MethodGet,
		Route:      "{id:int}",
		Params:     []apicall.Param{{Name: "id"}},
		Returns:    apicall.Returns[map[string]any](),
	}}, server.URL)
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	_, err := apicall.Invoke[map[string]any](context.Background(), client, "Items.Get", 5)
	require.Error(t, err)
	require.Equal(t, codes.NotFound, Code(err))

	var statusErr *apicall.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "item /api/Items/5 not found\n", string(statusErr.Body))
}
