package closingclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/starius/apicall"
	"github.com/stretchr/testify/require"
)

func TestClosingClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		sleep, err := time.ParseDuration(r.URL.Query().Get("sleep"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case <-time.After(sleep):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	actions := []*apicall.Action{{
		Controller: &apicall.Controller{Name: "HelloController"},
		Name:       "Hello",
		Method:     http.MethodGet,
		Route:      "hello",
		Params:     []apicall.Param{{Name: "sleep"}},
	}}
	hello := func(client *apicall.Client, sleep time.Duration) error {
		_, err := client.Call(context.Background(), apicall.CallDescriptor{
			Method: "Hello.Hello",
			Args:   []any{sleep},
		})
		return err
	}

	t.Run("normal client", func(t *testing.T) {
		client := apicall.NewClient(actions, server.URL)

		var errCall, errClose error
		var wg sync.WaitGroup

		t1 := time.Now()

		wg.Add(1)
		go func() {
			defer wg.Done()
			errCall = hello(client, time.Second)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(100 * time.Millisecond)

			t1 := time.Now()
			errClose = client.Close()
			spent := time.Since(t1)

			if spent > 10*time.Millisecond {
				errClose = fmt.Errorf("Expected Close to spend 0.01s or less, but spent %s.", spent)
			}
		}()

		wg.Wait()

		require.NoError(t, errCall)
		require.NoError(t, errClose)

		spent := time.Since(t1)
		if spent < time.Second {
			t.Errorf("In normal client expected to spend 1s or more, but spent %s.", spent)
		}
	})

	t.Run("closing client", func(t *testing.T) {
		cc, err := New(http.DefaultClient)
		require.NoError(t, err)
		client := apicall.NewClient(actions, server.URL, apicall.CustomClient(cc))

		var errCall, errClose error
		var wg sync.WaitGroup

		t1 := time.Now()

		wg.Add(1)
		go func() {
			defer wg.Done()
			errCall = hello(client, time.Second)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(100 * time.Millisecond)

			t1 := time.Now()
			errClose = client.Close()
			spent := time.Since(t1)

			if spent > 10*time.Millisecond {
				errClose = fmt.Errorf("Expected Close to spend 0.01s or less, but spent %s.", spent)
			}
		}()

		wg.Wait()

		var transportErr *apicall.TransportError
		require.ErrorAs(t, errCall, &transportErr)
		require.ErrorIs(t, errCall, context.Canceled)
		require.NoError(t, errClose)

		spent := time.Since(t1)
		if spent > time.Second/2 {
			t.Errorf("In closing client expected to spend 0.5s or less, but spent %s.", spent)
		}

		// Calls after Close fail without reaching the server.
		err = hello(client, 0)
		require.True(t, errors.Is(err, ErrClosing), "got %v", err)
	})

	t.Run("closing client, many parallel requests", func(t *testing.T) {
		cc, err := New(http.DefaultClient)
		require.NoError(t, err)
		client := apicall.NewClient(actions, server.URL, apicall.CustomClient(cc))

		var errClose1, errClose2, errClose3 error
		var wg sync.WaitGroup

		t1 := time.Now()

		n := 50
		wg.Add(n)
		for i := 0; i < n; i++ {
			time.AfterFunc(time.Duration(i)*time.Millisecond*10, func() {
				defer wg.Done()
				err := hello(client, 200*time.Millisecond)
				t.Log(i, err)
			})
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(250 * time.Millisecond)

			if inflight := cc.Inflight(); inflight >= 25 {
				errClose1 = fmt.Errorf("Expected to have < 25 requests in flight, got %d", inflight)
			}

			t1 := time.Now()
			errClose2 = client.Close()
			spent := time.Since(t1)

			if spent > 10*time.Millisecond {
				errClose3 = fmt.Errorf("Expected Close to spend 0.01s or less, but spent %s.", spent)
			}
		}()

		wg.Wait()

		require.NoError(t, errClose1)
		require.NoError(t, errClose2)
		require.NoError(t, errClose3)
		require.Equal(t, 0, cc.Inflight())

		spent := time.Since(t1)
		if spent > 600*time.Millisecond {
			t.Errorf("Expected to spend 0.6s or less, but spent %s.", spent)
		}
	})
}

func TestNewRejectsNil(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
