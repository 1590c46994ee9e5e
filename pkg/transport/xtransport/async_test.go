package xtransport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrest/pkg/transport/xapierr"
)

func TestGo_SameContractAsExecute(t *testing.T) {
	srv, calls := countingServer(t,
		status(http.StatusServiceUnavailable),
		jsonStatus(http.StatusOK, `{"ok":true}`),
		jsonStatus(http.StatusNotFound, `{"message":"missing"}`),
	)
	tr := newTestTransport(t, srv.URL, nil)

	f := tr.Go(context.Background(), Request{Method: http.MethodGet, Path: "works.get"})
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("future not completed")
	}
	resp, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	// 结果可重复读取
	again, err := f.Result()
	require.NoError(t, err)
	assert.Same(t, resp, again)

	f = tr.Go(context.Background(), Request{Method: http.MethodGet, Path: "works.get"})
	_, err = f.Result()
	apiErr := requireAPIError(t, err, xapierr.KindNotFound)
	assert.Equal(t, "missing", apiErr.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGo_WaitReturnsOnContextDone(t *testing.T) {
	release := make(chan struct{})
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})
	tr := newTestTransport(t, srv.URL, nil)

	f := tr.Go(context.Background(), Request{Method: http.MethodGet, Path: "slow"})

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Wait(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// 等待超时不影响请求本身
	close(release)
	resp, err := f.Wait(nil) //nolint:staticcheck // nil ctx 等价于 Result
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGo_CancelAbortsRequest(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	tr := newTestTransport(t, srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	f := tr.Go(ctx, Request{Method: http.MethodGet, Path: "slow"})
	cancel()

	_, err := f.Result()
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, tr.IsCircuitOpen())
}
