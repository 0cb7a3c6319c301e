package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeHTTPDrainsInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("fertig"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serveHTTP(ctx, &http.Server{Handler: handler}, ln)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	var body []byte
	var status int
	go func() {
		defer wg.Done()
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return
		}
		defer resp.Body.Close()
		status = resp.StatusCode
		body, _ = io.ReadAll(resp.Body)
	}()

	// Cancel while the request is being handled: the server must drain it.
	<-started
	cancel()

	wg.Wait()
	require.NoError(t, <-serveErr)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fertig", string(body))
}

func TestServeHTTPStopsAcceptingAfterShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serveHTTP(ctx, &http.Server{Handler: http.NotFoundHandler()}, ln)
	}()

	cancel()
	require.NoError(t, <-serveErr)

	_, err = net.DialTimeout("tcp", addr, 100*time.Millisecond)
	assert.Error(t, err, "listener must be closed after shutdown")
}
