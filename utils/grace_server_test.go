package utils

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGraceServerRunsClosersOnShutdown(t *testing.T) {
	srv := GraceServer("127.0.0.1:0", http.NotFoundHandler())
	closed := make(chan struct{})
	srv.OnShutdown(func() error {
		close(closed)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()

	srv.shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case <-closed:
	default:
		t.Fatal("closer was not run")
	}
}
