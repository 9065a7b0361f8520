package rtmp

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

func TestShutdownDuringAcceptStorm(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.server.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	addr := env.server.Addr().String()
	served := make(chan error, 1)
	go func() { served <- env.server.Serve() }()

	stop := make(chan struct{})
	var dialers sync.WaitGroup
	for i := 0; i < 8; i++ {
		dialers.Add(1)
		go func() {
			defer dialers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
				if err != nil {
					continue
				}
				_ = conn.Close()
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	close(stop)
	dialers.Wait()
	if err := <-served; err != nil {
		t.Fatalf("serve: %v", err)
	}
	if n := len(env.server.Sessions()); n != 0 {
		t.Errorf("%d sessions left after shutdown", n)
	}
}

func TestServeConnAfterShutdownClosesConn(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.server.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	client, server := net.Pipe()
	defer client.Close()
	done := make(chan struct{})
	go func() {
		env.server.ServeConn(server)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("ServeConn did not return")
	}
	if _, err := client.Read(make([]byte, 1)); err != io.EOF && err != io.ErrClosedPipe {
		t.Errorf("expected closed pipe, got %v", err)
	}
}
