package lifecycle

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCoordinator(t *testing.T, handler http.Handler, opts ...Option) (*Coordinator, *Shutdown, <-chan error) {
	t.Helper()
	shutdown := NewShutdown()
	c := NewCoordinator("127.0.0.1:0", handler, shutdown, opts...)
	assert.Equal(t, Starting, c.State())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background())
	}()

	select {
	case <-c.Ready():
	case err := <-done:
		t.Fatalf("coordinator exited before serving: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("coordinator did not become ready")
	}
	require.Equal(t, Serving, c.State())
	return c, shutdown, done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
		return nil
	}
}

func TestCoordinator_ServesAndStops(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})
	c, shutdown, done := startCoordinator(t, handler)

	resp, err := http.Get("http://" + c.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	shutdown.Trigger("test").Fire()
	require.NoError(t, waitRun(t, done))
	assert.Equal(t, Stopped, c.State())

	_, err = net.DialTimeout("tcp", c.Addr().String(), time.Second)
	assert.Error(t, err, "listener should be closed after stop")
}

func TestCoordinator_DrainsInFlightRequests(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		io.WriteString(w, "finished")
	})
	c, shutdown, done := startCoordinator(t, handler)
	addr := c.Addr().String()

	type result struct {
		body string
		err  error
	}
	inFlight := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + addr + "/slow")
		if err != nil {
			inFlight <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		inFlight <- result{body: string(body), err: err}
	}()
	<-entered

	trigger := shutdown.Trigger("test")
	assert.True(t, trigger.Fire())
	require.Eventually(t, func() bool { return c.State() == Draining }, 2*time.Second, 10*time.Millisecond)

	// 두 번째 트리거는 아무 효과 없음
	assert.False(t, trigger.Fire())
	assert.Equal(t, Draining, c.State())

	// 드레인 중에는 새 연결을 받지 않음
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)

	close(release)

	res := <-inFlight
	require.NoError(t, res.err)
	assert.Equal(t, "finished", res.body)

	require.NoError(t, waitRun(t, done))
	assert.Equal(t, Stopped, c.State())
}

func TestCoordinator_DrainTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	entered := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})
	c, shutdown, done := startCoordinator(t, handler, WithDrainTimeout(100*time.Millisecond))

	go func() {
		resp, err := http.Get("http://" + c.Addr().String() + "/stuck")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-entered

	shutdown.Trigger("test").Fire()
	err := waitRun(t, done)
	assert.Error(t, err)
	assert.Equal(t, Stopped, c.State())
}

func TestCoordinator_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	shutdown := NewShutdown()
	c := NewCoordinator("127.0.0.1:0", http.NotFoundHandler(), shutdown)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()
	<-c.Ready()

	cancel()
	require.NoError(t, waitRun(t, done))
	assert.Equal(t, Stopped, c.State())

	// cancellation is delivered through the shutdown signal
	assert.True(t, shutdown.Fired())
	assert.False(t, shutdown.Trigger("late").Fire())
}

func TestCoordinator_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	c := NewCoordinator(ln.Addr().String(), http.NotFoundHandler(), NewShutdown())
	err = c.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, Stopped, c.State())
	assert.Nil(t, c.Addr())
	select {
	case <-c.Ready():
		t.Fatal("coordinator must not become ready after a bind failure")
	default:
	}
}

func TestCoordinator_RunTwice(t *testing.T) {
	c, shutdown, done := startCoordinator(t, http.NotFoundHandler())

	assert.ErrorIs(t, c.Run(context.Background()), ErrAlreadyStarted)

	shutdown.Trigger("test").Fire()
	require.NoError(t, waitRun(t, done))
}

func TestCoordinator_ShutdownBeforeRun(t *testing.T) {
	shutdown := NewShutdown()
	shutdown.Trigger("test").Fire()

	c := NewCoordinator("127.0.0.1:0", http.NotFoundHandler(), shutdown)
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, Stopped, c.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "starting", Starting.String())
	assert.Equal(t, "serving", Serving.String())
	assert.Equal(t, "draining", Draining.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "state(9)", State(9).String())
}
