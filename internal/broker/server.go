package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// gracefulShutdownTimeout bounds Shutdown when the caller's context has no deadline.
const gracefulShutdownTimeout = 10 * time.Second

// Start binds the configured host and port and serves HTTP and websocket
// connections in a background goroutine.
//
// Port 0 binds an ephemeral port; Addr reports the result.
//
// Returns:
//   - error: ErrAlreadyStarted if running, or the listen error
func (b *Broker) Start(ctx context.Context) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.server != nil {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(b.cfg.Host, strconv.Itoa(b.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	b.mu.Lock()
	b.closing = false
	b.mu.Unlock()

	srvCtx, cancel := context.WithCancel(ctx)
	timeouts := b.cfg.Timeouts
	srv := &http.Server{
		Handler:           b.buildRouter(),
		ReadTimeout:       time.Duration(timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return srvCtx },
	}

	b.server = srv
	b.listener = ln
	b.cancel = cancel

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("broker server error", "error", err)
		}
	}()

	// Cancelling the caller's context disconnects every client; Shutdown
	// still has to be called to release the listener.
	go func() {
		<-srvCtx.Done()
		if ctx.Err() != nil {
			b.closeClients()
		}
	}()

	b.logger.Info("broker listening", "address", ln.Addr().String(), "version", b.version)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (b *Broker) Addr() string {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Shutdown stops accepting connections, closes every websocket, and waits
// for the connection goroutines to exit or ctx to expire.
// Shutdown before Start is a no-op. The broker may be started again.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gracefulShutdownTimeout)
		defer cancel()
	}

	b.logger.Info("broker shutting down")

	b.cancel()
	err := b.server.Shutdown(ctx)
	b.closeClients()

	done := make(chan struct{})
	go func() {
		b.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("websocket connections still closing at shutdown deadline")
	}

	b.server = nil
	b.listener = nil
	b.cancel = nil

	if err != nil {
		return fmt.Errorf("shutting down broker: %w", err)
	}
	return nil
}

// HealthCheck verifies the broker is running.
func (b *Broker) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("broker health check: %w", ctx.Err())
	default:
	}

	b.lifeMu.Lock()
	running := b.server != nil
	b.lifeMu.Unlock()

	if !running {
		return fmt.Errorf("broker not started")
	}
	return nil
}
