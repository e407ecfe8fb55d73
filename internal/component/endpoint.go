package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"strand/internal/trace"
)

// Endpoint serves component invocations over a listener. Each connection
// carries a stream of msgpack Invoke envelopes; every envelope gets a
// Reply. Per-request failures (unknown gid, unknown action, signalled
// errors) are reported in the Reply and never tear down the server.
type Endpoint struct {
	reg    *Registry
	ln     net.Listener
	tracer trace.Tracer
}

// NewEndpoint binds a registry to a listener.
func NewEndpoint(reg *Registry, ln net.Listener, tracer trace.Tracer) *Endpoint {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Endpoint{reg: reg, ln: ln, tracer: tracer}
}

// Addr returns the listener address.
func (e *Endpoint) Addr() net.Addr {
	return e.ln.Addr()
}

// Serve accepts connections until ctx is cancelled or the listener fails.
func (e *Endpoint) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, runCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		<-runCtx.Done()
		// Unblocks Accept; a double close is harmless here.
		_ = e.ln.Close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		for {
			conn, err := e.ln.Accept()
			if err != nil {
				if runCtx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept failed: %w", err)
			}
			g.Go(func() error {
				defer conn.Close()
				e.handle(conn)
				return nil
			})
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// handle serves one connection. Decode errors end the connection; they
// do not propagate.
func (e *Endpoint) handle(conn net.Conn) {
	dec := msgpack.NewDecoder(conn)
	enc := msgpack.NewEncoder(conn)
	for {
		var inv Invoke
		if err := dec.Decode(&inv); err != nil {
			if !errors.Is(err, io.EOF) {
				trace.Point(e.tracer, trace.ScopeRun, "endpoint.decode-error", err.Error(), 0)
			}
			return
		}

		trace.Point(e.tracer, trace.ScopeRun, "endpoint.invoke",
			fmt.Sprintf("gid=%d action=%s", inv.Target, inv.Action), 0)

		reply := Reply{OK: true}
		if err := e.reg.Dispatch(inv.Target, inv.Action, inv.Code, inv.Message); err != nil {
			reply = Reply{OK: false, Error: err.Error()}
		}
		if err := enc.Encode(&reply); err != nil {
			trace.Point(e.tracer, trace.ScopeRun, "endpoint.encode-error", err.Error(), 0)
			return
		}
	}
}

// Client invokes component actions over a single connection.
type Client struct {
	conn net.Conn
	dec  *msgpack.Decoder
	enc  *msgpack.Encoder
}

// Dial connects to a signal endpoint.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn: conn,
		dec:  msgpack.NewDecoder(conn),
		enc:  msgpack.NewEncoder(conn),
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(inv Invoke) error {
	if err := c.enc.Encode(&inv); err != nil {
		return fmt.Errorf("send invoke: %w", err)
	}
	var reply Reply
	if err := c.dec.Decode(&reply); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("remote dispatch failed: %s", reply.Error)
	}
	return nil
}

// Signal wakes one waiter of the target condition.
func (c *Client) Signal(target GID) error {
	return c.invoke(Invoke{Target: target, Action: ActionSignal})
}

// SignalError raises an error on the remote dispatch context. The
// returned error carries the remote reply; no waiter is affected.
func (c *Client) SignalError(target GID, code int64, message string) error {
	return c.invoke(Invoke{Target: target, Action: ActionSignalError, Code: code, Message: message})
}
