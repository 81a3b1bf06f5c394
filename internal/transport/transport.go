// internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"message-sender/internal/config"
)

// Conn is one worker's connection to the target.
type Conn interface {
	Send(payload []byte) error
	// Receive blocks until a reply is available and copies at most
	// len(buf) bytes of it into buf.
	Receive(buf []byte) (int, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type Options struct {
	Transport    string
	Framing      string
	Addr         string
	WSPath       string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// OptionsFromConfig fills Options from cfg for the given target address.
func OptionsFromConfig(cfg *config.Config, addr string) Options {
	return Options{
		Transport:    cfg.Target.Transport,
		Framing:      cfg.Target.Framing,
		Addr:         addr,
		WSPath:       cfg.Target.WSPath,
		DialTimeout:  cfg.Timeouts.Dial,
		ReadTimeout:  cfg.Timeouts.Read,
		WriteTimeout: cfg.Timeouts.Write,
	}
}

func NewDialer(opts Options) (Dialer, error) {
	switch opts.Transport {
	case config.TransportTCP, "":
		if opts.Framing != config.FramingRaw && opts.Framing != config.FramingLength && opts.Framing != "" {
			return nil, fmt.Errorf("unknown framing %q", opts.Framing)
		}
		return &TCPDialer{opts: opts}, nil
	case config.TransportWS:
		u := url.URL{Scheme: "ws", Host: opts.Addr, Path: opts.WSPath}
		return &WSDialer{url: u.String(), opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Transport)
	}
}

type TCPDialer struct {
	opts Options
}

func (d *TCPDialer) Dial(ctx context.Context) (Conn, error) {
	nd := net.Dialer{Timeout: d.opts.DialTimeout}
	c, err := nd.DialContext(ctx, "tcp", d.opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.opts.Addr, err)
	}
	return &tcpConn{c: c, opts: d.opts}, nil
}

type tcpConn struct {
	c    net.Conn
	opts Options
}

func (t *tcpConn) Send(payload []byte) error {
	if t.opts.WriteTimeout > 0 {
		if err := t.c.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout)); err != nil {
			return err
		}
	}

	if t.opts.Framing == config.FramingLength {
		return WriteFrame(t.c, payload)
	}

	n, err := t.c.Write(payload)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("expected %d sent %d bytes", len(payload), n)
	}
	return nil
}

func (t *tcpConn) Receive(buf []byte) (int, error) {
	if t.opts.ReadTimeout > 0 {
		if err := t.c.SetReadDeadline(time.Now().Add(t.opts.ReadTimeout)); err != nil {
			return 0, err
		}
	}

	if t.opts.Framing == config.FramingLength {
		return ReadFrame(t.c, buf)
	}

	n, err := t.c.Read(buf)
	if n > 0 && errors.Is(err, io.EOF) {
		return n, nil
	}
	if err == nil && n == 0 {
		return 0, io.ErrNoProgress
	}
	return n, err
}

func (t *tcpConn) Close() error {
	return t.c.Close()
}

type WSDialer struct {
	url  string
	opts Options
}

func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	wd := websocket.Dialer{HandshakeTimeout: d.opts.DialTimeout}
	c, _, err := wd.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}
	return &wsConn{c: c, opts: d.opts}, nil
}

type wsConn struct {
	c    *websocket.Conn
	opts Options
}

func (w *wsConn) Send(payload []byte) error {
	if w.opts.WriteTimeout > 0 {
		if err := w.c.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	return w.c.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Receive(buf []byte) (int, error) {
	if w.opts.ReadTimeout > 0 {
		if err := w.c.SetReadDeadline(time.Now().Add(w.opts.ReadTimeout)); err != nil {
			return 0, err
		}
	}
	_, msg, err := w.c.ReadMessage()
	if err != nil {
		return 0, err
	}
	return copy(buf, msg), nil
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
