// Package bitbang bridges OpenOCD's remote_bitbang protocol onto a virtual
// DTM: the debugger's ASCII command stream drives TCK/TMS/TDI one edge at a
// time and reads back sampled TDO levels.
package bitbang

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/golang/glog"
)

// DTM is the JTAG pin interface the server drives.
type DTM interface {
	SetTCK(level bool)
	SetTMS(level bool)
	SetTDI(level bool)
	TDO() bool
}

// Server translates remote_bitbang sessions into pin wiggles. The DTM is
// stateful and not safe for concurrent use, so sessions are served one at a
// time.
type Server struct {
	dtm DTM
}

// NewServer builds a server over the given DTM.
func NewServer(dtm DTM) *Server {
	return &Server{dtm: dtm}
}

// Serve accepts connections from ln until the listener is closed, handling
// one debugger at a time.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("bitbang: accept: %w", err)
		}
		glog.Infof("debugger connected from %s", conn.RemoteAddr())
		if err := s.Handle(conn); err != nil {
			glog.Errorf("session from %s: %v", conn.RemoteAddr(), err)
		} else {
			glog.Infof("debugger from %s disconnected", conn.RemoteAddr())
		}
		conn.Close()
	}
}

// ListenAndServe listens on a TCP address and serves debugger sessions.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bitbang: listen: %w", err)
	}
	defer ln.Close()
	glog.Infof("remote_bitbang listening on %s", ln.Addr())
	return s.Serve(ln)
}

// Handle runs one remote_bitbang session over rw until the peer quits or
// disconnects. The same loop serves TCP connections, serial devices, and
// test pipes.
func (s *Server) Handle(rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	w := bufio.NewWriter(rw)

	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return w.Flush()
			}
			return fmt.Errorf("bitbang: read: %w", err)
		}

		switch {
		case c >= '0' && c <= '7':
			d := c - '0'
			// TDI and TMS settle before the clock edge samples them.
			s.dtm.SetTDI(d&1 != 0)
			s.dtm.SetTMS(d&2 != 0)
			s.dtm.SetTCK(d&4 != 0)

		case c == 'R':
			out := byte('0')
			if s.dtm.TDO() {
				out = '1'
			}
			if err := w.WriteByte(out); err != nil {
				return fmt.Errorf("bitbang: write: %w", err)
			}
			// Hold the flush while more commands are already buffered;
			// OpenOCD sends large batches.
			if r.Buffered() == 0 {
				if err := w.Flush(); err != nil {
					return fmt.Errorf("bitbang: flush: %w", err)
				}
			}

		case c == 'Q':
			glog.V(1).Info("quit requested")
			return w.Flush()

		case c == 'B' || c == 'b':
			glog.V(2).Infof("blink %c", c)

		case c == 'r' || c == 's' || c == 't' || c == 'u':
			// trst/srst encodings; the virtual DTM has no reset lines.
			glog.V(2).Infof("reset command %c ignored", c)

		case c == '\r' || c == '\n':
			// Stray line endings from manual telnet sessions.

		default:
			return fmt.Errorf("bitbang: unknown command %#02x", c)
		}
	}
}
