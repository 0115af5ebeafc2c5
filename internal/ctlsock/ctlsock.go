// Package ctlsock exposes core.Core's published Snapshot
// over a Unix domain socket as one JSON value per connection — the
// in-process control API test harnesses and cmd/crasctl talk to.
// Grounded on a conventional stats-query socket pattern
// (aldrin-isaac-newtron's newtlab bridge: one JSON value written per
// accepted connection, over a Unix listener rebuilt from a stale
// socket path on startup).
package ctlsock

import (
	"encoding/json"
	"log"
	"net"
	"os"

	"github.com/crasgo/crasd/internal/notify"
)

// Querier is the read side of core.Core this package serializes. A
// narrow view rather than the full Core, so tests can fake it.
type Querier interface {
	Snapshot() notify.Snapshot
	IsSuspended() bool
}

// wireSnapshot is the single JSON value written to every accepted
// connection.
type wireSnapshot struct {
	notify.Snapshot
	Suspended bool `json:"suspended"`
}

// Server listens on a Unix socket and writes a JSON snapshot of q to
// every accepted connection.
type Server struct {
	ln net.Listener
	q  Querier
}

// Listen removes any stale socket at path, binds a fresh listener, and
// returns a Server ready for Serve.
func Listen(path string, q Querier) (*Server, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &Server{ln: ln, q: q}, nil
}

// Serve accepts connections until the listener is closed, writing one
// snapshot to each and closing it. A closed listener ends Serve without
// error — that is the normal shutdown path.
func (s *Server) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	wire := wireSnapshot{Snapshot: s.q.Snapshot(), Suspended: s.q.IsSuspended()}
	if err := json.NewEncoder(conn).Encode(wire); err != nil {
		log.Printf("ctlsock: encode snapshot: %v", err)
	}
}

// Close shuts down the listener, unblocking Serve.
func (s *Server) Close() error {
	return s.ln.Close()
}
