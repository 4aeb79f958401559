package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/ValentinKolb/dReshard/rpc/transport"
	"github.com/cenkalti/backoff/v4"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = transport.Logger

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IConnector defines the transport-specific socket operations
type IConnector interface {
	// Listen creates the listener of this rank
	Listen(endpoint string) (net.Listener, error)

	// Dial establishes a single connection to a peer
	Dial(ctx context.Context, endpoint string) (net.Conn, error)

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.WorldConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// outgoing is the lazily dialed connection to one peer
type outgoing struct {
	mu   sync.Mutex // Protects the connection and serializes frame writes
	conn net.Conn
}

// peerTransport implements transport.IPeerTransport over stream sockets.
// Every rank listens on its endpoint and dials one connection per peer it
// sends to; frames read from accepted connections go into the mailbox.
type peerTransport struct {
	connector  IConnector
	config     common.WorldConfig
	listener   net.Listener
	mailbox    *transport.Mailbox
	peers      []*outgoing
	bufferPool *sync.Pool
	closed     atomic.Bool

	connsMu sync.Mutex
	conns   map[net.Conn]struct{} // accepted connections
	wg      sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewPeerTransport starts listening on the endpoint of config.Rank and returns
// a transport connected lazily to all other endpoints
func NewPeerTransport(connector IConnector, config common.WorldConfig, bufferSize int) (transport.IPeerTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	listener, err := connector.Listen(config.Endpoints[config.Rank])
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %v", err)
	}

	t := &peerTransport{
		connector: connector,
		config:    config,
		listener:  listener,
		mailbox:   transport.NewMailbox(),
		peers:     make([]*outgoing, len(config.Endpoints)),
		conns:     make(map[net.Conn]struct{}),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
	for i := range t.peers {
		t.peers[i] = &outgoing{}
	}

	Logger.Infof("rank %d/%d listening on %s (%s)", config.Rank, len(config.Endpoints), config.Endpoints[config.Rank], connector.GetName())

	t.wg.Add(1)
	go t.acceptLoop()

	return t, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IPeerTransport)
// --------------------------------------------------------------------------

func (t *peerTransport) Rank() int {
	return t.config.Rank
}

func (t *peerTransport) Size() int {
	return len(t.config.Endpoints)
}

func (t *peerTransport) Send(ctx context.Context, dst int, tag transport.Tag, data []byte) error {
	if t.closed.Load() {
		return transport.ErrClosed
	}
	if dst < 0 || dst >= t.Size() {
		return fmt.Errorf("destination rank %d out of range [0, %d)", dst, t.Size())
	}
	if dst == t.config.Rank {
		t.mailbox.Deliver(dst, tag, data)
		return nil
	}

	peer := t.peers[dst]
	peer.mu.Lock()
	defer peer.mu.Unlock()

	if peer.conn == nil {
		conn, err := t.dial(ctx, dst)
		if err != nil {
			return err
		}
		peer.conn = conn
	}

	if t.config.TimeoutSecond > 0 {
		timeout := time.Duration(t.config.TimeoutSecond) * time.Second
		_ = peer.conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	if err := writeFrame(peer.conn, tag.Context, tag.Seq, t.config.Rank, data); err != nil {
		if !errors.Is(err, ErrFrameTooLarge) {
			_ = peer.conn.Close()
			peer.conn = nil
		}
		return fmt.Errorf("failed to send %d bytes to rank %d: %w", len(data), dst, err)
	}
	return nil
}

func (t *peerTransport) Recv(ctx context.Context, src int, tag transport.Tag) ([]byte, error) {
	if t.config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.config.TimeoutSecond)*time.Second)
		defer cancel()
	}
	return t.mailbox.Take(ctx, src, tag)
}

func (t *peerTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := t.listener.Close()

	for _, peer := range t.peers {
		peer.mu.Lock()
		if peer.conn != nil {
			_ = peer.conn.Close()
			peer.conn = nil
		}
		peer.mu.Unlock()
	}

	t.connsMu.Lock()
	for conn := range t.conns {
		_ = conn.Close()
	}
	t.connsMu.Unlock()

	t.mailbox.Close(transport.ErrClosed)
	t.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial connects to a peer, retrying with exponential backoff while it starts up
func (t *peerTransport) dial(ctx context.Context, dst int) (net.Conn, error) {
	endpoint := t.config.Endpoints[dst]

	retries := t.config.RetryCount
	if retries < 1 {
		retries = 1
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 50 * time.Millisecond
	expBackoff.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(retries)), ctx)

	var conn net.Conn
	operation := func() error {
		c, err := t.connector.Dial(ctx, endpoint)
		if err != nil {
			return err
		}
		if err := t.connector.UpgradeConnection(c, t.config); err != nil {
			_ = c.Close()
			return backoff.Permanent(fmt.Errorf("failed to upgrade connection to %s: %v", endpoint, err))
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		Logger.Debugf("rank %d: dial rank %d at %s failed (%v), retrying in %s", t.config.Rank, dst, endpoint, err, wait)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to rank %d at %s: %w", dst, endpoint, err)
	}

	Logger.Debugf("rank %d connected to rank %d at %s", t.config.Rank, dst, endpoint)
	return conn, nil
}

// acceptLoop accepts peer connections until the listener is closed
func (t *peerTransport) acceptLoop() {
	defer t.wg.Done()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.closed.Load() {
				return
			}
			Logger.Errorf("rank %d: accept error: %v", t.config.Rank, err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("rank %d: failed to upgrade accepted connection: %v", t.config.Rank, err)
		}

		t.connsMu.Lock()
		t.conns[conn] = struct{}{}
		t.connsMu.Unlock()

		t.wg.Add(1)
		go t.handleConnection(conn)
	}
}

// handleConnection moves frames from one accepted connection into the mailbox.
// A broken connection fails the whole transport: a lost peer can never finish
// its part of a collective.
func (t *peerTransport) handleConnection(conn net.Conn) {
	defer t.wg.Done()
	defer func() {
		t.connsMu.Lock()
		delete(t.conns, conn)
		t.connsMu.Unlock()
		_ = conn.Close()
	}()

	for {
		buf := t.bufferPool.Get().([]byte)
		f, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			if errors.Is(err, io.EOF) || t.closed.Load() {
				return
			}
			Logger.Errorf("rank %d: connection from %s failed: %v", t.config.Rank, conn.RemoteAddr(), err)
			t.mailbox.Close(fmt.Errorf("peer connection lost: %w", err))
			return
		}

		if f.src < 0 || f.src >= t.Size() {
			t.bufferPool.Put(buf)
			Logger.Errorf("rank %d: frame with invalid source rank %d", t.config.Rank, f.src)
			continue
		}

		data := make([]byte, len(f.data))
		copy(data, f.data)
		t.bufferPool.Put(buf)

		t.mailbox.Deliver(f.src, transport.Tag{Context: f.context, Seq: f.seq}, data)
	}
}
