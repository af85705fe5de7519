package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"openstage/protocol"
	"openstage/transport"
	"openstage/world"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
)

// ErrVersionMismatch rejects a handshake from an incompatible peer.
var ErrVersionMismatch = errors.New("server: incompatible protocol version")

const handshakePoll = 2 * time.Millisecond

type Config struct {
	Address          string
	TickRate         int
	HandshakeTimeout time.Duration
	// TestEntities patrol entities are spawned at startup so clients see
	// traffic before any player input exists.
	TestEntities int
}

func DefaultConfig() Config {
	return Config{
		Address:          ":12345",
		TickRate:         20,
		HandshakeTimeout: 10 * time.Second,
	}
}

// subscriber is one admitted connection: its transport, the player entity
// it owns, and the buffered channel the broadcast fan-out writes to.
type subscriber struct {
	id        ksuid.KSUID
	playerID  uuid.UUID
	transport transport.ServerTransport
	out       chan protocol.ServerMessage
}

type Server struct {
	cfg      Config
	serveMux http.ServeMux

	// mu serializes all world access: handshake admission, intake, ticks.
	mu          sync.Mutex
	world       *world.World
	subscribers map[*subscriber]struct{}
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:         cfg,
		world:       world.New(),
		subscribers: make(map[*subscriber]struct{}),
	}
	for i := 0; i < cfg.TestEntities; i++ {
		s.world.SpawnTest(protocol.Vector3{float64(4 * i), 0, 0})
	}
	s.serveMux.HandleFunc("/", s.onConnection)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serveMux.ServeHTTP(w, r)
}

func (s *Server) onConnection(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Clients are native processes, not browsers; origin checks
		// would only reject them.
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Println(err)
		return
	}
	t := transport.NewWebSocketServer(c)
	if err := s.HandleTransport(t); err != nil {
		log.Printf("connection from %s: %v", r.RemoteAddr, err)
	}
}

// Run drives the tick loop and the websocket listener until ctx is
// canceled or either exits. Both are required; the first to stop takes the
// whole server down.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	log.Printf("Listening on %v", l.Addr())

	httpServer := &http.Server{
		Handler:     s,
		ReadTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.RunTicks(ctx)
	})
	g.Go(func() error {
		err := httpServer.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// RunTicks fires the tick loop alone, at the configured fixed cadence.
// Exposed separately so in-process setups can run a server without a
// listening socket.
func (s *Server) RunTicks(ctx context.Context) error {
	tickRate := s.cfg.TickRate
	if tickRate <= 0 {
		tickRate = DefaultConfig().TickRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.OnTick()
		}
	}
}

// OnTick drains every connection's pending inbound messages, advances the
// world one tick, and broadcasts the resulting TickOutput as one atomic
// unit to every connected transport.
func (s *Server) OnTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subscribers {
		s.drainSubscriber(sub)
	}

	output := s.world.Tick()
	msg := protocol.ServerTickOutput(output)
	for sub := range s.subscribers {
		select {
		case sub.out <- msg:
		default:
			// A stalled writer would split ticks across broadcasts;
			// drop the connection instead.
			log.Printf("conn %s: write would block, closing", sub.id)
			s.dropLocked(sub)
		}
	}
}

// drainSubscriber applies every message the connection received since the
// last tick, in received order. Per-connection errors never stop the tick
// driver or other connections.
func (s *Server) drainSubscriber(sub *subscriber) {
	state := sub.transport.State()
	if state.Status == transport.StatusClosed || state.Status == transport.StatusFailed {
		s.dropLocked(sub)
		return
	}
	for {
		msg, err := sub.transport.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedMessage) || errors.Is(err, protocol.ErrUnknownMessage) {
				// Framing is intact; skip the one bad message.
				log.Printf("conn %s: %v", sub.id, err)
				continue
			}
			s.dropLocked(sub)
			return
		}
		if msg == nil {
			return
		}
		switch msg.Type {
		case protocol.TypePlayerInput:
			if err := s.world.ApplyPlayerInput(sub.playerID, *msg.PlayerInput); err != nil {
				// Includes inputs racing a removal: dropped, logged,
				// never fatal.
				log.Printf("conn %s: %v", sub.id, err)
			}
		case protocol.TypeHandshake:
			log.Printf("conn %s: repeated handshake", sub.id)
			s.dropLocked(sub)
			return
		}
	}
}

// dropLocked removes a connection from the broadcast set and removes its
// player, which surfaces in the next tick's removed ids. Caller holds mu.
func (s *Server) dropLocked(sub *subscriber) {
	if _, ok := s.subscribers[sub]; !ok {
		return
	}
	delete(s.subscribers, sub)
	close(sub.out)
	s.world.RemovePlayer(sub.playerID)
}

// HandleTransport runs one connection end to end: handshake, admission,
// initial world sync, then the write loop. It returns when the connection
// ends, closing the transport on every path.
func (s *Server) HandleTransport(t transport.ServerTransport) error {
	connID := ksuid.New()

	if err := t.Send(protocol.ServerHandshake(protocol.CurrentVersion())); err != nil {
		t.Close()
		return err
	}

	clientVersion, err := s.awaitHandshake(t)
	if err != nil {
		t.Close()
		return err
	}
	if !protocol.CurrentVersion().Compatible(*clientVersion) {
		// Reject before any world state is sent; the client sees a clean
		// disconnect.
		t.Close()
		return fmt.Errorf("%w: client %s, server %s", ErrVersionMismatch, clientVersion, protocol.CurrentVersion())
	}
	log.Printf("conn %s: client version %s", connID, clientVersion)

	// Snapshot before spawning: the client learns about its own player
	// from the next tick's new_entity_states, like every other client.
	s.mu.Lock()
	states := s.world.EntityStates()
	playerID := s.world.SpawnPlayer(protocol.Vector3{})
	sub := &subscriber{
		id:        connID,
		playerID:  playerID,
		transport: t,
		out:       make(chan protocol.ServerMessage, 64),
	}
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	log.Printf("conn %s: player %s admitted", connID, playerID)

	if err := t.Send(protocol.ServerSyncWorld(playerID, states)); err != nil {
		s.mu.Lock()
		s.dropLocked(sub)
		s.mu.Unlock()
		t.Close()
		return err
	}

	// Write loop. Intake happens on the tick driver; this goroutine only
	// fans tick output out to its one transport.
	var sendErr error
	for msg := range sub.out {
		if err := t.Send(msg); err != nil {
			sendErr = err
			break
		}
	}

	s.mu.Lock()
	s.dropLocked(sub)
	s.mu.Unlock()
	t.Close()
	if sendErr != nil {
		return fmt.Errorf("conn %s: %w", connID, sendErr)
	}
	return nil
}

// awaitHandshake polls for the first client message within the handshake
// timeout. Anything but a handshake is a protocol error.
func (s *Server) awaitHandshake(t transport.ServerTransport) (*protocol.VersionData, error) {
	timeout := s.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().HandshakeTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		msg, err := t.Receive()
		if err != nil {
			return nil, err
		}
		if msg != nil {
			if msg.Type != protocol.TypeHandshake {
				return nil, fmt.Errorf("%w: %q before handshake", protocol.ErrMalformedMessage, msg.Type)
			}
			return &msg.Handshake.Version, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("server: handshake timeout after %v", timeout)
		}
		time.Sleep(handshakePoll)
	}
}
