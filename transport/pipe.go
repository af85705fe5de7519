package transport

import (
	"errors"
	"sync"

	"openstage/protocol"
)

const pipeBuffer = 1024

// ErrBufferFull means the peer stopped draining; the pipe fails rather than
// block its caller.
var ErrBufferFull = errors.New("transport: pipe buffer full")

// Pipe returns both ends of an in-process connection. It carries the same
// message types as a network transport, which makes server and client logic
// testable without sockets. Both ends start Connected.
func Pipe() (*PipeClient, *PipeServer) {
	shared := &pipeShared{
		toServer: make(chan protocol.ClientMessage, pipeBuffer),
		toClient: make(chan protocol.ServerMessage, pipeBuffer),
		status:   StatusConnected,
	}
	return &PipeClient{shared}, &PipeServer{shared}
}

type pipeShared struct {
	mu       sync.Mutex
	toServer chan protocol.ClientMessage
	toClient chan protocol.ServerMessage
	status   Status
	err      error
}

func (p *pipeShared) state() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Status: p.status, Err: p.err}
}

func (p *pipeShared) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusClosed || p.status == StatusFailed {
		return
	}
	p.status = StatusClosed
}

// fail forces the terminal Failed state, for tests exercising the error
// path of the lifecycle.
func (p *pipeShared) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusClosed || p.status == StatusFailed {
		return
	}
	p.status = StatusFailed
	p.err = err
}

func (p *pipeShared) sendErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.status {
	case StatusClosed:
		return ErrClosed
	case StatusFailed:
		return p.err
	}
	return nil
}

// PipeClient is the client end of an in-process pair.
type PipeClient struct {
	*pipeShared
}

func (p *PipeClient) State() State { return p.state() }

func (p *PipeClient) Send(m protocol.ClientMessage) error {
	if err := p.sendErr(); err != nil {
		return err
	}
	select {
	case p.toServer <- m:
		return nil
	default:
		p.fail(ErrBufferFull)
		return ErrBufferFull
	}
}

// Receive drains messages buffered before a close, then reports the closed
// channel as an error.
func (p *PipeClient) Receive() (*protocol.ServerMessage, error) {
	select {
	case m := <-p.toClient:
		return &m, nil
	default:
	}
	if err := p.sendErr(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *PipeClient) Close() error {
	p.close()
	return nil
}

func (p *PipeClient) Fail(err error) { p.fail(err) }

// PipeServer is the server end of an in-process pair.
type PipeServer struct {
	*pipeShared
}

func (p *PipeServer) State() State { return p.state() }

func (p *PipeServer) Send(m protocol.ServerMessage) error {
	if err := p.sendErr(); err != nil {
		return err
	}
	select {
	case p.toClient <- m:
		return nil
	default:
		p.fail(ErrBufferFull)
		return ErrBufferFull
	}
}

func (p *PipeServer) Receive() (*protocol.ClientMessage, error) {
	select {
	case m := <-p.toServer:
		return &m, nil
	default:
	}
	if err := p.sendErr(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *PipeServer) Close() error {
	p.close()
	return nil
}

func (p *PipeServer) Fail(err error) { p.fail(err) }
