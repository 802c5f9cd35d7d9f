package sr

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrSocketClosed is returned by blocking socket calls after Close.
var ErrSocketClosed = errors.New("socket closed")

const windowRetryTimeout = 10 * time.Millisecond

// SenderSocket binds a Sender to a UDP connector and a wall-clock timer
// and serializes their callbacks, turning the event-driven core into a
// blocking Write API.
type SenderSocket struct {
	mu           sync.Mutex
	sender       *Sender
	connector    *udpConnector
	timer        *clockTimer
	errorChannel chan error
	closed       bool
}

// DialSender connects a sender endpoint to a receiver listening on
// remoteAddress:remotePort, with acknowledgments arriving on localPort.
func DialSender(config Config, remoteAddress string, remotePort, localPort int) (*SenderSocket, error) {
	errorChannel := make(chan error, 100)
	connector, err := newUDPConnector(remoteAddress, remotePort, localPort, errorChannel)
	if err != nil {
		return nil, err
	}
	socket := &SenderSocket{connector: connector, errorChannel: errorChannel}
	socket.timer = newClockTimer(defaultTimeUnit, socket.onTimerExpiry)
	sender, err := NewSender(config, connector, socket.timer)
	if err != nil {
		_ = connector.Close()
		return nil, err
	}
	socket.sender = sender
	go socket.readAcks()
	return socket, nil
}

// Write blocks until the message is admitted to the send window, backing
// off briefly whenever the window is full.
func (socket *SenderSocket) Write(msg Message) error {
	for {
		socket.mu.Lock()
		if socket.closed {
			socket.mu.Unlock()
			return ErrSocketClosed
		}
		err := socket.sender.Submit(msg)
		socket.mu.Unlock()
		if err == ErrWindowFull {
			time.Sleep(windowRetryTimeout)
			continue
		}
		return err
	}
}

// InFlight reports how many packets are still awaiting acknowledgment.
func (socket *SenderSocket) InFlight() int {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	return socket.sender.InFlight()
}

// Stats returns a snapshot of the underlying sender's counters.
func (socket *SenderSocket) Stats() SenderStats {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	return socket.sender.Stats()
}

// Errors exposes asynchronous transport errors. The channel is bounded;
// when nobody drains it further errors are dropped.
func (socket *SenderSocket) Errors() <-chan error {
	return socket.errorChannel
}

func (socket *SenderSocket) Close() error {
	socket.mu.Lock()
	socket.closed = true
	socket.mu.Unlock()
	socket.timer.Stop()
	return socket.connector.Close()
}

func (socket *SenderSocket) onTimerExpiry() {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	if socket.closed {
		return
	}
	socket.sender.OnTimerExpiry()
}

func (socket *SenderSocket) readAcks() {
	for {
		packet, err := socket.connector.Receive()
		socket.mu.Lock()
		if socket.closed {
			socket.mu.Unlock()
			return
		}
		if err != nil {
			socket.mu.Unlock()
			reportError(socket.errorChannel, err)
			continue
		}
		socket.sender.OnPacketArrival(packet)
		socket.mu.Unlock()
	}
}

// ReceiverSocket binds a Receiver to a UDP connector and hands delivered
// payloads out through a blocking Read, in order and exactly once.
type ReceiverSocket struct {
	mu            sync.Mutex
	receiver      *Receiver
	connector     *udpConnector
	readQueue     [][PayloadSize]byte
	dataAvailable *sync.Cond
	errorChannel  chan error
	closed        bool
}

// ListenReceiver starts a receiver endpoint on localPort, sending its
// acknowledgments to remoteAddress:remotePort.
func ListenReceiver(config Config, remoteAddress string, remotePort, localPort int) (*ReceiverSocket, error) {
	errorChannel := make(chan error, 100)
	connector, err := newUDPConnector(remoteAddress, remotePort, localPort, errorChannel)
	if err != nil {
		return nil, err
	}
	socket := &ReceiverSocket{
		connector:     connector,
		errorChannel:  errorChannel,
		dataAvailable: sync.NewCond(&sync.Mutex{}),
	}
	receiver, err := NewReceiver(config, connector, ApplicationFunc(socket.deliver))
	if err != nil {
		_ = connector.Close()
		return nil, err
	}
	socket.receiver = receiver
	go socket.readLoop()
	return socket, nil
}

// Read blocks until the next in-order payload is available.
func (socket *ReceiverSocket) Read() ([PayloadSize]byte, error) {
	socket.dataAvailable.L.Lock()
	defer socket.dataAvailable.L.Unlock()
	for len(socket.readQueue) == 0 {
		if socket.isClosed() {
			return [PayloadSize]byte{}, ErrSocketClosed
		}
		socket.dataAvailable.Wait()
	}
	payload := socket.readQueue[0]
	socket.readQueue = socket.readQueue[1:]
	return payload, nil
}

// Stats returns a snapshot of the underlying receiver's counters.
func (socket *ReceiverSocket) Stats() ReceiverStats {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	return socket.receiver.Stats()
}

// Errors exposes asynchronous transport errors.
func (socket *ReceiverSocket) Errors() <-chan error {
	return socket.errorChannel
}

func (socket *ReceiverSocket) Close() error {
	socket.mu.Lock()
	socket.closed = true
	socket.mu.Unlock()
	socket.dataAvailable.Broadcast()
	return socket.connector.Close()
}

func (socket *ReceiverSocket) isClosed() bool {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	return socket.closed
}

func (socket *ReceiverSocket) deliver(payload [PayloadSize]byte) {
	socket.dataAvailable.L.Lock()
	socket.readQueue = append(socket.readQueue, payload)
	socket.dataAvailable.L.Unlock()
	socket.dataAvailable.Signal()
}

func (socket *ReceiverSocket) readLoop() {
	for {
		packet, err := socket.connector.Receive()
		if socket.isClosed() {
			return
		}
		if err != nil {
			reportError(socket.errorChannel, err)
			continue
		}
		socket.mu.Lock()
		socket.receiver.OnPacketArrival(packet)
		socket.mu.Unlock()
	}
}
