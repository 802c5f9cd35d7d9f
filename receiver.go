package sr

import (
	"log"

	"github.com/pkg/errors"
)

// ReceiverStats are the free-running counters of one receiver endpoint.
type ReceiverStats struct {
	PacketsReceived    int
	PacketsBuffered    int
	PacketsDelivered   int
	DuplicatesAcked    int
	CorruptedDiscarded int
	AcksSent           int
}

// Receiver is the delivering endpoint of a session. It validates incoming
// packets, buffers out-of-order arrivals inside its window, acknowledges
// every classifiable packet and releases contiguous payloads upward in
// order, exactly once.
//
// Like the sender, all methods are synchronous callbacks of an external
// event loop and are never invoked concurrently.
type Receiver struct {
	config  Config
	channel Channel
	app     Application
	logger  *log.Logger

	win            window
	buffer         []Packet
	received       []bool
	expectedSeqNum int32

	stats ReceiverStats
}

// NewReceiver creates a receiver endpoint acknowledging on channel and
// delivering in-order payloads to app.
func NewReceiver(config Config, channel Channel, app Application) (*Receiver, error) {
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid receiver configuration")
	}
	if channel == nil {
		return nil, errors.New("receiver requires a channel")
	}
	if app == nil {
		return nil, errors.New("receiver requires an application")
	}
	return &Receiver{
		config:   config,
		channel:  channel,
		app:      app,
		win:      newWindow(config.WindowSize, config.SeqSpace),
		buffer:   make([]Packet, config.WindowSize),
		received: make([]bool, config.WindowSize),
	}, nil
}

// SetLogger enables trace output. A nil logger disables it.
func (r *Receiver) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// OnPacketArrival handles one data packet from the channel.
//
// Corrupted and above-window packets are answered by re-asserting the last
// correctly delivered sequence number, which tells a sender whose earlier
// acknowledgment was lost how far the receiver really got. In-window and
// below-window packets are acknowledged with their own sequence number,
// duplicates included, so selective ack matching still works when the
// first acknowledgment of a retransmission was itself lost.
func (r *Receiver) OnPacketArrival(packet Packet) {
	if isCorrupted(packet) {
		r.stats.CorruptedDiscarded++
		r.logf("packet corrupted, resend ACK for last delivered")
		r.sendAck(decSeq(r.expectedSeqNum, r.config.SeqSpace))
		return
	}
	r.stats.PacketsReceived++

	switch r.win.classify(r.expectedSeqNum, packet.SeqNum) {
	case aboveWindow:
		r.logf("packet %d beyond window, resend ACK for last delivered", packet.SeqNum)
		r.sendAck(decSeq(r.expectedSeqNum, r.config.SeqSpace))
		return

	case belowWindow:
		r.stats.DuplicatesAcked++
		r.logf("packet %d already delivered, resend ACK", packet.SeqNum)
		r.sendAck(packet.SeqNum)
		return
	}

	dist := seqDistance(r.expectedSeqNum, packet.SeqNum, r.config.SeqSpace)
	slot := r.win.phys(int(dist))
	if !r.received[slot] {
		r.buffer[slot] = packet
		r.received[slot] = true
		r.stats.PacketsBuffered++
		r.logf("packet %d is correctly received, send ACK", packet.SeqNum)
	} else {
		r.stats.DuplicatesAcked++
		r.logf("packet %d already buffered, resend ACK", packet.SeqNum)
	}
	r.sendAck(packet.SeqNum)

	r.deliverInOrder()
}

// Reset returns the receiver to its initial state: empty buffer, next
// expected sequence number zero, counters cleared.
func (r *Receiver) Reset() {
	r.win.reset()
	r.expectedSeqNum = 0
	for i := range r.received {
		r.received[i] = false
	}
	r.stats = ReceiverStats{}
}

// Stats returns a snapshot of the receiver's counters.
func (r *Receiver) Stats() ReceiverStats {
	return r.stats
}

// deliverInOrder releases buffered payloads upward while the slot at the
// window base is occupied. The iteration bound is a safety limit only; a
// consistent buffer always runs into the first gap before exhausting it.
func (r *Receiver) deliverInOrder() {
	for i := 0; i < r.config.WindowSize; i++ {
		slot := r.win.phys(0)
		if !r.received[slot] {
			break
		}
		r.logf("delivering packet %d", r.buffer[slot].SeqNum)
		r.app.Deliver(r.buffer[slot].Payload)
		r.received[slot] = false
		r.win.advance()
		r.expectedSeqNum = incSeq(r.expectedSeqNum, r.config.SeqSpace)
		r.stats.PacketsDelivered++
	}
}

func (r *Receiver) sendAck(ackNum int32) {
	r.channel.Transmit(createAckPacket(ackNum))
	r.stats.AcksSent++
}

func (r *Receiver) logf(format string, v ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, v...)
	}
}
