package sr

import (
	"log"

	"github.com/pkg/errors"
)

// ErrWindowFull is returned by Submit when every window slot is occupied
// by an unacknowledged packet. The condition is soft: the caller retries
// once acknowledgments have drained the window.
var ErrWindowFull = errors.New("send window full")

// SenderStats are the free-running counters of one sender endpoint.
type SenderStats struct {
	MessagesSubmitted    int
	WindowFullRejections int
	PacketsSent          int
	PacketsRetransmitted int
	AcksReceived         int
	NewAcks              int
	CorruptedAcks        int
}

// Sender is the transmitting endpoint of a session. It owns the in-flight
// window, assigns sequence numbers, matches acknowledgments selectively
// and drives the single retransmission timer.
//
// All methods are synchronous callbacks dispatched by an external event
// loop; none of them blocks and none may be invoked concurrently.
type Sender struct {
	config  Config
	channel Channel
	timer   Timer
	logger  *log.Logger

	win        window
	buffer     []Packet
	acked      []bool
	count      int
	nextSeqNum int32
	timerArmed bool

	stats SenderStats
}

// NewSender creates a sender endpoint transmitting on channel and driven
// by timer. The configuration is validated up front; a sequence space
// smaller than twice the window size is rejected here rather than left to
// corrupt a session later.
func NewSender(config Config, channel Channel, timer Timer) (*Sender, error) {
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sender configuration")
	}
	if channel == nil {
		return nil, errors.New("sender requires a channel")
	}
	if timer == nil {
		return nil, errors.New("sender requires a timer")
	}
	return &Sender{
		config:  config,
		channel: channel,
		timer:   timer,
		win:     newWindow(config.WindowSize, config.SeqSpace),
		buffer:  make([]Packet, config.WindowSize),
		acked:   make([]bool, config.WindowSize),
	}, nil
}

// SetLogger enables trace output. A nil logger disables it.
func (s *Sender) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Submit accepts one application message, wraps it into the next sequence
// number and hands it to the channel. It fails with ErrWindowFull when
// the window already holds WindowSize unacknowledged packets.
func (s *Sender) Submit(msg Message) error {
	if s.count == s.config.WindowSize {
		s.stats.WindowFullRejections++
		s.logf("message arrived, send window is full")
		return ErrWindowFull
	}

	packet := createDataPacket(s.nextSeqNum, msg)
	slot := s.win.phys(s.count)
	s.buffer[slot] = packet
	s.acked[slot] = false
	s.count++
	s.nextSeqNum = incSeq(s.nextSeqNum, s.config.SeqSpace)
	s.stats.MessagesSubmitted++

	s.logf("sending packet %d", packet.SeqNum)
	s.channel.Transmit(packet)
	s.stats.PacketsSent++

	// The timer always covers the oldest unacked packet. A new packet
	// only needs one started when it has no older sibling in flight.
	if s.count == 1 {
		s.startTimer()
	}
	return nil
}

// OnPacketArrival handles a packet coming back from the channel, which on
// this endpoint is always an acknowledgment. Corrupted and out-of-window
// acknowledgments are ignored; an in-window one marks its slot and slides
// the window over every leading acknowledged packet.
func (s *Sender) OnPacketArrival(packet Packet) {
	if isCorrupted(packet) {
		s.stats.CorruptedAcks++
		s.logf("corrupted ACK received, do nothing")
		return
	}
	s.stats.AcksReceived++

	if s.count == 0 {
		s.logf("duplicate ACK %d for empty window, do nothing", packet.AckNum)
		return
	}

	base := s.buffer[s.win.phys(0)].SeqNum
	dist := seqDistance(base, packet.AckNum, s.config.SeqSpace)
	if dist >= int32(s.count) {
		s.logf("ACK %d outside window, do nothing", packet.AckNum)
		return
	}

	slot := s.win.phys(int(dist))
	if s.acked[slot] {
		s.logf("duplicate ACK %d, do nothing", packet.AckNum)
		return
	}
	s.acked[slot] = true
	s.stats.NewAcks++
	s.logf("ACK %d is not a duplicate", packet.AckNum)

	if dist > 0 {
		// A non-oldest packet was acked. The window cannot slide yet
		// and the timer keeps covering the oldest packet.
		return
	}

	s.stopTimer()
	for s.count > 0 && s.acked[s.win.phys(0)] {
		s.acked[s.win.phys(0)] = false
		s.win.advance()
		s.count--
	}
	if s.count > 0 {
		s.startTimer()
	}
}

// OnTimerExpiry retransmits the oldest unacknowledged packet and re-arms
// the timer. Only that one packet is resent; everything younger waits for
// its own acknowledgment or a later expiry. A stale expiry after the
// window drained is a no-op.
func (s *Sender) OnTimerExpiry() {
	s.timerArmed = false
	if s.count == 0 {
		return
	}

	s.logf("time out, resend packet")
	for i := 0; i < s.count; i++ {
		slot := s.win.phys(i)
		if !s.acked[slot] {
			s.logf("resending packet %d", s.buffer[slot].SeqNum)
			s.channel.Transmit(s.buffer[slot])
			s.stats.PacketsRetransmitted++
			s.startTimer()
			break
		}
	}
}

// Reset returns the sender to its initial state: empty window, sequence
// numbers restarting at zero, timer stopped, counters cleared.
func (s *Sender) Reset() {
	s.stopTimer()
	s.win.reset()
	s.count = 0
	s.nextSeqNum = 0
	for i := range s.acked {
		s.acked[i] = false
	}
	s.stats = SenderStats{}
}

// Stats returns a snapshot of the sender's counters.
func (s *Sender) Stats() SenderStats {
	return s.stats
}

// InFlight returns the number of packets awaiting acknowledgment.
func (s *Sender) InFlight() int {
	return s.count
}

func (s *Sender) startTimer() {
	if s.timerArmed {
		s.timer.Stop()
	}
	s.timer.Start(s.config.Timeout)
	s.timerArmed = true
}

func (s *Sender) stopTimer() {
	if s.timerArmed {
		s.timer.Stop()
		s.timerArmed = false
	}
}

func (s *Sender) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}
