package sr

import (
	"flag"
	"log"
	"os"

	"github.com/stretchr/testify/suite"
)

var flagVerbose = flag.Bool("verbose", false, "show protocol trace output")

type srTestSuite struct {
	suite.Suite
}

func (suite *srTestSuite) traceLogger(prefix string) *log.Logger {
	if *flagVerbose {
		return log.New(os.Stdout, prefix, 0)
	}
	return nil
}

func fillMessage(b byte) Message {
	var msg Message
	for i := range msg.Data {
		msg.Data[i] = b
	}
	return msg
}

func dataPacket(seqNum int32, fill byte) Packet {
	return createDataPacket(seqNum, fillMessage(fill))
}

// recordingChannel captures every transmitted packet for assertions.
type recordingChannel struct {
	packets []Packet
}

func (channel *recordingChannel) Transmit(packet Packet) {
	channel.packets = append(channel.packets, packet)
}

func (channel *recordingChannel) last() Packet {
	return channel.packets[len(channel.packets)-1]
}

func (channel *recordingChannel) clear() {
	channel.packets = nil
}

// recordingApplication captures delivered payloads in delivery order.
type recordingApplication struct {
	payloads [][PayloadSize]byte
}

func (app *recordingApplication) Deliver(payload [PayloadSize]byte) {
	app.payloads = append(app.payloads, payload)
}

// manualTimer records the sender's timer discipline and is fired by hand
// through the harness instead of by a clock.
type manualTimer struct {
	running      bool
	starts       int
	stops        int
	lastDuration float64
}

func (timer *manualTimer) Start(units float64) {
	timer.running = true
	timer.starts++
	timer.lastDuration = units
}

func (timer *manualTimer) Stop() {
	timer.running = false
	timer.stops++
}

// packetKey identifies a packet for manipulation: data packets by their
// sequence number, pure acknowledgments by the acknowledged number.
func packetKey(packet Packet) int32 {
	if packet.SeqNum != NotInUse {
		return packet.SeqNum
	}
	return packet.AckNum
}

// packetManipulator drops or corrupts selected packets exactly once on
// their way through the link.
type packetManipulator struct {
	toDropOnce    []int32
	toCorruptOnce []int32
}

func (manipulator *packetManipulator) DropOnce(key int32) {
	manipulator.toDropOnce = append(manipulator.toDropOnce, key)
}

func (manipulator *packetManipulator) CorruptOnce(key int32) {
	manipulator.toCorruptOnce = append(manipulator.toCorruptOnce, key)
}

func (manipulator *packetManipulator) apply(packet Packet) (Packet, bool) {
	key := packetKey(packet)
	for i, dropKey := range manipulator.toDropOnce {
		if dropKey == key {
			manipulator.toDropOnce = append(manipulator.toDropOnce[:i], manipulator.toDropOnce[i+1:]...)
			return packet, false
		}
	}
	for i, corruptKey := range manipulator.toCorruptOnce {
		if corruptKey == key {
			manipulator.toCorruptOnce = append(manipulator.toCorruptOnce[:i], manipulator.toCorruptOnce[i+1:]...)
			// Overwrite a payload byte without restamping the checksum,
			// the same substitution a corrupting channel performs.
			packet.Payload[0] = 'z'
			return packet, true
		}
	}
	return packet, true
}

type queuedPacket struct {
	packet   Packet
	toSender bool
}

// linkHarness wires a sender and a receiver back to back through an
// in-memory, order-preserving link. Packets are queued and dispatched one
// at a time, so endpoint callbacks never nest; manipulators on both
// directions inject loss and corruption.
type linkHarness struct {
	sender   *Sender
	receiver *Receiver
	timer    *manualTimer
	app      *recordingApplication

	toReceiver *packetManipulator
	toSender   *packetManipulator
	queue      []queuedPacket
}

func newLinkHarness(config Config) (*linkHarness, error) {
	harness := &linkHarness{
		timer:      &manualTimer{},
		app:        &recordingApplication{},
		toReceiver: &packetManipulator{},
		toSender:   &packetManipulator{},
	}
	sender, err := NewSender(config, ChannelFunc(harness.transmitToReceiver), harness.timer)
	if err != nil {
		return nil, err
	}
	receiver, err := NewReceiver(config, ChannelFunc(harness.transmitToSender), harness.app)
	if err != nil {
		return nil, err
	}
	harness.sender = sender
	harness.receiver = receiver
	return harness, nil
}

func (harness *linkHarness) transmitToReceiver(packet Packet) {
	if forwarded, kept := harness.toReceiver.apply(packet); kept {
		harness.queue = append(harness.queue, queuedPacket{packet: forwarded})
	}
}

func (harness *linkHarness) transmitToSender(packet Packet) {
	if forwarded, kept := harness.toSender.apply(packet); kept {
		harness.queue = append(harness.queue, queuedPacket{packet: forwarded, toSender: true})
	}
}

// run dispatches queued packets in send order until the link is quiet.
func (harness *linkHarness) run() {
	for len(harness.queue) > 0 {
		next := harness.queue[0]
		harness.queue = harness.queue[1:]
		if next.toSender {
			harness.sender.OnPacketArrival(next.packet)
		} else {
			harness.receiver.OnPacketArrival(next.packet)
		}
	}
}

// submit hands one message to the sender and lets the link settle.
func (harness *linkHarness) submit(msg Message) error {
	err := harness.sender.Submit(msg)
	harness.run()
	return err
}

// expireTimer fires the retransmission timer if it is armed and lets the
// link settle.
func (harness *linkHarness) expireTimer() {
	if !harness.timer.running {
		return
	}
	harness.timer.running = false
	harness.sender.OnTimerExpiry()
	harness.run()
}
