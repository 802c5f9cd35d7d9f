package sr

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Message is one fixed-size application data unit handed to the sender.
type Message struct {
	Data [PayloadSize]byte
}

// Packet is the unit exchanged over the channel. It is immutable once
// stamped with a checksum; both endpoints construct fresh packets rather
// than mutating received ones.
type Packet struct {
	SeqNum   int32
	AckNum   int32
	Checksum int32
	Payload  [PayloadSize]byte
}

func bytesToInt32(buffer []byte) int32 {
	return int32(binary.BigEndian.Uint32(buffer))
}

func setInt32(buffer []byte, pos position, value int32) {
	binary.BigEndian.PutUint32(buffer[pos.Start:pos.End], uint32(value))
}

// computeChecksum sums the header fields and the payload bytes, each byte
// taken as an unsigned integer. It detects the byte substitutions a lossy
// channel injects, nothing stronger.
func computeChecksum(p Packet) int32 {
	checksum := p.SeqNum + p.AckNum
	for _, b := range p.Payload {
		checksum += int32(b)
	}
	return checksum
}

func isCorrupted(p Packet) bool {
	return p.Checksum != computeChecksum(p)
}

// createDataPacket wraps a message into a checksummed packet carrying the
// given sequence number. The acknum field is unused on data packets.
func createDataPacket(seqNum int32, msg Message) Packet {
	p := Packet{
		SeqNum:  seqNum,
		AckNum:  NotInUse,
		Payload: msg.Data,
	}
	p.Checksum = computeChecksum(p)
	return p
}

// createAckPacket builds a pure acknowledgment for the given sequence
// number. The payload is zero-filled and carries no data.
func createAckPacket(ackNum int32) Packet {
	p := Packet{
		SeqNum: NotInUse,
		AckNum: ackNum,
	}
	p.Checksum = computeChecksum(p)
	return p
}

// MarshalBinary encodes the packet into its fixed 32-byte wire form.
func (p Packet) MarshalBinary() ([]byte, error) {
	buffer := make([]byte, PacketSize)
	setInt32(buffer, seqNumPosition, p.SeqNum)
	setInt32(buffer, ackNumPosition, p.AckNum)
	setInt32(buffer, checksumPosition, p.Checksum)
	copy(buffer[headerLength:], p.Payload[:])
	return buffer, nil
}

// UnmarshalBinary decodes a packet from its wire form. Truncated input is
// an error; corruption is not, callers check isCorrupted themselves.
func (p *Packet) UnmarshalBinary(buffer []byte) error {
	if len(buffer) < PacketSize {
		return errors.Errorf("short packet: %d bytes, need %d", len(buffer), PacketSize)
	}
	p.SeqNum = bytesToInt32(buffer[seqNumPosition.Start:seqNumPosition.End])
	p.AckNum = bytesToInt32(buffer[ackNumPosition.Start:ackNumPosition.End])
	p.Checksum = bytesToInt32(buffer[checksumPosition.Start:checksumPosition.End])
	copy(p.Payload[:], buffer[headerLength:PacketSize])
	return nil
}
