package sr

// NotInUse fills header fields that carry no meaning for a given packet,
// e.g. the acknum of a data packet or the seqnum of a pure acknowledgment.
const NotInUse int32 = -1

// PayloadSize is the fixed length of every application data unit.
const PayloadSize = 20

// PacketSize is the encoded length of a packet on the wire.
const PacketSize = headerLength + PayloadSize

const headerLength = 12

type position struct {
	Start int
	End   int
}

var seqNumPosition = position{0, 4}
var ackNumPosition = position{4, 8}
var checksumPosition = position{8, 12}

const (
	defaultWindowSize = 6
	defaultSeqSpace   = 12
	defaultTimeout    = 16.0
)

type seqClass int

const (
	inWindow seqClass = iota
	belowWindow
	aboveWindow
)
