package sr

// Channel is the lossy, corrupting, order-preserving link between the two
// endpoints. Transmit is fire-and-forget: the core never learns whether a
// packet survived, only whether an acknowledgment eventually comes back.
type Channel interface {
	Transmit(packet Packet)
}

// Application receives fully reassembled payloads, in order, exactly once.
type Application interface {
	Deliver(payload [PayloadSize]byte)
}

// Timer is the single-shot retransmission timer of a sender endpoint. At
// most one expiry is outstanding at any time; the sender stops a running
// timer before starting it again. The duration is expressed in the same
// time units as Config.Timeout.
type Timer interface {
	Start(units float64)
	Stop()
}

// ChannelFunc adapts a plain function to the Channel interface.
type ChannelFunc func(packet Packet)

func (f ChannelFunc) Transmit(packet Packet) {
	f(packet)
}

// ApplicationFunc adapts a plain function to the Application interface.
type ApplicationFunc func(payload [PayloadSize]byte)

func (f ApplicationFunc) Deliver(payload [PayloadSize]byte) {
	f(payload)
}

func reportError(errors chan error, err error) {
	if err == nil {
		return
	}
	select {
	case errors <- err:
	default:
	}
}
