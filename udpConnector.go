package sr

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// udpConnector carries encoded packets over a UDP socket pair. Writes go
// out on a dialed connection, reads come in on a listening one, so a
// sender and a receiver endpoint can be bound to each other across two
// machines with mirrored port configurations.
type udpConnector struct {
	udpSender   *net.UDPConn
	udpReceiver *net.UDPConn
	errors      chan error
}

func createUDPAddress(addressString string, port int) (*net.UDPAddr, error) {
	address := addressString + ":" + strconv.Itoa(port)
	udpAddress, err := net.ResolveUDPAddr("udp4", address)
	return udpAddress, errors.Wrapf(err, "resolve %s", address)
}

func newUDPConnector(remoteAddress string, remotePort, localPort int, errorChannel chan error) (*udpConnector, error) {
	senderAddress, err := createUDPAddress(remoteAddress, remotePort)
	if err != nil {
		return nil, err
	}
	receiverAddress, err := createUDPAddress("localhost", localPort)
	if err != nil {
		return nil, err
	}
	udpSender, err := net.DialUDP("udp4", nil, senderAddress)
	if err != nil {
		return nil, errors.Wrap(err, "dial udp")
	}
	udpReceiver, err := net.ListenUDP("udp4", receiverAddress)
	if err != nil {
		_ = udpSender.Close()
		return nil, errors.Wrap(err, "listen udp")
	}
	return &udpConnector{
		udpSender:   udpSender,
		udpReceiver: udpReceiver,
		errors:      errorChannel,
	}, nil
}

// Transmit implements Channel. Send failures are reported on the error
// channel; the protocol core treats the channel as fire-and-forget and
// recovers through retransmission either way.
func (connector *udpConnector) Transmit(packet Packet) {
	buffer, err := packet.MarshalBinary()
	if err != nil {
		reportError(connector.errors, err)
		return
	}
	_, err = connector.udpSender.Write(buffer)
	reportError(connector.errors, errors.Wrap(err, "transmit packet"))
}

// Receive blocks for the next datagram and decodes it. Undersized
// datagrams are rejected; the caller decides whether to keep reading.
func (connector *udpConnector) Receive() (Packet, error) {
	buffer := make([]byte, PacketSize)
	n, err := connector.udpReceiver.Read(buffer)
	if err != nil {
		return Packet{}, errors.Wrap(err, "receive packet")
	}
	var packet Packet
	if err := packet.UnmarshalBinary(buffer[:n]); err != nil {
		return Packet{}, err
	}
	return packet, nil
}

func (connector *udpConnector) Close() error {
	senderError := connector.udpSender.Close()
	receiverError := connector.udpReceiver.Close()
	if senderError != nil {
		return senderError
	}
	return receiverError
}
