package sr

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// ScenarioTestSuite runs both endpoints against each other over the
// in-memory link, with loss and corruption injected per direction.
type ScenarioTestSuite struct {
	srTestSuite
	harness *linkHarness
}

func (suite *ScenarioTestSuite) SetupTest() {
	harness, err := newLinkHarness(DefaultConfig())
	suite.Require().NoError(err)
	harness.sender.SetLogger(suite.traceLogger("A: "))
	harness.receiver.SetLogger(suite.traceLogger("B: "))
	suite.harness = harness
}

func (suite *ScenarioTestSuite) submit(fill byte) {
	suite.Require().NoError(suite.harness.submit(fillMessage(fill)))
}

func (suite *ScenarioTestSuite) assertDelivered(fills ...byte) {
	suite.Require().Len(suite.harness.app.payloads, len(fills))
	for i, fill := range fills {
		suite.Equal(fillMessage(fill).Data, suite.harness.app.payloads[i])
	}
}

func (suite *ScenarioTestSuite) TestReliableChannelDeliversInOrder() {
	fills := []byte("ABCDEFGHIJ")
	for _, fill := range fills {
		suite.submit(fill)
	}

	suite.assertDelivered(fills...)
	suite.Equal(0, suite.harness.sender.InFlight())
	suite.Equal(0, suite.harness.sender.Stats().PacketsRetransmitted)
	suite.Equal(10, suite.harness.receiver.Stats().PacketsDelivered)
	suite.False(suite.harness.timer.running)
}

func (suite *ScenarioTestSuite) TestLostAckRecoveredByRetransmission() {
	suite.harness.toSender.DropOnce(0)

	suite.submit('A')
	suite.assertDelivered('A')
	suite.Equal(1, suite.harness.sender.InFlight())

	suite.harness.expireTimer()

	// The retransmission reaches a receiver that already delivered the
	// packet; it is re-acked without a second delivery.
	suite.assertDelivered('A')
	suite.Equal(0, suite.harness.sender.InFlight())
	suite.Equal(1, suite.harness.sender.Stats().PacketsRetransmitted)
	suite.Equal(1, suite.harness.receiver.Stats().DuplicatesAcked)
}

func (suite *ScenarioTestSuite) TestLostDataPacketWhileWindowKeepsFilling() {
	suite.harness.toReceiver.DropOnce(0)

	suite.submit('A')
	suite.submit('B')
	suite.submit('C')

	// 1 and 2 are buffered behind the gap; their acks arrived but the
	// window cannot slide past the missing oldest packet.
	suite.Empty(suite.harness.app.payloads)
	suite.Equal(3, suite.harness.sender.InFlight())
	suite.Equal(2, suite.harness.receiver.Stats().PacketsBuffered)

	suite.harness.expireTimer()

	suite.assertDelivered('A', 'B', 'C')
	suite.Equal(0, suite.harness.sender.InFlight())
	suite.Equal(1, suite.harness.sender.Stats().PacketsRetransmitted)
}

func (suite *ScenarioTestSuite) TestCorruptedDataPacketRetransmitted() {
	suite.harness.toReceiver.CorruptOnce(0)

	suite.submit('A')

	// The receiver re-asserts the last delivered sequence number, which
	// matches nothing in the sender's window.
	suite.Empty(suite.harness.app.payloads)
	suite.Equal(1, suite.harness.sender.InFlight())
	suite.Equal(1, suite.harness.receiver.Stats().CorruptedDiscarded)

	suite.harness.expireTimer()

	suite.assertDelivered('A')
	suite.Equal(0, suite.harness.sender.InFlight())
}

func (suite *ScenarioTestSuite) TestCorruptedAckRecoveredByRetransmission() {
	suite.harness.toSender.CorruptOnce(0)

	suite.submit('A')
	suite.assertDelivered('A')
	suite.Equal(1, suite.harness.sender.InFlight())
	suite.Equal(1, suite.harness.sender.Stats().CorruptedAcks)

	suite.harness.expireTimer()
	suite.assertDelivered('A')
	suite.Equal(0, suite.harness.sender.InFlight())
}

func (suite *ScenarioTestSuite) TestRepeatedLossEventuallyDelivers() {
	suite.harness.toReceiver.DropOnce(0)
	suite.harness.toReceiver.DropOnce(0)
	suite.harness.toSender.DropOnce(1)
	suite.harness.toReceiver.DropOnce(2)

	fills := []byte("ABCD")
	for _, fill := range fills {
		suite.submit(fill)
	}

	for i := 0; i < 10 && suite.harness.sender.InFlight() > 0; i++ {
		suite.harness.expireTimer()
	}

	suite.assertDelivered(fills...)
	suite.Equal(0, suite.harness.sender.InFlight())
	suite.Equal(4, suite.harness.receiver.Stats().PacketsDelivered)
}

func (suite *ScenarioTestSuite) TestLongTransferWrapsSequenceSpace() {
	fills := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	for _, fill := range fills {
		suite.submit(fill)
	}

	suite.assertDelivered(fills...)
	suite.Equal(0, suite.harness.sender.InFlight())
	suite.Equal(len(fills), suite.harness.receiver.Stats().PacketsDelivered)
}

func TestScenarios(t *testing.T) {
	suite.Run(t, new(ScenarioTestSuite))
}
