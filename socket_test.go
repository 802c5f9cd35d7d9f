package sr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketLoopbackTransfer(t *testing.T) {
	const senderPort, receiverPort = 3030, 3031
	config := DefaultConfig()

	receiverSocket, err := ListenReceiver(config, "localhost", senderPort, receiverPort)
	require.NoError(t, err)
	defer receiverSocket.Close()

	senderSocket, err := DialSender(config, "localhost", receiverPort, senderPort)
	require.NoError(t, err)
	defer senderSocket.Close()

	fills := []byte("ABC")
	for _, fill := range fills {
		require.NoError(t, senderSocket.Write(fillMessage(fill)))
	}

	for _, fill := range fills {
		payload, err := receiverSocket.Read()
		require.NoError(t, err)
		assert.Equal(t, fillMessage(fill).Data, payload)
	}

	assert.Equal(t, 3, receiverSocket.Stats().PacketsDelivered)
}

func TestSocketReadAfterClose(t *testing.T) {
	const senderPort, receiverPort = 3032, 3033

	receiverSocket, err := ListenReceiver(DefaultConfig(), "localhost", senderPort, receiverPort)
	require.NoError(t, err)
	require.NoError(t, receiverSocket.Close())

	_, err = receiverSocket.Read()
	assert.Equal(t, ErrSocketClosed, err)
}
