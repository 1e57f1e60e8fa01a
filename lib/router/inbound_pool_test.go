package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundPoolQueuesInOrder(t *testing.T) {
	p, err := NewInboundPool(4, 16)
	require.NoError(t, err)

	first := dataMessage("a", testNow)
	second := dataMessage("b", testNow)
	p.Add(first)
	p.Add(second)

	assert.Equal(t, 2, p.Len())
	assert.Same(t, first, <-p.Messages())
	assert.Same(t, second, <-p.Messages())
}

func TestInboundPoolDropsDuplicates(t *testing.T) {
	p, err := NewInboundPool(4, 16)
	require.NoError(t, err)

	msg := dataMessage("a", testNow)
	p.Add(msg)
	p.Add(msg)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, uint64(1), p.Duplicates())

	// Same id with a different expiration is a different message.
	again := dataMessage("a", testNow.Add(time.Minute))
	again.SetMessageID(msg.MessageID())
	p.Add(again)
	assert.Equal(t, 2, p.Len())
}

func TestInboundPoolNeverBlocks(t *testing.T) {
	p, err := NewInboundPool(2, 16)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		msg := dataMessage("x", testNow)
		msg.SetMessageID(i + 1)
		p.Add(msg)
	}
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, uint64(3), p.Overflows())
	assert.False(t, p.overflowLog.Allow(), "a burst of overflows logs once")
}

func TestNewInboundPoolRejectsBadSizes(t *testing.T) {
	_, err := NewInboundPool(0, 16)
	assert.Error(t, err)
	_, err = NewInboundPool(4, 0)
	assert.Error(t, err)
}
