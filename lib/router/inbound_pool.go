package router

import (
	"sync/atomic"
	"time"

	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// overflowLogInterval is the least time between two queue-full warnings.
const overflowLogInterval = time.Second

// messageKey identifies a message for duplicate suppression. The expiration
// is part of the key so a reused id on a later message is not mistaken for
// a replay.
type messageKey struct {
	id         int
	expiration int64
}

// InboundPool is a bounded Local Inbound Pool. Add never blocks: when the
// queue is full, or the message was already seen, the message is dropped.
// Every drop is counted; queue-full warnings are throttled.
type InboundPool struct {
	queue       chan i2np.I2NPMessage
	seen        *lru.Cache[messageKey, struct{}]
	duplicates  atomic.Uint64
	overflows   atomic.Uint64
	overflowLog *rate.Limiter
}

// NewInboundPool creates a pool holding up to size queued messages and
// remembering the last seenSize message ids.
func NewInboundPool(size, seenSize int) (*InboundPool, error) {
	if size <= 0 {
		return nil, oops.Errorf("inbound pool size must be positive, got %d", size)
	}
	seen, err := lru.New[messageKey, struct{}](seenSize)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create duplicate filter")
	}
	return &InboundPool{
		queue:       make(chan i2np.I2NPMessage, size),
		seen:        seen,
		overflowLog: rate.NewLimiter(rate.Every(overflowLogInterval), 1),
	}, nil
}

// Add queues msg for local processing.
func (p *InboundPool) Add(msg i2np.I2NPMessage) {
	key := messageKey{id: msg.MessageID(), expiration: msg.Expiration().UnixMilli()}
	if found, _ := p.seen.ContainsOrAdd(key, struct{}{}); found {
		p.duplicates.Add(1)
		log.WithFields(logger.Fields{
			"at":         "(InboundPool) Add",
			"reason":     "duplicate",
			"message_id": msg.MessageID(),
		}).Debug("dropping duplicate inbound message")
		return
	}

	select {
	case p.queue <- msg:
	default:
		dropped := p.overflows.Add(1)
		if !p.overflowLog.Allow() {
			return
		}
		log.WithFields(logger.Fields{
			"at":       "(InboundPool) Add",
			"reason":   "queue full",
			"capacity": cap(p.queue),
			"dropped":  dropped,
		}).Warn("dropping inbound messages")
	}
}

// Messages returns the queue consumers read from.
func (p *InboundPool) Messages() <-chan i2np.I2NPMessage {
	return p.queue
}

// Len returns the number of queued messages.
func (p *InboundPool) Len() int {
	return len(p.queue)
}

// Duplicates returns how many messages were dropped as already seen.
func (p *InboundPool) Duplicates() uint64 {
	return p.duplicates.Load()
}

// Overflows returns how many messages were dropped because the queue was full.
func (p *InboundPool) Overflows() uint64 {
	return p.overflows.Load()
}
