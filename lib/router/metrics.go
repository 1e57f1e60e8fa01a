package router

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery paths counted in distributor_messages_total.
const (
	pathLocal    = "local"
	pathGarlic   = "garlic"
	pathGateway  = "gateway"
	pathOutbound = "outbound"
	pathClient   = "client"
	pathNetDB    = "netdb"
)

// Metrics holds the distributor counters. One Metrics is shared by all
// distributors of a router.
type Metrics struct {
	messages *prometheus.CounterVec
	drops    *prometheus.CounterVec
}

// NewMetrics creates the distributor counters and registers them with reg.
// Counters already registered by an earlier call are reused. A nil reg
// leaves the counters unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	messages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributor_messages_total",
			Help: "Messages handled by inbound tunnel endpoints, by delivery path",
		},
		[]string{"path"},
	)
	drops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributor_drops_total",
			Help: "Messages and cloves dropped by inbound tunnel endpoints, by reason",
		},
		[]string{"reason"},
	)
	if reg == nil {
		return &Metrics{messages: messages, drops: drops}, nil
	}

	var err error
	if messages, err = register(reg, messages); err != nil {
		return nil, err
	}
	if drops, err = register(reg, drops); err != nil {
		return nil, err
	}
	return &Metrics{messages: messages, drops: drops}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) delivered(path string) {
	m.messages.WithLabelValues(path).Inc()
}

func (m *Metrics) dropped(err error) {
	m.drops.WithLabelValues(dropReason(err)).Inc()
}
