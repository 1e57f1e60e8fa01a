package router

import (
	"fmt"
	"time"

	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/go-i2p-endpoint/lib/config"
	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/go-i2p-endpoint/lib/netdb"
	"github.com/go-i2p/go-i2p-endpoint/lib/tunnel"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

const (
	// DefaultMinForwardLifetime is the shortest remaining lifetime a message
	// may carry when it leaves this router. Shorter settings are raised to it.
	DefaultMinForwardLifetime = config.MinForwardLifetimeFloor
	// DefaultMaxGarlicDepth is how many garlic layers may be nested.
	DefaultMaxGarlicDepth = 4
)

// Collaborators are the components a distributor hands messages to.
// Client may be nil for exploratory endpoints.
type Collaborators struct {
	Pool       InboundMessagePool
	Dispatcher TunnelDispatcher
	Selector   OutboundTunnelSelector
	NetDB      NetworkDatabaseStore
	Client     ClientMessageReceiver
	Garlic     GarlicUnwrapper
}

// DistributorConfig tunes an InboundDistributor. Zero values take the
// package defaults; MinForwardLifetime is never below
// DefaultMinForwardLifetime.
type DistributorConfig struct {
	MinForwardLifetime time.Duration
	MaxGarlicDepth     int
	LogRate            rate.Limit
	LogBurst           int
	// Now is the time source, usually a monotonic.Clock's Now.
	Now func() time.Time
	// NewMessageID stamps synthesized gateway messages.
	NewMessageID func() (int, error)
	// Metrics may be shared between distributors. Nil creates
	// unregistered counters.
	Metrics *Metrics
}

// DistributorConfigFrom builds a DistributorConfig from endpoint settings.
func DistributorConfigFrom(cfg *config.EndpointConfig) DistributorConfig {
	return DistributorConfig{
		MinForwardLifetime: cfg.MinForwardLifetime,
		MaxGarlicDepth:     cfg.MaxGarlicDepth,
		LogRate:            rate.Limit(cfg.LogRate),
		LogBurst:           cfg.LogBurst,
	}
}

// InboundDistributor routes messages leaving an inbound tunnel at its
// endpoint. It never contacts a remote router directly: anything not
// delivered locally or into a tunnel this router gateways is sent through
// one of its own outbound tunnels.
//
// All state is fixed at construction, so one distributor may be used from
// many goroutines as long as its collaborators are safe for concurrent use.
type InboundDistributor struct {
	endpoint EndpointContext

	pool       InboundMessagePool
	dispatcher TunnelDispatcher
	selector   OutboundTunnelSelector
	netdb      NetworkDatabaseStore
	client     ClientMessageReceiver
	garlic     GarlicUnwrapper

	minForwardLifetime time.Duration
	maxGarlicDepth     int
	now                func() time.Time
	newMessageID       func() (int, error)
	metrics            *Metrics
	drops              *dropLog
}

// NewInboundDistributor creates the distributor for one tunnel endpoint.
func NewInboundDistributor(endpoint EndpointContext, c Collaborators, cfg DistributorConfig) (*InboundDistributor, error) {
	if c.Pool == nil || c.Dispatcher == nil || c.Selector == nil || c.NetDB == nil || c.Garlic == nil {
		return nil, oops.Errorf("inbound distributor requires pool, dispatcher, selector, netdb and garlic collaborators")
	}
	if endpoint.Client != nil && c.Client == nil {
		return nil, oops.Errorf("client tunnel %x requires a client receiver", endpoint.Client[:8])
	}
	if endpoint.Client != nil {
		client := *endpoint.Client
		endpoint.Client = &client
	}

	cfg = withDefaults(cfg)
	d := &InboundDistributor{
		endpoint:           endpoint,
		pool:               c.Pool,
		dispatcher:         c.Dispatcher,
		selector:           c.Selector,
		netdb:              c.NetDB,
		client:             c.Client,
		garlic:             c.Garlic,
		minForwardLifetime: cfg.MinForwardLifetime,
		maxGarlicDepth:     cfg.MaxGarlicDepth,
		now:                cfg.Now,
		newMessageID:       cfg.NewMessageID,
		metrics:            cfg.Metrics,
		drops:              newDropLog(cfg.Metrics, cfg.LogRate, cfg.LogBurst),
	}

	log.WithFields(logger.Fields{
		"at":          "NewInboundDistributor",
		"router_hash": fmt.Sprintf("%x", endpoint.RouterHash[:8]),
		"client":      endpoint.clientString(),
	}).Debug("created inbound distributor")
	return d, nil
}

func withDefaults(cfg DistributorConfig) DistributorConfig {
	if cfg.MinForwardLifetime < DefaultMinForwardLifetime {
		cfg.MinForwardLifetime = DefaultMinForwardLifetime
	}
	if cfg.MaxGarlicDepth <= 0 {
		cfg.MaxGarlicDepth = DefaultMaxGarlicDepth
	}
	if cfg.LogRate <= 0 {
		cfg.LogRate = 5
	}
	if cfg.LogBurst <= 0 {
		cfg.LogBurst = 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewMessageID == nil {
		cfg.NewMessageID = i2np.GenerateMessageID
	}
	if cfg.Metrics == nil {
		cfg.Metrics, _ = NewMetrics(nil)
	}
	return cfg
}

func (e EndpointContext) clientString() string {
	if e.Client == nil {
		return "exploratory"
	}
	return fmt.Sprintf("%x", e.Client[:8])
}

// Distribute routes msg as instructed by target and tunnelID. A nil target
// means this router. Failures are logged and counted, never returned.
func (d *InboundDistributor) Distribute(msg i2np.I2NPMessage, target *common.Hash, tunnelID *tunnel.TunnelID) {
	if err := d.distribute(msg, target, tunnelID, 0); err != nil {
		fields := messageFields("(InboundDistributor) Distribute", msg)
		if target != nil {
			fields["target"] = fmt.Sprintf("%x", target[:8])
		}
		d.drops.report(fields, err)
	}
}

// HandleClove routes one clove of a garlic message addressed to this
// router. Failures are logged and counted, never returned.
func (d *InboundDistributor) HandleClove(instructions i2np.DeliveryInstructions, msg i2np.I2NPMessage) {
	if err := d.handleClove(instructions, msg, 1); err != nil {
		fields := messageFields("(InboundDistributor) HandleClove", msg)
		fields["mode"] = instructions.Mode.String()
		d.drops.report(fields, err)
	}
}

func (d *InboundDistributor) distribute(msg i2np.I2NPMessage, target *common.Hash, tunnelID *tunnel.TunnelID, depth int) error {
	if msg == nil {
		return oops.Wrapf(ErrProtocolViolation, "nil message")
	}
	switch {
	case target == nil || (tunnelID == nil && *target == d.endpoint.RouterHash):
		return d.deliverLocal(msg, depth)
	case *target == d.endpoint.RouterHash:
		return d.loopback(msg, *tunnelID)
	default:
		return d.forward(msg, *target, tunnelID)
	}
}

func (d *InboundDistributor) deliverLocal(msg i2np.I2NPMessage, depth int) error {
	if i2np.IsGarlic(msg) {
		return d.receiveGarlic(msg, depth)
	}
	d.pool.Add(msg)
	d.metrics.delivered(pathLocal)
	return nil
}

// loopback injects msg into tunnelID, which this router is the gateway of.
func (d *InboundDistributor) loopback(msg i2np.I2NPMessage, tunnelID tunnel.TunnelID) error {
	id, err := d.newMessageID()
	if err != nil {
		return oops.Wrapf(ErrResourceUnavailable, "no message id for gateway loopback: %v", err)
	}
	gw, err := i2np.WrapInTunnelGateway(tunnelID, msg)
	if err != nil {
		return oops.Wrapf(ErrProtocolViolation, "cannot wrap message for tunnel %d: %v", tunnelID, err)
	}
	gw.SetMessageID(id)
	gw.SetExpiration(d.now().Add(d.minForwardLifetime))

	log.WithFields(logger.Fields{
		"at":         "(InboundDistributor) loopback",
		"tunnel_id":  tunnelID,
		"message_id": msg.MessageID(),
		"gateway_id": id,
	}).Debug("injecting message at our own gateway")
	d.dispatcher.DispatchGateway(gw)
	d.metrics.delivered(pathGateway)
	return nil
}

// forward sends msg to target through one of our outbound tunnels.
func (d *InboundDistributor) forward(msg i2np.I2NPMessage, target common.Hash, tunnelID *tunnel.TunnelID) error {
	out, ok := d.selector.SelectOutbound(d.endpoint.Client)
	if !ok || out == nil {
		return oops.Wrapf(ErrResourceUnavailable, "no outbound tunnel for %s", d.endpoint.clientString())
	}
	outboundID, ok := out.SendTunnelID(0)
	if !ok {
		return oops.Wrapf(ErrResourceUnavailable, "outbound tunnel for %s has no send tunnel id", d.endpoint.clientString())
	}

	if floor := d.now().Add(d.minForwardLifetime); msg.Expiration().Before(floor) {
		msg.SetExpiration(floor)
	}

	var targetTunnel *tunnel.TunnelID
	if tunnelID != nil {
		id := *tunnelID
		targetTunnel = &id
	}

	log.WithFields(logger.Fields{
		"at":          "(InboundDistributor) forward",
		"target":      fmt.Sprintf("%x", target[:8]),
		"outbound_id": outboundID,
		"message_id":  msg.MessageID(),
	}).Debug("forwarding message through outbound tunnel")
	d.dispatcher.DispatchOutbound(msg, outboundID, targetTunnel, target)
	d.metrics.delivered(pathOutbound)
	return nil
}

// receiveGarlic unwraps msg and handles each clove in order. Only a failure
// of the bundle itself is returned; clove failures, including cloves the
// unwrapper could not decode, are reported one by one.
func (d *InboundDistributor) receiveGarlic(msg i2np.I2NPMessage, depth int) error {
	if depth >= d.maxGarlicDepth {
		return oops.Wrapf(ErrDecodeFailure, "garlic nested deeper than %d layers", d.maxGarlicDepth)
	}
	cloves, err := d.garlic.Unwrap(msg)
	if err != nil {
		return oops.Wrapf(ErrDecodeFailure, "cannot unwrap garlic %d: %v", msg.MessageID(), err)
	}
	d.metrics.delivered(pathGarlic)

	for i, clove := range cloves {
		err := clove.Err
		if err != nil {
			err = oops.Wrapf(ErrDecodeFailure, "clove %d of garlic %d: %v", clove.CloveID, msg.MessageID(), err)
		} else {
			err = d.handleClove(clove.Instructions, clove.Message, depth+1)
		}
		if err != nil {
			fields := messageFields("(InboundDistributor) receiveGarlic", clove.Message)
			fields["garlic_id"] = msg.MessageID()
			fields["clove"] = i
			fields["mode"] = clove.Instructions.Mode.String()
			d.drops.report(fields, err)
		}
	}
	return nil
}

func (d *InboundDistributor) handleClove(instructions i2np.DeliveryInstructions, msg i2np.I2NPMessage, depth int) error {
	if msg == nil {
		return oops.Wrapf(ErrProtocolViolation, "clove without message")
	}
	if err := instructions.Validate(); err != nil {
		return oops.Wrapf(ErrProtocolViolation, "invalid %s instructions: %v", instructions.Mode, err)
	}

	switch instructions.Mode {
	case i2np.DeliveryLocal:
		return d.handleLocalClove(msg, depth)
	case i2np.DeliveryDestination:
		return d.deliverToClient(*instructions.Destination, msg)
	case i2np.DeliveryRouter:
		return d.distribute(msg, instructions.Router, nil, depth)
	case i2np.DeliveryTunnel:
		return d.distribute(msg, instructions.Router, instructions.TunnelID, depth)
	default:
		return oops.Wrapf(ErrProtocolViolation, "unknown delivery mode %s", instructions.Mode)
	}
}

func (d *InboundDistributor) handleLocalClove(msg i2np.I2NPMessage, depth int) error {
	switch msg.Type() {
	case i2np.I2NP_MESSAGE_TYPE_GARLIC:
		return d.receiveGarlic(msg, depth)
	case i2np.I2NP_MESSAGE_TYPE_DATABASE_STORE:
		return d.store(msg)
	default:
		d.pool.Add(msg)
		d.metrics.delivered(pathLocal)
		return nil
	}
}

// store hands a DatabaseStore clove to the netDb.
func (d *InboundDistributor) store(msg i2np.I2NPMessage) error {
	ds, err := i2np.AsDatabaseStore(msg)
	if err != nil {
		return oops.Wrapf(ErrStoreRejected, "malformed database store: %v", err)
	}
	key := ds.GetStoreKey()
	record, err := netdb.RecordFromStore(ds)
	if err != nil {
		return oops.Wrapf(ErrStoreRejected, "record for %x: %v", key[:8], err)
	}
	if err := d.netdb.Store(key, record); err != nil {
		return oops.Wrapf(ErrStoreRejected, "store of %s %x: %v", record.Kind, key[:8], err)
	}

	log.WithFields(logger.Fields{
		"at":   "(InboundDistributor) store",
		"key":  fmt.Sprintf("%x", key[:8]),
		"kind": record.Kind.String(),
	}).Debug("stored netdb record from tunnel")
	d.metrics.delivered(pathNetDB)
	return nil
}

// deliverToClient passes a Data payload to the destination owning this
// tunnel. Any other destination is refused.
func (d *InboundDistributor) deliverToClient(dest common.Hash, msg i2np.I2NPMessage) error {
	if msg.Type() != i2np.I2NP_MESSAGE_TYPE_DATA {
		return oops.Wrapf(ErrProtocolViolation, "message type %d cannot be delivered to a destination", msg.Type())
	}
	if d.endpoint.Client == nil {
		return oops.Wrapf(ErrProtocolViolation, "destination %x requested on an exploratory tunnel", dest[:8])
	}
	if *d.endpoint.Client != dest {
		return oops.Wrapf(ErrProtocolViolation, "destination %x does not own tunnel of %x", dest[:8], d.endpoint.Client[:8])
	}
	dm, err := i2np.AsDataMessage(msg)
	if err != nil {
		return oops.Wrapf(ErrProtocolViolation, "malformed data message: %v", err)
	}

	d.client.MessageReceived(dest, dm.GetPayload())
	d.metrics.delivered(pathClient)
	return nil
}

func messageFields(at string, msg i2np.I2NPMessage) logger.Fields {
	fields := logger.Fields{"at": at}
	if msg != nil {
		fields["message_id"] = msg.MessageID()
		fields["message_type"] = msg.Type()
	}
	return fields
}
