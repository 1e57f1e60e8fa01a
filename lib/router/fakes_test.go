package router

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/go-i2p-endpoint/lib/garlic"
	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/go-i2p-endpoint/lib/netdb"
	"github.com/go-i2p/go-i2p-endpoint/lib/tunnel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var (
	selfHash   = common.Hash{0x01, 0x01}
	clientHash = common.Hash{0x02, 0x02}
	remoteHash = common.Hash{0x03, 0x03}
	testNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakePool struct {
	mu   sync.Mutex
	msgs []i2np.I2NPMessage
}

func (p *fakePool) Add(msg i2np.I2NPMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *fakePool) messages() []i2np.I2NPMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]i2np.I2NPMessage(nil), p.msgs...)
}

type outboundCall struct {
	msg          i2np.I2NPMessage
	outboundID   tunnel.TunnelID
	targetTunnel *tunnel.TunnelID
	target       common.Hash
	expiration   time.Time
}

type fakeDispatcher struct {
	mu       sync.Mutex
	gateways []*i2np.TunnelGatewayMessage
	outbound []outboundCall
}

func (d *fakeDispatcher) DispatchGateway(gw *i2np.TunnelGatewayMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gateways = append(d.gateways, gw)
}

func (d *fakeDispatcher) DispatchOutbound(msg i2np.I2NPMessage, outboundID tunnel.TunnelID, targetTunnel *tunnel.TunnelID, target common.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outbound = append(d.outbound, outboundCall{msg, outboundID, targetTunnel, target, msg.Expiration()})
}

func (d *fakeDispatcher) counts() (gateways, outbound int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.gateways), len(d.outbound)
}

type fakeSelector struct {
	mu     sync.Mutex
	tun    tunnel.OutboundTunnel
	owners []*common.Hash
}

func (s *fakeSelector) SelectOutbound(owner *common.Hash) (tunnel.OutboundTunnel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners = append(s.owners, owner)
	if s.tun == nil {
		return nil, false
	}
	return s.tun, true
}

type storeCall struct {
	key    common.Hash
	record netdb.Record
}

type fakeNetDB struct {
	mu    sync.Mutex
	calls []storeCall
	err   error
}

func (n *fakeNetDB) Store(key common.Hash, record netdb.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, storeCall{key, record})
	return n.err
}

type clientCall struct {
	dest    common.Hash
	payload []byte
}

type fakeClient struct {
	mu    sync.Mutex
	calls []clientCall
}

func (c *fakeClient) MessageReceived(dest common.Hash, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, clientCall{dest, payload})
}

// fakeGarlic returns the cloves registered under the garlic message's id.
type fakeGarlic struct {
	mu     sync.Mutex
	cloves map[int][]garlic.Clove
	err    error
	calls  int
}

func (g *fakeGarlic) Unwrap(msg i2np.I2NPMessage) ([]garlic.Clove, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.cloves[msg.MessageID()], nil
}

func (g *fakeGarlic) set(id int, cloves ...garlic.Clove) *i2np.GarlicMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cloves[id] = cloves
	msg := i2np.NewGarlicMessage([]byte{byte(id)})
	msg.SetMessageID(id)
	return msg
}

type harness struct {
	d          *InboundDistributor
	pool       *fakePool
	dispatcher *fakeDispatcher
	selector   *fakeSelector
	netdb      *fakeNetDB
	client     *fakeClient
	garlic     *fakeGarlic
	metrics    *Metrics
	nextID     atomic.Int64
}

func newHarness(t *testing.T, client *common.Hash) *harness {
	t.Helper()
	h := &harness{
		pool:       &fakePool{},
		dispatcher: &fakeDispatcher{},
		selector:   &fakeSelector{tun: &tunnel.TunnelState{ID: 500, State: tunnel.TunnelReady}},
		netdb:      &fakeNetDB{},
		client:     &fakeClient{},
		garlic:     &fakeGarlic{cloves: make(map[int][]garlic.Clove)},
	}
	h.nextID.Store(1000)

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	h.metrics = metrics

	d, err := NewInboundDistributor(
		EndpointContext{RouterHash: selfHash, Client: client},
		Collaborators{
			Pool:       h.pool,
			Dispatcher: h.dispatcher,
			Selector:   h.selector,
			NetDB:      h.netdb,
			Client:     h.client,
			Garlic:     h.garlic,
		},
		DistributorConfig{
			Now:          func() time.Time { return testNow },
			NewMessageID: func() (int, error) { return int(h.nextID.Add(1)), nil },
			Metrics:      metrics,
		},
	)
	require.NoError(t, err)
	h.d = d
	return h
}

func dataMessage(payload string, expiration time.Time) *i2np.DataMessage {
	msg := i2np.NewDataMessage([]byte(payload))
	msg.SetExpiration(expiration)
	return msg
}

func tunnelIDPtr(id tunnel.TunnelID) *tunnel.TunnelID {
	return &id
}

func clove(instructions i2np.DeliveryInstructions, msg i2np.I2NPMessage) garlic.Clove {
	return garlic.Clove{Instructions: instructions, Message: msg}
}
