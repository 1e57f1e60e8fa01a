package router

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/ntp"
	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/go-i2p-endpoint/lib/config"
	"github.com/go-i2p/go-i2p-endpoint/lib/garlic"
	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/go-i2p-endpoint/lib/netdb"
	"github.com/go-i2p/go-i2p-endpoint/lib/tunnel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedOffsetNTP struct {
	offset time.Duration
}

func (c fixedOffsetNTP) QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error) {
	now := time.Now()
	return &ntp.Response{
		Time:          now,
		ReferenceTime: now,
		ClockOffset:   c.offset,
		Stratum:       2,
		RTT:           20 * time.Millisecond,
	}, nil
}

// TestEndpointWithRealGarlic assembles an endpoint from configuration and
// drives a distributor with the real garlic receiver, inbound pool,
// outbound pool and netDb store.
func TestEndpointWithRealGarlic(t *testing.T) {
	cfg := config.Defaults()
	reg := prometheus.NewRegistry()
	e, err := NewEndpoint(&cfg, fixedOffsetNTP{offset: 3 * time.Second}, reg)
	require.NoError(t, err)
	require.NoError(t, e.SyncClock(context.Background()))
	assert.InDelta(t, float64(3*time.Second), float64(e.Clock().Offset()), float64(time.Second))

	outbound := tunnel.NewOutboundPool(tunnel.DefaultPoolConfig())
	client := clientHash
	require.True(t, outbound.AddTunnel(&client, &tunnel.TunnelState{ID: 321, State: tunnel.TunnelReady, CreatedAt: time.Now()}))

	dispatcher := &fakeDispatcher{}
	receiver := &fakeClient{}
	store := netdb.NewMemoryStore()
	pool := e.Pool()
	keys := e.Keys()

	d, err := e.NewDistributor(EndpointContext{RouterHash: selfHash, Client: &clientHash}, dispatcher, outbound, store, receiver)
	require.NoError(t, err)

	exp := time.Now().Add(time.Minute)
	local := i2np.NewDataMessage([]byte("for the router"))
	set := &garlic.CloveSet{
		MessageID:  1,
		Expiration: exp,
		Cloves: []garlic.Clove{
			{Instructions: i2np.LocalDelivery(), Message: local, CloveID: 1, Expiration: exp},
			{Instructions: i2np.DestinationDelivery(clientHash), Message: i2np.NewDataMessage([]byte("for the client")), CloveID: 2, Expiration: exp},
			{Instructions: i2np.TunnelDelivery(remoteHash, 55), Message: i2np.NewDataMessage([]byte("onward")), CloveID: 3, Expiration: exp},
			{Instructions: i2np.LocalDelivery(), Message: i2np.NewDatabaseStore(common.Hash{7}, []byte{1, 2, 3}, i2np.DATABASE_STORE_TYPE_LEASESET), CloveID: 4, Expiration: exp},
		},
	}
	msg, err := garlic.Wrap(keys, garlic.SessionKey{0x42}, set)
	require.NoError(t, err)

	d.Distribute(msg, nil, nil)

	require.Equal(t, 1, pool.Len())
	queued := <-pool.Messages()
	dm, err := i2np.AsDataMessage(queued)
	require.NoError(t, err)
	assert.Equal(t, []byte("for the router"), dm.GetPayload())

	require.Len(t, receiver.calls, 1)
	assert.Equal(t, []byte("for the client"), receiver.calls[0].payload)

	require.Len(t, dispatcher.outbound, 1)
	call := dispatcher.outbound[0]
	assert.Equal(t, tunnel.TunnelID(321), call.outboundID)
	assert.Equal(t, remoteHash, call.target)
	require.NotNil(t, call.targetTunnel)
	assert.Equal(t, tunnel.TunnelID(55), *call.targetTunnel)

	assert.Zero(t, store.Size(), "leaseset with a bogus destination is rejected")

	// The tag is single use, so a replay unwraps nothing.
	d.Distribute(msg, nil, nil)
	assert.Zero(t, pool.Len())
	assert.Len(t, receiver.calls, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.Metrics().drops.WithLabelValues("decode_failure")))

	// Loopback expiration follows the corrected clock.
	d.Distribute(i2np.NewDataMessage([]byte("loop")), &selfHash, tunnelIDPtr(77))
	require.Len(t, dispatcher.gateways, 1)
	floor := time.Now().Add(3*time.Second + DefaultMinForwardLifetime)
	assert.WithinDuration(t, floor, dispatcher.gateways[0].Expiration(), time.Second)
}

func TestNewEndpointRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.MinForwardLifetime = 2 * time.Second
	_, err := NewEndpoint(&cfg, fixedOffsetNTP{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestNewEndpointFromConfigFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint:\n  max_garlic_depth: 2\n  inbound_pool_size: 3\n"), 0o600))
	config.CfgFile = path
	defer func() { config.CfgFile = "" }()
	require.NoError(t, config.InitConfig())

	e, err := NewEndpoint(nil, fixedOffsetNTP{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, e.cfg.MaxGarlicDepth)
	assert.Equal(t, 3, cap(e.Pool().queue))
	assert.Equal(t, DefaultMinForwardLifetime, e.cfg.MinForwardLifetime)
}

func TestEndpointStartStop(t *testing.T) {
	cfg := config.Defaults()
	e, err := NewEndpoint(&cfg, fixedOffsetNTP{offset: -2 * time.Second}, nil)
	require.NoError(t, err)

	e.Start(context.Background())
	e.Start(context.Background())
	require.Eventually(t, func() bool {
		return e.Clock().Offset() < -time.Second
	}, 2*time.Second, 10*time.Millisecond)
	e.Stop()
	e.Stop()
}

// TestReceiverCallbackForm drives the distributor through
// garlic.Receiver.Receive, which calls HandleClove per clove.
func TestReceiverCallbackForm(t *testing.T) {
	h := newHarness(t, nil)
	keys, err := garlic.NewKeyStore(8)
	require.NoError(t, err)

	exp := time.Now().Add(time.Minute)
	set := &garlic.CloveSet{
		MessageID:  9,
		Expiration: exp,
		Cloves: []garlic.Clove{
			{Instructions: i2np.LocalDelivery(), Message: i2np.NewDataMessage([]byte("a")), CloveID: 1, Expiration: exp},
			{Instructions: i2np.RouterDelivery(remoteHash), Message: i2np.NewDataMessage([]byte("b")), CloveID: 2, Expiration: exp},
		},
	}
	msg, err := garlic.Wrap(keys, garlic.SessionKey{1}, set)
	require.NoError(t, err)

	garlic.NewReceiver(keys, nil).Receive(msg, h.d)

	assert.Len(t, h.pool.messages(), 1)
	_, outbound := h.dispatcher.counts()
	assert.Equal(t, 1, outbound)
}
