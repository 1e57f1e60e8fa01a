package router

import (
	"context"
	"sync"

	"github.com/go-i2p/go-i2p-endpoint/lib/config"
	"github.com/go-i2p/go-i2p-endpoint/lib/garlic"
	"github.com/go-i2p/go-i2p-endpoint/lib/util/time/monotonic"
	"github.com/go-i2p/go-i2p-endpoint/lib/util/time/sntp"
	"github.com/go-i2p/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// Endpoint holds the state shared by every inbound tunnel endpoint of a
// router: the corrected clock, the garlic keys, the local inbound pool and
// the distributor metrics. Distributors for individual tunnels are created
// with NewDistributor.
type Endpoint struct {
	cfg     config.EndpointConfig
	clock   *monotonic.Clock
	sampler *sntp.Sampler
	keys    *garlic.KeyStore
	garlic  *garlic.Receiver
	pool    *InboundPool
	metrics *Metrics

	runMux sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEndpoint validates cfg and builds the shared endpoint state. A nil cfg
// reads the current viper settings. A nil ntpClient queries the network; a
// nil reg leaves the metrics unregistered.
func NewEndpoint(cfg *config.EndpointConfig, ntpClient sntp.NTPClient, reg prometheus.Registerer) (*Endpoint, error) {
	if cfg == nil {
		cfg = config.CurrentEndpointConfig()
	}
	if err := config.Validate(*cfg); err != nil {
		return nil, err
	}
	if ntpClient == nil {
		ntpClient = &sntp.DefaultNTPClient{}
	}

	keys, err := garlic.NewKeyStore(cfg.GarlicTagCacheSize)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create garlic key store")
	}
	pool, err := NewInboundPool(cfg.InboundPoolSize, cfg.DuplicateCacheSize)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create inbound pool")
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to register distributor metrics")
	}

	clock := monotonic.NewClock()
	sampler := sntp.NewSampler(ntpClient, cfg.NTPServers, cfg.NTPTimeout)
	sampler.AddListener(clock)

	log.WithFields(logger.Fields{
		"at":          "NewEndpoint",
		"ntp_servers": len(cfg.NTPServers),
		"pool_size":   cfg.InboundPoolSize,
	}).Debug("created tunnel endpoint")
	return &Endpoint{
		cfg:     *cfg,
		clock:   clock,
		sampler: sampler,
		keys:    keys,
		garlic:  garlic.NewReceiver(keys, clock.Now),
		pool:    pool,
		metrics: metrics,
	}, nil
}

// NewDistributor creates the distributor for one tunnel endpoint, sharing
// this Endpoint's clock, garlic receiver, inbound pool and metrics.
func (e *Endpoint) NewDistributor(endpoint EndpointContext, dispatcher TunnelDispatcher, selector OutboundTunnelSelector, netdb NetworkDatabaseStore, client ClientMessageReceiver) (*InboundDistributor, error) {
	cfg := DistributorConfigFrom(&e.cfg)
	cfg.Now = e.clock.Now
	cfg.Metrics = e.metrics
	return NewInboundDistributor(endpoint, Collaborators{
		Pool:       e.pool,
		Dispatcher: dispatcher,
		Selector:   selector,
		NetDB:      netdb,
		Client:     client,
		Garlic:     e.garlic,
	}, cfg)
}

// Start samples the clock once and then keeps it in sync every
// endpoint.ntp_interval until Stop is called or ctx is done.
func (e *Endpoint) Start(ctx context.Context) {
	e.runMux.Lock()
	defer e.runMux.Unlock()
	if e.cancel != nil {
		log.WithFields(logger.Fields{
			"at":     "(Endpoint) Start",
			"reason": "endpoint is already running",
		}).Error("Error starting endpoint")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		e.sampler.Run(ctx, e.cfg.NTPInterval)
	}(e.done)
}

// Stop ends clock synchronization and waits for it to finish.
func (e *Endpoint) Stop() {
	e.runMux.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.runMux.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SyncClock samples the NTP servers once and applies the result.
func (e *Endpoint) SyncClock(ctx context.Context) error {
	_, err := e.sampler.Sample(ctx)
	return err
}

// Clock returns the endpoint's corrected time source.
func (e *Endpoint) Clock() *monotonic.Clock {
	return e.clock
}

// Keys returns the session tag store garlic for this router is decrypted with.
func (e *Endpoint) Keys() *garlic.KeyStore {
	return e.keys
}

// Pool returns the local inbound pool.
func (e *Endpoint) Pool() *InboundPool {
	return e.pool
}

// Metrics returns the counters shared by this Endpoint's distributors.
func (e *Endpoint) Metrics() *Metrics {
	return e.metrics
}

var _ sntp.UpdateListener = (*monotonic.Clock)(nil)
