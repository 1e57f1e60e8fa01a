package sntp

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// ErrNoSamples is returned when no server produced a usable response.
var ErrNoSamples = errors.New("sntp: no usable NTP samples")

const (
	defaultConcurring = 3
	maxVariance       = 10 * time.Second
)

// NTPClient performs a single NTP query.
type NTPClient interface {
	QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error)
}

// DefaultNTPClient queries the network with beevik/ntp.
type DefaultNTPClient struct{}

func (c *DefaultNTPClient) QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error) {
	return ntp.QueryWithOptions(host, options)
}

// Sampler estimates the local clock offset from a list of NTP servers.
type Sampler struct {
	client     NTPClient
	servers    []string
	timeout    time.Duration
	concurring int

	mu        sync.Mutex
	listeners []UpdateListener
	offset    time.Duration
}

// NewSampler creates a Sampler querying servers with the given timeout.
func NewSampler(client NTPClient, servers []string, timeout time.Duration) *Sampler {
	return &Sampler{
		client:     client,
		servers:    slices.Clone(servers),
		timeout:    timeout,
		concurring: defaultConcurring,
	}
}

// AddListener registers l for offset updates.
func (s *Sampler) AddListener(l UpdateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Offset returns the last offset reported to listeners.
func (s *Sampler) Offset() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Sample queries servers in order until enough agree, then notifies the
// listeners of the median offset and returns it.
func (s *Sampler) Sample(ctx context.Context) (time.Duration, error) {
	var (
		offsets []time.Duration
		stratum uint8
	)
	for _, server := range s.servers {
		if len(offsets) == s.concurring {
			break
		}
		if err := ctx.Err(); err != nil {
			return 0, oops.Wrapf(err, "sampling cancelled")
		}

		response, err := s.client.QueryWithOptions(server, ntp.QueryOptions{Timeout: s.timeout})
		if err != nil {
			log.WithError(err).WithField("server", server).Debug("NTP query failed")
			continue
		}
		if err := validateResponse(response); err != nil {
			log.WithError(err).WithField("server", server).Debug("NTP response failed validation")
			continue
		}
		if len(offsets) > 0 && absDuration(response.ClockOffset-offsets[0]) > maxVariance {
			log.WithFields(logger.Fields{
				"at":       "(Sampler) Sample",
				"server":   server,
				"offset":   response.ClockOffset,
				"expected": offsets[0],
			}).Debug("NTP sample disagrees with first sample")
			continue
		}
		if len(offsets) == 0 {
			stratum = response.Stratum
		}
		offsets = append(offsets, response.ClockOffset)
	}

	if len(offsets) == 0 {
		return 0, oops.Wrapf(ErrNoSamples, "queried %d servers", len(s.servers))
	}

	offset := median(offsets)
	s.mu.Lock()
	s.offset = offset
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	now := time.Now().Add(offset)
	for _, l := range listeners {
		l.SetNow(now, stratum)
	}
	log.WithFields(logger.Fields{
		"at":      "(Sampler) Sample",
		"offset":  offset,
		"samples": len(offsets),
	}).Debug("clock offset sampled")
	return offset, nil
}

// Run samples every interval until ctx is done.
func (s *Sampler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sample(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("NTP sampling failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func median(values []time.Duration) time.Duration {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
