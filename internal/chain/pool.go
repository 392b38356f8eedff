package chain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// candidate is one RPC endpoint with its health state. Dialing an HTTP
// endpoint is lazy in go-ethereum, so the real liveness signal is the
// ChainID probe.
type candidate struct {
	url      string
	client   *ethclient.Client
	failures int
	healthy  bool
	probedAt time.Time
}

// Pool keeps an ordered list of RPC endpoint candidates. Pick returns
// the first candidate currently considered healthy; when every
// candidate is down the first one is returned anyway, so a flapping
// probe never hard-fails a settlement round on its own.
type Pool struct {
	mu           sync.Mutex
	candidates   []*candidate
	probeTimeout time.Duration
	maxFailures  int
	logger       *zap.Logger
}

func NewPool(urls []string, probeTimeout time.Duration, maxFailures int, logger *zap.Logger) *Pool {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	p := &Pool{
		probeTimeout: probeTimeout,
		maxFailures:  maxFailures,
		logger:       logger,
	}
	for _, u := range urls {
		p.candidates = append(p.candidates, &candidate{url: u, healthy: true})
	}
	return p
}

func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.candidates)
}

// Pick selects the endpoint for one round. Candidates that have not
// been probed recently are probed in configured order; the first live
// one wins for the remainder of the round.
func (p *Pool) Pick(ctx context.Context) (*ethclient.Client, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.candidates) == 0 {
		return nil, "", ErrNoEndpoints
	}

	for _, c := range p.candidates {
		if !c.healthy {
			continue
		}
		if err := p.ensureClient(c); err != nil {
			p.markFailureLocked(c, err)
			continue
		}
		return c.client, c.url, nil
	}

	// All candidates look unhealthy: fall open on the first one rather
	// than refusing the round.
	first := p.candidates[0]
	if err := p.ensureClient(first); err != nil {
		return nil, "", err
	}
	if p.logger != nil {
		p.logger.Warn("no healthy rpc endpoint, using first candidate", zap.String("url", first.url))
	}
	return first.client, first.url, nil
}

// MarkFailure records a failed call against the endpoint so the pool
// stops preferring it once it crosses the failure threshold.
func (p *Pool) MarkFailure(url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.candidates {
		if c.url == url {
			p.markFailureLocked(c, err)
			return
		}
	}
}

// ProbeAll refreshes health state for every candidate; wired to cron.
func (p *Pool) ProbeAll(ctx context.Context) {
	p.mu.Lock()
	cands := make([]*candidate, len(p.candidates))
	copy(cands, p.candidates)
	p.mu.Unlock()

	for _, c := range cands {
		err := p.probe(ctx, c)

		p.mu.Lock()
		c.probedAt = time.Now().UTC()
		if err != nil {
			c.failures++
			if c.failures >= p.maxFailures {
				c.healthy = false
			}
			if p.logger != nil {
				p.logger.Debug("rpc probe failed", zap.String("url", c.url), zap.Error(err))
			}
		} else {
			c.failures = 0
			c.healthy = true
		}
		p.mu.Unlock()
	}
}

func (p *Pool) probe(ctx context.Context, c *candidate) error {
	p.mu.Lock()
	err := p.ensureClient(c)
	cl := c.client
	p.mu.Unlock()
	if err != nil {
		return err
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()
	_, err = cl.ChainID(probeCtx)
	return err
}

func (p *Pool) ensureClient(c *candidate) error {
	if c.client != nil {
		return nil
	}
	cl, err := ethclient.Dial(c.url)
	if err != nil {
		return err
	}
	c.client = cl
	return nil
}

func (p *Pool) markFailureLocked(c *candidate, err error) {
	c.failures++
	if c.failures >= p.maxFailures {
		c.healthy = false
	}
	if p.logger != nil {
		p.logger.Debug("rpc endpoint failure", zap.String("url", c.url), zap.Int("failures", c.failures), zap.Error(err))
	}
}
