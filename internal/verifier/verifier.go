package verifier

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/linklab/linkhub/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultSchedule re-certifies every published link once per calendar week.
const DefaultSchedule = "@weekly"

const (
	batchSize    = 10
	maxRetries   = 3
	backoffUnit  = 300 * time.Millisecond
	probeTimeout = 10 * time.Second
)

// NewLinkChecker creates a new LinkChecker.
func NewLinkChecker(store store.Store, schedule string) *LinkChecker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &LinkChecker{
		store:    store,
		client:   &http.Client{},
		schedule: schedule,
		timeout:  probeTimeout,
		backoff:  backoffUnit,
	}
}

// LinkChecker is a recurring sweep that probes every published link's URL
// with bounded concurrency and writes one bulk classification update per run.
type LinkChecker struct {
	store    store.Store
	client   *http.Client
	schedule string
	timeout  time.Duration
	backoff  time.Duration
}

func (c *LinkChecker) Schedule() string {
	return c.schedule
}

func (c *LinkChecker) Run() {
	if err := c.Check(context.Background()); err != nil {
		logrus.Errorf("link verification run failed: %v", err)
	}
}

// Check probes every published link and classifies each checked id as
// verified or not. Links whose URL does not parse are skipped entirely and
// keep their previous verified value.
func (c *LinkChecker) Check(ctx context.Context) error {
	targets, err := c.store.ListCheckTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	checkable := make([]store.CheckTarget, 0, len(targets))
	for _, t := range targets {
		if _, err := url.ParseRequestURI(t.URL); err != nil {
			logrus.Warnf("link %d has an unparseable url %q, skipping", t.ID, t.URL)
			continue
		}
		checkable = append(checkable, t)
	}

	// Batches run strictly sequentially; probes within a batch run
	// concurrently, never more than one batch's worth in flight.
	reachable := make([]bool, len(checkable))
	for start := 0; start < len(checkable); start += batchSize {
		end := min(start+batchSize, len(checkable))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				reachable[i] = c.probe(gctx, checkable[i].URL)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	var okIDs, badIDs []uint
	for i, t := range checkable {
		if reachable[i] {
			okIDs = append(okIDs, t.ID)
		} else {
			badIDs = append(badIDs, t.ID)
		}
	}

	logrus.Infof("link check complete: %d ok, %d bad, %d skipped", len(okIDs), len(badIDs), len(targets)-len(checkable))

	return c.store.UpdateVerification(ctx, okIDs, badIDs, time.Now())
}

// probe succeeds if any attempt succeeds, with a linear backoff between
// attempts. Per-attempt failures are tallied, never surfaced.
func (c *LinkChecker) probe(ctx context.Context, target string) bool {
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		if c.attempt(ctx, target) {
			return true
		}
	}
	return false
}

// attempt issues one HEAD probe under a hard timeout that aborts the
// in-flight request. Servers that reject HEAD outright get an immediate GET
// within the same attempt. Reachable means a final status in [200,400).
func (c *LinkChecker) attempt(ctx context.Context, target string) bool {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.request(actx, http.MethodHead, target)
	if err != nil {
		return false
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = c.request(actx, http.MethodGet, target)
		if err != nil {
			return false
		}
	}

	return status >= 200 && status < 400
}

func (c *LinkChecker) request(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
