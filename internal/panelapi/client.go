package panelapi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"smmbridge/internal/limiter"
	"smmbridge/internal/models"
	"smmbridge/internal/pkg/httpclient"
)

// Recorder persists detection results (dialect, working endpoints) so
// later calls skip the probing. Optional; a nil recorder disables writes.
type Recorder interface {
	SavePanelDetection(panel *models.Panel) error
}

// Client talks to external panel Admin APIs. It knows both dialects,
// auto-detects which one a panel speaks and walks the per-operation
// endpoint fallback chains. It has no knowledge of commands or
// authorization.
type Client struct {
	httpc    *httpclient.Client
	throttle *limiter.Throttle
	logger   *zap.Logger
	recorder Recorder

	dialects map[string]Dialect

	mu       sync.Mutex
	detected map[uint]Dialect
}

func NewClient(httpc *httpclient.Client, throttle *limiter.Throttle, recorder Recorder, logger *zap.Logger) *Client {
	return &Client{
		httpc:    httpc,
		throttle: throttle,
		logger:   logger,
		recorder: recorder,
		dialects: map[string]Dialect{
			models.DialectV1: v1Dialect{},
			models.DialectV2: v2Dialect{},
		},
		detected: make(map[uint]Dialect),
	}
}

// Request performs a logical operation against a panel, blocking on the
// per-panel throttle first. Candidate endpoints are tried in order; a
// previously detected endpoint always goes first.
func (c *Client) Request(ctx context.Context, panel *models.Panel, op Op, params map[string]string) Result {
	if err := c.throttle.Acquire(ctx, panel.ID); err != nil {
		return failure(KindConnectionError, fmt.Errorf("throttle wait aborted: %w", err))
	}

	dialect, res := c.dialectFor(ctx, panel)
	if dialect == nil {
		return res
	}

	candidates := dialect.Candidates(op)
	if len(candidates) == 0 {
		return failure(KindNotFound, fmt.Errorf("dialect %s has no endpoint for %s", dialect.Name(), op))
	}
	if det := panel.DetectedEndpoint(string(op)); det != "" {
		candidates = prependEndpoint(candidates, det)
	}

	var tried []string
	var last Result
	for i, ep := range candidates {
		resp, err := dialect.Do(ctx, c.httpc.Raw(), panel, ep, params)
		tried = append(tried, describeAttempt(dialect, panel, ep))
		if err != nil {
			return failure(classifyTransport(err), fmt.Errorf("panel %s unreachable: %w", panel.Name, err))
		}

		last = dialect.Parse(resp.StatusCode(), resp.Body())
		if last.Success {
			if i > 0 || panel.DetectedEndpoint(string(op)) != ep.Path {
				c.rememberEndpoint(panel, op, ep)
			}
			return last
		}

		// Unauthorized and rate-limit rejections apply to every endpoint
		// alike; only not-found/error envelopes justify the next guess.
		if last.Kind == KindUnauthorized || last.Kind == KindRateLimited || last.Kind == KindConnectionError {
			return last
		}
	}

	if last.Kind == KindNotFound {
		last.Err = fmt.Errorf("%w (tried %s)", last.Err, strings.Join(tried, ", "))
	}
	return last
}

// OrderStatus fetches one order, preferring the admin surface and falling
// back to the generic status operation.
func (c *Client) OrderStatus(ctx context.Context, panel *models.Panel, externalID string) Result {
	params := map[string]string{"order": externalID}
	res := c.Request(ctx, panel, OpAdminOrder, params)
	if res.Success {
		return res
	}
	return c.Request(ctx, panel, OpStatus, params)
}

func (c *Client) dialectFor(ctx context.Context, panel *models.Panel) (Dialect, Result) {
	if d, ok := c.dialects[panel.Dialect]; ok {
		return d, Result{}
	}

	c.mu.Lock()
	if d, ok := c.detected[panel.ID]; ok {
		c.mu.Unlock()
		return d, Result{}
	}
	c.mu.Unlock()

	detected, res := c.probeDialect(ctx, panel)
	if detected == nil {
		return nil, res
	}

	c.mu.Lock()
	c.detected[panel.ID] = detected
	c.mu.Unlock()

	if c.recorder != nil {
		panel.Dialect = detected.Name()
		if err := c.recorder.SavePanelDetection(panel); err != nil {
			c.logger.Warn("failed to persist dialect detection",
				zap.Uint("panel_id", panel.ID), zap.Error(err))
		}
	}
	return detected, Result{}
}

// probeDialect issues each dialect's canonical cheap read and accepts
// whichever returns a recognizable envelope rather than an opaque
// transport error or an HTML challenge page.
func (c *Client) probeDialect(ctx context.Context, panel *models.Panel) (Dialect, Result) {
	order := []string{models.DialectV1, models.DialectV2}

	var lastErr error
	for _, name := range order {
		d := c.dialects[name]
		eps := d.Candidates(OpBalance)
		if len(eps) == 0 {
			continue
		}
		resp, err := d.Do(ctx, c.httpc.Raw(), panel, eps[0], nil)
		if err != nil {
			lastErr = err
			continue
		}
		if d.Probe(resp.StatusCode(), resp.Body()) {
			c.logger.Info("panel dialect detected",
				zap.Uint("panel_id", panel.ID), zap.String("dialect", name))
			return d, Result{}
		}
	}

	if lastErr != nil {
		return nil, failure(classifyTransport(lastErr), fmt.Errorf("dialect probe failed: %w", lastErr))
	}
	return nil, failure(KindAPIError, fmt.Errorf("panel %s answered neither dialect probe", panel.Name))
}

func (c *Client) rememberEndpoint(panel *models.Panel, op Op, ep Endpoint) {
	panel.SetDetectedEndpoint(string(op), ep.Path)
	if c.recorder == nil {
		return
	}
	if err := c.recorder.SavePanelDetection(panel); err != nil {
		c.logger.Warn("failed to persist detected endpoint",
			zap.Uint("panel_id", panel.ID), zap.String("op", string(op)), zap.Error(err))
	}
}

func prependEndpoint(candidates []Endpoint, detectedPath string) []Endpoint {
	for i, ep := range candidates {
		if ep.Path == detectedPath {
			if i == 0 {
				return candidates
			}
			out := make([]Endpoint, 0, len(candidates))
			out = append(out, ep)
			out = append(out, candidates[:i]...)
			out = append(out, candidates[i+1:]...)
			return out
		}
	}
	// Endpoint came from an older candidate list; try it first anyway.
	method := "POST"
	if len(candidates) > 0 {
		method = candidates[0].Method
	}
	return append([]Endpoint{{Method: method, Path: detectedPath}}, candidates...)
}

func describeAttempt(d Dialect, panel *models.Panel, ep Endpoint) string {
	return fmt.Sprintf("%s:%s%s", d.Name(), panel.BaseURL, "/"+strings.TrimPrefix(ep.Path, "/"))
}
