package panelapi

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"smmbridge/internal/models"
)

// Provider is one upstream supplier visible through a panel's admin data.
type Provider struct {
	Name   string
	Domain string
}

// Providers discovers the upstream providers behind an action-based panel.
// Four independent strategies run in sequence; each either yields usable
// data or is skipped. No data after all four is a legitimate empty result,
// not an error; some panels simply expose no provider information.
func (c *Client) Providers(ctx context.Context, panel *models.Panel) ([]Provider, Result) {
	strategies := []struct {
		name string
		run  func(context.Context, *models.Panel) []Provider
	}{
		{"order_listing_with_provider", c.providersFromOrderListing},
		{"provider_data_low_range", func(ctx context.Context, p *models.Panel) []Provider {
			return c.providersFromDataRange(ctx, p, 1, 50)
		}},
		{"provider_data_high_range", func(ctx context.Context, p *models.Panel) []Provider {
			return c.providersFromDataRange(ctx, p, 1000, 1050)
		}},
		{"plain_order_listing", c.providersFromPlainListing},
	}

	for _, s := range strategies {
		providers := s.run(ctx, panel)
		if len(providers) > 0 {
			c.logger.Info("provider discovery succeeded",
				zap.Uint("panel_id", panel.ID), zap.String("strategy", s.name),
				zap.Int("providers", len(providers)))
			return providers, Result{Success: true}
		}
	}

	return nil, Result{Success: true}
}

// Strategy 1: bulk order listing that carries a provider field per order.
func (c *Client) providersFromOrderListing(ctx context.Context, panel *models.Panel) []Provider {
	res := c.Request(ctx, panel, OpOrders, map[string]string{"limit": "100"})
	if !res.Success {
		return nil
	}
	return collectProviders(res.List)
}

// Strategies 2 and 3: mass provider-data lookup over a sampled id range.
// Panels with sparse low ids sometimes only answer for later orders, hence
// the second, higher range.
func (c *Client) providersFromDataRange(ctx context.Context, panel *models.Panel, from, to int) []Provider {
	res := c.Request(ctx, panel, OpProviderData, map[string]string{
		"from": strconv.Itoa(from),
		"to":   strconv.Itoa(to),
	})
	if !res.Success {
		return nil
	}
	if res.List != nil {
		return collectProviders(res.List)
	}
	if res.Data != nil {
		return collectProviders([]map[string]interface{}{res.Data})
	}
	return nil
}

// Strategy 4: plain listing; provider names occasionally leak through
// generic fields even without a dedicated column.
func (c *Client) providersFromPlainListing(ctx context.Context, panel *models.Panel) []Provider {
	res := c.Request(ctx, panel, OpOrders, nil)
	if !res.Success {
		return nil
	}
	return collectProviders(res.List)
}

func collectProviders(rows []map[string]interface{}) []Provider {
	seen := map[string]bool{}
	var out []Provider
	for _, row := range rows {
		name := firstString(row, "provider", "provider_name", "provider_domain")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Provider{
			Name:   name,
			Domain: firstString(row, "provider_domain", "domain"),
		})
	}
	return out
}
