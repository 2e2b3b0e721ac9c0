package controller

import (
	"context"

	"github.com/robertmeta/portal-cli/model"
)

// Dashboard shows the analytics overview. All figures are computed
// locally from one GetAnalytics call.
type Dashboard struct {
	base
	data ContentGateway

	analytics *model.Analytics
	summary   model.AnalyticsSummary
}

// NewDashboard creates the dashboard controller.
func NewDashboard(d Deps) *Dashboard {
	c := &Dashboard{data: d.Data}
	c.init(d, "dashboard")
	return c
}

// Activate fetches analytics.
func (c *Dashboard) Activate(ctx context.Context) Outcome {
	gen, out, ok := c.activate()
	if !ok {
		return out
	}

	a, err := c.data.GetAnalytics(ctx)
	if err != nil {
		return c.fail(gen, err, "Failed to load analytics data", "")
	}

	if !c.commit(gen, Ready, func() {
		c.analytics = a
		c.summary = a.Summarize()
	}) {
		return c.stale()
	}
	return Outcome{State: Ready}
}

// Analytics returns the raw analytics.
func (c *Dashboard) Analytics() *model.Analytics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analytics
}

// Summary returns the computed dashboard figures.
func (c *Dashboard) Summary() model.AnalyticsSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}
