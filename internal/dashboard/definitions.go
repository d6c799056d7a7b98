// Package dashboard wires the record pipeline into per-domain dashboards.
//
// A Definition declares everything that differs between dashboards: where the
// collection lives upstream, how raw objects normalize, which fields search
// scans, alias tables, KPIs and charts. A Page owns the loaded collection
// for one Definition and serves filtered views of it.
package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/aggregate"
	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/normalize"
	"github.com/good-yellow-bee/pricedesk/internal/stats"
)

// Scope selects which collection a chart reads.
type Scope string

const (
	// ScopeAll charts the full loaded collection.
	ScopeAll Scope = "all"
	// ScopeFiltered charts the rows left after filtering.
	ScopeFiltered Scope = "filtered"
)

// ChartKind identifies the aggregate a chart is built from.
type ChartKind string

const (
	ChartOverTime     ChartKind = "over_time"
	ChartDistribution ChartKind = "distribution"
	ChartRanking      ChartKind = "ranking"
	ChartLoginStatus  ChartKind = "login_status"
)

// Chart declares one chart of a dashboard.
type Chart struct {
	Name  string
	Title string
	Kind  ChartKind
	Scope Scope

	// Days is the number of calendar days for ChartOverTime.
	Days int
	// Distribution configures ChartDistribution.
	Distribution aggregate.DistributionConfig
	// Rank configures ChartRanking.
	Rank aggregate.RankConfig
	// Percent converts the series into percentages of its total.
	Percent bool
}

// Compute builds the chart from the full and filtered collections.
// Distribution buckets without their own rules use the dashboard's.
func (c Chart) Compute(rules *filter.Rules, all, filtered []models.Record, now time.Time) models.AggregateResult {
	records := all
	if c.Scope == ScopeFiltered {
		records = filtered
	}

	var out models.AggregateResult
	switch c.Kind {
	case ChartOverTime:
		out = aggregate.OverTime(records, c.Days, now)
	case ChartDistribution:
		cfg := c.Distribution
		if cfg.Rules == nil {
			cfg.Rules = rules
		}
		out = aggregate.Distribution(records, cfg)
	case ChartRanking:
		out = aggregate.Rank(records, c.Rank)
	case ChartLoginStatus:
		out = aggregate.LoginStatus(records)
	default:
		out = models.NewAggregateResult(0)
	}
	if c.Percent {
		out = aggregate.Percentages(out)
	}
	return out
}

// StatusAction describes the status mutation a dashboard supports.
type StatusAction struct {
	// Path is the upstream path with one %s verb for the record id.
	Path   string
	Method string
	// Allowed lists the statuses that may be set.
	Allowed []string
}

// Allows reports whether status may be set.
func (a *StatusAction) Allows(status string) bool {
	if a == nil {
		return false
	}
	for _, s := range a.Allowed {
		if s == status {
			return true
		}
	}
	return false
}

// Definition declares one dashboard.
type Definition struct {
	Name  string
	Title string
	// What names the collection in user-facing failure messages.
	What string

	Endpoint      string
	CollectionKey string

	Schema normalize.Schema
	Filter filter.Rules
	Stats  []stats.Def
	Charts []Chart

	// View is required to read the dashboard.
	View models.Capability
	// Manage is required for mutations. Empty means read-only.
	Manage models.Capability

	UpdateStatus *StatusAction
	// DeletePath is the upstream path with one %s verb for the record id.
	// Empty disables deletion.
	DeletePath string
}

// FilterRules returns the filter rules with every schema field accepted as
// a categorical filter.
func (d *Definition) FilterRules() *filter.Rules {
	rules := d.Filter
	if len(rules.Fields) == 0 {
		rules.Fields = make([]string, 0, len(d.Schema.Fields))
		for name := range d.Schema.Fields {
			rules.Fields = append(rules.Fields, name)
		}
		sort.Strings(rules.Fields)
	}
	return &rules
}

// Chart returns the chart named name.
func (d *Definition) Chart(name string) (Chart, bool) {
	for _, c := range d.Charts {
		if c.Name == name {
			return c, true
		}
	}
	return Chart{}, false
}

// ReadOnly reports whether the dashboard supports no mutations.
func (d *Definition) ReadOnly() bool {
	return d.Manage == "" || (d.UpdateStatus == nil && d.DeletePath == "")
}

// Registry holds dashboard definitions by name.
type Registry struct {
	defs   map[string]*Definition
	sorted []*Definition
}

// NewRegistry creates a registry. Duplicate names are an error.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("dashboard definition without name")
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate dashboard %q", d.Name)
		}
		r.defs[d.Name] = d
		r.sorted = append(r.sorted, d)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })
	return r, nil
}

// DefaultRegistry returns the registry of built-in dashboards.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the definition named name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// All returns every definition ordered by name.
func (r *Registry) All() []*Definition {
	return append([]*Definition(nil), r.sorted...)
}

// Names returns every dashboard name in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.sorted))
	for i, d := range r.sorted {
		out[i] = d.Name
	}
	return out
}

// Builtin returns fresh copies of the built-in dashboard definitions.
func Builtin() []*Definition {
	return []*Definition{
		Notifications(),
		Logins(),
		PriceAlerts(),
		BusinessPosts(),
	}
}

var (
	idPaths      = []string{"_id", "id"}
	createdPaths = []string{"createdAt", "created_at", "timestamp"}
)

func totalAndToday() []stats.Def {
	return []stats.Def{
		{Key: "total", Label: "Total", Match: stats.Total},
		{Key: "today", Label: "Today", Match: stats.Today},
	}
}

// Notifications is the admin notification feed.
func Notifications() *Definition {
	typeBuckets := []aggregate.Bucket{
		{Label: "User Registration", Values: []string{"user_registration", "user_registered"}},
		{Label: "Price Alert", Values: []string{"price_alert"}},
		{Label: "Business Post", Values: []string{"business_post"}},
		{Label: "System", Values: []string{"system"}},
	}

	return &Definition{
		Name:          "notifications",
		Title:         "Notifications",
		What:          "notifications",
		Endpoint:      "/api/admin/notifications",
		CollectionKey: "notifications",
		Schema: normalize.Schema{
			ID:         idPaths,
			Time:       createdPaths,
			Category:   []string{"type", "category"},
			Status:     []string{"isRead", "read", "status"},
			BoolStatus: [2]string{"read", "unread"},
			Fields: map[string][]string{
				"title":     {"title", "subject"},
				"message":   {"message", "body", "content"},
				"recipient": {"userEmail", "user.email", "email"},
				"priority":  {"priority"},
			},
			Defaults: map[string]any{"priority": "normal"},
		},
		Filter: filter.Rules{
			SearchFields: []string{"title", "message", "type"},
			Aliases: map[string]map[string][]string{
				"category": {
					"price_alert":       {"price_alert_created"},
					"user_registration": {"user_registered"},
					"business_post":     {"business_post_created"},
				},
			},
		},
		Stats: append(totalAndToday(),
			stats.Def{Key: "unread", Label: "Unread", Match: stats.StatusIs("unread")},
			stats.Def{Key: "price_alerts", Label: "Price Alerts", Match: stats.CategoryIs("price_alert", "price_alert_created")},
		),
		Charts: []Chart{
			{
				Name: "types", Title: "Notifications by Type", Kind: ChartDistribution, Scope: ScopeAll,
				Distribution: aggregate.DistributionConfig{Field: "category", Buckets: typeBuckets},
			},
			{Name: "trend", Title: "Last 7 Days", Kind: ChartOverTime, Scope: ScopeAll, Days: 7},
		},
		View:   models.CapViewDashboards,
		Manage: models.CapManageNotifications,
		UpdateStatus: &StatusAction{
			Path:    "/api/admin/notifications/%s/status",
			Method:  "PUT",
			Allowed: []string{"read", "unread"},
		},
		DeletePath: "/api/admin/notifications/%s",
	}
}

// Logins is the login-tracking dashboard.
func Logins() *Definition {
	return &Definition{
		Name:          "logins",
		Title:         "Login Tracking",
		What:          "login history",
		Endpoint:      "/api/admin/login-tracking",
		CollectionKey: "logins",
		Schema: normalize.Schema{
			ID:         idPaths,
			Time:       []string{"timestamp", "loginTime", "createdAt"},
			Category:   []string{"eventType", "type", "action"},
			Status:     []string{"status", "result", "success"},
			BoolStatus: [2]string{"success", "failed"},
			Fields: map[string][]string{
				"email":     {"email", "user.email", "userEmail"},
				"name":      {"name", "user.name", "userName"},
				"ip":        {"ipAddress", "ip"},
				"userAgent": {"userAgent", "device"},
				"location":  {"location", "country"},
				"reason":    {"failureReason", "reason"},
			},
		},
		Filter: filter.Rules{
			SearchFields: []string{"email", "name", "ip"},
			Aliases: map[string]map[string][]string{
				"category": {"password_change": {
					"password_change_attempted",
					"password_change_failed",
					"password_change_success",
				}},
				"status": {
					"success": {"successful", "succeeded"},
					"failed":  {"failure", "fail", "blocked"},
				},
			},
		},
		Stats: append(totalAndToday(),
			stats.Def{Key: "successful", Label: "Successful", Match: stats.StatusIs("success", "successful", "succeeded")},
			stats.Def{Key: "failed", Label: "Failed", Match: stats.StatusIs("failed", "failure", "fail", "blocked")},
			stats.Def{Key: "unique_users", Label: "Unique Users", Distinct: "email"},
		),
		Charts: []Chart{
			{
				Name: "events", Title: "Event Types", Kind: ChartDistribution, Scope: ScopeFiltered,
				Distribution: aggregate.DistributionConfig{
					Field: "category",
					Buckets: []aggregate.Bucket{
						{Label: "Login", Values: []string{"login"}},
						{Label: "Logout", Values: []string{"logout"}},
						{Label: "Password Change", Values: []string{"password_change"}},
					},
				},
			},
			{Name: "status", Title: "Login Status", Kind: ChartLoginStatus, Scope: ScopeFiltered},
			{Name: "trend", Title: "Logins, Last 7 Days", Kind: ChartOverTime, Scope: ScopeFiltered, Days: 7},
			{
				Name: "top-users", Title: "Most Active Users", Kind: ChartRanking, Scope: ScopeFiltered,
				Rank: aggregate.RankConfig{LabelField: "email", N: 5, MaxLabel: 24},
			},
		},
		View: models.CapViewLogins,
	}
}

// PriceAlerts is the price-alert subscription dashboard.
func PriceAlerts() *Definition {
	return &Definition{
		Name:          "price-alerts",
		Title:         "Price Alerts",
		What:          "price alerts",
		Endpoint:      "/api/admin/price-alerts",
		CollectionKey: "alerts",
		Schema: normalize.Schema{
			ID:         idPaths,
			Time:       createdPaths,
			Category:   []string{"storeName", "store", "product.store"},
			Status:     []string{"isActive", "active", "status"},
			BoolStatus: [2]string{"active", "inactive"},
			Fields: map[string][]string{
				"email":        {"userEmail", "user.email", "email"},
				"product":      {"productName", "product.name", "product.title"},
				"store":        {"storeName", "store", "product.store"},
				"targetPrice":  {"targetPrice", "target_price"},
				"currentPrice": {"currentPrice", "product.price"},
			},
			Defaults: map[string]any{"product": "Unknown"},
			Numeric:  []string{"targetPrice", "currentPrice"},
		},
		Filter: filter.Rules{
			SearchFields: []string{"email", "product", "store"},
		},
		Stats: []stats.Def{
			{Key: "total", Label: "Total", Match: stats.Total},
			{Key: "active", Label: "Active", Match: stats.StatusIs("active")},
			{Key: "inactive", Label: "Inactive", Match: stats.StatusIs("inactive")},
			{Key: "today", Label: "Created Today", Match: stats.Today},
		},
		Charts: []Chart{
			{
				Name: "top-products", Title: "Most Watched Products", Kind: ChartRanking, Scope: ScopeAll,
				Rank: aggregate.RankConfig{LabelField: "product", N: 5, MaxLabel: 20},
			},
			{
				Name: "top-targets", Title: "Highest Target Prices", Kind: ChartRanking, Scope: ScopeAll,
				Rank: aggregate.RankConfig{LabelField: "product", ValueField: "targetPrice", N: 10, MaxLabel: 20},
			},
			{
				Name: "status", Title: "Active vs Inactive", Kind: ChartDistribution, Scope: ScopeAll,
				Distribution: aggregate.DistributionConfig{
					Field: "status",
					Buckets: []aggregate.Bucket{
						{Label: "Active", Values: []string{"active"}},
						{Label: "Inactive", Values: []string{"inactive"}},
					},
					OmitFallback: true,
				},
			},
		},
		View:   models.CapViewDashboards,
		Manage: models.CapManageAlerts,
		UpdateStatus: &StatusAction{
			Path:    "/api/admin/price-alerts/%s/status",
			Method:  "PUT",
			Allowed: []string{"active", "inactive"},
		},
		DeletePath: "/api/admin/price-alerts/%s",
	}
}

// BusinessPosts is the business-post moderation dashboard.
func BusinessPosts() *Definition {
	return &Definition{
		Name:          "business-posts",
		Title:         "Business Posts",
		What:          "business posts",
		Endpoint:      "/api/admin/business-posts",
		CollectionKey: "posts",
		Schema: normalize.Schema{
			ID:       idPaths,
			Time:     createdPaths,
			Category: []string{"category", "postType", "type"},
			Status:   []string{"status", "moderationStatus"},
			Fields: map[string][]string{
				"title":    {"title"},
				"content":  {"content", "description"},
				"business": {"businessName", "businessInfo.businessName"},
				"views":    {"views", "viewCount", "stats.views"},
				"likes":    {"likes", "likeCount", "stats.likes"},
			},
			Defaults: map[string]any{"business": "Unknown"},
			Numeric:  []string{"views", "likes"},
		},
		Filter: filter.Rules{
			SearchFields: []string{"title", "business", "content"},
			Aliases: map[string]map[string][]string{
				"status": {"pending": {"pending_review"}},
			},
		},
		Stats: append([]stats.Def{
			{Key: "total", Label: "Total", Match: stats.Total},
			{Key: "pending", Label: "Pending", Match: stats.StatusIs("pending", "pending_review")},
			{Key: "approved", Label: "Approved", Match: stats.StatusIs("approved")},
			{Key: "rejected", Label: "Rejected", Match: stats.StatusIs("rejected")},
		}, stats.Def{Key: "today", Label: "Today", Match: stats.Today}),
		Charts: []Chart{
			{
				Name: "status", Title: "Moderation Status", Kind: ChartDistribution, Scope: ScopeAll,
				Distribution: aggregate.DistributionConfig{
					Field: "status",
					Buckets: []aggregate.Bucket{
						{Label: "Pending", Values: []string{"pending"}},
						{Label: "Approved", Values: []string{"approved"}},
						{Label: "Rejected", Values: []string{"rejected"}},
					},
				},
			},
			{
				Name: "top-views", Title: "Most Viewed Posts", Kind: ChartRanking, Scope: ScopeAll,
				Rank: aggregate.RankConfig{LabelField: "title", ValueField: "views", N: 6, MaxLabel: 25},
			},
			{Name: "trend", Title: "New Posts, Last 7 Days", Kind: ChartOverTime, Scope: ScopeAll, Days: 7},
		},
		View:   models.CapViewDashboards,
		Manage: models.CapModeratePosts,
		UpdateStatus: &StatusAction{
			Path:    "/api/admin/business-posts/%s/status",
			Method:  "PUT",
			Allowed: []string{"pending", "approved", "rejected"},
		},
		DeletePath: "/api/admin/business-posts/%s",
	}
}
