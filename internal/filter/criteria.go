package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

const maxSearchLength = 200

// reservedParams are query parameters that are not categorical filters.
var reservedParams = map[string]bool{
	"search":   true,
	"q":        true,
	"window":   true,
	"from":     true,
	"to":       true,
	"expr":     true,
	"page":     true,
	"per_page": true,
	"limit":    true,
}

// ParseCriteria builds FilterCriteria from query parameters. Any parameter
// that is not reserved is treated as a categorical filter on that field;
// "type" is stored as "category". Parameters starting with an underscore
// are ignored. Supplying from or to implies the range window.
func ParseCriteria(q url.Values) (models.FilterCriteria, error) {
	c := models.FilterCriteria{
		Search:      q.Get("search"),
		Categorical: make(map[string]string),
		Expression:  q.Get("expr"),
	}
	if c.Search == "" {
		c.Search = q.Get("q")
	}
	if len(c.Search) > maxSearchLength {
		return c, fmt.Errorf("search term too long (max %d characters)", maxSearchLength)
	}

	window, err := models.ParseTimeWindow(q.Get("window"))
	if err != nil {
		return c, err
	}
	c.Window = window

	from, err := ParseDate(q.Get("from"))
	if err != nil {
		return c, fmt.Errorf("invalid from: %w", err)
	}
	to, err := ParseDateEndOfDay(q.Get("to"))
	if err != nil {
		return c, fmt.Errorf("invalid to: %w", err)
	}
	if !from.IsZero() || !to.IsZero() {
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			return c, fmt.Errorf("to must not be before from")
		}
		c.Window = models.WindowRange
		c.From = from
		c.To = to
	}

	for key, values := range q {
		if reservedParams[key] || strings.HasPrefix(key, "_") || len(values) == 0 {
			continue
		}
		c.Categorical[CanonicalField(key)] = strings.TrimSpace(values[0])
	}

	return c, nil
}
