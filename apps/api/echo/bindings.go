package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mahimaacademy/academy/core"
)

const orderingParam = "ordering"

// Ordering binds `?ordering=-price,title` style query params; a leading "-" sorts descending.
// Fields are checked against a whitelist by the repositories.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
