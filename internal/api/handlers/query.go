package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// queryList reads a multi-valued filter. Both styles are accepted:
//
//	?severity=CRITICAL&severity=URGENT
//	?severity=CRITICAL,URGENT
//
// Values are upper-cased and deduplicated. A nil result means no filter.
func queryList(c *gin.Context, param string) map[string]struct{} {
	raw := c.QueryArray(param)
	if len(raw) == 0 {
		return nil
	}

	values := make(map[string]struct{})
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			values[part] = struct{}{}
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// filterBy keeps the rows whose field is in allowed. A nil allowed keeps everything.
func filterBy[T any](rows []T, allowed map[string]struct{}, field func(T) string) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if allowed != nil {
			if _, ok := allowed[strings.ToUpper(field(r))]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}
