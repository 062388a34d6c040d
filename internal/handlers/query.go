package handlers

import (
	"net/url"
	"strconv"

	"cloakroom-backend/internal/services"
)

// values collects every value of the given keys, so ?event=a&events=b,c
// and ?event=a,b both work.
func values(q url.Values, keys ...string) []string {
	var out []string
	for _, k := range keys {
		out = append(out, q[k]...)
	}
	return out
}

func filterInput(q url.Values) services.FilterInput {
	return services.FilterInput{
		Events:    values(q, "event", "events", "event_name"),
		Locations: values(q, "location", "locations"),
		Statuses:  values(q, "status", "statuses"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	}
}

func boolParam(q url.Values, key string) bool {
	v, err := strconv.ParseBool(q.Get(key))
	return err == nil && v
}

// boolParamOr is like boolParam but returns def when key is absent or not a
// boolean.
func boolParamOr(q url.Values, key string, def bool) bool {
	v, err := strconv.ParseBool(q.Get(key))
	if err != nil {
		return def
	}
	return v
}

func intParam(q url.Values, key string, def, max int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
