// Package cliquery turns positional command-line tokens into store
// queries: START-DATE [END-DATE] AGG metric [tag=value...] repeated.
package cliquery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/basekick-labs/tsdump/internal/store"
)

var aggregators = map[string]bool{
	"sum":   true,
	"min":   true,
	"max":   true,
	"avg":   true,
	"count": true,
	"dev":   true,
}

// ParseCommandLineQuery parses one or more queries sharing a date
// range. The end date is present when the second token is not an
// aggregator name; it defaults to now.
func ParseCommandLineQuery(args []string) ([]store.Query, error) {
	if len(args) < 3 {
		return nil, errors.New("not enough arguments")
	}

	start, err := ParseDate(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", args[0], err)
	}
	end := time.Now().Unix()
	i := 1
	if !aggregators[args[1]] {
		end, err = ParseDate(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", args[1], err)
		}
		i = 2
	}

	var queries []store.Query
	for i < len(args) {
		agg := args[i]
		if !aggregators[agg] {
			return nil, fmt.Errorf("invalid aggregator %q", agg)
		}
		i++
		if i >= len(args) {
			return nil, fmt.Errorf("aggregator %q is not followed by a metric", agg)
		}
		metric := args[i]
		i++

		tags := make(map[string]string)
		for i < len(args) && strings.Contains(args[i], "=") {
			kv := strings.SplitN(args[i], "=", 2)
			if kv[0] == "" || kv[1] == "" {
				return nil, fmt.Errorf("invalid tag filter %q", args[i])
			}
			tags[kv[0]] = kv[1]
			i++
		}
		queries = append(queries, store.Query{
			Metric:     metric,
			Tags:       tags,
			Start:      start,
			End:        end,
			Aggregator: agg,
		})
	}
	if len(queries) == 0 {
		return nil, errors.New("no query specified")
	}
	return queries, nil
}

var absoluteLayouts = []string{
	"2006/01/02-15:04:05",
	"2006/01/02-15:04",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

var relativeUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 7 * 86400,
	'y': 365 * 86400,
}

// ParseDate accepts epoch seconds or milliseconds (digit strings longer
// than ten digits are milliseconds), absolute dates, relative
// "N{s,m,h,d,w,y}-ago" forms and "now". The result is epoch seconds.
func ParseDate(s string) (int64, error) {
	if s == "now" {
		return time.Now().Unix(), nil
	}

	if rel, ok := strings.CutSuffix(s, "-ago"); ok {
		if len(rel) < 2 {
			return 0, fmt.Errorf("invalid relative date %q", s)
		}
		unit, ok := relativeUnits[rel[len(rel)-1]]
		if !ok {
			return 0, fmt.Errorf("unknown time unit %q", rel[len(rel)-1:])
		}
		n, err := strconv.ParseInt(rel[:len(rel)-1], 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid relative date %q", s)
		}
		return time.Now().Unix() - n*unit, nil
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("negative timestamp %q", s)
		}
		if len(s) > 10 {
			v /= 1000
		}
		return v, nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unparseable date %q", s)
}
