package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/model"
)

// splitMulti splits a multi-value parameter on "|" or ",", dropping empties.
func splitMulti(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' })
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func badParam(name, value string) error {
	return &enumerate.UsageError{Code: enumerate.CodeBadParams, Info: "invalid value for parameter '" + name + "': " + value}
}

func parseIDList(name, raw string) ([]int64, error) {
	vals := splitMulti(raw)
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, badParam(name, v)
		}
		out = append(out, id)
	}
	return out, nil
}

func parseOptionalID(name, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, badParam(name, raw)
	}
	return &id, nil
}

// parseOptionalTime accepts ISO 8601 date-times in the forms strfmt knows.
func parseOptionalTime(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dt, err := strfmt.ParseDateTime(raw)
	if err != nil {
		return nil, badParam(name, raw)
	}
	t := time.Time(dt).UTC()
	return &t, nil
}

// queryParams is the subset of url.Values the parser reads.
type queryParams interface {
	Query(key string) string
}

func parseQuery(p queryParams) (enumerate.Query, error) {
	var (
		q   enumerate.Query
		err error
	)
	if q.RevIDs, err = parseIDList("revids", p.Query("revids")); err != nil {
		return q, err
	}
	if q.PageIDs, err = parseIDList("pageids", p.Query("pageids")); err != nil {
		return q, err
	}
	if q.StartID, err = parseOptionalID("startid", p.Query("startid")); err != nil {
		return q, err
	}
	if q.EndID, err = parseOptionalID("endid", p.Query("endid")); err != nil {
		return q, err
	}
	if q.Start, err = parseOptionalTime("start", p.Query("start")); err != nil {
		return q, err
	}
	if q.End, err = parseOptionalTime("end", p.Query("end")); err != nil {
		return q, err
	}
	if q.Limit, err = enumerate.ParseLimit(p.Query("limit")); err != nil {
		return q, err
	}
	q.Dir = model.Direction(strings.TrimSpace(p.Query("dir")))
	q.User = strings.TrimSpace(p.Query("user"))
	q.ExcludeUser = strings.TrimSpace(p.Query("excludeuser"))
	q.Tag = strings.TrimSpace(p.Query("tag"))
	q.Continue = strings.TrimSpace(p.Query("continue"))
	return q, nil
}
