package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
)

// Page sizes for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// page is a 1-indexed window over a list.
type page struct {
	number int
	size   int
}

// parsePage reads ?page= and ?page_size=. Missing values take defaults,
// page_size above MaxPageSize is clamped, and anything unparsable or
// below 1 is a validation error.
func parsePage(req *http.Request) (page, error) {
	p := page{number: 1, size: DefaultPageSize}
	q := req.URL.Query()

	var err error
	if p.number, err = positiveParam(q, "page", p.number); err != nil {
		return page{}, err
	}
	if p.size, err = positiveParam(q, "page_size", p.size); err != nil {
		return page{}, err
	}
	p.size = min(p.size, MaxPageSize)
	return p, nil
}

func positiveParam(q url.Values, key string, fallback int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, key)
	}
	return n, nil
}

func (p page) limit() int  { return p.size }
func (p page) offset() int { return (p.number - 1) * p.size }

// meta describes the window; the totals are added when known.
func (p page) meta(total *int64) *jsonapi.Meta {
	m := jsonapi.Meta{"page": p.number, "page_size": p.size}
	if total != nil {
		m["total_count"] = *total
		m["total_pages"] = p.pages(*total)
	}
	return &m
}

func (p page) pages(total int64) int {
	return int((total + int64(p.size) - 1) / int64(p.size))
}

// links builds first/prev/next/last links that keep the request's other
// query parameters.
func (p page) links(req *http.Request, total int64) *jsonapi.Links {
	at := func(n int) string {
		q := req.URL.Query()
		q.Set("page", strconv.Itoa(n))
		q.Set("page_size", strconv.Itoa(p.size))
		return req.URL.Path + "?" + q.Encode()
	}

	last := p.pages(total)
	links := &jsonapi.Links{Self: at(p.number), First: at(1)}
	if last > 0 {
		links.Last = at(last)
	}
	if p.number > 1 {
		links.Prev = at(p.number - 1)
	}
	if p.number < last {
		links.Next = at(p.number + 1)
	}
	return links
}
