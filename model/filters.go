package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ContentFilters narrows a content listing. Every field is optional and
// the data service alone decides what each filter means.
type ContentFilters struct {
	Search   string
	Category string
	Tag      string
	SortBy   string
	Featured *bool
	Status   string
}

// IsZero reports whether no filter is set.
func (f ContentFilters) IsZero() bool {
	return f.Encode() == ""
}

// Encode serializes the present filters as a query string. Keys are
// always written in the order search, category, tag, sort_by, featured,
// status so the same filter set yields the same string.
func (f ContentFilters) Encode() string {
	var parts []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}

	add("search", f.Search)
	add("category", f.Category)
	add("tag", f.Tag)
	add("sort_by", f.SortBy)
	if f.Featured != nil {
		add("featured", strconv.FormatBool(*f.Featured))
	}
	add("status", f.Status)

	return strings.Join(parts, "&")
}

// BuildContentFilters constructs ContentFilters from CLI flags.
// featured accepts "", "true" or "false" (and the other spellings
// strconv.ParseBool knows).
func BuildContentFilters(search, category, tag, sortBy, featured, status string) (ContentFilters, error) {
	f := ContentFilters{
		Search:   strings.TrimSpace(search),
		Category: strings.TrimSpace(category),
		Tag:      strings.TrimSpace(tag),
		SortBy:   strings.TrimSpace(sortBy),
		Status:   strings.TrimSpace(status),
	}

	if featured != "" {
		b, err := strconv.ParseBool(featured)
		if err != nil {
			return f, fmt.Errorf("invalid featured value %q: %w", featured, err)
		}
		f.Featured = &b
	}

	return f, nil
}

// ParseTags splits a comma separated tag list. Order and duplicates are
// preserved; empty elements are dropped.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
