package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// assignments collects repeated name=value flags.
type assignments map[string]float64

func (a assignments) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+strconv.FormatFloat(v, 'g', -1, 64))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (a assignments) Set(raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", raw)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}
	if _, exists := a[name]; exists {
		return fmt.Errorf("duplicate assignment for %s", name)
	}
	a[name] = v
	return nil
}
