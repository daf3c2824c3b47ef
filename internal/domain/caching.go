package domain

import (
	"fmt"
	"strings"
)

// CachingStrategy selects which source an EventRepository call consults and in what order.
type CachingStrategy int

const (
	// NetworkOnly fetches from the remote catalog and never touches the cache.
	NetworkOnly CachingStrategy = iota
	// CacheOnly reads the local cache only.
	CacheOnly
	// NetworkThenCache fetches remotely, writes the result through to the cache,
	// and falls back to the cache on connectivity or data loading failures.
	NetworkThenCache
	// CacheThenNetwork serves the cache when it is populated and fresh,
	// otherwise fetches remotely. Exactly one result is delivered per call.
	CacheThenNetwork
)

var cachingStrategyNames = map[CachingStrategy]string{
	NetworkOnly:      "networkOnly",
	CacheOnly:        "cacheOnly",
	NetworkThenCache: "networkThenCache",
	CacheThenNetwork: "cacheThenNetwork",
}

func (s CachingStrategy) String() string {
	if name, ok := cachingStrategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CachingStrategy(%d)", int(s))
}

// ParseCachingStrategy parses a strategy name, case-insensitively.
// An empty string selects NetworkThenCache.
func ParseCachingStrategy(s string) (CachingStrategy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NetworkThenCache, nil
	}
	for strategy, name := range cachingStrategyNames {
		if strings.EqualFold(name, s) {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("unknown caching strategy %q", s)
}
