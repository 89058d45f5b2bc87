package signature

import (
	"regexp"
	"sync"
)

// regexCache compiles each pattern once. Registries are tiny, but matches
// run on every scan pass against full frame markup, so compiled patterns
// are kept for the process lifetime.
type regexCache struct {
	mu sync.RWMutex
	m  map[string]*regexp.Regexp
}

var cache = &regexCache{m: make(map[string]*regexp.Regexp)}

func (c *regexCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.m[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.m[pattern] = re
	c.mu.Unlock()
	return re, nil
}
