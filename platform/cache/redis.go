// Package cache provides the shared redis connection setup.
// This is part of the platform layer and contains no business logic.
package cache

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ParseRedisURL parses a redis:// or rediss:// URL into client options.
// tlsInsecure skips certificate verification for managed redis with self-signed certs.
func ParseRedisURL(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewRedisClient creates a go-redis client from a URL.
func NewRedisClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := ParseRedisURL(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
