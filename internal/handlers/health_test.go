package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCachePinger struct {
	err error
}

func (s *stubCachePinger) Ping(ctx context.Context) error {
	return s.err
}

func TestCacheStatusWithoutCache(t *testing.T) {
	h := NewHealthHandler(nil)

	assert.Equal(t, "", h.cacheStatus(context.Background()))
}

func TestCacheStatusReachable(t *testing.T) {
	h := NewHealthHandler(nil)
	h.SetCache(&stubCachePinger{})

	assert.Equal(t, "ok", h.cacheStatus(context.Background()))
}

func TestCacheStatusUnreachable(t *testing.T) {
	h := NewHealthHandler(nil)
	h.SetCache(&stubCachePinger{err: errors.New("connection refused")})

	assert.Equal(t, "unavailable", h.cacheStatus(context.Background()))
}
