package db

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRedisClient_EmptyURL(t *testing.T) {
	if rdb := NewRedisClient(context.Background(), "", zerolog.Nop()); rdb != nil {
		t.Fatal("expected nil client for empty url")
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if rdb := NewRedisClient(context.Background(), "http://not-redis", zerolog.Nop()); rdb != nil {
		t.Fatal("expected nil client for non-redis scheme")
	}
}
