package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func checker(dbErr error, cacheOn, cacheOK bool) *HealthChecker {
	h := NewHealthChecker(pingFunc(func(context.Context) error { return dbErr }))
	h.cacheOn = func() bool { return cacheOn }
	h.cacheCheck = func(context.Context) bool { return cacheOK }
	return h
}

func TestCheckBasic(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		cacheOn bool
		cacheOK bool
		want    string
		cache   string
	}{
		{"all good", nil, true, true, "healthy", "healthy"},
		{"cache disabled", nil, false, false, "healthy", "disabled"},
		{"cache down", nil, true, false, "degraded", "unhealthy"},
		{"database down", errors.New("refused"), true, true, "unhealthy", "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := checker(tt.dbErr, tt.cacheOn, tt.cacheOK).CheckBasic(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, tt.cache, status.Cache.Status)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "2.00 GB", formatBytes(2*1024*1024*1024))
	assert.Equal(t, "512.00 MB", formatBytes(512*1024*1024))
}
