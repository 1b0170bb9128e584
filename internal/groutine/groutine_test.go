package groutine_test

import (
	"context"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/srg/blehub/internal/groutine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCarriesName(t *testing.T) {
	type seen struct {
		name  string
		label string
	}
	ch := make(chan seen, 1)

	groutine.Go(nil, "hub/heartbeat", func(ctx context.Context) { //nolint:staticcheck // nil parent is supported
		label, _ := pprof.Label(ctx, "goroutine_name")
		ch <- seen{name: groutine.GetName(ctx), label: label}
	})

	select {
	case got := <-ch:
		assert.Equal(t, "hub/heartbeat", got.name)
		assert.Equal(t, "hub/heartbeat", got.label)
	case <-time.After(time.Second):
		require.FailNow(t, "goroutine did not run")
	}
}

func TestGetNameWithoutName(t *testing.T) {
	assert.Equal(t, "", groutine.GetName(context.Background()))
	assert.Equal(t, "", groutine.GetName(nil)) //nolint:staticcheck // nil context is handled
}
