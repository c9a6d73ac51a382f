package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canvas/internal/service"
)

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	require.Len(t, m.Events, 2)
	assert.Equal(t, "test:event", m.Events[0].Event)
	assert.Equal(t, map[string]string{"foo": "bar"}, m.Events[0].Data)
}

func TestMockEmitter_Named(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "sync:failed", "a")
	m.Emit(ctx, "shapes:changed", nil)
	m.Emit(ctx, "sync:failed", "b")

	got := m.Named("sync:failed")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Data)
	assert.Empty(t, m.Named("missing"))
}

func TestFanout_ForwardsInOrder(t *testing.T) {
	a, b := &service.MockEmitter{}, &service.MockEmitter{}
	f := service.Fanout{a, service.NopEmitter{}, b, service.LogEmitter{Logger: zap.NewNop()}}

	f.Emit(context.Background(), "shapes:changed", 3)

	require.Len(t, a.Events, 1)
	require.Len(t, b.Events, 1)
	assert.Equal(t, 3, b.Events[0].Data)
}
