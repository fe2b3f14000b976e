package service

import (
	"context"
	"errors"
	"testing"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventDispatcher_DeliversToSubscribersAndSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventPublisher(ctrl)

	d := NewEventDispatcher(sink)
	var seen []domain.EventType
	d.Subscribe(func(_ context.Context, event domain.Event) {
		seen = append(seen, event.Type)
	})

	event := domain.NewEvent(domain.EventTradeExecuted, domain.TradeExecutedEvent{})
	sink.EXPECT().Publish(gomock.Any(), event).Return(nil)

	require.NoError(t, d.Publish(context.Background(), event))
	assert.Equal(t, []domain.EventType{domain.EventTradeExecuted}, seen)
}

func TestEventDispatcher_SinkErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventPublisher(ctrl)
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("stream down"))

	d := NewEventDispatcher(sink)
	err := d.Publish(context.Background(), domain.NewEvent(domain.EventClaimDecided, nil))
	assert.Error(t, err)
}

func TestEventDispatcher_NilSink(t *testing.T) {
	d := NewEventDispatcher(nil)
	delivered := false
	d.Subscribe(func(context.Context, domain.Event) { delivered = true })

	require.NoError(t, d.Publish(context.Background(), domain.NewEvent(domain.EventClaimDecided, nil)))
	assert.True(t, delivered)
}
