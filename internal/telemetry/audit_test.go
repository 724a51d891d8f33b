package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")

	var captured telemetry.AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.messaging", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(telemetry.AuditEnvelope)
		}).
		Return(nil).Once()

	userID := "u1"
	emitter.Emit(context.Background(), "INFO", "Login succeeded", "req-1", &userID)

	publisher.AssertExpectations(t)
	require.Equal(t, "audit_log", captured.EventType)
	require.Equal(t, "messaging-service", captured.Service)
	require.Equal(t, "req-1", captured.RequestID)
	require.NotNil(t, captured.UserID)
	require.Equal(t, "u1", *captured.UserID)
	require.Equal(t, "INFO", captured.Payload.Level)
	require.Equal(t, "Login succeeded", captured.Payload.Text)
}

func TestEmitOnNilEmitterIsNoop(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	emitter.Emit(context.Background(), "INFO", "ignored", "req-1", nil)
}

func TestEmitSwallowsPublishFailure(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")

	publisher.On("Publish", mock.Anything, "audit.messaging", mock.Anything, mock.Anything).
		Return(context.DeadlineExceeded).Once()

	emitter.Emit(context.Background(), "ERROR", "boom", "req-2", nil)
	publisher.AssertExpectations(t)
}
