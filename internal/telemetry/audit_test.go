package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "chat-service", "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	emitter.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var got AuditEnvelope
	pub.On("Publish", mock.Anything, "audit.chat", mock.AnythingOfType("telemetry.AuditEnvelope"), map[string]string{"x-request-id": "req-1"}).
		Run(func(args mock.Arguments) { got = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	userID := 7
	emitter.Emit(context.Background(), "INFO", "audit test", "req-1", &userID)

	pub.AssertExpectations(t)
	assert.Equal(t, "audit_log", got.EventType)
	assert.Equal(t, "2024-05-01T12:00:00Z", got.OccurredAt)
	require.NotNil(t, got.UserID)
	assert.Equal(t, 7, *got.UserID)
	assert.Equal(t, "audit test", got.Payload.Text)
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "chat-service", "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	pub.On("Publish", mock.Anything, "audit.chat", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() { emitter.Emit(context.Background(), "WARN", "x", "", nil) })
	pub.AssertExpectations(t)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() { emitter.Emit(context.Background(), "INFO", "x", "", nil) })
}
