package inbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type fakeUsecase struct {
	mu  sync.Mutex
	got []usecase.ConsumeOTPDeliveryInput
	cID []string
}

func (f *fakeUsecase) ConsumeOTPDelivery(ctx context.Context, in usecase.ConsumeOTPDeliveryInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, in)
	f.cID = append(f.cID, instrument.GetCorrelationID(ctx))
	return nil
}

func (f *fakeUsecase) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

type fixedUUID string

func (u fixedUUID) Generate() string { return string(u) }

func TestRegisterMQConsumer_OTPDelivery(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    consumer_names: ["otp_delivery_email"]
`))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	broker := messaging.NewMemory()
	t.Cleanup(func() { _ = broker.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	routine := goroutine.NewManager(4)
	uc := &fakeUsecase{}

	RegisterMQConsumer(ctx, cfg, routine, broker, fixedUUID("generated"), uc, instrument.NewNoop())

	// Act
	body := []byte(`{"event_id":"evt-1","email":"a@x.com","code":"012345","expiry_seconds":300}`)
	deadline := time.Now().Add(2 * time.Second)
	for uc.count() == 0 && time.Now().Before(deadline) {
		_ = broker.Publish(ctx, event.OTPDeliveryDestination, messaging.OutgoingMessage{
			Body:    body,
			Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte("cid-1")}},
		})
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := routine.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		t.Logf("consumer stopped: %v", err)
	}

	// Assert
	if uc.count() == 0 {
		t.Fatal("consumer never received the message")
	}
	got := uc.got[0]
	if got.EventID != "evt-1" || got.Email != "a@x.com" || got.Code != "012345" || got.ExpirySeconds != 300 {
		t.Fatalf("input = %+v", got)
	}
	if uc.cID[0] != "cid-1" {
		t.Fatalf("correlation id = %q", uc.cID[0])
	}
}

type rawMessage struct {
	messaging.Message
	body []byte
}

func (m rawMessage) Body() []byte { return m.body }

func (rawMessage) Header(string) string { return "" }

func (rawMessage) ID() string { return "m-1" }

func TestMQHandler_OTPDelivery_MalformedBody(t *testing.T) {
	uc := &fakeUsecase{}
	h := &MQHandler{uc: uc, uuid: fixedUUID("generated"), ins: instrument.NewNoop()}

	err := h.OTPDelivery(context.Background(), rawMessage{body: []byte("{not json")})

	if err != nil {
		t.Fatalf("OTPDelivery() error = %v, want nil", err)
	}
	if uc.count() != 0 {
		t.Fatal("usecase must not be called for a malformed body")
	}
}
