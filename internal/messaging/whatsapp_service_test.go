package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/campo-inteligente/campobot/internal/twiliowhatsapp"
	"github.com/campo-inteligente/campobot/internal/whatsapp"
)

func TestWhatsAppServiceValidateAndCanonicalizeRecipient(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	tests := []struct {
		name      string
		recipient string
		want      string
		wantErr   bool
	}{
		{name: "plain digits", recipient: "5511999998888", want: "5511999998888"},
		{name: "e164 format", recipient: "+5511999998888", want: "5511999998888"},
		{name: "formatted number", recipient: "+55 (11) 99999-8888", want: "5511999998888"},
		{name: "empty", recipient: "", wantErr: true},
		{name: "no digits", recipient: "abc", wantErr: true},
		{name: "too short", recipient: "12345", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ValidateAndCanonicalizeRecipient(tt.recipient)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.recipient)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("canonical = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWhatsAppServiceSendMessageEmitsReceipt(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	if err := svc.SendMessage(context.Background(), "+5511999998888", "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "5511999998888" {
			t.Errorf("receipt.To = %q, want 5511999998888", receipt.To)
		}
	default:
		t.Error("expected a sent receipt on the channel")
	}
}

func TestWhatsAppServiceSendMessageNeverBlocksWithoutConsumer(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Well past the receipt buffer, with nothing reading Receipts().
		for i := 0; i < DefaultChannelBufferSize+50; i++ {
			if err := svc.SendMessage(context.Background(), "+5511999998888", "hello"); err != nil {
				t.Errorf("SendMessage() error = %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendMessage blocked on a full receipts channel")
	}
}

func TestWhatsAppServiceSendMessageAfterStop(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	// The sent receipt must be discarded, not pushed into a closed channel.
	if err := svc.SendMessage(context.Background(), "+5511999998888", "hello"); err != nil {
		t.Errorf("SendMessage() after stop = %v, want nil", err)
	}
}

func TestTwilioServiceSendMessageAfterStop(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := svc.SendMessage(context.Background(), "5511999998888", "hello"); err != ErrServiceStopped {
		t.Errorf("SendMessage() after stop = %v, want ErrServiceStopped", err)
	}
}

func TestTwilioServiceSendMessageRecordsCanonicalRecipient(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)

	if err := svc.SendMessage(context.Background(), "+55 11 99999-8888", "oi"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("len(SentMessages) = %d, want 1", len(mock.SentMessages))
	}
	if mock.SentMessages[0].To != "5511999998888" {
		t.Errorf("To = %q, want 5511999998888", mock.SentMessages[0].To)
	}
}
