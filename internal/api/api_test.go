package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campo-inteligente/campobot/internal/messaging"
	"github.com/campo-inteligente/campobot/internal/models"
	"github.com/campo-inteligente/campobot/internal/whatsapp"
)

// capturingHandler records the messages the webhook forwards.
type capturingHandler struct {
	msgs []models.IncomingMessage
	err  error
}

func (h *capturingHandler) HandleMessage(ctx context.Context, msg models.IncomingMessage) error {
	h.msgs = append(h.msgs, msg)
	return h.err
}

type stubWeather struct {
	forecast models.Forecast
	err      error
}

func (s *stubWeather) Current(ctx context.Context, city string) (models.Forecast, error) {
	return s.forecast, s.err
}

func newTestServer(handler *capturingHandler, weather *stubWeather) *Server {
	svc := messaging.NewWhatsAppService(whatsapp.NewMockClient())
	return NewServer(svc, handler, weather)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestWebhookHandlerTextMessage(t *testing.T) {
	handler := &capturingHandler{}
	srv := newTestServer(handler, &stubWeather{})

	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511999998888@s.whatsapp.net", "fromMe": false},
			"message": {"conversation": "menu"},
			"messageTimestamp": 1756500000
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(handler.msgs) != 1 {
		t.Fatalf("handled %d messages, want 1", len(handler.msgs))
	}
	msg := handler.msgs[0]
	if msg.From != "5511999998888" {
		t.Errorf("From = %q, want 5511999998888", msg.From)
	}
	if msg.Text != "menu" {
		t.Errorf("Text = %q, want menu", msg.Text)
	}
	if msg.Time.Unix() != 1756500000 {
		t.Errorf("Time = %d, want 1756500000", msg.Time.Unix())
	}
}

func TestWebhookHandlerLocationMessage(t *testing.T) {
	handler := &capturingHandler{}
	srv := newTestServer(handler, &stubWeather{})

	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511999998888@s.whatsapp.net", "fromMe": false},
			"message": {"locationMessage": {"degreesLatitude": -11.86, "degreesLongitude": -55.5}}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(handler.msgs) != 1 {
		t.Fatalf("handled %d messages, want 1", len(handler.msgs))
	}
	loc := handler.msgs[0].Location
	if loc == nil {
		t.Fatal("expected a location on the message")
	}
	if loc.Latitude != -11.86 || loc.Longitude != -55.5 {
		t.Errorf("location = %+v, want -11.86,-55.5", loc)
	}
}

func TestWebhookHandlerIgnoresOtherEvents(t *testing.T) {
	handler := &capturingHandler{}
	srv := newTestServer(handler, &stubWeather{})

	payload := `{"event": "connection.update", "data": {}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(handler.msgs) != 0 {
		t.Errorf("handled %d messages, want 0", len(handler.msgs))
	}
}

func TestWebhookHandlerIgnoresOwnMessages(t *testing.T) {
	handler := &capturingHandler{}
	srv := newTestServer(handler, &stubWeather{})

	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511999998888@s.whatsapp.net", "fromMe": true},
			"message": {"conversation": "hi"}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if len(handler.msgs) != 0 {
		t.Errorf("handled %d own messages, want 0", len(handler.msgs))
	}
}

func TestWebhookHandlerInvalidJSON(t *testing.T) {
	handler := &capturingHandler{}
	srv := newTestServer(handler, &stubWeather{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookHandlerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{})

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestWebhookHandlerTurnFailure(t *testing.T) {
	handler := &capturingHandler{err: errors.New("store down")}
	srv := newTestServer(handler, &stubWeather{})

	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511999998888@s.whatsapp.net", "fromMe": false},
			"message": {"conversation": "menu"}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.webhookHandler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSendHandler(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{})

	body, _ := json.Marshal(sendRequest{To: "+5511999998888", Body: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.sendHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestSendHandlerInvalidRecipient(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{})

	body, _ := json.Marshal(sendRequest{To: "abc", Body: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.sendHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSendHandlerEmptyBody(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{})

	body, _ := json.Marshal(sendRequest{To: "5511999998888"})
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.sendHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestForecastHandler(t *testing.T) {
	weather := &stubWeather{forecast: models.Forecast{City: "Sorriso", Description: "clear sky", Temperature: 28.4}}
	srv := newTestServer(&capturingHandler{}, weather)

	req := httptest.NewRequest(http.MethodGet, "/forecast?city=Sorriso", nil)
	rec := httptest.NewRecorder()
	srv.forecastHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result type = %T, want object", resp.Result)
	}
	if result["city"] != "Sorriso" {
		t.Errorf("city = %v, want Sorriso", result["city"])
	}
}

func TestForecastHandlerMissingCity(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{})

	req := httptest.NewRequest(http.MethodGet, "/forecast", nil)
	rec := httptest.NewRecorder()
	srv.forecastHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestForecastHandlerUpstreamFailure(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{err: errors.New("api down")})

	req := httptest.NewRequest(http.MethodGet, "/forecast?city=Sorriso", nil)
	rec := httptest.NewRecorder()
	srv.forecastHandler(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(&capturingHandler{}, &stubWeather{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
