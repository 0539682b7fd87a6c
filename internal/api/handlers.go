package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campo-inteligente/campobot/internal/models"
)

// webhookEvent is the inbound message payload posted by the WhatsApp
// gateway.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		Message struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
			LocationMessage struct {
				DegreesLatitude  float64 `json:"degreesLatitude"`
				DegreesLongitude float64 `json:"degreesLongitude"`
			} `json:"locationMessage"`
		} `json:"message"`
		MessageTimestamp int64 `json:"messageTimestamp"`
	} `json:"data"`
}

// eventMessagesUpsert is the only gateway event that carries user messages.
const eventMessagesUpsert = "messages.upsert"

// webhookHandler receives gateway events and runs one conversation turn.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var evt webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		slog.Warn("Server.webhookHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if evt.Event != eventMessagesUpsert {
		slog.Debug("Server.webhookHandler: ignoring event", "event", evt.Event)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event ignored", nil))
		return
	}
	if evt.Data.Key.FromMe {
		slog.Debug("Server.webhookHandler: ignoring own message")
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Own message ignored", nil))
		return
	}

	jid := evt.Data.Key.RemoteJid
	from, err := s.msgService.ValidateAndCanonicalizeRecipient(strings.TrimSuffix(jid, "@s.whatsapp.net"))
	if err != nil {
		slog.Warn("Server.webhookHandler: invalid sender", "error", err, "jid", jid)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid sender"))
		return
	}

	var location *models.Location
	loc := evt.Data.Message.LocationMessage
	if loc.DegreesLatitude != 0 || loc.DegreesLongitude != 0 {
		location = &models.Location{Latitude: loc.DegreesLatitude, Longitude: loc.DegreesLongitude}
	}
	text := evt.Data.Message.Conversation
	if text == "" {
		text = evt.Data.Message.ExtendedTextMessage.Text
	}
	if text == "" && location == nil {
		slog.Debug("Server.webhookHandler: no usable content", "from", from)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message ignored", nil))
		return
	}

	receivedAt := time.Now()
	if evt.Data.MessageTimestamp > 0 {
		receivedAt = time.Unix(evt.Data.MessageTimestamp, 0)
	}
	msg := models.IncomingMessage{
		From:     from,
		Text:     text,
		Location: location,
		Time:     receivedAt,
	}

	lock := s.userLock(from)
	lock.Lock()
	defer lock.Unlock()

	if err := s.handler.HandleMessage(r.Context(), msg); err != nil {
		slog.Error("Server.webhookHandler: turn failed", "error", err, "from", from)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message processed", nil))
}

// sendRequest is the payload for the outbound send endpoint.
type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// sendHandler sends a one-off message to a recipient.
func (s *Server) sendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sendHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sendHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	canonicalTo, err := s.msgService.ValidateAndCanonicalizeRecipient(req.To)
	if err != nil {
		slog.Warn("Server.sendHandler: recipient validation failed", "error", err, "original_to", req.To)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if req.Body == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Message body cannot be empty"))
		return
	}

	if err := s.msgService.SendMessage(context.Background(), canonicalTo, req.Body); err != nil {
		slog.Error("Server.sendHandler: failed to send message", "error", err, "to", canonicalTo)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
		return
	}

	slog.Info("Server.sendHandler: message sent successfully", "to", canonicalTo)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message sent successfully", nil))
}

// forecastHandler returns the current weather for a city as JSON.
func (s *Server) forecastHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	city := r.URL.Query().Get("city")
	if city == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing city parameter"))
		return
	}

	forecast, err := s.weather.Current(r.Context(), city)
	if err != nil {
		slog.Warn("Server.forecastHandler: lookup failed", "error", err, "city", city)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Forecast lookup failed"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(forecast))
}

// healthHandler reports service liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}

// rootHandler identifies the service.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("CampoBot API", nil))
}
