// Package models defines the core data structures for CampoBot.
//
// It includes the inbound message event, weather lookup results, delivery
// receipts and the shared API response envelope used across modules.
package models

import (
	"errors"
	"time"
)

// StatusType represents the delivery status of an outbound message.
type StatusType string

const (
	// StatusTypeSent indicates the message was handed to the transport.
	StatusTypeSent StatusType = "sent"
	// StatusTypeDelivered indicates the transport confirmed delivery.
	StatusTypeDelivered StatusType = "delivered"
	// StatusTypeRead indicates the recipient read the message.
	StatusTypeRead StatusType = "read"
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipient = errors.New("recipient cannot be empty")
	ErrEmptyMessage   = errors.New("message text cannot be empty")
	ErrEmptySender    = errors.New("sender cannot be empty")
)

// Location carries the coordinates of a shared location message.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IncomingMessage is one inbound message event: sender identifier plus either
// free text, a shared location, or both.
type IncomingMessage struct {
	From     string    `json:"from"`
	Text     string    `json:"text,omitempty"`
	Location *Location `json:"location,omitempty"`
	Time     time.Time `json:"time,omitempty"`
}

// Validate checks that the message carries a sender and some content.
func (m IncomingMessage) Validate() error {
	if m.From == "" {
		return ErrEmptySender
	}
	if m.Text == "" && m.Location == nil {
		return ErrEmptyMessage
	}
	return nil
}

// Receipt records the delivery status of an outbound message.
type Receipt struct {
	To     string     `json:"to"`
	Status StatusType `json:"status"`
	Time   int64      `json:"time"`
}

// Response records an inbound message from a participant as seen by the
// messaging transport.
type Response struct {
	From     string    `json:"from"`
	Body     string    `json:"body"`
	Location *Location `json:"location,omitempty"`
	Time     int64     `json:"time"`
}

// Forecast is the current weather for one city.
type Forecast struct {
	City        string  `json:"city"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// ForecastDay is one period of an extended forecast.
type ForecastDay struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

// Place is the result of reverse geocoding a coordinate pair.
type Place struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// APIResponse is the common JSON envelope for HTTP endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a success response with an optional result payload.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: "ok", Result: result}
}

// SuccessWithMessage creates a success response with a message and payload.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: "ok", Message: message, Result: result}
}

// Error creates an error response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: "error", Message: message}
}
