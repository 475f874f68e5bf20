// Package server implements the HTTP surface of the dialogue engine
//
// It exposes a health endpoint, a webhook endpoint that turns posted
// JSON payloads into inbound updates, and a websocket endpoint that
// doubles as a full chat bridge for connected clients
package server
