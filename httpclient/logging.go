package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gaborage/go-bricks-httpx/logger"
)

// DefaultMaxPayloadLogBytes caps body previews when LogPayloads is on and no limit is configured.
const DefaultMaxPayloadLogBytes = 1024

// logRequest logs one outgoing attempt
func (c *Client) logRequest(log logger.Logger, req *http.Request, body []byte, requestID string, attempt int) {
	event := log.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID).
		Int("attempt", attempt)

	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	switch {
	case len(body) > 0:
		event = event.Int("body_size", len(body))
	case req.ContentLength > 0:
		event = event.Int64("body_size", req.ContentLength)
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	c.logPayload(log.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", req.Header), body).
		Msg("REST client request")
}

// logResponse logs the classified response of one attempt
func (c *Client) logResponse(log logger.Logger, status int, header http.Header, body []byte, elapsed time.Duration, requestID string, attempt int) {
	event := log.Info().
		Str("direction", "inbound").
		Int("status", status).
		Dur("elapsed", elapsed).
		Str("request_id", requestID).
		Int("attempt", attempt)

	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	c.logPayload(log.Debug().
		Str("direction", "inbound").
		Int("status", status).
		Str("request_id", requestID).
		Interface("headers", header), body).
		Msg("REST client response")
}

// logPayload adds a body preview capped at MaxPayloadLogBytes.
func (c *Client) logPayload(event logger.LogEvent, body []byte) logger.LogEvent {
	if len(body) == 0 {
		return event
	}
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	truncated := len(body) > limit
	preview := body
	if truncated {
		preview = body[:limit]
	}
	return event.
		Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview)
}
