// Package capi assembles Meta Conversions API event envelopes and delivers
// them upstream. Each Send call is independent and stateless; idempotency
// across retries comes only from a caller-supplied event_id.
package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pixelmeter/capi-relay/internal/models"
	"github.com/pixelmeter/capi-relay/internal/pii"
)

const (
	// ActionSource is constant: every event this service reports originated
	// from a website context.
	ActionSource = "website"

	// DefaultEventSourceURL is the placeholder used when the request carries
	// no event_source_url. The field is never omitted.
	DefaultEventSourceURL = "https://example.com/event-playground"

	// RedactedToken replaces the access token in any payload echoed back to
	// a caller. There is no code path that returns the real credential.
	RedactedToken = "***REDACTED***"

	defaultTimeout = 10 * time.Second
)

// Config carries everything the sender needs, injected explicitly so the
// sender never reads ambient global state.
type Config struct {
	PixelID       string
	AccessToken   string
	GraphVersion  string
	GraphBaseURL  string
	TestEventCode string // default test_event_code when the request has none
}

// Configured reports whether the credential pair is present.
func (c Config) Configured() bool {
	return c.PixelID != "" && c.AccessToken != ""
}

// Overrides are context values extracted by the caller from the transport
// layer (e.g. X-Forwarded-For, User-Agent headers). They outrank anything in
// the request body.
type Overrides struct {
	ClientIP        string
	ClientUserAgent string
}

// DispatchResult reports one delivery attempt. Exactly one of OK/Kind is
// meaningful: OK true means the upstream accepted the batch.
type DispatchResult struct {
	OK             bool
	Kind           ErrorKind
	Error          string
	UpstreamStatus int

	// Data is the parsed upstream response body (success only).
	Data map[string]interface{}

	// SanitizedPayload echoes what was sent with the credential redacted.
	// Nil only when the failure happened before a payload existed.
	SanitizedPayload *models.EventBatch
}

// Sender builds and dispatches one event per call.
type Sender struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger

	// Injection points for deterministic tests.
	now   func() time.Time
	newID func() string
}

// NewSender wires a sender with its upstream HTTP client. A nil client gets
// a default with a 10s timeout; timeout expiry surfaces as a transport error.
func NewSender(cfg Config, client *http.Client, log zerolog.Logger) *Sender {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Sender{
		cfg:    cfg,
		client: client,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// endpoint is the Conversions API URL for this pixel.
func (s *Sender) endpoint() string {
	return fmt.Sprintf("%s/%s/%s/events", s.cfg.GraphBaseURL, s.cfg.GraphVersion, s.cfg.PixelID)
}

// isLoopback reports whether ip parses to a loopback address (127.0.0.1,
// ::1 and friends). Unparsable strings are not loopback and pass through
// verbatim if chosen.
func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

// resolveIP picks the client IP by precedence — transport override, body
// top-level field, user_data field — then applies the loopback exclusion:
// a loopback winner means the key is omitted entirely, because loopback is
// matching noise and leaks local testing artifacts. No placeholder default.
func resolveIP(ov Overrides, req models.EventRequest) *string {
	candidate := ""
	switch {
	case ov.ClientIP != "":
		candidate = ov.ClientIP
	case req.ClientIPAddress != "":
		candidate = req.ClientIPAddress
	case req.UserData != nil && req.UserData.ClientIPAddress != nil:
		candidate = *req.UserData.ClientIPAddress
	}

	if candidate == "" || isLoopback(candidate) {
		return nil
	}
	return &candidate
}

// resolveUserAgent picks the user agent by the same precedence. There is no
// exclusion rule for user agents.
func resolveUserAgent(ov Overrides, req models.EventRequest) *string {
	candidate := ""
	switch {
	case ov.ClientUserAgent != "":
		candidate = ov.ClientUserAgent
	case req.ClientUserAgent != "":
		candidate = req.ClientUserAgent
	case req.UserData != nil && req.UserData.ClientUserAgent != nil:
		candidate = *req.UserData.ClientUserAgent
	}

	if candidate == "" {
		return nil
	}
	return &candidate
}

// BuildEvent assembles the outbound event. Every step here is a hard rule:
//
//  1. event_id: caller's id when present, else a fresh uuid.
//  2. event_time: always server-assigned at build time, never client input.
//  3. event_source_url: request value or the fixed placeholder, never absent.
//  4. action_source: constant "website".
//  5. custom_data: passed through, omitted entirely when absent.
//  6. user_data: hashed for fixed/test, raw for broken (intentional), then
//     the resolved ip/user-agent replace whatever the body carried.
func (s *Sender) BuildEvent(req models.EventRequest, ov Overrides) models.CapiEvent {
	eventID := req.EventID
	if eventID == "" {
		eventID = s.newID()
	}

	sourceURL := req.EventSourceURL
	if sourceURL == "" {
		sourceURL = DefaultEventSourceURL
	}

	var userData models.NormalizedUserData
	if req.UserData != nil {
		if req.Mode == models.ModeBroken {
			// Plaintext PII on the wire, on purpose. See models.ModeBroken.
			userData = pii.Raw(*req.UserData)
		} else {
			userData = pii.Hash(*req.UserData)
		}
	}
	userData.ClientIPAddress = resolveIP(ov, req)
	userData.ClientUserAgent = resolveUserAgent(ov, req)

	testEventCode := req.TestEventCode
	if testEventCode == "" && req.Mode == models.ModeTest {
		testEventCode = s.cfg.TestEventCode
	}

	return models.CapiEvent{
		EventName:      req.EventName,
		EventTime:      s.now().Unix(),
		EventSourceURL: sourceURL,
		ActionSource:   ActionSource,
		EventID:        eventID,
		UserData:       userData,
		CustomData:     req.CustomData,
		TestEventCode:  testEventCode,
	}
}

// Sanitize returns a copy of the batch with the credential replaced by the
// redaction marker. Pure; the input batch is not touched.
func Sanitize(batch models.EventBatch) models.EventBatch {
	out := batch
	out.AccessToken = RedactedToken
	return out
}

// Send performs exactly one delivery attempt: build the envelope, POST it,
// classify the outcome. No retries; upstream/transport failures come back as
// tagged results, never as errors that escape this boundary.
func (s *Sender) Send(ctx context.Context, req models.EventRequest, ov Overrides) DispatchResult {
	if !s.cfg.Configured() {
		return DispatchResult{
			Kind:  KindConfiguration,
			Error: ErrNotConfigured.Error(),
		}
	}

	event := s.BuildEvent(req, ov)
	batch := models.EventBatch{
		Data:        []models.CapiEvent{event},
		AccessToken: s.cfg.AccessToken,
	}
	sanitized := Sanitize(batch)

	body, err := json.Marshal(batch)
	if err != nil {
		return DispatchResult{
			Kind:             KindTransport,
			Error:            err.Error(),
			SanitizedPayload: &sanitized,
		}
	}

	start := s.now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return DispatchResult{
			Kind:             KindTransport,
			Error:            err.Error(),
			SanitizedPayload: &sanitized,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.log.Warn().
			Str("event_name", event.EventName).
			Str("event_id", event.EventID).
			Err(err).
			Msg("capi dispatch failed")
		return DispatchResult{
			Kind:             KindTransport,
			Error:            err.Error(),
			SanitizedPayload: &sanitized,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return DispatchResult{
			Kind:             KindTransport,
			Error:            err.Error(),
			SanitizedPayload: &sanitized,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn().
			Str("event_name", event.EventName).
			Str("event_id", event.EventID).
			Int("upstream_status", resp.StatusCode).
			Msg("capi upstream rejected event")
		return DispatchResult{
			Kind:             KindUpstream,
			Error:            string(respBody),
			UpstreamStatus:   resp.StatusCode,
			SanitizedPayload: &sanitized,
		}
	}

	var data map[string]interface{}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return DispatchResult{
			Kind:             KindTransport,
			Error:            err.Error(),
			SanitizedPayload: &sanitized,
		}
	}

	s.log.Info().
		Str("event_name", event.EventName).
		Str("event_id", event.EventID).
		Int("upstream_status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("capi event delivered")

	return DispatchResult{
		OK:               true,
		Data:             data,
		UpstreamStatus:   resp.StatusCode,
		SanitizedPayload: &sanitized,
	}
}
