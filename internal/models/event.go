package models

// Mode selects how PII is treated before the event leaves the server.
// It exists for pedagogical contrast between a correct integration and a
// common real-world misconfiguration.
type Mode string

const (
	// ModeBroken copies raw PII into the matching-key slots without hashing.
	// This violates Meta's hashing requirement ON PURPOSE — it reproduces the
	// misconfiguration the playground demonstrates. Do not "fix" this branch.
	ModeBroken Mode = "broken"

	// ModeFixed hashes PII per Meta's matching-key format.
	ModeFixed Mode = "fixed"

	// ModeTest behaves like ModeFixed; requests typically also carry a
	// test_event_code so events land in the test viewer.
	ModeTest Mode = "test"
)

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeBroken, ModeFixed, ModeTest:
		return true
	}
	return false
}

// standardEvents is the closed set of event names accepted on the inbound API.
var standardEvents = map[string]struct{}{
	"PageView":             {},
	"ViewContent":          {},
	"Search":               {},
	"AddToCart":            {},
	"AddToWishlist":        {},
	"InitiateCheckout":     {},
	"AddPaymentInfo":       {},
	"Purchase":             {},
	"Lead":                 {},
	"CompleteRegistration": {},
	"Contact":              {},
	"Subscribe":            {},
	"StartTrial":           {},
}

// IsStandardEventName reports whether name is a supported standard event.
func IsStandardEventName(name string) bool {
	_, ok := standardEvents[name]
	return ok
}

// RawUserData carries user-identifying fields exactly as the client sent them.
// Pointer fields distinguish "absent" from "present but empty": an empty
// string is a real value and still gets hashed.
type RawUserData struct {
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Zip         *string `json:"zip,omitempty"`
	Country     *string `json:"country,omitempty"`
	ExternalID  *string `json:"external_id,omitempty"`

	// Pass-through fields. Never hashed.
	ClientIPAddress *string `json:"client_ip_address,omitempty"`
	ClientUserAgent *string `json:"client_user_agent,omitempty"`
	FBC             *string `json:"fbc,omitempty"`
	FBP             *string `json:"fbp,omitempty"`
	SubscriptionID  *string `json:"subscription_id,omitempty"`
	FBLoginID       *string `json:"fb_login_id,omitempty"`
	LeadID          *string `json:"lead_id,omitempty"`
}

// NormalizedUserData is the abbreviated-key user_data block Meta expects.
// A key is present iff the corresponding RawUserData field was supplied.
type NormalizedUserData struct {
	Em         *string `json:"em,omitempty"`
	Ph         *string `json:"ph,omitempty"`
	Fn         *string `json:"fn,omitempty"`
	Ln         *string `json:"ln,omitempty"`
	Ge         *string `json:"ge,omitempty"`
	Db         *string `json:"db,omitempty"`
	Ct         *string `json:"ct,omitempty"`
	St         *string `json:"st,omitempty"`
	Zp         *string `json:"zp,omitempty"`
	Country    *string `json:"country,omitempty"`
	ExternalID *string `json:"external_id,omitempty"`

	ClientIPAddress *string `json:"client_ip_address,omitempty"`
	ClientUserAgent *string `json:"client_user_agent,omitempty"`
	FBC             *string `json:"fbc,omitempty"`
	FBP             *string `json:"fbp,omitempty"`
	SubscriptionID  *string `json:"subscription_id,omitempty"`
	FBLoginID       *string `json:"fb_login_id,omitempty"`
	LeadID          *string `json:"lead_id,omitempty"`
}

// CustomData is the optional commerce block, copied through unchanged.
type CustomData struct {
	Currency    string   `json:"currency,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	ContentIDs  []string `json:"content_ids,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	ContentName string   `json:"content_name,omitempty"`
	NumItems    *int     `json:"num_items,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
}

// EventRequest is the POST /api/meta/capi payload.
// event_id is optional; best practice is to pass Idempotency-Key header for retries.
type EventRequest struct {
	EventName     string       `json:"event_name"`
	Mode          Mode         `json:"mode"`
	EventID       string       `json:"event_id,omitempty"`
	TestEventCode string       `json:"test_event_code,omitempty"`
	UserData      *RawUserData `json:"user_data,omitempty"`
	CustomData    *CustomData  `json:"custom_data,omitempty"`

	// Body-level context fields. A transport-extracted override passed to
	// Send wins over these; these win over nothing (user_data carries its
	// own copies which rank below them).
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	ClientUserAgent string `json:"client_user_agent,omitempty"`
	EventSourceURL  string `json:"event_source_url,omitempty"`
}

// CapiEvent is one event object inside the outbound batch.
type CapiEvent struct {
	EventName      string             `json:"event_name"`
	EventTime      int64              `json:"event_time"`
	EventSourceURL string             `json:"event_source_url"`
	ActionSource   string             `json:"action_source"`
	EventID        string             `json:"event_id"`
	UserData       NormalizedUserData `json:"user_data"`
	CustomData     *CustomData        `json:"custom_data,omitempty"`
	TestEventCode  string             `json:"test_event_code,omitempty"`
}

// EventBatch is the top-level envelope POSTed to the Conversions endpoint.
type EventBatch struct {
	Data        []CapiEvent `json:"data"`
	AccessToken string      `json:"access_token"`
}
