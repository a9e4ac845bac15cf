package oauth

import "encoding/json"

// State is the opaque envelope round-tripped through the provider's redirect.
// It is the only channel carrying the verifier to the callback; there is no
// server-side session store. The provider echoes it back unmodified, and the
// end user's browser can see it, so nothing beyond the verifier itself may
// go in here.
type State struct {
	IntegrationType string `json:"integrationType"`
	IntegrationName string `json:"integrationName"`
	CodeVerifier    string `json:"codeVerifier"`
}

// Encode serializes the state for the authorize URL's state parameter.
func (s State) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeState parses the state parameter echoed back by the provider.
// A parse failure is not fatal to the callback: callers treat it as absent
// state, which makes the later verifier check fail with its own error code.
func DecodeState(raw string) (State, error) {
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return State{}, err
	}
	return s, nil
}
