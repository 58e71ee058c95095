package schema

import "time"

// CREATE TABLE "prompts" (
// "prompt_id" uuid NOT NULL,
// "sent_at" timestamptz NOT NULL,
// "expires_at" timestamptz NOT NULL, PRIMARY KEY ("prompt_id"));

// PromptStatus is the wire representation of the current prompt window.
// Consumers replace it wholesale on every successful poll, never patch it.
type PromptStatus struct {
	Active           bool       `json:"active"`
	LastPrompt       *time.Time `json:"lastPrompt"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	SecondsRemaining int        `json:"secondsRemaining"`
}

// ComputePromptStatus derives the window state from the latest prompt row.
// A window with zero seconds remaining is still active until expiry has
// actually passed; only a nil or expired window reports active=false.
func ComputePromptStatus(lastPrompt, expiresAt *time.Time, now time.Time) PromptStatus {
	status := PromptStatus{
		LastPrompt: lastPrompt,
		ExpiresAt:  expiresAt,
	}
	if expiresAt == nil {
		return status
	}

	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	} else {
		status.Active = now.Before(*expiresAt) || now.Equal(*expiresAt)
	}
	status.SecondsRemaining = int(remaining.Seconds())
	return status
}
