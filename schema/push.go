package schema

// CREATE TABLE "push_subscriptions" (
// "subscription_id" uuid NOT NULL,
// "user_id" bigint NOT NULL,
// "endpoint" character varying(512) NOT NULL,
// "p256dh" character varying(256) NOT NULL,
// "auth" character varying(256) NOT NULL,
// "created_at" timestamptz NOT NULL, PRIMARY KEY ("subscription_id"), CONSTRAINT "endpoint_uq" UNIQUE ("endpoint"), CONSTRAINT "user_fk" FOREIGN KEY ("user_id") REFERENCES "users" ("user_id") ON DELETE CASCADE);

// ----------------- Request Schemas -----------------

// PushSubscriptionKeys carries the client keys of a push subscription as
// handed out by the browser push service, base64url encoded.
type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

type CreatePushSubscriptionRequest struct {
	Endpoint string               `json:"endpoint" validate:"required,url"`
	Keys     PushSubscriptionKeys `json:"keys" validate:"required"`
}

// ----------------- Response Schemas -----------------

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// NotificationPayload is the push message body, server to worker. Every
// field is optional on the wire; the worker substitutes defaults.
type NotificationPayload struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	URL   string `json:"url,omitempty"`
}
