package schema

// CREATE TABLE "users" (
// "user_id" bigint GENERATED ALWAYS AS IDENTITY,
// "username" character varying(25) NOT NULL,
// "display_name" character varying(25) NOT NULL,
// "password" bytea NOT NULL,
// "created_at" timestamptz NOT NULL, PRIMARY KEY ("user_id"), CONSTRAINT "username_uq" UNIQUE ("username"));

// Identity describes the authenticated user as returned by the user
// endpoints. It is owned by the session layer on the client side.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

// ----------------- Request Schemas -----------------

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=25,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
