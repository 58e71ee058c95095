package schema

import "time"

// CREATE TABLE "photos" (
// "photo_id" uuid NOT NULL,
// "user_id" bigint NOT NULL,
// "object_key" character varying(256) NOT NULL,
// "uploaded_at" timestamptz NOT NULL, PRIMARY KEY ("photo_id"), CONSTRAINT "user_fk" FOREIGN KEY ("user_id") REFERENCES "users" ("user_id") ON DELETE CASCADE);

type Photo struct {
	PhotoID    string    `json:"photoId"`
	UploadedAt time.Time `json:"uploadedAt"`
	URL        string    `json:"url"`
}

type ListPhotosResponse struct {
	Records []Photo `json:"records"`
}
