package models

import "time"

type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Actor     string    `json:"actor"`
	Changes   string    `json:"changes"`
	CreatedAt time.Time `json:"created_at"`
}
