package activation

import "time"

type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)

// Log is one immutable activation-attempt record. Rows are append-only and
// listed newest first; the core never updates or deletes them.
type Log struct {
	ID           int64     `json:"id"`
	CardID       string    `json:"card_id"`
	Status       LogStatus `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	ResponseData *string   `json:"response_data"`
	Time         time.Time `json:"activation_time"`
}
