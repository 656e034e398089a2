package model

import (
	"time"
)

// Transaction is one recorded circulation event.
type Transaction struct {
	ID        int       `json:"-" db:"id"`
	EventUID  string    `json:"eventUid" db:"event_uid"`
	BookID    int       `json:"bookId" db:"book_id"`
	Action    string    `json:"action" db:"action"`
	UserName  string    `json:"username" db:"username"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

type ActionCount struct {
	Action string `json:"action" db:"action"`
	Count  int    `json:"count" db:"cnt"`
}

type StatsInfo struct {
	TotalEvents  int           `json:"totalEvents"`
	LastActivity *time.Time    `json:"lastActivity,omitempty"`
	ByAction     []ActionCount `json:"byAction"`
}
