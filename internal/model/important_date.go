package model

import (
	"time"

	"github.com/dukerupert/convocation/internal/deadline"
)

// ImportantDate is a convocation calendar entry. Time holds the end of the
// window, optionally as a "start - end" range.
type ImportantDate struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d ImportantDate) Entry() deadline.Entry {
	return deadline.Entry{
		ID:       d.ID,
		Title:    d.Title,
		Date:     d.Date,
		Time:     d.Time,
		Location: d.Location,
	}
}

// Entries converts stored dates to classifier entries.
func Entries(dates []ImportantDate) []deadline.Entry {
	out := make([]deadline.Entry, len(dates))
	for i, d := range dates {
		out[i] = d.Entry()
	}
	return out
}
