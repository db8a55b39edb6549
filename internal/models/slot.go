package models

import "time"

const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04"
)

// TimeSlot dates and times are kept as calendar strings (YYYY-MM-DD, HH:MM)
// interpreted in UTC.
type TimeSlot struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	IsBooked    bool      `json:"isBooked"`
	IsRecurring bool      `json:"isRecurring"`
	DayOfWeek   *int      `json:"dayOfWeek,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StartsAt combines the slot date and start time.
func (s TimeSlot) StartsAt() (time.Time, error) {
	return time.ParseInLocation(SlotDateLayout+" "+SlotTimeLayout, s.Date+" "+s.StartTime, time.UTC)
}

type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type SkippedSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type SlotCreateReport struct {
	CreatedCount int           `json:"createdCount"`
	Skipped      []SkippedSlot `json:"skipped,omitempty"`
}
