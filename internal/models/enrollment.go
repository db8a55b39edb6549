package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive       EnrollmentStatus = "active"
	EnrollmentExpiringSoon EnrollmentStatus = "expiring_soon"
	EnrollmentExpired      EnrollmentStatus = "expired"
)

type Enrollment struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"userId"`
	PlatformID    int64      `json:"platformId"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	IsActive      bool       `json:"isActive"`
	LastRenewalAt *time.Time `json:"lastRenewalAt,omitempty"`
}

type EnrollmentView struct {
	Enrollment
	IsExpired     bool             `json:"isExpired"`
	DaysRemaining int              `json:"daysRemaining"`
	Status        EnrollmentStatus `json:"status"`
}
