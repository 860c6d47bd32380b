// Package models defines the record types exchanged with the remote
// marketplace service. Field names and JSON tags follow the service's
// wire format.
package models

import (
	"fmt"
	"time"
)

// Role is the capability class of an authenticated user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string coming from storage or the service.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTutor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is the account record returned by the auth endpoints.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// FullName returns "First Last" for display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Subject is a teachable discipline.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TutorProfile is a tutor's public profile.
type TutorProfile struct {
	ID              int64     `json:"id"`
	User            User      `json:"user"`
	ExperienceYears int       `json:"experience_years"`
	PricePerHour    string    `json:"price_per_hour"`
	Description     string    `json:"description"`
	Education       string    `json:"education"`
	IsOnline        bool      `json:"is_online"`
	IsOffline       bool      `json:"is_offline"`
	Subjects        []Subject `json:"subjects"`
	AverageRating   float64   `json:"average_rating"`
}

// StudentProfile is a student's profile.
type StudentProfile struct {
	ID            int64  `json:"id"`
	User          User   `json:"user"`
	Age           int    `json:"age,omitempty"`
	LearningGoals string `json:"learning_goals,omitempty"`
}

// SlotStatus is the availability state of a time slot.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotBooked      SlotStatus = "booked"
	SlotUnavailable SlotStatus = "unavailable"
)

// TimeSlot is a bookable interval in a tutor's schedule. Date is
// "2006-01-02", times are "15:04:05" as the service serves them.
type TimeSlot struct {
	ID        int64      `json:"id"`
	Date      string     `json:"date"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Status    SlotStatus `json:"status"`
}

// StartsAt parses the slot's date and start time in the given location.
func (s *TimeSlot) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", s.Date+" "+s.StartTime, loc)
}

// Schedule is a tutor's slot container.
type Schedule struct {
	ID        int64      `json:"id"`
	TutorID   int64      `json:"tutor"`
	TimeSlots []TimeSlot `json:"time_slots"`
}

// BookingStatus is the lifecycle state of a booking. The set is closed;
// anything else coming off the wire is unrecognized and must be
// surfaced, not dropped.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Known reports whether the status belongs to the closed set.
func (s BookingStatus) Known() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status transition exists.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Booking is a requested or confirmed tutoring session. Status is owned
// by the remote service; the client only ever adopts a status it read
// back from a fetch.
type Booking struct {
	ID        int64         `json:"id"`
	Status    BookingStatus `json:"status"`
	Slot      TimeSlot      `json:"slot"`
	TutorID   int64         `json:"tutor"`
	StudentID int64         `json:"student"`
	Comment   string        `json:"comment,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// Review is a student's rating of a tutor. Tutors are keyed by numeric
// profile id only; display-name matching is not supported.
type Review struct {
	ID        int64     `json:"id"`
	TutorID   int64     `json:"tutor"`
	StudentID int64     `json:"student"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
