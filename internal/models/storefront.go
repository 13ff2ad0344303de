package models

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterSubscriber is newsletter subscription
type NewsletterSubscriber struct {
	ID             uint64
	Email          string
	IsActive       bool
	SubscribedAt   time.Time
	UnsubscribedAt *time.Time
}

// ContactMessage is message sent through contact form
type ContactMessage struct {
	ID        uint64
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

// Review is customer review of bundle
type Review struct {
	ID        uint64
	BundleID  uuid.UUID
	Name      string
	Rating    int
	Comment   string
	CreatedAt time.Time
}
