// Package services provides external service integrations and technical concerns like notifications
package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/oguzkaan/emlak-crm/models"
)

// NotificationService publishes matching and lifecycle events to customers
// and staff. Delivery mechanics live behind the providers; callers treat
// every method as best effort.
type NotificationService interface {
	NotifyNewMatches(demand *models.Demand, matches []*models.Match) error
	NotifyMatchPresented(match *models.Match) error
	NotifyMatchAccepted(match *models.Match) error
	NotifyMatchRejected(match *models.Match) error
	NotifyDemandUpdated(demand *models.Demand, changedFields []string) error
}

// SMSProvider interface for SMS sending
type SMSProvider interface {
	SendSMS(mobile, message string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	smsProvider   SMSProvider
	emailProvider EmailProvider
	staffEmail    string
	highScore     float64
}

// NewNotificationService creates a new notification service. Matches scoring
// at or above highScore additionally escalate to the staff inbox.
func NewNotificationService(smsProvider SMSProvider, emailProvider EmailProvider, staffEmail string, highScore float64) NotificationService {
	return &NotificationServiceImpl{
		smsProvider:   smsProvider,
		emailProvider: emailProvider,
		staffEmail:    staffEmail,
		highScore:     highScore,
	}
}

// NotifyNewMatches informs the demand's customer about a fresh match batch
func (s *NotificationServiceImpl) NotifyNewMatches(demand *models.Demand, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	message := fmt.Sprintf("%d new properties match your %s request.", len(matches), demand.Category)
	if err := s.sendToCustomer(demand, "New property matches", message); err != nil {
		return err
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}

	if best.Score >= s.highScore {
		subject := "High-score match"
		body := fmt.Sprintf("Demand %s matched listing %s with score %.3f.", demand.UUID, best.ListingRef(), best.Score)
		return s.sendToStaff(subject, body)
	}

	return nil
}

// NotifyMatchPresented informs staff that a match was presented to the customer
func (s *NotificationServiceImpl) NotifyMatchPresented(match *models.Match) error {
	body := fmt.Sprintf("Match %s (listing %s) was presented.", match.UUID, match.ListingRef())
	return s.sendToStaff("Match presented", body)
}

// NotifyMatchAccepted informs staff that the customer accepted a match
func (s *NotificationServiceImpl) NotifyMatchAccepted(match *models.Match) error {
	body := fmt.Sprintf("Match %s (listing %s) was accepted by the customer.", match.UUID, match.ListingRef())
	return s.sendToStaff("Match accepted", body)
}

// NotifyMatchRejected informs staff that the customer rejected a match
func (s *NotificationServiceImpl) NotifyMatchRejected(match *models.Match) error {
	body := fmt.Sprintf("Match %s (listing %s) was rejected by the customer.", match.UUID, match.ListingRef())
	return s.sendToStaff("Match rejected", body)
}

// NotifyDemandUpdated informs the customer that their demand criteria changed
func (s *NotificationServiceImpl) NotifyDemandUpdated(demand *models.Demand, changedFields []string) error {
	if len(changedFields) == 0 {
		return nil
	}

	message := fmt.Sprintf("Your %s request was updated (%s). We are re-checking the portfolio for you.",
		demand.Category, strings.Join(changedFields, ", "))
	return s.sendToCustomer(demand, "Request updated", message)
}

func (s *NotificationServiceImpl) sendToCustomer(demand *models.Demand, subject, message string) error {
	if demand.Customer == nil {
		return nil
	}

	if demand.Customer.Mobile != "" && s.smsProvider != nil {
		if err := s.smsProvider.SendSMS(demand.Customer.Mobile, message); err != nil {
			return err
		}
	}

	if demand.Customer.Email != nil && s.emailProvider != nil {
		return s.emailProvider.SendEmail(*demand.Customer.Email, subject, message)
	}

	return nil
}

func (s *NotificationServiceImpl) sendToStaff(subject, message string) error {
	if s.staffEmail == "" || s.emailProvider == nil {
		return nil
	}
	return s.emailProvider.SendEmail(s.staffEmail, subject, message)
}

type MockSMSProvider struct{}

func NewMockSMSProvider() SMSProvider {
	return &MockSMSProvider{}
}

func (p *MockSMSProvider) SendSMS(mobile, message string) error {
	log.Printf("SMS sent to %s: %s", mobile, message)
	return nil
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	log.Printf("Email sent to %s [%s]: %s", email, subject, message)
	return nil
}
