// internal/notify/notifier.go
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"comms-portal/internal/common/logger"
	"comms-portal/internal/common/metrics"
	"comms-portal/internal/models"
	"comms-portal/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// Interfaces over the AWS clients for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

// Sender delivers workflow notifications over SES email and SNS SMS.
// Delivery is best-effort; every failure is logged and swallowed because the
// state transition that triggered the event is already durable.
type Sender struct {
	config    Config
	db        *sql.DB
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
	templates *registry.TemplateRegistry
}

func NewSender(config Config, db *sql.DB, sesClient SESService, snsClient SNSService, templates *registry.TemplateRegistry, log logger.Logger) *Sender {
	return &Sender{
		config:    config,
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"component": "notify-sender"}),
		sesClient: sesClient,
		snsClient: snsClient,
		templates: templates,
	}
}

// Notify delivers the event for a submission. Approved and rejected events go
// to the submitter; pending events alert the approval coordinator. Never
// returns an error: a notification must not fail the transition behind it.
func (s *Sender) Notify(ctx context.Context, kind string, sub *models.Submission, extra map[string]interface{}) {
	email, phone := s.recipientFor(kind, sub)
	if email == "" && phone == "" {
		s.logger.Warn("no recipient contact for notification", map[string]interface{}{
			"kind":         kind,
			"submissionId": sub.ID,
		})
		s.record(ctx, kind, sub.ID, "", "none", models.NotificationDisabled, nil)
		return
	}

	template, err := s.templates.ByKind(kind)
	if err != nil {
		s.logger.Error("notification template missing", map[string]interface{}{
			"kind":  kind,
			"error": err,
		})
		s.record(ctx, kind, sub.ID, email, "email", models.NotificationFailed, nil)
		return
	}

	data := map[string]interface{}{
		"submissionId":  sub.ID,
		"submitterName": sub.SubmitterName,
		"ministry":      sub.Ministry,
		"eventDate":     sub.EventDate,
		"status":        sub.ApprovalStatus,
	}
	for k, v := range extra {
		data[k] = v
	}

	subject := renderTemplate(template.Subject, data)
	body := renderTemplate(template.Body, data)

	if s.config.EmailEnabled && email != "" {
		if err := s.sendEmail(ctx, email, subject, body); err != nil {
			s.logger.Error("email send failed", map[string]interface{}{
				"error":        err,
				"email":        email,
				"submissionId": sub.ID,
			})
			metrics.NotificationsSent.WithLabelValues("email", models.NotificationFailed).Inc()
			s.record(ctx, kind, sub.ID, email, "email", models.NotificationFailed, data)
		} else {
			metrics.NotificationsSent.WithLabelValues("email", models.NotificationSent).Inc()
			s.record(ctx, kind, sub.ID, email, "email", models.NotificationSent, data)
		}
	} else if email != "" {
		metrics.NotificationsSent.WithLabelValues("email", models.NotificationDisabled).Inc()
		s.record(ctx, kind, sub.ID, email, "email", models.NotificationDisabled, nil)
	}

	// SMS goes only to coordinators, and only for pending alerts.
	if s.config.SMSEnabled && phone != "" && kind == models.NotifyPending {
		smsBody := body
		if template.SMSBody != "" {
			smsBody = renderTemplate(template.SMSBody, data)
		}
		if err := s.sendSMS(ctx, phone, smsBody); err != nil {
			s.logger.Error("SMS send failed", map[string]interface{}{
				"error":        err,
				"phone":        phone,
				"submissionId": sub.ID,
			})
			metrics.NotificationsSent.WithLabelValues("sms", models.NotificationFailed).Inc()
			s.record(ctx, kind, sub.ID, phone, "sms", models.NotificationFailed, data)
		} else {
			metrics.NotificationsSent.WithLabelValues("sms", models.NotificationSent).Inc()
			s.record(ctx, kind, sub.ID, phone, "sms", models.NotificationSent, data)
		}
	}
}

// recipientFor resolves the contact point per event kind.
func (s *Sender) recipientFor(kind string, sub *models.Submission) (email, phone string) {
	switch kind {
	case models.NotifyPending:
		if sub.ApprovalCoordinator != nil {
			email = *sub.ApprovalCoordinator
		}
		phone = s.coordinatorPhone(sub)
	default:
		email = sub.SubmitterEmail
	}
	return email, phone
}

// coordinatorPhone fetches the coordinator's SMS number from the ministry
// record, when the submission is linked to one.
func (s *Sender) coordinatorPhone(sub *models.Submission) string {
	if sub.MinistryID == nil || s.db == nil {
		return ""
	}
	var phone sql.NullString
	err := s.db.QueryRow(
		`SELECT coordinator_phone FROM ministries WHERE id = $1`, *sub.MinistryID).Scan(&phone)
	if err != nil {
		return ""
	}
	return phone.String
}

func (s *Sender) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.config.FromEmail),
	})
	return err
}

func (s *Sender) sendSMS(ctx context.Context, to, message string) error {
	_, err := s.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// record persists the notification attempt. Best-effort, like the audit log.
func (s *Sender) record(ctx context.Context, kind, submissionID, recipient, channel, status string, payload map[string]interface{}) {
	if s.db == nil {
		return
	}

	payloadJSON := []byte("{}")
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			payloadJSON = data
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, submission_id, recipient, kind, channel, status, payload, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(),
		submissionID,
		recipient,
		kind,
		channel,
		status,
		payloadJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("notification record insert failed", map[string]interface{}{
			"error":        err,
			"submissionId": submissionID,
		})
	}
}

// renderTemplate substitutes {{placeholder}} tokens and strips any that have
// no value in the data map.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
