// internal/notify/notifier_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"

	"comms-portal/internal/common/logger"
	"comms-portal/internal/models"
	"comms-portal/pkg/registry"
)

type mockSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

func testTemplates() *registry.TemplateRegistry {
	return &registry.TemplateRegistry{
		Version: "test",
		Templates: []registry.Template{
			{
				Kind:    models.NotifyPending,
				Subject: "Approval needed: {{ministry}}",
				Body:    "{{submitterName}} submitted an announcement ({{submissionId}}).",
				SMSBody: "New {{ministry}} announcement awaits approval.",
			},
			{
				Kind:    models.NotifyApproved,
				Subject: "Approved",
				Body:    "Hi {{submitterName}}, your announcement was approved.",
			},
			{
				Kind:    models.NotifyRejected,
				Subject: "Rejected",
				Body:    "Hi {{submitterName}}, reason: {{reason}}",
			},
		},
	}
}

func pendingSubmission() *models.Submission {
	coordinator := "youth-director@church.example.org"
	ministryID := "min-001"
	return &models.Submission{
		ID:                  "sub-1",
		SubmitterName:       "Jane Doe",
		SubmitterEmail:      "jane@example.org",
		Ministry:            "Youth Ministry",
		ApprovalStatus:      models.StatusPending,
		ApprovalCoordinator: &coordinator,
		MinistryID:          &ministryID,
	}
}

func TestSender_Notify_PendingGoesToCoordinator(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT coordinator_phone FROM ministries`).
		WithArgs("min-001").
		WillReturnRows(sqlmock.NewRows([]string{"coordinator_phone"}).AddRow("+15550100001"))
	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	sender := NewSender(Config{EmailEnabled: true, SMSEnabled: true, FromEmail: "portal@church.example.org"},
		db, sesMock, snsMock, testTemplates(), logger.NewTestLogger(t))

	sender.Notify(context.Background(), models.NotifyPending, pendingSubmission(), nil)

	assert.Len(t, sesMock.inputs, 1)
	assert.Equal(t, "youth-director@church.example.org", sesMock.inputs[0].Destination.ToAddresses[0])
	assert.Equal(t, "Approval needed: Youth Ministry", *sesMock.inputs[0].Message.Subject.Data)
	assert.Contains(t, *sesMock.inputs[0].Message.Body.Text.Data, "Jane Doe")
	assert.Contains(t, *sesMock.inputs[0].Message.Body.Text.Data, "sub-1")

	assert.Len(t, snsMock.inputs, 1)
	assert.Equal(t, "+15550100001", *snsMock.inputs[0].PhoneNumber)
	assert.Equal(t, "New Youth Ministry announcement awaits approval.", *snsMock.inputs[0].Message)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSender_Notify_ApprovedGoesToSubmitter(t *testing.T) {
	sesMock := &mockSES{}
	sender := NewSender(Config{EmailEnabled: true, FromEmail: "portal@church.example.org"},
		nil, sesMock, &mockSNS{}, testTemplates(), logger.NewTestLogger(t))

	sub := pendingSubmission()
	sub.ApprovalStatus = models.StatusApproved
	sender.Notify(context.Background(), models.NotifyApproved, sub, nil)

	assert.Len(t, sesMock.inputs, 1)
	assert.Equal(t, "jane@example.org", sesMock.inputs[0].Destination.ToAddresses[0])
	assert.Equal(t, "Hi Jane Doe, your announcement was approved.", *sesMock.inputs[0].Message.Body.Text.Data)
}

func TestSender_Notify_RejectedIncludesReason(t *testing.T) {
	sesMock := &mockSES{}
	sender := NewSender(Config{EmailEnabled: true, FromEmail: "portal@church.example.org"},
		nil, sesMock, &mockSNS{}, testTemplates(), logger.NewTestLogger(t))

	sub := pendingSubmission()
	sub.ApprovalStatus = models.StatusRejected
	sender.Notify(context.Background(), models.NotifyRejected, sub, map[string]interface{}{
		"reason": "missing event date",
	})

	assert.Len(t, sesMock.inputs, 1)
	assert.Equal(t, "Hi Jane Doe, reason: missing event date", *sesMock.inputs[0].Message.Body.Text.Data)
}

func TestSender_Notify_SendFailureIsSwallowed(t *testing.T) {
	sesMock := &mockSES{err: errors.New("throttled")}
	sender := NewSender(Config{EmailEnabled: true, FromEmail: "portal@church.example.org"},
		nil, sesMock, &mockSNS{}, testTemplates(), logger.NewTestLogger(t))

	sub := pendingSubmission()
	sub.ApprovalStatus = models.StatusApproved

	// Must not panic or propagate; the transition is already durable.
	sender.Notify(context.Background(), models.NotifyApproved, sub, nil)

	assert.Len(t, sesMock.inputs, 1)
}

func TestSender_Notify_DisabledChannelsSendNothing(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	sender := NewSender(Config{EmailEnabled: false, SMSEnabled: false},
		nil, sesMock, snsMock, testTemplates(), logger.NewTestLogger(t))

	sender.Notify(context.Background(), models.NotifyApproved, pendingSubmission(), nil)

	assert.Empty(t, sesMock.inputs)
	assert.Empty(t, snsMock.inputs)
}

func TestSender_Notify_SMSOnlyForPendingAlerts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	snsMock := &mockSNS{}
	sender := NewSender(Config{EmailEnabled: true, SMSEnabled: true, FromEmail: "portal@church.example.org"},
		db, &mockSES{}, snsMock, testTemplates(), logger.NewTestLogger(t))

	sub := pendingSubmission()
	sub.ApprovalStatus = models.StatusApproved
	sender.Notify(context.Background(), models.NotifyApproved, sub, nil)

	assert.Empty(t, snsMock.inputs)
}

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data map[string]interface{}
		want string
	}{
		{
			name: "substitutes placeholders",
			tmpl: "Hello {{name}}, {{count}} items",
			data: map[string]interface{}{"name": "Jane", "count": 3},
			want: "Hello Jane, 3 items",
		},
		{
			name: "strips unresolved placeholders",
			tmpl: "Hello {{name}}{{unknown}}",
			data: map[string]interface{}{"name": "Jane"},
			want: "Hello Jane",
		},
		{
			name: "no placeholders",
			tmpl: "plain text",
			data: map[string]interface{}{},
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderTemplate(tt.tmpl, tt.data))
		})
	}
}
