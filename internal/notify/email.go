package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/errors"
)

// SESAPI is the subset of the SES client used by the notifier.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Email delivers alerts via SES.
type Email struct {
	client     SESAPI
	from       string
	recipients []string
}

// NewEmail creates an email notifier.
func NewEmail(client SESAPI, from string, recipients []string) *Email {
	return &Email{client: client, from: from, recipients: recipients}
}

// Name implements alert.Notifier.
func (e *Email) Name() string {
	return alert.ChannelEmail
}

// Send implements alert.Notifier.
func (e *Email) Send(ctx context.Context, a *alert.Alert) error {
	if len(e.recipients) == 0 {
		return errors.Dispatch(e.Name(), fmt.Errorf("no recipients configured"))
	}

	_, err := e.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.from),
		Destination: &sestypes.Destination{
			ToAddresses: e.recipients,
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(a.Title)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(a.Message)},
				},
			},
		},
	})
	if err != nil {
		return errors.Dispatch(e.Name(), err)
	}
	return nil
}
