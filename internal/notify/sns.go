package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/errors"
)

// SNSAPI is the subset of the SNS client used by the notifier.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS publishes alerts to an SNS topic.
type SNS struct {
	client   SNSAPI
	topicARN string
}

// NewSNS creates an SNS notifier for the given topic.
func NewSNS(client SNSAPI, topicARN string) *SNS {
	return &SNS{client: client, topicARN: topicARN}
}

// Name implements alert.Notifier.
func (s *SNS) Name() string {
	return alert.ChannelSNS
}

// Send implements alert.Notifier.
func (s *SNS) Send(ctx context.Context, a *alert.Alert) error {
	if s.topicARN == "" {
		return errors.Dispatch(s.Name(), fmt.Errorf("no topic ARN configured"))
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(a.Title),
		Message:  aws.String(a.Message),
	})
	if err != nil {
		return errors.Dispatch(s.Name(), err)
	}
	return nil
}
