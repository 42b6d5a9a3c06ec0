package sns

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-batchform-api/internal/config"
)

// JobPublisher hands email jobs to the external asynchronous task runner.
type JobPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{}, category string) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher fails when no topic is configured so callers fall back to
// direct SMTP delivery instead of publishing into the void.
func NewPublisher(cfg *config.Config) (JobPublisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, errors.New("sns: no topic configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

// Publish serializes the payload and publishes it to the configured topic.
// The category tag rides along as a message attribute so workers can filter.
func (p *publisher) Publish(ctx context.Context, subject string, payload interface{}, category string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"category": {
				DataType:    aws.String("String"),
				StringValue: aws.String(category),
			},
		},
	})
	return err
}
