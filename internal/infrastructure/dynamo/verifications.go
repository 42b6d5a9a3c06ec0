package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-batchform-api/internal/domain"
)

// VerificationRepo stores aggregate verification records.
// PK: record_id; GSIs on token_email and token_web let the consumption path
// resolve a record from whichever channel token the caller presents.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) Put(ctx context.Context, v *domain.VerificationRecord) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetByToken resolves a record from either channel token.
func (r *VerificationRepo) GetByToken(ctx context.Context, token string) (*domain.VerificationRecord, error) {
	for _, idx := range []struct{ index, attr string }{
		{"token_email-index", "token_email"},
		{"token_web-index", "token_web"},
	} {
		v, err := r.queryGSI(ctx, idx.index, idx.attr, token)
		if err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("verification record not found: %w", domain.ErrNotFound)
}

func (r *VerificationRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.VerificationRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("verification record not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}
