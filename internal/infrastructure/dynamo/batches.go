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

// BatchRepo provides typed DynamoDB operations for the batch_forms table.
type BatchRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBatchRepo(client *dynamodb.Client, tableName string) *BatchRepo {
	return &BatchRepo{client: client, tableName: tableName}
}

func (r *BatchRepo) Put(ctx context.Context, b *domain.BatchForm) error {
	item, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("marshal batch form: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *BatchRepo) Get(ctx context.Context, batchFormID string) (*domain.BatchForm, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("batch_form_id", batchFormID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("batch form not found: %w", domain.ErrNotFound)
	}
	var b domain.BatchForm
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Scan returns every batch form. The table is small by design; no paging.
func (r *BatchRepo) Scan(ctx context.Context) ([]domain.BatchForm, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var forms []domain.BatchForm
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

// ListByUser returns the batch forms owned by one user via the user_id GSI.
func (r *BatchRepo) ListByUser(ctx context.Context, userID string) ([]domain.BatchForm, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var forms []domain.BatchForm
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

// Update applies a partial update and returns the post-update item.
// Callers stamp updated_at themselves.
func (r *BatchRepo) Update(ctx context.Context, batchFormID string, updates map[string]interface{}) (*domain.BatchForm, error) {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("batch_form_id", batchFormID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	var b domain.BatchForm
	if err := attributevalue.UnmarshalMap(out.Attributes, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepo) Delete(ctx context.Context, batchFormID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("batch_form_id", batchFormID),
	})
	return err
}
