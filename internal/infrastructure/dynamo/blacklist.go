package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// BlacklistRepo is the append-only session revocation ledger, keyed by jti.
// Revoking the same jti twice overwrites the entry, which keeps logout
// idempotent.
type BlacklistRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBlacklistRepo(client *dynamodb.Client, tableName string) *BlacklistRepo {
	return &BlacklistRepo{client: client, tableName: tableName}
}

// Put records a revoked session identifier.
func (r *BlacklistRepo) Put(ctx context.Context, entryID, jti string, revokedAt int64) error {
	item, err := attributevalue.MarshalMap(map[string]interface{}{
		"entry_id":   entryID,
		"jti":        jti,
		"revoked_at": revokedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal blacklist entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Exists reports whether the given jti has been revoked.
func (r *BlacklistRepo) Exists(ctx context.Context, jti string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("jti", jti),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}
