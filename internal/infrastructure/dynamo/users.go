package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-batchform-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// Username and email uniqueness is arbitrated here: each guarded value owns
// a marker row (user_id = "unique#<attr>#<value>") written transactionally
// with the user item, so concurrent writers race on the marker's
// attribute_not_exists condition and the first writer wins.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// uniqueMarkerKey is the synthetic user_id under which a uniqueness marker
// row is stored. Marker rows carry no username/email attributes, so they
// never surface in the GSIs.
func uniqueMarkerKey(attr, value string) string {
	return fmt.Sprintf("unique#%s#%s", attr, value)
}

func putMarker(table, attr, value string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(table),
			Item:                strKey("user_id", uniqueMarkerKey(attr, value)),
			ConditionExpression: aws.String("attribute_not_exists(user_id)"),
		},
	}
}

func deleteMarker(table, attr, value string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(table),
			Key:       strKey("user_id", uniqueMarkerKey(attr, value)),
		},
	}
}

// insertUserWrites builds the transaction for a new user: the user item plus
// one marker per guarded attribute, every write conditioned on absence.
func insertUserWrites(table string, item map[string]types.AttributeValue, username, email string) []types.TransactWriteItem {
	return []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(user_id)"),
		}},
		putMarker(table, fieldUsername, username),
		putMarker(table, fieldEmail, email),
	}
}

// userMarkerSwaps builds the marker writes for an update: for each guarded
// attribute that actually changes, claim the new value and release the old.
func userMarkerSwaps(table string, before *domain.User, updates map[string]interface{}) []types.TransactWriteItem {
	var items []types.TransactWriteItem
	if username, ok := updates[fieldUsername].(string); ok && username != before.Username {
		items = append(items,
			putMarker(table, fieldUsername, username),
			deleteMarker(table, fieldUsername, before.Username))
	}
	if email, ok := updates[fieldEmail].(string); ok && email != before.Email {
		items = append(items,
			putMarker(table, fieldEmail, email),
			deleteMarker(table, fieldEmail, before.Email))
	}
	return items
}

// Insert stores a new user, failing with domain.ConflictError when the
// username or email is already taken.
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: insertUserWrites(r.tableName, item, u.Username, u.Email),
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return &domain.ConflictError{Username: u.Username, Email: u.Email}
		}
		return err
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

// Update applies a partial update and returns the post-update item so callers
// can compare the stored value against what they read before the write.
// Callers stamp updated_at themselves. A username or email change swaps the
// uniqueness markers in the same transaction; a taken value cancels the
// whole transaction and surfaces as domain.ConflictError.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	_, hasUsername := updates[fieldUsername].(string)
	_, hasEmail := updates[fieldEmail].(string)
	if !hasUsername && !hasEmail {
		return r.plainUpdate(ctx, userID, updates)
	}

	before, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	swaps := userMarkerSwaps(r.tableName, before, updates)
	if len(swaps) == 0 {
		return r.plainUpdate(ctx, userID, updates)
	}

	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	items := append([]types.TransactWriteItem{{
		Update: &types.Update{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey("user_id", userID),
			UpdateExpression:          aws.String(ue.Expr),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		},
	}}, swaps...)
	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			username, _ := updates[fieldUsername].(string)
			email, _ := updates[fieldEmail].(string)
			return nil, &domain.ConflictError{Username: username, Email: email}
		}
		return nil, err
	}
	return r.Get(ctx, userID)
}

func (r *UserRepo) plainUpdate(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
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
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
