package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/school-notify/internal/domain"
)

const defaultRecordLimit = 50

// RecordRepo stores inbox records. created_ms mirrors created_at as a number
// so the recipient index sorts and ranges chronologically.
type RecordRepo struct {
	client    API
	tableName string
}

func NewRecordRepo(client API, tableName string) *RecordRepo {
	return &RecordRepo{client: client, tableName: tableName}
}

// Insert creates rec. A record with the same id yields domain.ErrConflict.
func (r *RecordRepo) Insert(ctx context.Context, rec *domain.NotificationRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	item["created_ms"] = millis(rec.CreatedAt)
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(record_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrConflict)
	}
	return err
}

func (r *RecordRepo) Get(ctx context.Context, recordID string) (*domain.NotificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("record_id", recordID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var rec domain.NotificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByRecipient returns the newest records first.
func (r *RecordRepo) ListByRecipient(ctx context.Context, recipientID string, q domain.RecordQuery) ([]domain.NotificationRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexRecipientCreate),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": strVal(recipientID),
		},
		ScanIndexForward: aws.Bool(false),
	}
	if q.UnreadOnly {
		input.FilterExpression = aws.String("attribute_not_exists(read_at)")
	}
	return r.collect(ctx, input, limit)
}

// ListSince returns records created strictly after since, oldest first.
func (r *RecordRepo) ListSince(ctx context.Context, recipientID string, since time.Time, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return r.collect(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexRecipientCreate),
		KeyConditionExpression: aws.String("recipient_id = :rid AND created_ms > :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid":   strVal(recipientID),
			":since": millis(since),
		},
		ScanIndexForward: aws.Bool(true),
	}, limit)
}

func (r *RecordRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexRecipientCreate),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("attribute_not_exists(read_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": strVal(recipientID),
		},
		Select: types.SelectCount,
	}
	total := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// MarkRead sets read_at once. It reports false when the record was already read.
// Records that do not exist or belong to another recipient yield domain.ErrNotFound.
func (r *RecordRepo) MarkRead(ctx context.Context, recipientID, recordID string, at time.Time) (bool, error) {
	readAt, err := attributevalue.Marshal(at.UTC())
	if err != nil {
		return false, err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("record_id", recordID),
		UpdateExpression:    aws.String("SET read_at = :at"),
		ConditionExpression: aws.String("attribute_exists(record_id) AND recipient_id = :rid AND attribute_not_exists(read_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at":  readAt,
			":rid": strVal(recipientID),
		},
	})
	if err == nil {
		return true, nil
	}
	if !isConditionFailed(err) {
		return false, err
	}
	rec, getErr := r.Get(ctx, recordID)
	if getErr != nil {
		return false, getErr
	}
	if rec.RecipientID != recipientID {
		return false, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return false, nil
}

// MarkAllRead marks every unread record of the recipient and returns how many changed.
func (r *RecordRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	unread, err := r.collect(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexRecipientCreate),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("attribute_not_exists(read_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": strVal(recipientID),
		},
	}, 0)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, rec := range unread {
		ok, err := r.MarkRead(ctx, recipientID, rec.ID, at)
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// collect pages through a query until limit items are gathered (limit 0 = all).
func (r *RecordRepo) collect(ctx context.Context, input *dynamodb.QueryInput, limit int) ([]domain.NotificationRecord, error) {
	var records []domain.NotificationRecord
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.NotificationRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		records = append(records, page...)
		if limit > 0 && len(records) >= limit {
			return records[:limit], nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
