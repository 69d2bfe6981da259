package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/school-notify/internal/domain"
)

// ScheduledRepo stores scheduled notifications. due_at holds scheduled_at in
// epoch milliseconds and is the range key of the status index.
type ScheduledRepo struct {
	client    API
	tableName string
}

func NewScheduledRepo(client API, tableName string) *ScheduledRepo {
	return &ScheduledRepo{client: client, tableName: tableName}
}

func (r *ScheduledRepo) Put(ctx context.Context, n *domain.ScheduledNotification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal scheduled notification: %w", err)
	}
	item["due_at"] = millis(n.ScheduledAt)
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(scheduled_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("scheduled notification %s: %w", n.ID, domain.ErrConflict)
	}
	return err
}

func (r *ScheduledRepo) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("scheduled_id", id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("scheduled notification not found: %w", domain.ErrNotFound)
	}
	var n domain.ScheduledNotification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns entries in the given status ordered by scheduled time.
// An empty status scans the whole table.
func (r *ScheduledRepo) List(ctx context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error) {
	if status == "" {
		input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
		if limit > 0 {
			input.Limit = aws.Int32(int32(limit))
		}
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var items []domain.ScheduledNotification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	input := &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexStatusDue),
		KeyConditionExpression:   aws.String("#s = :s"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": strVal(string(status)),
		},
		ScanIndexForward: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	return r.query(ctx, input)
}

// ListDue returns up to limit pending entries whose scheduled time is at or before now.
// The index is eventually consistent; Transition is the authoritative claim.
func (r *ScheduledRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledNotification, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexStatusDue),
		KeyConditionExpression:   aws.String("#s = :s AND due_at <= :now"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":   strVal(string(domain.StatusPending)),
			":now": millis(now),
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(limit)),
	})
}

// Transition applies change only while the entry is still in status from.
// A failed precondition (including a missing entry) yields domain.ErrClaimConflict.
func (r *ScheduledRepo) Transition(ctx context.Context, id string, from domain.ScheduledStatus, change domain.StatusChange) error {
	updates := map[string]interface{}{
		"status":     change.Status,
		"updated_at": change.UpdatedAt.UTC(),
	}
	if change.ScheduledAt != nil {
		updates["scheduled_at"] = change.ScheduledAt.UTC()
		updates["due_at"] = change.ScheduledAt.UTC().UnixMilli()
	}
	if change.FailureReason != nil {
		updates["failure_reason"] = *change.FailureReason
	}
	if change.LastRunAt != nil {
		updates["last_run_at"] = change.LastRunAt.UTC()
	}
	if change.RunCount != nil {
		updates["run_count"] = *change.RunCount
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#from_status"] = "status"
	ue.Values[":from_status"] = strVal(string(from))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("scheduled_id", id),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#from_status = :from_status"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("scheduled notification %s not %s: %w", id, from, domain.ErrClaimConflict)
	}
	return err
}

func (r *ScheduledRepo) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.ScheduledNotification, error) {
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	var items []domain.ScheduledNotification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}
