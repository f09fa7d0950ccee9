package transactions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// DynamoDBAPI is the part of the DynamoDB client DynamoStore needs.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error)
}

var _ DynamoDBAPI = (*dyn.Client)(nil)

// DynamoStore encapsulates operations on the transactions table.
type DynamoStore struct {
	client    DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoStore creates a new transactions store backed by DynamoDB.
func NewDynamoStore(client DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create writes the intent only if no record with the same checkout_request_id exists.
func (s *DynamoStore) Create(ctx context.Context, intent PaymentIntent) error {
	if err := checkCreate(&intent); err != nil {
		return err
	}
	now := s.nowFunc().UTC()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now

	item, err := attributevalue.MarshalMap(intent)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(checkout_request_id)"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, intent.CheckoutRequestID)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// FindByCheckoutID fetches a transaction by checkout_request_id. Returns (nil, nil) if not found.
func (s *DynamoStore) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*PaymentIntent, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            key(checkoutRequestID),
		ConsistentRead: sdkBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p PaymentIntent
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &p, nil
}

// Update applies the final status and result fields, conditioned on the stored
// status still being PENDING. Returns ErrStatusMismatch if the condition failed.
func (s *DynamoStore) Update(ctx context.Context, intent PaymentIntent) error {
	if err := checkUpdate(intent); err != nil {
		return err
	}

	updatedAt, err := attributevalue.Marshal(s.nowFunc().UTC())
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}

	sets := []string{"#s = :new", "result_desc = :rd", "updated_at = :ua"}
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: intent.Status},
		":expected": &types.AttributeValueMemberS{Value: StatusPending},
		":rd":       &types.AttributeValueMemberS{Value: intent.ResultDesc},
		":ua":       updatedAt,
	}
	names := map[string]string{"#s": "status"}

	if intent.ResultCode != nil {
		sets = append(sets, "result_code = :rc")
		values[":rc"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", *intent.ResultCode)}
	}
	if intent.Status == StatusCompleted {
		// the settled amount replaces the requested one
		if intent.Amount > 0 {
			sets = append(sets, "#amt = :amt")
			names["#amt"] = "amount"
			values[":amt"] = &types.AttributeValueMemberN{Value: formatNumber(intent.Amount)}
		}
		if intent.MpesaReceiptNumber != "" {
			sets = append(sets, "mpesa_receipt_number = :rcpt")
			values[":rcpt"] = &types.AttributeValueMemberS{Value: intent.MpesaReceiptNumber}
		}
		if intent.TransactionDate != "" {
			sets = append(sets, "transaction_date = :td")
			values[":td"] = &types.AttributeValueMemberS{Value: intent.TransactionDate}
		}
	}

	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       key(intent.CheckoutRequestID),
		UpdateExpression:          awsString("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	}

	_, err = s.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionalFailure(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ListAll scans the whole table. The table holds one row per push so a full
// scan stays cheap for a single congregation.
func (s *DynamoStore) ListAll(ctx context.Context) ([]PaymentIntent, error) {
	var (
		all      []PaymentIntent
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var page []PaymentIntent
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal transactions: %w", err)
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sortNewestFirst(all)
	return all, nil
}

func key(checkoutRequestID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"checkout_request_id": &types.AttributeValueMemberS{Value: checkoutRequestID},
	}
}

func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func awsString(s string) *string { return &s }
func sdkBool(b bool) *bool       { return &b }
