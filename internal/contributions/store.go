package contributions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrInvalidContribution is returned for entries missing their id or household.
var ErrInvalidContribution = errors.New("invalid contribution")

// DynamoDBAPI is the part of the DynamoDB client the ledger needs.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
}

// Store is the contribution ledger backed by DynamoDB.
type Store struct {
	client    DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore returns a Store bound to tableName.
func NewStore(client DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreateIfNotExists books c unless an entry with the same id already exists.
// Returns (true, nil) when written and (false, nil) when it was already there,
// so redelivered events book nothing twice.
func (s *Store) CreateIfNotExists(ctx context.Context, c Contribution) (bool, error) {
	if c.ContributionID == "" || c.HouseholdID == "" {
		return false, fmt.Errorf("%w: contribution id and household id are required", ErrInvalidContribution)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.nowFunc().UTC()
	}

	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return false, fmt.Errorf("marshal contribution: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(contribution_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get returns the contribution or (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, contributionID string) (*Contribution, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"contribution_id": &types.AttributeValueMemberS{Value: contributionID},
		},
		ConsistentRead: sdkBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var c Contribution
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal contribution: %w", err)
	}
	return &c, nil
}

func awsString(s string) *string { return &s }

func sdkBool(b bool) *bool { return &b }
