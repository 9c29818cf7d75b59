package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/omni-commerce/internal/ledger"
)

// DynamoStore persists payments in DynamoDB, keyed by order id. The
// conditional put is the ledger's atomic insert: a condition failure is
// the duplicate-delivery signal.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

type dynamoPayment struct {
	OrderID    string  `dynamodbav:"order_id"`
	ID         string  `dynamodbav:"id"`
	CustomerID string  `dynamodbav:"customer_id"`
	Amount     float64 `dynamodbav:"amount"`
	Currency   string  `dynamodbav:"currency"`
	Success    bool    `dynamodbav:"success"`
	CreatedAt  string  `dynamodbav:"created_at"`
	GSI1PK     string  `dynamodbav:"gsi1pk"`
}

func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func (s *DynamoStore) CreateOnce(ctx context.Context, p *Payment) (ledger.Result, error) {
	item, err := attributevalue.MarshalMap(dynamoPayment{
		OrderID:    p.OrderID,
		ID:         p.ID,
		CustomerID: p.CustomerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Success:    p.Success,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339Nano),
		GSI1PK:     "PAYMENTS", // fixed value so List can query GSI1
	})
	if err != nil {
		return ledger.AlreadyExists, fmt.Errorf("marshal payment: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ledger.AlreadyExists, nil
		}
		return ledger.AlreadyExists, fmt.Errorf("put payment %s: %w", p.OrderID, err)
	}
	return ledger.Inserted, nil
}

func (s *DynamoStore) List(ctx context.Context) ([]*Payment, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String("gsi1"),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "PAYMENTS"},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}

	payments := make([]*Payment, 0, len(result.Items))
	for _, item := range result.Items {
		var dp dynamoPayment
		if err := attributevalue.UnmarshalMap(item, &dp); err != nil {
			return nil, fmt.Errorf("unmarshal payment: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, dp.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse payment timestamp: %w", err)
		}
		payments = append(payments, &Payment{
			ID:         dp.ID,
			OrderID:    dp.OrderID,
			CustomerID: dp.CustomerID,
			Amount:     dp.Amount,
			Currency:   dp.Currency,
			Success:    dp.Success,
			CreatedAt:  createdAt,
		})
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}
