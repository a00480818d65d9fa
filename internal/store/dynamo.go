package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix  = "PROJECT#"
	skExec    = "EXEC"
	skHistory = "HISTORY"
)

// DynamoStore implements ProjectStore on AWS DynamoDB. One partition per
// project; the EXEC record carries a TTL so abandoned execution ids clean
// themselves up, while HISTORY persists indefinitely.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// Compile-time interface check.
var _ ProjectStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// projectPK returns the partition key for a project.
func projectPK(projectID string) string {
	return pkPrefix + projectID
}

// execRecord is the stored shape of the EXEC item.
type execRecord struct {
	ExecutionID string `dynamodbav:"executionId"`
}

// historyRecord is the stored shape of the HISTORY item. The whole capped
// list lives in one item; at 20 entries it stays far below the item limit.
type historyRecord struct {
	Items []HistoryItem `dynamodbav:"items"`
}

func (s *DynamoStore) PutExecution(ctx context.Context, projectID, executionID string) error {
	item, err := attributevalue.MarshalMap(execRecord{ExecutionID: executionID})
	if err != nil {
		return fmt.Errorf("marshal execution record: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: projectPK(projectID)}
	item["SK"] = &types.AttributeValueMemberS{Value: skExec}
	item["expiresAt"] = &types.AttributeValueMemberN{
		Value: strconv.FormatInt(time.Now().Add(ExecutionTTL).Unix(), 10),
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put execution %s/%s: %w", projectID, executionID, err)
	}

	log.Debug().Str("projectId", projectID).Str("executionId", executionID).Msg("Execution id persisted")
	return nil
}

func (s *DynamoStore) GetExecution(ctx context.Context, projectID string) (string, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(projectID, skExec),
	})
	if err != nil {
		return "", fmt.Errorf("get execution for %s: %w", projectID, err)
	}
	if result.Item == nil {
		return "", nil
	}

	var rec execRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return "", fmt.Errorf("unmarshal execution record for %s: %w", projectID, err)
	}
	return rec.ExecutionID, nil
}

func (s *DynamoStore) ClearExecution(ctx context.Context, projectID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.key(projectID, skExec),
	})
	if err != nil {
		return fmt.Errorf("clear execution for %s: %w", projectID, err)
	}

	log.Debug().Str("projectId", projectID).Msg("Persisted execution id cleared")
	return nil
}

func (s *DynamoStore) PutHistory(ctx context.Context, projectID string, items []HistoryItem) error {
	item, err := attributevalue.MarshalMap(historyRecord{Items: items})
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: projectPK(projectID)}
	item["SK"] = &types.AttributeValueMemberS{Value: skHistory}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put history for %s: %w", projectID, err)
	}

	log.Debug().Str("projectId", projectID).Int("items", len(items)).Msg("Generation history persisted")
	return nil
}

func (s *DynamoStore) GetHistory(ctx context.Context, projectID string) ([]HistoryItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(projectID, skHistory),
	})
	if err != nil {
		return nil, fmt.Errorf("get history for %s: %w", projectID, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var rec historyRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal history for %s: %w", projectID, err)
	}
	return rec.Items, nil
}

// key builds the PK/SK map for a project record.
func (s *DynamoStore) key(projectID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
