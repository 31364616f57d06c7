package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "USER#"
	skPreset = "PRESET#"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements PresetStore on DynamoDB.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// Compile-time interface check.
var _ PresetStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, now: time.Now}
}

// --- Internal helpers ---

func userPK(userID string) string { return pkPrefix + userID }

func presetSK(name string) string { return skPreset + name }

// putItem marshals data and writes it with PK and SK.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data any) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads one item into out. It returns false if the item does not exist.
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// queryBySKPrefix returns every item under pk whose SK begins with skPrefix,
// following pagination.
func (s *DynamoStore) queryBySKPrefix(ctx context.Context, pk, skPrefix string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var all []map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK prefix=%s: %w", pk, skPrefix, err)
		}
		all = append(all, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return all, nil
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// --- Preset operations ---

func (s *DynamoStore) Put(ctx context.Context, p *Preset) error {
	name, err := ValidateName(p.Name)
	if err != nil {
		return err
	}
	if p.UserID == "" {
		return fmt.Errorf("put preset %q: user id is required", name)
	}
	p.Name = name
	now := s.now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.putItem(ctx, userPK(p.UserID), presetSK(name), p); err != nil {
		return fmt.Errorf("put preset %q: %w", name, err)
	}
	log.Debug().Str("userId", p.UserID).Str("preset", name).Msg("Preset saved")
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, userID, name string) (*Preset, error) {
	var p Preset
	found, err := s.getItem(ctx, userPK(userID), presetSK(name), &p)
	if err != nil {
		return nil, fmt.Errorf("get preset %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	p.UserID = userID
	return &p, nil
}

func (s *DynamoStore) List(ctx context.Context, userID string) ([]Preset, error) {
	items, err := s.queryBySKPrefix(ctx, userPK(userID), skPreset)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	out := make([]Preset, 0, len(items))
	for _, item := range items {
		var p Preset
		if err := attributevalue.UnmarshalMap(item, &p); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Skipping unreadable preset")
			continue
		}
		if p.Name == "" {
			if sk, ok := item["SK"].(*types.AttributeValueMemberS); ok {
				p.Name = strings.TrimPrefix(sk.Value, skPreset)
			}
		}
		p.UserID = userID
		out = append(out, p)
	}
	sortPresets(out)
	return out, nil
}

func (s *DynamoStore) Delete(ctx context.Context, userID, name string) error {
	if err := s.deleteItem(ctx, userPK(userID), presetSK(name)); err != nil {
		return fmt.Errorf("delete preset %q: %w", name, err)
	}
	return nil
}

// sortPresets orders presets by most recently updated, then name.
func sortPresets(ps []Preset) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].UpdatedAt != ps[j].UpdatedAt {
			return ps[i].UpdatedAt > ps[j].UpdatedAt
		}
		return ps[i].Name < ps[j].Name
	})
}
