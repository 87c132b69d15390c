package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lakitu/internal/keys"
)

// Attribute names of the items table.
const (
	AttrUserID    = "userId"
	AttrItemID    = "itemId"
	AttrValue     = "value"
	AttrCreatedAt = "createdAt"
	AttrUpdatedAt = "updatedAt"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var (
	_ DynamoAPI = (*dynamodb.Client)(nil)
	_ Store     = (*DynamoStore)(nil)
)

// record is the persisted shape of an Item.
type record struct {
	UserID    string `dynamodbav:"userId"`
	ItemID    string `dynamodbav:"itemId"`
	Value     string `dynamodbav:"value"`
	CreatedAt int64  `dynamodbav:"createdAt"`
	UpdatedAt int64  `dynamodbav:"updatedAt"`
}

func (r record) item() Item {
	return Item{
		OwnerID:   r.UserID,
		ItemID:    r.ItemID,
		Value:     r.Value,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// DynamoStore provides owner-scoped item operations on a DynamoDB table
// keyed by (userId, itemId).
type DynamoStore struct {
	client DynamoAPI
	config Config
}

// NewDynamoStore creates a new DynamoStore instance.
func NewDynamoStore(client DynamoAPI, config Config) *DynamoStore {
	config.validate()
	return &DynamoStore{
		client: client,
		config: config,
	}
}

// Key returns the primary key of an item.
func Key(owner, itemID string) PK {
	return PK{
		AttrUserID: &types.AttributeValueMemberS{Value: owner},
		AttrItemID: &types.AttributeValueMemberS{Value: itemID},
	}
}

// List queries the owner's partition and returns all items.
func (s *DynamoStore) List(ctx context.Context, owner string) ([]Item, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	keyCond := expression.Key(AttrUserID).Equal(expression.Value(owner))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("list items: build expression: %w", err)
	}

	// Paginate through the whole partition
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(s.config.ConsistentReads),
	})

	items := []Item{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list", err)
		}
		var records []record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("list items: unmarshal: %w", err)
		}
		for _, r := range records {
			items = append(items, r.item())
		}
	}
	sortItems(items)

	return items, nil
}

// Get retrieves a single item, returning ErrNotFound if missing.
func (s *DynamoStore) Get(ctx context.Context, owner, itemID string) (Item, error) {
	if err := validateKey(owner, itemID); err != nil {
		return Item{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.TableName),
		Key:            Key(owner, itemID),
		ConsistentRead: aws.Bool(s.config.ConsistentReads),
	})
	if err != nil {
		return Item{}, classify("get", err)
	}
	if result.Item == nil {
		return Item{}, ErrNotFound
	}

	return unmarshalItem("get", result.Item)
}

// Create puts a new item under a freshly generated id.
// The put is conditional on the id being unused.
func (s *DynamoStore) Create(ctx context.Context, owner, value string) (Item, error) {
	if err := validateOwner(owner); err != nil {
		return Item{}, err
	}
	if err := ValidateValue(value); err != nil {
		return Item{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	now := s.config.nowMillis()
	r := record{
		UserID:    owner,
		ItemID:    keys.NewItemID(),
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	av, err := attributevalue.MarshalMap(r)
	if err != nil {
		return Item{}, fmt.Errorf("create item: marshal: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name(AttrItemID))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return Item{}, fmt.Errorf("create item: build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.config.TableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Item{}, fmt.Errorf("create item: generated id %q already exists", r.ItemID)
		}
		return Item{}, classify("create", err)
	}

	return r.item(), nil
}

// Update replaces the value of an existing item. Concurrent updates are
// last-writer-wins; only existence is checked.
func (s *DynamoStore) Update(ctx context.Context, owner, itemID, value string) (Item, error) {
	if err := validateKey(owner, itemID); err != nil {
		return Item{}, err
	}
	if err := ValidateValue(value); err != nil {
		return Item{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	now := s.config.nowMillis()
	item, err := s.update(ctx, owner, itemID, value, now, true)
	if err == nil {
		return item, nil
	}

	// The item exists but was created "after" our clock reading.
	// Keep updatedAt >= createdAt by stamping the creation time instead.
	var skew *clockSkewError
	if errors.As(err, &skew) {
		return s.update(ctx, owner, itemID, value, skew.createdAt, false)
	}
	return Item{}, err
}

// clockSkewError reports an update rejected because createdAt > now.
type clockSkewError struct {
	createdAt int64
}

func (e *clockSkewError) Error() string {
	return "update item: createdAt " + strconv.FormatInt(e.createdAt, 10) + " is ahead of the clock"
}

func (s *DynamoStore) update(ctx context.Context, owner, itemID, value string, now int64, guardSkew bool) (Item, error) {
	cond := expression.AttributeExists(expression.Name(AttrItemID))
	if guardSkew {
		cond = cond.And(expression.Name(AttrCreatedAt).LessThanEqual(expression.Value(now)))
	}
	upd := expression.Set(expression.Name(AttrValue), expression.Value(value)).
		Set(expression.Name(AttrUpdatedAt), expression.Value(now))

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(upd).Build()
	if err != nil {
		return Item{}, fmt.Errorf("update item: build expression: %w", err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.config.TableName),
		Key:                                 Key(owner, itemID),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			if condErr.Item == nil || !guardSkew {
				return Item{}, ErrNotFound
			}
			old, uerr := unmarshalItem("update", condErr.Item)
			if uerr != nil {
				return Item{}, uerr
			}
			return Item{}, &clockSkewError{createdAt: old.CreatedAt}
		}
		return Item{}, classify("update", err)
	}

	return unmarshalItem("update", result.Attributes)
}

// Delete removes an existing item. A missing item is ErrNotFound, so a
// repeated delete of the same id fails.
func (s *DynamoStore) Delete(ctx context.Context, owner, itemID string) error {
	if err := validateKey(owner, itemID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	cond := expression.AttributeExists(expression.Name(AttrItemID))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("delete item: build expression: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.config.TableName),
		Key:                       Key(owner, itemID),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return classify("delete", err)
	}

	return nil
}

// unmarshalItem converts a DynamoDB item to an Item.
func unmarshalItem(op string, raw map[string]types.AttributeValue) (Item, error) {
	var r record
	if err := attributevalue.UnmarshalMap(raw, &r); err != nil {
		return Item{}, fmt.Errorf("%s item: unmarshal: %w", op, err)
	}
	return r.item(), nil
}
