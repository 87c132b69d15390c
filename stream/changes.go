// Package stream provides the DynamoDB Streams handler for the items table.
package stream

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/internal/logging"
	"github.com/jacentio/lakitu/store"
)

// Change is one item mutation read from a stream record.
type Change struct {
	EventID   string
	EventName string
	OwnerID   string
	ItemID    string

	// ValueLength is the byte length of the newest image's value,
	// or of the old image for REMOVE.
	ValueLength int
}

// Handler logs item changes delivered by the table's stream.
// It never writes back to the table.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// HandleItemChanges logs every INSERT, MODIFY and REMOVE record.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleItemChanges(ctx context.Context, event events.DynamoDBEvent) error {
	logger := logging.WithLambda(ctx, h.logger)

	for _, record := range event.Records {
		change, ok := ParseChange(record)
		if !ok {
			logger.Warn("skipping stream record without item key",
				zap.String("event_id", record.EventID),
				zap.String("event_name", record.EventName),
			)
			continue
		}

		logger.Info("item changed",
			zap.String("event_id", change.EventID),
			zap.String("event_name", change.EventName),
			zap.String("owner", change.OwnerID),
			zap.String("item_id", change.ItemID),
			zap.Int("value_length", change.ValueLength),
		)
	}
	return nil
}

// ParseChange extracts a Change from a stream record. It reports false for
// unknown event names and records lacking the item key.
func ParseChange(record events.DynamoDBEventRecord) (Change, bool) {
	switch events.DynamoDBOperationType(record.EventName) {
	case events.DynamoDBOperationTypeInsert, events.DynamoDBOperationTypeModify, events.DynamoDBOperationTypeRemove:
	default:
		return Change{}, false
	}

	keys := record.Change.Keys
	owner := getStringAttr(keys, store.AttrUserID)
	itemID := getStringAttr(keys, store.AttrItemID)
	if owner == "" || itemID == "" {
		return Change{}, false
	}

	image := record.Change.NewImage
	if record.EventName == string(events.DynamoDBOperationTypeRemove) {
		image = record.Change.OldImage
	}

	return Change{
		EventID:     record.EventID,
		EventName:   record.EventName,
		OwnerID:     owner,
		ItemID:      itemID,
		ValueLength: len(getStringAttr(image, store.AttrValue)),
	}, true
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
