package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// TableSlot keeps each key in its own Azure Table entity. A single string
// property is limited to 64 KiB, which bounds the board size on this backend.
type TableSlot struct {
	table *aztables.Client
}

type slotEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Data         string `json:"Data"`
}

// NewTableSlot connects to table using an Azure Storage connection string.
func NewTableSlot(connStr, table string) (*TableSlot, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableSlot{table: svc.NewClient(table)}, nil
}

func (t *TableSlot) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := t.table.GetEntity(ctx, key, key, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, ErrSlotEmpty
		}
		return nil, err
	}
	return decodeSlotEntity(resp.Value)
}

func (t *TableSlot) Put(ctx context.Context, key string, value []byte) error {
	payload, err := encodeSlotEntity(key, value)
	if err != nil {
		return err
	}
	_, err = t.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func encodeSlotEntity(key string, value []byte) ([]byte, error) {
	ent := slotEntity{
		PartitionKey: key,
		RowKey:       key,
		Data:         string(value),
	}
	return json.Marshal(ent)
}

func decodeSlotEntity(data []byte) ([]byte, error) {
	var ent slotEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return nil, err
	}
	if ent.Data == "" {
		return nil, ErrSlotEmpty
	}
	return []byte(ent.Data), nil
}
