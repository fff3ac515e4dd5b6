package notify

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"

	"taskboard/domain"
)

// RedisSink publishes events on a pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (r *RedisSink) Name() string { return "redis:" + r.channel }

func (r *RedisSink) Send(ctx context.Context, _ domain.Event, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload).Err()
}

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// QueueSink appends events to an Azure Storage queue.
type QueueSink struct {
	queue queueClient
	name  string
}

// NewQueueSink connects to queue using an Azure Storage connection string.
func NewQueueSink(connStr, queue string) (*QueueSink, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 60 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	qc, err := azqueue.NewQueueClientFromConnectionString(connStr, queue, &opts)
	if err != nil {
		return nil, err
	}
	return &QueueSink{queue: qc, name: queue}, nil
}

func (q *QueueSink) Name() string { return "queue:" + q.name }

func (q *QueueSink) Send(ctx context.Context, _ domain.Event, payload []byte) error {
	_, err := q.queue.EnqueueMessage(ctx, string(payload), nil)
	return err
}
