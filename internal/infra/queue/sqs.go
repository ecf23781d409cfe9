// Package queue consumes trigger contexts from an SQS queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-scan-gate/internal/application"
	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const (
	DefaultWaitSeconds = 20
	receiveBackoff     = 5 * time.Second
	// SQS menolak visibility timeout di atas 12 jam
	maxVisibilityTimeout = 12 * time.Hour
)

// API is the part of *sqs.Client the consumer uses.
type API interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// HandlerFunc runs one orchestration for a decoded trigger.
type HandlerFunc func(ctx context.Context, t domain.TriggerContext) domain.Outcome

// Consumer long-polls QueueURL and handles one message at a time.
type Consumer struct {
	Client      API
	QueueURL    string
	WaitSeconds int32
	// Visibility must outlast one orchestration, otherwise the message is redelivered mid-run.
	Visibility time.Duration
	Handle     HandlerFunc
	Clock      application.Clock
	Log        *zap.SugaredLogger
}

// Run blocks until ctx is cancelled. Receive errors are logged and retried.
func (c *Consumer) Run(ctx context.Context) error {
	if c.QueueURL == "" {
		return errors.New("queue url is required")
	}
	c.Log.Infow("consumer started", "queue", c.QueueURL)
	for {
		if ctx.Err() != nil {
			c.Log.Info("consumer stopped")
			return nil
		}
		if err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.Log.Warnw("receive failed", "error", err)
			_ = c.Clock.Sleep(ctx, receiveBackoff)
		}
	}
}

// Poll does one receive call and handles what came back.
func (c *Consumer) Poll(ctx context.Context) error {
	wait := c.WaitSeconds
	if wait <= 0 {
		wait = DefaultWaitSeconds
	}
	out, err := c.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.QueueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     wait,
		VisibilityTimeout:   visibilitySeconds(c.Visibility),
	})
	if err != nil {
		return fmt.Errorf("receive message: %w", err)
	}
	for _, msg := range out.Messages {
		c.handle(ctx, msg)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg types.Message) {
	id := aws.ToString(msg.MessageId)

	var t domain.TriggerContext
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &t); err != nil {
		// dibiarkan, redrive policy queue yang urus
		c.Log.Warnw("malformed message left on queue", "message_id", id, "error", err)
		return
	}

	out := c.Handle(ctx, t)
	if ctx.Err() != nil && out.Attempts == 0 {
		// dispatch belum terkonfirmasi, aman untuk dikirim ulang
		c.Log.Warnw("run interrupted before polling, message left for redelivery", "message_id", id)
		return
	}
	if ctx.Err() != nil {
		// scan sudah jalan di remote; redelivery hanya akan dispatch ulang
		c.Log.Warnw("run interrupted after dispatch, message dropped", "message_id", id, "attempts", out.Attempts)
	}

	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := c.Client.DeleteMessage(delCtx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		c.Log.Errorw("delete message failed", "message_id", id, "error", err)
		return
	}
	c.Log.Infow("message handled", "message_id", id, "verdict", out.Verdict.Kind)
}

func visibilitySeconds(d time.Duration) int32 {
	if d <= 0 {
		return 0 // pakai default queue
	}
	if d > maxVisibilityTimeout {
		d = maxVisibilityTimeout
	}
	return int32(d / time.Second)
}
