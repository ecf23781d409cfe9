package main

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/bryanwahyu/automaton-scan-gate/internal/application"
	appscans "github.com/bryanwahyu/automaton-scan-gate/internal/application/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/config"
	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/queue"
)

func consume(ctx context.Context, cfg *config.Config, a *app) int {
	if cfg.Queue.URL == "" {
		a.log.Error("queue.url is required for consume")
		return 1
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Queue.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Queue.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		a.log.Errorw("load aws config", "error", err)
		return 1
	}

	policy := appscans.Policy{Interval: cfg.Poll.Interval, MaxAttempts: cfg.Poll.MaxAttempts}
	consumer := &queue.Consumer{
		Client:      sqs.NewFromConfig(awsCfg),
		QueueURL:    cfg.Queue.URL,
		WaitSeconds: cfg.Queue.WaitSeconds,
		Visibility:  policy.Budget() + 5*time.Minute,
		Handle: func(ctx context.Context, t domain.TriggerContext) domain.Outcome {
			out, _ := a.scans.Execute(ctx, t)
			return out
		},
		Clock: application.SystemClock{},
		Log:   a.log.Named("queue"),
	}
	if err := consumer.Run(ctx); err != nil {
		a.log.Errorw("consumer failed", "error", err)
		return 1
	}
	return 0
}
