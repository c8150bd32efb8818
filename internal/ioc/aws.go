package ioc

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gotomicro/ego/core/econf"

	"github.com/vervana-io/fastfast-common/internal/consumer"
	"github.com/vervana-io/fastfast-common/internal/publisher"
)

func awsRegion() awsconfig.LoadOptionsFunc {
	type Config struct {
		Region string
	}
	var cfg Config
	if err := econf.UnmarshalKey("aws", &cfg); err != nil {
		panic(err)
	}
	return awsconfig.WithRegion(cfg.Region)
}

func InitSQSClient(ctx context.Context) *sqs.Client {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsRegion())
	if err != nil {
		panic(err)
	}
	return sqs.NewFromConfig(awsCfg)
}

func InitSNSClient(ctx context.Context) *sns.Client {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsRegion())
	if err != nil {
		panic(err)
	}
	return sns.NewFromConfig(awsCfg)
}

func InitConsumer(client *sqs.Client) *consumer.Consumer {
	var cfg consumer.Config
	if err := econf.UnmarshalKey("consumer", &cfg); err != nil {
		panic(err)
	}
	c, err := consumer.NewConsumer(client, cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func InitPublisher(snsClient *sns.Client, sqsClient *sqs.Client) publisher.Publisher {
	var cfg publisher.Config
	if err := econf.UnmarshalKey("publisher", &cfg); err != nil {
		panic(err)
	}
	p, err := publisher.NewPublisher(snsClient, sqsClient, cfg)
	if err != nil {
		panic(err)
	}
	return p
}
