// Package dynamo stores pages and revisions in a single DynamoDB table.
//
// Layout (PK / SK, both strings):
//
//	PAGE#<page>  / META            page metadata, including latest_rev_id
//	PAGE#<page>  / REV#<rev:020d>  a revision, ordered by id inside its page
//	REV#<rev>    / REV             a copy of the revision for id lookups
//	TITLE#<t>    / TITLE           reserves a page title
//	COUNTER      / PAGE | REV      id sequences
//
// Timestamp-ordered scans read the page partition by id and sort client side.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/maxviazov/revision-history-service/internal/config"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *sdk.GetItemInput, opts ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	Query(ctx context.Context, in *sdk.QueryInput, opts ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	BatchGetItem(ctx context.Context, in *sdk.BatchGetItemInput, opts ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error)
	UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, opts ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *sdk.TransactWriteItemsInput, opts ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, opts ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
}

// Store implements repository.Store on top of API.
type Store struct {
	client API
	table  string
	ns     string
}

// Option customizes a Store.
type Option func(*Store)

// WithNamespace prefixes every partition key so several logical stores can
// share one table.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.ns = ns }
}

// New wraps an existing client.
func New(client API, table string, opts ...Option) *Store {
	s := &Store{client: client, table: table}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient builds a DynamoDB client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS chain applies.
func NewClient(ctx context.Context, cfg config.DynamoDBConfig) (*sdk.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func (s *Store) Revisions() repository.RevisionStore { return s }
func (s *Store) Pages() repository.PageRepository    { return pageRepo{s} }
func (s *Store) Writer() repository.RevisionWriter   { return s }

// Tx runs units of work directly; each Append is its own transaction.
func (s *Store) Tx() repository.TxManager { return repository.DirectTx() }

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Close() {}

// CreateTable creates the table with on-demand billing. It is meant for local
// development and tests.
func CreateTable(ctx context.Context, client *sdk.Client, table string) error {
	_, err := client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrSK), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrSK), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
