package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Store is a single-table DynamoDB store. All items share a PK of
// "ORG#<orgId>"; the SK prefix selects the record kind (RELEASE#, EVENT#,
// JOB#, LIST#).
type Store struct {
	DB    *dynamodb.Client
	Table string
}

func New(db *dynamodb.Client, table string) *Store { return &Store{DB: db, Table: table} }

// maxTransactOps is DynamoDB's TransactWriteItems operation ceiling.
const maxTransactOps = 100

// MaxEventsPerChunk bounds a commit chunk: each event stages a put plus at
// most one coalesced counter update, so a chunk never exceeds the ceiling.
const MaxEventsPerChunk = maxTransactOps / 2

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.DB.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.Table)})
	return err
}
