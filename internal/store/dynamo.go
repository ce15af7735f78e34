package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

// Dynamo keeps all records in a single DynamoDB table with partition
// key "user" and sort key "sortKey".
type Dynamo struct {
	c     *dynamodb.Client
	table *string
}

func NewDynamo() (*Dynamo, error) {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(viper.GetString("aws.region")),
	}

	// Explicit credentials are optional. On EC2 the instance role is
	// picked up by the default chain instead.
	if key := viper.GetString("aws.access_key_id"); key != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			key,
			viper.GetString("aws.secret_access_key"),
			"",
		)))
	}

	cfg, err := awscfg.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, err
	}

	table := aws.String(viper.GetString("dynamo.table"))
	client := dynamodb.NewFromConfig(cfg)

	_, err = client.DescribeTable(context.TODO(), &dynamodb.DescribeTableInput{
		TableName: table,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "ResourceNotFoundException" {
				return nil, fmt.Errorf("table '%s' does not exist", *table)
			}
		}

		return nil, fmt.Errorf("failed to check if table exists, %w", err)
	}

	return &Dynamo{
		c:     client,
		table: table,
	}, nil
}

func (d *Dynamo) Put(ctx context.Context, rec Record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record, %w", err)
	}

	_, err = d.c.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: d.table,
		Item:      item,
	})
	if err != nil {
		return unavailable("dynamo put", err)
	}

	return nil
}

func (d *Dynamo) GetByKey(ctx context.Context, owner, sortKey string) (Record, error) {
	out, err := d.c.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table,
		Key: map[string]types.AttributeValue{
			"user":    &types.AttributeValueMemberS{Value: owner},
			"sortKey": &types.AttributeValueMemberS{Value: sortKey},
		},
	})
	if err != nil {
		return Record{}, unavailable("dynamo get", err)
	}

	if out.Item == nil {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record, %w", err)
	}

	return rec, nil
}

func (d *Dynamo) QueryByOwner(ctx context.Context, owner string) ([]Record, error) {
	var recs []Record

	p := dynamodb.NewQueryPaginator(d.c, &dynamodb.QueryInput{
		TableName:              d.table,
		KeyConditionExpression: aws.String("#u = :u"),
		ExpressionAttributeNames: map[string]string{
			"#u": "user",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: owner},
		},
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, unavailable("dynamo query", err)
		}

		var batch []Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records, %w", err)
		}

		recs = append(recs, batch...)
	}

	return recs, nil
}

func (d *Dynamo) Scan(ctx context.Context, keep func(Record) bool) ([]Record, error) {
	var recs []Record

	p := dynamodb.NewScanPaginator(d.c, &dynamodb.ScanInput{
		TableName: d.table,
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, unavailable("dynamo scan", err)
		}

		var batch []Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records, %w", err)
		}

		for _, rec := range batch {
			if keep == nil || keep(rec) {
				recs = append(recs, rec)
			}
		}
	}

	return recs, nil
}

func (d *Dynamo) Delete(ctx context.Context, owner, sortKey string) error {
	_, err := d.c.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: d.table,
		Key: map[string]types.AttributeValue{
			"user":    &types.AttributeValueMemberS{Value: owner},
			"sortKey": &types.AttributeValueMemberS{Value: sortKey},
		},
	})
	if err != nil {
		return unavailable("dynamo delete", err)
	}

	return nil
}
