package dynamo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// fakeAPI is a single-table DynamoDB stand-in that understands exactly the
// expressions this package emits. Queries return at most pageSize items per
// call so pagination loops are exercised.
type fakeAPI struct {
	mu       sync.Mutex
	rows     map[string]map[string]item
	pageSize int
	failTx   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{rows: make(map[string]map[string]item), pageSize: 2}
}

func str(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func (f *fakeAPI) get(k item) item {
	return f.rows[str(k[attrPK])][str(k[attrSK])]
}

func (f *fakeAPI) put(it item) {
	pk := str(it[attrPK])
	if f.rows[pk] == nil {
		f.rows[pk] = make(map[string]item)
	}
	f.rows[pk][str(it[attrSK])] = maps.Clone(it)
}

func (f *fakeAPI) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &sdk.GetItemOutput{Item: maps.Clone(f.get(in.Key))}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	vals := in.ExpressionAttributeValues
	part := f.rows[str(vals[":pk"])]
	from, to := str(vals[":from"]), str(vals[":to"])
	if from > to {
		return nil, errors.New("ValidationException: Invalid KeyConditionExpression: the BETWEEN operator requires upper bound to be greater than or equal to lower bound")
	}
	sks := slices.Sorted(maps.Keys(part))
	if !aws.ToBool(in.ScanIndexForward) {
		slices.Reverse(sks)
	}
	var after string
	if in.ExclusiveStartKey != nil {
		after = str(in.ExclusiveStartKey[attrSK])
	}
	out := &sdk.QueryOutput{}
	started := after == ""
	for _, sk := range sks {
		if !started {
			started = sk == after
			continue
		}
		if sk < from || sk > to {
			continue
		}
		if len(out.Items) == f.pageSize {
			last := out.Items[len(out.Items)-1]
			out.LastEvaluatedKey = key(str(last[attrPK]), str(last[attrSK]))
			break
		}
		out.Items = append(out.Items, maps.Clone(part[sk]))
	}
	return out, nil
}

func (f *fakeAPI) BatchGetItem(ctx context.Context, in *sdk.BatchGetItemInput, _ ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &sdk.BatchGetItemOutput{Responses: make(map[string][]item)}
	for table, ka := range in.RequestItems {
		if len(ka.Keys) > batchGetMax {
			return nil, fmt.Errorf("too many keys: %d", len(ka.Keys))
		}
		for _, k := range ka.Keys {
			if it := f.get(k); it != nil {
				out.Responses[table] = append(out.Responses[table], maps.Clone(it))
			}
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if aws.ToString(in.UpdateExpression) != "ADD next_id :one" {
		return nil, fmt.Errorf("unsupported update %q", aws.ToString(in.UpdateExpression))
	}
	it := f.get(in.Key)
	if it == nil {
		it = maps.Clone(in.Key)
	}
	n, _ := strconv.ParseInt(str(it["next_id"]), 10, 64)
	it["next_id"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(n+1, 10)}
	f.put(it)
	return &sdk.UpdateItemOutput{Attributes: item{"next_id": it["next_id"]}}, nil
}

func (f *fakeAPI) TransactWriteItems(ctx context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTx != nil {
		return nil, f.failTx
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i].Code = aws.String("None")
		if !f.conditionHolds(ti) {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{Message: aws.String("cancelled"), CancellationReasons: reasons}
	}

	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			f.put(ti.Put.Item)
		case ti.Update != nil:
			it := f.get(ti.Update.Key)
			if it == nil {
				it = maps.Clone(ti.Update.Key)
			}
			expr := strings.TrimPrefix(aws.ToString(ti.Update.UpdateExpression), "SET ")
			for _, assign := range strings.Split(expr, ", ") {
				name, placeholder, _ := strings.Cut(assign, " = ")
				it[name] = ti.Update.ExpressionAttributeValues[placeholder]
			}
			f.put(it)
		}
	}
	return &sdk.TransactWriteItemsOutput{}, nil
}

func (f *fakeAPI) conditionHolds(ti types.TransactWriteItem) bool {
	switch {
	case ti.Put != nil && ti.Put.ConditionExpression != nil:
		return f.get(ti.Put.Item) == nil
	case ti.Update != nil && ti.Update.ConditionExpression != nil:
		name, placeholder, _ := strings.Cut(aws.ToString(ti.Update.ConditionExpression), " = ")
		it := f.get(ti.Update.Key)
		return it != nil && str(it[name]) == str(ti.Update.ExpressionAttributeValues[placeholder])
	}
	return true
}

func (f *fakeAPI) DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if aws.ToString(in.TableName) == "" {
		return nil, errors.New("table name required")
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

var _ API = (*fakeAPI)(nil)
