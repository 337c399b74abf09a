package dynamo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

// batchGetMax is the DynamoDB limit on keys per BatchGetItem call.
const batchGetMax = 100

// FetchOrdered queries the page partition in id order, applying the
// remaining predicates client side. Id-sorted scans stop as soon as Limit
// rows matched; timestamp-sorted scans read the whole id range first.
func (s *Store) FetchOrdered(ctx context.Context, f repository.OrderedFilter) ([]model.Revision, error) {
	lo, hi := f.Bounds()
	if lo != nil && hi != nil && *lo > *hi {
		// DynamoDB rejects BETWEEN with inverted operands.
		return nil, nil
	}
	from, to := revSK(0), revSK(math.MaxInt64)
	if lo != nil {
		from = revSK(max(*lo, 0))
	}
	if hi != nil {
		to = revSK(max(*hi, 0))
	}

	in := &sdk.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: s.pagePK(f.PageID)},
			":from": &types.AttributeValueMemberS{Value: from},
			":to":   &types.AttributeValueMemberS{Value: to},
		},
		ScanIndexForward: aws.Bool(f.Dir == model.DirNewer),
	}

	stopEarly := f.Sort == repository.SortByID && f.Limit > 0
	var out []model.Revision
	for {
		page, err := s.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query page %d: %w", f.PageID, err)
		}
		revs, err := unmarshalRevisions(page.Items)
		if err != nil {
			return nil, err
		}
		for _, r := range revs {
			if repository.MatchOrdered(r, f) {
				out = append(out, r)
			}
		}
		if len(page.LastEvaluatedKey) == 0 || (stopEarly && len(out) >= f.Limit) {
			break
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}

	repository.SortOrdered(out, f.Sort, f.Dir)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) FetchByIDs(ctx context.Context, ids []int64, f repository.IDFilter) ([]model.Revision, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= f.AfterID || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, key(s.revPK(id), skRev))
	}
	items, err := s.batchGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	revs, err := unmarshalRevisions(items)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(revs, func(r model.Revision) bool { return !repository.HasTag(r, f.Tag) })
	slices.SortFunc(out, func(a, b model.Revision) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) FetchLatest(ctx context.Context, pageIDs []int64, after *repository.PageCursor, tag string) ([]model.Revision, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(pageIDs))
	for _, id := range slices.Compact(slices.Sorted(slices.Values(pageIDs))) {
		if after != nil && id < after.PageID {
			continue
		}
		keys = append(keys, key(s.pagePK(id), skMeta))
	}
	metas, err := s.batchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	revKeys := make([]map[string]types.AttributeValue, 0, len(metas))
	for _, raw := range metas {
		var p pageItem
		if err := attributevalue.UnmarshalMap(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page: %w", err)
		}
		if p.LatestRevID == 0 {
			continue
		}
		if after != nil && p.ID == after.PageID && p.LatestRevID <= after.RevID {
			continue
		}
		revKeys = append(revKeys, key(s.revPK(p.LatestRevID), skRev))
	}
	items, err := s.batchGet(ctx, revKeys)
	if err != nil {
		return nil, err
	}
	revs, err := unmarshalRevisions(items)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(revs, func(r model.Revision) bool { return !repository.HasTag(r, tag) })
	slices.SortFunc(out, func(a, b model.Revision) int {
		if c := cmp.Compare(a.PageID, b.PageID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Append writes both revision copies and advances the page's latest pointer
// in one transaction. The pointer update is conditional on the parent read
// beforehand, so a concurrent append surfaces as ErrConflict.
func (s *Store) Append(ctx context.Context, r model.Revision) (model.Revision, error) {
	page, err := s.getPage(ctx, r.PageID)
	if err != nil {
		return model.Revision{}, err
	}
	id, err := s.nextID(ctx, counterRev)
	if err != nil {
		return model.Revision{}, err
	}
	now := time.Now().UTC()
	r.ID, r.ParentID, r.PageTitle = id, page.LatestRevID, page.Title
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}

	inPage, byID := s.revisionItems(r)
	inPageAV, err := attributevalue.MarshalMap(inPage)
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to marshal revision: %w", err)
	}
	byIDAV, err := attributevalue.MarshalMap(byID)
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to marshal revision: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return model.Revision{}, err
	}

	_, err = s.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(s.table), Item: inPageAV}},
			{Put: &types.Put{TableName: aws.String(s.table), Item: byIDAV}},
			{Update: &types.Update{
				TableName:           aws.String(s.table),
				Key:                 key(s.pagePK(r.PageID), skMeta),
				UpdateExpression:    aws.String("SET latest_rev_id = :id, updated_at = :now"),
				ConditionExpression: aws.String("latest_rev_id = :parent"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id":     &types.AttributeValueMemberN{Value: strconv.FormatInt(r.ID, 10)},
					":parent": &types.AttributeValueMemberN{Value: strconv.FormatInt(r.ParentID, 10)},
					":now":    nowAV,
				},
			}},
		},
	})
	if err != nil {
		return model.Revision{}, mapTxError(err)
	}
	return r, nil
}

func (s *Store) getPage(ctx context.Context, id int64) (model.Page, error) {
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(s.pagePK(id), skMeta),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return model.Page{}, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return model.Page{}, repository.ErrNotFound
	}
	var it pageItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return model.Page{}, fmt.Errorf("failed to unmarshal page: %w", err)
	}
	return it.toModel(), nil
}

// nextID increments the named counter and returns its new value.
func (s *Store) nextID(ctx context.Context, counter string) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              key(s.counterPK(), counter),
		UpdateExpression: aws.String("ADD next_id :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s counter: %w", counter, err)
	}
	var next struct {
		NextID int64 `dynamodbav:"next_id"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &next); err != nil {
		return 0, fmt.Errorf("failed to unmarshal counter: %w", err)
	}
	return next.NextID, nil
}

// batchGet fetches keys in chunks, retrying unprocessed keys until none remain.
func (s *Store) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for chunk := range slices.Chunk(keys, batchGetMax) {
		pending := map[string]types.KeysAndAttributes{s.table: {Keys: chunk}}
		for len(pending) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := s.client.BatchGetItem(ctx, &sdk.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, fmt.Errorf("BatchGetItem error: %w", err)
			}
			items = append(items, out.Responses[s.table]...)
			pending = out.UnprocessedKeys
		}
	}
	return items, nil
}

// mapTxError turns a cancelled transaction into a domain error. Condition
// failures mean another writer got there first.
func mapTxError(err error) error {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return repository.ErrConflict
			}
		}
	}
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return repository.ErrConflict
	}
	return fmt.Errorf("TransactWriteItems failed: %w", err)
}
