package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

type pageRepo struct{ s *Store }

// Create reserves the title and writes the page metadata together; a taken
// title cancels the transaction.
func (p pageRepo) Create(ctx context.Context, page model.Page) (model.Page, error) {
	s := p.s
	id, err := s.nextID(ctx, counterPage)
	if err != nil {
		return model.Page{}, err
	}
	now := time.Now().UTC()
	out := model.Page{ID: id, Title: strings.TrimSpace(page.Title), CreatedAt: now, UpdatedAt: now}

	meta, err := attributevalue.MarshalMap(s.pageToItem(out))
	if err != nil {
		return model.Page{}, fmt.Errorf("failed to marshal page: %w", err)
	}
	title := key(s.titlePK(out.Title), skTitle)
	title["page_id"] = &types.AttributeValueMemberN{Value: fmt.Sprint(id)}

	_, err = s.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.table),
				Item:                title,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{TableName: aws.String(s.table), Item: meta}},
		},
	})
	if err != nil {
		if errors.Is(mapTxError(err), repository.ErrConflict) {
			return model.Page{}, repository.ErrAlreadyExists
		}
		return model.Page{}, mapTxError(err)
	}
	return out, nil
}

func (p pageRepo) GetByID(ctx context.Context, id int64) (model.Page, error) {
	return p.s.getPage(ctx, id)
}

var _ repository.PageRepository = pageRepo{}
