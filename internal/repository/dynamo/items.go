package dynamo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/maxviazov/revision-history-service/internal/model"
)

const (
	attrPK = "PK"
	attrSK = "SK"

	skMeta    = "META"
	skRev     = "REV"
	skTitle   = "TITLE"
	revPrefix = "REV#"

	counterPage = "PAGE"
	counterRev  = "REV"

	entityPage     = "page"
	entityRevision = "revision"
)

func (s *Store) pagePK(id int64) string  { return s.ns + "PAGE#" + strconv.FormatInt(id, 10) }
func (s *Store) revPK(id int64) string   { return s.ns + revPrefix + strconv.FormatInt(id, 10) }
func (s *Store) titlePK(t string) string { return s.ns + "TITLE#" + t }
func (s *Store) counterPK() string       { return s.ns + "COUNTER" }

// revSK zero-pads ids so lexical key order equals numeric order.
func revSK(id int64) string { return fmt.Sprintf("%s%020d", revPrefix, id) }

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

type pageItem struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	EntityType  string    `dynamodbav:"EntityType"`
	ID          int64     `dynamodbav:"id"`
	Title       string    `dynamodbav:"title"`
	LatestRevID int64     `dynamodbav:"latest_rev_id"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}

type revisionItem struct {
	PK           string    `dynamodbav:"PK"`
	SK           string    `dynamodbav:"SK"`
	EntityType   string    `dynamodbav:"EntityType"`
	ID           int64     `dynamodbav:"id"`
	PageID       int64     `dynamodbav:"page_id"`
	PageTitle    string    `dynamodbav:"page_title"`
	ParentID     int64     `dynamodbav:"parent_id"`
	Timestamp    time.Time `dynamodbav:"ts"`
	UserID       int64     `dynamodbav:"user_id"`
	UserText     string    `dynamodbav:"user_text"`
	Comment      string    `dynamodbav:"comment"`
	Size         int       `dynamodbav:"size"`
	SHA1         string    `dynamodbav:"sha1"`
	Minor        bool      `dynamodbav:"minor"`
	ContentModel string    `dynamodbav:"content_model"`
	Deleted      int       `dynamodbav:"deleted"`
	Tags         []string  `dynamodbav:"tags"`
}

func (s *Store) pageToItem(p model.Page) pageItem {
	return pageItem{
		PK: s.pagePK(p.ID), SK: skMeta, EntityType: entityPage,
		ID: p.ID, Title: p.Title, LatestRevID: p.LatestRevID,
		CreatedAt: p.CreatedAt.UTC(), UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (it pageItem) toModel() model.Page {
	return model.Page{ID: it.ID, Title: it.Title, LatestRevID: it.LatestRevID, CreatedAt: it.CreatedAt.UTC(), UpdatedAt: it.UpdatedAt.UTC()}
}

// revisionItems returns the partition copy and the id lookup copy of r.
func (s *Store) revisionItems(r model.Revision) (inPage, byID revisionItem) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	inPage = revisionItem{
		PK: s.pagePK(r.PageID), SK: revSK(r.ID), EntityType: entityRevision,
		ID: r.ID, PageID: r.PageID, PageTitle: r.PageTitle, ParentID: r.ParentID,
		Timestamp: r.Timestamp.UTC(), UserID: r.UserID, UserText: r.UserText, Comment: r.Comment,
		Size: r.Size, SHA1: r.SHA1, Minor: r.Minor, ContentModel: r.ContentModel, Deleted: r.Deleted, Tags: tags,
	}
	byID = inPage
	byID.PK, byID.SK = s.revPK(r.ID), skRev
	return inPage, byID
}

func (it revisionItem) toModel() model.Revision {
	return model.Revision{
		ID: it.ID, PageID: it.PageID, PageTitle: it.PageTitle, ParentID: it.ParentID,
		Timestamp: it.Timestamp.UTC(), UserID: it.UserID, UserText: it.UserText, Comment: it.Comment,
		Size: it.Size, SHA1: it.SHA1, Minor: it.Minor, ContentModel: it.ContentModel, Deleted: it.Deleted, Tags: it.Tags,
	}
}

func unmarshalRevisions(items []map[string]types.AttributeValue) ([]model.Revision, error) {
	out := make([]model.Revision, 0, len(items))
	for _, raw := range items {
		var it revisionItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("failed to unmarshal revision: %w", err)
		}
		out = append(out, it.toModel())
	}
	return out, nil
}
