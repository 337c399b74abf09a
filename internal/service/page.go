package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

type pageService struct {
	pages  repository.PageRepository
	writer repository.RevisionWriter
	tx     repository.TxManager
	log    zerolog.Logger
}

func NewPageService(pages repository.PageRepository, writer repository.RevisionWriter, tx repository.TxManager, logger zerolog.Logger) PageService {
	l := logger.With().Str("module", "service").Str("component", "page").Logger()
	return &pageService{pages: pages, writer: writer, tx: tx, log: l}
}

func (s *pageService) CreatePage(ctx context.Context, title string) (model.Page, error) {
	title = strings.TrimSpace(title)
	if err := newInvalidInput(validateTitle(title)); err != nil {
		return model.Page{}, err
	}
	out, err := s.pages.Create(ctx, model.Page{Title: title})
	if err != nil {
		// Repository surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Str("title", title).Msg("create page failed")
		return model.Page{}, err
	}
	s.log.Info().Int64("page_id", out.ID).Str("title", out.Title).Msg("page created")
	return out, nil
}

func (s *pageService) GetPage(ctx context.Context, id int64) (model.Page, error) {
	if id <= 0 {
		return model.Page{}, newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	return s.pages.GetByID(ctx, id)
}

// AppendRevision records a new revision by caller on top of the page's
// current latest revision.
func (s *pageService) AppendRevision(ctx context.Context, pageID int64, caller model.Caller, in RevisionInput) (model.Revision, error) {
	start := time.Now()
	var ferrs []FieldError
	if pageID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "id", Message: "must be > 0"})
	}
	if caller.Name == "" {
		ferrs = append(ferrs, FieldError{Field: "user", Message: "caller must be identified"})
	}
	if utf8.RuneCountInString(in.Comment) > maxCommentLen {
		ferrs = append(ferrs, FieldError{Field: "comment", Message: "must be at most 500 characters"})
	}
	if in.Size < 0 {
		ferrs = append(ferrs, FieldError{Field: "size", Message: "must be >= 0"})
	}
	if !isValidSHA1(in.SHA1) {
		ferrs = append(ferrs, FieldError{Field: "sha1", Message: "must be up to 40 lowercase base-36 characters"})
	}
	tags := normalizeTags(in.Tags)
	if len(tags) > maxTags {
		ferrs = append(ferrs, FieldError{Field: "tags", Message: "at most 10 tags are allowed"})
	}
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Int64("page_id", pageID).Interface("field_errors", ferrs).Msg("revision validation failed")
		return model.Revision{}, err
	}

	contentModel := strings.TrimSpace(in.ContentModel)
	if contentModel == "" {
		contentModel = "wikitext"
	}

	var out model.Revision
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.pages.GetByID(ctx, pageID); err != nil {
			return err
		}
		created, err := s.writer.Append(ctx, model.Revision{
			PageID:       pageID,
			UserID:       caller.ID,
			UserText:     caller.Name,
			Comment:      in.Comment,
			Size:         in.Size,
			SHA1:         in.SHA1,
			Minor:        in.Minor,
			ContentModel: contentModel,
			Tags:         tags,
		})
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("page_id", pageID).Msg("append revision failed")
		return model.Revision{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Int64("page_id", pageID).Int64("rev_id", out.ID).Msg("revision appended")
	return out, nil
}
