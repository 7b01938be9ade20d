package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"content_pipeline/internal/domain"
	"content_pipeline/internal/events"
	"content_pipeline/internal/service/mocks"
)

type GenerateServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	plans      *mocks.MockPlanStore
	content    *mocks.MockContentStore
	summarizer *mocks.MockSummarizer
	keywords   *mocks.MockKeywordExtractor
	evts       *mocks.MockEventPublisher

	service *GenerateService
	logger  *slog.Logger

	plan *domain.ContentPlan
}

func (s *GenerateServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.plans = mocks.NewMockPlanStore(s.ctrl)
	s.content = mocks.NewMockContentStore(s.ctrl)
	s.summarizer = mocks.NewMockSummarizer(s.ctrl)
	s.keywords = mocks.NewMockKeywordExtractor(s.ctrl)
	s.evts = mocks.NewMockEventPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewGenerateService(s.plans, s.content, s.summarizer, s.keywords, s.evts, s.logger, 10)

	s.plan = &domain.ContentPlan{
		ID:       3,
		TenantID: 42,
		Topic:    "Container Security",
		Keywords: []string{"docker", "kubernetes"},
		Audience: "platform engineers",
	}
}

func (s *GenerateServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestGenerateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GenerateServiceTestSuite))
}

func (s *GenerateServiceTestSuite) TestGenerateDraft_AllStagesSucceed() {
	ctx := context.Background()

	s.plans.EXPECT().GetByID(ctx, int64(3)).Return(s.plan, nil)
	s.summarizer.EXPECT().Summarize(ctx, gomock.Any(), "short").Return("A short summary.", nil)
	s.keywords.EXPECT().Extract(ctx, gomock.Any(), 10).Return([]string{"containers", "docker"}, nil)

	s.content.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, item *domain.ContentItem) (int64, error) {
			s.Equal(int64(42), item.TenantID)
			s.Equal(domain.ContentDraft, item.Status)
			s.Equal(domain.OriginGenerated, item.Origin)
			s.Equal("Container Security", item.Title)
			s.Equal([]string{"docker", "kubernetes", "containers"}, item.Keywords)
			s.Require().NotNil(item.Summary)
			s.Equal("A short summary.", *item.Summary)
			s.Contains(item.Body, "Summary: A short summary.")
			s.Contains(item.Body, "Introduction to Container Security.")
			s.Contains(item.Body, "targeted towards platform engineers")
			s.Contains(item.Body, "Keywords: [docker, kubernetes, containers]")
			item.ID = 200
			return 200, nil
		},
	)
	s.evts.EXPECT().PublishContent(ctx, gomock.Any(), events.ActionGenerated).Return(nil)

	item, err := s.service.GenerateDraft(ctx, 3)

	s.NoError(err)
	s.Equal(int64(200), item.ID)
}

func (s *GenerateServiceTestSuite) TestGenerateDraft_SummarizerFailureDegrades() {
	ctx := context.Background()

	s.plans.EXPECT().GetByID(ctx, int64(3)).Return(s.plan, nil)
	s.summarizer.EXPECT().Summarize(ctx, gomock.Any(), "short").Return("", errors.New("upstream 503"))
	s.keywords.EXPECT().Extract(ctx, gomock.Any(), 10).Return([]string{"containers"}, nil)

	s.content.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, item *domain.ContentItem) (int64, error) {
			s.Nil(item.Summary)
			s.NotContains(item.Body, "Summary:")
			s.Equal([]string{"docker", "kubernetes", "containers"}, item.Keywords)
			return 201, nil
		},
	)
	s.evts.EXPECT().PublishContent(ctx, gomock.Any(), events.ActionGenerated).Return(nil)

	item, err := s.service.GenerateDraft(ctx, 3)

	s.NoError(err)
	s.Equal(domain.ContentDraft, item.Status)
}

func (s *GenerateServiceTestSuite) TestGenerateDraft_AllStagesFailStillDrafts() {
	ctx := context.Background()

	s.plans.EXPECT().GetByID(ctx, int64(3)).Return(s.plan, nil)
	s.summarizer.EXPECT().Summarize(ctx, gomock.Any(), "short").Return("", errors.New("down"))
	s.keywords.EXPECT().Extract(ctx, gomock.Any(), 10).Return(nil, errors.New("down"))

	s.content.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, item *domain.ContentItem) (int64, error) {
			s.Equal([]string{"docker", "kubernetes"}, item.Keywords)
			s.Nil(item.Summary)
			return 202, nil
		},
	)
	s.evts.EXPECT().PublishContent(ctx, gomock.Any(), events.ActionGenerated).Return(nil)

	item, err := s.service.GenerateDraft(ctx, 3)

	s.NoError(err)
	s.Equal(domain.ContentDraft, item.Status)
}

func (s *GenerateServiceTestSuite) TestGenerateDraft_InsertFailureIsFatal() {
	ctx := context.Background()

	s.plans.EXPECT().GetByID(ctx, int64(3)).Return(s.plan, nil)
	s.summarizer.EXPECT().Summarize(ctx, gomock.Any(), "short").Return("summary", nil)
	s.keywords.EXPECT().Extract(ctx, gomock.Any(), 10).Return(nil, nil)

	s.content.EXPECT().Insert(ctx, gomock.Any()).Return(int64(0), errors.New("connection reset"))

	item, err := s.service.GenerateDraft(ctx, 3)

	s.Error(err)
	s.Nil(item)
	s.Contains(err.Error(), "persist generated draft")
}

func (s *GenerateServiceTestSuite) TestGenerateDraft_PlanNotFound() {
	ctx := context.Background()

	s.plans.EXPECT().GetByID(ctx, int64(99)).Return(nil, domain.ErrPlanNotFound)

	item, err := s.service.GenerateDraft(ctx, 99)

	s.Nil(item)
	s.ErrorIs(err, domain.ErrPlanNotFound)
}

func (s *GenerateServiceTestSuite) TestMergeKeywords_PlanFirstDeduplicated() {
	merged := mergeKeywords(
		[]string{"docker", "kubernetes"},
		[]string{"kubernetes", "containers", "", "docker", "helm"},
	)

	s.Equal([]string{"docker", "kubernetes", "containers", "helm"}, merged)
}

func (s *GenerateServiceTestSuite) TestGenerateIdeas_CappedAtFive() {
	ideas := s.service.GenerateIdeas([]string{"seo", "backlinks"})

	s.Len(ideas, 5)
	s.Equal("How to use seo effectively for your website", ideas[0])
}

func (s *GenerateServiceTestSuite) TestGenerateIdeas_Empty() {
	s.Empty(s.service.GenerateIdeas(nil))
}
