package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"content_pipeline/internal/domain"
	"content_pipeline/internal/service/mocks"
)

type DistributeServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	content   *mocks.MockContentStore
	tasks     *mocks.MockTaskStore
	publisher *mocks.MockPublisher
	poster    *mocks.MockSocialPoster
	mailer    *mocks.MockMailSender
	txManager *mocks.MockTransactionManager
	evts      *mocks.MockEventPublisher

	service *DistributeService
	logger  *slog.Logger

	item *domain.ContentItem
}

func (s *DistributeServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.content = mocks.NewMockContentStore(s.ctrl)
	s.tasks = mocks.NewMockTaskStore(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.poster = mocks.NewMockSocialPoster(s.ctrl)
	s.mailer = mocks.NewMockMailSender(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.evts = mocks.NewMockEventPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewDistributeService(
		s.content,
		s.tasks,
		s.publisher,
		s.poster,
		s.mailer,
		s.txManager,
		s.evts,
		s.logger,
		1,
	)

	s.item = &domain.ContentItem{
		ID:       10,
		TenantID: 42,
		Title:    "Release Notes",
		Body:     "Full body text",
		Status:   domain.ContentDraft,
	}
}

func (s *DistributeServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestDistributeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DistributeServiceTestSuite))
}

func (s *DistributeServiceTestSuite) expectTaskCreate() {
	s.tasks.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.DistributionTask) (int64, error) {
			task.ID = 500
			return 500, nil
		},
	)
}

func (s *DistributeServiceTestSuite) TestDistribute_UnsupportedChannel() {
	service := NewDistributeService(s.content, s.tasks, s.publisher, nil, nil, s.txManager, s.evts, s.logger, 1)

	task, err := service.Distribute(context.Background(), 10, domain.ChannelSocialPlatform, "twitter", nil)

	s.Nil(task)
	s.ErrorIs(err, domain.ErrUnsupportedChannel)
}

func (s *DistributeServiceTestSuite) TestDistribute_PublishSuccess() {
	ctx := context.Background()

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.publisher.EXPECT().Publish(ctx, s.item, "wordpress").Return("https://site.example.com/?p=77", nil)

	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.DistributionTask) error {
			s.Equal(domain.TaskSent, task.Status)
			s.Require().NotNil(task.ExternalReference)
			s.Equal("https://site.example.com/?p=77", *task.ExternalReference)
			return nil
		},
	)
	s.content.EXPECT().MarkPublished(gomock.Any(), int64(10), gomock.Any()).Return(nil)

	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.Distribute(ctx, 10, domain.ChannelPublishTarget, "wordpress", nil)

	s.NoError(err)
	s.Equal(domain.TaskSent, task.Status)
	s.Equal(domain.ContentPublished, s.item.Status)
	s.NotNil(s.item.PublishedAt)
}

func (s *DistributeServiceTestSuite) TestDistribute_SocialPostSuccess() {
	ctx := context.Background()

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.poster.EXPECT().Post(ctx, s.item, "twitter").Return("112233", nil)

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.DistributionTask) error {
			s.Equal(domain.TaskPosted, task.Status)
			s.Equal("112233", *task.ExternalReference)
			return nil
		},
	)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.Distribute(ctx, 10, domain.ChannelSocialPlatform, "twitter", nil)

	s.NoError(err)
	s.Equal(domain.TaskPosted, task.Status)
	s.Equal(domain.ContentDraft, s.item.Status)
}

func (s *DistributeServiceTestSuite) TestDistribute_DeliveryFailureLandsOnTask() {
	ctx := context.Background()

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.poster.EXPECT().Post(ctx, s.item, "twitter").Return("", errors.New("rate limited"))

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.DistributionTask) error {
			s.Equal(domain.TaskFailed, task.Status)
			s.Require().NotNil(task.LastError)
			s.Contains(*task.LastError, "rate limited")
			return nil
		},
	)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.Distribute(ctx, 10, domain.ChannelSocialPlatform, "twitter", nil)

	s.NoError(err)
	s.Equal(domain.TaskFailed, task.Status)
	s.NotNil(task.AttemptedAt)
}

func (s *DistributeServiceTestSuite) TestDistribute_ScheduledDefersDelivery() {
	ctx := context.Background()
	later := time.Now().Add(2 * time.Hour)

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	task, err := s.service.Distribute(ctx, 10, domain.ChannelPublishTarget, "wordpress", &later)

	s.NoError(err)
	s.Equal(domain.TaskScheduled, task.Status)
	s.Nil(task.AttemptedAt)
}

func (s *DistributeServiceTestSuite) TestDispatchScheduled_Delivers() {
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)

	scheduled := &domain.DistributionTask{
		ID:            500,
		ContentItemID: 10,
		Channel:       domain.ChannelSocialPlatform,
		Target:        "twitter",
		Status:        domain.TaskScheduled,
		ScheduledFor:  &past,
	}

	s.tasks.EXPECT().GetByID(ctx, int64(500)).Return(scheduled, nil)
	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)

	s.poster.EXPECT().Post(ctx, s.item, "twitter").Return("445566", nil)
	s.tasks.EXPECT().Update(gomock.Any(), scheduled).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, scheduled).Return(nil)

	task, err := s.service.DispatchScheduled(ctx, 500)

	s.NoError(err)
	s.Equal(domain.TaskPosted, task.Status)
}

func (s *DistributeServiceTestSuite) TestDispatchScheduled_IgnoresTerminalTask() {
	ctx := context.Background()

	done := &domain.DistributionTask{
		ID:      500,
		Channel: domain.ChannelSocialPlatform,
		Status:  domain.TaskPosted,
	}

	s.tasks.EXPECT().GetByID(ctx, int64(500)).Return(done, nil)

	task, err := s.service.DispatchScheduled(ctx, 500)

	s.NoError(err)
	s.Equal(domain.TaskPosted, task.Status)
}

func (s *DistributeServiceTestSuite) TestSendBatch_AllSucceed() {
	ctx := context.Background()
	recipients := []string{"a@example.com", "b@example.com"}

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "a@example.com").Return(nil)
	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "b@example.com").Return(nil)

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.SendBatch(ctx, 10, domain.ChannelNewsletter, recipients)

	s.NoError(err)
	s.Equal(domain.TaskSent, task.Status)
	s.Equal(2, task.Total)
	s.Equal(2, task.Succeeded)
	s.Equal(0, task.Failed)
}

func (s *DistributeServiceTestSuite) TestSendBatch_InvalidRecipientPartialFailure() {
	ctx := context.Background()
	recipients := []string{"a@example.com", "not-an-email", "b@example.com"}

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "a@example.com").Return(nil)
	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "b@example.com").Return(nil)

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.SendBatch(ctx, 10, domain.ChannelNewsletter, recipients)

	s.NoError(err)
	s.Equal(domain.TaskPartialFailure, task.Status)
	s.Equal(3, task.Total)
	s.Equal(2, task.Succeeded)
	s.Equal(1, task.Failed)
}

func (s *DistributeServiceTestSuite) TestSendBatch_InvalidAndTransportFailures() {
	ctx := context.Background()
	recipients := []string{"a@x.com", "not-an-email", "b@x.com"}

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "a@x.com").Return(nil)
	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "b@x.com").Return(errors.New("550 mailbox unavailable"))

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.SendBatch(ctx, 10, domain.ChannelNewsletter, recipients)

	s.NoError(err)
	s.Equal(domain.TaskPartialFailure, task.Status)
	s.Equal(1, task.Succeeded)
	s.Equal(2, task.Failed)
}

func (s *DistributeServiceTestSuite) TestSendBatch_UnsupportedChannel() {
	task, err := s.service.SendBatch(context.Background(), 10, domain.ChannelSocialPlatform, []string{"a@x.com"})

	s.Nil(task)
	s.ErrorIs(err, domain.ErrUnsupportedChannel)
}

func (s *DistributeServiceTestSuite) TestSendBatch_AllFail() {
	ctx := context.Background()
	recipients := []string{"a@example.com", "b@example.com"}

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), gomock.Any()).
		Return(errors.New("smtp unavailable")).Times(2)

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.SendBatch(ctx, 10, domain.ChannelNewsletter, recipients)

	s.NoError(err)
	s.Equal(domain.TaskFailed, task.Status)
	s.Equal(2, task.Failed)
}

func (s *DistributeServiceTestSuite) TestSendBatch_EmptyListIsVacuouslySent() {
	ctx := context.Background()

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.SendBatch(ctx, 10, domain.ChannelNewsletter, nil)

	s.NoError(err)
	s.Equal(domain.TaskSent, task.Status)
	s.Equal(0, task.Total)
}

func (s *DistributeServiceTestSuite) TestSendBatch_CancellationNeverCountsAsSent() {
	ctx, cancel := context.WithCancel(context.Background())
	recipients := []string{"a@example.com", "b@example.com", "c@example.com"}

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	// First send succeeds, then the batch is cancelled before the rest run.
	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), "a@example.com").DoAndReturn(
		func(context.Context, string, string, string) error {
			cancel()
			return nil
		},
	)

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := s.service.SendBatch(ctx, 10, domain.ChannelNewsletter, recipients)

	s.NoError(err)
	s.Equal(domain.TaskPartialFailure, task.Status)
	s.Equal(1, task.Total)
	s.Equal(1, task.Succeeded)
	s.Require().NotNil(task.LastError)
	s.Contains(*task.LastError, "context canceled")
}

func (s *DistributeServiceTestSuite) TestSendBatch_ConcurrentDelivery() {
	ctx := context.Background()
	recipients := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}

	service := NewDistributeService(s.content, s.tasks, s.publisher, s.poster, s.mailer, s.txManager, s.evts, s.logger, 3)

	s.content.EXPECT().GetByID(ctx, int64(10)).Return(s.item, nil)
	s.expectTaskCreate()

	s.mailer.EXPECT().Send(gomock.Any(), "Release Notes", gomock.Any(), gomock.Any()).Return(nil).Times(4)

	s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.evts.EXPECT().PublishDistribution(gomock.Any(), s.item, gomock.Any()).Return(nil)

	task, err := service.SendBatch(ctx, 10, domain.ChannelNewsletter, recipients)

	s.NoError(err)
	s.Equal(domain.TaskSent, task.Status)
	s.Equal(4, task.Total)
	s.Equal(4, task.Succeeded)
}
