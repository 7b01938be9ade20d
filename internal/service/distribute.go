package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"content_pipeline/internal/domain"
)

// DistributeService pushes content items out over channels. Every attempt is
// tracked as a DistributionTask; delivery failures land on the task as a
// terminal status with LastError, they are never raised to the caller. Only
// infrastructure failures (store, unknown channel) return an error.
type DistributeService struct {
	content   ContentStore
	tasks     TaskStore
	publisher Publisher
	poster    SocialPoster
	mailer    MailSender
	txManager TransactionManager
	events    EventPublisher
	logger    *slog.Logger

	// batchConcurrency > 1 fans batch sends out over a bounded worker
	// group; 1 keeps them sequential.
	batchConcurrency int
}

func NewDistributeService(
	content ContentStore,
	tasks TaskStore,
	publisher Publisher,
	poster SocialPoster,
	mailer MailSender,
	txManager TransactionManager,
	eventPublisher EventPublisher,
	logger *slog.Logger,
	batchConcurrency int,
) *DistributeService {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &DistributeService{
		content:          content,
		tasks:            tasks,
		publisher:        publisher,
		poster:           poster,
		mailer:           mailer,
		txManager:        txManager,
		events:           eventPublisher,
		logger:           logger.With("service", "distribute"),
		batchConcurrency: batchConcurrency,
	}
}

func (s *DistributeService) supports(channel domain.Channel) bool {
	switch channel {
	case domain.ChannelPublishTarget:
		return s.publisher != nil
	case domain.ChannelSocialPlatform:
		return s.poster != nil
	case domain.ChannelNewsletter:
		return s.mailer != nil
	}
	return false
}

// Distribute creates a task for the item on the given channel and, unless
// scheduledFor is set to a future instant, attempts delivery immediately.
// Target names the platform for publish_target and social_platform channels
// and the recipient for single-recipient newsletter sends.
func (s *DistributeService) Distribute(ctx context.Context, contentID int64, channel domain.Channel, target string, scheduledFor *time.Time) (*domain.DistributionTask, error) {
	if !s.supports(channel) {
		return nil, fmt.Errorf("channel %q: %w", channel, domain.ErrUnsupportedChannel)
	}

	item, err := s.content.GetByID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("load content %d: %w", contentID, err)
	}

	task := &domain.DistributionTask{
		ContentItemID: item.ID,
		Channel:       channel,
		Target:        target,
		Status:        domain.TaskDraft,
	}

	if scheduledFor != nil && scheduledFor.After(time.Now()) {
		task.Status = domain.TaskScheduled
		task.ScheduledFor = scheduledFor
	}

	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create distribution task: %w", err)
	}

	if task.Status == domain.TaskScheduled {
		s.logger.Info("distribution scheduled",
			"task_id", task.ID,
			"channel", channel,
			"scheduled_for", *scheduledFor,
		)
		return task, nil
	}

	if err := s.attempt(ctx, item, task); err != nil {
		return task, err
	}
	return task, nil
}

// DispatchScheduled delivers a task whose schedule has come due. Tasks in any
// other state are left alone.
func (s *DistributeService) DispatchScheduled(ctx context.Context, taskID int64) (*domain.DistributionTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", taskID, err)
	}
	if task.Status != domain.TaskScheduled {
		s.logger.Warn("skipping dispatch of non-scheduled task",
			"task_id", task.ID,
			"status", task.Status,
		)
		return task, nil
	}
	if !s.supports(task.Channel) {
		return nil, fmt.Errorf("channel %q: %w", task.Channel, domain.ErrUnsupportedChannel)
	}

	item, err := s.content.GetByID(ctx, task.ContentItemID)
	if err != nil {
		return nil, fmt.Errorf("load content %d: %w", task.ContentItemID, err)
	}

	if err := s.attempt(ctx, item, task); err != nil {
		return task, err
	}
	return task, nil
}

// attempt delivers over the task's channel and records the terminal outcome.
// The returned error is reserved for persistence failures.
func (s *DistributeService) attempt(ctx context.Context, item *domain.ContentItem, task *domain.DistributionTask) error {
	now := time.Now()
	task.AttemptedAt = &now

	var externalRef string
	var deliveryErr error

	switch task.Channel {
	case domain.ChannelPublishTarget:
		externalRef, deliveryErr = s.publisher.Publish(ctx, item, task.Target)
	case domain.ChannelSocialPlatform:
		externalRef, deliveryErr = s.poster.Post(ctx, item, task.Target)
	case domain.ChannelNewsletter:
		deliveryErr = s.sendSingle(ctx, item, task.Target)
	default:
		return fmt.Errorf("channel %q: %w", task.Channel, domain.ErrUnsupportedChannel)
	}

	if deliveryErr != nil {
		msg := deliveryErr.Error()
		task.Status = domain.TaskFailed
		task.LastError = &msg

		s.logger.Warn("distribution attempt failed",
			"task_id", task.ID,
			"channel", task.Channel,
			"error", deliveryErr,
		)

		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("record failed attempt: %w", err)
		}
		s.publishOutcome(ctx, item, task)
		return nil
	}

	task.Status = successStatus(task.Channel)
	if externalRef != "" {
		task.ExternalReference = &externalRef
	}

	if err := s.recordSuccess(ctx, item, task, now); err != nil {
		return err
	}

	s.logger.Info("distribution succeeded",
		"task_id", task.ID,
		"channel", task.Channel,
		"status", task.Status,
		"external_reference", externalRef,
	)

	s.publishOutcome(ctx, item, task)
	return nil
}

// recordSuccess persists the terminal task state. Publishing to the primary
// site also flips the content item itself to published, and the two writes
// must land together.
func (s *DistributeService) recordSuccess(ctx context.Context, item *domain.ContentItem, task *domain.DistributionTask, attemptedAt time.Time) error {
	if task.Channel != domain.ChannelPublishTarget {
		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("record successful attempt: %w", err)
		}
		return nil
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("record successful attempt: %w", err)
		}
		if err := s.content.MarkPublished(ctx, item.ID, attemptedAt); err != nil {
			return fmt.Errorf("mark content published: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	item.Status = domain.ContentPublished
	item.PublishedAt = &attemptedAt
	return nil
}

// sendSingle delivers a one-recipient newsletter send, validating the address
// the same way batch sends do.
func (s *DistributeService) sendSingle(ctx context.Context, item *domain.ContentItem, recipient string) error {
	if _, err := mail.ParseAddress(recipient); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	return s.mailer.Send(ctx, item.Title, newsletterBody(item), recipient)
}

// SendBatch delivers a content item to many recipients over the newsletter
// channel and records the aggregate outcome on a single task. Individual
// recipient failures are tallied; the task status follows the tally.
// Cancellation mid-batch stops further sends and the outcome covers only the
// attempted recipients.
func (s *DistributeService) SendBatch(ctx context.Context, contentID int64, channel domain.Channel, recipients []string) (*domain.DistributionTask, error) {
	if channel != domain.ChannelNewsletter || s.mailer == nil {
		return nil, fmt.Errorf("channel %q: %w", channel, domain.ErrUnsupportedChannel)
	}

	item, err := s.content.GetByID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("load content %d: %w", contentID, err)
	}

	now := time.Now()
	task := &domain.DistributionTask{
		ContentItemID: item.ID,
		Channel:       domain.ChannelNewsletter,
		Target:        fmt.Sprintf("batch:%d", len(recipients)),
		Status:        domain.TaskDraft,
		AttemptedAt:   &now,
	}
	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create distribution task: %w", err)
	}

	outcome := s.deliverBatch(ctx, item, recipients)

	task.Total = outcome.Total
	task.Succeeded = outcome.Succeeded
	task.Failed = outcome.Failed
	task.Status = outcome.Status()

	// A cancelled batch never counts as fully sent, even if everything
	// attempted so far went through.
	if ctx.Err() != nil && outcome.Total < len(recipients) {
		if outcome.Succeeded == 0 {
			task.Status = domain.TaskFailed
		} else {
			task.Status = domain.TaskPartialFailure
		}
		msg := ctx.Err().Error()
		task.LastError = &msg
	}

	if err := s.tasks.Update(context.WithoutCancel(ctx), task); err != nil {
		return task, fmt.Errorf("record batch outcome: %w", err)
	}

	s.logger.Info("batch send completed",
		"task_id", task.ID,
		"status", task.Status,
		"total", task.Total,
		"succeeded", task.Succeeded,
		"failed", task.Failed,
	)

	s.publishOutcome(context.WithoutCancel(ctx), item, task)
	return task, nil
}

func (s *DistributeService) deliverBatch(ctx context.Context, item *domain.ContentItem, recipients []string) domain.BatchOutcome {
	body := newsletterBody(item)

	if s.batchConcurrency <= 1 {
		var outcome domain.BatchOutcome
		for _, recipient := range recipients {
			if ctx.Err() != nil {
				break
			}
			outcome.Total++
			if err := s.sendOne(ctx, item.Title, body, recipient); err != nil {
				outcome.Failed++
			} else {
				outcome.Succeeded++
			}
		}
		return outcome
	}

	var mu sync.Mutex
	var outcome domain.BatchOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)

	for _, recipient := range recipients {
		recipient := recipient
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			mu.Lock()
			outcome.Total++
			mu.Unlock()

			err := s.sendOne(gctx, item.Title, body, recipient)

			mu.Lock()
			if err != nil {
				outcome.Failed++
			} else {
				outcome.Succeeded++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcome
}

func (s *DistributeService) sendOne(ctx context.Context, subject, body, recipient string) error {
	if _, err := mail.ParseAddress(recipient); err != nil {
		s.logger.Warn("skipping invalid recipient", "recipient", recipient)
		return fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	if err := s.mailer.Send(ctx, subject, body, recipient); err != nil {
		s.logger.Warn("newsletter send failed", "recipient", recipient, "error", err)
		return err
	}
	return nil
}

func (s *DistributeService) publishOutcome(ctx context.Context, item *domain.ContentItem, task *domain.DistributionTask) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishDistribution(ctx, item, task); err != nil {
		s.logger.Error("publish distribution event failed",
			"task_id", task.ID,
			"error", err,
		)
	}
}

func successStatus(channel domain.Channel) domain.TaskStatus {
	if channel == domain.ChannelSocialPlatform {
		return domain.TaskPosted
	}
	return domain.TaskSent
}

func newsletterBody(item *domain.ContentItem) string {
	if item.Summary != nil && *item.Summary != "" {
		return fmt.Sprintf("<h1>%s</h1><p>%s</p>", item.Title, *item.Summary)
	}
	return fmt.Sprintf("<h1>%s</h1><p>%s</p>", item.Title, item.Body)
}
