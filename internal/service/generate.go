package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"content_pipeline/internal/domain"
	"content_pipeline/internal/events"
)

// GenerateService builds AI-assisted drafts from content plans. The
// enrichment chain is an ordered list of optional stages: each stage may
// contribute a summary or extra keywords, and each may fail without blocking
// the draft. Only a failure to persist the result is fatal.
type GenerateService struct {
	plans        PlanStore
	content      ContentStore
	summarizer   Summarizer
	keywords     KeywordExtractor
	events       EventPublisher
	logger       *slog.Logger
	keywordLimit int
}

func NewGenerateService(
	plans PlanStore,
	content ContentStore,
	summarizer Summarizer,
	keywords KeywordExtractor,
	eventPublisher EventPublisher,
	logger *slog.Logger,
	keywordLimit int,
) *GenerateService {
	return &GenerateService{
		plans:        plans,
		content:      content,
		summarizer:   summarizer,
		keywords:     keywords,
		events:       eventPublisher,
		logger:       logger.With("service", "generate"),
		keywordLimit: keywordLimit,
	}
}

// contribution is what a single enrichment stage adds to the draft. Either
// field may be empty.
type contribution struct {
	summary  string
	keywords []string
}

type enrichStage struct {
	name string
	run  func(ctx context.Context, baseText string) (contribution, error)
}

// GenerateDraft creates a draft content item for the plan, degrading
// stage-by-stage when enrichment providers are unavailable.
func (s *GenerateService) GenerateDraft(ctx context.Context, planID int64) (*domain.ContentItem, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan %d: %w", planID, err)
	}

	logger := s.logger.With("plan_id", plan.ID, "topic", plan.Topic)
	logger.Info("generating draft")

	baseText := buildBaseText(plan)

	var summary string
	var extracted []string

	for _, stage := range s.stages() {
		c, err := stage.run(ctx, baseText)
		if err != nil {
			logger.Warn("enrichment stage failed, continuing",
				"stage", stage.name,
				"error", err,
			)
			continue
		}
		if c.summary != "" {
			summary = c.summary
		}
		extracted = append(extracted, c.keywords...)
	}

	finalKeywords := mergeKeywords(plan.Keywords, extracted)

	item := &domain.ContentItem{
		TenantID: plan.TenantID,
		PlanID:   &plan.ID,
		Title:    draftTitle(plan),
		Body:     buildBody(baseText, summary, finalKeywords),
		Origin:   domain.OriginGenerated,
		Keywords: finalKeywords,
		Status:   domain.ContentDraft,
	}
	if summary != "" {
		item.Summary = &summary
	}

	if _, err := s.content.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("persist generated draft: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishContent(ctx, item, events.ActionGenerated); err != nil {
			logger.Error("publish generate event failed", "content_id", item.ID, "error", err)
		}
	}

	logger.Info("draft generated",
		"content_id", item.ID,
		"summarized", summary != "",
		"keywords", len(finalKeywords),
	)

	return item, nil
}

func (s *GenerateService) stages() []enrichStage {
	return []enrichStage{
		{
			name: "summarize",
			run: func(ctx context.Context, baseText string) (contribution, error) {
				if s.summarizer == nil {
					return contribution{}, fmt.Errorf("summarizer: %w", domain.ErrConfigurationMissing)
				}
				summary, err := s.summarizer.Summarize(ctx, baseText, "short")
				if err != nil {
					return contribution{}, err
				}
				return contribution{summary: summary}, nil
			},
		},
		{
			name: "keywords",
			run: func(ctx context.Context, baseText string) (contribution, error) {
				if s.keywords == nil {
					return contribution{}, fmt.Errorf("keyword extractor: %w", domain.ErrConfigurationMissing)
				}
				extracted, err := s.keywords.Extract(ctx, baseText, s.keywordLimit)
				if err != nil {
					return contribution{}, err
				}
				return contribution{keywords: extracted}, nil
			},
		},
	}
}

// GenerateIdeas returns templated content ideas for the given keywords,
// capped at five.
func (s *GenerateService) GenerateIdeas(keywords []string) []string {
	var ideas []string
	for _, keyword := range keywords {
		ideas = append(ideas,
			fmt.Sprintf("How to use %s effectively for your website", keyword),
			fmt.Sprintf("Top 5 benefits of %s", keyword),
			fmt.Sprintf("A beginner's guide to %s", keyword),
			fmt.Sprintf("%s: Common Mistakes to Avoid", keyword),
			fmt.Sprintf("The Future of %s", keyword),
		)
	}
	if len(ideas) > 5 {
		ideas = ideas[:5]
	}
	return ideas
}

func draftTitle(plan *domain.ContentPlan) string {
	if plan.Topic != "" {
		return plan.Topic
	}
	return "Generated Content"
}

func buildBaseText(plan *domain.ContentPlan) string {
	return fmt.Sprintf(
		"Introduction to %s. Key aspects include: %s. This content is targeted towards %s.",
		draftTitle(plan),
		strings.Join(plan.Keywords, ", "),
		plan.Audience,
	)
}

func buildBody(baseText, summary string, keywords []string) string {
	var b strings.Builder
	if summary != "" {
		b.WriteString("Summary: ")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	b.WriteString(baseText)
	b.WriteString("\n\nKeywords: [")
	b.WriteString(strings.Join(keywords, ", "))
	b.WriteString("]")
	b.WriteString("\n\n(Note: This content was auto-generated. Please review and expand.)")
	return b.String()
}

// mergeKeywords combines plan keywords with extracted ones, de-duplicating
// while keeping the plan's keywords first.
func mergeKeywords(planKeywords, extracted []string) []string {
	seen := make(map[string]struct{}, len(planKeywords)+len(extracted))
	merged := make([]string, 0, len(planKeywords)+len(extracted))

	for _, lists := range [][]string{planKeywords, extracted} {
		for _, kw := range lists {
			if kw == "" {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			merged = append(merged, kw)
		}
	}
	return merged
}
