// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sethvargo/go-retry"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

// DefaultMaxAttempts bounds how often a write is re-evaluated after losing an
// optimistic-concurrency race.
const DefaultMaxAttempts = 5

// Transition outcomes reported to the Observer.
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeInvalid   = "invalid"
	OutcomeForbidden = "forbidden"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
)

// errStale marks a conditional write that matched no row because the version moved.
var errStale = errors.New("article version changed")

// errSlugTaken marks a write rejected by the unique slug index.
var errSlugTaken = errors.New("slug taken")

// Observer receives workflow measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveTransition(from, to model.Status, outcome string)
	ObserveConflict()
	ObserveSlugCollision()
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(model.Status, model.Status, string) {}
func (nopObserver) ObserveConflict()                                    {}
func (nopObserver) ObserveSlugCollision()                               {}

// Auditor persists an audit trail of article changes.
type Auditor interface {
	LogArticleEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error
}

// CountListener is told which categories had their article count changed by a
// committed write.
type CountListener func(ctx context.Context, categoryIDs []string)

// TransitionListener is told about every committed status change. It runs
// after the transaction and must not block.
type TransitionListener func(ctx context.Context, a model.Article, from model.Status, actorID string)

// Engine applies every article write: creation, edits, deletion and status
// transitions. Each write runs in one transaction that also moves category
// counters and appends status history.
type Engine struct {
	db          *sql.DB
	queries     *store.Queries
	policy      *bluemonday.Policy
	observer    Observer
	auditor     Auditor
	onCounts    CountListener
	onChange    TransitionListener
	maxAttempts uint64
	retryBase   time.Duration
	now         func() time.Time

	// slugFor picks the candidate slug for a write attempt. Replaced in tests.
	slugFor func(ctx context.Context, base, excludeID string) (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithAuditor sets the audit event sink.
func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

// WithCountListener registers a callback for category count changes.
func WithCountListener(fn CountListener) Option {
	return func(e *Engine) { e.onCounts = fn }
}

// WithTransitionListener registers a callback for committed status changes.
func WithTransitionListener(fn TransitionListener) Option {
	return func(e *Engine) { e.onChange = fn }
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = uint64(n)
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine on db.
func NewEngine(db *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		queries:     store.New(db),
		policy:      bluemonday.UGCPolicy(),
		observer:    nopObserver{},
		maxAttempts: DefaultMaxAttempts,
		retryBase:   5 * time.Millisecond,
		now:         time.Now,
	}
	e.slugFor = e.freeSlug
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Get loads an article by ID.
func (e *Engine) Get(ctx context.Context, id string) (model.Article, error) {
	a, err := e.queries.GetArticleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, ErrArticleNotFound
		}
		return a, fmt.Errorf("loading article: %w", err)
	}
	return a, nil
}

// RequestTransition moves an article to target on behalf of actor.
//
// Requesting the current status is a successful no-op. Otherwise the graph
// edge and the actor's authority are checked, and the status, publish stamp,
// category counter and history row are written together. If another writer
// changes the article first, the request is re-evaluated against the fresh row.
func (e *Engine) RequestTransition(ctx context.Context, actor model.Actor, articleID string, target model.Status, note string) (model.Article, error) {
	if !target.Valid() {
		return model.Article{}, ValidationError(map[string]string{"status": "must be a valid status"})
	}

	var (
		result model.Article
		from   model.Status
	)
	err := e.retrying(ctx, func(ctx context.Context) error {
		cur, err := e.Get(ctx, articleID)
		if err != nil {
			return err
		}
		from = cur.Status

		if cur.Status == target {
			result = cur
			return nil
		}
		if err := CheckTransition(cur.Status, target, actor.Role); err != nil {
			return err
		}

		next := cur
		next.Status = target
		e.stampPublished(&next)

		result, err = e.commit(ctx, cur, next, actor, note)
		return err
	})

	outcome := transitionOutcome(err)
	if err == nil && from == target {
		outcome = OutcomeNoop
	}
	e.observer.ObserveTransition(from, target, outcome)
	if err != nil {
		return model.Article{}, err
	}

	if outcome == OutcomeApplied {
		slog.Info("article status changed",
			"article_id", result.ID, "from", from, "to", target, "actor", actor.ID)
		e.audit(ctx, model.EventLevelInfo, "Article status changed", actor.ID, map[string]any{
			"article_id": result.ID, "from": from, "to": target, "note": note,
		})
		e.statusChanged(ctx, result, from, actor.ID)
	}
	return result, nil
}

// ArticleInput holds the caller-supplied fields of a new article.
type ArticleInput struct {
	Title         string
	Content       string
	Summary       []string
	Tags          []string
	SEO           model.SEO
	CategoryID    string
	FeaturedImage string
	PDFURL        string
	// Status defaults to DRAFT. Anything else is checked as a transition out of DRAFT.
	Status model.Status
}

// CreateArticle inserts a new article authored by actor.
func (e *Engine) CreateArticle(ctx context.Context, actor model.Actor, in ArticleInput) (model.Article, error) {
	if !actor.Role.Valid() {
		return model.Article{}, ErrForbidden
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		return model.Article{}, ValidationError(map[string]string{"status": "must be a valid status"})
	}
	if status != model.StatusDraft {
		if err := CheckTransition(model.StatusDraft, status, actor.Role); err != nil {
			return model.Article{}, err
		}
	}

	now := e.now().UTC()
	a := model.Article{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(in.Title),
		Content:       e.policy.Sanitize(in.Content),
		Summary:       model.CleanStrings(in.Summary),
		Tags:          model.NormalizeTags(in.Tags),
		SEO:           cleanSEO(in.SEO),
		Status:        status,
		AuthorID:      actor.ID,
		CategoryID:    in.CategoryID,
		FeaturedImage: strings.TrimSpace(in.FeaturedImage),
		PDFURL:        strings.TrimSpace(in.PDFURL),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e.stampPublished(&a)

	if err := validateArticle(a); err != nil {
		return model.Article{}, err
	}
	if err := e.requireCategory(ctx, a.CategoryID); err != nil {
		return model.Article{}, err
	}

	var created model.Article
	err := e.retrying(ctx, func(ctx context.Context) error {
		var err error
		created, err = e.withSlug(ctx, a.Title, "", func(slug string) (model.Article, error) {
			a.Slug = slug
			return e.insert(ctx, a, actor)
		})
		return err
	})
	if err != nil {
		return model.Article{}, err
	}

	e.audit(ctx, model.EventLevelInfo, "Article created", actor.ID, map[string]any{
		"article_id": created.ID, "slug": created.Slug, "status": created.Status,
	})
	if created.Status != model.StatusDraft {
		e.statusChanged(ctx, created, model.StatusDraft, actor.ID)
	}
	return created, nil
}

// ArticlePatch is a partial update. Nil fields are left unchanged.
type ArticlePatch struct {
	Title         *string
	Content       *string
	Summary       *[]string
	Tags          *[]string
	SEO           *model.SEO
	CategoryID    *string
	FeaturedImage *string
	PDFURL        *string
	Status        *model.Status
	Note          string
}

// editsContent reports whether the patch touches anything besides status.
func (p ArticlePatch) editsContent() bool {
	return p.Title != nil || p.Content != nil || p.Summary != nil || p.Tags != nil || p.SEO != nil ||
		p.CategoryID != nil || p.FeaturedImage != nil || p.PDFURL != nil
}

// Empty reports whether the patch changes nothing.
func (p ArticlePatch) Empty() bool {
	return !p.editsContent() && p.Status == nil
}

// UpdateArticle applies a partial update.
//
// Content edits need general mutation rights (author, EDITOR or ADMIN). A
// status field is checked exactly like RequestTransition. A new title
// regenerates the slug; a new category moves the published count with it.
func (e *Engine) UpdateArticle(ctx context.Context, actor model.Actor, id string, patch ArticlePatch) (model.Article, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return model.Article{}, ValidationError(map[string]string{"status": "must be a valid status"})
	}
	if patch.CategoryID != nil {
		if err := e.requireCategory(ctx, *patch.CategoryID); err != nil {
			return model.Article{}, err
		}
	}

	var (
		result  model.Article
		from    model.Status
		changed bool
	)
	err := e.retrying(ctx, func(ctx context.Context) error {
		cur, err := e.Get(ctx, id)
		if err != nil {
			return err
		}
		from = cur.Status

		if patch.editsContent() && !CanMutate(actor, cur.AuthorID) {
			return ErrForbidden
		}

		next := cur
		e.applyPatch(&next, patch)
		if next.Status != cur.Status {
			if err := CheckTransition(cur.Status, next.Status, actor.Role); err != nil {
				return err
			}
			e.stampPublished(&next)
		}
		if err := validateArticle(next); err != nil {
			return err
		}

		changed = !sameArticle(cur, next)
		if !changed {
			result = cur
			return nil
		}

		if next.Title == cur.Title {
			result, err = e.commit(ctx, cur, next, actor, patch.Note)
			return err
		}
		result, err = e.withSlug(ctx, next.Title, cur.ID, func(slug string) (model.Article, error) {
			next.Slug = slug
			return e.commit(ctx, cur, next, actor, patch.Note)
		})
		return err
	})

	if patch.Status != nil {
		outcome := transitionOutcome(err)
		if err == nil && from == *patch.Status {
			outcome = OutcomeNoop
		}
		e.observer.ObserveTransition(from, *patch.Status, outcome)
	}
	if err != nil {
		return model.Article{}, err
	}

	if changed {
		meta := map[string]any{"article_id": result.ID}
		if result.Status != from {
			meta["from"] = from
			meta["to"] = result.Status
		}
		e.audit(ctx, model.EventLevelInfo, "Article updated", actor.ID, meta)
		if result.Status != from {
			e.statusChanged(ctx, result, from, actor.ID)
		}
	}
	return result, nil
}

// DeleteArticle removes an article. A published article gives back its slot
// in the category count.
func (e *Engine) DeleteArticle(ctx context.Context, actor model.Actor, id string) error {
	var deleted model.Article
	err := e.retrying(ctx, func(ctx context.Context) error {
		cur, err := e.Get(ctx, id)
		if err != nil {
			return err
		}
		if !CanMutate(actor, cur.AuthorID) {
			return ErrForbidden
		}
		deleted = cur
		return e.remove(ctx, cur)
	})
	if err != nil {
		return err
	}

	e.audit(ctx, model.EventLevelInfo, "Article deleted", actor.ID, map[string]any{
		"article_id": deleted.ID, "slug": deleted.Slug, "status": deleted.Status,
	})
	return nil
}

// RecordView increments the view count of the published article at slug.
func (e *Engine) RecordView(ctx context.Context, slug string) error {
	n, err := e.queries.IncrementViewCount(ctx, slug)
	if err != nil {
		return fmt.Errorf("recording view: %w", err)
	}
	if n == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// stampPublished sets publishedAt the first time an article is published.
func (e *Engine) stampPublished(a *model.Article) {
	if a.Status == model.StatusPublished && a.PublishedAt == nil {
		t := e.now().UTC()
		a.PublishedAt = &t
	}
}

func (e *Engine) applyPatch(a *model.Article, p ArticlePatch) {
	if p.Title != nil {
		a.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		a.Content = e.policy.Sanitize(*p.Content)
	}
	if p.Summary != nil {
		a.Summary = model.CleanStrings(*p.Summary)
	}
	if p.Tags != nil {
		a.Tags = model.NormalizeTags(*p.Tags)
	}
	if p.SEO != nil {
		a.SEO = cleanSEO(*p.SEO)
	}
	if p.CategoryID != nil {
		a.CategoryID = *p.CategoryID
	}
	if p.FeaturedImage != nil {
		a.FeaturedImage = strings.TrimSpace(*p.FeaturedImage)
	}
	if p.PDFURL != nil {
		a.PDFURL = strings.TrimSpace(*p.PDFURL)
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

func (e *Engine) requireCategory(ctx context.Context, id string) error {
	if id == "" {
		return ValidationError(map[string]string{"categoryId": "cannot be blank"})
	}
	if _, err := e.queries.GetCategoryByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("loading category: %w", err)
	}
	return nil
}

// retrying runs fn until it succeeds, fails for a non-concurrency reason, or
// maxAttempts is used up.
func (e *Engine) retrying(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(e.maxAttempts-1,
		retry.WithJitter(e.retryBase, retry.NewExponential(e.retryBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, errStale) || store.IsBusy(err) {
			e.observer.ObserveConflict()
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, errStale) || store.IsBusy(err) {
		return ErrConcurrentModification
	}
	return err
}

// withSlug derives the slug for title and runs write with it, moving on to
// the next free candidate each time the unique index rejects the write.
func (e *Engine) withSlug(ctx context.Context, title, excludeID string, write func(slug string) (model.Article, error)) (model.Article, error) {
	base := Slugify(title)
	for attempt := 0; attempt < MaxSlugAttempts; attempt++ {
		slug, err := e.slugFor(ctx, base, excludeID)
		if err != nil {
			return model.Article{}, err
		}
		a, err := write(slug)
		if !errors.Is(err, errSlugTaken) {
			return a, err
		}
		e.observer.ObserveSlugCollision()
		slog.Debug("slug collision, retrying", "slug", slug, "attempt", attempt+1)
	}
	return model.Article{}, ErrSlugExhausted
}

// freeSlug returns the first candidate of base that no other article holds.
func (e *Engine) freeSlug(ctx context.Context, base, excludeID string) (string, error) {
	taken, err := e.queries.ListSlugsWithBase(ctx, base, excludeID)
	if err != nil {
		return "", fmt.Errorf("checking slug: %w", err)
	}
	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	for n := 0; ; n++ {
		c := SlugCandidate(base, n)
		if _, ok := used[c]; !ok {
			return c, nil
		}
	}
}

func (e *Engine) insert(ctx context.Context, a model.Article, actor model.Actor) (model.Article, error) {
	deltas := CounterDeltas(model.Article{}, a)
	var created model.Article
	err := e.inTx(ctx, func(q *store.Queries) error {
		var err error
		created, err = q.CreateArticle(ctx, a)
		if err != nil {
			return classifyWriteErr(err)
		}
		if err := applyDeltas(ctx, q, deltas); err != nil {
			return err
		}
		if a.Status != model.StatusDraft {
			return e.recordChange(ctx, q, a.ID, model.StatusDraft, a.Status, actor.ID, "")
		}
		return nil
	})
	if err != nil {
		return model.Article{}, err
	}
	e.countsChanged(ctx, deltas)
	return created, nil
}

// commit writes next over prev, conditional on prev's version.
func (e *Engine) commit(ctx context.Context, prev, next model.Article, actor model.Actor, note string) (model.Article, error) {
	next.UpdatedAt = e.now().UTC()
	deltas := CounterDeltas(prev, next)

	err := e.inTx(ctx, func(q *store.Queries) error {
		n, err := q.UpdateArticleVersioned(ctx, next, prev.Version)
		if err != nil {
			return classifyWriteErr(err)
		}
		if n == 0 {
			return errStale
		}
		if err := applyDeltas(ctx, q, deltas); err != nil {
			return err
		}
		if prev.Status != next.Status {
			return e.recordChange(ctx, q, next.ID, prev.Status, next.Status, actor.ID, note)
		}
		return nil
	})
	if err != nil {
		return model.Article{}, err
	}

	next.Version = prev.Version + 1
	e.countsChanged(ctx, deltas)
	return next, nil
}

func (e *Engine) remove(ctx context.Context, a model.Article) error {
	deltas := CounterDeltas(a, model.Article{})
	err := e.inTx(ctx, func(q *store.Queries) error {
		n, err := q.DeleteArticleVersioned(ctx, a.ID, a.Version)
		if err != nil {
			return classifyWriteErr(err)
		}
		if n == 0 {
			return errStale
		}
		return applyDeltas(ctx, q, deltas)
	})
	if err != nil {
		return err
	}
	e.countsChanged(ctx, deltas)
	return nil
}

func (e *Engine) recordChange(ctx context.Context, q *store.Queries, articleID string, from, to model.Status, by, note string) error {
	_, err := q.CreateStatusChange(ctx, model.StatusChange{
		ArticleID: articleID,
		From:      from,
		To:        to,
		ChangedBy: by,
		Note:      strings.TrimSpace(note),
		ChangedAt: e.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("recording status change: %w", err)
	}
	return nil
}

func (e *Engine) inTx(ctx context.Context, fn func(q *store.Queries) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(e.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (e *Engine) countsChanged(ctx context.Context, deltas []Delta) {
	if e.onCounts == nil || len(deltas) == 0 {
		return
	}
	ids := make([]string, len(deltas))
	for i, d := range deltas {
		ids[i] = d.CategoryID
	}
	e.onCounts(ctx, ids)
}

func (e *Engine) statusChanged(ctx context.Context, a model.Article, from model.Status, actorID string) {
	if e.onChange != nil {
		e.onChange(ctx, a, from, actorID)
	}
}

func (e *Engine) audit(ctx context.Context, level, message, userID string, meta map[string]any) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.LogArticleEvent(ctx, level, message, userID, meta); err != nil {
		slog.Error("failed to write audit event", "error", err, "message", message)
	}
}

// classifyWriteErr maps constraint failures from an article write.
func classifyWriteErr(err error) error {
	switch {
	case store.IsUniqueViolation(err) && strings.Contains(err.Error(), "articles.slug"):
		return errSlugTaken
	case store.IsForeignKeyViolation(err):
		return ErrCategoryNotFound
	default:
		return err
	}
}

func transitionOutcome(err error) string {
	switch CodeOf(err) {
	case "":
		if err != nil {
			return OutcomeError
		}
		return OutcomeApplied
	case CodeInvalidTransition:
		return OutcomeInvalid
	case CodeForbidden:
		return OutcomeForbidden
	case CodeConcurrentModification:
		return OutcomeConflict
	default:
		return OutcomeError
	}
}

func cleanSEO(s model.SEO) model.SEO {
	return model.SEO{
		Title:           strings.TrimSpace(s.Title),
		MetaDescription: strings.TrimSpace(s.MetaDescription),
		Keywords:        model.NormalizeTags(s.Keywords),
	}
}

// sameArticle compares the writable fields of two articles.
func sameArticle(a, b model.Article) bool {
	return a.Title == b.Title && a.Content == b.Content && a.Status == b.Status &&
		a.CategoryID == b.CategoryID && a.FeaturedImage == b.FeaturedImage && a.PDFURL == b.PDFURL &&
		a.SEO.Title == b.SEO.Title && a.SEO.MetaDescription == b.SEO.MetaDescription &&
		slices.Equal(a.SEO.Keywords, b.SEO.Keywords) &&
		slices.Equal(a.Summary, b.Summary) && slices.Equal(a.Tags, b.Tags)
}
