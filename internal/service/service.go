// Package service owns the offer finder session: the catalog, the selected
// cards, the usage ledger and the best-offer carousel. Every mutation goes
// through a Service method.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"

	"card-offer-finder/internal/aggregator"
	"card-offer-finder/internal/carousel"
	"card-offer-finder/internal/catalog"
	"card-offer-finder/internal/events"
	"card-offer-finder/internal/features"
	"card-offer-finder/internal/kvstore"
	"card-offer-finder/internal/ledger"
	"card-offer-finder/internal/metrics"
	"card-offer-finder/internal/models"
	"card-offer-finder/internal/selection"
	"card-offer-finder/internal/tracing"
	"card-offer-finder/internal/validation"
)

var (
	// ErrCardNotFound is returned when a card id is not in the catalog.
	ErrCardNotFound = errors.New("card not found")
	// ErrOfferNotFound is returned when a card has no offer for a source.
	ErrOfferNotFound = errors.New("card has no offer for source")
)

// DefaultViewCacheSize bounds the aggregation cache.
const DefaultViewCacheSize = 64

// Options configures a Service.
type Options struct {
	// BaseURL is the offers page URL share links are built on.
	BaseURL          string
	CarouselInterval time.Duration
	ViewCacheSize    int
	Features         *features.Manager
	Events           *events.Manager
	Tracer           *tracing.Tracer
	Logger           *slog.Logger
	// Now is the clock used when a caller does not pass a reference time.
	Now func() time.Time
}

// aggregation is the cached, selection-dependent part of an offers view.
type aggregation struct {
	ranked []models.AnnotatedOffer
	best   []models.SourceBest
}

// Service is the session context of the offer finder.
type Service struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	selection *selection.Store
	ledger    *ledger.Ledger
	carousel  *carousel.Carousel
	views     *lru.Cache[string, aggregation]

	// slides backs the carousel; slidesKey is the selection they were built for.
	slides    []models.SourceBest
	slidesKey string

	features *features.Manager
	events   *events.Manager
	tracer   *tracing.Tracer
	logger   *slog.Logger
	baseURL  string
	now      func() time.Time
}

// NewService creates a session over catalog c with state persisted in kv.
func NewService(c *catalog.Catalog, kv kvstore.Store, opts Options) (*Service, error) {
	size := opts.ViewCacheSize
	if size <= 0 {
		size = DefaultViewCacheSize
	}
	views, err := lru.New[string, aggregation](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create view cache: %w", err)
	}

	s := &Service{
		catalog:   c,
		selection: selection.New(c, kv),
		ledger:    ledger.New(kv),
		carousel:  carousel.New(opts.CarouselInterval),
		views:     views,
		features:  opts.Features,
		events:    opts.Events,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
		baseURL:   opts.BaseURL,
		now:       opts.Now,
	}
	if s.features == nil {
		s.features = features.NewManager().Defaults()
	}
	if s.events == nil {
		s.events = events.NewManager(false)
	}
	if s.tracer == nil {
		s.tracer = tracing.GetTracer()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.carousel.OnAdvance(s.carouselAdvanced)
	metrics.CatalogCards.Set(float64(c.Len()))

	return s, nil
}

// Start loads the usage ledger and restores the selection, preferring linkIDs
// over the saved snapshot. Corrupt persisted state is logged and replaced by
// an empty state.
func (s *Service) Start(ctx context.Context, linkIDs []string) (selection.Origin, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.Start")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Load(ctx); err != nil {
		if !errors.Is(err, ledger.ErrCorruptLedger) {
			return selection.OriginNone, fmt.Errorf("failed to load usage ledger: %w", err)
		}
		s.logger.WarnContext(ctx, "discarding corrupt usage data", slog.Any("error", err))
	}

	origin, err := s.restoreLocked(ctx, linkIDs)
	if err != nil {
		return origin, err
	}
	span.SetAttributes(attribute.String("selection.origin", string(origin)))
	return origin, nil
}

// Restore replaces the selection from a share link, or reloads the saved
// snapshot when linkIDs is empty.
func (s *Service) Restore(ctx context.Context, linkIDs []string) (models.SelectionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.restoreLocked(ctx, linkIDs); err != nil {
		return s.selectionLocked(), err
	}
	return s.selectionLocked(), nil
}

func (s *Service) restoreLocked(ctx context.Context, linkIDs []string) (selection.Origin, error) {
	origin, err := s.selection.Restore(ctx, linkIDs)
	switch {
	case errors.Is(err, selection.ErrCorruptSnapshot):
		s.logger.WarnContext(ctx, "discarding corrupt selection snapshot", slog.Any("error", err))
	case err != nil:
		s.persistFailed(ctx, selection.StorageKey, err)
		return origin, err
	}

	s.selectionChangedLocked(ctx, "restore")
	s.logger.InfoContext(ctx, "selection restored",
		slog.String("origin", string(origin)),
		slog.Int("cards", s.selection.Len()))
	return origin, nil
}

// Selection returns the selected card ids and their share link.
func (s *Service) Selection() models.SelectionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

// Toggle selects cardID when it is not selected and deselects it otherwise.
func (s *Service) Toggle(ctx context.Context, cardID string) (models.SelectionResponse, error) {
	if err := validation.ValidateCardID(cardID, "card_id"); err != nil {
		return models.SelectionResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.catalog.Has(cardID) {
		return s.selectionLocked(), ErrCardNotFound
	}

	selected, err := s.selection.Toggle(ctx, cardID)
	s.selectionChangedLocked(ctx, "toggle")
	if err != nil {
		s.persistFailed(ctx, selection.StorageKey, err)
		return s.selectionLocked(), err
	}

	s.logger.DebugContext(ctx, "card toggled",
		slog.String("card_id", cardID),
		slog.Bool("selected", selected))
	return s.selectionLocked(), nil
}

// Clear deselects every card.
func (s *Service) Clear(ctx context.Context) (models.SelectionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.selection.Clear(ctx)
	s.selectionChangedLocked(ctx, "clear")
	if err != nil {
		s.persistFailed(ctx, selection.StorageKey, err)
		return s.selectionLocked(), err
	}
	return s.selectionLocked(), nil
}

// BankGroups lists catalog cards by bank, filtered by query.
func (s *Service) BankGroups(query string) []models.BankGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.BankGroups(validation.SanitizeString(query), s.selection.Has)
}

// Offers builds the offers screen for the current selection, annotating each
// offer with its usage status at ref. It (re)starts the carousel when the
// best-per-source slides changed since the last view or it was stopped.
func (s *Service) Offers(ctx context.Context, ref time.Time) models.OffersView {
	ctx, span := s.tracer.StartSpan(ctx, "service.Offers")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ref.IsZero() {
		ref = s.now()
	}

	selected := s.selection.IDs()
	key := selectionKey(selected)
	agg := s.aggregateLocked(ctx, key, selected)
	span.SetAttributes(
		attribute.Int("selection.size", len(selected)),
		attribute.Int("offers.count", len(agg.ranked)),
	)

	offers := make([]models.OfferView, 0, len(agg.ranked))
	for i, o := range agg.ranked {
		offers = append(offers, models.OfferView{
			AnnotatedOffer: o,
			Rank:           i + 1,
			DiscountText:   aggregator.DiscountText(o.DiscountOffer),
			DetailText:     aggregator.DetailText(o.DiscountOffer),
			LimitText:      aggregator.LimitText(o.DiscountOffer),
			ApplicableText: aggregator.ApplicableText(o.DiscountOffer),
			CardLabel:      aggregator.CardLabel(o),
			Usage:          s.ledger.StatusOf(o.CardKey, o.Source, o.UsageLimit, ref),
		})
	}

	if s.features.IsEnabled(features.FeatureCarousel) {
		snap := s.carousel.Snapshot()
		if key != s.slidesKey || snap.State == carousel.StateIdle {
			s.slides = agg.best
			s.slidesKey = key
			s.carousel.Start(len(agg.best))
		}
	}

	return models.OffersView{
		Selected:  selected,
		Offers:    offers,
		Best:      bestViews(agg.best),
		ShareLink: s.shareLinkLocked(selected),
		Carousel:  s.carouselViewLocked(),
	}
}

// Best returns the best offer per source for the current selection.
func (s *Service) Best(ctx context.Context) []models.BestView {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := s.selection.IDs()
	return bestViews(s.aggregateLocked(ctx, selectionKey(selected), selected).best)
}

func (s *Service) aggregateLocked(ctx context.Context, key string, selected []string) aggregation {
	cache := s.features.IsEnabled(features.FeatureViewCache)
	if cache {
		if agg, ok := s.views.Get(key); ok {
			metrics.AggregationsTotal.WithLabelValues("hit").Inc()
			return agg
		}
	}

	_, span := s.tracer.StartSpan(ctx, "aggregator.Aggregate")
	ranked, best := aggregator.Aggregate(selected, s.catalog)
	span.End()

	agg := aggregation{ranked: ranked, best: best}
	metrics.AggregatedOffers.Observe(float64(len(ranked)))
	if cache {
		s.views.Add(key, agg)
		metrics.AggregationsTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.AggregationsTotal.WithLabelValues("disabled").Inc()
	}
	return agg
}

// RecordUsage marks the card's offer for source as used at t. A zero t means now.
func (s *Service) RecordUsage(ctx context.Context, cardID string, source models.Source, t time.Time) (models.UsageResponse, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.RecordUsage")
	defer span.End()

	now := s.now()
	if t.IsZero() {
		t = now
	}
	if err := s.validateUsage(cardID, source); err != nil {
		return models.UsageResponse{}, err
	}
	if err := validation.ValidateUsageTime(t, now); err != nil {
		return models.UsageResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.RecordUsage(ctx, cardID, source, t); err != nil {
		s.persistFailed(ctx, ledger.StorageKey, err)
		return s.usagesLocked(cardID, source, nil), err
	}
	metrics.UsageEventsTotal.WithLabelValues("recorded", string(source)).Inc()

	used := s.ledger.UsagesFor(cardID, source)
	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishUsageRecorded(ctx, cardID, source, len(used)-1, t)
	}
	s.logger.InfoContext(ctx, "usage recorded",
		slog.String("card_id", cardID),
		slog.String("source", string(source)),
		slog.Time("date", t))

	return models.UsageResponse{CardID: cardID, Source: source, Used: used}, nil
}

// EditUsage replaces the date of the usage at index. A missing
// card/source/index is not an error; Updated reports whether anything changed.
func (s *Service) EditUsage(ctx context.Context, cardID string, source models.Source, index int, t time.Time) (models.UsageResponse, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.EditUsage")
	defer span.End()

	if err := validation.ValidateCardID(cardID, "card_id"); err != nil {
		return models.UsageResponse{}, err
	}
	if err := validation.ValidateSource(source); err != nil {
		return models.UsageResponse{}, err
	}
	if err := validation.ValidateIndex(index, "index"); err != nil {
		return models.UsageResponse{}, err
	}
	if err := validation.ValidateUsageTime(t, s.now()); err != nil {
		return models.UsageResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.ledger.EditUsage(ctx, cardID, source, index, t)
	if err != nil {
		s.persistFailed(ctx, ledger.StorageKey, err)
		return s.usagesLocked(cardID, source, &updated), err
	}
	if updated {
		metrics.UsageEventsTotal.WithLabelValues("edited", string(source)).Inc()
		if s.features.IsEnabled(features.FeatureEventHooks) {
			s.events.PublishUsageEdited(ctx, cardID, source, index, t)
		}
	}

	return s.usagesLocked(cardID, source, &updated), nil
}

// Usages returns the usage history of a card/source pair in insertion order.
func (s *Service) Usages(cardID string, source models.Source) (models.UsageResponse, error) {
	if err := validation.ValidateCardID(cardID, "card_id"); err != nil {
		return models.UsageResponse{}, err
	}
	if err := validation.ValidateSource(source); err != nil {
		return models.UsageResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usagesLocked(cardID, source, nil), nil
}

func (s *Service) usagesLocked(cardID string, source models.Source, updated *bool) models.UsageResponse {
	return models.UsageResponse{
		CardID:  cardID,
		Source:  source,
		Used:    s.ledger.UsagesFor(cardID, source),
		Updated: updated,
	}
}

func (s *Service) validateUsage(cardID string, source models.Source) error {
	if err := validation.ValidateCardID(cardID, "card_id"); err != nil {
		return err
	}
	if err := validation.ValidateSource(source); err != nil {
		return err
	}

	card, ok := s.catalog.Get(cardID)
	if !ok {
		return ErrCardNotFound
	}
	for _, d := range card.Discounts {
		if d.Source == source {
			return nil
		}
	}
	return ErrOfferNotFound
}

// Carousel returns the carousel state and its slides.
func (s *Service) Carousel() models.CarouselView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carouselViewLocked()
}

// NextSlide advances the carousel by one slide without resetting its timer.
func (s *Service) NextSlide() models.CarouselView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carousel.Advance()
	return s.carouselViewLocked()
}

// JumpTo shows slide index and restarts the auto-advance countdown.
func (s *Service) JumpTo(index int) (models.CarouselView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.carousel.JumpTo(index); err != nil {
		return s.carouselViewLocked(), &validation.ValidationError{
			Field:   "index",
			Message: err.Error(),
		}
	}
	return s.carouselViewLocked(), nil
}

// LeaveOffers stops the carousel, as when navigating back to the selection.
func (s *Service) LeaveOffers() models.CarouselView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCarouselLocked()
	return s.carouselViewLocked()
}

// Close cancels the carousel timer.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCarouselLocked()
}

func (s *Service) stopCarouselLocked() {
	s.carousel.Stop()
	s.slides = nil
	s.slidesKey = ""
}

func (s *Service) carouselViewLocked() models.CarouselView {
	snap := s.carousel.Snapshot()
	view := models.CarouselView{
		State:        string(snap.State),
		CurrentIndex: snap.CurrentIndex,
		TotalSlides:  snap.TotalSlides,
		Slides:       make([]models.CarouselSlide, 0, len(s.slides)),
	}
	for i, b := range s.slides {
		slide := models.CarouselSlide{
			Index:     i,
			Source:    b.Source,
			Available: b.Available,
			Headline:  aggregator.HeadlineText(b),
			Role:      carousel.RoleOf(i, snap.CurrentIndex, snap.TotalSlides),
		}
		if b.Offer != nil {
			slide.CardLabel = aggregator.CardLabel(*b.Offer)
		}
		view.Slides = append(view.Slides, slide)
	}
	return view
}

// carouselAdvanced runs on the carousel timer goroutine.
func (s *Service) carouselAdvanced(snap carousel.Snapshot) {
	metrics.CarouselAdvancesTotal.Inc()
	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishCarouselAdvanced(context.Background(), snap.CurrentIndex, snap.TotalSlides)
	}
}

// selectionChangedLocked drops the carousel built for the old selection and
// publishes the change.
func (s *Service) selectionChangedLocked(ctx context.Context, reason string) {
	ids := s.selection.IDs()
	metrics.SelectedCards.Set(float64(len(ids)))
	if s.slidesKey != selectionKey(ids) {
		s.stopCarouselLocked()
	}
	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishSelectionChanged(ctx, ids, reason)
	}
}

func (s *Service) selectionLocked() models.SelectionResponse {
	ids := s.selection.IDs()
	if ids == nil {
		ids = []string{}
	}
	return models.SelectionResponse{Selected: ids, ShareLink: s.shareLinkLocked(ids)}
}

func (s *Service) shareLinkLocked(ids []string) string {
	if !s.features.IsEnabled(features.FeatureShareLinks) || len(ids) == 0 {
		return ""
	}
	return selection.ShareURL(s.baseURL, ids)
}

func (s *Service) persistFailed(ctx context.Context, key string, err error) {
	metrics.PersistenceErrorsTotal.WithLabelValues(key).Inc()
	s.logger.ErrorContext(ctx, "failed to persist state",
		slog.String("key", key),
		slog.Any("error", err))
}

func bestViews(best []models.SourceBest) []models.BestView {
	views := make([]models.BestView, 0, len(best))
	for _, b := range best {
		v := models.BestView{SourceBest: b, Headline: aggregator.HeadlineText(b)}
		if b.Offer != nil {
			v.CardLabel = aggregator.CardLabel(*b.Offer)
		}
		views = append(views, v)
	}
	return views
}

// selectionKey identifies a selection in the view cache. Ids may contain any
// character except the unit separator.
func selectionKey(ids []string) string {
	return strings.Join(ids, "\x1f")
}
