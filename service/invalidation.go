package service

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/logging/observes"
)

// Write events raised elsewhere in the system.
const (
	EventResponseCreated      = "response_created"
	EventResponseUpdated      = "response_updated"
	EventResponseDeleted      = "response_deleted"
	EventUserCreated          = "user_created"
	EventUserUpdated          = "user_updated"
	EventUserDeleted          = "user_deleted"
	EventQuestionnaireCreated = "questionnaire_created"
	EventQuestionnaireUpdated = "questionnaire_updated"
	EventQuestionnaireDeleted = "questionnaire_deleted"
)

var (
	responseTypes      = []string{TypeResponses, TypeDashboard, TypeAnalytics, TypeHome, TypeQuestionnaires}
	userTypes          = []string{TypeUsers, TypeDashboard, TypeHome}
	questionnaireTypes = []string{TypeQuestionnaires, TypeAnalytics, TypeDashboard}
)

// related maps a write event to the metric types it makes stale.
// A response never changes the user listing.
var related = map[string][]string{
	EventResponseCreated:      responseTypes,
	EventResponseUpdated:      responseTypes,
	EventResponseDeleted:      responseTypes,
	EventUserCreated:          userTypes,
	EventUserUpdated:          userTypes,
	EventUserDeleted:          userTypes,
	EventQuestionnaireCreated: questionnaireTypes,
	EventQuestionnaireUpdated: questionnaireTypes,
	EventQuestionnaireDeleted: questionnaireTypes,
}

// RelatedTypes returns the metric types invalidated by event.
func RelatedTypes(event string) []string {
	return append([]string(nil), related[event]...)
}

// Events returns the known write events, sorted.
func Events() []string {
	out := make([]string, 0, len(related))
	for e := range related {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// InvalidateRelatedCache drops every cached entry made stale by event and
// returns how many were removed. Unknown events remove nothing.
func (s *Service) InvalidateRelatedCache(ctx context.Context, event string) int {
	_, span := observes.StartSpan(ctx, observes.LayerFacade, "service.invalidate", attribute.String("event", event))
	defer func() { observes.EndSpan(span, nil) }()

	types, ok := related[event]
	if !ok {
		logger.Debugf(ctx, "service: no metrics depend on event %q", event)
		return 0
	}
	n := s.cache.InvalidateTypes(types...)
	s.collector.Invalidated(event, n)
	span.SetAttributes(attribute.Int("removed", n))
	logger.Infof(ctx, "service: %s invalidated %d entries of %v", event, n, types)
	return n
}
