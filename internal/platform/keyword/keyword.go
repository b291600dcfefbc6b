// Package keyword provides a local, rule-based inference.Provider. It needs no
// network access or credentials and is the default provider for development
// and tests.
package keyword

import (
	"context"
	"strings"
	"time"

	"github.com/phrazzld/pulseweave/internal/domain"
)

// ModelVersion identifies this provider in results
const ModelVersion = "dummy:v1"

// Task types recognised by the rules
const (
	TypeMeeting  = "meeting"
	TypeShopping = "shopping"
	TypeTrip     = "trip"
	TypePickup   = "pickup"
)

// rule matches a task type by keyword hits and lists what such requests
// usually leave unsaid
type rule struct {
	taskType  string
	keywords  []string
	omissions []string
}

// Rules are checked in order; on equal hit counts the earlier rule wins.
var rules = []rule{
	{
		taskType:  TypeMeeting,
		keywords:  []string{"会议", "开会", "会议室", "PPT", "议程", "meeting", "agenda"},
		omissions: []string{"attendees", "room", "agenda", "materials"},
	},
	{
		taskType:  TypeShopping,
		keywords:  []string{"买", "购买", "购物", "订单", "价格", "buy", "order", "price"},
		omissions: []string{"quantity", "budget"},
	},
	{
		taskType:  TypeTrip,
		keywords:  []string{"机场", "车票", "机票", "出差", "旅行", "airport", "flight", "ticket"},
		omissions: []string{"tickets", "weather"},
	},
	{
		taskType:  TypePickup,
		keywords:  []string{"接", "接人", "校门", "车站", "pick up", "station"},
		omissions: []string{"person_name", "time_window"},
	},
}

// Provider classifies text by counting keyword hits
type Provider struct{}

// New returns a keyword provider
func New() *Provider {
	return &Provider{}
}

// Name implements inference.Provider
func (p *Provider) Name() string {
	return ModelVersion
}

// Analyze implements inference.Provider. With no keyword hits the text is
// classified as a meeting with confidence 0.5.
func (p *Provider) Analyze(ctx context.Context, payload domain.Payload) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	text := strings.ToLower(payload.Text)
	best := rules[0]
	bestHits := 0
	for _, r := range rules {
		hits := 0
		for _, kw := range r.keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = r, hits
		}
	}

	omissions := make([]string, len(best.omissions))
	copy(omissions, best.omissions)

	return domain.Result{
		"task_type":           best.taskType,
		"confidence":          Confidence(bestHits),
		"potential_omissions": omissions,
		"model_version":       ModelVersion,
		"latency_ms":          time.Since(start).Milliseconds(),
	}, nil
}

// Confidence maps a keyword hit count to a score in [0.5, 1.0]
func Confidence(hits int) float64 {
	c := 0.5 + float64(hits)*0.1
	if c > 1 {
		return 1
	}
	return c
}
