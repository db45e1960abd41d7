package normalize

import (
	"strings"

	"PipelineSync/internal/pipeline/model"
)

// stageRule maps a lowercased, trimmed stage label to a stage when match holds.
type stageRule struct {
	match func(s string) bool
	stage model.Stage
}

func exactly(values ...string) func(string) bool {
	return func(s string) bool {
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// stageRules is evaluated top to bottom. Late-stage tokens sit above the
// generic ones so "Qualification - Interested and Engaged" lands on
// Negotiation.
var stageRules = []stageRule{
	{exactly("win", "closed won", "closed_won"), model.StageClosedWon},
	{exactly("lost", "closed lost", "closed_lost"), model.StageClosedLost},
	{containsAny("purchasing", "engaged", "negotiat"), model.StageNegotiation},
	{containsAny("proposal"), model.StageProposal},
	{containsAny("qualif", "interested"), model.StageQualification},
	{containsAny("discovery", "no indication"), model.StageDiscovery},
}

// MapStage converts free-form stage text into the fixed stage enum.
func MapStage(raw string) model.Stage {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return model.StageDiscovery
	}
	for _, r := range stageRules {
		if r.match(s) {
			return r.stage
		}
	}
	return model.StageDiscovery
}
