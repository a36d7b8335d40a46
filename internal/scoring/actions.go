package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/trends"
)

// MaxActions is the number of recommendations returned.
const MaxActions = 5

// namesPerAction caps how many creators an action names.
const namesPerAction = 3

// Action kinds.
const (
	ActionFixConversions  = "fix_conversions"
	ActionCutWaste        = "cut_wasted_spend"
	ActionReduceCPA       = "reduce_cpa"
	ActionChaseContent    = "chase_content"
	ActionCPAWorsening    = "cpa_worsening"
	ActionReengageCooling = "reengage_cooling"
	ActionCheckStalled    = "check_stalled"
	ActionDiversify       = "diversify"
	ActionScaleRising     = "scale_rising"
	ActionRecruitCreators = "recruit_creators"
)

// Action is one recommendation. Higher Priority ranks first.
type Action struct {
	Kind     string   `json:"kind"`
	Priority int      `json:"priority"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
	Creators []string `json:"creators,omitempty"`
}

// RecommendActions derives ranked actions from the score and, when present,
// the trend report. At most MaxActions are returned.
func RecommendActions(data TenantData, result Result, report *trends.Report) []Action {
	var actions []Action
	b := result.Breakdown

	if b.CPA == MaxCPAPenalty {
		actions = append(actions, Action{
			Kind:     ActionFixConversions,
			Priority: 100,
			Title:    "Verify conversion tracking",
			Detail:   "Spend is recorded but no conversions were attributed. Check tracking links and promo codes before spending more.",
		})
	} else if b.CPA >= 15 {
		actions = append(actions, Action{
			Kind:     ActionReduceCPA,
			Priority: 60 + b.CPA,
			Title:    "Bring CPA back toward the benchmark",
			Detail:   fmt.Sprintf("CPA is rated %s against the %s benchmark.", result.BenchmarkComparison.CPAStatus, result.BenchmarkComparison.Segment),
		})
	}

	if b.WastedSpend > 0 {
		names := topCreators(data.Creators, func(c models.CreatorRecord) bool {
			return c.Spent > 0 && c.Conversions <= 0
		})
		actions = append(actions, Action{
			Kind:     ActionCutWaste,
			Priority: 70 + b.WastedSpend,
			Title:    "Pause or renegotiate non-converting creators",
			Detail:   "These creators received spend without a single conversion.",
			Creators: names,
		})
	}

	if b.ContentDelivery > 0 {
		names := topCreators(data.Creators, func(c models.CreatorRecord) bool {
			return c.Spent > 0 && c.ContentCount <= 0
		})
		actions = append(actions, Action{
			Kind:     ActionChaseContent,
			Priority: 50 + b.ContentDelivery,
			Title:    "Follow up on undelivered content",
			Detail:   "Paid creators have not published tracked content yet.",
			Creators: names,
		})
	}

	if report != nil && report.HasHistory {
		if cpa := report.Weekly.CPA; cpa.Direction == trends.Worsening {
			actions = append(actions, Action{
				Kind:     ActionCPAWorsening,
				Priority: 65,
				Title:    "Investigate rising CPA",
				Detail:   fmt.Sprintf("CPA is up %d%% week over week.", cpa.Percent),
			})
		}
		if m := report.Momentum; len(m.Cooling) > 0 {
			actions = append(actions, Action{
				Kind:     ActionReengageCooling,
				Priority: 55,
				Title:    "Re-engage cooling creators",
				Detail:   fmt.Sprintf("%d creators converted much less than last week.", len(m.Cooling)),
				Creators: momentumNames(m.Cooling),
			})
		}
		if m := report.Momentum; len(m.Stalled) > 0 {
			names := make([]string, 0, len(m.Stalled))
			for _, s := range m.Stalled {
				names = append(names, s.Name)
			}
			actions = append(actions, Action{
				Kind:     ActionCheckStalled,
				Priority: 50,
				Title:    "Check in with stalled creators",
				Detail:   fmt.Sprintf("%d creators have not converted for over a week.", len(m.Stalled)),
				Creators: capNames(names),
			})
		}
		if m := report.Momentum; len(m.Rising) > 0 {
			actions = append(actions, Action{
				Kind:     ActionScaleRising,
				Priority: 35,
				Title:    "Scale up rising creators",
				Detail:   fmt.Sprintf("%d creators are converting faster than last week.", len(m.Rising)),
				Creators: momentumNames(m.Rising),
			})
		}
	}

	if b.Diversification > 0 {
		actions = append(actions, Action{
			Kind:     ActionDiversify,
			Priority: 30 + b.Diversification,
			Title:    "Test a second platform",
			Detail:   "Spend is concentrated on one platform.",
		})
	}

	if b.Activity > 0 {
		actions = append(actions, Action{
			Kind:     ActionRecruitCreators,
			Priority: 20,
			Title:    "Recruit more creators",
			Detail:   fmt.Sprintf("Fewer than %d active creators makes results noisy.", MinActiveCreators),
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Priority != actions[j].Priority {
			return actions[i].Priority > actions[j].Priority
		}
		return actions[i].Kind < actions[j].Kind
	})
	if len(actions) > MaxActions {
		actions = actions[:MaxActions]
	}
	if actions == nil {
		actions = []Action{}
	}
	return actions
}

// topCreators returns the highest-spend creators matching keep.
func topCreators(creators []models.CreatorRecord, keep func(models.CreatorRecord) bool) []string {
	var matched []models.CreatorRecord
	for _, c := range creators {
		if keep(c) {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Spent > matched[j].Spent })

	names := make([]string, 0, len(matched))
	for _, c := range matched {
		names = append(names, c.DisplayName())
	}
	return capNames(names)
}

func momentumNames(entries []trends.MomentumEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return capNames(names)
}

func capNames(names []string) []string {
	if len(names) > namesPerAction {
		names = names[:namesPerAction]
	}
	return names
}

// Describe renders actions as a numbered list.
func Describe(actions []Action) string {
	var sb strings.Builder
	for i, a := range actions {
		fmt.Fprintf(&sb, "%d. %s: %s", i+1, a.Title, a.Detail)
		if len(a.Creators) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(a.Creators, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
