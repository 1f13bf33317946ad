package types

import (
	"errors"
	"testing"
)

func TestAgentStateNext(t *testing.T) {
	cases := []struct {
		from, to AgentState
		ok       bool
	}{
		{AgentNotActive, AgentActive, true},
		{AgentActive, AgentCompleted, true},
		{AgentActive, AgentFailed, true},
		{AgentActive, AgentActive, true},
		{AgentCompleted, AgentCompleted, true},
		{AgentNotActive, AgentCompleted, false},
		{AgentCompleted, AgentActive, false},
		{AgentCompleted, AgentFailed, false},
		{AgentFailed, AgentCompleted, false},
		{AgentFailed, AgentNotActive, false},
	}
	for _, tc := range cases {
		got, err := tc.from.Next(tc.to)
		if tc.ok {
			if err != nil || got != tc.to {
				t.Errorf("%s -> %s = %s, %v; want %s", tc.from, tc.to, got, err, tc.to)
			}
			continue
		}
		if !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("%s -> %s error = %v, want ErrIllegalTransition", tc.from, tc.to, err)
		}
		if got != tc.from {
			t.Errorf("%s -> %s changed state to %s", tc.from, tc.to, got)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name             string
		agents           Agents
		phase            Phase
		creator, content AgentState
		want             string
	}{
		{"queued", AgentsBoth, PhaseQueued, AgentActive, AgentActive, StatusQueued},
		{"content phase", AgentsBoth, PhaseContent, AgentActive, AgentActive, StatusContentActive},
		{"creator only retrieval", AgentsCreator, PhaseContent, AgentActive, AgentNotActive, StatusProfileActive},
		{"profile phase", AgentsBoth, PhaseProfile, AgentActive, AgentActive, StatusProfileActive},
		{"content done creator pending", AgentsBoth, PhaseProfile, AgentActive, AgentCompleted, StatusProfileActive},
		{"creator webhook pending", AgentsBoth, PhaseDone, AgentActive, AgentCompleted, StatusProfileActive},
		{"creator done content pending", AgentsBoth, PhaseDone, AgentCompleted, AgentActive, StatusContentActive},
		{"content only profile phase", AgentsContent, PhaseProfile, AgentNotActive, AgentActive, StatusContentActive},
		{"content only delivery", AgentsContent, PhaseDone, AgentNotActive, AgentActive, StatusContentActive},
		{"both completed", AgentsBoth, PhaseDone, AgentCompleted, AgentCompleted, StatusCompleted},
		{"content only completed", AgentsContent, PhaseDone, AgentNotActive, AgentCompleted, StatusCompleted},
		{"creator failed", AgentsBoth, PhaseDone, AgentFailed, AgentCompleted, StatusProfileFailed},
		{"content failed", AgentsBoth, PhaseDone, AgentCompleted, AgentFailed, StatusContentFailed},
		{"both failed", AgentsBoth, PhaseDone, AgentFailed, AgentFailed, StatusScrapperFailed},
		{"unarmed agent ignored", AgentsContent, PhaseDone, AgentFailed, AgentCompleted, StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.agents, tc.phase, tc.creator, tc.content); got != tc.want {
				t.Fatalf("DeriveStatus() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCriteriaValidate(t *testing.T) {
	c := Criteria{Hashtags: []string{" #fitness ", ""}}
	c.Normalize()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(c.Hashtags) != 1 || c.Hashtags[0] != "fitness" {
		t.Fatalf("hashtags = %v, want [fitness]", c.Hashtags)
	}
	if c.ResultCount != DefaultResultCount {
		t.Fatalf("ResultCount = %d, want %d", c.ResultCount, DefaultResultCount)
	}

	bad := Criteria{TimePeriodDays: 3, ResultCount: 5000, MinViews: -1}
	err := bad.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if !errors.Is(err, ErrInvalidCriteria) {
		t.Fatal("validation error should match ErrInvalidCriteria")
	}
	want := []string{"hashtags", "minViews", "resultCount", "timePeriodDays"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("fields = %+v, want %v", verr.Fields, want)
	}
	for i, f := range verr.Fields {
		if f.Field != want[i] {
			t.Errorf("field[%d] = %s, want %s", i, f.Field, want[i])
		}
	}
}

func TestJobUpdateApply(t *testing.T) {
	job := Job{Status: StatusQueued, ContentStatus: AgentActive, CreatorStatus: AgentActive, ContentSheetURL: "keep"}
	JobUpdate{CreatorStatus: Ptr(AgentFailed), CreatorError: Ptr("boom")}.Apply(&job)
	if job.CreatorStatus != AgentFailed || job.CreatorError != "boom" {
		t.Fatalf("creator fields not applied: %+v", job)
	}
	if job.ContentStatus != AgentActive || job.ContentSheetURL != "keep" || job.Status != StatusQueued {
		t.Fatalf("untouched fields changed: %+v", job)
	}
	if !(JobUpdate{}).Empty() {
		t.Fatal("zero update should be empty")
	}
}

func TestParseContentType(t *testing.T) {
	for in, want := range map[string]ContentType{
		"Organic Post": ContentOrganic,
		"ads":          ContentAd,
		"":             ContentAny,
		"AD":           ContentAd,
	} {
		got, err := ParseContentType(in)
		if err != nil || got != want {
			t.Errorf("ParseContentType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseContentType("reels"); err == nil {
		t.Fatal("expected error for unknown content type")
	}
}
