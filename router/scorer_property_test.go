package router

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/taskrouter/classifier"
	"github.com/BaSui01/taskrouter/types"
)

var propertyCapabilities = []string{"code", "complex_reasoning", "travel", "arabic", "creative", "general", "budget"}

func buildProfiles(n int, seed int) staticProfiles {
	out := make(staticProfiles, n)
	for i := 0; i < n; i++ {
		k := seed + i
		out[i] = types.WorkerProfile{
			ID:            fmt.Sprintf("w-%d", i),
			Capabilities:  []string{propertyCapabilities[k%len(propertyCapabilities)], propertyCapabilities[(k*3)%len(propertyCapabilities)]},
			CostPerCall:   float64(k%4) * 0.001,
			AccuracyScore: float64((k * 17) % 101),
			LatencyClass:  []types.LatencyClass{types.LatencyLow, types.LatencyMedium, types.LatencyHigh}[k%3],
			Languages:     []string{[]string{"en", "ar", "zh"}[k%3]},
			IsPrimary:     i == seed%n && seed%2 == 0,
		}
	}
	return out
}

// 相同 (text, context, snapshot) 必须得到相同的 Worker
func TestProperty_SelectBestIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	cls := classifier.New(classifier.DefaultCategories()...)
	scorer := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)

	properties.Property("selection is a pure function of its inputs", prop.ForAll(
		func(text string, n int, seed int, urgent bool) bool {
			tc := types.TaskContext{Language: "en"}
			if urgent {
				tc.Urgency = types.UrgencyHigh
			}
			profiles := buildProfiles(n, seed)

			first, err1 := scorer.SelectBest(cls.Classify(text, tc), tc, profiles)
			second, err2 := scorer.SelectBest(cls.Classify(text, tc), tc, buildProfiles(n, seed))
			if err1 != nil || err2 != nil {
				t.Logf("unexpected errors: %v %v", err1, err2)
				return false
			}
			return first == second
		},
		gen.AnyString(),
		gen.IntRange(1, 8),
		gen.IntRange(0, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// 文本只命中类别 X，且只有一个 Worker 声明 X（其他条件相同）时，必选该 Worker
func TestProperty_UniqueCapabilityWins(t *testing.T) {
	defs := classifier.DefaultCategories()
	cls := classifier.New(defs...)
	scorer := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)

	rapid.Check(t, func(rt *rapid.T) {
		def := defs[rapid.IntRange(0, len(defs)-1).Draw(rt, "category")]
		trigger := def.Triggers[rapid.IntRange(0, len(def.Triggers)-1).Draw(rt, "trigger")]

		c := cls.Classify(trigger, types.TaskContext{})
		matched := c.Matched()
		if len(matched) != 1 || matched[0] != def.Name {
			rt.Skip("trigger overlaps other categories")
		}

		n := rapid.IntRange(2, 6).Draw(rt, "workers")
		owner := rapid.IntRange(0, n-1).Draw(rt, "owner")
		profiles := make(staticProfiles, n)
		for i := range profiles {
			profiles[i] = types.WorkerProfile{ID: fmt.Sprintf("w-%d", i), CostPerCall: 0.001, AccuracyScore: 80}
			if i == owner {
				profiles[i].Capabilities = []string{def.Name}
			} else {
				profiles[i].Capabilities = []string{"unrelated-capability"}
			}
		}

		id, err := scorer.SelectBest(c, types.TaskContext{}, profiles)
		if err != nil {
			rt.Fatalf("select: %v", err)
		}
		if id != profiles[owner].ID {
			rt.Fatalf("expected %s, got %s", profiles[owner].ID, id)
		}
	})
}
