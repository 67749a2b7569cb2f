// Package mindmap turns conversation turns into the living graph: a
// synthesizer asks the generator for an updated candidate graph, and a
// reconciler maps its ephemeral ids onto persisted rows.
package mindmap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"clearity/internal/gateway"
	"clearity/internal/logging"
	"clearity/internal/types"
)

// Synthesis caps. Anything past these is noise for the caller's display and
// gets truncated before persistence.
const (
	maxProjects        = 5
	maxNodesPerProject = 3
)

const synthesisSystemPrompt = `You are the Mind Map Builder.

Your role:
- Build and update a living mind map representing the user's mental state
- Output ONLY structured JSON, never talk to the user
- Show what's in the user's mind RIGHT NOW
- Use predefined fields with these EXACT IDs (do not add any prefixes):
  * startups -> Startups
  * career -> Career
  * education -> Education
  * health -> Health
  * mental_health -> Mental Health
  * relationships -> Relationships
  * money -> Money
  * family -> Family
  * personal_growth -> Personal Growth
- Max 5 visible projects, max 3 visible nodes per project
- Assign emotions and colors to nodes based on emotional context
- Identify issue severity (none/low/medium/high) for red dot visualization

Emotion to color mapping:
- overwhelm/anxiety/stress -> red
- frustration/chaos/confusion -> orange
- uncertainty/doubt/ambivalence -> yellow
- hope/progress/clarity -> green
- calm/stability/control -> blue
- excitement/passion/creativity -> purple
- unknown/not enough data -> grey

Rules:
- Reuse existing projects/nodes when continuing a session
- NEVER change map_name once set
- Select most important 3 nodes per project based on emotional weight and relevance
- Group similar projects when needed to stay under 5 visible projects
- Set is_core_issue=true for nodes central to being stuck
- IMPORTANT: Use field IDs EXACTLY as listed above (e.g., "startups" NOT "fld_startups")
- Naming Rule: Use CONCRETE labels. Instead of "Promotion", use "Reddit Ads" or "Cold Email". Instead of "Health", use "Sleep 8h" or "Back Pain". Be specific.

Output JSON schema:
{
  "map_name": "short phrase describing main reason user came",
  "central_theme": "what this is about",
  "fields": [{"id": "field_id", "label": "Field Name"}],
  "projects": [
    {
      "id": "uuid or reused id",
      "label": "Project Name",
      "fields": ["field_id"],
      "emotion": "color",
      "clarity": "low|medium|high",
      "issue_severity": "none|low|medium|high",
      "status": "active",
      "importance_score": 0.0-1.0,
      "nodes": [
        {
          "id": "uuid or reused id",
          "label": "Node description",
          "emotion": "color",
          "importance_score": 0.0-1.0,
          "is_core_issue": true/false,
          "fields": ["field_id"]
        }
      ]
    }
  ],
  "connections": [
    {
      "type": "dependency|shared_root_cause|conflict",
      "from_id": "uuid",
      "to_id": "uuid",
      "strength": "low|medium|high",
      "root_cause_id": "uuid or null"
    }
  ]
}

Return ONLY valid JSON, no other text.`

// Synthesizer builds candidate graphs from the current message and prior
// snapshot state.
type Synthesizer struct {
	llm gateway.Completer
}

// NewSynthesizer creates a synthesizer over the given completion gateway.
func NewSynthesizer(llm gateway.Completer) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize asks the generator for the updated graph. prior is the previous
// turn's snapshot data, nil on a fresh session.
func (s *Synthesizer) Synthesize(ctx context.Context, message string, cctx types.Context, prior *types.SnapshotData) (*types.CandidateGraph, error) {
	logging.MindMap("Synthesizing mind map: prior=%v", prior != nil)

	var graph types.CandidateGraph
	err := s.llm.CompleteJSON(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: "system", Content: synthesisSystemPrompt},
			{Role: "user", Content: s.buildPrompt(message, cctx, prior)},
		},
		Tier:        gateway.TierFast,
		Temperature: 0.5,
		MaxTokens:   5000,
	}, &graph)
	if err != nil {
		return nil, fmt.Errorf("mind map synthesis failed: %w", err)
	}

	normalizeGraph(&graph, prior)
	logging.MindMap("Mind map synthesized: %q with %d projects", graph.MapName, len(graph.Projects))
	return &graph, nil
}

func (s *Synthesizer) buildPrompt(message string, cctx types.Context, prior *types.SnapshotData) string {
	parts := []string{fmt.Sprintf("User message: %s", message)}

	if cctx.Emotion != "" {
		parts = append(parts, fmt.Sprintf("User emotion: %s (intensity: %s)", cctx.Emotion, cctx.EmotionIntensity))
	}
	if cctx.Summary != "" {
		parts = append(parts, fmt.Sprintf("Session summary: %s", cctx.Summary))
	}

	if prior != nil {
		projects, _ := json.Marshal(prior.Projects)
		parts = append(parts,
			"\nExisting mind map to update:",
			fmt.Sprintf("Map name: %s", prior.MapName),
			fmt.Sprintf("Central theme: %s", prior.CentralTheme),
			fmt.Sprintf("Current projects: %s", projects),
			"\nIMPORTANT: Reuse project/node IDs where possible. Do NOT change map_name.")
	} else {
		parts = append(parts, "\nThis is a new mind map. Create map_name and central_theme based on user's message.")
	}

	parts = append(parts, "\nBuild/update the mind map and return ONLY JSON.")
	return strings.Join(parts, "\n")
}

// normalizeGraph enforces the display caps, clamps scores, fills defaults,
// and pins the map name to the prior snapshot's when one exists.
func normalizeGraph(g *types.CandidateGraph, prior *types.SnapshotData) {
	if prior != nil && prior.MapName != "" && g.MapName != prior.MapName {
		logging.MindMap("Generator renamed map %q to %q; keeping original name", prior.MapName, g.MapName)
		g.MapName = prior.MapName
	}

	// Scores first: an absent importance_score means "average", not "lowest",
	// so it must be defaulted before the ranking below sorts on it.
	for i := range g.Projects {
		p := &g.Projects[i]
		p.ImportanceScore = normalizeScore(p.ImportanceScore)
		for j := range p.Nodes {
			p.Nodes[j].ImportanceScore = normalizeScore(p.Nodes[j].ImportanceScore)
		}
	}

	if len(g.Projects) > maxProjects {
		logging.MindMapDebug("Truncating %d projects to %d", len(g.Projects), maxProjects)
		sort.SliceStable(g.Projects, func(i, j int) bool {
			return g.Projects[i].ImportanceScore > g.Projects[j].ImportanceScore
		})
		g.Projects = g.Projects[:maxProjects]
	}
	for i := range g.Projects {
		p := &g.Projects[i]
		if p.Emotion == "" {
			p.Emotion = "grey"
		}
		if p.IssueSeverity == "" {
			p.IssueSeverity = "none"
		}
		if p.Status == "" {
			p.Status = "active"
		}

		if len(p.Nodes) > maxNodesPerProject {
			sort.SliceStable(p.Nodes, func(i, j int) bool {
				return p.Nodes[i].ImportanceScore > p.Nodes[j].ImportanceScore
			})
			p.Nodes = p.Nodes[:maxNodesPerProject]
		}
		for j := range p.Nodes {
			n := &p.Nodes[j]
			if n.Emotion == "" {
				n.Emotion = "grey"
			}
			if len(n.Fields) == 0 {
				n.Fields = p.Fields
			}
		}
	}

	for i := range g.Connections {
		if g.Connections[i].Strength == "" {
			g.Connections[i].Strength = "medium"
		}
	}
}

// normalizeScore defaults an unset importance score to 0.5 and clamps the
// rest to [0,1].
func normalizeScore(v float64) float64 {
	if v == 0 {
		return 0.5
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
