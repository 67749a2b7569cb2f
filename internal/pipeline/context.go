package pipeline

import (
	"context"
	"fmt"
	"strings"

	"clearity/internal/gateway"
	"clearity/internal/logging"
	"clearity/internal/types"
)

// historyWindow is how many recent messages feed context extraction.
const historyWindow = 15

// extractContext reads the emotional/intent signal from the message plus
// recent history. This is the only stage with local recovery: on any failure
// it degrades to the default context instead of failing the turn.
func (o *Orchestrator) extractContext(ctx context.Context, sessionID, message string) types.Context {
	recent, err := o.store.RecentMessages(ctx, sessionID, historyWindow)
	if err != nil {
		logging.Get(logging.CategoryPipeline).Warnf("Failed to load history for context: %v", err)
		return types.DefaultContext(message)
	}

	var history strings.Builder
	for _, msg := range recent {
		fmt.Fprintf(&history, "%s: %s\n", msg.Role, msg.Content)
	}

	prompt := fmt.Sprintf(`Analyze this user message and conversation context.

Recent conversation:
%s
Current user message: %s

Determine:
1. Primary emotion (overwhelm/anxiety/stress/frustration/confusion/uncertainty/hope/calm/excitement)
2. Emotion intensity (low/medium/high)
3. User intent (venting/understanding/deciding/acting/exploring)
4. Brief summary of situation (1-2 sentences)
5. Session stage (early/middle/established)

Return JSON:
{
  "emotion": "emotion_name",
  "emotion_intensity": "low|medium|high",
  "user_intent": "intent_type",
  "summary": "brief situation summary",
  "session_stage": "early|middle|established"
}`, history.String(), message)

	var cctx types.Context
	err = o.llm.CompleteJSON(ctx, gateway.Request{
		Messages:    []gateway.Message{{Role: "user", Content: prompt}},
		Tier:        gateway.TierFast,
		Temperature: 0.3,
		MaxTokens:   1000,
	}, &cctx)
	if err != nil {
		logging.Get(logging.CategoryPipeline).Warnf("Context extraction failed, using default: %v", err)
		return types.DefaultContext(message)
	}
	return cctx
}
