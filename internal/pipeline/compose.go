package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"clearity/internal/gateway"
	"clearity/internal/types"
)

const composeSystemPrompt = `You are Clearity - an AI clarity engine for people who feel mentally overloaded, scattered, or stuck.

Your personality:
- Warm, human, calming, slightly casual but smart
- Make users feel heard, not judged
- Translate internal structure into simple language
- Never overwhelming - pace carefully

Your role:
1. Understand user messages in context (emotion, intensity, intent)
2. Reflect their emotional state ("this sounds heavy/confusing/exciting")
3. Provide short clarity summaries
4. Mention the mind map at high level when relevant
5. Ask 0-2 simple questions if context is missing
6. Offer 0-2 micro-tasks when user is ready
7. NEVER dump everything at once

Pacing rules:
- At most per turn: 1 core insight + 1 focus area + 1-2 micro-actions
- High overwhelm -> more validation & explanation, fewer tasks
- Calmer/curious -> more structure & next steps

You have access to:
- User's living mind map (fields, projects, nodes, connections)
- Analysis of why they're stuck (issues, root causes)
- Concrete next-step tasks

Your messages should feel like talking to a smart friend who really gets it.
Keep responses concise (2-4 short paragraphs max).
Use simple language, not therapy-speak or corporate buzzwords.`

// composeReply generates the user-facing message from the turn's full state.
func (o *Orchestrator) composeReply(ctx context.Context, message string, cctx types.Context, graph *types.CandidateGraph, analysis *types.Analysis) (string, error) {
	topTasks := analysis.Tasks
	if len(topTasks) > 2 {
		topTasks = topTasks[:2]
	}
	tasksJSON, _ := json.MarshalIndent(topTasks, "", "  ")

	prompt := fmt.Sprintf(`User message: %s

User emotional state: %s (intensity: %s)
User intent: %s

Mind map summary:
- Name: %s
- Theme: %s
- Projects: %d active areas

Key issue identified: %s
Suggested next step: %s

Top tasks available:
%s

Generate a warm, concise response (2-4 short paragraphs):
1. Reflect their emotion briefly
2. Provide 1 core clarity insight about their situation
3. Optionally mention what you see in their mind map
4. Suggest 1-2 micro-actions OR ask 1 clarifying question

Remember: Don't overwhelm. Keep it human and helpful.`,
		message, cctx.Emotion, cctx.EmotionIntensity, cctx.UserIntent,
		graph.MapName, graph.CentralTheme, len(graph.Projects),
		analysis.SuggestedIssue, analysis.SuggestedStep, tasksJSON)

	reply, err := o.llm.Complete(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: "system", Content: composeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Tier:        gateway.TierFast,
		Temperature: 0.8,
		MaxTokens:   600,
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", fmt.Errorf("composed reply was empty")
	}
	return reply, nil
}
