package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

const systemPromptTemplate = `You are a travel deal planning engine. Decompose the user's request into concrete booking sub-tasks. Your output must be ONLY a raw JSON array of task objects. Do not include any other text, prose, or markdown.

Each task object has exactly this shape:
{"type": "flight" | "hotel" | "activity", "destination": string, "budget": number, "startDate": string, "endDate": string, "requirements": [string]}

Rules:
1. Split the total trip budget across tasks: roughly 40% flights, 40% hotels, 20% activities. If the user gives no budget, assume 2000 total.
2. If the user names a month but no exact dates, set startDate and endDate to the literal string "FLEXIBLE" and add a requirement tag "month:YYYY-MM" for that month.
3. If the user describes a mood or style (romantic, adventure, beach, party), add a requirement tag "vibe:<name>" to every task.
4. If the user gives a vibe but no destination, pick a destination that matches the vibe and use it consistently across all tasks.
5. If the user gives no date information at all, plan a 7-day trip starting 30 days from the reference date.
6. Output raw JSON only: no code fences, no commentary, no trailing text.`

// BuildPrompt returns the system and user prompts for query decomposition.
// The reference date anchors relative date reasoning ("next month",
// "this summer") and is always expressed in UTC.
func BuildPrompt(query string, now time.Time) (system, user string) {
	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)
	fmt.Fprintf(&sb, "\n\nReference date: %s", now.UTC().Format("2006-01-02"))
	return sb.String(), query
}
