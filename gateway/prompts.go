package gateway

import "strings"

// FeatureGeneral is used when a request names no feature or an unknown one.
const FeatureGeneral = "general"

const basePrompt = "You are BrightSphere's AI study assistant for students. Be accurate, encouraging and concise. " +
	"If you are unsure about something, say so instead of guessing."

var featurePrompts = map[string]string{
	FeatureGeneral: basePrompt,
	"homework_help": basePrompt + " Help the student work through their homework step by step. " +
		"Explain the reasoning behind each step rather than only giving the final answer.",
	"study_plan": basePrompt + " Build a realistic study plan with concrete daily or weekly goals, " +
		"time estimates and short review sessions.",
	"quiz_generator": basePrompt + " Write a short quiz on the requested topic. Mix multiple choice and " +
		"short answer questions and put the answer key at the end.",
	"essay_feedback": basePrompt + " Review the essay for structure, argument, clarity and grammar. " +
		"Point out strengths first, then give specific suggestions for improvement.",
	"concept_explainer": basePrompt + " Explain the concept in plain language, build up from the basics " +
		"and finish with a simple example.",
	"career_guidance": basePrompt + " Give practical career guidance: relevant paths, the skills and " +
		"qualifications they need, and first steps the student can take now.",
}

// NormalizeFeature lowercases feature and maps unknown values to FeatureGeneral.
func NormalizeFeature(feature string) string {
	f := strings.ToLower(strings.TrimSpace(feature))
	f = strings.ReplaceAll(f, "-", "_")
	if _, ok := featurePrompts[f]; ok {
		return f
	}
	return FeatureGeneral
}

// Features lists the known feature names.
func Features() []string {
	names := make([]string, 0, len(featurePrompts))
	for name := range featurePrompts {
		names = append(names, name)
	}
	return names
}

// SystemPrompt returns the system message for feature, with the caller's
// extra context appended when present.
func SystemPrompt(feature string, extraContext string) string {
	prompt := featurePrompts[NormalizeFeature(feature)]
	if ctx := strings.TrimSpace(extraContext); ctx != "" {
		prompt += "\n\nAdditional context from the student:\n" + ctx
	}
	return prompt
}
