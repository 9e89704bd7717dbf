package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/stackalchemy/core"
)

// Placeholders recognized in prompt templates.
const (
	PlaceholderFileName = "{fileName}"
	PlaceholderSource   = "{source}"
	PlaceholderDiff     = "{diff}"
	PlaceholderQuestion = "{question}"
	PlaceholderContext  = "{context}"
)

// DefaultCodeSummaryPrompt asks for a short onboarding-style summary of one file.
const DefaultCodeSummaryPrompt = `You are a senior software engineer who specialises in onboarding junior engineers onto projects.
You are onboarding a junior software engineer and explaining to them the purpose of the {fileName} file.
Here is the code:
---
{source}
---
Give a summary no more than 100 words of the code above.`

// DefaultCommitSummaryPrompt asks for a bullet list describing a git diff.
const DefaultCommitSummaryPrompt = `You are an expert programmer, and you are trying to summarize a git diff.
Each file in the diff starts with a "File:" line, followed by the number of changed lines and the patch.
Lines starting with "+" were added, lines starting with "-" were removed, other lines are context.
Write a short bullet list of the most important changes. Do not repeat file names verbatim more than needed.

{diff}`

// DefaultAnswerPrompt frames a retrieval-augmented answer over file summaries.
const DefaultAnswerPrompt = `You are an AI code assistant who answers questions about a codebase. Your target audience is a technical intern.
Use the context below, which lists the files most relevant to the question, to answer it.
If the context does not contain the answer, say that you don't know rather than inventing one.
Answer in markdown, including code snippets where they help.

START CONTEXT BLOCK
{context}
END OF CONTEXT BLOCK

Question: {question}`

// RenderPrompt substitutes placeholders in template.
func RenderPrompt(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// BuildAnswerContext lists the references as numbered sources.
func BuildAnswerContext(refs []core.FileReference) string {
	var sb strings.Builder
	for i, ref := range refs {
		fmt.Fprintf(&sb, "[%d] source: %s\nsummary: %s\ncode:\n%s\n\n", i+1, ref.FileName, ref.Summary, ref.SourceCode)
	}
	return strings.TrimSpace(sb.String())
}

// TruncateSource caps source at max runes. A max of zero disables truncation.
func TruncateSource(source string, max int) string {
	if max <= 0 {
		return source
	}
	runes := []rune(source)
	if len(runes) <= max {
		return source
	}
	return string(runes[:max])
}
