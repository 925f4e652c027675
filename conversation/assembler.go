// Package conversation builds the message sequences sent to the language model
// for the first and second pass of a query.
package conversation

import (
	"strings"

	"github.com/b4llu97/jarvis/models"
)

const (
	ToolsHeader   = "Verfügbare Tools:"
	ResultsHeader = "Tool-Ergebnisse:"

	// FinalAnswerInstruction closes the second-pass user turn.
	FinalAnswerInstruction = "Bitte formuliere jetzt eine finale Antwort für den Benutzer basierend auf diesen Ergebnissen."
)

// SystemContext joins the static instructions, the persona and the tool list
// into the content of the single system turn. The tools section is left out
// when no tools are available.
func SystemContext(system, persona string, tools []models.ToolDescriptor) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	b.WriteString(persona)

	if len(tools) > 0 {
		b.WriteString("\n\n")
		b.WriteString(ToolsHeader)
		for _, tool := range tools {
			b.WriteString("\n- ")
			b.WriteString(tool.Name)
			b.WriteString(": ")
			b.WriteString(tool.Description)
		}
	}
	return b.String()
}

// BuildFirstPass returns [system, history..., user(query)].
// history is expected to be sanitized already.
func BuildFirstPass(system, persona string, tools []models.ToolDescriptor, history []models.ConversationTurn, query string) models.Conversation {
	conv := make(models.Conversation, 0, len(history)+2)
	conv = append(conv, models.ConversationTurn{
		Role:    models.RoleSystem,
		Content: SystemContext(system, persona, tools),
	})
	conv = append(conv, history...)
	return append(conv, models.ConversationTurn{Role: models.RoleUser, Content: query})
}

// BuildSecondPass extends the first-pass conversation with the model's first
// reply and a digest of every tool outcome. first is not modified.
func BuildSecondPass(first models.Conversation, reply string, requests []models.ToolInvocationRequest, outcomes []models.ToolInvocationOutcome) models.Conversation {
	return first.With(
		models.ConversationTurn{Role: models.RoleAssistant, Content: reply},
		models.ConversationTurn{Role: models.RoleUser, Content: ResultsDigest(requests, outcomes)},
	)
}

// ResultsDigest renders one "Tool: fn -> outcome" line per request followed by
// the final-answer instruction.
func ResultsDigest(requests []models.ToolInvocationRequest, outcomes []models.ToolInvocationOutcome) string {
	lines := make([]string, 0, len(requests))
	for i, req := range requests {
		outcome := models.Failed("kein Ergebnis")
		if i < len(outcomes) {
			outcome = outcomes[i]
		}
		lines = append(lines, "Tool: "+req.Function+" -> "+outcome.String())
	}
	return ResultsHeader + "\n" + strings.Join(lines, "\n") + "\n\n" + FinalAnswerInstruction
}
