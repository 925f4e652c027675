package conversation

import (
	"log"
	"strings"

	"github.com/b4llu97/jarvis/models"
)

// SanitizeHistory makes caller-supplied history safe to splice between the
// system turn and the new user turn.
//
// It removes:
// - system turns, since the system context is always built server-side
// - turns with an unknown role
// - turns whose content is empty or whitespace
//
// Every other turn is kept unchanged and in order. The input slice is never
// modified.
func SanitizeHistory(turns []models.ConversationTurn) []models.ConversationTurn {
	result := make([]models.ConversationTurn, 0, len(turns))
	dropped := 0
	for i, turn := range turns {
		switch {
		case turn.Role == models.RoleSystem:
			log.Printf("[HISTORY_SANITIZER] Removing caller-supplied system turn at index %d", i)
			dropped++
		case !turn.Role.Valid():
			log.Printf("[HISTORY_SANITIZER] Removing turn with unknown role '%s' at index %d", turn.Role, i)
			dropped++
		case strings.TrimSpace(turn.Content) == "":
			dropped++
		default:
			result = append(result, turn)
		}
	}

	if dropped > 0 {
		log.Printf("[HISTORY_SANITIZER] Removed %d of %d history turns", dropped, len(turns))
	}
	return result
}

// DetectHistoryIssues lists the turns SanitizeHistory would remove.
// Returns an empty slice for clean history.
func DetectHistoryIssues(turns []models.ConversationTurn) []string {
	issues := []string{}
	for _, turn := range turns {
		switch {
		case turn.Role == models.RoleSystem:
			issues = append(issues, "History contains a system turn")
		case !turn.Role.Valid():
			issues = append(issues, "History contains an unknown role: "+string(turn.Role))
		case strings.TrimSpace(turn.Content) == "":
			issues = append(issues, "History contains an empty turn")
		}
	}
	return issues
}
