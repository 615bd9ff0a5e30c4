package relay

import "strings"

const greetingText = "🧠 I am CodeBot (Smart Mode)\n\n" +
	"No commands needed! Just talk to me naturally.\n\n" +
	"Try saying:\n" +
	"• 'Roast this code for me'\n" +
	"• 'Convert this to Python'\n" +
	"• 'What is the Big O complexity?'\n" +
	"• 'Add comments to this function'\n" +
	"• 'Fix the bugs here'"

const helpText = "Reply to a message containing code and mention me, or say \"codebot\" anywhere in a group.\n" +
	"In a private chat every message is answered.\n\n" +
	"I pick a mode from your wording: roast, translate, complexity, docs, or plain bug fixing."

// commandReply returns the static reply for a known command. Commands
// addressed to a different bot are not ours.
func commandReply(name, target, botUsername string) (string, bool) {
	if target != "" && !strings.EqualFold(target, strings.TrimPrefix(botUsername, "@")) {
		return "", false
	}
	switch strings.ToLower(name) {
	case "start":
		return greetingText, true
	case "help":
		return greetingText + "\n\n" + helpText, true
	}
	return "", false
}
