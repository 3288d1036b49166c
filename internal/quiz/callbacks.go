package quiz

import (
	"strconv"
	"strings"
)

// Callback data prefixes. The subject travels with the question id so the
// answer is graded against the bank the question was sent from.
const (
	CallbackAnswer = "ans"
	CallbackReveal = "rev"
	CallbackNext   = "next_question"
)

// AnswerData encodes an option button
func AnswerData(subject, questionID string, option int) string {
	return CallbackAnswer + ":" + subject + ":" + questionID + ":" + strconv.Itoa(option)
}

// RevealData encodes the "show answer" button
func RevealData(subject, questionID string) string {
	return CallbackReveal + ":" + subject + ":" + questionID
}

// ParseAnswerData decodes AnswerData
func ParseAnswerData(data string) (subject, questionID string, option int, ok bool) {
	subject, rest, ok := splitPrefixed(data, CallbackAnswer)
	if !ok {
		return "", "", 0, false
	}
	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return "", "", 0, false
	}
	option, err := strconv.Atoi(rest[sep+1:])
	if err != nil || option < 0 {
		return "", "", 0, false
	}
	return subject, rest[:sep], option, true
}

// ParseRevealData decodes RevealData
func ParseRevealData(data string) (subject, questionID string, ok bool) {
	subject, questionID, ok = splitPrefixed(data, CallbackReveal)
	if !ok || questionID == "" {
		return "", "", false
	}
	return subject, questionID, true
}

func splitPrefixed(data, prefix string) (subject, rest string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != prefix || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
