package telegram

import (
	"strconv"
	"strings"
)

// Callback action constants.
const (
	actionMenu     = "menu"
	actionExams    = "exams"
	actionExam     = "exam"
	actionAdaptive = "adaptive"
	actionAnswer   = "ans"
	actionFlag     = "flag"
	actionNav      = "nav"
	actionReview   = "review"
	actionProgress = "progress"
	actionSync     = "sync"
	actionReset    = "reset"
)

// Exam sub-actions: mode choice for a selected set.
const (
	examLearn = "learn"
	examTimed = "timed"
)

// Flag sub-actions. The first two are per-round confidence drafts, the
// bookmark toggles the question's persistent flag in the progress
// store.
const (
	flagDontKnow = "dontknow"
	flagNotSure  = "notsure"
	flagBookmark = "bookmark"
)

// Nav sub-actions.
const (
	navNext = "next"
	navPrev = "prev"
	navExit = "exit"
)

const (
	syncNewCode = "code"
)

const (
	resetConfirm = "confirm"
	resetCancel  = "cancel"
)

// callbackData represents structured callback data.
type callbackData struct {
	Action string
	Params []string
	Raw    string
}

// encode creates callback string.
func (cd callbackData) encode() string {
	if len(cd.Params) == 0 {
		return cd.Action
	}
	return cd.Action + ":" + strings.Join(cd.Params, ":")
}

// decodeCallback parses callback data string.
func decodeCallback(data string) callbackData {
	parts := strings.Split(data, ":")
	if len(parts) == 0 {
		return callbackData{Raw: data}
	}

	return callbackData{
		Action: parts[0],
		Params: parts[1:],
		Raw:    data,
	}
}

func buildMenuCallback() string {
	return actionMenu
}

func buildExamListCallback() string {
	return actionExams
}

// buildExamCallback opens the mode picker for one exam set.
func buildExamCallback(index int) string {
	return callbackData{
		Action: actionExam,
		Params: []string{strconv.Itoa(index)},
	}.encode()
}

// buildExamModeCallback starts a round over one exam set in the chosen
// mode (learn/timed).
func buildExamModeCallback(index int, mode string) string {
	return callbackData{
		Action: actionExam,
		Params: []string{strconv.Itoa(index), mode},
	}.encode()
}

func buildAdaptiveCallback() string {
	return actionAdaptive
}

// buildAnswerCallback selects an answer letter on the current question.
func buildAnswerCallback(letter string) string {
	return callbackData{
		Action: actionAnswer,
		Params: []string{letter},
	}.encode()
}

// buildFlagCallback toggles a self-assessment flag on the current
// question.
func buildFlagCallback(flag string) string {
	return callbackData{
		Action: actionFlag,
		Params: []string{flag},
	}.encode()
}

func buildNavCallback(dir string) string {
	return callbackData{
		Action: actionNav,
		Params: []string{dir},
	}.encode()
}

// buildReviewMenuCallback opens the review-round picker.
func buildReviewMenuCallback() string {
	return actionReview
}

// buildReviewCallback starts a review round of the given type.
func buildReviewCallback(typ string) string {
	return callbackData{
		Action: actionReview,
		Params: []string{typ},
	}.encode()
}

func buildProgressCallback() string {
	return actionProgress
}

func buildSyncCallback() string {
	return actionSync
}

func buildSyncNewCodeCallback() string {
	return callbackData{
		Action: actionSync,
		Params: []string{syncNewCode},
	}.encode()
}

func buildResetConfirmCallback() string {
	return callbackData{Action: actionReset, Params: []string{resetConfirm}}.encode()
}

func buildResetCancelCallback() string {
	return callbackData{Action: actionReset, Params: []string{resetCancel}}.encode()
}
