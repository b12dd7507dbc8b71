package domain

import "strings"

// Role claims carried by bearer tokens.
const (
	RoleAdmin = "admin"
	// RoleService is held by the quiz-scoring service that reports results.
	RoleService = "service"
)

// Placeholder selections the admin UI sends when nothing is picked.
const (
	AllBoards = "All Boards"
	AllExams  = "All Exams"
)

// DeliveryContext is the (medium, board|exam) pair a course instance is bound to.
// Empty Board or ExamID means none.
type DeliveryContext struct {
	Medium string `json:"medium"`
	Board  string `json:"board,omitempty"`
	ExamID string `json:"examId,omitempty"`
}

// NewDeliveryContext normalizes raw selections: surrounding whitespace and the
// "all" placeholders become none.
func NewDeliveryContext(medium, board, examID string) DeliveryContext {
	return DeliveryContext{
		Medium: strings.TrimSpace(medium),
		Board:  normalizeSelection(board, AllBoards),
		ExamID: normalizeSelection(examID, AllExams),
	}
}

func normalizeSelection(raw, placeholder string) string {
	v := strings.TrimSpace(raw)
	if v == placeholder {
		return ""
	}
	return v
}

// Normalized re-applies the boundary normalization; it is idempotent.
func (c DeliveryContext) Normalized() DeliveryContext {
	return NewDeliveryContext(c.Medium, c.Board, c.ExamID)
}

// Valid reports whether the context has a medium and exactly one of board or exam.
func (c DeliveryContext) Valid() bool {
	n := c.Normalized()
	if n.Medium == "" {
		return false
	}
	return (n.Board != "") != (n.ExamID != "")
}
