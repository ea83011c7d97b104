package practice

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/practice-engine/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for practice sessions.
type HTTPHandlers struct {
	manager *Manager
	rewards RewardFunc
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers. rewards may be nil, in which case
// completed sessions carry no reward deltas.
func NewHTTPHandlers(manager *Manager, rewards RewardFunc, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		rewards: rewards,
		logger:  logger.With().Str("component", "practice_http").Logger(),
	}
}

// Register mounts the practice routes on mux behind wrap.
func (h *HTTPHandlers) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, wrap(fn))
	}
	route("GET /v1/practice/limit", h.Limit)
	route("POST /v1/practice/sessions", h.StartSession)
	route("GET /v1/practice/sessions", h.ListSessions)
	route("POST /v1/practice/sessions/{id}/resume", h.ResumeSession)
	route("GET /v1/practice/sessions/{id}/current", h.CurrentQuestion)
	route("POST /v1/practice/sessions/{id}/answers", h.SubmitAnswer)
	route("POST /v1/practice/sessions/{id}/navigate", h.Navigate)
	route("POST /v1/practice/sessions/{id}/complete", h.CompleteSession)
	route("DELETE /v1/practice/sessions/{id}", h.EndSession)
}

// Limit handles GET /v1/practice/limit
func (h *HTTPHandlers) Limit(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.student(w, r)
	if !ok {
		return
	}
	status, err := h.manager.CheckLimit(r.Context(), studentID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, status)
}

// StartSessionRequest is the body of POST /v1/practice/sessions.
type StartSessionRequest struct {
	SubTopicID string `json:"sub_topic_id"`
}

// StartSession handles POST /v1/practice/sessions
func (h *HTTPHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.student(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	subTopicID, err := uuid.Parse(req.SubTopicID)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "sub_topic_id must be a UUID", "sub_topic_id")
		return
	}

	session, err := h.manager.Start(r.Context(), studentID, subTopicID)
	if err != nil {
		if errors.Is(err, ErrLimitReached) {
			h.respondLimitReached(w, r, studentID, err)
			return
		}
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, newSessionResponse(session))
}

// ListSessions handles GET /v1/practice/sessions
func (h *HTTPHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.student(w, r)
	if !ok {
		return
	}
	sessions, err := h.manager.ListOpen(r.Context(), studentID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	out := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = newSessionResponse(s)
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": out})
}

// ResumeSession handles POST /v1/practice/sessions/{id}/resume
func (h *HTTPHandlers) ResumeSession(w http.ResponseWriter, r *http.Request) {
	studentID, sessionID, ok := h.studentAndSession(w, r)
	if !ok {
		return
	}
	session, err := h.manager.Resume(r.Context(), studentID, sessionID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newSessionResponse(session))
}

// CurrentQuestion handles GET /v1/practice/sessions/{id}/current
func (h *HTTPHandlers) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	studentID, sessionID, ok := h.studentAndSession(w, r)
	if !ok {
		return
	}
	view, err := h.manager.Current(r.Context(), studentID, sessionID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newQuestionResponse(view))
}

// SubmitAnswerRequest is the body of POST /v1/practice/sessions/{id}/answers.
type SubmitAnswerRequest struct {
	OptionIDs        []string `json:"option_ids"`
	Text             string   `json:"text"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
}

// SubmitAnswer handles POST /v1/practice/sessions/{id}/answers
func (h *HTTPHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	studentID, sessionID, ok := h.studentAndSession(w, r)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.TimeSpentSeconds < 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "time_spent_seconds must not be negative", "time_spent_seconds")
		return
	}

	answer, err := h.manager.Submit(r.Context(), studentID, sessionID, Submission{
		OptionIDs: req.OptionIDs,
		Text:      req.Text,
	}, req.TimeSpentSeconds)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, answer)
}

// NavigateRequest is the body of POST /v1/practice/sessions/{id}/navigate.
type NavigateRequest struct {
	Direction string `json:"direction,omitempty"`
	Index     int    `json:"index,omitempty"`
}

// Navigate handles POST /v1/practice/sessions/{id}/navigate
func (h *HTTPHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	studentID, sessionID, ok := h.studentAndSession(w, r)
	if !ok {
		return
	}

	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	index, err := h.manager.Navigate(r.Context(), studentID, sessionID, Navigation{
		Direction: req.Direction,
		Index:     req.Index,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int{"current_index": index})
}

// CompleteResponse is returned by POST /v1/practice/sessions/{id}/complete.
type CompleteResponse struct {
	Summary Summary  `json:"summary"`
	Rewards *Rewards `json:"rewards"`
}

// CompleteSession handles POST /v1/practice/sessions/{id}/complete
func (h *HTTPHandlers) CompleteSession(w http.ResponseWriter, r *http.Request) {
	studentID, sessionID, ok := h.studentAndSession(w, r)
	if !ok {
		return
	}

	summary, err := h.manager.Complete(r.Context(), studentID, sessionID)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	resp := CompleteResponse{Summary: summary}
	if h.rewards != nil {
		// Completion stands even when rewards fail; they can be re-applied later.
		rewards, err := h.rewards.Rewards(r.Context(), summary)
		if err != nil {
			h.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("reward calculation failed")
		} else if err := h.manager.RecordRewards(r.Context(), studentID, sessionID, rewards); err != nil {
			h.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to store rewards")
		} else {
			resp.Rewards = &rewards
		}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// EndSession handles DELETE /v1/practice/sessions/{id}
func (h *HTTPHandlers) EndSession(w http.ResponseWriter, r *http.Request) {
	studentID, sessionID, ok := h.studentAndSession(w, r)
	if !ok {
		return
	}
	h.manager.End(studentID, sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// SessionResponse is the wire form of a session.
type SessionResponse struct {
	ID               uuid.UUID  `json:"id"`
	SubTopicID       uuid.UUID  `json:"sub_topic_id"`
	SubjectName      string     `json:"subject_name"`
	TopicName        string     `json:"topic_name"`
	SubTopicName     string     `json:"sub_topic_name"`
	CycleNumber      int        `json:"cycle_number"`
	TotalQuestions   int        `json:"total_questions"`
	CurrentIndex     int        `json:"current_index"`
	Answered         []int      `json:"answered"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Version          int        `json:"version"`
}

func newSessionResponse(s PracticeSession) SessionResponse {
	answered := make(map[string]struct{}, len(s.Answers))
	for _, a := range s.Answers {
		answered[a.QuestionID] = struct{}{}
	}
	indexes := make([]int, 0, len(answered))
	for i, id := range s.QuestionIDs {
		if _, ok := answered[id]; ok {
			indexes = append(indexes, i+1)
		}
	}
	return SessionResponse{
		ID:               s.ID,
		SubTopicID:       s.SubTopicID,
		SubjectName:      s.SubjectName,
		TopicName:        s.TopicName,
		SubTopicName:     s.SubTopicName,
		CycleNumber:      s.CycleNumber,
		TotalQuestions:   len(s.QuestionIDs),
		CurrentIndex:     s.CurrentIndex,
		Answered:         indexes,
		TimeSpentSeconds: s.TimeSpentSeconds,
		CreatedAt:        s.CreatedAt,
		CompletedAt:      s.CompletedAt,
		Version:          s.Version,
	}
}

// OptionResponse hides correctness until the question is answered.
type OptionResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuestionResponse is the wire form of QuestionView.
type QuestionResponse struct {
	SessionID   uuid.UUID        `json:"session_id"`
	Index       int              `json:"index"`
	Total       int              `json:"total"`
	QuestionID  string           `json:"question_id"`
	Type        QuestionType     `json:"type"`
	Prompt      string           `json:"prompt"`
	ImageURL    string           `json:"image_url,omitempty"`
	Options     []OptionResponse `json:"options"`
	Explanation string           `json:"explanation,omitempty"`
	TextAnswer  string           `json:"text_answer,omitempty"`
	Answer      *PracticeAnswer  `json:"answer,omitempty"`
}

func newQuestionResponse(v QuestionView) QuestionResponse {
	revealed := v.Answer != nil
	opts := make([]OptionResponse, len(v.Question.Options))
	for i, o := range v.Question.Options {
		opts[i] = OptionResponse{ID: o.ID, Text: o.Text, ImageURL: o.ImageURL}
		if revealed {
			correct := o.IsCorrect
			opts[i].IsCorrect = &correct
		}
	}
	resp := QuestionResponse{
		SessionID:  v.SessionID,
		Index:      v.Index,
		Total:      v.Total,
		QuestionID: v.Question.ID,
		Type:       v.Question.Type,
		Prompt:     v.Question.Prompt,
		ImageURL:   v.Question.ImageURL,
		Options:    opts,
		Answer:     v.Answer,
	}
	if revealed {
		resp.Explanation = v.Question.Explanation
		resp.TextAnswer = v.Question.TextAnswer
	}
	return resp
}

func (h *HTTPHandlers) student(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims := jwt.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return uuid.Nil, false
	}
	return claims.StudentID, true
}

func (h *HTTPHandlers) studentAndSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	studentID, ok := h.student(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidSessionID, "Session id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return studentID, sessionID, true
}

// respondLimitReached answers 429 with a freshly counted limit status. The
// message tells a lost race at create apart from a refused pre-check.
func (h *HTTPHandlers) respondLimitReached(w http.ResponseWriter, r *http.Request, studentID uuid.UUID, cause error) {
	details := map[string]interface{}{}
	if status, err := h.manager.CheckLimit(r.Context(), studentID); err == nil {
		details["limit"] = status
	}
	httperrors.RespondErrorWithDetails(w, http.StatusTooManyRequests, httperrors.ErrCodeLimitReached, cause.Error(), details)
}

func (h *HTTPHandlers) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLimitReached):
		httperrors.RespondError(w, http.StatusTooManyRequests, httperrors.ErrCodeLimitReached, err.Error())
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Practice session not found")
	case errors.Is(err, ErrAlreadyAnswered):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeAlreadyAnswered, err.Error())
	case errors.Is(err, ErrEmptySubmission):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeEmptySubmission, "Select an option or type an answer")
	case errors.Is(err, ErrBadSubmission):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
	case errors.Is(err, ErrIncompleteAnswers):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeIncompleteAnswers, err.Error())
	case errors.Is(err, ErrVersionConflict):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeVersionConflict, "Session changed in another tab, reload and retry")
	case errors.Is(err, ErrNotActive):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeSessionNotActive, err.Error())
	case errors.Is(err, ErrSessionBusy):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeSessionBusy, err.Error())
	case errors.Is(err, ErrNoQuestions):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeNoQuestions, err.Error())
	case errors.Is(err, ErrBadNavigation):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "direction")
	default:
		h.logger.Error().Err(err).Msg("practice request failed")
		httperrors.RespondInternalError(w, "Failed to save, try again")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
