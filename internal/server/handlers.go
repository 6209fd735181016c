package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/pipeline"
	"github.com/jonathan/outreach-copilot/internal/types"
)

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.jwtService.GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type workflowRequest struct {
	CompanyURL     string `json:"company_url" validate:"required"`
	TargetRole     string `json:"target_role" validate:"required"`
	Channel        string `json:"channel,omitempty"`
	Tone           string `json:"tone,omitempty"`
	SkipGuardrails bool   `json:"skip_guardrails,omitempty"`
}

func (r *workflowRequest) toPipeline(profile *types.ResumeProfile) *pipeline.Request {
	return &pipeline.Request{
		Profile:        profile,
		TargetRole:     r.TargetRole,
		CompanyURL:     r.CompanyURL,
		Channel:        types.MessageChannel(r.Channel),
		Tone:           types.MessageTone(r.Tone),
		SkipGuardrails: r.SkipGuardrails,
	}
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.runner.Run(r.Context(), req.toPipeline(s.profile))
	s.logger.Info("workflow request served",
		zap.String("company_url", req.CompanyURL),
		zap.String("status", string(result.Status)))
	writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	Workflows []workflowRequest `json:"workflows" validate:"required,min=1,dive"`
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reqs := make([]*pipeline.Request, len(req.Workflows))
	for i := range req.Workflows {
		reqs[i] = req.Workflows[i].toPipeline(s.profile)
	}
	writeJSON(w, http.StatusOK, s.runner.RunBatch(r.Context(), reqs))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter := crm.RecordFilter{Limit: 100}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := types.OutreachStatus(raw)
		filter.Status = &status
	}

	records, err := s.records.ListRecords(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*types.OutreachRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type statusRequest struct {
	Status        string `json:"status" validate:"required,oneof=sent replied no_response bounced"`
	ReplyContent  string `json:"reply_content,omitempty"`
	ReplyCategory string `json:"reply_category,omitempty"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch types.OutreachStatus(req.Status) {
	case types.StatusSent:
		err = s.records.MarkSent(r.Context(), recordID)
	case types.StatusReplied:
		category := types.ReplyCategory(req.ReplyCategory)
		if category == "" {
			category = types.ReplyNeedsInfo
		}
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown reply category %q", req.ReplyCategory))
			return
		}
		err = s.records.MarkReplied(r.Context(), recordID, req.ReplyContent, category)
	case types.StatusNoResponse:
		err = s.records.MarkNoResponse(r.Context(), recordID)
	case types.StatusBounced:
		err = s.records.MarkBounced(r.Context(), recordID)
	}
	if err != nil {
		var violation *crm.StateViolationError
		if errors.As(err, &violation) {
			writeError(w, http.StatusConflict, violation.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"record_id": recordID.String(),
		"status":    req.Status,
	})
}

// HashPassword produces the bcrypt hash stored in server configuration.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
