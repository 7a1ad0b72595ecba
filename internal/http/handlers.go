package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/service/graph"
	"ai-debate-graph-service/internal/store"
)

// Room for the non-file multipart fields on top of the audio bound.
const formOverhead = 1 << 20

// Credentials may come as form fields or as these headers.
const (
	headerTranscriptionCredential = "X-Transcription-Credential"
	headerOracleCredential        = "X-Oracle-Credential"
)

type uploadRequest struct {
	Title                   string `json:"title" validate:"max=200"`
	Description             string `json:"description" validate:"max=2000"`
	TranscriptionCredential string `json:"transcription_credential" validate:"required_if=RequireCredentials true"`
	OracleCredential        string `json:"oracle_credential" validate:"required_if=RequireCredentials true"`
	RequireCredentials      bool   `json:"-"`
}

type importRequest struct {
	Title              string             `json:"title" validate:"max=200"`
	Description        string             `json:"description" validate:"max=2000"`
	OracleCredential   string             `json:"oracle_credential" validate:"required_if=RequireCredentials true"`
	Transcript         *models.Transcript `json:"transcript" validate:"required"`
	RequireCredentials bool               `json:"-"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// upload accepts a multipart form with an "audio" file and runs the
// pipeline synchronously.
func (api *API) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, api.MaxAudioBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		api.writeBodyError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("audio")
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, fmt.Errorf("audio file is required: %w", err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, api.MaxAudioBytes+1))
	if err != nil {
		api.writeBodyError(w, r, err)
		return
	}
	if int64(len(audio)) > api.MaxAudioBytes {
		api.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("audio exceeds %d bytes", api.MaxAudioBytes))
		return
	}
	if len(audio) == 0 {
		api.writeError(w, r, http.StatusBadRequest, errors.New("audio file is empty"))
		return
	}

	req := uploadRequest{
		Title:                   r.FormValue("title"),
		Description:             r.FormValue("description"),
		TranscriptionCredential: formOrHeader(r, "transcription_credential", headerTranscriptionCredential),
		OracleCredential:        formOrHeader(r, "oracle_credential", headerOracleCredential),
		RequireCredentials:      api.RequireCredentials,
	}
	if err := api.validator.Validate(req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	api.Metrics.RecordAudioReceived(len(audio))

	out, err := api.Runner.Run(r.Context(), graph.Request{
		Title:                   req.Title,
		Description:             req.Description,
		Audio:                   audio,
		TranscriptionCredential: req.TranscriptionCredential,
		OracleCredential:        req.OracleCredential,
	})
	if err != nil {
		api.writeRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// importTranscript runs the pipeline over an already transcribed debate.
func (api *API) importTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, api.MaxAudioBytes+formOverhead)

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeBodyError(w, r, err)
		return
	}
	if req.OracleCredential == "" {
		req.OracleCredential = r.Header.Get(headerOracleCredential)
	}
	req.RequireCredentials = api.RequireCredentials
	if err := api.validator.Validate(req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Transcript.Status == "" {
		req.Transcript.Status = models.TranscriptStatusCompleted
	}

	out, err := api.Runner.Run(r.Context(), graph.Request{
		Title:            req.Title,
		Description:      req.Description,
		Transcript:       req.Transcript,
		OracleCredential: req.OracleCredential,
	})
	if err != nil {
		api.writeRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (api *API) listDebates(w http.ResponseWriter, r *http.Request) {
	debates, err := api.Reader.ListDebates(r.Context())
	if err != nil {
		api.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debates)
}

func (api *API) getDebate(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}
	detail, err := api.Reader.GetDebate(r.Context(), id)
	if err != nil {
		api.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (api *API) deleteDebate(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}
	if err := api.Reader.DeleteDebate(r.Context(), id); err != nil {
		api.writeReadError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) premises(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}
	premises, err := api.Reader.Premises(r.Context(), id)
	if err != nil {
		api.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, premises)
}

func (api *API) criticalQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}
	questions, err := api.Reader.CriticalQuestions(r.Context(), id)
	if err != nil {
		api.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (api *API) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func formOrHeader(r *http.Request, field, header string) string {
	if v := r.FormValue(field); v != "" {
		return v
	}
	return r.Header.Get(header)
}

// statusFor maps a failed run to a response status.
func statusFor(se *graph.StageError) int {
	switch se.Kind {
	case graph.KindUpstream, graph.KindSchema:
		return http.StatusBadGateway
	case graph.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (api *API) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	se, ok := graph.AsStageError(err)
	if !ok {
		api.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, statusFor(se), errorResponse{
		Error:     se.Error(),
		Stage:     string(se.Stage),
		Kind:      string(se.Kind),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (api *API) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		api.writeError(w, r, http.StatusNotFound, err)
		return
	}
	api.writeError(w, r, http.StatusInternalServerError, err)
}

// writeBodyError reports a request body that could not be read.
func (api *API) writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("request exceeds %d bytes", tooLarge.Limit))
		return
	}
	api.writeError(w, r, http.StatusBadRequest, err)
}

func (api *API) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID := middleware.GetReqID(r.Context())
	event := api.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = api.logger.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("path", r.URL.Path).
		Str("requestId", reqID).
		Msg("Request failed")
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
