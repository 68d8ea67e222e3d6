package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// turnRequest is the body of POST /v1/turn.
type turnRequest struct {
	User string        `json:"user"`
	Role dialogue.Role `json:"role,omitempty"`
	Text string        `json:"text"`
}

// startRequest is the body of POST /v1/game and POST /v1/drill.
type startRequest struct {
	User     string `json:"user"`
	Category string `json:"category,omitempty"`
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.User) == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	resp := s.svc.Turn(r.Context(), dialogue.Request{User: req.User, Role: req.Role, Text: req.Text})
	writeJSON(w, http.StatusOK, resp)
}

// handleTurnAudio reads the raw audio body. The format comes from the
// Content-Type (audio/wav, audio/L16) or the format query parameter.
func (s *Server) handleTurnAudio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := strings.TrimSpace(q.Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	audio, err := s.readAudio(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := dialogue.Request{User: user, Role: dialogue.Role(q.Get("role"))}
	resp, err := s.svc.TurnAudio(r.Context(), req, audio)
	switch {
	case errors.Is(err, app.ErrNoTranscriber):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		observe.Logger(r.Context()).Warn("api: audio turn failed", "user", user, "err", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) readAudio(w http.ResponseWriter, r *http.Request) (stt.Audio, error) {
	q := r.URL.Query()
	format := stt.FormatWAV
	switch ct := strings.ToLower(r.Header.Get("Content-Type")); {
	case q.Get("format") != "":
		format = q.Get("format")
	case strings.HasPrefix(ct, "audio/l16"), strings.HasPrefix(ct, "audio/pcm"):
		format = stt.FormatPCM16
	}
	if format != stt.FormatWAV && format != stt.FormatPCM16 {
		return stt.Audio{}, fmt.Errorf("unsupported audio format %q", format)
	}

	audio := stt.Audio{Format: format}
	if v := q.Get("sample_rate"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return stt.Audio{}, fmt.Errorf("invalid sample_rate %q", v)
		}
		audio.SampleRate = n
	}
	if v := q.Get("channels"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return stt.Audio{}, fmt.Errorf("invalid channels %q", v)
		}
		audio.Channels = n
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxAudioBytes))
	if err != nil {
		return stt.Audio{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return stt.Audio{}, errors.New("empty audio body")
	}
	audio.Data = data
	return audio, nil
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeStart(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.StartGame(r.Context(), req.User, req.Category))
}

func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeStart(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.StartDrill(r.Context(), req.User, req.Category))
}

func decodeStart(w http.ResponseWriter, r *http.Request, req *startRequest) bool {
	if !decode(w, r, req) {
		return false
	}
	if strings.TrimSpace(req.User) == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return false
	}
	return true
}

// assignResponse is the body returned by POST /v1/assignments. Response is
// the first prompt of a guided session.
type assignResponse struct {
	Status   string             `json:"status"`
	Response *dialogue.Response `json:"response,omitempty"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var asg memory.Assignment
	if !decode(w, r, &asg) {
		return
	}
	resp, err := s.svc.Assign(r.Context(), asg)
	switch {
	case errors.Is(err, app.ErrInvalidAssignment):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		observe.Logger(r.Context()).Error("api: assignment failed", "user", asg.Username, "err", err)
		writeError(w, http.StatusInternalServerError, "assignment could not be stored")
		return
	}
	out := assignResponse{Status: "assigned"}
	if resp.Reply != "" {
		out.Response = &resp
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	a, err := s.svc.Progress(r.Context(), user)
	if err != nil {
		observe.Logger(r.Context()).Warn("api: progress unavailable", "user", user, "err", err)
		writeError(w, http.StatusServiceUnavailable, "progress unavailable")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.svc.Logout(r.PathValue("user"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	word := strings.TrimSpace(r.URL.Query().Get("word"))
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	res, ok := s.svc.Resolve(word)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no symbol for %q", word))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k := defaultSuggestK
	if v := q.Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid k %q", v))
			return
		}
		k = n
	}
	writeJSON(w, http.StatusOK, s.svc.Suggest(r.Context(), q.Get("text"), k))
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	cats := s.svc.Categories()
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
