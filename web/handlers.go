package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/capture"
	"github.com/serwidlick/backstage/logs"
	"github.com/serwidlick/backstage/persist"
)

const (
	// DefaultQueryLimit applies when GET /logs has no limit parameter
	DefaultQueryLimit = 100

	// MaxQueryLimit caps the limit parameter
	MaxQueryLimit = 1000
)

var errBadParam = errors.New("invalid query parameter")

type handlers struct {
	console *backstage.Console
}

// getStatus handles GET /api/v1/status
func (h *handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.console.Status()))
}

// getLogs handles GET /api/v1/logs
func (h *handlers) getLogs(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, total := h.console.Store().Query(criteria)

	resp := LogsResponse{
		Entries:    make([]EntryResponse, len(entries)),
		TotalCount: total,
		Limit:      criteria.Limit,
		Offset:     criteria.Offset,
	}
	for i, e := range entries {
		resp.Entries[i] = toEntryResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

// postLog handles POST /api/v1/logs: direct entry injection
func (h *handlers) postLog(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body", Code: CodeInvalidBody})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "message is required", Code: CodeInvalidBody})
		return
	}

	level := logs.LevelInfo
	if req.Level != "" {
		parsed, err := logs.ParseLevel(req.Level)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidBody})
			return
		}
		level = parsed
	}

	var opts []logs.Option
	if req.Tag != "" {
		opts = append(opts, logs.WithTag(req.Tag))
	}
	if req.Stack != "" {
		opts = append(opts, logs.WithStack(req.Stack))
	}
	h.console.Store().Append(logs.New(level, req.Message, opts...))

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// clearLogs handles POST /api/v1/clear
func (h *handlers) clearLogs(w http.ResponseWriter, r *http.Request) {
	h.console.Store().Clear()
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// pause handles POST /api/v1/pause
func (h *handlers) pause(w http.ResponseWriter, r *http.Request) {
	h.console.Store().Pause()
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// resume handles POST /api/v1/resume
func (h *handlers) resume(w http.ResponseWriter, r *http.Request) {
	h.console.Store().Resume()
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// getEnabled handles GET /api/v1/enabled
func (h *handlers) getEnabled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, EnabledResponse{Enabled: h.console.Enabled()})
}

// setEnabled handles POST /api/v1/enabled. This route always works,
// disabled or not: it is both the remote kill switch and the
// programmatic way to turn the console on without the gesture gate.
func (h *handlers) setEnabled(w http.ResponseWriter, r *http.Request) {
	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "body must be {\"enabled\": true|false}", Code: CodeInvalidBody})
		return
	}

	if err := h.console.SetEnabled(r.Context(), *req.Enabled); err != nil {
		// The in-memory flag already changed; only persistence failed
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "enabled flag changed but could not be persisted",
			Code:  CodePersistenceUnavailable,
		})
		return
	}

	writeJSON(w, http.StatusOK, EnabledResponse{Enabled: *req.Enabled})
}

// gateTap handles POST /api/v1/gate/tap
func (h *handlers) gateTap(w http.ResponseWriter, r *http.Request) {
	h.console.Gate().Tap()
	writeJSON(w, http.StatusOK, toGateResponse(h.console.Gate().Snapshot()))
}

// gateLongPress handles POST /api/v1/gate/longpress
func (h *handlers) gateLongPress(w http.ResponseWriter, r *http.Request) {
	h.console.Gate().LongPress()
	writeJSON(w, http.StatusOK, toGateResponse(h.console.Gate().Snapshot()))
}

// gatePasscode handles POST /api/v1/gate/passcode
func (h *handlers) gatePasscode(w http.ResponseWriter, r *http.Request) {
	var req PasscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body", Code: CodeInvalidBody})
		return
	}

	unlocked, _ := h.console.Gate().Submit(req.Code)
	writeJSON(w, http.StatusOK, UnlockResponse{
		Unlocked: unlocked,
		Gate:     toGateResponse(h.console.Gate().Snapshot()),
	})
}

// gateAbandon handles POST /api/v1/gate/abandon
func (h *handlers) gateAbandon(w http.ResponseWriter, r *http.Request) {
	h.console.Gate().Abandon()
	writeJSON(w, http.StatusOK, toGateResponse(h.console.Gate().Snapshot()))
}

// parseCriteria maps query parameters onto logs.Criteria
func parseCriteria(r *http.Request) (logs.Criteria, error) {
	q := r.URL.Query()
	c := logs.Criteria{Limit: DefaultQueryLimit}

	if v := q.Get("min_level"); v != "" {
		level, err := logs.ParseLevel(v)
		if err != nil {
			return c, fmt.Errorf("%w: min_level: %v", errBadParam, err)
		}
		c.MinLevel = &level
	}

	c.Tag = q.Get("tag")
	c.Text = q.Get("q")

	if v := q.Get("regex"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%w: regex must be a boolean", errBadParam)
		}
		c.Regex = b
	}

	if v := q.Get("case"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%w: case must be a boolean", errBadParam)
		}
		c.CaseSensitive = b
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c, fmt.Errorf("%w: since must be RFC3339", errBadParam)
		}
		c.Since = t
	}

	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c, fmt.Errorf("%w: until must be RFC3339", errBadParam)
		}
		c.Until = t
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c, fmt.Errorf("%w: limit must be a non-negative integer", errBadParam)
		}
		if n > MaxQueryLimit {
			n = MaxQueryLimit
		}
		if n > 0 {
			c.Limit = n
		}
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c, fmt.Errorf("%w: offset must be a non-negative integer", errBadParam)
		}
		c.Offset = n
	}

	return c, nil
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to a status and code. Unknown errors are
// noted in the console itself and answered with a sanitized 500.
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadParam):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidParameter})
	case errors.Is(err, persist.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: CodePersistenceUnavailable})
	default:
		h.console.Logger().Tagged(capture.InternalTag).Debug("api error: " + err.Error())
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "an internal error occurred", Code: CodeInternal})
	}
}

// requestPath returns the method and path for panic notes
func requestPath(r *http.Request) string {
	return r.Method + " " + strings.TrimSuffix(r.URL.Path, "/")
}
