package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/pipeline"
)

// urlList accepts either a JSON array of strings or a single string with
// one URL per line (or comma separated).
type urlList []string

func (u *urlList) UnmarshalJSON(b []byte) error {
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		*u = out
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*u = splitURLs(s)
	return nil
}

func splitURLs(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

type runOptions struct {
	DisableBrowser   *bool  `json:"disableBrowser"`
	ExpectedLanguage string `json:"expectedLanguage"`
}

type processRequest struct {
	URLs    urlList     `json:"urls"`
	Options *runOptions `json:"options"`
	runOptions
}

// options merges the request's run options over the server defaults. The
// nested options object wins over top-level fields.
func (s *Server) options(req processRequest) pipeline.Options {
	opts := s.defaults
	for _, o := range []*runOptions{&req.runOptions, req.Options} {
		if o == nil {
			continue
		}
		if o.DisableBrowser != nil {
			opts.DisableBrowser = *o.DisableBrowser
		}
		if o.ExpectedLanguage != "" {
			opts.ExpectedLanguage = o.ExpectedLanguage
		}
	}
	return opts
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "URLs array is required")
		return
	}

	result, err := s.proc.Process(r.Context(), req.URLs, s.options(req))
	if err != nil {
		writeErr(w, err, "No valid URLs provided")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"data":          result,
		"processedUrls": len(result.Records),
		"timestamp":     s.now().Format(time.RFC3339),
	})
}

// handleProcessStream writes one JSON event per line as each URL finishes.
// GET takes ?urls=a,b&disableBrowser=1&expectedLanguage=eng; POST takes the
// same body as /api/process. Closing the connection stops the run after the
// URL in flight.
func (s *Server) handleProcessStream(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		for _, v := range q["urls"] {
			req.URLs = append(req.URLs, splitURLs(v)...)
		}
		if v := q.Get("disableBrowser"); v != "" {
			b := v == "1" || strings.EqualFold(v, "true")
			req.DisableBrowser = &b
		}
		req.ExpectedLanguage = q.Get("expectedLanguage")
	} else if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one URL is required")
		return
	}

	events, err := s.proc.Stream(r.Context(), req.URLs, s.options(req))
	if err != nil {
		writeErr(w, err, "No valid URLs provided")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			zap.L().Debug("server: stream client gone", zap.Error(err))
			continue
		}
		_ = rc.Flush()
	}
}
