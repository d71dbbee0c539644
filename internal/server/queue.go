package server

import (
	"net/http"

	"github.com/sells-group/article-digest/internal/queue"
)

type enqueueRequest struct {
	URL         string  `json:"url"`
	URLs        urlList `json:"urls"`
	SubmittedBy string  `json:"submittedBy"`
	Source      string  `json:"source"`
}

func (s *Server) handleListQueue(w http.ResponseWriter, _ *http.Request) {
	pending, err := s.queue.Pending()
	if err != nil {
		writeErr(w, err, "Queue unavailable")
		return
	}
	if pending == nil {
		pending = []queue.Entry{}
	}
	writeData(w, map[string]any{"pending": pending, "queueLength": len(pending)})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	urls := req.URLs
	if req.URL != "" {
		urls = append([]string{req.URL}, urls...)
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	submittedBy := req.SubmittedBy
	if submittedBy == "" {
		submittedBy = actorFrom(r)
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	results := make([]queue.EnqueueResult, 0, len(urls))
	for _, u := range urls {
		res, err := s.queue.Enqueue(queue.Submission{
			URL:          u,
			SubmittedBy:  submittedBy,
			Source:       source,
			OriginalText: u,
		})
		if err != nil {
			writeErr(w, err, "Queue unavailable")
			return
		}
		results = append(results, res)
	}
	writeData(w, results)
}
