package monitor

import (
	"fmt"
	"net/http"
	"time"
)

// handleStream serves one frame output as MJPEG until the client leaves.
// Frames repeat at the stream interval; a sequence that has not advanced
// is not resent.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !isFrameName(name) {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown output %q", name))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		report, ok := s.outputs.Report()
		if !ok || report.Sequence == lastSeq {
			continue
		}
		data, err := s.frameJPEG(name)
		if err != nil {
			continue
		}
		lastSeq = report.Sequence

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
