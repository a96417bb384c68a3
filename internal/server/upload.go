package server

import (
	"io"
	"net/http"

	"moodchat/internal/message"
)

// handleUpload accepts a multipart image under the "image" field, stores
// it through the uploader, and returns the public URL the client should
// persist on the message row.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		s.metrics.UploadFailures.Inc()
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.metrics.UploadFailures.Inc()
		http.Error(w, "could not read upload", http.StatusBadRequest)
		return
	}
	att := &message.Attachment{
		Name: header.Filename,
		Mime: header.Header.Get("Content-Type"),
		Data: data,
	}
	url, err := s.uploader.Upload(r.Context(), att)
	if err != nil {
		s.metrics.UploadFailures.Inc()
		writeError(w, err)
		return
	}
	s.metrics.Uploads.Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
