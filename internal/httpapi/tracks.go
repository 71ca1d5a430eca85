package httpapi

import (
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"trackvault/internal/catalog"
	"trackvault/internal/logging"
)

func (s *Server) multipartReader(w http.ResponseWriter, r *http.Request) (*multipart.Reader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected multipart/form-data body"})
		return nil, false
	}
	return mr, true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user catalog.User) {
	mr, ok := s.multipartReader(w, r)
	if !ok {
		return
	}

	blobIDs, err := s.tracks.Upload(r.Context(), mr, user.ID)
	if err != nil {
		log := logging.WithContext(r.Context(), s.log)
		log.Warn().Err(err).Msg("upload rejected")
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blobIDs)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request, _ catalog.User) {
	mr, ok := s.multipartReader(w, r)
	if !ok {
		return
	}

	pt, err := s.tracks.Validate(r.Context(), mr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pt)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, user catalog.User) {
	removed, err := s.tracks.Remove(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request, _ catalog.User) {
	cover, err := s.tracks.Cover(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cover)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, _ catalog.User) {
	win, err := s.streams.Open(r.Context(), mux.Vars(r)["id"], r.Header.Get("Range"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := win.Serve(w); err != nil {
		// Headers are already sent.
		log := logging.WithContext(r.Context(), s.log)
		log.Debug().Err(err).Msg("stream interrupted")
	}
}
