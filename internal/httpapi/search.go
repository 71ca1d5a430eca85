package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"trackvault/internal/catalog"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, _ catalog.User) {
	results, err := s.search.Search(r.Context(), mux.Vars(r)["phrase"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchByID(w http.ResponseWriter, r *http.Request, _ catalog.User) {
	result, err := s.search.ByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request, user catalog.User) {
	writeJSON(w, http.StatusOK, user)
}
