// Package httpapi exposes the track, search and user workflows over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"trackvault/internal/app/search"
	"trackvault/internal/app/tracks"
	"trackvault/internal/auth"
	"trackvault/internal/catalog"
	"trackvault/internal/http/middleware"
	"trackvault/internal/logging"
	"trackvault/internal/streaming"
)

// TrackService captures the track workflows needed by the HTTP handlers.
type TrackService interface {
	Upload(ctx context.Context, mr *multipart.Reader, owner string) ([]string, error)
	Validate(ctx context.Context, mr *multipart.Reader) (catalog.ParsedTrack, error)
	Remove(ctx context.Context, trackID string, user catalog.User) (tracks.Removed, error)
	Cover(ctx context.Context, trackID string) (catalog.Cover, error)
}

// StreamService opens byte windows over stored audio.
type StreamService interface {
	Open(ctx context.Context, trackID, rangeHeader string) (*streaming.Window, error)
}

// SearchService answers phrase and id lookups.
type SearchService interface {
	Search(ctx context.Context, phrase string) ([]search.Result, error)
	ByID(ctx context.Context, id string) (search.Result, error)
}

// UserService resolves request tokens to users.
type UserService interface {
	Authenticate(ctx context.Context, token string) (catalog.User, error)
}

// DefaultMaxUploadBytes bounds a multipart upload body.
const DefaultMaxUploadBytes int64 = 1 << 30

// Server wires HTTP handlers to the underlying services.
type Server struct {
	tracks    TrackService
	streams   StreamService
	search    SearchService
	users     UserService
	log       zerolog.Logger
	maxUpload int64
}

// New configures a Server. A non-positive maxUpload selects
// DefaultMaxUploadBytes.
func New(
	tracks TrackService,
	streams StreamService,
	search SearchService,
	users UserService,
	log zerolog.Logger,
	maxUpload int64,
) *Server {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Server{
		tracks:    tracks,
		streams:   streams,
		search:    search,
		users:     users,
		log:       log,
		maxUpload: maxUpload,
	}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/track", s.authenticated(s.handleUpload)).Methods(http.MethodPost)
	router.HandleFunc("/track/validate", s.authenticated(s.handleValidate)).Methods(http.MethodPost)
	router.HandleFunc("/track/stream/{id}", s.authenticated(s.handleStream)).Methods(http.MethodGet)
	router.HandleFunc("/track/cover/{id}", s.authenticated(s.handleCover)).Methods(http.MethodGet)
	router.HandleFunc("/track/{id}", s.authenticated(s.handleRemove)).Methods(http.MethodDelete)

	router.HandleFunc("/search/id/{id}", s.authenticated(s.handleSearchByID)).Methods(http.MethodGet)
	router.HandleFunc("/search/{phrase}", s.authenticated(s.handleSearch)).Methods(http.MethodGet)

	router.HandleFunc("/user", s.authenticated(s.handleUser)).Methods(http.MethodGet)

	return router
}

// Handler wraps Routes with recovery, request logging and CORS.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	var h http.Handler = s.Routes()
	h = middleware.CORS(allowedOrigins)(h)
	h = middleware.RequestLogging(s.log)(h)
	h = middleware.Recovery(s.log)(h)
	return h
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user catalog.User)

func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing token"})
			return
		}
		user, err := s.users.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), logging.UserIDKey, user.ID)
		next(w, r.WithContext(ctx), user)
	}
}

// requestToken reads the token from the jwt query parameter, falling back to
// an Authorization bearer header.
func requestToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("jwt")); token != "" {
		return token
	}
	return parseBearerToken(r.Header.Get("Authorization"))
}

func parseBearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type errorResponse struct {
	Error          string          `json:"error"`
	AdditionalData *additionalData `json:"additionalData,omitempty"`
}

type additionalData struct {
	ParsedTrack *catalog.ParsedTrack `json:"parsedTrack,omitempty"`
}

// writeError maps service errors to statuses. Unexpected failures are
// logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, tracks.ErrTrackExists):
		status = http.StatusConflict
	case errors.Is(err, tracks.ErrMalformedUpload),
		errors.Is(err, tracks.ErrNoFiles),
		errors.Is(err, tracks.ErrInvalidTrack),
		errors.Is(err, tracks.ErrParse),
		errors.Is(err, tracks.ErrTrackNotFound),
		errors.Is(err, tracks.ErrForbidden),
		errors.Is(err, search.ErrPhraseTooShort),
		errors.Is(err, search.ErrInvalidID):
		status = http.StatusBadRequest
	case errors.Is(err, tracks.ErrCoverNotFound),
		errors.Is(err, streaming.ErrNotFound),
		errors.Is(err, search.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, streaming.ErrRangeNotSatisfiable):
		status = http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		status = 499
	}

	if status >= http.StatusInternalServerError {
		log := logging.WithContext(r.Context(), s.log)
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	resp := errorResponse{Error: err.Error()}
	var rej *tracks.RejectionError
	if errors.As(err, &rej) {
		if rej.Message != "" {
			resp.Error = rej.Message
		}
		if rej.Track != nil {
			resp.AdditionalData = &additionalData{ParsedTrack: rej.Track}
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
