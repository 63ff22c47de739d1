package handlers

import (
	"net/http"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	apierr "github.com/Brownie44l1/deepbark-api/internal/errors"
	"github.com/Brownie44l1/deepbark-api/internal/logging"
)

const uploadsPrefix = "/static/uploads/"

// NewRouter registers the API. uploadsDir, when set, is served under
// /static/uploads/.
func NewRouter(h *Handler, uploadsDir string) *mux.Router {
	router := mux.NewRouter()

	router.Methods(http.MethodGet).Path("/").HandlerFunc(h.Index)
	router.Methods(http.MethodGet).Path("/health").HandlerFunc(h.Health)
	router.Methods(http.MethodGet).Path("/breeds").HandlerFunc(h.Breeds)
	router.Methods(http.MethodGet).Path("/breeds/search").HandlerFunc(h.SearchBreeds)
	router.Methods(http.MethodPost).Path("/classify").HandlerFunc(h.Classify)
	router.Methods(http.MethodPost).Path("/predict").HandlerFunc(h.Predict)

	if uploadsDir != "" {
		router.Methods(http.MethodGet).PathPrefix(uploadsPrefix).
			Handler(http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(uploadsDir))))
	}

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, apierr.ErrorInfo{Message: "Method not allowed"})
	})

	return router
}

// WithMiddleware adds CORS, request IDs, access logging and panic recovery.
func WithMiddleware(next http.Handler, debug bool) http.Handler {
	next = ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{"*"}),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type"}),
	)(next)
	next = logging.RequestID(next)
	next = ghandlers.CombinedLoggingHandler(logrus.StandardLogger().WriterLevel(logrus.InfoLevel), next)
	next = ghandlers.RecoveryHandler(
		ghandlers.RecoveryLogger(logrus.StandardLogger()),
		ghandlers.PrintRecoveryStack(debug),
	)(next)
	return next
}
