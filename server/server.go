package server // import "github.com/johnyfernandes/shlf-sync/server"

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	v1 "github.com/johnyfernandes/shlf-sync/api/v1"
	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/sync"
	"github.com/johnyfernandes/shlf-sync/version"
)

// StartServer starts the HTTP server carrying both the local control API and
// the peer-facing sync routes.
func StartServer(ctx context.Context, apiHandler *v1.Handler, syncHandler *sync.Handler, store *store.Store) (*http.Server, error) {
	addr := config.Opts.Host
	port := config.Opts.Port
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", addr, port),
		Handler: setupHandler(apiHandler, syncHandler, store),
	}

	startHTTPServer(server)

	return server, nil
}

func startHTTPServer(server *http.Server) {
	go func() {
		fmt.Println("Starting HTTP server in:", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Println("HTTP server error", err)
			os.Exit(1)
		}
	}()
}

func setupHandler(apiHandler *v1.Handler, syncHandler *sync.Handler, store *store.Store) http.Handler {
	router := mux.NewRouter()

	v1.Server(router, apiHandler)
	sync.Server(router, syncHandler)

	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(); err != nil {
			http.Error(w, "Database Connection Error", http.StatusInternalServerError)
			return
		}

		w.Write([]byte("OK"))
	}).Name("healthcheck")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(version.GetCurrentVersion()))
	}).Name("version")

	return router
}
