package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"docstore-handles/internal/handlers"
	"docstore-handles/internal/server"
)

// Router builds the HTTP handler serving the cache.
func (app *App) Router() http.Handler {
	h := handlers.New(app.Cache, app.Driver.GetType(), app.Logger)

	router := mux.NewRouter()
	app.SetupRoutes(router, h)
	return router
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	return server.New(app.Router(), app.Config.Port, app.Logger)
}
