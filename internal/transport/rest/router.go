package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"formgate/internal/config"
	"formgate/internal/service"
	"formgate/internal/transport/rest/handler"
	"formgate/internal/transport/rest/middleware"
	"formgate/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	FormService       *service.FormService
	ResponseService   *service.ResponseService
	SupervisorService *service.SupervisorService
	WSHub             *ws.Hub
	CORS              config.CORSConfig
	MaxUploadBytes    int64
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	formHandler := handler.NewFormHandler(c.FormService)
	responseHandler := handler.NewResponseHandler(c.ResponseService, c.MaxUploadBytes)
	supervisorHandler := handler.NewSupervisorHandler(c.SupervisorService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.ResponseService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/forms", formHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/forms/{formId}", formHandler.Get).Methods("GET", "OPTIONS")

	// Respondent routes (the session token is the credential)
	v1.HandleFunc("/responses/start", responseHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/{token}", responseHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/responses/{token}/save", responseHandler.Save).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/{token}/answers/{questionId}/file", responseHandler.UploadFile).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/{token}/visibility", responseHandler.Visibility).Methods("GET", "OPTIONS")
	v1.HandleFunc("/responses/{token}/submit", responseHandler.Submit).Methods("POST", "OPTIONS")

	// WebSocket routes
	v1.HandleFunc("/ws/responses/{token}", wsHandler.SessionWS).Methods("GET")
	v1.HandleFunc("/ws/forms/{formId}/supervisor", wsHandler.SupervisorWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Operator routes (require operator auth)
	opRoutes := v1.NewRoute().Subrouter()
	opRoutes.Use(authMW.RequireOperator)

	opRoutes.HandleFunc("/forms", formHandler.Create).Methods("POST", "OPTIONS")
	opRoutes.HandleFunc("/forms/{formId}", formHandler.Update).Methods("PUT", "OPTIONS")
	opRoutes.HandleFunc("/forms/{formId}", formHandler.Delete).Methods("DELETE", "OPTIONS")
	opRoutes.HandleFunc("/forms/{formId}/lint", formHandler.Lint).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/forms/{formId}/questions", formHandler.ListQuestions).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/forms/{formId}/questions", formHandler.AddQuestion).Methods("POST", "OPTIONS")
	opRoutes.HandleFunc("/questions/{questionId}", formHandler.GetQuestion).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/questions/{questionId}", formHandler.UpdateQuestion).Methods("PUT", "OPTIONS")
	opRoutes.HandleFunc("/questions/{questionId}", formHandler.DeleteQuestion).Methods("DELETE", "OPTIONS")

	// Supervisor routes (operator only)
	opRoutes.HandleFunc("/supervisor/responses", supervisorHandler.List).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/supervisor/responses/{id}", supervisorHandler.Get).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/supervisor/files/{fileId}", supervisorHandler.File).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/supervisor/stats", supervisorHandler.Stats).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(cfg config.CORSConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
