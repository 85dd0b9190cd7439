package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/gzip"
	"github.com/iurnickita/ecosystem/internal/handler/config"
	"github.com/iurnickita/ecosystem/internal/logger"
	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/service"
)

func Serve(cfg config.Config, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	zaplog.Info("listening", zap.String("addr", cfg.ServerAddr))
	return srv.ListenAndServe()
}

type handler struct {
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/webhooks/order-completed", h.wrap(h.PostOrderCompleted))
	mux.HandleFunc("GET /api/logs", h.wrap(h.GetLogs))
	mux.HandleFunc("DELETE /api/logs", h.wrap(h.DeleteLogs))
	mux.HandleFunc("PUT /api/settings/logging", h.wrap(h.PutLogging))

	return mux
}

func (h *handler) wrap(f http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(f, h.zaplog))
}

// OrderWebhookRequest - тело вебхука WooCommerce, нужен только id.
type OrderWebhookRequest struct {
	ID int64 `json:"id"`
}

func (h *handler) PostOrderCompleted(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var orderJSON OrderWebhookRequest
	err = json.Unmarshal(buf.Bytes(), &orderJSON)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	property := model.PropertyID(r.URL.Query().Get("property"))
	err = h.service.OrderCompleted(r.Context(), orderJSON.ID, property)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientData):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.SyncLogs(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	responseJSON, err := json.Marshal(entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJSON)
}

func (h *handler) DeleteLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearLogs(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type PutLoggingJSONRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *handler) PutLogging(w http.ResponseWriter, r *http.Request) {
	var loggingJSON PutLoggingJSONRequest
	err := json.NewDecoder(r.Body).Decode(&loggingJSON)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if loggingJSON.Enabled == nil {
		http.Error(w, "enabled is required", http.StatusBadRequest)
		return
	}

	if err = h.service.SetLogging(r.Context(), *loggingJSON.Enabled); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
