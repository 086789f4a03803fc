package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"dispatchops/api/internal/dispatch"
	"dispatchops/api/internal/source"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 10 << 20

func (a *App) handleBoard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newBoardView(a.store.Board()))
}

func (a *App) handlePickupMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newPickupMap(a.store.Board()))
}

func (a *App) handleDeliveryMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newDeliveryMap(a.store.Board()))
}

// nameParam returns the decoded {name} segment. chi hands back the escaped
// text when the request path carried escapes.
func nameParam(r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			return "", false
		}
	}
	name = strings.TrimSpace(name)
	return name, name != ""
}

func (a *App) handleMarkPickedUp(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(r)
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "seller name required")
		return
	}
	n, err := a.store.MarkPickedUp(r.Context(), name)
	if err != nil {
		a.writeStoreError(w, "handleMarkPickedUp", err)
		return
	}
	a.writeMutation(w, n, dispatch.StatusPickedUp)
}

// handleMarkDelivered delivers one customer card. ?scope=remote selects the
// cross-border card; local is the default.
func (a *App) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(r)
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "customer name required")
		return
	}
	var remote bool
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))) {
	case "", "local":
	case "remote":
		remote = true
	default:
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "scope must be local|remote")
		return
	}
	n, err := a.store.MarkDelivered(r.Context(), name, remote)
	if err != nil {
		a.writeStoreError(w, "handleMarkDelivered", err)
		return
	}
	a.writeMutation(w, n, dispatch.StatusDelivered)
}

type statusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required,dispatch_status"`
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if !a.decodeBody(w, r, &body) {
		return
	}
	to := dispatch.ParseStatus(body.Status)
	n, err := a.store.Transition(r.Context(), body.IDs, to)
	if err != nil {
		a.writeStoreError(w, "handleStatus", err)
		return
	}
	a.writeMutation(w, n, to)
}

func (a *App) writeMutation(w http.ResponseWriter, changed int, to dispatch.Status) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"status":  to.Display(),
		"changed": changed,
		"board":   newBoardView(a.store.Board()),
	})
}

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Reload(r.Context()); err != nil {
		a.writeStoreError(w, "handleReload", err)
		return
	}
	writeJSON(w, http.StatusOK, newBoardView(a.store.Board()))
}

// handleUpload replaces the session's orders with a JSON, CSV or XLSX file
// sent as the multipart field "file".
func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "multipart form with a file field required")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "file field required")
		return
	}
	defer f.Close()

	orders, err := source.ReadFile(header.Filename, f)
	switch {
	case errors.Is(err, source.ErrUnsupportedFile):
		writeAPIError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED", "upload .json, .csv or .xlsx")
		return
	case err != nil:
		a.log.WithError(err).WithField("file", header.Filename).Warn("upload rejected")
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read orders from file")
		return
	}

	a.store.Replace(orders)
	a.log.WithFields(logrus.Fields{"file": header.Filename, "orders": len(orders)}).Info("orders uploaded")
	writeJSON(w, http.StatusOK, newBoardView(a.store.Board()))
}
