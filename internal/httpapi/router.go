package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"dispatchops/api/internal/config"
	"dispatchops/api/internal/dispatch"
	"dispatchops/api/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Store  *dispatch.Store
	Config config.Config
	Logger logrus.FieldLogger
}

type App struct {
	store    *dispatch.Store
	log      logrus.FieldLogger
	validate *validator.Validate
	gate     *gate
}

func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	app := &App{
		store:    deps.Store,
		log:      deps.Logger.WithField("module", "httpapi"),
		validate: newValidator(),
		gate:     newGate(deps.Config.PasscodeHash, deps.Config.CookieSecure),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Requests(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/gate", app.handleGate)
		api.Delete("/gate", app.handleGateClose)

		api.Group(func(pr chi.Router) {
			pr.Use(app.gate.middleware)
			pr.Route("/dispatch", func(d chi.Router) {
				d.Get("/board", app.handleBoard)
				d.Get("/map/pickup", app.handlePickupMap)
				d.Get("/map/delivery", app.handleDeliveryMap)
				d.Post("/sellers/{name}/picked-up", app.handleMarkPickedUp)
				d.Post("/customers/{name}/delivered", app.handleMarkDelivered)
				d.Post("/status", app.handleStatus)
				d.Post("/reload", app.handleReload)
				d.Post("/upload", app.handleUpload)
				d.Get("/events", app.handleEvents)
			})
		})
	})

	return r
}

// ---------- helpers ----------

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	var e apiError
	e.Error.Code = code
	e.Error.Message = message
	writeJSON(w, status, e)
}

// writeStoreError maps dispatch errors onto the API envelope. Anything not
// recognised came from the order source and is reported as a bad gateway.
func (a *App) writeStoreError(w http.ResponseWriter, fn string, err error) {
	switch {
	case errors.Is(err, dispatch.ErrSellerNotFound),
		errors.Is(err, dispatch.ErrCustomerNotFound),
		errors.Is(err, dispatch.ErrNothingToUpdate):
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, dispatch.ErrInvalidTransition):
		writeAPIError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, dispatch.ErrNoFeed):
		writeAPIError(w, http.StatusConflict, "NO_SOURCE", err.Error())
	default:
		logger.LogError(a.log, "httpapi", fn, err, nil)
		writeAPIError(w, http.StatusBadGateway, "UPSTREAM", "order source rejected the request")
	}
}

func (a *App) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json")
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", validationMessage(err))
		return false
	}
	return true
}

// newValidator reports fields by their json names and adds the
// dispatch_status rule for target statuses a driver may set.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("dispatch_status", func(fl validator.FieldLevel) bool {
		switch dispatch.ParseStatus(fl.Field().String()) {
		case dispatch.StatusPickedUp, dispatch.StatusDelivered:
			return true
		}
		return false
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must have at least " + fe.Param() + " entries"
	case "dispatch_status":
		return fe.Field() + ` must be "picked up" or "delivered"`
	default:
		return fe.Field() + " is invalid"
	}
}
