package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/executive"
)

type PlanningService interface {
	AddRibbon(ctx context.Context, x1, y1, x2, y2 float64) error
	ClearRibbons(ctx context.Context) error
	UpdateVehicleState(ctx context.Context, x, y, heading, speed, t float64) error
	UpdateContact(ctx context.Context, id uint32, state datastructure.State) error
	RemoveContact(ctx context.Context, id uint32) error
	RefreshMap(ctx context.Context, path string, lat, lon float64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Configure(ctx context.Context, cfg executive.VehicleConfig) error
	CurrentPlan(ctx context.Context) (string, bool, float64, float64, error)
	Status(ctx context.Context) (bool, int, float64, string, error)
}

type PlannerHandler struct {
	svc          PlanningService
	promeMetrics *metrics
}

func PlannerRouter(r *chi.Mux, svc PlanningService, m *metrics) {
	handler := &PlannerHandler{svc, m}

	r.Group(func(r chi.Router) {
		r.Route("/api/planner", func(r chi.Router) {
			r.Post("/ribbons", handler.addRibbon)
			r.Delete("/ribbons", handler.clearRibbons)
			r.Post("/vehicle", handler.updateVehicleState)
			r.Post("/contacts", handler.updateContact)
			r.Delete("/contacts/{id}", handler.removeContact)
			r.Post("/map", handler.refreshMap)
			r.Post("/pause", handler.pause)
			r.Post("/resume", handler.resume)
			r.Post("/configuration", handler.configure)
			r.Get("/plan", handler.currentPlan)
			r.Get("/status", handler.status)
		})
	})
}

// AddRibbonRequest is a coverage line to sweep, endpoints in local meters.
type AddRibbonRequest struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (s *AddRibbonRequest) Bind(r *http.Request) error {
	if s.X1 == s.X2 && s.Y1 == s.Y2 {
		return errors.New("ribbon endpoints must differ")
	}
	return nil
}

func (h *PlannerHandler) addRibbon(w http.ResponseWriter, r *http.Request) {
	data := &AddRibbonRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := h.svc.AddRibbon(r.Context(), data.X1, data.Y1, data.X2, data.Y2); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"status": "ribbon added"})
}

func (h *PlannerHandler) clearRibbons(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearRibbons(r.Context()); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ribbons cleared"})
}

// VehicleStateRequest is an observed vehicle state from the estimator.
type VehicleStateRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed" validate:"gte=0"`
	Time    float64 `json:"time" validate:"required,gt=0"`
}

func (s *VehicleStateRequest) Bind(r *http.Request) error {
	return nil
}

func (h *PlannerHandler) updateVehicleState(w http.ResponseWriter, r *http.Request) {
	data := &VehicleStateRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	if err := h.svc.UpdateVehicleState(r.Context(), data.X, data.Y, data.Heading, data.Speed, data.Time); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "vehicle state updated"})
}

// ContactRequest is an observed dynamic obstacle.
type ContactRequest struct {
	ID      uint32  `json:"id" validate:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed" validate:"gte=0"`
	Time    float64 `json:"time" validate:"required,gt=0"`
}

func (s *ContactRequest) Bind(r *http.Request) error {
	return nil
}

func (h *PlannerHandler) updateContact(w http.ResponseWriter, r *http.Request) {
	data := &ContactRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	state := datastructure.State{X: data.X, Y: data.Y, Heading: data.Heading, Speed: data.Speed, Time: data.Time}
	if err := h.svc.UpdateContact(r.Context(), data.ID, state); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "contact updated"})
}

func (h *PlannerHandler) removeContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(errors.New("contact id must be an unsigned integer")))
		return
	}

	if err := h.svc.RemoveContact(r.Context(), uint32(id)); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "contact removed"})
}

// MapRefreshRequest points the executive at a new map file.
type MapRefreshRequest struct {
	Path string  `json:"path" validate:"required"`
	Lat  float64 `json:"lat" validate:"lt=90,gt=-90"`
	Lon  float64 `json:"lon" validate:"lt=180,gt=-180"`
}

func (s *MapRefreshRequest) Bind(r *http.Request) error {
	if s.Path == "" {
		return errors.New("invalid request")
	}
	return nil
}

func (h *PlannerHandler) refreshMap(w http.ResponseWriter, r *http.Request) {
	data := &MapRefreshRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	if err := h.svc.RefreshMap(r.Context(), data.Path, data.Lat, data.Lon); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "map refresh started"})
}

func (h *PlannerHandler) pause(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Pause(r.Context()); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "paused"})
}

func (h *PlannerHandler) resume(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Resume(r.Context()); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "resumed"})
}

// ConfigureRequest sets the vehicle dynamics and the planning windows.
type ConfigureRequest struct {
	MaxSpeed              float64 `json:"max_speed" validate:"required,gt=0"`
	TurningRadius         float64 `json:"turning_radius" validate:"required,gt=0"`
	CoverageMaxSpeed      float64 `json:"coverage_max_speed" validate:"gte=0"`
	CoverageTurningRadius float64 `json:"coverage_turning_radius" validate:"gte=0"`
	TimeHorizon           float64 `json:"time_horizon" validate:"required,gt=0"`
	TimeMinimum           float64 `json:"time_minimum" validate:"gte=0"`
}

func (s *ConfigureRequest) Bind(r *http.Request) error {
	if s.MaxSpeed == 0 || s.TurningRadius == 0 || s.TimeHorizon == 0 {
		return errors.New("invalid request")
	}
	return nil
}

func (h *PlannerHandler) configure(w http.ResponseWriter, r *http.Request) {
	data := &ConfigureRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	cfg := executive.VehicleConfig{
		MaxSpeed:              data.MaxSpeed,
		TurningRadius:         data.TurningRadius,
		CoverageMaxSpeed:      data.CoverageMaxSpeed,
		CoverageTurningRadius: data.CoverageTurningRadius,
		TimeHorizon:           data.TimeHorizon,
		TimeMinimum:           data.TimeMinimum,
	}
	if err := h.svc.Configure(r.Context(), cfg); err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "configuration updated"})
}

// PlanResponse carries the current plan as an encoded polyline.
type PlanResponse struct {
	Path    string  `json:"path"`
	Done    bool    `json:"done"`
	EndTime float64 `json:"end_time"`
	Cost    float64 `json:"cost"`
}

func (h *PlannerHandler) currentPlan(w http.ResponseWriter, r *http.Request) {
	path, done, endTime, cost, err := h.svc.CurrentPlan(r.Context())
	if err != nil {
		h.promeMetrics.PlanQueryCount.WithLabelValues("false").Inc()
		render.Render(w, r, ErrChi(err))
		return
	}

	h.promeMetrics.PlanQueryCount.WithLabelValues("true").Inc()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, PlanResponse{Path: path, Done: done, EndTime: endTime, Cost: cost})
}

// StatusResponse summarizes the executive's state.
type StatusResponse struct {
	Paused          bool    `json:"paused"`
	Ribbons         int     `json:"ribbons"`
	UncoveredLength float64 `json:"uncovered_length"`
	Error           string  `json:"error,omitempty"`
}

func (h *PlannerHandler) status(w http.ResponseWriter, r *http.Request) {
	paused, ribbons, uncovered, errText, err := h.svc.Status(r.Context())
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, StatusResponse{
		Paused:          paused,
		Ribbons:         ribbons,
		UncoveredLength: uncovered,
		Error:           errText,
	})
}

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 422,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

func ErrChi(err error) render.Renderer {
	statusText := ""
	switch getStatusCode(err) {
	case http.StatusNotFound:
		statusText = "Resource not found."
	case http.StatusInternalServerError:
		statusText = "Internal server error."
	case http.StatusBadRequest:
		statusText = "Bad request."
	default:
		statusText = "Error."
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: getStatusCode(err),
		StatusText:     statusText,
		ErrorText:      err.Error(),
	}
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ierr *domain.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	}
	switch ierr.Code() {
	case domain.ErrInternalServerError:
		return http.StatusInternalServerError
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrBadParamInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := errors.New(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}
