package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/school"
	"github.com/madrasa-app/madrasa/core/store"
)

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	reg := opts.Registry

	registerCollectionAPI(g, "/students", reg.Students, jwt,
		permissionMiddleware(school.PermViewStudents), adminMiddleware())
	registerCollectionAPI(g, "/teachers", reg.Teachers, jwt, nil, adminMiddleware())
	noticeApi := collectionApi[school.Notice]{st: reg.Notices}
	if opts.Notices != nil {
		noticeApi.created = opts.Notices.Broadcast
	}
	mountCollectionAPI(g, "/notices", noticeApi, jwt,
		permissionMiddleware(school.PermViewNotices), permissionMiddleware(school.PermPostNotices))
	registerCollectionAPI(g, "/events", reg.Events, jwt, nil, adminMiddleware())
	registerCollectionAPI(g, "/exam-results", reg.Exams, jwt,
		permissionMiddleware(school.PermViewMarks), permissionMiddleware(school.PermEditMarks))
	registerCollectionAPI(g, "/library-issues", reg.Library, jwt, nil, adminMiddleware())
	registerCollectionAPI(g, "/hostel-residents", reg.Hostel, jwt, nil, adminMiddleware())
	registerCollectionAPI(g, "/transport-users", reg.Transport, jwt, nil, adminMiddleware())

	registerAdmissionsAPI(g, jwt, opts)
	registerReportsAPI(g, jwt, opts)
}

// registerCollectionAPI mounts list/retrieve/create/update/delete handlers for
// a collection. readMW guards the read endpoints (nil means any authenticated
// user), writeMW guards the write endpoints.
func registerCollectionAPI[T store.Keyed](
	g *echo.Group,
	path string,
	st *store.Store[T],
	jwt echo.MiddlewareFunc,
	readMW, writeMW echo.MiddlewareFunc,
) {
	mountCollectionAPI(g, path, collectionApi[T]{st: st}, jwt, readMW, writeMW)
}

func mountCollectionAPI[T store.Keyed](
	g *echo.Group,
	path string,
	api collectionApi[T],
	jwt echo.MiddlewareFunc,
	readMW, writeMW echo.MiddlewareFunc,
) {
	rg := g.Group(path, jwt)
	if readMW != nil {
		rg = g.Group(path, jwt, readMW)
	}
	rg.GET("", api.list)
	rg.GET("/:id", api.retrieve)

	wg := g.Group(path, jwt, writeMW)
	wg.POST("", api.create)
	wg.PATCH("/:id", api.update)
	wg.DELETE("/:id", api.destroy)
}

type collectionApi[T store.Keyed] struct {
	st      *store.Store[T]
	created func(T) // optional post-create hook
}

func (api *collectionApi[T]) list(ctx echo.Context) error {
	items := api.st.GetAll()
	if items == nil {
		items = []T{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *collectionApi[T]) retrieve(ctx echo.Context) error {
	item, ok := api.st.GetByID(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *collectionApi[T]) create(ctx echo.Context) error {
	var item T
	if err := ctx.Bind(&item); err != nil {
		return errors.Wrap(err, "binding record")
	}
	item, err := withID(item)
	if err != nil {
		return errors.Wrap(err, "assigning record id")
	}
	if err := core.Validate.Struct(item); err != nil {
		return err
	}

	if !api.st.Add(item) {
		return core.NewValidationError(errors.New("could not save record"))
	}
	if api.created != nil {
		api.created(item)
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *collectionApi[T]) update(ctx echo.Context) error {
	var fields map[string]interface{}
	if err := ctx.Bind(&fields); err != nil {
		return errors.Wrap(err, "binding record fields")
	}

	id := ctx.Param("id")
	if !api.st.Patch(id, fields) {
		return errHttpNotFound
	}
	item, ok := api.st.GetByID(id)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *collectionApi[T]) destroy(ctx echo.Context) error {
	if _, ok := api.st.GetByID(ctx.Param("id")); !ok {
		return errHttpNotFound
	}
	if !api.st.Delete(ctx.Param("id")) {
		return errors.New("deleting record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// withID fills in a fresh UUID when the bound record carries no id.
func withID[T store.Keyed](item T) (T, error) {
	if item.Key() != "" {
		return item, nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return item, err
	}
	var fields map[string]interface{}
	if err = json.Unmarshal(raw, &fields); err != nil {
		return item, err
	}
	fields["id"] = uuid.New().String()
	raw, err = json.Marshal(fields)
	if err != nil {
		return item, err
	}
	var out T
	if err = json.Unmarshal(raw, &out); err != nil {
		return item, err
	}
	return out, nil
}

// Admissions

type admissionsApi struct {
	svc *school.AdmissionService
	reg *school.Registry
}

func registerAdmissionsAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := admissionsApi{svc: opts.Admissions, reg: opts.Registry}

	ag := g.Group("/admissions")

	// applicants apply without an account
	ag.POST("", api.submit)

	mg := ag.Group("", jwt, adminMiddleware())
	mg.GET("", api.query)
	mg.GET("/:id", api.retrieve)
	mg.POST("/:id/approve", api.approve)
	mg.POST("/:id/reject", api.reject)
}

func (api *admissionsApi) submit(ctx echo.Context) error {
	var data school.AdmissionApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdmissionApplication")
	}
	app, err := api.svc.Submit(data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *admissionsApi) query(ctx echo.Context) error {
	apps := api.reg.Admissions.GetAll()
	if apps == nil {
		apps = []school.AdmissionApplication{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *admissionsApi) retrieve(ctx echo.Context) error {
	app, ok := api.reg.Admissions.GetByID(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionsApi) approve(ctx echo.Context) error { return api.decide(ctx, true) }
func (api *admissionsApi) reject(ctx echo.Context) error  { return api.decide(ctx, false) }

func (api *admissionsApi) decide(ctx echo.Context, approve bool) error {
	var data DecisionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecisionRequest")
	}

	app, err := api.svc.Decide(ctx.Param("id"), approve, data.Note)
	if err != nil {
		switch errors.Cause(err) {
		case school.ErrApplicationNotFound:
			return errHttpNotFound
		case school.ErrAlreadyDecided:
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "deciding application")
	}
	return ctx.JSON(http.StatusOK, app)
}

// Reports

func registerReportsAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	g.GET("/reports/dashboard", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, opts.Reports.Dashboard())
	}, jwt)
}
