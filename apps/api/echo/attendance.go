package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

type attendanceApi struct {
	svc      academy.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc academy.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := attendanceApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.GET("", api.query)
	ag.POST("/bulk-upsert", api.bulkUpsert)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)

	dg := g.Group("/dashboard", jwt)
	dg.GET("/stats", api.sessionStats)
	dg.GET("/week-stats", api.weekStats)
	dg.GET("/birthdays", api.birthdays)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)
	filter := academy.AttendanceFilter{
		StudentID: intQueryParam(ctx, "student"),
		Session:   intQueryParam(ctx, "session"),
		Ordering:  ord.Orderings,
	}

	records, err := api.svc.QueryAttendance(usr, filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []academy.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	att, err := api.svc.GetAttendance(usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}

	var data academy.UpdateAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.UpdateAttendance(usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAttendance(usr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// bulkUpsert ingests a whole session's records in one shot. Items that fail
// validation are reported in the result without aborting the batch.
func (api *attendanceApi) bulkUpsert(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading bulk upsert body")
	}
	var items []academy.AttendanceUpsert
	if err = json.Unmarshal(body, &items); err != nil {
		return academy.ErrMalformedBatch
	}

	var (
		invalid []academy.ItemError
		valid   []academy.AttendanceUpsert
		idxMap  []int
	)
	for i := range items {
		if err = items[i].Validate(api.validate); err != nil {
			invalid = append(invalid, academy.ItemError{
				Index:     i,
				StudentID: items[i].StudentID,
				Session:   items[i].Session,
				Error:     err.Error(),
			})
			continue
		}
		valid = append(valid, items[i])
		idxMap = append(idxMap, i)
	}

	res, err := api.svc.BulkUpsertAttendance(usr, valid)
	if err != nil {
		return err
	}
	for i := range res.Errors {
		res.Errors[i].Index = idxMap[res.Errors[i].Index]
	}
	res.Errors = append(res.Errors, invalid...)
	if res.Results == nil {
		res.Results = []academy.UpsertedAttendance{}
	}
	if res.Errors == nil {
		res.Errors = []academy.ItemError{}
	}

	return ctx.JSON(http.StatusCreated, res)
}

// Dashboard handlers

func (api *attendanceApi) sessionStats(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	session := academy.MinSession
	if ctx.QueryParam("session") != "" {
		session = intQueryParam(ctx, "session")
	}
	stats, err := api.svc.SessionStats(usr, session)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) weekStats(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	stats, err := api.svc.WeekStats(usr, time.Now())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) birthdays(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	month := time.Month(intQueryParam(ctx, "month"))
	if month == 0 {
		month = time.Now().Month()
	}
	students, err := api.svc.Birthdays(usr, month)
	if err != nil {
		return err
	}
	if students == nil {
		students = []academy.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *attendanceApi) usrAndID(ctx echo.Context) (user.User, int, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, 0, err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return user.User{}, 0, errHttpNotFound
	}
	return usr, id, nil
}
