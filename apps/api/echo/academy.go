package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

type academyApi struct {
	svc      academy.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerAcademyAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc academy.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := academyApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.createCourse)
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse)
	cg.DELETE("/:id", api.destroyCourse)

	sg := g.Group("/slots", jwt)
	sg.POST("", api.createSlot)
	sg.GET("", api.querySlots)
	sg.GET("/:id", api.retrieveSlot)
	sg.PUT("/:id", api.updateSlot)
	sg.DELETE("/:id", api.destroySlot)

	gg := g.Group("/groups", jwt)
	gg.POST("", api.createGroup)
	gg.GET("", api.queryGroups)
	gg.GET("/:id", api.retrieveGroup)
	gg.PUT("/:id", api.updateGroup)
	gg.DELETE("/:id", api.destroyGroup)

	stg := g.Group("/students", jwt)
	stg.POST("", api.createStudent)
	stg.GET("", api.queryStudents)
	stg.GET("/:id", api.retrieveStudent)
	stg.PUT("/:id", api.updateStudent)
	stg.DELETE("/:id", api.destroyStudent)
}

// Course handlers

func (api *academyApi) createCourse(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data academy.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *academyApi) queryCourses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)
	filter := academy.CourseFilter{
		IsActive: boolQueryParam(ctx, "is_active"),
		Ordering: ord.Orderings,
	}

	courses, err := api.svc.QueryCourses(usr, filter)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []academy.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *academyApi) retrieveCourse(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.GetCourse(usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *academyApi) updateCourse(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}

	var data academy.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateCourse(usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *academyApi) destroyCourse(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(usr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Slot handlers

func (api *academyApi) createSlot(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data academy.NewSlot
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSlot")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	slot, err := api.svc.CreateSlot(usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *academyApi) querySlots(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)
	filter := academy.SlotFilter{
		CourseID: intQueryParam(ctx, "course"),
		IsActive: boolQueryParam(ctx, "is_active"),
		Ordering: ord.Orderings,
	}

	slots, err := api.svc.QuerySlots(usr, filter)
	if err != nil {
		return err
	}
	if slots == nil {
		slots = []academy.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *academyApi) retrieveSlot(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	slot, err := api.svc.GetSlot(usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, slot)
}

func (api *academyApi) updateSlot(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}

	var data academy.UpdateSlot
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSlot")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	slot, err := api.svc.UpdateSlot(usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, slot)
}

func (api *academyApi) destroySlot(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSlot(usr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Group handlers

func (api *academyApi) createGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data academy.NewGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.CreateGroup(usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *academyApi) queryGroups(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)
	filter := academy.GroupFilter{
		SlotID:        intQueryParam(ctx, "slot"),
		FacilitatorID: intQueryParam(ctx, "facilitator"),
		IsActive:      boolQueryParam(ctx, "is_active"),
		Ordering:      ord.Orderings,
	}

	groups, err := api.svc.QueryGroups(usr, filter)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []academy.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *academyApi) retrieveGroup(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	grp, err := api.svc.GetGroup(usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *academyApi) updateGroup(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}

	var data academy.UpdateGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.UpdateGroup(usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *academyApi) destroyGroup(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteGroup(usr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Student handlers

func (api *academyApi) createStudent(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data academy.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *academyApi) queryStudents(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)
	filter := academy.StudentFilter{
		GroupID:  intQueryParam(ctx, "group"),
		IsActive: boolQueryParam(ctx, "is_active"),
		Ordering: ord.Orderings,
	}

	students, err := api.svc.QueryStudents(usr, filter)
	if err != nil {
		return err
	}
	if students == nil {
		students = []academy.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *academyApi) retrieveStudent(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	std, err := api.svc.GetStudent(usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *academyApi) updateStudent(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}

	var data academy.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.UpdateStudent(usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *academyApi) destroyStudent(ctx echo.Context) error {
	usr, id, err := api.usrAndID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteStudent(usr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Helpers

func (api *academyApi) usrAndID(ctx echo.Context) (user.User, int, error) {
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

func intQueryParam(ctx echo.Context, name string) int {
	val, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return 0
	}
	return val
}

func boolQueryParam(ctx echo.Context, name string) *bool {
	val, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &val
}
