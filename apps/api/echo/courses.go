package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
)

type courseApi struct {
	svc        *course.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCourseAPI(g *echo.Group, svc *course.Service, validate *validator.Validate, translator ut.Translator) {
	api := courseApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}
	read, write := requireInstructor(true), requireInstructor(false)

	cg := g.Group("/instructor/courses")
	cg.GET("", api.query, read)
	cg.POST("", api.create, write)

	dg := cg.Group("/:courseId")
	dg.GET("", api.retrieve, read)
	dg.PUT("", api.update, write)
	dg.DELETE("", api.destroy, write)

	chg := dg.Group("/chapters")
	chg.POST("", api.createChapter, write)
	chg.PUT("/reorder", api.reorderChapters, write)
	chg.PUT("/:chapterId", api.updateChapter, write)
	chg.DELETE("/:chapterId", api.destroyChapter, write)

	lg := chg.Group("/:chapterId/lessons")
	lg.POST("", api.createLesson, write)
	lg.PUT("/reorder", api.reorderLessons, write)
	lg.GET("/:lessonId", api.retrieveLesson, read)
	lg.PUT("/:lessonId", api.updateLesson, write)
	lg.DELETE("/:lessonId", api.destroyLesson, write)
}

// Courses

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Ordering = bindOrdering(ctx, course.OrderingFields)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), mustSession(ctx), *filter)
	if err != nil {
		return failed(errors.Wrap(err, "querying courses"), "Failed to fetch courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, core.Success(http.StatusText(http.StatusOK), courses))
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), mustSession(ctx), data)
	if err != nil {
		return failed(err, "Failed to create course")
	}
	return ctx.JSON(http.StatusCreated, core.Success("Course Created Successfully", crs))
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"))
	if err != nil {
		return failed(err, "Failed to fetch course")
	}
	return ctx.JSON(http.StatusOK, core.Success(http.StatusText(http.StatusOK), crs))
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), data)
	if err != nil {
		return failed(err, "Failed to update course")
	}
	return ctx.JSON(http.StatusOK, core.Success("Course updated successfully", crs))
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId")); err != nil {
		return failed(err, "Failed to delete course")
	}
	return ctx.JSON(http.StatusOK, core.Success("Course deleted successfully"))
}

// Chapters

func (api *courseApi) createChapter(ctx echo.Context) error {
	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ch, err := api.svc.CreateChapter(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), data)
	if err != nil {
		return failed(err, "Failed to create chapter")
	}
	return ctx.JSON(http.StatusCreated, core.Success("Chapter created successfully", ch))
}

func (api *courseApi) updateChapter(ctx echo.Context) error {
	var data course.UpdateChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChapter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ch, err := api.svc.UpdateChapter(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), ctx.Param("chapterId"), data)
	if err != nil {
		return failed(err, "Failed to update chapter")
	}
	return ctx.JSON(http.StatusOK, core.Success("Chapter updated successfully", ch))
}

func (api *courseApi) reorderChapters(ctx echo.Context) error {
	var data course.Reorder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reorder")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.ReorderChapters(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), data.Chapters); err != nil {
		return failed(err, "Failed to reorder chapters")
	}
	return ctx.JSON(http.StatusOK, core.Success("Chapters reordered successfully"))
}

func (api *courseApi) destroyChapter(ctx echo.Context) error {
	if err := api.svc.DeleteChapter(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), ctx.Param("chapterId")); err != nil {
		return failed(err, "Failed to delete chapter")
	}
	return ctx.JSON(http.StatusOK, core.Success("Chapter deleted successfully"))
}

// Lessons

func (api *courseApi) createLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ls, err := api.svc.CreateLesson(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), ctx.Param("chapterId"), data)
	if err != nil {
		return failed(err, "Failed to create lesson")
	}
	return ctx.JSON(http.StatusCreated, core.Success("Lesson created successfully", ls))
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	ls, err := api.svc.GetLesson(ctx.Request().Context(), mustSession(ctx), ctx.Param("courseId"), ctx.Param("chapterId"), ctx.Param("lessonId"))
	if err != nil {
		return failed(err, "Failed to fetch lesson")
	}
	return ctx.JSON(http.StatusOK, core.Success(http.StatusText(http.StatusOK), ls))
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ls, err := api.svc.UpdateLesson(
		ctx.Request().Context(), mustSession(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"), ctx.Param("lessonId"),
		data,
	)
	if err != nil {
		return failed(err, "Failed to update lesson")
	}
	return ctx.JSON(http.StatusOK, core.Success("Lesson updated successfully", ls))
}

func (api *courseApi) reorderLessons(ctx echo.Context) error {
	var data course.Reorder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reorder")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	err := api.svc.ReorderLessons(ctx.Request().Context(), mustSession(ctx), ctx.Param("chapterId"), data.Lessons, ctx.Param("courseId"))
	if err != nil {
		return failed(err, "Failed to reorder lessons")
	}
	return ctx.JSON(http.StatusOK, core.Success("Reordering successfully"))
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	err := api.svc.DeleteLesson(ctx.Request().Context(), mustSession(ctx), ctx.Param("lessonId"), ctx.Param("courseId"), ctx.Param("chapterId"))
	if err != nil {
		return failed(err, "Failed to delete lesson")
	}
	return ctx.JSON(http.StatusOK, core.Success("Lesson deleted successfully"))
}
