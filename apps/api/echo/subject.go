package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	g.GET("/subjects", func(ctx echo.Context) error {
		subjects, err := svc.ListSubjectAreas(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "listing subject areas")
		}
		// the "no filter" option comes first
		return ctx.JSON(http.StatusOK, append([]string{core.AllSubjects}, subjects...))
	}, jwt)
}
