package echoapi

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
)

const contextMaterialKey = "material"

type materialApi struct {
	svc      *material.Service
	validate *validator.Validate
}

func registerMaterialAPI(g *echo.Group, jwt, ident echo.MiddlewareFunc, svc *material.Service, validate *validator.Validate) {
	api := materialApi{svc: svc, validate: validate}

	mg := g.Group("/materials", jwt, ident)
	mg.GET("", api.list)
	mg.GET("/mine", api.listMine, teacherOnly())
	mg.POST("", api.create, teacherOnly())

	dg := mg.Group("/:id", api.loadMaterial)
	dg.GET("", api.retrieve)
	dg.GET("/file", api.download)
	dg.PUT("", api.update, teacherOnly(), uploaderOnly)
	dg.DELETE("", api.destroy, teacherOnly(), uploaderOnly)
}

// loadMaterial puts the material named by the :id path param in the context.
func (api *materialApi) loadMaterial(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		mat, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "getting material")
		}
		ctx.Set(contextMaterialKey, mat)
		return next(ctx)
	}
}

func uploaderOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		teacher, err := contextTeacher(ctx)
		if err != nil {
			return err
		}
		if contextMaterial(ctx).UploadedBy != teacher.User.ID {
			return core.ErrForbidden
		}
		return next(ctx)
	}
}

func contextMaterial(ctx echo.Context) material.Material {
	mat, _ := ctx.Get(contextMaterialKey).(material.Material)
	return mat
}

func (api *materialApi) list(ctx echo.Context) error {
	var filter SubjectFilter
	filter.Bind(ctx)
	mats, err := api.svc.ListBySubject(ctx.Request().Context(), filter.Subject)
	if err != nil {
		return errors.Wrap(err, "listing materials")
	}
	return ctx.JSON(http.StatusOK, mats)
}

func (api *materialApi) listMine(ctx echo.Context) error {
	teacher, err := contextTeacher(ctx)
	if err != nil {
		return err
	}
	mats, err := api.svc.ListByUploader(ctx.Request().Context(), teacher.User.ID)
	if err != nil {
		return errors.Wrap(err, "listing own materials")
	}
	return ctx.JSON(http.StatusOK, mats)
}

func (api *materialApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextMaterial(ctx))
}

func (api *materialApi) create(ctx echo.Context) error {
	return api.save(ctx, material.Material{}, http.StatusCreated)
}

func (api *materialApi) update(ctx echo.Context) error {
	return api.save(ctx, contextMaterial(ctx), http.StatusOK)
}

// save binds the material fields (JSON or multipart form) and the optional "file" upload.
func (api *materialApi) save(ctx echo.Context, mat material.Material, code int) error {
	teacher, err := contextTeacher(ctx)
	if err != nil {
		return err
	}

	var data material.MaterialData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MaterialData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	up, closeUpload, err := bindUpload(ctx)
	if err != nil {
		return err
	}
	defer closeUpload()

	data.Apply(&mat)
	mat, err = api.svc.Save(ctx.Request().Context(), mat, up, teacher.User)
	if err != nil {
		return errors.Wrap(err, "saving material")
	}
	return ctx.JSON(code, mat)
}

func (api *materialApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextMaterial(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *materialApi) download(ctx echo.Context) error {
	mat := contextMaterial(ctx)
	rc, err := api.svc.OpenFile(ctx.Request().Context(), mat)
	if err != nil {
		return errors.Wrap(err, "opening material file")
	}
	defer rc.Close()

	ct := mat.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": originalFilename(mat.FilePath)}))
	return ctx.Stream(http.StatusOK, ct, rc)
}

// originalFilename strips the unique prefix of a stored name.
func originalFilename(stored string) string {
	if i := strings.IndexByte(stored, '_'); i >= 0 && i < len(stored)-1 {
		return stored[i+1:]
	}
	return stored
}
