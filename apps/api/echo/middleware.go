package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

// identityMiddleware resolves the token's subject to a user.Identity once per request.
// It must run after the JWT middleware.
func identityMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			id, err := claims.UserID()
			if err != nil {
				return errUnauthorized
			}

			reqCtx := ctx.Request().Context()
			usr, err := svc.GetByID(reqCtx, id)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ident, err := svc.ResolveIdentity(reqCtx, usr)
			if err != nil {
				if errors.Cause(err) == user.ErrNoProfile {
					return errNoProfile
				}
				return errors.Wrap(err, "resolving identity")
			}
			ctx.Set(contextIdentityKey, ident)
			return next(ctx)
		}
	}
}

func roleMiddleware(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := getContextIdentity(ctx)
			if err != nil {
				return err
			}
			if ident.Role() != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func teacherOnly() echo.MiddlewareFunc { return roleMiddleware(user.RoleTeacher) }

func studentOnly() echo.MiddlewareFunc { return roleMiddleware(user.RoleStudent) }

func contextTeacher(ctx echo.Context) (*user.Teacher, error) {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if t, ok := ident.(*user.Teacher); ok {
		return t, nil
	}
	return nil, errHttpForbidden
}

func contextStudent(ctx echo.Context) (*user.Student, error) {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if s, ok := ident.(*user.Student); ok {
		return s, nil
	}
	return nil, errHttpForbidden
}
