package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/approval"
	"github.com/learnflow/backend/core/otp"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "request not authenticated")
	errTokenMissing  = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errTokenExpired  = echo.NewHTTPError(http.StatusUnauthorized, "token expired")
	errTokenInvalid  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
			if origErr.Err == account.ErrEmailExists {
				code = http.StatusConflict
			}
		case account.NotApprovedError:
			code = http.StatusForbidden
			message = origErr.Error()
		default:
			code, message = mapCoreError(origErr)
			if code == http.StatusInternalServerError {
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var acct account.Account
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					if id, iErr := claims.AccountID(); iErr == nil {
						acct.ID = id
						acct.Role = claims.Role
					}
				}
				logger.Error(msg, errors.Wrap(err, msg), acct)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func mapCoreError(err error) (int, interface{}) {
	switch err {
	case account.ErrBadCredentials:
		return http.StatusUnauthorized, err.Error()
	case account.ErrNotVerified:
		return http.StatusForbidden, err.Error()
	case account.ErrNotFound, approval.ErrNotFound:
		return http.StatusNotFound, err.Error()
	case account.ErrEmailExists, approval.ErrAlreadyDecided:
		return http.StatusConflict, err.Error()
	case otp.ErrRateLimited:
		return http.StatusTooManyRequests, err.Error()
	case otp.ErrNoChallenge, otp.ErrChallengeExpired, otp.ErrCodeMismatch,
		approval.ErrBadDecision, account.ErrEmptyPassword:
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, nil
}
