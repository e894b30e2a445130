package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/auth"
	"github.com/learnflow/backend/core/otp"
)

type accountApi struct {
	svc        account.Service
	otpSvc     otp.Service
	tokenSvc   auth.TokenService
	validate   *validator.Validate
	translator ut.Translator
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		svc:        deps.AccountSvc,
		otpSvc:     deps.OTPSvc,
		tokenSvc:   deps.TokenSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// email verification, precedes registration
	authg := g.Group("/auth")
	authg.POST("/send-otp", api.sendOTP)
	authg.POST("/verify-otp", api.verifyOTP)

	sg := g.Group("/students")
	sg.POST("/register", api.registerStudent)
	sg.POST("/login", api.loginStudent)

	tg := g.Group("/tutors")
	tg.POST("/register", api.registerTutor)
	tg.POST("/login", api.loginTutor)

	g.POST("/admin/login", api.loginAdmin)

	// authed endpoints
	ag := g.Group("/accounts", jwt)
	ag.GET("/me", api.me)
	ag.POST("/password-change", api.changePassword)
}

// Handlers

func (api *accountApi) sendOTP(ctx echo.Context) error {
	var data SendOTPRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendOTPRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.otpSvc.Issue(ctx.Request().Context(), data.Email); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "OTP sent to your email address."})
}

func (api *accountApi) verifyOTP(ctx echo.Context) error {
	var data VerifyOTPRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyOTPRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.otpSvc.Verify(ctx.Request().Context(), data.Email, data.Code); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Email verified successfully."})
}

func (api *accountApi) registerStudent(ctx echo.Context) error {
	return api.register(ctx, account.RoleStudent)
}

func (api *accountApi) registerTutor(ctx echo.Context) error {
	return api.register(ctx, account.RoleTutor)
}

func (api *accountApi) register(ctx echo.Context, role account.Role) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	data.Role = role
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	acct, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *accountApi) loginStudent(ctx echo.Context) error {
	return api.login(ctx, account.RoleStudent)
}

func (api *accountApi) loginTutor(ctx echo.Context) error {
	return api.login(ctx, account.RoleTutor)
}

func (api *accountApi) loginAdmin(ctx echo.Context) error {
	return api.login(ctx, account.RoleAdmin)
}

func (api *accountApi) login(ctx echo.Context, role account.Role) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, err := api.svc.Authenticate(ctx.Request().Context(), role, data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := api.tokenSvc.Issue(acct.ID, acct.Role)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Account: acct})
}

func (api *accountApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := claims.AccountID()
	if err != nil {
		return errUnauthorized
	}

	acct, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := claims.AccountID()
	if err != nil {
		return errUnauthorized
	}

	var data account.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

type (
	SendOTPRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	VerifyOTPRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,otpcode"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string          `json:"token"`
		Account account.Account `json:"account"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r *SendOTPRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *VerifyOTPRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Code = core.CleanString(r.Code)
	return validate.Struct(r)
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}
