package tests

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "admin", user.RoleAdmin, "LobiMakasi", true)
	createUser(t, "ndoggy", user.RoleFacilitator, "LobiMakasi", false)

	tests := []httpTest{
		{
			name: "empty credentials", body: marchallObj(t, echoapi.LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", body: marchallObj(t, echoapi.LoginRequest{Username: "ghost", Password: "LobiMakasi"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, echoapi.LoginRequest{Username: admin.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, echoapi.LoginRequest{Username: "ndoggy", Password: "LobiMakasi"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login by username", body: marchallObj(t, echoapi.LoginRequest{Username: admin.Username, Password: "LobiMakasi"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login by email", body: marchallObj(t, echoapi.LoginRequest{Username: admin.Email, Password: "LobiMakasi"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	facilitator := createUser(t, "monfac", user.RoleFacilitator, "", true)
	naughty := createUser(t, "ndoggy", user.RoleFacilitator, "", false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.Itoa(facilitator.ID),
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt:  now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(),
		Username:      facilitator.Username,
		Email:         facilitator.Email,
		Role:          facilitator.Role,
		IsFacilitator: true,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "inactive user not allowed", token: getToken(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "refresh period expired", token: unrefreshableToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "token refreshed", token: getToken(t, facilitator), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "mwalimu", user.RoleFacilitator, "LobiMakasi", true)

	t.Run("unknown email still succeeds", func(t *testing.T) {
		emailsvc.SentMessages = nil
		body := marchallObj(t, echoapi.PasswordResetRequest{Email: "ghost@test.cd"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		if len(emailsvc.SentMessages) != 0 {
			t.Errorf("no email expected; got %d", len(emailsvc.SentMessages))
		}
	})

	t.Run("known email sends instructions", func(t *testing.T) {
		emailsvc.SentMessages = nil
		body := marchallObj(t, echoapi.PasswordResetRequest{Email: usr.Email})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Errorf("1 email expected; got %d", len(emailsvc.SentMessages))
		}
	})

	t.Run("confirm with bad token fails", func(t *testing.T) {
		body := marchallObj(t, echoapi.PasswordResetConfirmRequest{UID: "lol", Token: "nope", Password: "NewPass123"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %v", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}

func Test_userApi_userCRUD(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "bosses", user.RoleAdmin, "", true)
	facilitator := createUser(t, "monfac", user.RoleFacilitator, "", true)
	other := createUser(t, "lautre", user.RoleFacilitator, "", true)

	adminToken := getToken(t, admin)
	facToken := getToken(t, facilitator)

	t.Run("query requires admin", func(t *testing.T) {
		tests := []httpTest{
			{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "admin required", token: facToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
			{name: "get all", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, facilitator, other)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("register requires admin", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Mwalimu Mpya",
			Username:        "mwalimumpya",
			Email:           "mpya@test.cd",
			Role:            user.RoleFacilitator,
			Password:        "LobiMakasi",
			PasswordConfirm: "LobiMakasi",
		})

		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", facToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("code = %v; want %v; body %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("retrieve self or admin only", func(t *testing.T) {
		tests := []httpTest{
			{name: "own detail", path: "/v1/users/" + strconv.Itoa(facilitator.ID), token: facToken, wantCode: http.StatusOK, wantData: marchallObj(t, facilitator)},
			{name: "other detail denied", path: "/v1/users/" + strconv.Itoa(other.ID), token: facToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
			{name: "admin sees any", path: "/v1/users/" + strconv.Itoa(other.ID), token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, other)},
			{name: "bad id", path: "/v1/users/lol", token: adminToken, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("non-admin cannot escalate", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Role: user.RoleAdmin})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+strconv.Itoa(facilitator.ID), facToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+strconv.Itoa(other.ID), facToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("non-admin delete: code = %v; want %v", rec.Code, http.StatusForbidden)
		}

		// no suicide
		req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+strconv.Itoa(admin.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("self delete: code = %v; want %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+strconv.Itoa(other.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("admin delete: code = %v; want %v; body %v", rec.Code, http.StatusNoContent, rec.Body.String())
		}
	})
}
