package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/school"
	"github.com/madrasa-app/madrasa/core/session"
	"github.com/madrasa-app/madrasa/core/user"
	emailsvc "github.com/madrasa-app/madrasa/services/email"
	memstore "github.com/madrasa-app/madrasa/storage/memory"
)

type testApp struct {
	srv      Server
	sessions *session.Manager
	reg      *school.Registry
}

func setup(t *testing.T) *testApp {
	t.Helper()
	backend := memstore.New()
	t.Cleanup(func() { _ = backend.Close() })

	svc := user.NewService(user.NewStoreRepository(backend, nil))
	if err := user.Seed(svc, user.DefaultAccounts()); err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	sessions := session.NewManager(svc, backend, nil)
	t.Cleanup(sessions.Close)

	reg := school.NewRegistry(backend, nil)
	admissions := school.NewAdmissionService(reg, emailsvc.NewConsoleServiceMock(), nil)
	notices := school.NewNoticeService(emailsvc.NewConsoleServiceMock(), func(string) []mail.Address {
		return []mail.Address{{Name: "All Staff", Address: "staff@test.local"}}
	}, nil)
	reports := school.NewReports(reg)
	t.Cleanup(reports.Close)

	srv := NewServer(&Options{
		Addr:           ":0",
		DisableReqLogs: true,
		Logger:         core.NopLogger{},
		UserSvc:        svc,
		Sessions:       sessions,
		Registry:       reg,
		Admissions:     admissions,
		Notices:        notices,
		Reports:        reports,
	})
	return &testApp{srv: srv, sessions: sessions, reg: reg}
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echoHeaderContentType, echoMIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

const (
	echoHeaderContentType   = "Content-Type"
	echoMIMEApplicationJSON = "application/json"
)

func (app *testApp) login(t *testing.T, uname, role string) (string, LoginResponse) {
	t.Helper()
	rec := app.request(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Username: uname, Password: "password123", Role: role,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login(%s) status = %d: %s", uname, rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.Token, resp
}

func Test_home(t *testing.T) {
	app := setup(t)
	rec := app.request(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	tests := []struct {
		name     string
		body     LoginRequest
		wantCode int
	}{
		{
			name:     "missing fields",
			body:     LoginRequest{Username: "admin001"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user",
			body:     LoginRequest{Username: "ghost", Password: "password123", Role: user.RoleAdmin},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong password",
			body:     LoginRequest{Username: "admin001", Password: "letmein", Role: user.RoleAdmin},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong role",
			body:     LoginRequest{Username: "admin001", Password: "password123", Role: user.RoleStudent},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "success",
			body:     LoginRequest{Username: "admin001", Password: "password123", Role: user.RoleAdmin},
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(t, http.MethodPost, "/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode != http.StatusOK {
				return
			}
			var resp LoginResponse
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, "admin001", resp.User.Username)
			assert.Nil(t, resp.User.PasswordHash)
		})
	}
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)

	rec := app.request(t, http.MethodGet, "/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _ := app.login(t, "admin001", user.RoleAdmin)
	rec = app.request(t, http.MethodGet, "/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me MeResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "admin001", me.User.Username)
	assert.NotEmpty(t, me.Session.ID)

	// a newer login supersedes the old token for session-bound endpoints
	app.login(t, "teacher001", user.RoleTeacher)
	rec = app.request(t, http.MethodGet, "/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)
	token, _ := app.login(t, "admin001", user.RoleAdmin)

	rec := app.request(t, http.MethodPost, "/v1/auth/token-refresh", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEqual(t, token, resp.Token)

	// the refreshed token is live, the old one is superseded
	rec = app.request(t, http.MethodGet, "/v1/auth/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)
	token, _ := app.login(t, "admin001", user.RoleAdmin)

	rec := app.request(t, http.MethodPost, "/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, app.sessions.IsAuthenticated())

	rec = app.request(t, http.MethodGet, "/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_authApi_changePassword(t *testing.T) {
	app := setup(t)
	token, _ := app.login(t, "student001", user.RoleStudent)

	rec := app.request(t, http.MethodPost, "/v1/auth/change-password", token, ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "newpassword",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/auth/change-password", token, ChangePasswordRequest{
		CurrentPassword: "password123", NewPassword: "newpassword",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_authApi_updateProfile(t *testing.T) {
	app := setup(t)
	token, _ := app.login(t, "teacher001", user.RoleTeacher)

	phone := "+8801700000000"
	rec := app.request(t, http.MethodPut, "/v1/auth/profile", token, session.ProfileUpdate{Phone: &phone})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var usr user.User
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
	assert.Equal(t, phone, usr.Phone)
	assert.Equal(t, "Ustadh Kamal Hossain", usr.Name)
}

func Test_authApi_userAdmin(t *testing.T) {
	app := setup(t)
	adminToken, _ := app.login(t, "admin001", user.RoleAdmin)
	studentToken, _ := app.login(t, "student001", user.RoleStudent)

	// admin gate
	rec := app.request(t, http.MethodGet, "/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/users", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(t, http.MethodGet, "/v1/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, len(user.DefaultAccounts()))
	for _, u := range users {
		assert.Nil(t, u.PasswordHash)
	}

	// create
	rec = app.request(t, http.MethodPost, "/v1/users", adminToken, user.NewUser{
		Name: "New Teacher", Username: "teacher002", Role: user.RoleTeacher,
		Password: "password123", PasswordConfirm: "password123",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created user.User
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	// duplicate username is a validation error
	rec = app.request(t, http.MethodPost, "/v1/users", adminToken, user.NewUser{
		Name: "Clone", Username: "teacher002", Role: user.RoleTeacher,
		Password: "password123", PasswordConfirm: "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// retrieve / update / destroy
	rec = app.request(t, http.MethodGet, "/v1/users/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/users/nope", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodPut, "/v1/users/"+created.ID, adminToken, user.UpdateUser{Department: "Tafsir"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Tafsir", updated.Department)

	rec = app.request(t, http.MethodDelete, "/v1/users/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_collectionApi_students(t *testing.T) {
	app := setup(t)
	adminToken, _ := app.login(t, "admin001", user.RoleAdmin)
	teacherToken, _ := app.login(t, "teacher001", user.RoleTeacher)
	studentToken, _ := app.login(t, "student001", user.RoleStudent)

	// writes are admin-only
	body := school.Student{Name: "Rafiq Islam", Class: "Hifz"}
	rec := app.request(t, http.MethodPost, "/v1/students", teacherToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/students", adminToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created school.Student
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	// validation runs on create
	rec = app.request(t, http.MethodPost, "/v1/students", adminToken, school.Student{Name: "No Class"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// reads require the view permission; the teacher account has it
	rec = app.request(t, http.MethodGet, "/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/students", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/students", teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var students []school.Student
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &students))
	assert.Len(t, students, 1)

	// partial update keeps unlisted fields
	rec = app.request(t, http.MethodPatch, "/v1/students/"+created.ID, adminToken,
		map[string]interface{}{"section": "A"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var patched school.Student
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	assert.Equal(t, "A", patched.Section)
	assert.Equal(t, "Rafiq Islam", patched.Name)

	rec = app.request(t, http.MethodPatch, "/v1/students/nope", adminToken, map[string]interface{}{"section": "B"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodDelete, "/v1/students/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.request(t, http.MethodDelete, "/v1/students/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_collectionApi_notices(t *testing.T) {
	app := setup(t)
	teacherToken, _ := app.login(t, "teacher001", user.RoleTeacher)
	studentToken, _ := app.login(t, "student001", user.RoleStudent)

	emailsvc.ClearSentMessages()

	// the teacher account can post, the student cannot
	body := school.Notice{Title: "Exam schedule", Body: "Exams start Monday."}
	rec := app.request(t, http.MethodPost, "/v1/notices", studentToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, emailsvc.LastSentMessages())
	rec = app.request(t, http.MethodPost, "/v1/notices", teacherToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// posting broadcasts the notice by email
	sent := emailsvc.LastSentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "Notice: Exam schedule", sent[0].Subject)
	}

	// both can read
	rec = app.request(t, http.MethodGet, "/v1/notices", studentToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_admissionsApi(t *testing.T) {
	app := setup(t)
	adminToken, _ := app.login(t, "admin001", user.RoleAdmin)
	studentToken, _ := app.login(t, "student001", user.RoleStudent)

	// applicants submit without an account
	rec := app.request(t, http.MethodPost, "/v1/admissions", "", school.AdmissionApplication{
		ApplicantName: "Rafiq Islam",
		AppliedClass:  "Alim 1st Year",
		Email:         "rafiq@test.local",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app1 school.AdmissionApplication
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app1))
	assert.Equal(t, school.AdmissionPending, app1.Status)

	// management is admin-only
	rec = app.request(t, http.MethodGet, "/v1/admissions", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/admissions", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/admissions/nope/approve", adminToken, DecisionRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodPost, "/v1/admissions/"+app1.ID+"/approve", adminToken, DecisionRequest{Note: "welcome"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var decided school.AdmissionApplication
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decided))
	assert.Equal(t, school.AdmissionApproved, decided.Status)
	assert.Equal(t, 1, app.reg.Students.Count())

	// deciding twice is a validation error
	rec = app.request(t, http.MethodPost, "/v1/admissions/"+app1.ID+"/reject", adminToken, DecisionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_reportsApi(t *testing.T) {
	app := setup(t)
	token, _ := app.login(t, "student001", user.RoleStudent)

	app.reg.Students.Add(school.Student{ID: "s1", Name: "Rafiq", Class: "Hifz"})

	rec := app.request(t, http.MethodGet, "/v1/reports/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the dashboard bindings pick up the new student asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = app.request(t, http.MethodGet, "/v1/reports/dashboard", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		var report school.DashboardReport
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		if report.Students == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dashboard never observed the new student: %+v", report)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
