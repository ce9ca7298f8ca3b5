package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/invite"
	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
)

func Test_adminApi_queryUsers(t *testing.T) {
	app := setup(t)

	sch1 := app.createSchool(t, "Shining Stars", "shining-stars")
	sch2 := app.createSchool(t, "Bright Minds", "bright-minds")

	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	schAdmin := app.createUser(t, "Principal", "principal@test.cd", "uid-principal", auth.RoleSchoolAdmin, sch1.ID, true, true)
	teacher1 := app.createUser(t, "Teacher One", "t1@test.cd", "uid-t1", auth.RoleTeacher, sch1.ID, true, true)
	teacher2 := app.createUser(t, "Teacher Two", "t2@test.cd", "uid-t2", auth.RoleTeacher, sch2.ID, true, true)
	student := app.createUser(t, "Student", "s1@test.cd", "uid-s1", auth.RoleStudent, sch1.ID, true, true)

	tests := []httpTest{
		{
			name: "admin sees everyone", token: app.getToken(t, admin),
			path: "/v1/admin/users", wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{admin, schAdmin, teacher1, teacher2, student}),
		},
		{
			name: "school_admin only sees their school", token: app.getToken(t, schAdmin),
			path: "/v1/admin/users", wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{schAdmin, teacher1, student}),
		},
		{
			name: "school_admin cannot widen the scope", token: app.getToken(t, schAdmin),
			path:     fmt.Sprintf("/v1/admin/users?school_id=%d", sch2.ID),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{schAdmin, teacher1, student}),
		},
		{
			name: "admin filters by role", token: app.getToken(t, admin),
			path: "/v1/admin/users?role=teacher", wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{teacher1, teacher2}),
		},
		{
			name: "teacher is forbidden", token: app.getToken(t, teacher1),
			path: "/v1/admin/users", wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "insufficient privilege"}),
		},
		{
			name: "anonymous is sent to the admin login",
			path: "/v1/admin/users", wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"error":"authentication required","login_url":"/admin/login"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminApi_createUser(t *testing.T) {
	app := setup(t)

	sch1 := app.createSchool(t, "Shining Stars", "shining-stars")
	sch2 := app.createSchool(t, "Bright Minds", "bright-minds")
	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	schAdmin := app.createUser(t, "Principal", "principal@test.cd", "uid-principal", auth.RoleSchoolAdmin, sch1.ID, true, true)

	t.Run("admin creates a pre-approved teacher", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			SubjectID: "uid-new-t", Name: "New Teacher", Email: "newt@test.cd",
			Role: auth.RoleTeacher, SchoolID: sch1.ID,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !usr.IsApproved {
			t.Error("is_approved = false; admin-created users skip the approval queue")
		}
	})

	t.Run("validation errors use field names", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{SubjectID: "uid-x", Name: "X", Email: "not-an-email", Role: auth.RoleTeacher, SchoolID: sch1.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
		var fields map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if _, ok := fields["email"]; !ok {
			t.Errorf("fields = %v; want an email error", fields)
		}
	})

	t.Run("school_admin stays in their school", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			SubjectID: "uid-new-s", Name: "Sneaky", Email: "sneaky@test.cd",
			Role: auth.RoleTeacher, SchoolID: sch2.ID,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", app.getToken(t, schAdmin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("school_admin cannot mint admins", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			SubjectID: "uid-new-a", Name: "Wannabe", Email: "wannabe@test.cd",
			Role: auth.RoleAdmin,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", app.getToken(t, schAdmin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})
}

func Test_adminApi_updateUserRole(t *testing.T) {
	app := setup(t)

	sch1 := app.createSchool(t, "Shining Stars", "shining-stars")
	sch2 := app.createSchool(t, "Bright Minds", "bright-minds")
	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	schAdmin := app.createUser(t, "Principal", "principal@test.cd", "uid-principal", auth.RoleSchoolAdmin, sch1.ID, true, true)
	teacher := app.createUser(t, "Teacher", "t1@test.cd", "uid-t1", auth.RoleTeacher, sch1.ID, true, true)
	outsider := app.createUser(t, "Outsider", "t2@test.cd", "uid-t2", auth.RoleTeacher, sch2.ID, true, true)

	t.Run("admin promotes a teacher", func(t *testing.T) {
		body := marchallObj(t, user.UpdateRole{Role: auth.RoleSchoolAdmin, SchoolID: sch1.ID})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/role", teacher.ID), app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if usr.Role != auth.RoleSchoolAdmin {
			t.Errorf("role = %v; want school_admin", usr.Role)
		}

		// the role change is live on the very next evaluation
		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/users", app.getToken(t, teacher))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("promoted user code = %v; want %v (stale principal served?)", rec.Code, http.StatusOK)
		}
	})

	t.Run("promotion to admin clears the school binding", func(t *testing.T) {
		target := app.createUser(t, "Riser", "riser@test.cd", "uid-riser", auth.RoleTeacher, sch1.ID, true, true)
		body := marchallObj(t, user.UpdateRole{Role: auth.RoleAdmin})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/role", target.ID), app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if usr.SchoolID != 0 {
			t.Errorf("school_id = %v; want 0", usr.SchoolID)
		}
	})

	t.Run("school_admin cannot touch another school's user", func(t *testing.T) {
		body := marchallObj(t, user.UpdateRole{Role: auth.RoleStudent, SchoolID: sch2.ID})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/role", outsider.ID), app.getToken(t, schAdmin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v (outsiders stay invisible)", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		body := marchallObj(t, user.UpdateRole{Role: auth.RoleTeacher, SchoolID: sch1.ID})
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/users/999/role", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_adminApi_updateUserStatus(t *testing.T) {
	app := setup(t)

	sch1 := app.createSchool(t, "Shining Stars", "shining-stars")
	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	student := app.createUser(t, "Student", "s1@test.cd", "uid-s1", auth.RoleStudent, sch1.ID, true, false)

	bPtr := func(b bool) *bool { return &b }

	t.Run("approval opens the full capability set", func(t *testing.T) {
		// unapproved student caches a principal first
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/session", app.getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("session code = %v; want %v", rec.Code, http.StatusOK)
		}

		body := marchallObj(t, user.UpdateStatus{IsApproved: bPtr(true)})
		req, rec = newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/status", student.ID), app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !usr.IsApproved {
			t.Error("is_approved = false; want true")
		}
	})

	t.Run("deactivation is live on the next evaluation", func(t *testing.T) {
		body := marchallObj(t, user.UpdateStatus{IsActive: bPtr(false)})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/status", student.ID), app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		// the cached principal must not keep the deactivated user in
		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/session", app.getToken(t, student))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "insufficient privilege"}),
		}, rec)
	})

	t.Run("nothing to update", func(t *testing.T) {
		body := marchallObj(t, user.UpdateStatus{})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/status", student.ID), app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("admins cannot deactivate themselves", func(t *testing.T) {
		body := marchallObj(t, user.UpdateStatus{IsActive: bPtr(false)})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/status", admin.ID), app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})
}

func Test_adminApi_schools(t *testing.T) {
	app := setup(t)

	sch := app.createSchool(t, "Shining Stars", "shining-stars")
	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	schAdmin := app.createUser(t, "Principal", "principal@test.cd", "uid-principal", auth.RoleSchoolAdmin, sch.ID, true, true)

	t.Run("admin lists schools", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools", app.getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []school.School{sch}),
		}, rec)
	})

	t.Run("school_admin is not a platform admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools", app.getToken(t, schAdmin))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin creates a school", func(t *testing.T) {
		body := marchallObj(t, school.NewSchool{Name: "Bright Minds", Code: "bright-minds"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/schools", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("duplicate code", func(t *testing.T) {
		body := marchallObj(t, school.NewSchool{Name: "Copycat", Code: "shining-stars"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/schools", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("bad school code", func(t *testing.T) {
		body := marchallObj(t, school.NewSchool{Name: "Bad", Code: "Not A Code!"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/schools", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_adminApi_userStats(t *testing.T) {
	app := setup(t)

	sch1 := app.createSchool(t, "Shining Stars", "shining-stars")
	sch2 := app.createSchool(t, "Bright Minds", "bright-minds")
	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	schAdmin := app.createUser(t, "Principal", "principal@test.cd", "uid-principal", auth.RoleSchoolAdmin, sch1.ID, true, true)
	teacher := app.createUser(t, "Teacher", "t1@test.cd", "uid-t1", auth.RoleTeacher, sch1.ID, true, true)
	app.createUser(t, "Student One", "s1@test.cd", "uid-s1", auth.RoleStudent, sch1.ID, true, true)
	app.createUser(t, "Student Two", "s2@test.cd", "uid-s2", auth.RoleStudent, sch2.ID, true, true)

	getStats := func(t *testing.T, path, token string) user.Stats {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var stats user.Stats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		return stats
	}

	t.Run("admin sees platform-wide counts", func(t *testing.T) {
		stats := getStats(t, "/v1/admin/users/stats", app.getToken(t, admin))
		if stats.Total != 5 {
			t.Errorf("total = %d; want 5", stats.Total)
		}
		if stats.ByRole[auth.RoleStudent] != 2 {
			t.Errorf("students = %d; want 2", stats.ByRole[auth.RoleStudent])
		}
		if stats.ByRole[auth.RoleAdmin] != 1 {
			t.Errorf("admins = %d; want 1", stats.ByRole[auth.RoleAdmin])
		}
	})

	t.Run("admin narrows to one school", func(t *testing.T) {
		stats := getStats(t, fmt.Sprintf("/v1/admin/users/stats?school_id=%d", sch2.ID), app.getToken(t, admin))
		if stats.Total != 1 || stats.ByRole[auth.RoleStudent] != 1 {
			t.Errorf("stats = %+v; want the one sch2 student", stats)
		}
	})

	t.Run("school_admin counts stay in their school", func(t *testing.T) {
		stats := getStats(t, fmt.Sprintf("/v1/admin/users/stats?school_id=%d", sch2.ID), app.getToken(t, schAdmin))
		if stats.Total != 3 {
			t.Errorf("total = %d; want 3 (the school_id param must not widen the scope)", stats.Total)
		}
		if stats.ByRole[auth.RoleAdmin] != 0 {
			t.Errorf("admins = %d; want 0", stats.ByRole[auth.RoleAdmin])
		}
	})

	t.Run("teacher is forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/users/stats", app.getToken(t, teacher))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})
}

func Test_adminApi_createInvitation(t *testing.T) {
	app := setup(t)

	sch1 := app.createSchool(t, "Shining Stars", "shining-stars")
	sch2 := app.createSchool(t, "Bright Minds", "bright-minds")
	admin := app.createUser(t, "Admin", "admin@test.cd", "uid-admin", auth.RoleAdmin, 0, true, true)
	schAdmin := app.createUser(t, "Principal", "principal@test.cd", "uid-principal", auth.RoleSchoolAdmin, sch1.ID, true, true)

	t.Run("admin invites into any school", func(t *testing.T) {
		body := marchallObj(t, invite.NewInvitation{Name: "T", Email: "t@test.cd", Role: auth.RoleTeacher, SchoolID: sch2.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/invitations", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var inv invite.Invitation
		if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if inv.Status != invite.StatusPending {
			t.Errorf("status = %v; want pending", inv.Status)
		}
		if inv.Token == "" {
			t.Error("token is empty")
		}
	})

	t.Run("school_admin invites into their school", func(t *testing.T) {
		body := marchallObj(t, invite.NewInvitation{Name: "S", Email: "s@test.cd", Role: auth.RoleStudent, SchoolID: sch1.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/invitations", app.getToken(t, schAdmin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("school_admin cannot invite elsewhere", func(t *testing.T) {
		body := marchallObj(t, invite.NewInvitation{Name: "X", Email: "x@test.cd", Role: auth.RoleStudent, SchoolID: sch2.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/invitations", app.getToken(t, schAdmin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin invitations are not a thing", func(t *testing.T) {
		body := marchallObj(t, invite.NewInvitation{Name: "A", Email: "a@test.cd", Role: auth.RoleAdmin, SchoolID: sch1.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/invitations", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown school", func(t *testing.T) {
		body := marchallObj(t, invite.NewInvitation{Name: "Z", Email: "z@test.cd", Role: auth.RoleStudent, SchoolID: 999})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/invitations", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("email already has an account", func(t *testing.T) {
		body := marchallObj(t, invite.NewInvitation{Name: "P", Email: "Principal@test.cd", Role: auth.RoleTeacher, SchoolID: sch1.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/invitations", app.getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a user with this email already exists"}`),
		}, rec)
	})
}
