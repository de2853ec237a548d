package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mahimaacademy/academy/apps/api/echo"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	testutil "github.com/mahimaacademy/academy/tests"
)

func enrollmentGrant(userID, courseID string, at time.Time) enrollment.Grant {
	return enrollment.Grant{UserID: userID, CourseID: courseID, Status: enrollment.StatusActive, CreatedAt: at, UpdatedAt: at}
}

func Test_enrollmentApi(t *testing.T) {
	a := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()
	asha := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
	admin := testutil.CreateUser(t, a.users, "Verifier", "verifier@test.in", "", []string{user.RoleAdmin}, true)
	physics := testutil.CreateCourse(t, a.courses, "Physics", 799)
	algebra := testutil.CreateCourse(t, a.courses, "Algebra", 499)

	older, err := a.enrollments.CreateGrant(ctx, enrollmentGrant(asha.ID, physics.ID, now.Add(-time.Hour)))
	require.NoError(t, err)
	newer, err := a.enrollments.CreateGrant(ctx, enrollmentGrant(asha.ID, algebra.ID, now))
	require.NoError(t, err)

	detail := func(g enrollment.Grant, title string) enrollment.GrantDetail {
		return enrollment.GrantDetail{Grant: g, CourseTitle: title, CourseImageURL: physics.ImageURL}
	}

	a.run(t, []httpTest{
		{name: "auth required", path: "/v1/enrollments/mine", wantCode: http.StatusUnauthorized},
		{
			name: "own grants", path: "/v1/enrollments/mine", token: getToken(t, asha),
			wantCode: http.StatusOK, wantData: marchallList(t, detail(newer, algebra.Title), detail(older, physics.Title)),
		},
		{
			name: "revoke: verifier only", method: http.MethodPost, path: "/v1/enrollments/" + older.ID + "/revoke", token: getToken(t, asha),
			wantCode: http.StatusForbidden,
		},
		{
			name: "revoke: unknown", method: http.MethodPost, path: "/v1/enrollments/6a1d0c55-2f3e-4b7a-8c9d-0e1f2a3b4c5d/revoke", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: enrollment.ErrNotFound.Error()}),
		},
	})

	t.Run("revoke", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+older.ID+"/revoke", getToken(t, admin))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var grant enrollment.Grant
		unmarshal(t, rec, &grant)
		assert.Equal(t, enrollment.StatusInactive, grant.Status)

		req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+physics.ID+"/access", getToken(t, asha))
		a.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, AccessResponse{CourseID: physics.ID, HasAccess: false}),
		}, rec)
	})
}

func Test_statsApi(t *testing.T) {
	a := setup(t)
	ctx := context.Background()
	asha := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
	ravi := testutil.CreateUser(t, a.users, "Ravi", "ravi@test.in", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, a.users, "Verifier", "verifier@test.in", "", []string{user.RoleAdmin}, true)
	physics := testutil.CreateCourse(t, a.courses, "Physics", 799)
	testutil.CreateCourse(t, a.courses, "Algebra", 499)
	testutil.CreatePaymentRequest(t, a.payments, asha, physics, "111111111111", payment.StatusPending)
	testutil.CreatePaymentRequest(t, a.payments, ravi, physics, "222222222222", payment.StatusApproved)
	_, err := a.enrollments.CreateGrant(ctx, enrollmentGrant(ravi.ID, physics.ID, time.Now().UTC()))
	require.NoError(t, err)

	a.run(t, []httpTest{
		{name: "verifier only", path: "/v1/stats", token: getToken(t, asha), wantCode: http.StatusForbidden},
		{
			name: "counts", path: "/v1/stats", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, StatsResponse{Students: 1, Courses: 2, PendingPayments: 1, ActiveEnrollments: 1}),
		},
	})
}
