package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	emailsvc "github.com/mahimaacademy/academy/services/email"
	testutil "github.com/mahimaacademy/academy/tests"
)

func Test_paymentApi_mine(t *testing.T) {
	a := setup(t)
	now := time.Now()
	asha := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
	ravi := testutil.CreateUser(t, a.users, "Ravi", "ravi@test.in", "", nil, true)
	physics := testutil.CreateCourse(t, a.courses, "Physics", 799)
	algebra := testutil.CreateCourse(t, a.courses, "Algebra", 499)

	older := testutil.CreatePaymentRequest(t, a.payments, asha, physics, "111111111111", payment.StatusRejected, now.Add(-time.Hour))
	newer := testutil.CreatePaymentRequest(t, a.payments, asha, algebra, "222222222222", payment.StatusPending, now)
	testutil.CreatePaymentRequest(t, a.payments, ravi, physics, "333333333333", payment.StatusPending, now)

	tests := []httpTest{
		{name: "auth required", path: "/v1/payments/mine", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own requests, newest first", path: "/v1/payments/mine", token: getToken(t, asha), wantCode: http.StatusOK, wantData: marchallList(t, newer, older)},
	}
	a.run(t, tests)
}

func Test_paymentApi_pending(t *testing.T) {
	a := setup(t)
	now := time.Now()
	asha := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
	admin := testutil.CreateUser(t, a.users, "Verifier", "verifier@test.in", "", []string{user.RoleAdmin}, true)
	crs := testutil.CreateCourse(t, a.courses, "Physics", 799)

	first := testutil.CreatePaymentRequest(t, a.payments, asha, crs, "111111111111", payment.StatusPending, now.Add(-time.Hour))
	testutil.CreatePaymentRequest(t, a.payments, asha, crs, "222222222222", payment.StatusApproved, now.Add(-time.Minute))
	last := testutil.CreatePaymentRequest(t, a.payments, asha, crs, "333333333333", payment.StatusPending, now)

	detail := func(pr payment.PaymentRequest) payment.RequestDetail {
		return payment.RequestDetail{PaymentRequest: pr, UserName: asha.Name, UserEmail: asha.Email, CourseTitle: crs.Title}
	}

	tests := []httpTest{
		{name: "auth required", path: "/v1/payments/pending", wantCode: http.StatusUnauthorized},
		{
			name: "verifier only", path: "/v1/payments/pending", token: getToken(t, asha),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "pending, newest first", path: "/v1/payments/pending", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, detail(last), detail(first)),
		},
	}
	a.run(t, tests)
}

func Test_paymentApi_approve(t *testing.T) {
	a := setup(t)
	asha := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
	admin := testutil.CreateUser(t, a.users, "Verifier", "verifier@test.in", "", []string{user.RoleAdmin}, true)
	crs := testutil.CreateCourse(t, a.courses, "Physics", 799)
	pr := testutil.CreatePaymentRequest(t, a.payments, asha, crs, "123456789012", payment.StatusPending)

	path := "/v1/payments/" + pr.ID + "/approve"
	adminToken := getToken(t, admin)

	a.run(t, []httpTest{
		{
			name: "verifier only", method: http.MethodPost, path: path, token: getToken(t, asha),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown request", method: http.MethodPost, path: "/v1/payments/3f0c1c9e-4b8e-4a55-9f0b-6c2a9e1d7b44/approve", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: payment.ErrNotFound.Error()}),
		},
	})

	t.Run("approved", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, adminToken)
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got payment.PaymentRequest
		unmarshal(t, rec, &got)
		assert.Equal(t, payment.StatusApproved, got.Status)
		assert.False(t, got.ReviewedAt.IsZero())

		grant, err := a.enrollments.GetActiveGrant(context.Background(), asha.ID, crs.ID)
		require.NoError(t, err)
		assert.True(t, grant.IsActive())

		assert.Equal(t, []string{payment.EventApproved}, a.events.Keys())
		msgs := emailsvc.LastSentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, asha.Email, msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].TextContent, crs.Title)
	})

	t.Run("already reviewed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, adminToken)
		a.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: payment.ErrInvalidTransition.Error()}),
		}, rec)

		grants, err := a.enrollments.QueryUserGrants(context.Background(), asha.ID)
		require.NoError(t, err)
		assert.Len(t, grants, 1)
	})
}

func Test_paymentApi_reject(t *testing.T) {
	a := setup(t)
	asha := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
	admin := testutil.CreateUser(t, a.users, "Verifier", "verifier@test.in", "", []string{user.RoleAdmin}, true)
	crs := testutil.CreateCourse(t, a.courses, "Physics", 799)
	pr := testutil.CreatePaymentRequest(t, a.payments, asha, crs, "123456789012", payment.StatusPending)

	req, rec := newAuthRequest(http.MethodPost, "/v1/payments/"+pr.ID+"/reject", getToken(t, admin))
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got payment.PaymentRequest
	unmarshal(t, rec, &got)
	assert.Equal(t, payment.StatusRejected, got.Status)

	_, err := a.enrollments.GetActiveGrant(context.Background(), asha.ID, crs.ID)
	assert.Error(t, err, "rejection must not grant access")
	assert.Equal(t, []string{payment.EventRejected}, a.events.Keys())

	t.Run("cannot approve a rejected request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/"+pr.ID+"/approve", getToken(t, admin))
		a.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
