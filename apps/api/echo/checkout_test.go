package echoapi_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mahimaacademy/academy/apps/api/echo"
	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/payment"
	testutil "github.com/mahimaacademy/academy/tests"
)

func Test_checkoutApi_info(t *testing.T) {
	a := setup(t)
	crs := testutil.CreateCourse(t, a.courses, "Physics", 499)

	req, rec := newRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/checkout")
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CheckoutInfoResponse
	unmarshal(t, rec, &resp)
	assert.Equal(t, crs.ID, resp.Course.ID)
	assert.Equal(t, int64(payment.MaxProofSize), resp.MaxProofSize)
	assert.Equal(t, merchant.VPA, resp.Intent.Payee)
	assert.Equal(t, "upi://pay?pa=mahimaacademy@okaxis&pn=Mahima%20Academy&am=499.00&tn=Course-"+crs.ID+"&cu=INR", resp.Intent.Link)
	assert.Len(t, resp.Intent.AppLinks, 4)
	assert.True(t, strings.HasPrefix(resp.Intent.AppLinks["gpay"], "tez://upi/pay?"))
	assert.Contains(t, resp.Intent.QRCode, "api.qrserver.com")

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/0f6c2d8e-7d1a-4bde-8f0e-2b9f3f4c5a6b/checkout")
		a.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_checkoutApi_submit(t *testing.T) {
	validForm := func(ref string) map[string]string {
		return map[string]string{"sender_name": "  Asha K ", "transaction_id": ref, "acknowledged": "true"}
	}
	png := &proofFile{name: "receipt.png", data: testutil.PNG(2048)}

	t.Run("sign in required", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)

		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", "", validForm("123456789012"), png)
		a.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
		var resp map[string]string
		unmarshal(t, rec, &resp)
		assert.Equal(t, payment.ErrAuthRequired.Error(), resp["error"])
		assert.Equal(t, "/courses/"+crs.ID+"/checkout?step=payment", resp["resume"])
		assert.Empty(t, a.bucket.Keys())
	})

	t.Run("deactivated purchaser must sign in again", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		gone := testutil.CreateUser(t, a.users, "Gone", "gone@test.in", "", nil, false)

		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, gone), validForm("123456789012"), png)
		a.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	})

	t.Run("submitted", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)

		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), validForm("1234 5678-9012"), png)
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp CheckoutResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, payment.StepVerify, resp.Step)
		pr := resp.Request
		assert.Equal(t, payment.StatusPending, pr.Status)
		assert.Equal(t, "123456789012", pr.TransactionRef)
		assert.Equal(t, "Asha K", pr.SenderName)
		assert.Equal(t, usr.ID, pr.UserID)
		assert.Equal(t, crs.ID, pr.CourseID)
		assert.True(t, crs.Price.Equal(pr.Amount))

		keys := a.bucket.Keys()
		require.Len(t, keys, 1)
		assert.True(t, strings.HasPrefix(keys[0], "receipts/"+usr.ID+"_"), keys[0])
		assert.Equal(t, mediaURL+"/"+keys[0], pr.ProofURL)
		contentType, data, _ := a.bucket.Object(keys[0])
		assert.Equal(t, "image/png", contentType)
		assert.Equal(t, png.data, data)

		stored, err := a.payments.GetRequest(context.Background(), pr.ID)
		require.NoError(t, err)
		assert.Equal(t, pr.ID, stored.ID)
		assert.Equal(t, []string{payment.EventSubmitted}, a.events.Keys())
	})

	t.Run("form errors are reported together without uploading", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)

		form := map[string]string{"transaction_id": "12345"}
		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), form, nil)
		a.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var resp map[string]string
		unmarshal(t, rec, &resp)
		assert.Equal(t, "transaction ID must be exactly 12 digits", resp["transaction_id"])
		assert.Contains(t, resp, "proof")
		assert.Contains(t, resp, "acknowledged")
		assert.Empty(t, a.bucket.Keys())
		assert.Empty(t, a.events.Keys())
	})

	t.Run("proof too large", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)

		big := &proofFile{name: "big.png", data: testutil.PNG(payment.MaxProofSize + 1)}
		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), validForm("123456789012"), big)
		a.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		ok, err := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, map[string]string{"proof": payment.ErrFileTooLarge.Error()}))
		assert.NoError(t, err)
		assert.True(t, ok, rec.Body.String())
		assert.Empty(t, a.bucket.Keys())
	})

	t.Run("proof is not an image", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)

		txt := &proofFile{name: "receipt.png", data: []byte("definitely not a picture")}
		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), validForm("123456789012"), txt)
		a.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, a.bucket.Keys())
	})

	t.Run("duplicate transaction reference", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		first := testutil.CreateUser(t, a.users, "Ravi", "ravi@test.in", "", nil, true)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
		testutil.CreatePaymentRequest(t, a.payments, first, crs, "123456789012", payment.StatusApproved)

		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), validForm("123456789012"), png)
		a.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		ok, err := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, httpErr{Error: payment.ErrDuplicateReference.Error()}))
		assert.NoError(t, err)
		assert.True(t, ok, rec.Body.String())
		assert.Empty(t, a.bucket.Keys(), "the orphaned proof must be deleted")

		mine, err := a.payments.QueryUserRequests(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)
		a.bucket.FailUploads = core.NewTransientError(errors.New("bucket unreachable"))

		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), validForm("123456789012"), png)
		a.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		count, err := a.payments.CountRequests(context.Background(), payment.StatusPending)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("body too large", func(t *testing.T) {
		a := setup(t)
		crs := testutil.CreateCourse(t, a.courses, "Physics", 499)
		usr := testutil.CreateUser(t, a.users, "Asha", "asha@test.in", "", nil, true)

		huge := &proofFile{name: "huge.png", data: testutil.PNG(7 << 20)}
		req, rec := newCheckoutRequest(t, "/v1/courses/"+crs.ID+"/checkout", getToken(t, usr), validForm("123456789012"), huge)
		a.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, a.bucket.Keys())
	})
}

func Test_media(t *testing.T) {
	a := setup(t)
	png := testutil.PNG(128)
	url, err := a.bucket.Upload(context.Background(), "receipts/u-1_1_ab12cd34.png", "image/png", png)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, mediaURL+"/"))

	t.Run("stored content type", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/media/receipts/u-1_1_ab12cd34.png")
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, png, rec.Body.Bytes())
	})

	a.run(t, []httpTest{
		{name: "missing", path: "/media/receipts/nope.png", wantCode: http.StatusNotFound},
		{name: "outside the bucket", path: "/media/../go.mod", wantCode: http.StatusNotFound},
	})
}
