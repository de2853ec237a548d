package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/user"
	dummydb "github.com/mahimaacademy/academy/storage/database/dummy"
	testutil "github.com/mahimaacademy/academy/tests"
)

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	return user.NewService(repo), repo
}

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	validate, translator := newValidator()
	svc, repo := setup(t)
	testutil.CreateUser(t, repo, "Asha", "asha@test.in", "", nil, true)

	valid := func() user.NewUser {
		return user.NewUser{Name: " Ravi ", Email: " Ravi@Test.in ", Password: "correct-horse", PasswordConfirm: "correct-horse"}
	}

	tests := []struct {
		name    string
		modify  func(nu *user.NewUser)
		wantErr map[string]string
	}{
		{name: "valid", modify: func(*user.NewUser) {}},
		{
			name:    "missing fields",
			modify:  func(nu *user.NewUser) { nu.Name, nu.Email, nu.PasswordConfirm = "", "", "" },
			wantErr: map[string]string{"name": "this field is required", "email": "this field is required", "password_confirm": "this field is required"},
		},
		{
			name:    "blank name",
			modify:  func(nu *user.NewUser) { nu.Name = "   " },
			wantErr: map[string]string{"name": "this field is required"},
		},
		{
			name:    "too short",
			modify:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "s3cr3t", "s3cr3t" },
			wantErr: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name:    "whitespace",
			modify:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "correct horse", "correct horse" },
			wantErr: map[string]string{"password": "password must not contain whitespace"},
		},
		{
			name:    "all numeric",
			modify:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "1234567890", "1234567890" },
			wantErr: map[string]string{"password": "password cannot be entirely numeric"},
		},
		{
			name: "similar to name",
			modify: func(nu *user.NewUser) {
				nu.Name = "Asha Kumari"
				nu.Password, nu.PasswordConfirm = "ashakumari", "ashakumari"
			},
			wantErr: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name:    "unknown role",
			modify:  func(nu *user.NewUser) { nu.Roles = []string{"superuser"} },
			wantErr: map[string]string{"roles": "invalid roles"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.modify(&nu)
			err := nu.Validate(ctx, validate, svc)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "Ravi", nu.Name)
				assert.Equal(t, "ravi@test.in", nu.Email)
				return
			}

			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}

	t.Run("email taken", func(t *testing.T) {
		nu := valid()
		nu.Email = "ASHA@test.in"
		err := nu.Validate(ctx, validate, svc)
		assert.True(t, core.IsValidation(err))
		assert.True(t, errors.Is(err, user.ErrEmailExists))
	})
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)

	usr, err := svc.Create(context.Background(), user.NewUser{Name: "Ravi", Email: "ravi@test.in", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsStudent())
	assert.False(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword("correct-horse"))

	admin, err := svc.Create(context.Background(), user.NewUser{Name: "V", Email: "v@test.in", Password: "correct-horse", Roles: user.AdminRoles})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsStudent())
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	orig := user.NowFunc
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = orig }()

	svc, repo := setup(t)
	testutil.CreateUser(t, repo, "Asha", "asha@test.in", "correct-horse", user.StudentRoles, true)
	testutil.CreateUser(t, repo, "Ravi", "ravi@test.in", "correct-horse", user.StudentRoles, false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "lol@test.in", pwd: "correct-horse", wantErr: user.ErrAuthenticationFailed},
		{name: "wrong password", email: "asha@test.in", pwd: "wrong-horse", wantErr: user.ErrAuthenticationFailed},
		{name: "deactivated", email: "ravi@test.in", pwd: "correct-horse", wantErr: user.ErrAccountDeactivated},
		{name: "ok", email: " ASHA@test.in", pwd: "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Asha", usr.Name)
			assert.Equal(t, now, usr.LastLogin)
		})
	}
}
