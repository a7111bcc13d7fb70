package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
)

func rolePtr(r model.Role) *model.Role { return &r }
func boolPtr(b bool) *bool             { return &b }

func TestService_LastAdminProtection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		admins  int
		act     func(f *fixture, target int) error
		wantErr error
	}{
		{
			name:   "demote last admin",
			admins: 1,
			act: func(f *fixture, target int) error {
				_, err := f.svc.UpdateUser(context.Background(), target, model.UpdateUserRequest{Role: rolePtr(model.RoleUser)})
				return err
			},
			wantErr: errs.ErrLastAdmin,
		},
		{
			name:   "deactivate last admin",
			admins: 1,
			act: func(f *fixture, target int) error {
				_, err := f.svc.UpdateUser(context.Background(), target, model.UpdateUserRequest{IsActive: boolPtr(false)})
				return err
			},
			wantErr: errs.ErrLastAdmin,
		},
		{
			name:   "delete last admin",
			admins: 1,
			act: func(f *fixture, target int) error {
				return f.svc.DeleteUser(context.Background(), target)
			},
			wantErr: errs.ErrLastAdmin,
		},
		{
			name:   "rename last admin",
			admins: 1,
			act: func(f *fixture, target int) error {
				name := "Root"
				_, err := f.svc.UpdateUser(context.Background(), target, model.UpdateUserRequest{FullName: &name})
				return err
			},
		},
		{
			name:   "demote one of two",
			admins: 2,
			act: func(f *fixture, target int) error {
				_, err := f.svc.UpdateUser(context.Background(), target, model.UpdateUserRequest{Role: rolePtr(model.RoleUser)})
				return err
			},
		},
		{
			name:   "delete one of two",
			admins: 2,
			act: func(f *fixture, target int) error {
				return f.svc.DeleteUser(context.Background(), target)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			var target model.User
			for i := 0; i < tt.admins; i++ {
				target = f.user(t, model.RoleAdmin)
			}
			f.user(t, model.RoleUser)

			err := tt.act(f, target.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				stored := f.repo.st.users[target.ID]
				require.True(t, stored.IsActiveAdmin())
				require.False(t, f.repo.st.deleted[target.ID])
				return
			}
			require.NoError(t, err)
			admins, err := f.repo.LockActiveAdmins(context.Background())
			require.NoError(t, err)
			require.NotEmpty(t, admins)
		})
	}
}

func TestService_DemoteBothAdmins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.user(t, model.RoleAdmin)
	a2 := f.user(t, model.RoleAdmin)

	_, err := f.svc.UpdateUser(ctx, a1.ID, model.UpdateUserRequest{Role: rolePtr(model.RoleUser)})
	require.NoError(t, err)
	_, err = f.svc.UpdateUser(ctx, a2.ID, model.UpdateUserRequest{Role: rolePtr(model.RoleUser)})
	require.ErrorIs(t, err, errs.ErrLastAdmin)

	_, err = f.svc.UpdateUser(ctx, a1.ID, model.UpdateUserRequest{Role: rolePtr(model.RoleAdmin)})
	require.NoError(t, err)
	_, err = f.svc.UpdateUser(ctx, a2.ID, model.UpdateUserRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, a1.ID, model.UpdateUserRequest{Role: rolePtr("superuser")})
	require.ErrorIs(t, err, errs.ErrInvalidRole)
	_, err = f.svc.UpdateUser(ctx, 4040, model.UpdateUserRequest{FullName: new(string)})
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestService_RegisterLoginIdentify(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, model.RegisterRequest{
		Email:    "  Siti@Example.com ",
		FullName: "Siti",
		Password: "rahasia123",
	})
	require.NoError(t, err)
	require.Equal(t, "siti@example.com", u.Email)
	require.Equal(t, model.RoleUser, u.Role)
	require.NotEqual(t, "rahasia123", u.PasswordHash)

	_, err = f.svc.Register(ctx, model.RegisterRequest{Email: "siti@example.com", FullName: "x", Password: "rahasia123"})
	require.ErrorIs(t, err, errs.ErrEmailTaken)

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "siti@example.com", Password: "wrong-pass"})
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "rahasia123"})
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	tok, err := f.svc.Login(ctx, model.LoginRequest{Email: "SITI@example.com", Password: "rahasia123"})
	require.NoError(t, err)
	require.Equal(t, "bearer", tok.TokenType)

	p, err := f.svc.Identify(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, model.Principal{UserID: u.ID, Role: model.RoleUser, IsActive: true}, p)

	// role changes apply to already issued tokens
	f.user(t, model.RoleAdmin)
	_, err = f.svc.UpdateUser(ctx, u.ID, model.UpdateUserRequest{Role: rolePtr(model.RoleAdmin)})
	require.NoError(t, err)
	p, err = f.svc.Identify(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.True(t, p.IsAdmin())

	_, err = f.svc.UpdateUser(ctx, u.ID, model.UpdateUserRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.svc.Identify(ctx, tok.AccessToken)
	require.ErrorIs(t, err, errs.ErrInactiveUser)
	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "siti@example.com", Password: "rahasia123"})
	require.ErrorIs(t, err, errs.ErrInactiveUser)

	_, err = f.svc.Identify(ctx, "not-a-token")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestService_EnsureAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureAdmin(ctx, "", "", ""))
	require.Empty(t, f.repo.st.users)

	require.NoError(t, f.svc.EnsureAdmin(ctx, "admin@library.local", "admin-pass", "Admin"))
	admins, err := f.repo.LockActiveAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	require.NoError(t, f.svc.EnsureAdmin(ctx, "other@library.local", "admin-pass", "Admin"))
	admins, err = f.repo.LockActiveAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1, "seed is skipped while an admin exists")
}

func TestService_EmailExists(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, model.RegisterRequest{Email: "budi@example.com", FullName: "Budi", Password: "rahasia123"})
	require.NoError(t, err)

	tests := []struct {
		email string
		want  bool
	}{
		{"budi@example.com", true},
		{" BUDI@Example.com ", true},
		{"ani@example.com", false},
	}
	for _, tt := range tests {
		got, err := f.svc.EmailExists(ctx, tt.email)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, tt.email)
	}

	f.repo.fail["GetUserByEmail"] = context.DeadlineExceeded
	_, err = f.svc.EmailExists(ctx, "budi@example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
