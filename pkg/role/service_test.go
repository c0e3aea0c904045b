package role_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/role"
)

type testActor bool

func (a testActor) IsSuperAdmin() bool { return bool(a) }

const (
	superAdmin = testActor(true)
	staff      = testActor(false)
)

type fixture struct {
	roles *role.Service
	perms *permission.Service
}

func newFixture(t *testing.T, opts ...role.ServiceOption) *fixture {
	t.Helper()
	perms := permission.NewService(permission.NewMemoryStore())
	roles := role.NewService(role.NewMemoryStore(), perms, opts...)
	return &fixture{roles: roles, perms: perms}
}

func (f *fixture) addPermission(t *testing.T, key string) permission.Permission {
	t.Helper()
	p, err := f.perms.Create(context.Background(), staff, permission.CreateParams{
		Key:   key,
		Scope: permission.ScopeAll,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) addRole(t *testing.T, name string) role.Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), staff, role.CreateParams{
		Name:        name,
		DisplayName: name,
	})
	require.NoError(t, err)
	return r
}

func TestService_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.roles.Create(ctx, staff, role.CreateParams{Name: "receptionist", DisplayName: "Receptionist"})
	require.NoError(t, err)
	assert.NotZero(t, r.ID)

	_, err = f.roles.Create(ctx, staff, role.CreateParams{Name: "receptionist"})
	assert.ErrorIs(t, err, role.ErrDuplicateName)

	// Same name under a tenant scope is a different role.
	tenantID := uuid.New()
	_, err = f.roles.Create(ctx, staff, role.CreateParams{Name: "receptionist", TenantID: &tenantID})
	assert.NoError(t, err)

	_, err = f.roles.Create(ctx, staff, role.CreateParams{Name: ""})
	assert.ErrorIs(t, err, role.ErrMissingName)

	_, err = f.roles.Create(ctx, staff, role.CreateParams{Name: "admin", System: true})
	assert.ErrorIs(t, err, role.ErrSystemProtected)

	_, err = f.roles.Create(ctx, superAdmin, role.CreateParams{Name: "admin", System: true})
	assert.NoError(t, err)
}

func TestService_AssignPermissions_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	read := f.addPermission(t, "bookings.read")
	create := f.addPermission(t, "bookings.create")
	del := f.addPermission(t, "bookings.delete")
	r := f.addRole(t, "receptionist")

	count, err := f.roles.AssignPermissions(ctx, r.ID, []int64{read.ID, create.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	annotated, err := f.roles.Permissions(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, annotated, 3) // the full catalog, not just the granted subset

	byID := make(map[int64]role.AnnotatedPermission)
	for _, ap := range annotated {
		byID[ap.ID] = ap
	}
	assert.True(t, byID[read.ID].Granted)
	assert.Equal(t, role.GrantActive, byID[read.ID].Status)
	assert.True(t, byID[create.ID].Granted)
	assert.False(t, byID[del.ID].Granted)
}

func TestService_AssignPermissions_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	read := f.addPermission(t, "bookings.read")
	r := f.addRole(t, "receptionist")

	for range 2 {
		count, err := f.roles.AssignPermissions(ctx, r.ID, []int64{read.ID, read.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, count) // duplicates collapse to one grant row
	}

	ids, err := f.roles.GrantedPermissionIDs(ctx, []int64{r.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{read.ID}, ids)
}

func TestService_AssignPermissions_ReplacesWholeSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	read := f.addPermission(t, "bookings.read")
	create := f.addPermission(t, "bookings.create")
	r := f.addRole(t, "receptionist")

	_, err := f.roles.AssignPermissions(ctx, r.ID, []int64{read.ID, create.ID})
	require.NoError(t, err)

	_, err = f.roles.AssignPermissions(ctx, r.ID, []int64{create.ID})
	require.NoError(t, err)

	ids, err := f.roles.GrantedPermissionIDs(ctx, []int64{r.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{create.ID}, ids)
}

func TestService_AssignPermissions_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	read := f.addPermission(t, "bookings.read")
	r := f.addRole(t, "receptionist")

	_, err := f.roles.AssignPermissions(ctx, 404, []int64{read.ID})
	assert.ErrorIs(t, err, role.ErrNotFound)

	_, err = f.roles.AssignPermissions(ctx, r.ID, []int64{read.ID, 999})
	assert.ErrorIs(t, err, role.ErrUnknownPermission)

	// A failed assignment must not disturb the existing set.
	ids, err := f.roles.GrantedPermissionIDs(ctx, []int64{r.ID})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_Update_SystemRoleProtection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	sys, err := f.roles.Create(ctx, superAdmin, role.CreateParams{Name: "tenant-admin", System: true})
	require.NoError(t, err)

	notSystem := false
	_, err = f.roles.Update(ctx, staff, sys.ID, role.UpdateParams{System: &notSystem})
	assert.ErrorIs(t, err, role.ErrSystemProtected)

	name := "renamed"
	_, err = f.roles.Update(ctx, staff, sys.ID, role.UpdateParams{Name: &name})
	assert.ErrorIs(t, err, role.ErrSystemProtected)

	// Display name and description stay editable on system roles.
	display := "Tenant Administrator"
	updated, err := f.roles.Update(ctx, staff, sys.ID, role.UpdateParams{DisplayName: &display})
	require.NoError(t, err)
	assert.Equal(t, display, updated.DisplayName)

	// A super admin may flip the system flag.
	updated, err = f.roles.Update(ctx, superAdmin, sys.ID, role.UpdateParams{System: &notSystem})
	require.NoError(t, err)
	assert.False(t, updated.System)
}

func TestService_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var invalidated []int64
	f := newFixture(t, role.WithGrantsChangedHook(func(_ context.Context, roleID int64) {
		invalidated = append(invalidated, roleID)
	}))

	r := f.addRole(t, "receptionist")
	sys, err := f.roles.Create(ctx, superAdmin, role.CreateParams{Name: "tenant-admin", System: true})
	require.NoError(t, err)

	assert.ErrorIs(t, f.roles.Delete(ctx, staff, sys.ID), role.ErrSystemProtected)
	assert.NoError(t, f.roles.Delete(ctx, superAdmin, sys.ID))

	require.NoError(t, f.roles.Delete(ctx, staff, r.ID))
	_, err = f.roles.Get(ctx, r.ID)
	assert.ErrorIs(t, err, role.ErrNotFound)
	assert.Contains(t, invalidated, r.ID)
}

func TestService_Clone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	read := f.addPermission(t, "bookings.read")
	source, err := f.roles.Create(ctx, superAdmin, role.CreateParams{
		Name:        "tenant-admin",
		DisplayName: "Tenant Administrator",
		System:      true,
	})
	require.NoError(t, err)
	_, err = f.roles.AssignPermissions(ctx, source.ID, []int64{read.ID})
	require.NoError(t, err)

	clone, err := f.roles.Clone(ctx, staff, source.ID, role.CloneParams{Name: "tenant-admin-copy"})
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, clone.ID)
	assert.False(t, clone.System, "a clone never inherits the system flag")
	assert.Equal(t, source.DisplayName, clone.DisplayName)

	ids, err := f.roles.GrantedPermissionIDs(ctx, []int64{clone.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{read.ID}, ids)

	_, err = f.roles.Clone(ctx, staff, source.ID, role.CloneParams{Name: "tenant-admin"})
	assert.ErrorIs(t, err, role.ErrDuplicateName)

	_, err = f.roles.Clone(ctx, staff, 404, role.CloneParams{Name: "whatever"})
	assert.ErrorIs(t, err, role.ErrNotFound)
}

func TestService_GrantsChangedHook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var invalidated []int64
	f := newFixture(t, role.WithGrantsChangedHook(func(_ context.Context, roleID int64) {
		invalidated = append(invalidated, roleID)
	}))

	read := f.addPermission(t, "bookings.read")
	r := f.addRole(t, "receptionist")

	_, err := f.roles.AssignPermissions(ctx, r.ID, []int64{read.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, invalidated)
}

func TestService_PermissionReferenced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	read := f.addPermission(t, "bookings.read")
	other := f.addPermission(t, "rooms.read")
	r := f.addRole(t, "receptionist")

	_, err := f.roles.AssignPermissions(ctx, r.ID, []int64{read.ID})
	require.NoError(t, err)

	used, err := f.roles.PermissionReferenced(ctx, read.ID)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = f.roles.PermissionReferenced(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, used)
}
