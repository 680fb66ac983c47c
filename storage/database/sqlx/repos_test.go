package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core/school"
	"github.com/trezcool/surgepay/core/user"
	"github.com/trezcool/surgepay/storage/database"
	testutil "github.com/trezcool/surgepay/tests"
)

// openTestDB connects to the database named by TEST_DB_HOST / TEST_DB_NAME / TEST_DB_USER / TEST_DB_PASSWORD
// and migrates it from scratch.
func openTestDB(t *testing.T) *sqlx.DB {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	conf := testutil.NewConfig()
	conf.Database.Engine = "postgres"
	conf.Database.Host = host
	conf.Database.Port = "5432"
	conf.Database.Name = os.Getenv("TEST_DB_NAME")
	conf.Database.User = os.Getenv("TEST_DB_USER")
	conf.Database.Password = os.Getenv("TEST_DB_PASSWORD")
	conf.Database.DisableTLS = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB, "reset"))
	require.NoError(t, database.Migrate(db.DB, "up"))
	return db
}

func TestRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	schools := NewSchoolRepository(db)

	owner := testutil.CreateUser(t, users, "Owner", "owner@test.com", "Str0ng!Pass", []string{user.RoleAdminOwner}, true)
	assert.NotEmpty(t, owner.ID)

	_, err := users.CreateUser(ctx, user.User{Email: "owner@test.com", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	assert.Equal(t, user.ErrEmailExists, errors.Cause(users.CheckEmailUniqueness(ctx, "owner@test.com")))
	assert.NoError(t, users.CheckEmailUniqueness(ctx, "owner@test.com", owner))

	_, err = users.GetUserByID(ctx, "not-a-uuid")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	got, err := users.GetUserByEmail(ctx, "owner@test.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)
	assert.NoError(t, got.CheckPassword("Str0ng!Pass"))

	sch, err := schools.CreateSchool(ctx, school.School{Name: "Green Hill", Address: "1 Main St", OwnerID: owner.ID, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	got.SchoolID = sch.ID
	got.EmailVerified = true
	_, err = users.UpdateUser(ctx, got)
	require.NoError(t, err)

	byOwner, err := schools.GetSchoolByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, sch.ID, byOwner.ID)

	added, err := schools.AddStudents(ctx, sch.ID, "Ann Lee", "Bob Ray")
	require.NoError(t, err)
	assert.Len(t, added, 2)
	added, err = schools.AddStudents(ctx, sch.ID, "Ann Lee", "Cid Moe")
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "Cid Moe", added[0].FullName)

	students, err := schools.ListStudents(ctx, sch.ID)
	require.NoError(t, err)
	assert.Len(t, students, 3)

	teacher := testutil.CreateUser(t, users, "Teach", "teach@test.com", "", []string{user.RoleTeacher}, true)
	require.NoError(t, users.DeleteUser(ctx, teacher.ID))
	assert.Equal(t, user.ErrNotFound, errors.Cause(users.DeleteUser(ctx, teacher.ID)))

	require.NoError(t, schools.DeleteSchool(ctx, sch.ID))
	assert.Equal(t, school.ErrNotFound, errors.Cause(schools.DeleteSchool(ctx, sch.ID)))
	students, err = schools.ListStudents(ctx, sch.ID)
	require.NoError(t, err)
	assert.Empty(t, students)
	detached, err := users.GetUserByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, detached.SchoolID, "school_id is cleared by the foreign key")
}
