package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return gormDB, mock
}

func TestRiderDAO_FindNearest(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "full_name", "status",
		"current_latitude", "current_longitude", "ctime", "utime", "distance",
	}).
		AddRow(1, 11, "Ade", 1, 6.52, 3.37, 0, 0, 0.8).
		AddRow(2, 12, "Bola", 1, 6.53, 3.38, 0, 0, 2.4)

	mock.ExpectQuery(`SELECT riders\.\*, \(6371 \* ACOS\(COS\(RADIANS\(\?\)\) \* COS\(RADIANS\(current_latitude\)\) \* COS\(RADIANS\(current_longitude\) - RADIANS\(\?\)\) \+ SIN\(RADIANS\(\?\)\) \* SIN\(RADIANS\(current_latitude\)\)\)\) AS distance FROM .riders. WHERE status = \? AND id NOT IN \(\?,\?\) HAVING distance < \? ORDER BY distance ASC`).
		WithArgs(6.5244, 3.3792, 6.5244, 1, int64(7), int64(9), 5.0).
		WillReturnRows(rows)

	riders, err := NewRiderDAO(db).FindNearest(context.Background(), 6.5244, 3.3792, 5, []int64{7, 9})
	require.NoError(t, err)
	require.Len(t, riders, 2)
	assert.Equal(t, "Ade", riders[0].FullName)
	assert.InDelta(t, 0.8, riders[0].Distance, 1e-9)
	assert.Less(t, riders[0].Distance, riders[1].Distance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiderDAO_FindNearest_NoExcludes(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM .riders. WHERE status = \? HAVING distance < \?`).
		WithArgs(1.0, 2.0, 1.0, 1, 50.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "distance"}))

	riders, err := NewRiderDAO(db).FindNearest(context.Background(), 1, 2, 50, nil)
	require.NoError(t, err)
	assert.Empty(t, riders)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiderDAO_GetByIDs(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM .riders. WHERE id IN \(\?\)`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "full_name", "status"}).
			AddRow(3, 30, "Chika", 1))

	riders, err := NewRiderDAO(db).GetByIDs(context.Background(), []int64{3})
	require.NoError(t, err)
	require.Len(t, riders, 1)
	assert.Equal(t, int64(30), riders[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiderDAO_GetByIDs_EmptyInput(t *testing.T) {
	t.Parallel()
	db, _ := newMockDB(t)
	riders, err := NewRiderDAO(db).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, riders)
}
