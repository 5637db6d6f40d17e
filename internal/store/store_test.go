package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db}, mock
}

func TestGetServiceNotFoundMapsToServiceError(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, tracking_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := st.GetService(context.Background(), id)
	require.Error(t, err)

	se, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeServiceNotFound, se.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateServiceNotFoundWhenZeroRowsAffected(t *testing.T) {
	st, mock := newMockStore(t)
	svc := domain.Service{ID: uuid.New(), Name: "x", Origins: "*", Status: domain.ServiceActive}

	mock.ExpectExec("UPDATE services SET").
		WithArgs(svc.ID, svc.Name, svc.Origins, svc.Status.String(), svc.CollectIPs,
			svc.AggressiveSalting, svc.IgnoreRobots, svc.HideReferrerRegex, svc.ScriptInject).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := st.UpdateService(context.Background(), svc)
	require.Error(t, err)

	se, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeServiceNotFound, se.Code)
}

func TestCountedFieldRejectsUnknownColumn(t *testing.T) {
	st, _ := newMockStore(t)

	_, err := st.CountedField(context.Background(), uuid.New(), time.Now().Add(-time.Hour), time.Now(), "'; DROP TABLE services; --", 300)
	require.Error(t, err)

	se, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInternal, se.Code)
}

func TestCountedFieldUsesAllowlistedColumnExpression(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()
	start, end := time.Now().Add(-time.Hour), time.Now()

	mock.ExpectQuery("SELECT hits.location AS label").
		WithArgs(id, start, end, 300).
		WillReturnRows(sqlmock.NewRows([]string{"label", "cnt"}).
			AddRow("/home", int64(10)).
			AddRow("/about", int64(3)))

	items, err := st.CountedField(context.Background(), id, start, end, "location", 300)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "/home", items[0].Label)
	assert.Equal(t, int64(10), items[0].Count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteServiceNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM services").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.DeleteService(context.Background(), id)
	require.Error(t, err)
	se, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeServiceNotFound, se.Code)
}
