package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ar(user, date string) models.AttendanceRecord {
	return models.AttendanceRecord{Username: user, Date: date, Time: "08:00:00"}
}

func TestCheck_ReportsDivergence(t *testing.T) {
	db, _ := newMockDB(t)
	repo := &fakeRecords{rows: []models.AttendanceRecord{
		ar("alice", "2024-05-01"),
		ar("bob", "2024-05-01"),
		ar("dave", "2024-05-02"),
	}}
	sh := &fakeSheet{rows: []models.AttendanceRecord{
		ar("alice", "2024-05-01"),
		ar("carol", "2024-05-02"),
		ar("alice", "2024-05-01"),
		ar("dave", "2024-05-02"),
	}}
	svc := NewConsistencyService(db, &fakeManager{repo: repo}, sh, logging.Discard(), nil)

	rep, err := svc.Check(context.Background())
	require.NoError(t, err)

	want := Report{
		RelationalRecords: 3,
		TabularRecords:    4,
		OnlyTabular:       []models.Key{{Username: "carol", Date: "2024-05-02"}},
		OnlyRelational:    []models.Key{{Username: "bob", Date: "2024-05-01"}},
		TabularDuplicates: []models.Key{{Username: "alice", Date: "2024-05-01"}},
	}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, rep.Consistent())
}

func TestCheck_ConsistentStores(t *testing.T) {
	st := newRealStores(t)
	reg := NewRegistrationService(st.db.DB, st.manager, st.sheet, logging.Discard())
	ctx := context.Background()

	_, err := reg.Register(ctx, event("alice", at(1, 8, 0)))
	require.NoError(t, err)
	_, err = reg.Register(ctx, event("bob", at(1, 8, 0)))
	require.NoError(t, err)

	logger, buf := bufLogger(t)
	svc := NewConsistencyService(st.db.DB, st.manager, st.sheet, logger, reg.Locker())

	rep, err := svc.Check(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Consistent())
	assert.Equal(t, 2, rep.RelationalRecords)
	assert.Equal(t, 2, rep.TabularRecords)

	svc.LogReport(ctx, rep)
	assert.Contains(t, buf.String(), "stores consistent")
}

func TestCheck_ListErrors(t *testing.T) {
	db, _ := newMockDB(t)
	ctx := context.Background()

	svc := NewConsistencyService(db, &fakeManager{repo: &fakeRecords{listErr: errors.New("db down")}}, &fakeSheet{}, logging.Discard(), nil)
	_, err := svc.Check(ctx)
	assert.ErrorIs(t, err, common.ErrPersistence)

	svc = NewConsistencyService(db, &fakeManager{repo: &fakeRecords{}}, &fakeSheet{listErr: errors.New("corrupt")}, logging.Discard(), nil)
	_, err = svc.Check(ctx)
	assert.ErrorIs(t, err, common.ErrPersistence)
}

func TestLogReport_Divergence(t *testing.T) {
	db, _ := newMockDB(t)
	logger, buf := bufLogger(t)
	svc := NewConsistencyService(db, &fakeManager{repo: &fakeRecords{}}, &fakeSheet{}, logger, nil)

	svc.LogReport(context.Background(), Report{OnlyTabular: []models.Key{{Username: "carol", Date: "2024-05-02"}}})
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "carol")
}

func TestRebuild_FromRelational(t *testing.T) {
	st := newRealStores(t)
	reg := NewRegistrationService(st.db.DB, st.manager, st.sheet, logging.Discard())
	ctx := context.Background()

	_, err := reg.Register(ctx, event("alice", at(1, 8, 0)))
	require.NoError(t, err)
	_, err = reg.Register(ctx, event("bob", at(1, 8, 3)))
	require.NoError(t, err)

	// drift the workbook away from the database
	require.NoError(t, st.sheet.Append(ctx, ar("ghost", "2024-05-01")))
	require.NoError(t, st.sheet.Remove(ctx, "alice", "2024-05-01"))

	svc := NewConsistencyService(st.db.DB, st.manager, st.sheet, logging.Discard(), reg.Locker())

	rep, err := svc.Check(ctx)
	require.NoError(t, err)
	require.False(t, rep.Consistent())

	n, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rep, err = svc.Check(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Consistent())

	rows, err := st.sheet.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "08:03:00", rows[1].Time)
}

func TestRebuild_Errors(t *testing.T) {
	db, _ := newMockDB(t)
	ctx := context.Background()

	svc := NewConsistencyService(db, &fakeManager{repo: &fakeRecords{listErr: errors.New("db down")}}, &fakeSheet{}, logging.Discard(), nil)
	_, err := svc.Rebuild(ctx)
	assert.ErrorIs(t, err, common.ErrPersistence)

	sh := &fakeSheet{rewriteErr: errors.New("read-only file system")}
	svc = NewConsistencyService(db, &fakeManager{repo: &fakeRecords{}}, sh, logging.Discard(), nil)
	_, err = svc.Rebuild(ctx)
	assert.ErrorIs(t, err, common.ErrPersistence)
}
