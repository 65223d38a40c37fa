package requirements

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	ea       = types.Actor{Email: "ea@example.com", Role: types.RoleEA}
	otherEA  = types.Actor{Email: "ea2@example.com", Role: types.RoleEA}
	hr       = types.Actor{Email: "hr@example.com", Role: types.RoleHR}
)

func setup(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New(cache.NewMemoryCache(), store.WithClock(func() time.Time { return fixedNow }))
	return NewService(st, permissions.New(nil)), st
}

func accountant() types.RequirementFields {
	return types.RequirementFields{
		JobRole:               "Accountant",
		JobTitle:              "Senior Accountant",
		RolesResponsibilities: "Maintain books",
		MustHaveSkills:        "Tally, GST",
		Shift:                 "Day",
		PayScale:              "25k-30k",
		Perks:                 "PF, ESI",
	}
}

func TestRaise(t *testing.T) {
	svc, _ := setup(t)

	r, err := svc.Raise(context.Background(), ea, accountant())
	require.NoError(t, err)
	assert.Regexp(t, `^REQ-`, r.ID)
	assert.Equal(t, types.RequirementRaised, r.Status)
	assert.Equal(t, "ea@example.com", r.RaisedBy)
	assert.Equal(t, fixedNow, r.RaisedDate)
	assert.Equal(t, "Accountant", r.JobRole)
}

func TestRaise_MissingFields(t *testing.T) {
	svc, st := setup(t)

	_, err := svc.Raise(context.Background(), ea, types.RequirementFields{JobRole: "Accountant", JobTitle: "x"})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rolesResponsibilities", verr.Field)
	assert.Empty(t, slices.Collect(st.Requirements()))
}

func TestRaise_PrefillsFromTemplate(t *testing.T) {
	svc, st := setup(t)
	_, err := st.PutTemplate(context.Background(), types.JobTemplate{
		JobRole:               "Telecaller",
		JobTitle:              "Telecaller",
		RolesResponsibilities: "Outbound calls",
		MustHaveSkills:        "Hindi, English",
		Shift:                 "Day",
		PayScale:              "12k-15k",
		Perks:                 "Incentives",
	}, store.Mutation{Action: "saveJobTemplate"})
	require.NoError(t, err)

	r, err := svc.Raise(context.Background(), ea, types.RequirementFields{JobRole: "telecaller", PayScale: "15k-18k"})
	require.NoError(t, err)
	assert.Equal(t, "Outbound calls", r.RolesResponsibilities)
	assert.Equal(t, "15k-18k", r.PayScale)
}

func TestRaise_Forbidden(t *testing.T) {
	st := store.New(nil)
	m := permissions.New(nil)
	require.NoError(t, m.Set(permissions.ModuleRequirements, types.RoleEA, permissions.Create, false))
	svc := NewService(st, m)

	_, err := svc.Raise(context.Background(), ea, accountant())
	var ferr *types.ForbiddenError
	assert.ErrorAs(t, err, &ferr)
}

func TestApprove(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	r, err := svc.Raise(ctx, ea, accountant())
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, hr, r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequirementValid, approved.Status)
	assert.Equal(t, types.RemarkApproved, approved.Remark)
	assert.Equal(t, "hr@example.com", approved.ReviewedBy)
	require.NotNil(t, approved.ReviewDate)
	assert.Equal(t, fixedNow, *approved.ReviewDate)
}

func TestApprove_OnlyFromRaised(t *testing.T) {
	ctx := context.Background()

	for _, setupState := range []struct {
		name  string
		apply func(svc *Service, id string) error
	}{
		{"valid", func(svc *Service, id string) error { _, err := svc.Approve(ctx, hr, id); return err }},
		{"sent back", func(svc *Service, id string) error { _, err := svc.SendBack(ctx, hr, id, "fix pay"); return err }},
	} {
		t.Run(setupState.name, func(t *testing.T) {
			svc, _ := setup(t)
			r, err := svc.Raise(ctx, ea, accountant())
			require.NoError(t, err)
			require.NoError(t, setupState.apply(svc, r.ID))
			before, err := svc.Get(r.ID)
			require.NoError(t, err)

			_, err = svc.Approve(ctx, hr, r.ID)
			var terr *types.InvalidTransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, string(before.Status), terr.From)

			after, err := svc.Get(r.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed approve leaves the record unmodified")
		})
	}
}

func TestApprove_NotFoundAndForbidden(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Approve(ctx, hr, "REQ-missing")
	var nf *types.NotFoundError
	assert.ErrorAs(t, err, &nf)

	r, err := svc.Raise(ctx, ea, accountant())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, ea, r.ID)
	var ferr *types.ForbiddenError
	assert.ErrorAs(t, err, &ferr)

	admin := types.Actor{Email: "owner@example.com", Role: types.RoleAdmin}
	_, err = svc.Approve(ctx, admin, r.ID)
	assert.NoError(t, err)
}

func TestSendBack(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	r, err := svc.Raise(ctx, ea, accountant())
	require.NoError(t, err)

	_, err = svc.SendBack(ctx, hr, r.ID, "   ")
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "remark", verr.Field)

	_, err = svc.SendBack(ctx, hr, "REQ-missing", "x")
	var nf *types.NotFoundError
	assert.ErrorAs(t, err, &nf)

	sent, err := svc.SendBack(ctx, hr, r.ID, " pay scale too low ")
	require.NoError(t, err)
	assert.Equal(t, types.RequirementSentBack, sent.Status)
	assert.Equal(t, "pay scale too low", sent.Remark)
}

func TestResubmit(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	r, err := svc.Raise(ctx, ea, accountant())
	require.NoError(t, err)

	_, err = svc.Resubmit(ctx, ea, r.ID, accountant())
	var terr *types.InvalidTransitionError
	require.ErrorAs(t, err, &terr, "only Sent Back requirements can be resubmitted")

	_, err = svc.SendBack(ctx, hr, r.ID, "raise the pay")
	require.NoError(t, err)

	fields := accountant()
	fields.PayScale = "30k-35k"

	_, err = svc.Resubmit(ctx, otherEA, r.ID, fields)
	var ferr *types.ForbiddenError
	require.ErrorAs(t, err, &ferr)

	resubmitted, err := svc.Resubmit(ctx, ea, r.ID, fields)
	require.NoError(t, err)
	assert.Equal(t, types.RequirementRaised, resubmitted.Status)
	assert.Equal(t, "30k-35k", resubmitted.PayScale)
	assert.Empty(t, resubmitted.Remark)
	require.NotNil(t, resubmitted.ResubmittedDate)

	_, err = svc.Approve(ctx, hr, r.ID)
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Raise(ctx, ea, accountant())
	require.NoError(t, err)
	b, err := svc.Raise(ctx, otherEA, accountant())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, hr, b.ID)
	require.NoError(t, err)

	raised := svc.List(types.RequirementFilter{Status: types.RequirementRaised})
	got := slices.Collect(raised)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	legacy := slices.Collect(svc.List(types.RequirementFilterFromMap(map[string]string{"status": "Pending Review", "bogus": "x"})))
	assert.Equal(t, got, legacy)

	all := svc.List(types.RequirementFilter{})
	assert.Len(t, slices.Collect(all), 2)
	assert.Len(t, slices.Collect(all), 2, "sequence is restartable")

	mine := slices.Collect(svc.List(types.RequirementFilter{RaisedBy: "EA2@example.com"}))
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)
}

func TestJobDetails(t *testing.T) {
	r := types.Requirement{}
	accountant().Apply(&r)

	want := "Job Title: Senior Accountant\n" +
		"Job Role: Accountant\n\n" +
		"Roles & Responsibilities:\nMaintain books\n\n" +
		"Must Have Skills:\nTally, GST\n\n" +
		"Shift: Day\n" +
		"Pay Scale: 25k-30k\n\n" +
		"Perks:\nPF, ESI"
	assert.Equal(t, want, JobDetails(r))
}
