package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/lifecycle"
	"github.com/Astemirdum/library-lending/lending/internal/model"
)

func TestNext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		from   model.Status
		event  lifecycle.Event
		target model.Status
		want   lifecycle.Transition
	}{
		{
			name:  "approve pending",
			from:  model.StatusPending,
			event: lifecycle.EventApprove,
			want: lifecycle.Transition{
				From: model.StatusPending, To: model.StatusBorrowed,
				Effect: lifecycle.StockReserve, OnInsufficient: model.StatusDeclined,
			},
		},
		{
			name:   "approve ignores target",
			from:   model.StatusPending,
			event:  lifecycle.EventApprove,
			target: model.StatusReturned,
			want: lifecycle.Transition{
				From: model.StatusPending, To: model.StatusBorrowed,
				Effect: lifecycle.StockReserve, OnInsufficient: model.StatusDeclined,
			},
		},
		{
			name:  "decline pending",
			from:  model.StatusPending,
			event: lifecycle.EventDecline,
			want:  lifecycle.Transition{From: model.StatusPending, To: model.StatusDeclined},
		},
		{
			name:  "return borrowed",
			from:  model.StatusBorrowed,
			event: lifecycle.EventReturn,
			want:  lifecycle.Transition{From: model.StatusBorrowed, To: model.StatusReturned, Effect: lifecycle.StockRelease},
		},
		{
			name:   "override borrowed to returned",
			from:   model.StatusBorrowed,
			event:  lifecycle.EventOverride,
			target: model.StatusReturned,
			want:   lifecycle.Transition{From: model.StatusBorrowed, To: model.StatusReturned, Effect: lifecycle.StockRelease},
		},
		{
			name:   "override pending to borrowed",
			from:   model.StatusPending,
			event:  lifecycle.EventOverride,
			target: model.StatusBorrowed,
			want:   lifecycle.Transition{From: model.StatusPending, To: model.StatusBorrowed, Effect: lifecycle.StockReserve},
		},
		{
			name:   "override pending to declined",
			from:   model.StatusPending,
			event:  lifecycle.EventOverride,
			target: model.StatusDeclined,
			want:   lifecycle.Transition{From: model.StatusPending, To: model.StatusDeclined},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := lifecycle.Next(tt.from, tt.event, tt.target)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNext_Invalid(t *testing.T) {
	t.Parallel()
	statuses := []model.Status{model.StatusPending, model.StatusBorrowed, model.StatusReturned, model.StatusDeclined}
	allowed := map[[3]string]bool{
		{"menunggu", "approve", ""}:              true,
		{"menunggu", "decline", ""}:              true,
		{"dipinjam", "return", ""}:               true,
		{"dipinjam", "override", "dikembalikan"}: true,
		{"menunggu", "override", "dipinjam"}:     true,
		{"menunggu", "override", "ditolak"}:      true,
	}
	for _, from := range statuses {
		for _, ev := range []lifecycle.Event{lifecycle.EventApprove, lifecycle.EventDecline, lifecycle.EventReturn} {
			_, err := lifecycle.Next(from, ev, "")
			if allowed[[3]string{string(from), string(ev), ""}] {
				require.NoError(t, err)
				continue
			}
			require.ErrorIs(t, err, errs.ErrInvalidTransition, "%s %s", from, ev)
		}
		for _, target := range append(statuses, "disetujui") {
			_, err := lifecycle.Next(from, lifecycle.EventOverride, target)
			if allowed[[3]string{string(from), "override", string(target)}] {
				require.NoError(t, err)
				continue
			}
			require.ErrorIs(t, err, errs.ErrInvalidTransition, "override %s -> %s", from, target)
		}
	}
}

func TestTransition_Dates(t *testing.T) {
	t.Parallel()
	tr, err := lifecycle.Next(model.StatusPending, lifecycle.EventApprove, "")
	require.NoError(t, err)
	require.True(t, tr.SetsBorrowDate())
	require.False(t, tr.SetsReturnDate())

	tr, err = lifecycle.Next(model.StatusBorrowed, lifecycle.EventReturn, "")
	require.NoError(t, err)
	require.False(t, tr.SetsBorrowDate())
	require.True(t, tr.SetsReturnDate())
}
