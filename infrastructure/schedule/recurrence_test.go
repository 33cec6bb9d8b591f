package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/infrastructure/apperr"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestExpandWeeklyAcrossSelectedDays(t *testing.T) {
	// 2025-01-08 is a Wednesday.
	req := RecurringRequest{
		Name:         "Acme inbound",
		Type:         TypeInbound,
		Date:         "2025-01-08",
		StartTime:    "09:00",
		EndTime:      "10:30",
		Repeat:       RepeatWeekly,
		RepeatCount:  2,
		RepeatOnDays: []int{3, 1},
	}
	got, err := Expand(req, seqIDs())
	require.NoError(t, err)
	require.Len(t, got, 4)

	wantStarts := []string{
		"2025-01-06T09:00:00",
		"2025-01-08T09:00:00",
		"2025-01-13T09:00:00",
		"2025-01-15T09:00:00",
	}
	ids := map[string]bool{}
	for i, b := range got {
		assert.Equal(t, wantStarts[i], b.StartDateTime)
		require.NotNil(t, b.SeriesID)
		assert.Equal(t, "id-1", *b.SeriesID)
		assert.Equal(t, StatusBooked, b.Status)
		assert.False(t, ids[b.ID], "duplicate instance id %s", b.ID)
		ids[b.ID] = true
	}
	assert.Equal(t, "2025-01-06T10:30:00", got[0].EndDateTime)
}

func TestExpandDefaultsToFirstWeekday(t *testing.T) {
	req := RecurringRequest{
		Type:        TypeOutbound,
		Date:        "2025-01-08",
		IsOpen:      true,
		Repeat:      RepeatWeekly,
		RepeatCount: 3,
	}
	got, err := Expand(req, seqIDs())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-01-08T00:00:00", got[0].StartDateTime)
	assert.Equal(t, "2025-01-08T00:00:01", got[0].EndDateTime)
	assert.Equal(t, "2025-01-22T00:00:00", got[2].StartDateTime)
}

func TestExpandSingleHasNoSeries(t *testing.T) {
	got, err := Expand(RecurringRequest{Type: TypeInbound, Date: "2025-03-03", StartTime: "07:00", EndTime: "08:00"}, seqIDs())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SeriesID)
}

func TestExpandRejections(t *testing.T) {
	cases := map[string]RecurringRequest{
		"end before start": {Type: TypeInbound, Date: "2025-01-08", StartTime: "10:00", EndTime: "09:00"},
		"unknown type":     {Type: "Sideways", Date: "2025-01-08", IsOpen: true},
		"bad status":       {Type: TypeInbound, Status: StatusPicked, Date: "2025-01-08", IsOpen: true},
		"too many weeks":   {Type: TypeInbound, Date: "2025-01-08", IsOpen: true, Repeat: RepeatWeekly, RepeatCount: 53},
		"zero weeks":       {Type: TypeInbound, Date: "2025-01-08", IsOpen: true, Repeat: RepeatWeekly},
		"bad weekday":      {Type: TypeInbound, Date: "2025-01-08", IsOpen: true, Repeat: RepeatWeekly, RepeatCount: 1, RepeatOnDays: []int{7}},
		"bad date":         {Type: TypeInbound, Date: "08/01/2025", IsOpen: true},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Expand(req, seqIDs())
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestStatusVocabulary(t *testing.T) {
	assert.Equal(t, []string{"Booked", "Arrived", "Completed"}, Statuses(TypeInbound))
	assert.Equal(t, []string{"Booked", "Allocated", "Picked", "Completed"}, Statuses(TypeOutbound))
	assert.True(t, ValidStatus(TypeOutbound, StatusPicked))
	assert.False(t, ValidStatus(TypeInbound, StatusPicked))
	assert.Empty(t, Statuses("Unknown"))
}
