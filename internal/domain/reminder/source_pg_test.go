package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/immunize/internal/platform/db/dbtest"
)

func TestSourcePG(t *testing.T) {
	pool := dbtest.Start(t)
	ctx := context.Background()

	nurse := dbtest.InsertUser(t, pool, "Nurse Joy", "Nurse")
	parent := dbtest.InsertUser(t, pool, "Pat Parent", "Parent")
	linked := dbtest.InsertPatient(t, pool, "Linked Kid", &parent)
	unlinked := dbtest.InsertPatient(t, pool, "Unlinked Kid", nil)

	now := time.Now().UTC().Truncate(time.Second)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }
	day := 24 * time.Hour

	inWindow := dbtest.InsertImmunization(t, pool, linked, nurse, "MMR", "Due", at(3*day))
	dbtest.InsertImmunization(t, pool, linked, nurse, "Polio", "Due", at(30*day))
	dbtest.InsertImmunization(t, pool, linked, nurse, "BCG", "Completed", at(2*day))
	noParent := dbtest.InsertImmunization(t, pool, unlinked, nurse, "Hep B", "Due", at(day))
	overdue := dbtest.InsertImmunization(t, pool, linked, nurse, "DTaP", "Overdue", at(-5*day))
	lapsed := dbtest.InsertImmunization(t, pool, linked, nurse, "Hib", "Due", at(-2*day))

	src := NewSourcePG(pool)

	t.Run("Upcoming", func(t *testing.T) {
		items, err := src.Upcoming(ctx, now, now.Add(7*day))
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, noParent, items[0].ImmunizationID)
		assert.Nil(t, items[0].ParentUserID)
		assert.Equal(t, inWindow, items[1].ImmunizationID)
		require.NotNil(t, items[1].ParentUserID)
		assert.Equal(t, parent, *items[1].ParentUserID)
		assert.Equal(t, "Linked Kid", items[1].PatientName)
	})

	t.Run("Overdue", func(t *testing.T) {
		items, err := src.Overdue(ctx, now)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, overdue, items[0].ImmunizationID)
	})

	t.Run("MarkOverdue", func(t *testing.T) {
		n, err := src.MarkOverdue(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		items, err := src.Overdue(ctx, now)
		require.NoError(t, err)
		ids := []interface{}{}
		for _, d := range items {
			ids = append(ids, d.ImmunizationID)
		}
		assert.Contains(t, ids, lapsed)
		assert.Contains(t, ids, overdue)
	})
}
