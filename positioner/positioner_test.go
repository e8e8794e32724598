package positioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionerLifecycle(t *testing.T) {
	t.Parallel()

	p := New(5)
	assert.Equal(t, uint16(5), p.ID)
	assert.False(t, p.Initialised)
	assert.Nil(t, p.Alpha)

	p.UpdatePosition(12.5, -3.25)
	require.NotNil(t, p.Alpha)
	require.NotNil(t, p.Beta)
	assert.Equal(t, 12.5, *p.Alpha)
	assert.Equal(t, -3.25, *p.Beta)

	p.UpdateStatus(Moving | CollisionA)
	assert.True(t, p.Moving())
	assert.True(t, p.Collided())

	p.UpdateFirmwareVersion(FirmwareVersion{Major: 2, Minor: 1, Patch: 0})
	require.NotNil(t, p.Firmware)
	assert.Equal(t, "2.1.0", p.Firmware.String())
	assert.False(t, p.IsBootloader())

	p.Initialise()
	assert.True(t, p.Initialised)
}

func TestFirmwareVersionIsBootloader(t *testing.T) {
	t.Parallel()

	assert.True(t, FirmwareVersion{Major: 0, Minor: 3, Patch: 1}.IsBootloader())
	assert.False(t, FirmwareVersion{Major: 1, Minor: 0, Patch: 0}.IsBootloader())
}

func TestPositionerOfflinePosition(t *testing.T) {
	t.Parallel()

	p := New(1)
	p.SetOfflinePosition(10, 20)
	assert.True(t, p.Offline)
	require.NotNil(t, p.Alpha)
	assert.Equal(t, 10.0, *p.Alpha)
	assert.Equal(t, 20.0, *p.Beta)
}

func TestTableInsertionOrderPreserved(t *testing.T) {
	t.Parallel()

	table := NewTable()
	table.Add(New(3))
	table.Add(New(1))
	table.Add(New(2))

	assert.Equal(t, []uint16{3, 1, 2}, table.IDs())
	assert.Equal(t, 3, table.Len())

	table.Delete(1)
	assert.Equal(t, []uint16{3, 2}, table.IDs())
	assert.Nil(t, table.Get(1))

	all := table.All()
	require.Len(t, all, 2)
	assert.Equal(t, uint16(3), all[0].ID)
	assert.Equal(t, uint16(2), all[1].ID)
}

func TestTableAddReplacesPreservingPosition(t *testing.T) {
	t.Parallel()

	table := NewTable()
	table.Add(New(1))
	table.Add(New(2))

	replacement := New(1)
	replacement.Disabled = true
	table.Add(replacement)

	assert.Equal(t, []uint16{1, 2}, table.IDs())
	assert.True(t, table.Get(1).Disabled)
}
