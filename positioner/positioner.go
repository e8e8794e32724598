package positioner

import "fmt"

// FirmwareVersion is the positioner firmware's semantic-ish version, as
// reported by GET_FIRMWARE_VERSION.
type FirmwareVersion struct {
	Major, Minor, Patch uint8
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsBootloader reports whether this firmware build is a bootloader image,
// identified by firmware major version 0 (the bootloader never advances
// past 0.x on this fleet's hardware).
func (v FirmwareVersion) IsBootloader() bool { return v.Major == 0 }

// Positioner is one robotic fiber positioner tracked by an FPS. Alpha/Beta
// are nil until the first GET_ACTUAL_POSITION reply is received.
type Positioner struct {
	ID uint16

	Firmware *FirmwareVersion
	Status   PositionerStatus
	Alpha    *float64
	Beta     *float64

	// Disabled positioners are skipped by fleet-wide commands (spec.md §4.6
	// DisabledInvolved check) but still tracked.
	Disabled bool
	// Offline positioners are known not to answer the bus at all (e.g.
	// physically disconnected); their Alpha/Beta are the position recorded
	// by SetOfflinePosition rather than a live reading. FPS.Initialise
	// records (0, 0) for every configured offline positioner.
	Offline bool
	// Initialised is set once Initialise has completed successfully.
	Initialised bool
	// PreciseMovesDisabled records whether the best-effort
	// disable_precise_moves step (spec.md §9 Open Question 3) succeeded.
	PreciseMovesDisabled bool
}

// New constructs an un-initialised Positioner.
func New(id uint16) *Positioner {
	return &Positioner{ID: id}
}

// UpdateStatus replaces the tracked PositionerStatus, as reported by a
// GET_STATUS reply or an unsolicited status broadcast.
func (p *Positioner) UpdateStatus(status PositionerStatus) {
	p.Status = status
}

// UpdatePosition replaces the tracked alpha/beta angles, as reported by a
// GET_ACTUAL_POSITION reply.
func (p *Positioner) UpdatePosition(alpha, beta float64) {
	p.Alpha = &alpha
	p.Beta = &beta
}

// UpdateFirmwareVersion records the firmware version reported by
// GET_FIRMWARE_VERSION.
func (p *Positioner) UpdateFirmwareVersion(v FirmwareVersion) {
	p.Firmware = &v
}

// IsBootloader reports whether this positioner's firmware is a bootloader
// image. A positioner with no known firmware yet is not considered to be
// in bootloader mode.
func (p *Positioner) IsBootloader() bool {
	return p.Firmware != nil && p.Firmware.IsBootloader()
}

// Collided reports whether the positioner's last known status carries a
// collision bit for either arm.
func (p *Positioner) Collided() bool {
	return p.Status.Collided()
}

// Moving reports whether the positioner's last known status has the moving
// bit set.
func (p *Positioner) Moving() bool {
	return p.Status.Has(Moving)
}

// Initialise marks the positioner initialised. The best-effort
// precise-moves step a caller may run afterwards is recorded separately via
// SetPreciseMovesDisabled, since it never blocks initialisation (spec.md §9
// Open Question 3).
func (p *Positioner) Initialise() {
	p.Initialised = true
}

// SetPreciseMovesDisabled records the outcome of the best-effort precise
// moves configuration step run after Initialise.
func (p *Positioner) SetPreciseMovesDisabled(ok bool) {
	p.PreciseMovesDisabled = ok
}

// SetOfflinePosition records alpha/beta for a positioner known to be
// offline, in place of a live reply.
func (p *Positioner) SetOfflinePosition(alpha, beta float64) {
	p.Offline = true
	p.Alpha = &alpha
	p.Beta = &beta
}

// Table is an insertion-ordered collection of Positioners, avoiding the
// nondeterministic iteration order of a bare map (SPEC_FULL.md §3, spec.md
// §9 "mixed inheritance" redesign flag: the FPS aggregate holds a Table
// rather than being a map itself).
type Table struct {
	order []uint16
	byID  map[uint16]*Positioner
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{byID: make(map[uint16]*Positioner)}
}

// Add inserts p, or replaces the existing entry for p.ID preserving its
// original position.
func (t *Table) Add(p *Positioner) {
	if _, exists := t.byID[p.ID]; !exists {
		t.order = append(t.order, p.ID)
	}
	t.byID[p.ID] = p
}

// Get returns the Positioner for id, or nil if untracked.
func (t *Table) Get(id uint16) *Positioner {
	return t.byID[id]
}

// Delete removes id from the table.
func (t *Table) Delete(id uint16) {
	if _, ok := t.byID[id]; !ok {
		return
	}
	delete(t.byID, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of tracked positioners.
func (t *Table) Len() int { return len(t.order) }

// IDs returns the tracked positioner ids in insertion order.
func (t *Table) IDs() []uint16 {
	out := make([]uint16, len(t.order))
	copy(out, t.order)
	return out
}

// All returns the tracked Positioners in insertion order.
func (t *Table) All() []*Positioner {
	out := make([]*Positioner, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}
