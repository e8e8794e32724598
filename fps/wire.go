package fps

import (
	"encoding/binary"

	"github.com/albireox/jaeger-core/positioner"
)

// Wire payload encodings for the commands FPS issues directly. These are
// domain-specific (firmware register layouts), not part of the pure
// internal/canframe codec, so they live here rather than in canframe.

// angleScale converts a float64 degree value to/from a fixed-point int32
// (millidegrees), the representation the firmware uses on the wire.
const angleScale = 1000.0

func encodeAngle(degrees float64) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(int32(degrees*angleScale)))
	return b
}

func decodeAngle(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / angleScale
}

// encodeGotoPayload packs a target angle and speed (degrees/second,
// fixed-point tenths) into a single-frame payload.
func encodeGotoPayload(degrees, speedDegPerSec float64) []byte {
	payload := make([]byte, 0, 6)
	payload = append(payload, encodeAngle(degrees)...)
	speed := uint16(speedDegPerSec * 10)
	speedBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(speedBytes, speed)
	return append(payload, speedBytes...)
}

// decodePosition parses a reassembled GET_ACTUAL_POSITION reply: two
// 4-byte fixed-point angles, alpha then beta.
func decodePosition(payload []byte) (alpha, beta float64, ok bool) {
	if len(payload) < 8 {
		return 0, 0, false
	}
	return decodeAngle(payload[0:4]), decodeAngle(payload[4:8]), true
}

// decodeStatus parses a GET_STATUS reply: a big-endian uint32 bit set.
func decodeStatus(payload []byte) (positioner.PositionerStatus, bool) {
	if len(payload) < 4 {
		return 0, false
	}
	return positioner.PositionerStatus(binary.BigEndian.Uint32(payload)), true
}

// decodeFirmware parses a GET_FIRMWARE_VERSION reply: major, minor, patch.
func decodeFirmware(payload []byte) (positioner.FirmwareVersion, bool) {
	if len(payload) < 3 {
		return positioner.FirmwareVersion{}, false
	}
	return positioner.FirmwareVersion{Major: payload[0], Minor: payload[1], Patch: payload[2]}, true
}
