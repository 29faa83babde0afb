package math

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const tolerance = 1e-5

func requireVec3(t *testing.T, expected, actual Vec3) {
	t.Helper()
	require.Truef(t, expected.Compare(actual, tolerance), "expected %+v, got %+v", expected, actual)
}

func TestClamp(t *testing.T) {
	for _, tc := range []struct {
		name         string
		v, low, high uint32
		expected     uint32
	}{
		{"below", 50, 100, 4000, 100},
		{"above", 5000, 100, 4000, 4000},
		{"inside", 800, 100, 4000, 800},
		{"low edge", 100, 100, 4000, 100},
		{"high edge", 4000, 100, 4000, 4000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Clamp(tc.v, tc.low, tc.high))
		})
	}
	require.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

func TestMat4EulerZ(t *testing.T) {
	rot := NewMat4EulerZ(DegToRad(90))
	requireVec3(t, NewVec3(0, 1, 0), rot.TransformPoint(NewVec3(1, 0, 0)))
	requireVec3(t, NewVec3(-1, 0, 0), rot.TransformPoint(NewVec3(0, 1, 0)))
	requireVec3(t, NewVec3(0, 0, 1), rot.TransformPoint(NewVec3(0, 0, 1)))
}

func TestMat4MulAppliesLeftFirst(t *testing.T) {
	quarter := NewMat4EulerZ(DegToRad(90))
	half := quarter.Mul(quarter)
	requireVec3(t, NewVec3(-1, 0, 0), half.TransformPoint(NewVec3(1, 0, 0)))

	id := NewMat4Identity()
	require.Equal(t, quarter, quarter.Mul(id))
	require.Equal(t, quarter, id.Mul(quarter))
}

func TestMat4LookAt(t *testing.T) {
	eye := NewVec3(2, 2, 2)
	target := NewVec3Zero()
	up := NewVec3(0, 0, 1)
	view := NewMat4LookAt(eye, target, up)

	// The eye lands on the origin and the target straight down -Z.
	requireVec3(t, NewVec3Zero(), view.TransformPoint(eye))
	dist := eye.Sub(target).Length()
	requireVec3(t, NewVec3(0, 0, -dist), view.TransformPoint(target))

	// World up stays above the view axis.
	above := view.TransformPoint(NewVec3(2, 2, 3))
	require.Greater(t, above.Y, float32(0))
	require.InDelta(t, 0, above.X, tolerance)
}

func TestMat4Perspective(t *testing.T) {
	near, far := float32(0.1), float32(10)
	proj := NewMat4Perspective(DegToRad(45), 800.0/600.0, near, far)

	require.InDelta(t, -1, proj.TransformPoint(NewVec3(0, 0, -near)).Z, tolerance)
	require.InDelta(t, 1, proj.TransformPoint(NewVec3(0, 0, -far)).Z, tolerance)
	require.Equal(t, float32(-1), proj.Data[11])
}

func TestMat4Transposed(t *testing.T) {
	rot := NewMat4EulerZ(0.3)
	tr := NewMat4Transposed(rot)
	require.Equal(t, rot.Data[1], tr.Data[4])
	require.Equal(t, rot, NewMat4Transposed(tr))
}

func TestVec3Normalize(t *testing.T) {
	requireVec3(t, NewVec3(0, 0.6, 0.8), NewVec3(0, 3, 4).Normalize())
	requireVec3(t, NewVec3Zero(), NewVec3Zero().Normalize())
	requireVec3(t, NewVec3(0, 0, 1), NewVec3(1, 0, 0).Cross(NewVec3(0, 1, 0)))
}

func TestClampMax(t *testing.T) {
	require.Equal(t, uint32(3), ClampMax(uint32(3), 0))
	require.Equal(t, uint32(3), ClampMax(uint32(3), 8))
	require.Equal(t, uint32(2), ClampMax(uint32(3), 2))
}
