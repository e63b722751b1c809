package orrery

import (
	"fmt"

	"github.com/gonum/matrix/mat64"
)

// Frame is a rigid-body transform: translation T, rotation R, linear
// velocity V of the origin, and angular velocity Omega, all expressed
// in the frame being transformed *into*. A Frame value named xy in
// comments below reads "frame x relative to frame y" — matching the
// T_CA/R_CA/V_CA/Omega_CA notation of the formulas it implements.
type Frame struct {
	T     [3]float64
	V     [3]float64
	Omega [3]float64
	R     *mat64.Dense
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame(T=%v V=%v Omega=%v R=%v)", f.T, f.V, f.Omega, f.R)
}

// IdentityFrame returns the identity transform.
func IdentityFrame() Frame {
	return Frame{R: identityMat()}
}

func identityMat() *mat64.Dense {
	m := mat64.NewDense(3, 3, nil)
	m.Set(0, 0, 1)
	m.Set(1, 1, 1)
	m.Set(2, 2, 1)
	return m
}

// matVec multiplies a 3x3 matrix by a 3-vector.
func matVec(m *mat64.Dense, v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m.At(i, 0)*v[0] + m.At(i, 1)*v[1] + m.At(i, 2)*v[2]
	}
	return out
}

// matMul multiplies two 3x3 matrices, a x b.
func matMul(a, b *mat64.Dense) *mat64.Dense {
	var out mat64.Dense
	out.Mul(a, b)
	return &out
}

// matTranspose returns the transpose of a 3x3 rotation matrix, which
// for an orthogonal matrix is also its inverse.
func matTranspose(a *mat64.Dense) *mat64.Dense {
	var out mat64.Dense
	out.Clone(a.T())
	return &out
}

// ComposeFrames combines frame C relative to B (cb) and frame B
// relative to A (ba) into frame C relative to A, per the rigid-body
// composition rule:
//
//	R_CA = R_BA . R_CB
//	T_CA = R_BA.T_CB + T_BA
//	Omega_CA = R_BA.Omega_CB + Omega_BA
//	V_CA = R_BA.V_CB + V_BA + Omega_BA x (R_BA.T_CB)
//
// The simpler T_CA=T_CB+T_BA (etc.) form only holds when R_BA is the
// identity; this carries the rotation through so it also holds for
// sibling bodies whose orbital planes genuinely differ.
func ComposeFrames(cb, ba Frame) Frame {
	rCA := matMul(ba.R, cb.R)
	rotatedTCB := matVec(ba.R, cb.T)
	tCA := add(rotatedTCB, ba.T)
	omegaCA := add(matVec(ba.R, cb.Omega), ba.Omega)
	rotatedVCB := matVec(ba.R, cb.V)
	vCA := add(add(rotatedVCB, ba.V), cross(ba.Omega, rotatedTCB))
	return Frame{T: tCA, V: vCA, Omega: omegaCA, R: rCA}
}

// InvertFrame returns frame A relative to B given frame B relative to
// A, per:
//
//	R_AB = R_BA^T
//	T_AB = -R_AB.T_BA
//	Omega_AB = -R_AB.Omega_BA
//	V_AB = -R_AB.V_BA + Omega_AB x T_AB
func InvertFrame(ba Frame) Frame {
	rAB := matTranspose(ba.R)
	tAB := neg(matVec(rAB, ba.T))
	omegaAB := neg(matVec(rAB, ba.Omega))
	vAB := add(neg(matVec(rAB, ba.V)), cross(omegaAB, tAB))
	return Frame{T: tAB, V: vAB, Omega: omegaAB, R: rAB}
}

// TransformPoint maps a position/velocity pair expressed in frame B
// into frame A, given frame B relative to A (ba):
//
//	r_A = R_BA.r_B + T_BA
//	v_A = R_BA.v_B + Omega_BA x (R_BA.r_B) + V_BA
func TransformPoint(ba Frame, rB, vB [3]float64) (rA, vA [3]float64) {
	rotatedR := matVec(ba.R, rB)
	rA = add(rotatedR, ba.T)
	vA = add(add(matVec(ba.R, vB), cross(ba.Omega, rotatedR)), ba.V)
	return
}
