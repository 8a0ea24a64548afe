// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package binder

import (
	"sync"

	"moviecore/pkg/valuetype"
)

// BoneNode describes one bone of a skinned model's hierarchy, as reported
// by the host.
type BoneNode struct {
	Name   string
	Parent string // empty at the root.
	Basis  valuetype.Transform
}

// BoneAccessor is the pseudo-property of a skinned-model component whose
// child names are bone names. Writes accumulate parent-space overrides;
// Compose recomputes final local transforms in hierarchy order, pushing
// each bone's result to the host's apply callback given to NewBoneAccessor.
type BoneAccessor struct {
	mu        sync.Mutex
	nodes     map[string]BoneNode
	order     []string // topologically sorted, parents before children.
	overrides map[string]valuetype.Transform
	apply     func(bone string, local valuetype.Transform)
}

// NewBoneAccessor builds an accessor over a bone hierarchy. nodes need not
// already be ordered parent-before-child; a topological pass orders them.
func NewBoneAccessor(nodes []BoneNode, apply func(string, valuetype.Transform)) *BoneAccessor {
	byName := make(map[string]BoneNode, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}
	return &BoneAccessor{
		nodes:     byName,
		order:     topoSort(nodes),
		overrides: make(map[string]valuetype.Transform),
		apply:     apply,
	}
}

// topoSort orders bones so every parent precedes its children, without
// assuming the input list already has that property (the model format
// does not guarantee it).
func topoSort(nodes []BoneNode) []string {
	byName := make(map[string]BoneNode, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}
	var order []string
	visited := make(map[string]bool, len(nodes))
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		if n, ok := byName[name]; ok && n.Parent != "" {
			visit(n.Parent)
		}
		order = append(order, name)
	}
	for _, n := range nodes {
		visit(n.Name)
	}
	return order
}

// Write stores a parent-space transform override for bone, replacing any
// earlier override for the same bone; overrides for different bones
// accumulate until Compose, matching write-before-composition ordering.
func (a *BoneAccessor) Write(bone string, parentSpace valuetype.Transform) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overrides[bone] = parentSpace
}

// Compose recomputes local transforms in hierarchy order: a bone's local
// transform is its (overridden, or else rest-pose) parent-space transform
// composed with its possibly-also-overridden ancestor chain. Results are
// pushed to the host via apply and the override table is cleared for the
// next tick.
func (a *BoneAccessor) Compose() {
	a.mu.Lock()
	defer a.mu.Unlock()

	resolved := make(map[string]valuetype.Transform, len(a.order))
	for _, name := range a.order {
		node := a.nodes[name]
		local := node.Basis
		if ov, ok := a.overrides[name]; ok {
			local = ov
		}
		final := local
		if node.Parent != "" {
			if parentFinal, ok := resolved[node.Parent]; ok {
				final = compose(parentFinal, local)
			}
		}
		resolved[name] = final
		a.apply(name, final)
	}
	a.overrides = make(map[string]valuetype.Transform)
}

// compose combines a parent's resolved transform with a child's local
// transform: scale and rotate the child's offset into the parent's space,
// then translate by the parent's position.
func compose(parent, child valuetype.Transform) valuetype.Transform {
	return valuetype.Transform{
		Position: addVec3(parent.Position, rotateVec3(parent.Rotation, child.Position)),
		Rotation: multiplyQuat(parent.Rotation, child.Rotation),
		Scale: valuetype.Vec3{
			X: parent.Scale.X * child.Scale.X,
			Y: parent.Scale.Y * child.Scale.Y,
			Z: parent.Scale.Z * child.Scale.Z,
		},
	}
}

func addVec3(a, b valuetype.Vec3) valuetype.Vec3 {
	return valuetype.Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func rotateVec3(q valuetype.Quat, v valuetype.Vec3) valuetype.Vec3 {
	// Standard quaternion-vector rotation: v' = q*v*q^-1, expanded via the
	// cross-product identity to avoid building a full quaternion product.
	ux, uy, uz := q.X, q.Y, q.Z
	uvx := uy*v.Z - uz*v.Y
	uvy := uz*v.X - ux*v.Z
	uvz := ux*v.Y - uy*v.X
	uuvx := uy*uvz - uz*uvy
	uuvy := uz*uvx - ux*uvz
	uuvz := ux*uvy - uy*uvx
	return valuetype.Vec3{
		X: v.X + 2*(q.W*uvx+uuvx),
		Y: v.Y + 2*(q.W*uvy+uuvy),
		Z: v.Z + 2*(q.W*uvz+uuvz),
	}
}

func multiplyQuat(a, b valuetype.Quat) valuetype.Quat {
	return valuetype.Quat{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}
