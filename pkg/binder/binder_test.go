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
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/valuetype"
)

type fakeTarget struct{ typeName string }

func (f fakeTarget) TypeName() string { return f.typeName }

type fakeScene struct {
	targets map[string]SceneTarget
	tables  map[string]PropertyTable
}

func (s *fakeScene) Resolve(id string) (SceneTarget, bool) {
	t, ok := s.targets[id]
	return t, ok
}

func (s *fakeScene) PropertyTable(typeName string) (PropertyTable, bool) {
	t, ok := s.tables[typeName]
	return t, ok
}

func TestResolveRef_UnboundFails(t *testing.T) {
	scene := &fakeScene{targets: map[string]SceneTarget{}}
	b := New(scene, nil)

	_, err := b.ResolveRef("missing")
	require.ErrorIs(t, err, ErrUnbound)
}

func TestResolveProperty_TypeMismatch(t *testing.T) {
	var stored float64
	scene := &fakeScene{
		targets: map[string]SceneTarget{"obj": fakeTarget{typeName: "Actor"}},
		tables: map[string]PropertyTable{
			"Actor": {
				"health": PropertyEntry{
					Kind: valuetype.KindFloat,
					Accessor: func(SceneTarget) PropertyAccessor {
						return PropertyAccessor{
							Read:  func() valuetype.Value { return valuetype.Float(stored) },
							Write: func(v valuetype.Value) error { stored = v.Float; return nil },
						}
					},
				},
			},
		},
	}
	b := New(scene, nil)

	_, err := b.ResolveProperty("obj", "health", valuetype.KindInt)
	require.ErrorIs(t, err, ErrTypeMismatch)

	acc, err := b.ResolveProperty("obj", "health", valuetype.KindFloat)
	require.NoError(t, err)
	require.NoError(t, acc.Write(valuetype.Float(42)))
	require.Equal(t, 42.0, acc.Read().Float)
}

func TestInvalidate_ClearsCache(t *testing.T) {
	scene := &fakeScene{targets: map[string]SceneTarget{"obj": fakeTarget{typeName: "Actor"}}}
	hooks := &Hooks{}
	b := New(scene, hooks)

	_, err := b.ResolveRef("obj")
	require.NoError(t, err)

	delete(scene.targets, "obj")
	hooks.OnRemove("obj")

	_, err = b.ResolveRef("obj")
	require.ErrorIs(t, err, ErrUnbound)
}

func TestBoneAccessor_ComposesParentBeforeChild(t *testing.T) {
	nodes := []BoneNode{
		{Name: "hand", Parent: "arm", Basis: valuetype.Transform{Scale: valuetype.Vec3{X: 1, Y: 1, Z: 1}}},
		{Name: "arm", Parent: "", Basis: valuetype.Transform{Scale: valuetype.Vec3{X: 1, Y: 1, Z: 1}}},
	}
	results := map[string]valuetype.Transform{}
	acc := NewBoneAccessor(nodes, func(name string, final valuetype.Transform) {
		results[name] = final
	})

	acc.Write("arm", valuetype.Transform{
		Position: valuetype.Vec3{X: 1},
		Rotation: valuetype.Quat{W: 1},
		Scale:    valuetype.Vec3{X: 1, Y: 1, Z: 1},
	})
	acc.Write("hand", valuetype.Transform{
		Position: valuetype.Vec3{X: 1},
		Rotation: valuetype.Quat{W: 1},
		Scale:    valuetype.Vec3{X: 1, Y: 1, Z: 1},
	})

	acc.Compose()

	require.Equal(t, 1.0, results["arm"].Position.X)
	require.Equal(t, 2.0, results["hand"].Position.X, "hand's local offset composes in arm's already-resolved space")
}
