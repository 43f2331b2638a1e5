package world

import (
	"slices"
	"testing"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/host"
)

func TestGrid_NearbyAndMove(t *testing.T) {
	g := NewGrid(10)
	g.Add(1, host.Vec3{X: 1, Y: 1})
	g.Add(2, host.Vec3{X: -1, Y: 1})
	g.Add(3, host.Vec3{X: 55, Y: 0})

	if got := g.Nearby(host.Vec3{}, 5); !slices.Equal(got, []ecs.EntityID{1, 2}) {
		t.Fatalf("nearby %v", got)
	}
	g.Move(3, host.Vec3{X: 4})
	if got := g.Nearby(host.Vec3{}, 5); !slices.Equal(got, []ecs.EntityID{1, 2, 3}) {
		t.Fatalf("after move %v", got)
	}
	g.Remove(1)
	g.Remove(1)
	if g.Len() != 2 {
		t.Fatalf("len %d", g.Len())
	}
}

func TestState_WithinTracksMovement(t *testing.T) {
	s := NewState(ecs.NewWorld())
	player := s.Spawn("player", KindPlayer, host.Vec3{})
	near := s.Spawn("near", KindPickup, host.Vec3{X: 30})
	far := s.Spawn("far", KindPickup, host.Vec3{X: 500})

	if got := s.Within(host.Vec3{}, 50, player); !slices.Equal(got, []ecs.EntityID{near}) {
		t.Fatalf("within %v", got)
	}

	s.SetVelocity(far, host.Vec3{X: -480})
	s.Integrate(1)
	if got := s.Within(host.Vec3{}, 50, player); !slices.Equal(got, []ecs.EntityID{near, far}) {
		t.Fatalf("after integrate %v", got)
	}

	s.Despawn(near)
	s.ECS().FlushDestroyQueue()
	if got := s.Within(host.Vec3{}, 50, player); !slices.Equal(got, []ecs.EntityID{far}) {
		t.Fatalf("after despawn %v", got)
	}
}
