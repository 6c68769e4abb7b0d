package server

import (
	"math"

	"github.com/solarlune/resolv"

	"wolfarena/protocol"
	"wolfarena/world"
)

const (
	pickupHealth = "health"
	pickupHeal   = 25
	pickupRadius = 0.3

	// resolv 只接受整数格子，地图单位按像素放大
	spaceScale = 16
	tagPickup  = "pickup"
	tagSensor  = "sensor"
)

// Pickup 医疗包；被第一个需要它的玩家拾取
type Pickup struct {
	ID     int
	X, Y   float64
	Kind   string
	Active bool

	obj *resolv.Object
}

// pickupField 用 resolv 空间做宽相位，窄相位按圆心距离判定
type pickupField struct {
	space  *resolv.Space
	sensor *resolv.Object
}

func newPickupField(width, height int) *pickupField {
	f := &pickupField{
		space: resolv.NewSpace(width*spaceScale, height*spaceScale, spaceScale, spaceScale),
	}
	size := 2 * (pickupRadius + 0.2) * spaceScale
	f.sensor = resolv.NewObject(0, 0, size, size, tagSensor)
	f.space.Add(f.sensor)
	return f
}

func (f *pickupField) add(p *Pickup) {
	size := 2 * pickupRadius * spaceScale
	p.obj = resolv.NewObject((p.X-pickupRadius)*spaceScale, (p.Y-pickupRadius)*spaceScale, size, size, tagPickup)
	p.obj.Data = p
	f.space.Add(p.obj)
}

func (f *pickupField) remove(p *Pickup) {
	if p.obj != nil {
		f.space.Remove(p.obj)
		p.obj = nil
	}
}

// touching 返回与 (x,y) 处半径 r 的圆重叠的活动医疗包
func (f *pickupField) touching(x, y, r float64) []*Pickup {
	f.sensor.X = (x - pickupRadius - 0.2) * spaceScale
	f.sensor.Y = (y - pickupRadius - 0.2) * spaceScale
	f.sensor.Update()
	c := f.sensor.Check(0, 0, tagPickup)
	if c == nil {
		return nil
	}
	var out []*Pickup
	for _, o := range c.ObjectsByTags(tagPickup) {
		p, ok := o.Data.(*Pickup)
		if !ok || !p.Active {
			continue
		}
		if math.Hypot(p.X-x, p.Y-y) <= r+pickupRadius {
			out = append(out, p)
		}
	}
	return out
}

// collectPickups 玩家满血时不消耗医疗包
func (r *Room) collectPickups() {
	if len(r.pickups) == 0 {
		return
	}
	for _, id := range r.order {
		p := r.players[id]
		if p == nil || !p.Alive || p.Health >= PlayerMaxHealth {
			continue
		}
		for _, pk := range r.field.touching(p.X, p.Y, world.PlayerRadius) {
			if p.Health >= PlayerMaxHealth {
				break
			}
			pk.Active = false
			r.field.remove(pk)
			p.Health = min(PlayerMaxHealth, p.Health+pickupHeal)
			r.broadcast(protocol.PickupCollected{ID: pk.ID, PlayerID: string(p.ID)})
		}
	}
}

func (r *Room) clearPickups() {
	for _, pk := range r.pickups {
		r.field.remove(pk)
	}
	r.pickups = r.pickups[:0]
}
