package server

import "wolfarena/protocol"

// Weapon 每把武器的伤害/射速/命中容差
type Weapon struct {
	Name     string
	Damage   int
	Cooldown float64 // 秒
	Spread   float64 // 在 aimSlack 之外的武器附加宽容（弧度）
	Cost     int     // 0 表示默认持有
}

var weapons = map[string]Weapon{
	protocol.WeaponPistol:     {Name: protocol.WeaponPistol, Damage: 25, Cooldown: 0.35},
	protocol.WeaponShotgun:    {Name: protocol.WeaponShotgun, Damage: 40, Cooldown: 0.8, Spread: 0.09, Cost: 50},
	protocol.WeaponMachinegun: {Name: protocol.WeaponMachinegun, Damage: 12, Cooldown: 0.1, Spread: 0.02, Cost: 100},
}

// LookupWeapon 未知名称返回 false
func LookupWeapon(name string) (Weapon, bool) {
	w, ok := weapons[name]
	return w, ok
}

// 金币奖励
const (
	goldPerEnemy = 10
	goldPerBoss  = 100
	goldPerFrag  = 25
)

// selectWeapon 只能切换到已拥有的武器
func (p *Player) selectWeapon(name string) {
	if name == "" || name == p.Weapon {
		return
	}
	if p.Owned[name] {
		p.Weapon = name
	}
}

// buy 金币足够时购买并装备；返回是否成交
func (p *Player) buy(name string) bool {
	w, ok := LookupWeapon(name)
	if !ok || w.Cost == 0 || p.Owned[name] || p.Gold < w.Cost {
		return false
	}
	p.Gold -= w.Cost
	p.Owned[name] = true
	p.Weapon = name
	return true
}

func (p *Player) weapon() Weapon {
	if w, ok := LookupWeapon(p.Weapon); ok {
		return w
	}
	return weapons[protocol.WeaponPistol]
}
