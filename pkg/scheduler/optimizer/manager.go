// Package optimizer 提供课表局部搜索优化算法
package optimizer

import "math/rand"

const (
	rewardFactor = 1.1  // 见效算子的权重乘数
	rewardBonus  = 0.05 // 见效算子的权重加项
	decayFactor  = 0.95 // 未见效算子的权重乘数
	weightCeil   = 6.0
	weightFloor  = 0.1
)

// Manager 自适应邻域管理器。按权重轮盘赌挑选算子，
// 见效的算子权重上调，其余缓慢衰减。
type Manager struct {
	weights [numKinds]float64
	rng     *rand.Rand
}

// NewManager 创建邻域管理器，各算子权重相等
func NewManager(rng *rand.Rand) *Manager {
	m := &Manager{rng: rng}
	for k := range m.weights {
		m.weights[k] = 1.0
	}
	return m
}

// Select 按当前权重轮盘赌选择算子
func (m *Manager) Select() Kind {
	total := 0.0
	for _, w := range m.weights {
		total += w
	}
	r := m.rng.Float64() * total
	for k, w := range m.weights {
		r -= w
		if r < 0 {
			return Kind(k)
		}
	}
	return Kind(numKinds - 1)
}

// Reward 回馈算子表现。improved 为真时上调该算子权重，
// 否则衰减，均有上下限防止某个算子独占或饿死。
func (m *Manager) Reward(k Kind, improved bool) {
	if k < 0 || k >= numKinds {
		return
	}
	if improved {
		m.weights[k] = m.weights[k]*rewardFactor + rewardBonus
		if m.weights[k] > weightCeil {
			m.weights[k] = weightCeil
		}
		return
	}
	m.weights[k] *= decayFactor
	if m.weights[k] < weightFloor {
		m.weights[k] = weightFloor
	}
}

// Weight 返回算子当前权重
func (m *Manager) Weight(k Kind) float64 {
	return m.weights[k]
}
