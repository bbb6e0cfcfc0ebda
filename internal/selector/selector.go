// Package selector 提供访问级别选择器：一个显式的状态容器，
// 在选择变化时依次通知状态 setter 和可选的回调。
package selector

import (
	"sync"

	"github.com/Index24/live-docs/internal/domain"
)

// AccessObserver 接收访问级别变更事件。
type AccessObserver interface {
	AccessChanged(domain.AccessType)
}

// StateSetter 更新控制方持有的状态。
type StateSetter func(domain.AccessType)

// AccessChanged 实现 AccessObserver。
func (f StateSetter) AccessChanged(t domain.AccessType) { f(t) }

// OnChange 是选择变化后的副作用回调。
type OnChange func(domain.AccessType)

// AccessChanged 实现 AccessObserver。
func (f OnChange) AccessChanged(t domain.AccessType) { f(t) }

// Option 是一个可选项。
type Option struct {
	Value domain.AccessType `json:"value"`
	Label string            `json:"label"`
}

// Options 返回选择器展示的全部选项。
func Options() []Option {
	types := domain.AccessTypes()
	opts := make([]Option, 0, len(types))
	for _, t := range types {
		opts = append(opts, Option{Value: t, Label: t.Label()})
	}
	return opts
}

// AccessSelector 绑定一个受控的访问级别值。
type AccessSelector struct {
	mu        sync.Mutex
	value     domain.AccessType
	observers []AccessObserver // 按通知顺序排列：setter 在前，回调在后
}

// New 创建选择器。onChange 可以为 nil。
func New(initial domain.AccessType, setter StateSetter, onChange OnChange) *AccessSelector {
	s := &AccessSelector{value: initial}
	if setter != nil {
		s.observers = append(s.observers, setter)
	}
	if onChange != nil {
		s.observers = append(s.observers, onChange)
	}
	return s
}

// Observe 追加一个观察者，它会在已有观察者之后被通知。
func (s *AccessSelector) Observe(o AccessObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Value 返回当前值。
func (s *AccessSelector) Value() domain.AccessType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Select 处理一次选择。取值非法时返回错误，状态和观察者都不受影响。
func (s *AccessSelector) Select(raw string) error {
	t, err := domain.ParseAccessType(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.value = t
	observers := make([]AccessObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.AccessChanged(t)
	}
	return nil
}
