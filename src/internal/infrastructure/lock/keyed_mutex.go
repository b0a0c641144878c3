// Package lock 卡片互斥鎖
//
// 同一張卡的命令彼此序列化，不同卡片互不等待。
// KeyedMutex 只在單一程序內有效；多實例部署使用 RedisLocker。
package lock

import (
	"context"
	"sync"
)

// KeyedMutex 以 key 區分的程序內互斥鎖
//
// 每個 key 一個容量 1 的 channel 作為鎖，等待時可被 ctx 取消；
// 以參考計數在最後一個持有者釋放後移除 key，map 不會無限增長。
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex 建立程序內卡片鎖
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock 取得 key 的鎖；ctx 取消時返回 ctx.Err()
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	entry := m.acquire(key)

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			m.release(key, entry)
		})
	}, nil
}

// Len 目前追蹤中的 key 數（含等待中）
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *KeyedMutex) acquire(key string) *keyedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (m *KeyedMutex) release(key string, entry *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}
