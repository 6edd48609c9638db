// Package notify 把“留言有没有变化”做成数据层原语：
// 进程内按周报 ID 扇出事件，另提供带截止时间的 Wait 供长轮询使用。
// 刷新节奏（以及“输入中不打扰”）由前端自行决定。
package notify

import (
	"context"
	"sync"
	"time"
)

type Event struct {
	TaskID string    `json:"taskId"`
	NoteID string    `json:"noteId"`
	Kind   string    `json:"kind"` // note.created / note.read / note.status
	At     time.Time `json:"at"`
}

type Hub struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Event
	last map[string]time.Time // 每个周报最近一次变更时间
	next int
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int]chan Event),
		last: make(map[string]time.Time),
	}
}

// Publish 非阻塞扇出；慢消费者丢事件，订阅方靠重新拉取兜底
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.Lock()
	if ev.At.After(h.last[ev.TaskID]) {
		h.last[ev.TaskID] = ev.At
	}
	chs := make([]chan Event, 0, len(h.subs[ev.TaskID]))
	for _, ch := range h.subs[ev.TaskID] {
		chs = append(chs, ch)
	}
	h.mu.Unlock()

	for _, ch := range chs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe 返回事件通道和取消函数
func (h *Hub) Subscribe(taskID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[taskID] == nil {
		h.subs[taskID] = make(map[int]chan Event)
	}
	h.subs[taskID][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if m := h.subs[taskID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(h.subs, taskID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// ChangedSince 逻辑时间戳查询：since 之后有没有变化
func (h *Hub) ChangedSince(taskID string, since time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last[taskID].After(since)
}

// Wait 挂起到该周报出现 since 之后的变更，或 ctx 到期。
// 返回触发事件和是否确有变更。
func (h *Hub) Wait(ctx context.Context, taskID string, since time.Time) (Event, bool) {
	h.mu.Lock()
	if last := h.last[taskID]; last.After(since) {
		h.mu.Unlock()
		return Event{TaskID: taskID, Kind: "note.changed", At: last}, true
	}
	h.mu.Unlock()

	ch, cancel := h.Subscribe(taskID)
	defer cancel()

	for {
		select {
		case ev := <-ch:
			if ev.At.After(since) {
				return ev, true
			}
		case <-ctx.Done():
			return Event{}, false
		}
	}
}
