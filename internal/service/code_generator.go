package service

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CodeGenerator 產生以時間為主體的業務編號
// 同一前綴在本行程內嚴格遞增，node 區分不同行程
type CodeGenerator struct {
	mu   sync.Mutex
	node string
	last map[string]time.Time
}

func NewCodeGenerator() *CodeGenerator {
	id := uuid.New()
	return NewCodeGeneratorWithNode(hex.EncodeToString(id[:3]))
}

func NewCodeGeneratorWithNode(node string) *CodeGenerator {
	return &CodeGenerator{node: node, last: map[string]time.Time{}}
}

// OrderNumber OD-yyyyMMddHHmmssfff-node
func (g *CodeGenerator) OrderNumber(now time.Time) string {
	return g.next("OD", now, time.Millisecond)
}

// PromotionCode KM-yyyyMMddHHmmss-node
func (g *CodeGenerator) PromotionCode(now time.Time) string {
	return g.next("KM", now, time.Second)
}

// NotificationCode NTF-yyyyMMddHHmmss-node
func (g *CodeGenerator) NotificationCode(now time.Time) string {
	return g.next("NTF", now, time.Second)
}

func (g *CodeGenerator) next(prefix string, now time.Time, step time.Duration) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := now.UTC().Truncate(step)
	if last, ok := g.last[prefix]; ok && !t.After(last) {
		t = last.Add(step)
	}
	g.last[prefix] = t

	stamp := t.Format("20060102150405")
	if step < time.Second {
		stamp += fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
	}
	return fmt.Sprintf("%s-%s-%s", prefix, stamp, g.node)
}
