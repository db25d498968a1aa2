package attachment

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// agentLocks 按 agentID 串行化挂载流程
// 代理配置的 read-modify-write 窗口是经典的 lost-update 竞态，
// 同进程内用互斥锁兜底，多实例部署可叠加 Redis 租约
type agentLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAgentLocks() *agentLocks {
	return &agentLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire 获取指定代理的锁，返回解锁函数
func (l *agentLocks) acquire(agentID string) func() {
	l.mu.Lock()
	m, ok := l.locks[agentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[agentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// releaseScript 只释放自己持有的租约
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// redisLease Redis 上的跨进程租约，best-effort
type redisLease struct {
	client *redis.Client
	ttl    time.Duration
}

// acquire 轮询获取租约；失败时降级为只依赖进程内锁
func (l *redisLease) acquire(ctx context.Context, agentID string) func() {
	key := "socrates:attach:agent:" + agentID
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			// Redis 不可用不阻塞挂载
			log.Printf("agent lock lease unavailable, proceeding without it: %v", err)
			return func() {}
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
					log.Printf("failed to release agent lock lease for %s: %v", agentID, err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(200 * time.Millisecond):
		}
	}
}
