package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout 等待上限內未取得鎖
var ErrLockTimeout = errors.New("card lock wait timeout")

// releaseScript 只刪除自己持有的鎖（token 相符才 DEL）
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultRetryInterval = 20 * time.Millisecond

// RedisLocker 以 Redis SET NX PX 實作的跨程序卡片鎖
//
// 鎖帶 TTL，持有者當機時自動過期；釋放時以 Lua 腳本比對 token，
// 避免刪掉過期後被他人取得的鎖。
type RedisLocker struct {
	client        redis.UniversalClient
	prefix        string
	ttl           time.Duration
	wait          time.Duration
	retryInterval time.Duration
}

// NewRedisLocker 建立 Redis 卡片鎖
//
// ttl 為鎖自動過期時間；wait 為取得鎖的最長等待（0 表示只嘗試一次）。
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisLocker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "loyalty"
	}
	return &RedisLocker{
		client:        client,
		prefix:        prefix,
		ttl:           ttl,
		wait:          wait,
		retryInterval: defaultRetryInterval,
	}
}

// Lock 取得 key 的鎖，返回釋放函數
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.buildKey(key)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire card lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// 呼叫端的 ctx 可能已取消，釋放一律使用獨立 context
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}

func (l *RedisLocker) buildKey(key string) string {
	return fmt.Sprintf("%s:lock:card:%s", l.prefix, strings.TrimSpace(key))
}
