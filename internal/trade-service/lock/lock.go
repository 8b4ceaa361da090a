// Package lock serializa a liquidação por evento.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockFailed = errors.New("could not acquire lock")

// Locker entrega a chave exclusiva ou ErrLockFailed depois das tentativas.
// release é sempre seguro de chamar uma vez.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// unlockScript só apaga a chave se o valor ainda for o do dono,
// para não liberar a trava de outro processo depois de expirar
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker usa SET NX com expiração, valendo entre instâncias
type RedisLocker struct {
	rdb        *redis.Client
	ttl        time.Duration
	retryEvery time.Duration
	maxRetries int
}

func NewRedisLocker(rdb *redis.Client, ttl, retryEvery time.Duration, maxRetries int) *RedisLocker {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retryEvery: retryEvery, maxRetries: maxRetries}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	key = "settle:lock:" + key
	owner := uuid.NewString()

	for i := 0; i < l.maxRetries; i++ {
		ok, err := l.rdb.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// contexto próprio: o do chamador pode já ter expirado
					rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = unlockScript.Run(rctx, l.rdb, []string{key}, owner).Err()
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryEvery):
		}
	}
	return nil, ErrLockFailed
}

// LocalLocker é a versão em processo, para execução sem Redis e testes
type LocalLocker struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker espera no máximo wait pela chave
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{wait: wait, slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrLockFailed
	}
}
