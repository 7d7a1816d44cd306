package streak

import (
	"context"
	"sync"
)

// userLocks сериализует обновления одного пользователя внутри процесса.
// Между процессами порядок обеспечивает оптимистичная блокировка хранилища.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{} // ёмкость 1: занят, если в канале есть значение
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock захватывает блокировку userID или возвращает ошибку ctx.
// Возвращённую функцию нужно вызвать ровно один раз.
func (l *userLocks) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
		return func() {
			<-lk.ch
			l.release(userID, lk)
		}, nil
	case <-ctx.Done():
		l.release(userID, lk)
		return nil, ctx.Err()
	}
}

func (l *userLocks) release(userID string, lk *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, userID)
	}
}

// size — число пользователей с активными блокировками (для тестов).
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
