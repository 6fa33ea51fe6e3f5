// Package closer останавливает ресурсы приложения в обратном порядке регистрации.
package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultForcedTimeout = 2 * time.Second

// Func — функция закрытия ресурса.
type Func func(ctx context.Context) error

type resource struct {
	name string
	fn   Func
}

// Closer потокобезопасно собирает функции закрытия и вызывает их один раз.
type Closer struct {
	mu            sync.Mutex
	once          sync.Once
	resources     []resource
	forcedTimeout time.Duration
	err           error
}

// NewCloser создаёт Closer. forcedTimeout — бюджет на ресурсы, не успевшие закрыться до отмены ctx.
func NewCloser(forcedTimeout time.Duration) *Closer {
	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}

	return &Closer{forcedTimeout: forcedTimeout}
}

// Add регистрирует ресурс. Имя попадает в сообщение об ошибке.
func (c *Closer) Add(name string, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, resource{name: name, fn: fn})
}

// Close закрывает ресурсы по одному в порядке LIFO. Если ctx отменён раньше,
// оставшиеся ресурсы закрываются параллельно с собственным таймаутом.
func (c *Closer) Close(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		resources := append([]resource(nil), c.resources...)
		c.mu.Unlock()

		var errs []string
		for i := len(resources) - 1; i >= 0; i-- {
			res := resources[i]
			done := make(chan error, 1)
			go func() { done <- res.fn(ctx) }()

			select {
			case err := <-done:
				if err != nil {
					errs = append(errs, fmt.Sprintf("%s: %v", res.name, err))
				}
			case <-ctx.Done():
				errs = append(errs, fmt.Sprintf("%s: %v", res.name, ctx.Err()))
				errs = append(errs, c.forceClose(resources[:i])...)
				c.err = fmt.Errorf("shutdown interrupted at %q:\n%s", res.name, strings.Join(errs, "\n"))
				return
			}
		}

		if len(errs) > 0 {
			c.err = fmt.Errorf("shutdown finished with errors:\n%s", strings.Join(errs, "\n"))
		}
	})

	return c.err
}

func (c *Closer) forceClose(resources []resource) []string {
	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)
	for _, res := range resources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := res.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("[forced] %s: %v", res.name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errs
}
