package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newLimiter(t *testing.T, perMinute int) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := New(Config{MaxRequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestAllow_RefillsOverTime(t *testing.T) {
	rl, clock := newLimiter(t, 2)

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests rejected")
	}
	if rl.allow("a") {
		t.Fatal("third request allowed within the window")
	}
	if !rl.allow("b") {
		t.Error("separate client shares a bucket")
	}

	clock.t = clock.t.Add(30 * time.Second)
	if !rl.allow("a") {
		t.Error("request rejected after one refill interval")
	}
	if rl.allow("a") {
		t.Error("refill granted more than one token")
	}
}

func TestEvictIdle(t *testing.T) {
	rl, clock := newLimiter(t, 5)
	rl.allow("a")

	clock.t = clock.t.Add(11 * time.Minute)
	rl.evictIdle(10 * time.Minute)

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.buckets["a"]; ok {
		t.Error("idle bucket kept")
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newLimiter(t, 1)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.HTTPStatus(err))
		},
	})
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	do := func(client string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(ClientHeader, client)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	if got := do("x"); got != fiber.StatusOK {
		t.Errorf("first request status = %d", got)
	}
	if got := do("x"); got != fiber.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", got)
	}
	if got := do("y"); got != fiber.StatusOK {
		t.Errorf("other client status = %d", got)
	}
}

func TestMiddleware_KeysSurviveLaterRequests(t *testing.T) {
	rl, _ := newLimiter(t, 1)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.HTTPStatus(err))
		},
	})
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for _, client := range []string{"alice", "bobby", "carol"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(ClientHeader, client)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("client %s first request status = %d", client, resp.StatusCode)
		}
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	for _, client := range []string{"alice", "bobby", "carol"} {
		if _, ok := rl.buckets[client]; !ok {
			t.Errorf("bucket for %q missing, keys were overwritten", client)
		}
	}
}
