package handlers

import (
	"testing"
	"time"
)

func TestCooldowns(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCooldowns(2 * time.Second)
	c.now = func() time.Time { return now }

	if _, ok := c.Allow("play", "u1"); !ok {
		t.Fatal("first use should pass")
	}
	wait, ok := c.Allow("play", "u1")
	if ok || wait <= 0 || wait > 2*time.Second {
		t.Fatalf("second use should wait, got %s %v", wait, ok)
	}
	if _, ok := c.Allow("skip", "u1"); !ok {
		t.Error("cooldowns are per command")
	}
	if _, ok := c.Allow("play", "u2"); !ok {
		t.Error("cooldowns are per user")
	}

	c.Reset("play", "u1")
	if _, ok := c.Allow("play", "u1"); !ok {
		t.Error("reset should free the slot")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Allow("play", "u1"); !ok {
		t.Error("slot should refill after the period")
	}
}

func TestCooldownsSweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCooldowns(time.Second)
	c.now = func() time.Time { return now }

	c.Allow("play", "u1")
	c.Allow("play", "u2")
	if n := c.Sweep(); n != 0 {
		t.Errorf("nothing expired yet, swept %d", n)
	}
	now = now.Add(time.Second)
	if n := c.Sweep(); n != 2 {
		t.Errorf("expected 2 swept, got %d", n)
	}
}

func TestCooldownsDisabled(t *testing.T) {
	c := NewCooldowns(0)
	for i := 0; i < 3; i++ {
		if _, ok := c.Allow("play", "u1"); !ok {
			t.Fatal("zero period never limits")
		}
	}
}
