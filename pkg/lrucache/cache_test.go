// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lrucache

import (
	"testing"
	"time"
)

func TestBasics(t *testing.T) {
	cache := New(123)

	value1 := cache.Get("bar", func() (interface{}, time.Duration, int) {
		return "foo", time.Second, 0
	})

	if value1.(string) != "foo" {
		t.Error("cache returned wrong value")
	}

	value2 := cache.Get("bar", nil)
	if value2.(string) != "foo" {
		t.Error("cache returned wrong value")
	}

	if !cache.Del("bar") {
		t.Error("cache did not delete value")
	}

	if cache.Get("bar", nil) != nil {
		t.Error("cache still holds deleted value")
	}
}

func TestExpiration(t *testing.T) {
	cache := New(123)
	cache.Put("foo", "bar", 1, 10*time.Millisecond)

	if cache.Get("foo", nil).(string) != "bar" {
		t.Error("cache returned wrong value")
	}

	time.Sleep(20 * time.Millisecond)
	if cache.Get("foo", nil) != nil {
		t.Error("cache did not expire value")
	}
}

func TestEviction(t *testing.T) {
	cache := New(100)
	cache.Put("a", "a", 60, time.Minute)
	cache.Put("b", "b", 60, time.Minute)

	if cache.Get("a", nil) != nil {
		t.Error("cache did not evict oldest entry")
	}
	if cache.Get("b", nil) == nil {
		t.Error("cache evicted newest entry")
	}
}

func TestKeys(t *testing.T) {
	cache := New(1000)
	cache.Put("x", 1, 1, time.Minute)
	cache.Put("y", 2, 1, time.Minute)

	seen := map[string]bool{}
	cache.Keys(func(key string, val interface{}) {
		seen[key] = true
	})
	if !seen["x"] || !seen["y"] {
		t.Errorf("expected both keys, got %v", seen)
	}
}
