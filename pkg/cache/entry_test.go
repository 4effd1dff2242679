package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: time.Now().Add(-1 * time.Second),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_TTL(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "one hour remaining",
			expires: time.Now().Add(1 * time.Hour),
			wantMin: 59 * time.Minute,
			wantMax: 61 * time.Minute,
		},
		{
			name:    "already expired",
			expires: time.Now().Add(-1 * time.Hour),
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			ttl := entry.TTL()
			if ttl < tt.wantMin || ttl > tt.wantMax {
				t.Errorf("TTL() = %v, want between %v and %v", ttl, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	entry := NewEntry([]byte(`{"data":{}}`), 5*time.Minute)

	if string(entry.Data) != `{"data":{}}` {
		t.Errorf("Data = %s", entry.Data)
	}
	if entry.IsExpired() {
		t.Error("New entry should not be expired")
	}
	if ttl := entry.TTL(); ttl < 4*time.Minute || ttl > 5*time.Minute {
		t.Errorf("TTL() = %v, want about 5m", ttl)
	}
	if age := entry.Age(); age < 0 || age > time.Second {
		t.Errorf("Age() = %v, want close to 0", age)
	}
}

func TestNewEntry_ZeroTTLIsExpired(t *testing.T) {
	entry := NewEntry([]byte("x"), 0)
	time.Sleep(time.Millisecond)

	if !entry.IsExpired() {
		t.Error("Entry with zero TTL should be expired")
	}
	if entry.TTL() != 0 {
		t.Errorf("TTL() = %v, want 0", entry.TTL())
	}
}
