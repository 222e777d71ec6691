package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
)

type mockObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	PutFunc func(key string) error
}

func (m *mockObjectStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.PutFunc != nil {
		if err := m.PutFunc(key); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func dataURL(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantErr  error
	}{
		{name: "png", raw: dataURL("image/png", []byte{1, 2, 3}), wantType: "image/png"},
		{name: "upperCaseMime", raw: dataURL("IMAGE/JPEG", []byte{1}), wantType: "image/jpeg"},
		{name: "notData", raw: "https://example.com/a.png", wantErr: ErrNotDataURL},
		{name: "notImage", raw: dataURL("text/plain", []byte("hi")), wantErr: ErrUnsupportedImage},
		{name: "notBase64", raw: "data:image/png,rawbytes", wantErr: ErrUnsupportedImage},
		{name: "badPayload", raw: "data:image/png;base64,@@@", wantErr: ErrUnsupportedImage},
		{name: "tooLarge", raw: dataURL("image/png", make([]byte, MaxImageBytes+1)), wantErr: ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, _, err := DecodeDataURL(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDataURL() error = %v", err)
			}
			if contentType != tt.wantType {
				t.Errorf("contentType = %q, want %q", contentType, tt.wantType)
			}
		})
	}
}

func TestImageResolverResolve(t *testing.T) {
	store := &mockObjectStore{}
	resolver := NewImageResolver(store)

	refs := []string{
		"https://example.com/bolo.png",
		dataURL("image/png", []byte{1, 2, 3}),
		"blob:http://localhost:5173/1234",
		"",
		"not a url",
		dataURL("text/html", []byte("<p>")),
	}
	got := resolver.Resolve(context.Background(), "ord-1", refs)

	if len(got) != 2 {
		t.Fatalf("Resolve() = %v, want 2 urls", got)
	}
	if got[0] != "https://example.com/bolo.png" {
		t.Errorf("remote url must be kept as is, got %q", got[0])
	}
	if !strings.HasPrefix(got[1], "https://cdn.example.com/orders/ord-1/") || !strings.HasSuffix(got[1], ".png") {
		t.Errorf("uploaded url = %q", got[1])
	}
	if len(store.objects) != 1 {
		t.Errorf("objects stored = %d, want 1", len(store.objects))
	}
}

func TestImageResolverDropsFailedUploads(t *testing.T) {
	store := &mockObjectStore{PutFunc: func(string) error { return errors.New("minio down") }}
	got := NewImageResolver(store).Resolve(context.Background(), "ord-2", []string{
		dataURL("image/jpeg", []byte{9}),
		"http://example.com/ok.jpg",
	})
	if len(got) != 1 || got[0] != "http://example.com/ok.jpg" {
		t.Errorf("Resolve() = %v", got)
	}
}

func TestImageResolverWithoutStore(t *testing.T) {
	got := NewImageResolver(nil).Resolve(context.Background(), "ord-3", []string{dataURL("image/png", []byte{1})})
	if len(got) != 0 {
		t.Errorf("Resolve() = %v, want none", got)
	}
}
