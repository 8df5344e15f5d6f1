package metadata

import (
	"errors"
	"strings"
	"testing"

	coreerrors "hashmelody/core/errors"
)

type recordKey struct {
	token [20]byte
	id    uint64
}

type mockState struct {
	records map[recordKey]*Metadata
}

func (m *mockState) MetadataGet(token [20]byte, id uint64) (*Metadata, bool, error) {
	record, ok := m.records[recordKey{token, id}]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) MetadataPut(record *Metadata) error {
	m.records[recordKey{record.Token, record.ID}] = record.Clone()
	return nil
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		err  error
	}{
		{name: "Night Drive", uri: "https://example.com/a.json"},
		{name: "Track 01", uri: "ipfs://bafybeigdyrzt"},
		{name: "x", uri: "http://a"},
		{name: "", uri: "https://example.com", err: ErrInvalidName},
		{name: "   ", uri: "https://example.com", err: ErrInvalidName},
		{name: strings.Repeat("a", MaxNameLength+1), uri: "https://example.com", err: ErrInvalidName},
		{name: "Don't Stop", uri: "https://example.com"},
		{name: "Hip-Hop", uri: "https://example.com"},
		{name: "Café Noir", uri: "https://example.com"},
		{name: "\xff\xfe", uri: "https://example.com", err: ErrInvalidName},
		{name: "ok", uri: "ftp://example.com", err: ErrInvalidURI},
		{name: "ok", uri: "https://", err: ErrInvalidURI},
		{name: "ok", uri: "https://" + strings.Repeat("a", MaxURILength), err: ErrInvalidURI},
	}
	for _, tc := range cases {
		err := Validate(tc.name, tc.uri)
		if tc.err == nil {
			if err != nil {
				t.Fatalf("validate(%q, %q): %v", tc.name, tc.uri, err)
			}
			continue
		}
		if !errors.Is(err, tc.err) || !errors.Is(err, coreerrors.ErrValidation) {
			t.Fatalf("validate(%q, %q): expected %v, got %v", tc.name, tc.uri, tc.err, err)
		}
	}
}

func TestCreateIfAbsent(t *testing.T) {
	state := &mockState{records: make(map[recordKey]*Metadata)}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 42 })
	token := [20]byte{1}

	record, created, err := engine.Create(token, 7, "Night Drive", "https://example.com/a.json")
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	if record.CreatedAt != 42 {
		t.Fatalf("unexpected created at %d", record.CreatedAt)
	}
	if _, created, err := engine.Create(token, 7, "Night Drive", "https://example.com/a.json"); err != nil || created {
		t.Fatalf("identical create should no-op: created=%v err=%v", created, err)
	}
	if _, _, err := engine.Create(token, 7, "Other", "https://example.com/a.json"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, err := engine.Get(token, 7)
	if err != nil || got.Name != "Night Drive" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := engine.Get(token, 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
