package metadata

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/events"
	"hashmelody/crypto"
)

const (
	// MaxNameLength bounds the display name in bytes.
	MaxNameLength = 16
	// MaxURILength bounds the metadata URI in bytes.
	MaxURILength = 44
)

var uriSchemes = []string{"http://", "https://", "ipfs://"}

var (
	errNilState = errors.New("metadata: state not configured")

	// ErrInvalidName is returned for blank, overlong or non UTF-8 names.
	ErrInvalidName = fmt.Errorf("%w: metadata: invalid name", coreerrors.ErrValidation)
	// ErrInvalidURI is returned for empty, overlong or unsupported URIs.
	ErrInvalidURI = fmt.Errorf("%w: metadata: invalid uri", coreerrors.ErrValidation)
	// ErrConflict is returned when a different record already exists.
	ErrConflict = fmt.Errorf("%w: metadata: record already exists with different fields", coreerrors.ErrValidation)
	// ErrNotFound is returned when no record exists.
	ErrNotFound = fmt.Errorf("%w: metadata: record not found", coreerrors.ErrValidation)
)

// Metadata is the immutable descriptive record of a token.
type Metadata struct {
	Token     [20]byte `json:"token"`
	ID        uint64   `json:"id"`
	Name      string   `json:"name"`
	URI       string   `json:"uri"`
	CreatedAt int64    `json:"createdAt"`
}

// Clone returns a copy of the record.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

func (m *Metadata) sameFields(other *Metadata) bool {
	return m.Token == other.Token && m.ID == other.ID && m.Name == other.Name && m.URI == other.URI
}

func validName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameLength || !utf8.ValidString(name) {
		return false
	}
	return strings.TrimSpace(name) != ""
}

func validURI(uri string) bool {
	if len(uri) == 0 || len(uri) > MaxURILength {
		return false
	}
	for _, scheme := range uriSchemes {
		if strings.HasPrefix(uri, scheme) && len(uri) > len(scheme) {
			return true
		}
	}
	return false
}

// Validate checks name and uri against the record constraints.
func Validate(name, uri string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !validURI(uri) {
		return fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return nil
}

type engineState interface {
	MetadataGet(token [20]byte, id uint64) (*Metadata, bool, error)
	MetadataPut(record *Metadata) error
}

// Engine records token metadata.
type Engine struct {
	state   engineState
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() int64
}

// NewEngine constructs a metadata engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Create stores the record when absent. Recreating an identical record is a
// no-op; a record with different fields is rejected.
func (e *Engine) Create(token [20]byte, id uint64, name, uri string) (*Metadata, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	if err := Validate(name, uri); err != nil {
		return nil, false, err
	}
	record := &Metadata{Token: token, ID: id, Name: name, URI: uri}
	existing, ok, err := e.state.MetadataGet(token, id)
	if err != nil {
		return nil, false, err
	}
	if ok && existing != nil {
		if existing.sameFields(record) {
			return existing, false, nil
		}
		return nil, false, ErrConflict
	}
	record.CreatedAt = e.nowFn()
	if err := e.state.MetadataPut(record); err != nil {
		return nil, false, err
	}
	e.logger.Info("token metadata created",
		slog.String("token", crypto.FormatToken(token)),
		slog.Uint64("id", id),
		slog.String("name", name),
		slog.String("uri", uri))
	e.emitter.Emit(events.MetadataCreated{Token: token, ID: id, Name: name, URI: uri})
	return record.Clone(), true, nil
}

// Get returns the record for (token, id).
func (e *Engine) Get(token [20]byte, id uint64) (*Metadata, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.MetadataGet(token, id)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}
