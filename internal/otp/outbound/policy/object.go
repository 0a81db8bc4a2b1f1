package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
)

type objectPolicy struct {
	CodeLength            int    `json:"code_length"`
	ExpirySeconds         int64  `json:"expiry_seconds"`
	MaxAttempts           int    `json:"max_attempts"`
	ResendCooldownSeconds int64  `json:"resend_cooldown_seconds"`
	Charset               string `json:"charset"`
}

type objectDocument struct {
	Policies  map[string]objectPolicy `json:"policies"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Object keeps the table as one JSON document in a bucket. The document is
// read once and cached; every Save rewrites it. Concurrent writers from
// other instances are last-write-wins.
type Object struct {
	tracing
	store  storage.Storage
	bucket string
	key    string
	seed   map[entity.Purpose]entity.Policy

	mu     sync.Mutex
	cache  map[entity.Purpose]entity.Policy
	loaded bool
}

func NewObject(store storage.Storage, bucket, key string, seed map[entity.Purpose]entity.Policy, ins instrument.Instrumentation) *Object {
	if key == "" {
		key = "otp/policies.json"
	}
	return &Object{
		tracing: tracing{ins: ins},
		store:   store,
		bucket:  bucket,
		key:     key,
		seed:    seed,
	}
}

func (s *Object) Get(ctx context.Context, purpose entity.Purpose) (_ entity.Policy, err error) {
	ctx, span := s.startSpan(ctx, "Object.Get")
	defer func() { s.endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.loadLocked(ctx); err != nil {
		return entity.Policy{}, err
	}

	p, ok := s.cache[purpose]
	if !ok {
		return entity.Policy{}, goerror.ErrNotFound
	}
	return p, nil
}

func (s *Object) Save(ctx context.Context, purpose entity.Purpose, p entity.Policy) (err error) {
	ctx, span := s.startSpan(ctx, "Object.Save")
	defer func() { s.endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.loadLocked(ctx); err != nil {
		return err
	}

	next := maps.Clone(s.cache)
	next[purpose] = p
	if err = s.writeLocked(ctx, next); err != nil {
		return err
	}

	s.cache = next
	return nil
}

func (s *Object) List(ctx context.Context) (_ map[entity.Purpose]entity.Policy, err error) {
	ctx, span := s.startSpan(ctx, "Object.List")
	defer func() { s.endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.loadLocked(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(s.cache), nil
}

// loadLocked reads the document on first use, writing the seed when the
// bucket has none yet.
func (s *Object) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	rc, _, err := s.store.GetObject(ctx, s.bucket, s.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		seed := maps.Clone(s.seed)
		if seed == nil {
			seed = make(map[entity.Purpose]entity.Policy)
		}
		if err := s.writeLocked(ctx, seed); err != nil {
			return err
		}
		s.cache, s.loaded = seed, true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read policy document: %w", err)
	}
	defer rc.Close()

	var doc objectDocument
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return fmt.Errorf("decode policy document: %w", err)
	}

	cache := make(map[entity.Purpose]entity.Policy, len(doc.Policies))
	for key, op := range doc.Policies {
		purpose := entity.ParsePurpose(key)
		if !purpose.IsValid() {
			continue
		}
		cache[purpose] = entity.Policy{
			CodeLength:     op.CodeLength,
			Expiry:         time.Duration(op.ExpirySeconds) * time.Second,
			MaxAttempts:    op.MaxAttempts,
			ResendCooldown: time.Duration(op.ResendCooldownSeconds) * time.Second,
			Charset:        entity.ParseCharset(op.Charset),
		}
	}

	s.cache, s.loaded = cache, true
	return nil
}

func (s *Object) writeLocked(ctx context.Context, m map[entity.Purpose]entity.Policy) error {
	doc := objectDocument{Policies: make(map[string]objectPolicy, len(m)), UpdatedAt: time.Now().UTC()}
	for purpose, p := range m {
		doc.Policies[purpose.Key()] = objectPolicy{
			CodeLength:            p.CodeLength,
			ExpirySeconds:         int64(p.Expiry / time.Second),
			MaxAttempts:           p.MaxAttempts,
			ResendCooldownSeconds: int64(p.ResendCooldown / time.Second),
			Charset:               p.Charset.String(),
		}
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode policy document: %w", err)
	}

	_, err = s.store.PutObject(ctx, s.bucket, s.key, bytes.NewReader(body), storage.PutOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("write policy document: %w", err)
	}
	return nil
}
