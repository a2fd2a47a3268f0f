// Package normalize cleans the primary header of a FITS image so WCS parsers
// downstream accept it: legacy pixel-size keywords are removed, the WCS cards
// are regenerated, and repeated keywords are collapsed under a policy.
package normalize

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/config"
	"github.com/rickbassham/fitsnorm/fits"
	"github.com/rickbassham/fitsnorm/wcs"
)

type Normalizer struct {
	disallowed []string
	policy     *Policy
	verify     bool
	lock       bool
	logger     *zap.Logger
}

type Option func(*Normalizer)

func WithLogger(logger *zap.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func WithPolicy(p *Policy) Option {
	return func(n *Normalizer) {
		if p != nil {
			n.policy = p
		}
	}
}

// WithDisallowed replaces the set of keywords removed before WCS parsing.
func WithDisallowed(keys ...string) Option {
	return func(n *Normalizer) {
		n.disallowed = append([]string(nil), keys...)
	}
}

func WithVerify(verify bool) Option {
	return func(n *Normalizer) {
		n.verify = verify
	}
}

func WithLock(lock bool) Option {
	return func(n *Normalizer) {
		n.lock = lock
	}
}

// New returns a Normalizer with the built-in configuration.
func New(opts ...Option) *Normalizer {
	return FromConfig(nil, opts...)
}

// FromConfig builds a Normalizer from cfg (defaults when nil); opts are
// applied afterwards.
func FromConfig(cfg *config.Config, opts ...Option) *Normalizer {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}

	n := &Normalizer{
		disallowed: append([]string(nil), cfg.Policy.DisallowedKeywords...),
		policy:     PolicyFor(cfg.Policy.PreciseDateKeywords, cfg.Policy.SensorTemperatureKeywords),
		verify:     cfg.Verify,
		lock:       cfg.Lock,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// File normalizes the image at path with the built-in configuration.
func File(path string) error {
	return New().Normalize(context.Background(), path)
}

// Normalize rewrites the primary header of the file at path in place. On any
// error the file is left as it was.
func (n *Normalizer) Normalize(ctx context.Context, path string) (err error) {
	log := n.logger.With(zap.String("file", path))

	if n.lock {
		lk, err := fits.TryLock(path)
		if err != nil {
			return err
		}
		defer func() {
			if uerr := lk.Unlock(); uerr != nil {
				log.Warn("release lock", zap.Error(uerr))
			}
		}()
	}

	s, err := fits.OpenUpdate(path, fits.WithVerify(n.verify))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	h, err := n.rewrite(ctx, s.Header(), log)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.Replace(h)
	if err := s.Commit(); err != nil {
		return err
	}
	for _, key := range s.Truncated() {
		log.Warn("comment truncated to fit 80 columns", zap.String("keyword", key))
	}

	log.Info("header normalized", zap.Int("cards", len(h)))

	return nil
}

// Plan runs every step except the write and returns the header Normalize
// would store.
func (n *Normalizer) Plan(ctx context.Context, path string) (common.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &fits.AccessError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	h, err := fits.NewDecoder(f).ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return n.rewrite(ctx, h, n.logger.With(zap.String("file", path)))
}

// Rewrite applies removal, WCS regeneration and deduplication to h.
func (n *Normalizer) Rewrite(ctx context.Context, h common.Header) (common.Header, error) {
	return n.rewrite(ctx, h.Clone(), n.logger)
}

func (n *Normalizer) rewrite(ctx context.Context, h common.Header, log *zap.Logger) (common.Header, error) {
	for _, key := range n.disallowed {
		if removed := h.Delete(key); removed > 0 {
			log.Debug("removed disallowed keyword", zap.String("keyword", key), zap.Int("count", removed))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := wcs.FromHeader(h)
	if err != nil {
		return nil, fmt.Errorf("build coordinate system: %w", err)
	}

	cards := w.Cards()
	h.Update(cards...)
	log.Debug("merged coordinate cards", zap.Int("axes", w.Naxis()), zap.Int("cards", len(cards)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, dropped, err := Dedupe(n.policy, h)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		log.Debug("dropped duplicate keywords", zap.Int("count", dropped))
	}

	return out, nil
}
