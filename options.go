package darelteb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tfkr-ae/darelteb/codec"
	"github.com/tfkr-ae/darelteb/domain"
)

// WithOptions applies a series of configuration functions to the favorites store.
// Each option function can modify the store configuration and return an error if it fails.
//
// Parameters:
//   - options: Variadic list of configuration functions
//
// Returns:
//   - error: First error encountered from any option function
func (f *Favorites) WithOptions(options ...func(*Favorites) error) error {
	for _, option := range options {
		err := option(f)
		if err != nil {
			return fmt.Errorf("applying option on favorites : %w", err)
		}
	}
	return nil
}

// WithLogger sets the logger used for operational logs. A nil logger discards everything.
func WithLogger(logger *slog.Logger) func(*Favorites) error {
	return func(f *Favorites) error {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		f.Logger = logger
		return nil
	}
}

// WithKey sets the storage key of the favorites payload.
func WithKey(key string) func(*Favorites) error {
	return func(f *Favorites) error {
		if strings.TrimSpace(key) == "" {
			return errors.New("favorites key cannot be empty")
		}
		f.Key = key
		return nil
	}
}

// WithCodec sets the payload codec.
func WithCodec(c *codec.Codec) func(*Favorites) error {
	return func(f *Favorites) error {
		if c == nil {
			return errors.New("codec cannot be nil")
		}
		f.Codec = c
		return nil
	}
}

// WithCompression sets the compression applied to written payloads.
// Payloads are always readable whatever compression they were written with.
func WithCompression(compression codec.Compression) func(*Favorites) error {
	return func(f *Favorites) error {
		c, err := codec.New(compression)
		if err != nil {
			return fmt.Errorf("creating codec : %w", err)
		}
		f.Codec = c
		return nil
	}
}

// WithLogRepository attaches a repository that persists failure logs.
func WithLogRepository(repo domain.LogRepository) func(*Favorites) error {
	return func(f *Favorites) error {
		if repo == nil {
			return errors.New("log repository cannot be nil")
		}
		f.LogRepo = repo
		return nil
	}
}
