// Package darelteb implements the local favorites store of the Dar El-Teb lab-test client.
//
// Users bookmark lab tests they want quick access to. The bookmarks are kept as one ordered,
// id-unique collection, serialized under a single fixed key of a durable key-value store that
// outlives the process. Every mutation loads the whole collection, changes it in memory and
// writes the whole collection back.
//
// The core functionality includes:
//   - The Favorites store with the list / add / remove / membership / clear-all operations
//   - Error-bearing variants of each operation for callers that need to tell faults from emptiness
//   - SQLite, file and in-memory key-value backends (see the db, filekv and memkv packages)
//   - A viper-backed configuration layer and an App wiring a backend to the store
package darelteb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/darelteb/codec"
	"github.com/tfkr-ae/darelteb/core"
	"github.com/tfkr-ae/darelteb/domain"
)

// DefaultKey is the storage key the favorites payload lives under.
const DefaultKey = "@dar_el_teb_favorites"

var (
	// ErrPersistence is the single failure class of the store: the persistence layer is unavailable
	// or holds a payload that cannot be read. ErrStorage and ErrCorrupt both match it with errors.Is.
	ErrPersistence = errors.New("favorites persistence unavailable or corrupt")
	// ErrStorage is returned when the key-value repository fails to read or write.
	ErrStorage = fmt.Errorf("%w: storage error", ErrPersistence)
	// ErrCorrupt is returned when the stored payload cannot be decoded or the collection cannot be encoded.
	ErrCorrupt = fmt.Errorf("%w: serialization error", ErrPersistence)
	// ErrNoRepository is returned by NewFavorites when no key-value repository is given.
	ErrNoRepository = errors.New("favorites store requires a key-value repository")
)

// Favorites is the favorites store. It is safe for concurrent use: mutations of one instance are
// serialized, so overlapping Add / Remove / Toggle / ClearAll calls never lose each other's updates.
// Reads are not serialized and observe the last completed write.
//
// Two instances over the same repository and key do not coordinate; across instances the last
// full-payload write wins.
type Favorites struct {
	Repo    domain.KeyValueRepository // Key-value persistence layer
	Key     string                    // Storage key of the favorites payload
	Codec   *codec.Codec              // Payload serialization
	Logger  *slog.Logger              // Destination of operational logs
	LogRepo domain.LogRepository      // Optional sink for persisted failure logs

	mu sync.Mutex // serializes load-modify-store cycles
}

// NewFavorites creates a favorites store over repo and applies any provided options.
//
// Parameters:
//   - repo: The key-value repository the payload is persisted in
//   - options: Variadic list of option functions to configure the store
//
// Returns:
//   - *Favorites: Configured store
//   - error: ErrNoRepository, or the first error returned by an option
func NewFavorites(repo domain.KeyValueRepository, options ...func(*Favorites) error) (*Favorites, error) {
	if repo == nil {
		return nil, ErrNoRepository
	}

	favorites := &Favorites{
		Repo:   repo,
		Key:    DefaultKey,
		Codec:  &codec.Codec{Compression: codec.None},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	err := favorites.WithOptions(options...)
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// load reads and decodes the collection. An absent key is an empty collection.
func (f *Favorites) load() ([]domain.FavoriteTest, error) {
	payload, found, err := f.Repo.GetItem(f.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStorage, f.Key, err)
	}

	if !found {
		return []domain.FavoriteTest{}, nil
	}

	favorites, err := f.Codec.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCorrupt, f.Key, err)
	}
	return favorites, nil
}

// store encodes and writes the whole collection.
func (f *Favorites) store(favorites []domain.FavoriteTest) error {
	payload, err := f.Codec.Encode(favorites)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrCorrupt, f.Key, err)
	}

	if err := f.Repo.SetItem(f.Key, payload); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStorage, f.Key, err)
	}
	return nil
}

// Load returns the stored collection in insertion order.
// Unlike List it reports persistence failures instead of hiding them.
func (f *Favorites) Load() ([]domain.FavoriteTest, error) {
	return f.load()
}

// Insert appends test to the collection unless an entry with the same ID exists.
// added is false, with a nil error, when the ID was already present.
func (f *Favorites) Insert(test domain.FavoriteTest) (added bool, err error) {
	if err := test.Validate(); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	favorites, err := f.load()
	if err != nil {
		return false, err
	}

	if containsID(favorites, test.ID) {
		return false, nil
	}

	favorites = append(favorites, test)
	if err := f.store(favorites); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes every entry with the given ID and persists the filtered collection.
// Deleting an ID that is not present is not an error.
func (f *Favorites) Delete(testID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	favorites, err := f.load()
	if err != nil {
		return err
	}

	favorites = slices.DeleteFunc(favorites, func(favorite domain.FavoriteTest) bool {
		return favorite.ID == testID
	})
	return f.store(favorites)
}

// Contains reports whether an entry with the given ID is stored.
func (f *Favorites) Contains(testID string) (bool, error) {
	favorites, err := f.load()
	if err != nil {
		return false, err
	}
	return containsID(favorites, testID), nil
}

// Clear deletes the persisted payload. Clearing an empty store succeeds.
func (f *Favorites) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Repo.RemoveItem(f.Key); err != nil {
		return fmt.Errorf("%w: removing %s: %w", ErrStorage, f.Key, err)
	}
	return nil
}

// flip removes test if present and inserts it otherwise, returning the resulting membership.
// On failure the returned membership is the one before the call, or false if it is unknown.
func (f *Favorites) flip(test domain.FavoriteTest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	favorites, err := f.load()
	if err != nil {
		return false, err
	}

	if containsID(favorites, test.ID) {
		favorites = slices.DeleteFunc(favorites, func(favorite domain.FavoriteTest) bool {
			return favorite.ID == test.ID
		})
		if err := f.store(favorites); err != nil {
			return true, err
		}
		return false, nil
	}

	if err := test.Validate(); err != nil {
		return false, err
	}

	favorites = append(favorites, test)
	if err := f.store(favorites); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the stored collection in insertion order.
// It never fails: a read or decode failure is logged and reported as an empty collection.
func (f *Favorites) List() []domain.FavoriteTest {
	favorites, err := f.Load()
	if err != nil {
		f.report("list", err)
		return []domain.FavoriteTest{}
	}
	return favorites
}

// Add stores test unless its ID is already a favorite.
// It returns true only when the entry was appended and persisted; duplicates, invalid tests and
// persistence failures return false. Failures are logged.
func (f *Favorites) Add(test domain.FavoriteTest) bool {
	added, err := f.Insert(test)
	if err != nil {
		f.report("add", err, "id", test.ID)
		return false
	}

	if added {
		f.Logger.Debug("favorite added", "key", f.Key, "id", test.ID)
	}
	return added
}

// Remove deletes the favorite with the given ID. A missing ID is a successful no-op.
// It returns false, after logging, when the collection could not be loaded or written.
func (f *Favorites) Remove(testID string) bool {
	if err := f.Delete(testID); err != nil {
		f.report("remove", err, "id", testID)
		return false
	}

	f.Logger.Debug("favorite removed", "key", f.Key, "id", testID)
	return true
}

// IsFavorite reports whether testID is a favorite. Any failure is logged and reported as false.
func (f *Favorites) IsFavorite(testID string) bool {
	found, err := f.Contains(testID)
	if err != nil {
		f.report("is_favorite", err, "id", testID)
		return false
	}
	return found
}

// ClearAll deletes every favorite. It is idempotent. A failure is logged and reported as false.
func (f *Favorites) ClearAll() bool {
	if err := f.Clear(); err != nil {
		f.report("clear_all", err)
		return false
	}

	f.Logger.Debug("favorites cleared", "key", f.Key)
	return true
}

// Toggle flips the favorite state of test and returns whether it is a favorite afterwards.
// When the change cannot be made, the failure is logged and the state before the call is returned.
func (f *Favorites) Toggle(test domain.FavoriteTest) bool {
	favorite, err := f.flip(test)
	if err != nil {
		f.report("toggle", err, "id", test.ID)
	}
	return favorite
}

// Count returns the number of favorites, or 0 when they cannot be loaded.
func (f *Favorites) Count() int {
	return len(f.List())
}

// report logs a swallowed failure and, when a log repository is attached, persists it.
// Invalid input is logged as a warning; persistence failures as errors.
func (f *Favorites) report(op string, err error, attrs ...any) {
	level := slog.LevelError
	persistedLevel := "ERROR"
	if errors.Is(err, domain.ErrInvalidFavorite) {
		level = slog.LevelWarn
		persistedLevel = "WARN"
	}

	args := append([]any{"op", op, "key", f.Key, "error", err}, attrs...)
	f.Logger.Log(context.Background(), level, "favorites operation failed", args...)

	if f.LogRepo == nil {
		return
	}

	logContext := map[string]any{"op": op}
	for i := 0; i+1 < len(attrs); i += 2 {
		if name, ok := attrs[i].(string); ok {
			logContext[name] = attrs[i+1]
		}
	}

	logErr := f.WriteLog(persistedLevel, "favorites operation failed",
		core.LogWithKey(f.Key),
		core.LogWithContext(logContext),
		core.LogWithError(err),
	)
	if logErr != nil {
		f.Logger.Warn("persisting log entry", "error", logErr)
	}
}

// WriteLog persists a log entry through the attached log repository.
//
// Parameters:
//   - level: One of DEBUG, INFO, WARN, ERROR
//   - message: The log message
//   - options: Option functions decorating the entry (see the core package)
//
// Returns:
//   - error: Invalid level, missing repository, option or insert failure
func (f *Favorites) WriteLog(level string, message string, options ...core.LogOption) error {
	switch level {
	case "DEBUG":
	case "INFO":
	case "WARN":
	case "ERROR":
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error")
	}

	if f.LogRepo == nil {
		return fmt.Errorf("no log repository attached")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}

	log := &domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Context:   make(map[string]any),
	}
	for _, option := range options {
		if err := option(log); err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}

	if err := f.LogRepo.InsertLog(log); err != nil {
		return fmt.Errorf("inserting log : %w", err)
	}
	return nil
}

func containsID(favorites []domain.FavoriteTest, testID string) bool {
	return slices.ContainsFunc(favorites, func(favorite domain.FavoriteTest) bool {
		return favorite.ID == testID
	})
}
