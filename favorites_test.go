package darelteb

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/tfkr-ae/darelteb/codec"
	"github.com/tfkr-ae/darelteb/db"
	"github.com/tfkr-ae/darelteb/domain"
	"github.com/tfkr-ae/darelteb/memkv"
)

var (
	cbc   = domain.FavoriteTest{ID: "t1", Name: "CBC", ImageURL: "/img/1.png", Coins: 50}
	lipid = domain.FavoriteTest{ID: "t2", Name: "Lipid Panel", ImageURL: "/img/2.png", Coins: 80}
)

var errDiskFull = errors.New("disk full")

func setupFavorites(t *testing.T, options ...func(*Favorites) error) (*Favorites, *memkv.Store) {
	t.Helper()

	repo := memkv.New()
	favorites, err := NewFavorites(repo, options...)
	if err != nil {
		t.Fatalf("NewFavorites() failed: %v", err)
	}
	return favorites, repo
}

func TestNewFavorites(t *testing.T) {
	t.Run("should use the default key and codec", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if favorites.Key != DefaultKey {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", DefaultKey, favorites.Key)
		}
		if favorites.Codec == nil || favorites.Codec.Compression != codec.None {
			t.Fatalf("\nwanted:\nplain codec\ngot:\n%v", favorites.Codec)
		}
		if favorites.Logger == nil {
			t.Fatalf("\nwanted:\nnon-nil logger\ngot:\nnil")
		}
	})

	t.Run("should require a repository", func(t *testing.T) {
		_, err := NewFavorites(nil)
		if !errors.Is(err, ErrNoRepository) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoRepository, err)
		}
	})

	t.Run("should return option errors", func(t *testing.T) {
		_, err := NewFavorites(memkv.New(), WithKey(""))
		if err == nil {
			t.Fatalf("\nwanted:\nnon-nil\ngot:\n%v", err)
		}
	})
}

func TestFavorites_List(t *testing.T) {
	t.Run("should return an empty non-nil slice when the key is absent", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		got := favorites.List()
		if got == nil || len(got) != 0 {
			t.Fatalf("\nwanted:\nempty slice\ngot:\n%#v", got)
		}
	})

	t.Run("should return exactly one entry after an add", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		favorites.Add(cbc)

		got := favorites.List()
		want := []domain.FavoriteTest{cbc}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("should return an empty slice and log when the read fails", func(t *testing.T) {
		var buf bytes.Buffer
		favorites, repo := setupFavorites(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		favorites.Add(cbc)
		repo.FailOn(memkv.OpGet, errDiskFull)

		got := favorites.List()
		if len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got))
		}

		if !strings.Contains(buf.String(), "op=list") || !strings.Contains(buf.String(), "disk full") {
			t.Fatalf("\nwanted:\nlog output with op=list and the error\ngot:\n%q", buf.String())
		}
	})

	t.Run("should return an empty slice when the payload is corrupt", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		repo.SetItem(DefaultKey, []byte("{not a list"))

		if got := favorites.List(); len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got))
		}
	})

	t.Run("should read the payload written by the mobile client", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		repo.SetItem(DefaultKey, []byte(`[{"id":"t1","name":"CBC","imageUrl":"/img/1.png","coins":50},{"id":"t9","name":"Vitamin D","imageUrl":"https://cdn/9.png","coins":120,"category":"vitamins"}]`))

		want := []domain.FavoriteTest{
			cbc,
			{ID: "t9", Name: "Vitamin D", ImageURL: "https://cdn/9.png", Coins: 120, Category: "vitamins"},
		}
		got := favorites.List()
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})
}

func TestFavorites_Load(t *testing.T) {
	t.Run("should distinguish an empty store from a storage fault", func(t *testing.T) {
		favorites, repo := setupFavorites(t)

		got, err := favorites.Load()
		if err != nil || len(got) != 0 {
			t.Fatalf("\nwanted:\nempty, nil\ngot:\n%v, %v", got, err)
		}

		repo.FailOn(memkv.OpGet, errDiskFull)
		_, err = favorites.Load()
		if !errors.Is(err, ErrStorage) || !errors.Is(err, ErrPersistence) || !errors.Is(err, errDiskFull) {
			t.Fatalf("\nwanted:\n%v wrapping %v\ngot:\n%v", ErrStorage, errDiskFull, err)
		}
	})

	t.Run("should report a corrupt payload", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		repo.SetItem(DefaultKey, []byte(`{"id":"t1"}`))

		_, err := favorites.Load()
		if !errors.Is(err, ErrCorrupt) || !errors.Is(err, ErrPersistence) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrCorrupt, err)
		}
		if errors.Is(err, ErrStorage) {
			t.Fatalf("\nwanted:\nnot %v\ngot:\n%v", ErrStorage, err)
		}
	})
}

func TestFavorites_Add(t *testing.T) {
	t.Run("should return true for a new test", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if !favorites.Add(cbc) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
	})

	t.Run("should be idempotent for a repeated id", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		favorites.Add(cbc)
		renamed := cbc
		renamed.Name = "Complete Blood Count"

		if favorites.Add(renamed) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		got := favorites.List()
		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}
		if got[0].Name != "CBC" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "CBC", got[0].Name)
		}
	})

	t.Run("should return false when the write fails", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		repo.FailOn(memkv.OpSet, errDiskFull)

		if favorites.Add(cbc) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		repo.FailOn(memkv.OpSet, nil)
		if favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
	})

	t.Run("should return false without writing for an invalid test", func(t *testing.T) {
		var buf bytes.Buffer
		favorites, repo := setupFavorites(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		if favorites.Add(domain.FavoriteTest{Name: "no id"}) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
		if favorites.Add(domain.FavoriteTest{ID: "t1", Coins: -5}) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		if repo.Calls(memkv.OpSet) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", repo.Calls(memkv.OpSet))
		}
		if !strings.Contains(buf.String(), "level=WARN") {
			t.Fatalf("\nwanted:\nwarning log\ngot:\n%q", buf.String())
		}
	})
}

func TestFavorites_Insert(t *testing.T) {
	t.Run("should report invalid input", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		added, err := favorites.Insert(domain.FavoriteTest{})
		if added || !errors.Is(err, domain.ErrInvalidFavorite) {
			t.Fatalf("\nwanted:\nfalse, %v\ngot:\n%v, %v", domain.ErrInvalidFavorite, added, err)
		}
	})

	t.Run("should not write over a corrupt payload", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		repo.SetItem(DefaultKey, []byte("garbage"))

		_, err := favorites.Insert(cbc)
		if !errors.Is(err, ErrCorrupt) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrCorrupt, err)
		}

		got, _, _ := repo.GetItem(DefaultKey)
		if string(got) != "garbage" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "garbage", got)
		}
	})
}

func TestFavorites_Remove(t *testing.T) {
	t.Run("should remove only the given id", func(t *testing.T) {
		favorites, _ := setupFavorites(t)
		favorites.Add(cbc)
		favorites.Add(lipid)

		if !favorites.Remove(cbc.ID) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}

		want := []domain.FavoriteTest{lipid}
		if got := favorites.List(); !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("should succeed and leave the collection unchanged for an absent id", func(t *testing.T) {
		favorites, _ := setupFavorites(t)
		favorites.Add(cbc)

		if !favorites.Remove("missing") {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}

		want := []domain.FavoriteTest{cbc}
		if got := favorites.List(); !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("should succeed on an empty store", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if !favorites.Remove("missing") {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
	})

	t.Run("should return false when the store is unavailable", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		favorites.Add(cbc)
		repo.FailOn(memkv.OpSet, errDiskFull)

		if favorites.Remove(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		repo.FailOn(memkv.OpSet, nil)
		if !favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
	})
}

func TestFavorites_IsFavorite(t *testing.T) {
	t.Run("should reflect the persisted state", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		favorites.Add(cbc)
		if !favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}

		favorites.Remove(cbc.ID)
		if favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
	})

	t.Run("should fail closed", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		favorites.Add(cbc)
		repo.FailOn(memkv.OpGet, errDiskFull)

		if favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		_, err := favorites.Contains(cbc.ID)
		if !errors.Is(err, ErrStorage) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrStorage, err)
		}
	})
}

func TestFavorites_ClearAll(t *testing.T) {
	t.Run("should empty the store and delete the key", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		favorites.Add(cbc)
		favorites.Add(lipid)

		if !favorites.ClearAll() {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}

		if got := favorites.List(); len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got))
		}

		_, found, _ := repo.GetItem(DefaultKey)
		if found {
			t.Fatalf("\nwanted:\nkey removed\ngot:\nkey present")
		}
	})

	t.Run("should be idempotent", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if !favorites.ClearAll() || !favorites.ClearAll() {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
	})

	t.Run("should report a failure without panicking", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		repo.FailOn(memkv.OpRemove, errDiskFull)

		if favorites.ClearAll() {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}

		if err := favorites.Clear(); !errors.Is(err, ErrStorage) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrStorage, err)
		}
	})
}

func TestFavorites_Toggle(t *testing.T) {
	t.Run("should add then remove", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if !favorites.Toggle(cbc) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
		if !favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}

		if favorites.Toggle(cbc) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
		if favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
	})

	t.Run("should keep the previous state when the write fails", func(t *testing.T) {
		favorites, repo := setupFavorites(t)
		favorites.Add(cbc)
		repo.FailOn(memkv.OpSet, errDiskFull)

		if !favorites.Toggle(cbc) {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
		if favorites.Toggle(lipid) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
	})

	t.Run("should not add an invalid test", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if favorites.Toggle(domain.FavoriteTest{ID: "t1", Coins: -1}) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
		if favorites.Count() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", favorites.Count())
		}
	})
}

func TestFavorites_Count(t *testing.T) {
	t.Run("should count the stored favorites", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		favorites.Add(cbc)
		favorites.Add(lipid)
		favorites.Add(cbc)

		if favorites.Count() != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", favorites.Count())
		}
	})
}

func TestFavorites_Scenario(t *testing.T) {
	for _, compression := range []codec.Compression{codec.None, codec.Gzip, codec.Brotli} {
		t.Run("should follow the browse flow with "+string(compression)+" payloads", func(t *testing.T) {
			favorites, _ := setupFavorites(t, WithCompression(compression))

			favorites.Add(cbc)
			if got := favorites.List(); !reflect.DeepEqual([]domain.FavoriteTest{cbc}, got) {
				t.Fatalf("\nwanted:\n%v\ngot:\n%v", []domain.FavoriteTest{cbc}, got)
			}

			favorites.Add(lipid)
			if got := favorites.List(); !reflect.DeepEqual([]domain.FavoriteTest{cbc, lipid}, got) {
				t.Fatalf("\nwanted:\n%v\ngot:\n%v", []domain.FavoriteTest{cbc, lipid}, got)
			}

			favorites.Remove("t1")
			if got := favorites.List(); !reflect.DeepEqual([]domain.FavoriteTest{lipid}, got) {
				t.Fatalf("\nwanted:\n%v\ngot:\n%v", []domain.FavoriteTest{lipid}, got)
			}

			favorites.ClearAll()
			if got := favorites.List(); len(got) != 0 {
				t.Fatalf("\nwanted:\n[]\ngot:\n%v", got)
			}
		})
	}
}

func TestFavorites_RoundTrip(t *testing.T) {
	t.Run("should reload N entries in insertion order from a reopened database", func(t *testing.T) {
		path := t.TempDir() + "/favorites.db"

		repo, err := db.Open(path)
		if err != nil {
			t.Fatalf("opening db: %v", err)
		}
		favorites, err := NewFavorites(repo)
		if err != nil {
			t.Fatalf("NewFavorites() failed: %v", err)
		}

		var want []domain.FavoriteTest
		for i := 0; i < 25; i++ {
			test := domain.FavoriteTest{
				ID:       fmt.Sprintf("t%02d", 25-i),
				Name:     fmt.Sprintf("Test %d", i),
				ImageURL: fmt.Sprintf("/img/%d.png", i),
				Coins:    float64(i) * 1.5,
			}
			if i%3 == 0 {
				test.Category = "blood"
			}
			want = append(want, test)
			if !favorites.Add(test) {
				t.Fatalf("adding %s failed", test.ID)
			}
		}
		repo.Close()

		repo, err = db.Open(path)
		if err != nil {
			t.Fatalf("reopening db: %v", err)
		}
		defer repo.Close()

		reopened, err := NewFavorites(repo)
		if err != nil {
			t.Fatalf("NewFavorites() failed: %v", err)
		}

		got := reopened.List()
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})
}

func TestFavorites_Concurrency(t *testing.T) {
	t.Run("should keep every concurrent add on one instance", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				favorites.Add(domain.FavoriteTest{ID: fmt.Sprintf("t%d", i), Name: "test", Coins: 1})
			}(i)
		}
		wg.Wait()

		if got := favorites.Count(); got != 50 {
			t.Fatalf("\nwanted:\n50\ngot:\n%d", got)
		}
	})

	t.Run("should leave a rapid double toggle in its original state", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				favorites.Toggle(cbc)
			}()
		}
		wg.Wait()

		if favorites.IsFavorite(cbc.ID) {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
	})
}

func TestFavorites_WriteLog(t *testing.T) {
	t.Run("should persist failures to the log repository", func(t *testing.T) {
		path := t.TempDir() + "/logs.db"
		logRepo, err := db.Open(path)
		if err != nil {
			t.Fatalf("opening db: %v", err)
		}
		defer logRepo.Close()

		favorites, repo := setupFavorites(t, WithLogRepository(logRepo))
		repo.FailOn(memkv.OpSet, errDiskFull)

		favorites.Add(cbc)

		logs, err := logRepo.GetLogs()
		if err != nil {
			t.Fatalf("getting logs: %v", err)
		}

		if len(logs) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(logs))
		}

		got := logs[0]
		if got.Level != "ERROR" {
			t.Fatalf("\nwanted:\nERROR\ngot:\n%s", got.Level)
		}
		if got.Key == nil || *got.Key != DefaultKey {
			t.Fatalf("\nwanted:\n%q\ngot:\n%v", DefaultKey, got.Key)
		}
		if got.Context["op"] != "add" || got.Context["id"] != "t1" {
			t.Fatalf("\nwanted:\nop=add id=t1\ngot:\n%v", got.Context)
		}
		if !strings.Contains(fmt.Sprint(got.Context["error"]), "disk full") {
			t.Fatalf("\nwanted:\nerror containing 'disk full'\ngot:\n%v", got.Context["error"])
		}
	})

	t.Run("should reject unknown levels", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if err := favorites.WriteLog("FATAL", "boom"); err == nil {
			t.Fatalf("\nwanted:\nnon-nil\ngot:\n%v", err)
		}
	})

	t.Run("should fail without a log repository", func(t *testing.T) {
		favorites, _ := setupFavorites(t)

		if err := favorites.WriteLog("INFO", "hello"); err == nil {
			t.Fatalf("\nwanted:\nnon-nil\ngot:\n%v", err)
		}
	})
}
