// Package main loads demo accounts, listings and favorites from a YAML
// fixture file into the Estately database and search index.
//
// Usage:
//
//	go run ./cmd/seed -file cmd/seed/fixtures.yaml
//	DATA_PATH=/var/lib/estately go run ./cmd/seed -file fixtures.yaml
//
// Accounts are matched by email and listings by seller and title, so running
// the loader twice does not duplicate anything.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/id"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/normalize"
	"github.com/estately/estately-server/internal/search"
	"github.com/estately/estately-server/internal/store"
	"github.com/estately/estately-server/internal/store/sqlite"
)

var (
	fixturePath = flag.String("file", "cmd/seed/fixtures.yaml", "YAML fixture file")
	dataPath    = flag.String("data-path", "", "Data directory (default: $DATA_PATH or ~/Estately/data)")
	skipIndex   = flag.Bool("skip-index", false, "Do not update the search index")
)

// Fixtures is the top-level YAML document.
type Fixtures struct {
	Users      []UserFixture     `yaml:"users"`
	Properties []PropertyFixture `yaml:"properties"`
	Favorites  []FavoriteFixture `yaml:"favorites"`
}

// UserFixture describes one account.
type UserFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Admin    bool   `yaml:"admin"`
}

// PropertyFixture describes one listing. Seller is an account email.
type PropertyFixture struct {
	Seller      string   `yaml:"seller"`
	Title       string   `yaml:"title"`
	Price       int64    `yaml:"price"`
	Category    string   `yaml:"property_type"`
	Bedrooms    int      `yaml:"bedrooms"`
	Bathrooms   int      `yaml:"bathrooms"`
	Area        int      `yaml:"area"`
	Address     string   `yaml:"address"`
	City        string   `yaml:"city"`
	State       string   `yaml:"state"`
	ZipCode     string   `yaml:"zip_code"`
	Description string   `yaml:"description"`
	Images      []string `yaml:"images"`
	Status      string   `yaml:"status"`
	Featured    bool     `yaml:"featured"`
}

// FavoriteFixture bookmarks a listing, by title, for an account, by email.
type FavoriteFixture struct {
	User     string `yaml:"user"`
	Property string `yaml:"property"`
}

func main() {
	flag.Parse()

	fixtures, err := readFixtures(*fixturePath)
	if err != nil {
		log.Fatalf("Failed to read fixtures: %v", err)
	}

	base := *dataPath
	if base == "" {
		base = os.Getenv("DATA_PATH")
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		base = filepath.Join(home, "Estately", "data")
	}
	data := config.DataConfig{BasePath: base}
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	lg := logger.New(logger.Config{Level: logger.ParseLevel("warn"), Environment: "development"})

	fmt.Printf("Opening database at: %s\n", data.DatabasePath())
	st, err := sqlite.Open(data.DatabasePath(), lg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	s := &seeder{store: st, users: map[string]*domain.User{}, listings: map[string]*domain.Property{}}

	for _, u := range fixtures.Users {
		if err := s.seedUser(ctx, u); err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.Email, err)
		}
	}
	for _, p := range fixtures.Properties {
		if err := s.seedProperty(ctx, p); err != nil {
			log.Fatalf("Failed to seed property %q: %v", p.Title, err)
		}
	}
	for _, f := range fixtures.Favorites {
		if err := s.seedFavorite(ctx, f); err != nil {
			log.Fatalf("Failed to seed favorite %s -> %q: %v", f.User, f.Property, err)
		}
	}

	if !*skipIndex {
		if err := s.index(filepath.Join(base, "search"), lg); err != nil {
			log.Fatalf("Failed to index listings: %v", err)
		}
	}

	fmt.Printf("\nSeeded %d users, %d properties, %d favorites\n",
		s.createdUsers, s.createdListings, s.createdFavorites)
}

func readFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

type seeder struct {
	store store.Store

	// users by normalized email, listings by title.
	users    map[string]*domain.User
	listings map[string]*domain.Property

	createdUsers, createdListings, createdFavorites int
}

func (s *seeder) seedUser(ctx context.Context, f UserFixture) error {
	email := domain.NormalizeEmail(f.Email)
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		fmt.Printf("  user %s exists (%s)\n", email, existing.ID)
		s.users[email] = existing
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(f.Password)
	if err != nil {
		return err
	}
	userID, err := id.Generate("user")
	if err != nil {
		return err
	}

	user := &domain.User{
		Syncable:     domain.Syncable{ID: userID},
		Email:        email,
		PasswordHash: hash,
		DisplayName:  normalize.Line(f.Name),
	}
	user.InitTimestamps()

	roles := []domain.Role{domain.RoleMember}
	if f.Admin {
		roles = append(roles, domain.RoleAdmin)
	}
	if err := s.store.CreateAccount(ctx, user, domain.ProfileFor(user), roles); err != nil {
		return err
	}

	fmt.Printf("  user %s created (%s, admin=%t)\n", email, userID, f.Admin)
	s.users[email] = user
	s.createdUsers++
	return nil
}

func (s *seeder) seedProperty(ctx context.Context, f PropertyFixture) error {
	seller, ok := s.users[domain.NormalizeEmail(f.Seller)]
	if !ok {
		return fmt.Errorf("unknown seller %q", f.Seller)
	}

	category := domain.Category(f.Category)
	if !category.Valid() {
		return fmt.Errorf("invalid property_type %q", f.Category)
	}
	status := domain.StatusPending
	if f.Status != "" {
		status = domain.Status(f.Status)
	}
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", f.Status)
	}

	mine, err := s.store.QueryProperties(ctx, store.PropertyFilter{SellerID: seller.ID, Limit: 200})
	if err != nil {
		return err
	}
	for _, p := range mine.Items {
		if p.Title == normalize.Line(f.Title) {
			fmt.Printf("  property %q exists (%s)\n", f.Title, p.ID)
			s.listings[f.Title] = p
			return nil
		}
	}

	propID, err := id.Generate("prop")
	if err != nil {
		return err
	}
	p := &domain.Property{
		Syncable:    domain.Syncable{ID: propID},
		SellerID:    seller.ID,
		Title:       normalize.Line(f.Title),
		Price:       f.Price,
		Category:    category,
		Bedrooms:    f.Bedrooms,
		Bathrooms:   f.Bathrooms,
		Area:        f.Area,
		Address:     normalize.Line(f.Address),
		City:        normalize.Line(f.City),
		State:       normalize.State(f.State),
		ZipCode:     normalize.ZipCode(f.ZipCode),
		Description: normalize.Description(f.Description),
		Images:      append([]string{}, f.Images...),
	}
	p.SetStatus(status)
	p.Featured = f.Featured && p.CanToggleFeatured()
	p.InitTimestamps()

	if err := s.store.CreateProperty(ctx, p); err != nil {
		return err
	}

	fmt.Printf("  property %q created (%s, %s)\n", p.Title, p.ID, p.Status)
	s.listings[f.Title] = p
	s.createdListings++
	return nil
}

func (s *seeder) seedFavorite(ctx context.Context, f FavoriteFixture) error {
	user, ok := s.users[domain.NormalizeEmail(f.User)]
	if !ok {
		return fmt.Errorf("unknown user %q", f.User)
	}
	p, ok := s.listings[f.Property]
	if !ok {
		return fmt.Errorf("unknown property %q", f.Property)
	}

	err := s.store.AddFavorite(ctx, &domain.Favorite{
		UserID:     user.ID,
		PropertyID: p.ID,
		CreatedAt:  time.Now(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return err
	}
	s.createdFavorites++
	return nil
}

func (s *seeder) index(path string, lg *logger.Logger) error {
	idx, err := search.NewSearchIndex(search.Options{DataPath: path, Logger: lg.Logger})
	if err != nil {
		return err
	}
	defer idx.Close()

	for _, p := range s.listings {
		if err := idx.Sync(p); err != nil {
			return fmt.Errorf("index %s: %w", p.ID, err)
		}
	}
	count, _ := idx.DocumentCount()
	fmt.Printf("Search index holds %d listings\n", count)
	return nil
}
